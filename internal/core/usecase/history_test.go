package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/akimov/peerwallet/internal/core/models"
	"github.com/akimov/peerwallet/internal/core/usecase"
)

// fakeLedger serves canned ledger entries, party-filtered the way the
// real repository does it in SQL.
type fakeLedger struct {
	entries []models.TransactionWithParties
}

func (f *fakeLedger) Create(ctx context.Context, tx *sqlx.Tx, txn *models.Transaction) error {
	panic("history tests never write the ledger")
}

func (f *fakeLedger) ListByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]models.TransactionWithParties, int64, error) {
	var matched []models.TransactionWithParties
	for _, e := range f.entries {
		if e.SenderWalletID == walletID || e.RecipientWalletID == walletID {
			matched = append(matched, e)
		}
	}

	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (f *fakeLedger) GetByIDForWallet(ctx context.Context, id, walletID uuid.UUID) (*models.TransactionWithParties, error) {
	for _, e := range f.entries {
		if e.ID == id && (e.SenderWalletID == walletID || e.RecipientWalletID == walletID) {
			entry := e
			return &entry, nil
		}
	}
	return nil, usecase.ErrTransactionNotFound
}

func ledgerEntry(sender, recipient uuid.UUID, amount string, createdAt time.Time) models.TransactionWithParties {
	return models.TransactionWithParties{
		Transaction: models.Transaction{
			ID:                uuid.New(),
			SenderWalletID:    sender,
			RecipientWalletID: recipient,
			Amount:            decimal.RequireFromString(amount),
			Status:            models.StatusCompleted,
			CreatedAt:         createdAt,
			UpdatedAt:         createdAt,
		},
		SenderName:     "Alice",
		SenderEmail:    "alice@example.com",
		RecipientName:  "Bob",
		RecipientEmail: "bob@example.com",
	}
}

func TestHistoryListAnnotatesDirection(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	now := time.Now()

	ledger := &fakeLedger{entries: []models.TransactionWithParties{
		ledgerEntry(alice, bob, "30.00", now),
		ledgerEntry(bob, alice, "12.50", now.Add(-time.Hour)),
	}}
	history := usecase.NewHistoryUsecase(ledger, zap.NewNop())

	page, err := history.List(context.Background(), alice, 1)
	require.NoError(t, err)
	require.Len(t, page.Data, 2)

	sent := page.Data[0]
	assert.Equal(t, usecase.DirectionSent, sent.Type)
	assert.Equal(t, "30.00", sent.Amount)
	assert.Equal(t, "Bob", sent.OtherParty)
	assert.Equal(t, "bob@example.com", sent.OtherPartyEmail)

	received := page.Data[1]
	assert.Equal(t, usecase.DirectionReceived, received.Type)
	assert.Equal(t, "12.50", received.Amount)
	// Counterparty of a received entry is its sender.
	assert.Equal(t, "Alice", received.OtherParty)
	assert.Equal(t, "alice@example.com", received.OtherPartyEmail)
}

func TestHistoryListPagination(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()

	ledger := &fakeLedger{}
	for i := 0; i < 31; i++ {
		ledger.entries = append(ledger.entries, ledgerEntry(alice, bob, "1.00", time.Now()))
	}
	history := usecase.NewHistoryUsecase(ledger, zap.NewNop())

	page, err := history.List(context.Background(), alice, 3)
	require.NoError(t, err)
	assert.Len(t, page.Data, 1)
	assert.Equal(t, 3, page.CurrentPage)
	assert.Equal(t, 3, page.LastPage)
	assert.Equal(t, 15, page.PerPage)
	assert.Equal(t, int64(31), page.Total)
}

func TestHistoryListEmpty(t *testing.T) {
	history := usecase.NewHistoryUsecase(&fakeLedger{}, zap.NewNop())

	page, err := history.List(context.Background(), uuid.New(), 1)
	require.NoError(t, err)
	assert.Empty(t, page.Data)
	assert.Equal(t, 1, page.LastPage)
	assert.Equal(t, int64(0), page.Total)
}

func TestHistoryListOwnershipIsolation(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	carol := uuid.New()

	ledger := &fakeLedger{entries: []models.TransactionWithParties{
		ledgerEntry(alice, bob, "30.00", time.Now()),
	}}
	history := usecase.NewHistoryUsecase(ledger, zap.NewNop())

	page, err := history.List(context.Background(), carol, 1)
	require.NoError(t, err)
	assert.Empty(t, page.Data)
}

func TestHistoryGetMergesNotFoundAndUnauthorized(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	carol := uuid.New()

	entry := ledgerEntry(alice, bob, "30.00", time.Now())
	ledger := &fakeLedger{entries: []models.TransactionWithParties{entry}}
	history := usecase.NewHistoryUsecase(ledger, zap.NewNop())

	// A party sees full detail.
	detail, err := history.Get(context.Background(), alice, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, usecase.DirectionSent, detail.Type)
	assert.Equal(t, "Alice", detail.Sender.Name)
	assert.Equal(t, "Bob", detail.Recipient.Name)
	assert.Equal(t, "completed", detail.Status)

	// A non-party gets exactly the error a missing entry produces.
	_, errForeign := history.Get(context.Background(), carol, entry.ID)
	_, errMissing := history.Get(context.Background(), alice, uuid.New())
	assert.ErrorIs(t, errForeign, usecase.ErrTransactionNotFound)
	assert.Equal(t, errMissing, errForeign)
}

func TestHistoryGetIsIdempotent(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()

	entry := ledgerEntry(alice, bob, "30.00", time.Now())
	ledger := &fakeLedger{entries: []models.TransactionWithParties{entry}}
	history := usecase.NewHistoryUsecase(ledger, zap.NewNop())

	first, err := history.Get(context.Background(), bob, entry.ID)
	require.NoError(t, err)
	second, err := history.Get(context.Background(), bob, entry.ID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
