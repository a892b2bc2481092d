package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/akimov/peerwallet/internal/core/logger"
	"github.com/akimov/peerwallet/internal/core/models"
	"github.com/akimov/peerwallet/internal/core/repository"
)

const historyPerPage = 15

const (
	DirectionSent     = "sent"
	DirectionReceived = "received"
)

// HistoryItem is one ledger entry as seen from the queried wallet:
// direction-annotated, with the counterparty's identity.
type HistoryItem struct {
	UUID            uuid.UUID `json:"uuid"`
	Type            string    `json:"type"`
	Amount          string    `json:"amount"`
	OtherParty      string    `json:"other_party"`
	OtherPartyEmail string    `json:"other_party_email"`
	Description     *string   `json:"description"`
	Status          string    `json:"status"`
	CreatedAt       string    `json:"created_at"`
}

type HistoryPage struct {
	Data        []HistoryItem `json:"data"`
	CurrentPage int           `json:"current_page"`
	LastPage    int           `json:"last_page"`
	PerPage     int           `json:"per_page"`
	Total       int64         `json:"total"`
}

type TransactionParty struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type TransactionDetail struct {
	UUID        uuid.UUID        `json:"uuid"`
	Type        string           `json:"type"`
	Amount      string           `json:"amount"`
	Sender      TransactionParty `json:"sender"`
	Recipient   TransactionParty `json:"recipient"`
	Description *string          `json:"description"`
	Status      string           `json:"status"`
	CreatedAt   string           `json:"created_at"`
	UpdatedAt   string           `json:"updated_at"`
}

// HistoryUsecase reads the ledger without taking any locks; it never
// observes balances, only completed entries.
type HistoryUsecase interface {
	List(ctx context.Context, walletID uuid.UUID, page int) (*HistoryPage, error)
	Get(ctx context.Context, walletID, transactionID uuid.UUID) (*TransactionDetail, error)
}

type historyUsecase struct {
	txns repository.TransactionRepository
	log  logger.Logger
}

func NewHistoryUsecase(txns repository.TransactionRepository, log logger.Logger) HistoryUsecase {
	return &historyUsecase{txns: txns, log: log}
}

func (uc *historyUsecase) List(ctx context.Context, walletID uuid.UUID, page int) (*HistoryPage, error) {
	if page < 1 {
		page = 1
	}

	offset := (page - 1) * historyPerPage
	txns, total, err := uc.txns.ListByWallet(ctx, walletID, historyPerPage, offset)
	if err != nil {
		uc.log.Error("History listing failed",
			logger.StringField("wallet_id", walletID.String()),
			logger.ErrorField("error", err))
		return nil, err
	}

	items := make([]HistoryItem, 0, len(txns))
	for _, txn := range txns {
		items = append(items, uc.toHistoryItem(&txn, walletID))
	}

	lastPage := int((total + historyPerPage - 1) / historyPerPage)
	if lastPage < 1 {
		lastPage = 1
	}

	return &HistoryPage{
		Data:        items,
		CurrentPage: page,
		LastPage:    lastPage,
		PerPage:     historyPerPage,
		Total:       total,
	}, nil
}

func (uc *historyUsecase) Get(ctx context.Context, walletID, transactionID uuid.UUID) (*TransactionDetail, error) {
	txn, err := uc.txns.GetByIDForWallet(ctx, transactionID, walletID)
	if err != nil {
		return nil, err
	}

	return &TransactionDetail{
		UUID:   txn.ID,
		Type:   uc.direction(&txn.Transaction, walletID),
		Amount: txn.Amount.StringFixed(2),
		Sender: TransactionParty{
			Name:  txn.SenderName,
			Email: txn.SenderEmail,
		},
		Recipient: TransactionParty{
			Name:  txn.RecipientName,
			Email: txn.RecipientEmail,
		},
		Description: txn.Description,
		Status:      string(txn.Status),
		CreatedAt:   txn.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   txn.UpdatedAt.Format(time.RFC3339),
	}, nil
}

func (uc *historyUsecase) toHistoryItem(txn *models.TransactionWithParties, walletID uuid.UUID) HistoryItem {
	item := HistoryItem{
		UUID:        txn.ID,
		Type:        uc.direction(&txn.Transaction, walletID),
		Amount:      txn.Amount.StringFixed(2),
		Description: txn.Description,
		Status:      string(txn.Status),
		CreatedAt:   txn.CreatedAt.Format(time.RFC3339),
	}

	if item.Type == DirectionSent {
		item.OtherParty = txn.RecipientName
		item.OtherPartyEmail = txn.RecipientEmail
	} else {
		item.OtherParty = txn.SenderName
		item.OtherPartyEmail = txn.SenderEmail
	}

	return item
}

func (uc *historyUsecase) direction(txn *models.Transaction, walletID uuid.UUID) string {
	if txn.SenderWalletID == walletID {
		return DirectionSent
	}
	return DirectionReceived
}
