package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/akimov/peerwallet/internal/core/auth"
	"github.com/akimov/peerwallet/internal/core/models"
	"github.com/akimov/peerwallet/internal/core/usecase"
)

type stubTransferUsecase struct {
	sendToUser func(ctx context.Context, senderUserID, recipientUserID uuid.UUID, amount decimal.Decimal, description *string) (*usecase.TransferResult, error)
}

func (s *stubTransferUsecase) Transfer(ctx context.Context, senderWalletID, recipientWalletID uuid.UUID, amount decimal.Decimal, description *string) (*models.Transaction, decimal.Decimal, error) {
	panic("handler goes through SendToUser")
}

func (s *stubTransferUsecase) SendToUser(ctx context.Context, senderUserID, recipientUserID uuid.UUID, amount decimal.Decimal, description *string) (*usecase.TransferResult, error) {
	return s.sendToUser(ctx, senderUserID, recipientUserID, amount, description)
}

func doTransfer(t *testing.T, stub *stubTransferUsecase, userID uuid.UUID, body string) *httptest.ResponseRecorder {
	t.Helper()

	h := NewTransferHandler(stub, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/transfers", strings.NewReader(body))
	if userID != uuid.Nil {
		req = req.WithContext(auth.ContextWithUserID(req.Context(), userID))
	}
	rec := httptest.NewRecorder()
	h.Store(rec, req)
	return rec
}

func TestTransferStoreSuccess(t *testing.T) {
	sender := uuid.New()
	recipient := uuid.New()
	txnID := uuid.New()

	stub := &stubTransferUsecase{
		sendToUser: func(ctx context.Context, senderUserID, recipientUserID uuid.UUID, amount decimal.Decimal, description *string) (*usecase.TransferResult, error) {
			assert.Equal(t, sender, senderUserID)
			assert.Equal(t, recipient, recipientUserID)
			assert.True(t, amount.Equal(decimal.RequireFromString("30.00")))
			require.NotNil(t, description)
			assert.Equal(t, "lunch", *description)

			return &usecase.TransferResult{
				Transaction: &models.Transaction{
					ID:          txnID,
					Amount:      amount,
					Status:      models.StatusCompleted,
					Description: description,
				},
				NewBalance:    decimal.RequireFromString("70.00"),
				RecipientName: "Bob",
			}, nil
		},
	}

	body := `{"recipient_id":"` + recipient.String() + `","amount":30.00,"description":"lunch"}`
	rec := doTransfer(t, stub, sender, body)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Message     string `json:"message"`
		Transaction struct {
			UUID      string `json:"uuid"`
			Amount    string `json:"amount"`
			Recipient string `json:"recipient"`
		} `json:"transaction"`
		NewBalance string `json:"new_balance"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Transfer completed successfully", resp.Message)
	assert.Equal(t, txnID.String(), resp.Transaction.UUID)
	assert.Equal(t, "30.00", resp.Transaction.Amount)
	assert.Equal(t, "Bob", resp.Transaction.Recipient)
	assert.Equal(t, "70.00", resp.NewBalance)
}

func TestTransferStoreAmountAsString(t *testing.T) {
	recipient := uuid.New()

	var seen decimal.Decimal
	stub := &stubTransferUsecase{
		sendToUser: func(ctx context.Context, _, _ uuid.UUID, amount decimal.Decimal, _ *string) (*usecase.TransferResult, error) {
			seen = amount
			return &usecase.TransferResult{
				Transaction: &models.Transaction{ID: uuid.New(), Amount: amount, Status: models.StatusCompleted},
				NewBalance:  decimal.Zero,
			}, nil
		},
	}

	body := `{"recipient_id":"` + recipient.String() + `","amount":"12,50"}`
	rec := doTransfer(t, stub, uuid.New(), body)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, seen.Equal(decimal.RequireFromString("12.50")))
}

func TestTransferStoreErrorMapping(t *testing.T) {
	recipient := uuid.New()

	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "insufficient funds",
			err:         &usecase.InsufficientFundsError{Balance: decimal.RequireFromString("10.00"), Requested: decimal.RequireFromString("15.00")},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Insufficient funds. Your balance is €10.00, but you tried to send €15.00.",
		},
		{
			name:        "self transfer",
			err:         usecase.ErrSelfTransfer,
			wantStatus:  http.StatusUnprocessableEntity,
			wantMessage: "You cannot transfer money to yourself.",
		},
		{
			name:        "recipient not found",
			err:         usecase.ErrRecipientNotFound,
			wantStatus:  http.StatusNotFound,
			wantMessage: "Recipient not found.",
		},
		{
			name:        "lock timeout",
			err:         usecase.ErrLockTimeout,
			wantStatus:  http.StatusServiceUnavailable,
			wantMessage: "Transfer could not be processed right now, please retry.",
		},
		{
			name:        "storage failure",
			err:         assert.AnError,
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Failed to process transfer",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubTransferUsecase{
				sendToUser: func(ctx context.Context, _, _ uuid.UUID, _ decimal.Decimal, _ *string) (*usecase.TransferResult, error) {
					return nil, tc.err
				},
			}

			body := `{"recipient_id":"` + recipient.String() + `","amount":1}`
			rec := doTransfer(t, stub, uuid.New(), body)

			assert.Equal(t, tc.wantStatus, rec.Code)

			var resp map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tc.wantMessage, resp["message"])
		})
	}
}

func TestTransferStoreRejectsBadInput(t *testing.T) {
	recipient := uuid.New()

	stub := &stubTransferUsecase{
		sendToUser: func(ctx context.Context, _, _ uuid.UUID, _ decimal.Decimal, _ *string) (*usecase.TransferResult, error) {
			t.Fatal("usecase must not be called on invalid input")
			return nil, nil
		},
	}

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"malformed json", `{`, http.StatusBadRequest},
		{"missing recipient", `{"amount":1}`, http.StatusUnprocessableEntity},
		{"non-numeric amount", `{"recipient_id":"` + recipient.String() + `","amount":"abc"}`, http.StatusUnprocessableEntity},
		{"zero amount", `{"recipient_id":"` + recipient.String() + `","amount":0}`, http.StatusUnprocessableEntity},
		{"negative amount", `{"recipient_id":"` + recipient.String() + `","amount":-5}`, http.StatusUnprocessableEntity},
		{"too many decimals", `{"recipient_id":"` + recipient.String() + `","amount":"1.005"}`, http.StatusUnprocessableEntity},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doTransfer(t, stub, uuid.New(), tc.body)
			assert.Equal(t, tc.wantStatus, rec.Code)
		})
	}
}

func TestTransferStoreUnauthenticated(t *testing.T) {
	stub := &stubTransferUsecase{
		sendToUser: func(ctx context.Context, _, _ uuid.UUID, _ decimal.Decimal, _ *string) (*usecase.TransferResult, error) {
			t.Fatal("usecase must not be called without a caller")
			return nil, nil
		},
	}

	rec := doTransfer(t, stub, uuid.Nil, `{"amount":1}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
