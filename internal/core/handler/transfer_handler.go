package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/akimov/peerwallet/internal/core/auth"
	"github.com/akimov/peerwallet/internal/core/logger"
	"github.com/akimov/peerwallet/internal/core/usecase"
)

const maxDescriptionLength = 255

var amountRegexp = regexp.MustCompile(`^\s*\d{1,12}([.,]\d{1,2})?\s*$`)

type TransferHandler struct {
	usecase usecase.TransferUsecase
	log     logger.Logger
}

func NewTransferHandler(usecase usecase.TransferUsecase, log logger.Logger) *TransferHandler {
	return &TransferHandler{usecase: usecase, log: log}
}

// amountString accepts the amount both as a JSON number and as a string,
// keeping the raw text so the decimal parse is exact.
type amountString string

func (a *amountString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = amountString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*a = amountString(n.String())
	return nil
}

type transferRequest struct {
	RecipientID uuid.UUID    `json:"recipient_id"`
	Amount      amountString `json:"amount"`
	Description *string      `json:"description"`
}

func (h *TransferHandler) Store(w http.ResponseWriter, r *http.Request) {
	senderID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respondWithMessage(w, http.StatusUnauthorized, "Unauthenticated.")
		return
	}

	var req transferRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Warn("Failed to decode transfer request", logger.ErrorField("error", err))
		respondWithMessage(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if req.RecipientID == uuid.Nil {
		respondWithMessage(w, http.StatusUnprocessableEntity, "The recipient_id field is required.")
		return
	}

	amount, err := parseAmount(string(req.Amount))
	if err != nil {
		h.log.Warn("Invalid transfer amount",
			logger.StringField("amount", string(req.Amount)),
			logger.ErrorField("error", err))
		respondWithMessage(w, http.StatusUnprocessableEntity, "The amount must be a number of at least 0.01.")
		return
	}

	if req.Description != nil && len(*req.Description) > maxDescriptionLength {
		respondWithMessage(w, http.StatusUnprocessableEntity, "The description may not be greater than 255 characters.")
		return
	}

	result, err := h.usecase.SendToUser(r.Context(), senderID, req.RecipientID, amount, req.Description)
	if err != nil {
		h.handleTransferError(w, senderID, amount, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"message": "Transfer completed successfully",
		"transaction": map[string]any{
			"uuid":        result.Transaction.ID.String(),
			"amount":      result.Transaction.Amount.StringFixed(2),
			"recipient":   result.RecipientName,
			"description": result.Transaction.Description,
		},
		"new_balance": result.NewBalance.StringFixed(2),
	})
}

func (h *TransferHandler) handleTransferError(w http.ResponseWriter, senderID uuid.UUID, amount decimal.Decimal, err error) {
	var insufficient *usecase.InsufficientFundsError

	switch {
	case errors.Is(err, usecase.ErrSelfTransfer):
		respondWithMessage(w, http.StatusUnprocessableEntity, "You cannot transfer money to yourself.")
	case errors.Is(err, usecase.ErrInvalidAmount):
		respondWithMessage(w, http.StatusUnprocessableEntity, "The amount must be a number of at least 0.01.")
	case errors.Is(err, usecase.ErrRecipientNotFound):
		respondWithMessage(w, http.StatusNotFound, "Recipient not found.")
	case errors.As(err, &insufficient):
		respondWithMessage(w, http.StatusBadRequest, insufficient.Error())
	case errors.Is(err, usecase.ErrInsufficientFunds):
		respondWithMessage(w, http.StatusBadRequest, "Insufficient funds.")
	case errors.Is(err, usecase.ErrLockTimeout):
		h.log.Warn("Transfer lock timeout",
			logger.StringField("sender_user_id", senderID.String()),
			logger.StringField("amount", amount.StringFixed(2)))
		respondWithMessage(w, http.StatusServiceUnavailable, "Transfer could not be processed right now, please retry.")
	case errors.Is(err, usecase.ErrWalletNotFound):
		respondWithMessage(w, http.StatusNotFound, "Wallet not found.")
	default:
		h.log.Error("Failed to process transfer",
			logger.StringField("sender_user_id", senderID.String()),
			logger.StringField("amount", amount.StringFixed(2)),
			logger.ErrorField("error", err))
		respondWithMessage(w, http.StatusInternalServerError, "Failed to process transfer")
	}
}

func parseAmount(amountStr string) (decimal.Decimal, error) {
	cleaned := strings.ReplaceAll(strings.ReplaceAll(amountStr, " ", ""), ",", ".")

	if !amountRegexp.MatchString(cleaned) {
		return decimal.Zero, fmt.Errorf("invalid amount format: %s", cleaned)
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("could not parse amount: %v", err)
	}

	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("amount must be positive")
	}

	return amount, nil
}
