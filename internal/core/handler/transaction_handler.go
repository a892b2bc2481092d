package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/akimov/peerwallet/internal/core/auth"
	"github.com/akimov/peerwallet/internal/core/logger"
	"github.com/akimov/peerwallet/internal/core/repository"
	"github.com/akimov/peerwallet/internal/core/usecase"
)

type TransactionHandler struct {
	history usecase.HistoryUsecase
	wallets repository.WalletRepository
	log     logger.Logger
}

func NewTransactionHandler(history usecase.HistoryUsecase, wallets repository.WalletRepository, log logger.Logger) *TransactionHandler {
	return &TransactionHandler{history: history, wallets: wallets, log: log}
}

func (h *TransactionHandler) Index(w http.ResponseWriter, r *http.Request) {
	walletID, ok := h.callerWallet(w, r)
	if !ok {
		return
	}

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondWithMessage(w, http.StatusUnprocessableEntity, "The page must be a positive integer.")
			return
		}
		page = parsed
	}

	history, err := h.history.List(r.Context(), walletID, page)
	if err != nil {
		h.log.Error("Failed to list transactions",
			logger.StringField("wallet_id", walletID.String()),
			logger.ErrorField("error", err))
		respondWithMessage(w, http.StatusInternalServerError, "Failed to load transactions")
		return
	}

	respondWithJSON(w, http.StatusOK, history)
}

func (h *TransactionHandler) Show(w http.ResponseWriter, r *http.Request) {
	walletID, ok := h.callerWallet(w, r)
	if !ok {
		return
	}

	transactionID, err := uuid.Parse(mux.Vars(r)["uuid"])
	if err != nil {
		// Malformed ids get the same response as unknown ones.
		respondWithMessage(w, http.StatusNotFound, "Transaction not found or unauthorized access.")
		return
	}

	detail, err := h.history.Get(r.Context(), walletID, transactionID)
	if err != nil {
		if errors.Is(err, usecase.ErrTransactionNotFound) {
			respondWithMessage(w, http.StatusNotFound, "Transaction not found or unauthorized access.")
			return
		}
		h.log.Error("Failed to load transaction",
			logger.StringField("transaction_id", transactionID.String()),
			logger.ErrorField("error", err))
		respondWithMessage(w, http.StatusInternalServerError, "Failed to load transaction")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"data": detail})
}

// callerWallet resolves the authenticated caller to their wallet id.
func (h *TransactionHandler) callerWallet(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, authed := auth.UserIDFromContext(r.Context())
	if !authed {
		respondWithMessage(w, http.StatusUnauthorized, "Unauthenticated.")
		return uuid.Nil, false
	}

	wallet, err := h.wallets.GetByUserID(r.Context(), userID)
	if err != nil {
		h.log.Error("Wallet lookup failed",
			logger.StringField("user_id", userID.String()),
			logger.ErrorField("error", err))
		respondWithMessage(w, http.StatusInternalServerError, "Failed to resolve wallet")
		return uuid.Nil, false
	}

	return wallet.ID, true
}
