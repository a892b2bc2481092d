package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionStatus is extensible but the engine settles synchronously,
// so only the completed value is ever written.
type TransactionStatus string

const StatusCompleted TransactionStatus = "completed"

// Transaction is one completed transfer in the append-only ledger.
// It is constructed fully populated, written once, and never mutated.
type Transaction struct {
	ID                uuid.UUID         `json:"uuid" db:"id"`
	SenderWalletID    uuid.UUID         `json:"sender_wallet_id" db:"sender_wallet_id"`
	RecipientWalletID uuid.UUID         `json:"recipient_wallet_id" db:"recipient_wallet_id"`
	Amount            decimal.Decimal   `json:"amount" db:"amount"`
	Status            TransactionStatus `json:"status" db:"status"`
	Description       *string           `json:"description" db:"description"`
	CreatedAt         time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at" db:"updated_at"`
}

// TransactionWithParties is a ledger entry joined with the owners of both
// wallets, produced by one batch query when listing or showing history.
type TransactionWithParties struct {
	Transaction
	SenderName     string `db:"sender_name"`
	SenderEmail    string `db:"sender_email"`
	RecipientName  string `db:"recipient_name"`
	RecipientEmail string `db:"recipient_email"`
}
