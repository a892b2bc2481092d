package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/akimov/peerwallet/internal/core/models"
)

// TxRunner is the explicit unit-of-work handle: fn runs inside one
// database transaction that is committed on a nil return and rolled back
// on every other exit path, including panics.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

type WalletRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	Create(ctx context.Context, tx *sqlx.Tx, wallet *models.Wallet) error

	// LockForUpdate reads the wallet row under an exclusive lock. Valid
	// only inside an open unit of work; blocks until the lock is granted
	// or the lock-wait bound elapses.
	LockForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*models.Wallet, error)

	// AddToBalance applies a signed delta and returns the new balance.
	// The caller must hold the row lock taken by LockForUpdate.
	AddToBalance(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)
}

type TransactionRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, txn *models.Transaction) error
	ListByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]models.TransactionWithParties, int64, error)
	GetByIDForWallet(ctx context.Context, id, walletID uuid.UUID) (*models.TransactionWithParties, error)
}

type UserRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}
