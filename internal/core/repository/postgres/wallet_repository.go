package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/akimov/peerwallet/internal/core/logger"
	"github.com/akimov/peerwallet/internal/core/models"
	"github.com/akimov/peerwallet/internal/core/repository"
	"github.com/akimov/peerwallet/internal/core/usecase"
)

const walletColumns = "id, user_id, balance, currency, created_at, updated_at"

type postgresWalletRepo struct {
	db  *sqlx.DB
	log logger.Logger
}

func NewPostgresWalletRepo(db *sqlx.DB, log logger.Logger) repository.WalletRepository {
	return &postgresWalletRepo{
		db:  db,
		log: log,
	}
}

func (r *postgresWalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`
	err := r.db.GetContext(ctx, &wallet, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %s", usecase.ErrWalletNotFound, id)
		}
		return nil, fmt.Errorf("error getting wallet: %w", err)
	}

	return &wallet, nil
}

func (r *postgresWalletRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1`
	err := r.db.GetContext(ctx, &wallet, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %s", usecase.ErrWalletNotFound, userID)
		}
		return nil, fmt.Errorf("error getting wallet by user: %w", err)
	}

	return &wallet, nil
}

func (r *postgresWalletRepo) Create(ctx context.Context, tx *sqlx.Tx, wallet *models.Wallet) error {
	const query = `INSERT INTO wallets (id, user_id, balance, currency)
        VALUES ($1, $2, $3, $4)`

	_, err := tx.ExecContext(ctx, query, wallet.ID, wallet.UserID, wallet.Balance, wallet.Currency)
	if err != nil {
		return fmt.Errorf("create wallet: %w", err)
	}
	return nil
}

// LockForUpdate blocks until the exclusive row lock is granted or the
// transaction's lock_timeout elapses. The returned balance is the
// authoritative one; balances read before locking may be stale.
func (r *postgresWalletRepo) LockForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1 FOR UPDATE`
	err := tx.GetContext(ctx, &wallet, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %s", usecase.ErrWalletNotFound, id)
		}
		return nil, fmt.Errorf("lock wallet: %w", translateLockError(err))
	}

	return &wallet, nil
}

func (r *postgresWalletRepo) AddToBalance(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	var newBalance decimal.Decimal
	updateQuery := `
        UPDATE wallets
        SET balance = balance + $1, updated_at = NOW()
        WHERE id = $2
        RETURNING balance
    `
	err := tx.GetContext(ctx, &newBalance, updateQuery, delta, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("%w: id %s", usecase.ErrWalletNotFound, id)
		}
		return decimal.Zero, fmt.Errorf("update balance: %w", err)
	}

	return newBalance, nil
}
