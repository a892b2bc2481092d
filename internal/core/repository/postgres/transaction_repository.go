package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/akimov/peerwallet/internal/core/logger"
	"github.com/akimov/peerwallet/internal/core/models"
	"github.com/akimov/peerwallet/internal/core/repository"
	"github.com/akimov/peerwallet/internal/core/usecase"
)

// historySelect joins both wallets and their owners in one batch query so
// listing never does per-row lookups. History reads take no locks.
const historySelect = `
    SELECT t.id, t.sender_wallet_id, t.recipient_wallet_id, t.amount,
           t.status, t.description, t.created_at, t.updated_at,
           su.name AS sender_name, su.email AS sender_email,
           ru.name AS recipient_name, ru.email AS recipient_email
    FROM transactions t
    JOIN wallets sw ON sw.id = t.sender_wallet_id
    JOIN users su ON su.id = sw.user_id
    JOIN wallets rw ON rw.id = t.recipient_wallet_id
    JOIN users ru ON ru.id = rw.user_id
`

type postgresTransactionRepo struct {
	db  *sqlx.DB
	log logger.Logger
}

func NewPostgresTransactionRepo(db *sqlx.DB, log logger.Logger) repository.TransactionRepository {
	return &postgresTransactionRepo{
		db:  db,
		log: log,
	}
}

// Create appends one ledger entry. The ledger is append-only: there is no
// update or delete path anywhere in this package.
func (r *postgresTransactionRepo) Create(ctx context.Context, tx *sqlx.Tx, txn *models.Transaction) error {
	const query = `INSERT INTO transactions
        (id, sender_wallet_id, recipient_wallet_id, amount, status, description)
        VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := tx.ExecContext(ctx, query,
		txn.ID,
		txn.SenderWalletID,
		txn.RecipientWalletID,
		txn.Amount,
		txn.Status,
		txn.Description,
	)

	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}

	return nil
}

func (r *postgresTransactionRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]models.TransactionWithParties, int64, error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM transactions t
        WHERE t.sender_wallet_id = $1 OR t.recipient_wallet_id = $1`
	if err := r.db.GetContext(ctx, &total, countQuery, walletID); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	query := historySelect + `
        WHERE t.sender_wallet_id = $1 OR t.recipient_wallet_id = $1
        ORDER BY t.created_at DESC
        LIMIT $2 OFFSET $3`

	txns := []models.TransactionWithParties{}
	if err := r.db.SelectContext(ctx, &txns, query, walletID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}

	return txns, total, nil
}

// GetByIDForWallet returns the entry only when the wallet is its sender
// or recipient. A miss and a foreign entry are the same error, so the
// response never confirms that someone else's transaction exists.
func (r *postgresTransactionRepo) GetByIDForWallet(ctx context.Context, id, walletID uuid.UUID) (*models.TransactionWithParties, error) {
	query := historySelect + `
        WHERE t.id = $1 AND (t.sender_wallet_id = $2 OR t.recipient_wallet_id = $2)`

	var txn models.TransactionWithParties
	err := r.db.GetContext(ctx, &txn, query, id, walletID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, usecase.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}

	return &txn, nil
}
