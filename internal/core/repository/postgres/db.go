package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/akimov/peerwallet/internal/core/logger"
	"github.com/akimov/peerwallet/internal/core/repository"
	"github.com/akimov/peerwallet/internal/core/usecase"
)

const (
	pqLockNotAvailable = "55P03"
	pqDeadlockDetected = "40P01"
)

type txRunner struct {
	db       *sqlx.DB
	log      logger.Logger
	lockWait time.Duration
}

// NewTxRunner builds the unit-of-work handle. lockWait bounds row-lock
// acquisition inside each transaction; zero disables the bound.
func NewTxRunner(db *sqlx.DB, log logger.Logger, lockWait time.Duration) repository.TxRunner {
	return &txRunner{db: db, log: log, lockWait: lockWait}
}

func (r *txRunner) WithinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		r.log.Error("Error beginning transaction", logger.ErrorField("error", err))
		return fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.log.Error("Rollback after panic failed", logger.ErrorField("error", rbErr))
			}
			panic(p)
		}
		if err != nil && !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.log.Error("Transaction rollback failed", logger.ErrorField("error", rbErr))
				err = fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
			} else {
				r.log.Warn("Transaction rolled back", logger.ErrorField("error", err))
			}
		}
	}()

	if r.lockWait > 0 {
		// SET LOCAL scopes the bound to this transaction only.
		setLock := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockWait.Milliseconds())
		if _, err = tx.ExecContext(ctx, setLock); err != nil {
			return fmt.Errorf("set lock timeout: %w", err)
		}
	}

	if err = fn(tx); err != nil {
		return translateLockError(err)
	}

	if err = tx.Commit(); err != nil {
		r.log.Error("Error committing transaction", logger.ErrorField("error", err))
		return fmt.Errorf("commit failed: %w", translateLockError(err))
	}

	committed = true
	return nil
}

// translateLockError maps the Postgres lock-wait and deadlock conditions
// to the transient, retry-eligible error. Deadlocks should not occur
// under the fixed lock ordering, but a victim abort is handled the same
// way since the caller contract (retry safely) is identical.
func translateLockError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqLockNotAvailable, pqDeadlockDetected:
			return fmt.Errorf("%w: %v", usecase.ErrLockTimeout, err)
		}
	}
	return err
}
