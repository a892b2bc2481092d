package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/akimov/peerwallet/internal/core/logger"
	"github.com/akimov/peerwallet/internal/core/models"
	"github.com/akimov/peerwallet/internal/core/repository"
	"github.com/akimov/peerwallet/internal/core/usecase"
)

const pqUniqueViolation = "23505"

const userColumns = "id, name, email, password_hash, created_at, updated_at"

type postgresUserRepo struct {
	db  *sqlx.DB
	log logger.Logger
}

func NewPostgresUserRepo(db *sqlx.DB, log logger.Logger) repository.UserRepository {
	return &postgresUserRepo{
		db:  db,
		log: log,
	}
}

func (r *postgresUserRepo) Create(ctx context.Context, tx *sqlx.Tx, user *models.User) error {
	const query = `INSERT INTO users (id, name, email, password_hash)
        VALUES ($1, $2, $3, $4)`

	_, err := tx.ExecContext(ctx, query, user.ID, user.Name, user.Email, user.PasswordHash)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return fmt.Errorf("%w: %s", usecase.ErrEmailTaken, user.Email)
		}
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

func (r *postgresUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %s", usecase.ErrUserNotFound, id)
		}
		return nil, fmt.Errorf("error getting user: %w", err)
	}

	return &user, nil
}

func (r *postgresUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	err := r.db.GetContext(ctx, &user, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: email %s", usecase.ErrUserNotFound, email)
		}
		return nil, fmt.Errorf("error getting user by email: %w", err)
	}

	return &user, nil
}
