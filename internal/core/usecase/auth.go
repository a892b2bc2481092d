package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/akimov/peerwallet/internal/core/auth"
	"github.com/akimov/peerwallet/internal/core/logger"
	"github.com/akimov/peerwallet/internal/core/models"
	"github.com/akimov/peerwallet/internal/core/repository"
)

const defaultCurrency = "EUR"

type AuthUsecase interface {
	// Register creates the user and provisions their wallet in one unit
	// of work. Every user has exactly one wallet from the moment the
	// account exists.
	Register(ctx context.Context, name, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, *models.User, error)
}

type authUsecase struct {
	txRunner repository.TxRunner
	users    repository.UserRepository
	wallets  repository.WalletRepository
	log      logger.Logger

	jwtSecret string
	tokenTTL  time.Duration
}

func NewAuthUsecase(
	txRunner repository.TxRunner,
	users repository.UserRepository,
	wallets repository.WalletRepository,
	log logger.Logger,
	jwtSecret string,
	tokenTTL time.Duration,
) AuthUsecase {
	return &authUsecase{
		txRunner:  txRunner,
		users:     users,
		wallets:   wallets,
		log:       log,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
	}
}

func (uc *authUsecase) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
	}

	err = uc.txRunner.WithinTx(ctx, func(tx *sqlx.Tx) error {
		if err := uc.users.Create(ctx, tx, user); err != nil {
			return err
		}

		wallet := &models.Wallet{
			ID:       uuid.New(),
			UserID:   user.ID,
			Balance:  decimal.Zero,
			Currency: defaultCurrency,
		}
		return uc.wallets.Create(ctx, tx, wallet)
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info("User registered",
		logger.StringField("user_id", user.ID.String()),
		logger.StringField("email", user.Email))

	return user, nil
}

func (uc *authUsecase) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := uc.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		uc.log.Warn("Login failed", logger.StringField("email", email))
		return "", nil, ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(user.ID, user.Email, uc.jwtSecret, uc.tokenTTL)
	if err != nil {
		return "", nil, err
	}

	return token, user, nil
}
