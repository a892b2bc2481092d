package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/akimov/peerwallet/internal/core/logger"
	"github.com/akimov/peerwallet/internal/core/models"
	"github.com/akimov/peerwallet/internal/core/repository"
)

// TransferResult carries everything the boundary renders after a
// successful transfer: the ledger entry, the sender's post-transfer
// balance and the recipient's display name.
type TransferResult struct {
	Transaction   *models.Transaction
	NewBalance    decimal.Decimal
	RecipientName string
}

type TransferUsecase interface {
	// Transfer moves amount between two wallets inside one unit of work
	// and appends the ledger entry. Both balance mutations and the entry
	// are committed together or not at all.
	Transfer(ctx context.Context, senderWalletID, recipientWalletID uuid.UUID, amount decimal.Decimal, description *string) (*models.Transaction, decimal.Decimal, error)

	// SendToUser resolves both users' wallets and runs Transfer.
	SendToUser(ctx context.Context, senderUserID, recipientUserID uuid.UUID, amount decimal.Decimal, description *string) (*TransferResult, error)
}

type transferUsecase struct {
	txRunner repository.TxRunner
	wallets  repository.WalletRepository
	txns     repository.TransactionRepository
	users    repository.UserRepository
	log      logger.Logger
}

func NewTransferUsecase(
	txRunner repository.TxRunner,
	wallets repository.WalletRepository,
	txns repository.TransactionRepository,
	users repository.UserRepository,
	log logger.Logger,
) TransferUsecase {
	return &transferUsecase{
		txRunner: txRunner,
		wallets:  wallets,
		txns:     txns,
		users:    users,
		log:      log,
	}
}

func (uc *transferUsecase) SendToUser(ctx context.Context, senderUserID, recipientUserID uuid.UUID, amount decimal.Decimal, description *string) (*TransferResult, error) {
	if senderUserID == recipientUserID {
		return nil, ErrSelfTransfer
	}

	recipient, err := uc.users.GetByID(ctx, recipientUserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			uc.log.Warn("Recipient not found",
				logger.StringField("recipient_user_id", recipientUserID.String()))
			return nil, fmt.Errorf("%w: user %s", ErrRecipientNotFound, recipientUserID)
		}
		return nil, err
	}

	senderWallet, err := uc.wallets.GetByUserID(ctx, senderUserID)
	if err != nil {
		return nil, fmt.Errorf("sender wallet: %w", err)
	}

	recipientWallet, err := uc.wallets.GetByUserID(ctx, recipientUserID)
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			return nil, fmt.Errorf("%w: user %s has no wallet", ErrRecipientNotFound, recipientUserID)
		}
		return nil, err
	}

	txn, newBalance, err := uc.Transfer(ctx, senderWallet.ID, recipientWallet.ID, amount, description)
	if err != nil {
		return nil, err
	}

	return &TransferResult{
		Transaction:   txn,
		NewBalance:    newBalance,
		RecipientName: recipient.Name,
	}, nil
}

func (uc *transferUsecase) Transfer(ctx context.Context, senderWalletID, recipientWalletID uuid.UUID, amount decimal.Decimal, description *string) (*models.Transaction, decimal.Decimal, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, decimal.Zero, ErrInvalidAmount
	}
	if senderWalletID == recipientWalletID {
		return nil, decimal.Zero, ErrSelfTransfer
	}

	uc.log.Info("Starting transfer",
		logger.StringField("sender_wallet_id", senderWalletID.String()),
		logger.StringField("recipient_wallet_id", recipientWalletID.String()),
		logger.StringField("amount", amount.StringFixed(2)))

	var (
		txn        *models.Transaction
		newBalance decimal.Decimal
	)

	err := uc.txRunner.WithinTx(ctx, func(tx *sqlx.Tx) error {
		locked, err := uc.lockWalletsInOrder(ctx, tx, senderWalletID, recipientWalletID)
		if err != nil {
			return err
		}

		// Balances read before the locks may be stale; only the locked
		// rows are authoritative.
		sender := locked[senderWalletID]

		if sender.Balance.LessThan(amount) {
			uc.log.Warn("Insufficient funds",
				logger.StringField("sender_wallet_id", senderWalletID.String()),
				logger.StringField("balance", sender.Balance.StringFixed(2)),
				logger.StringField("requested", amount.StringFixed(2)))
			return &InsufficientFundsError{Balance: sender.Balance, Requested: amount}
		}

		newBalance, err = uc.wallets.AddToBalance(ctx, tx, senderWalletID, amount.Neg())
		if err != nil {
			return fmt.Errorf("debit sender: %w", err)
		}

		if _, err = uc.wallets.AddToBalance(ctx, tx, recipientWalletID, amount); err != nil {
			return fmt.Errorf("credit recipient: %w", err)
		}

		txn = &models.Transaction{
			ID:                uuid.New(),
			SenderWalletID:    senderWalletID,
			RecipientWalletID: recipientWalletID,
			Amount:            amount,
			Status:            models.StatusCompleted,
			Description:       description,
		}

		if err = uc.txns.Create(ctx, tx, txn); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return nil, decimal.Zero, err
	}

	uc.log.Info("Transfer completed",
		logger.StringField("transaction_id", txn.ID.String()),
		logger.StringField("amount", amount.StringFixed(2)),
		logger.StringField("new_balance", newBalance.StringFixed(2)))

	return txn, newBalance, nil
}

// lockWalletsInOrder acquires both row locks in ascending wallet-id byte
// order, never by sender/recipient role. Two concurrent transfers between
// the same pair in opposite directions therefore request the locks in the
// same global order, which rules out circular waits.
func (uc *transferUsecase) lockWalletsInOrder(ctx context.Context, tx *sqlx.Tx, senderID, recipientID uuid.UUID) (map[uuid.UUID]*models.Wallet, error) {
	first, second := senderID, recipientID
	if bytes.Compare(second[:], first[:]) < 0 {
		first, second = second, first
	}

	locked := make(map[uuid.UUID]*models.Wallet, 2)
	for _, id := range []uuid.UUID{first, second} {
		wallet, err := uc.wallets.LockForUpdate(ctx, tx, id)
		if err != nil {
			return nil, fmt.Errorf("lock wallet %s: %w", id, err)
		}
		locked[id] = wallet
	}

	return locked, nil
}
