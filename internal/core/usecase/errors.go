package usecase

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrSelfTransfer       = errors.New("cannot transfer money to yourself")
	ErrWalletNotFound     = errors.New("wallet not found")
	ErrRecipientNotFound  = errors.New("recipient not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("the provided credentials are incorrect")
	ErrInsufficientFunds  = errors.New("insufficient funds")

	// ErrLockTimeout is transient: the wallet row lock was not acquired
	// within the configured wait bound and the caller may retry.
	ErrLockTimeout = errors.New("wallet lock wait timed out")

	// ErrTransactionNotFound covers both a missing ledger entry and an
	// entry the caller is not party to, so a lookup never confirms the
	// existence of someone else's transaction.
	ErrTransactionNotFound = errors.New("transaction not found or unauthorized access")
)

// InsufficientFundsError carries the sender's own balance and the
// requested amount for the client-facing message. The counterparty's
// balance is never disclosed.
type InsufficientFundsError struct {
	Balance   decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("Insufficient funds. Your balance is €%s, but you tried to send €%s.",
		e.Balance.StringFixed(2), e.Requested.StringFixed(2))
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }
