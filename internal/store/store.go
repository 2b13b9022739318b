// Package store defines the persistence boundary of the bank engine.
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledger/internal/model"
)

var (
	// ErrDuplicate is returned by CreateAccount when the account number is taken.
	ErrDuplicate = errors.New("account already exists")

	// ErrNotFound is returned when an operation targets a missing account.
	ErrNotFound = errors.New("account not found")
)

// DefaultInterestRate seeds system configuration on first InitSchema.
var DefaultInterestRate = decimal.RequireFromString("2.5")

// TransferLeg is one side of a transfer: the account's new balance and the
// transaction that produced it.
type TransferLeg struct {
	AccountNumber string
	Balance       decimal.Decimal
	Transaction   model.Transaction
}

// Gateway is everything the engine needs from durable storage. Implementations
// must be safe for concurrent use.
type Gateway interface {
	InitSchema(ctx context.Context) error

	LoadAllAccounts(ctx context.Context) (map[string]model.Account, error)
	// LoadTransactions returns an account's transactions newest first.
	LoadTransactions(ctx context.Context, accountNumber string) ([]model.Transaction, error)

	// CreateAccount stores the account with its opening transaction, or
	// returns ErrDuplicate.
	CreateAccount(ctx context.Context, acct model.Account, initial model.Transaction) error
	// UpdateAccountState writes name, balance, failed attempts and lock state.
	UpdateAccountState(ctx context.Context, acct model.Account) error
	UpdatePassword(ctx context.Context, accountNumber, hash string) error
	SaveTransaction(ctx context.Context, accountNumber string, txn model.Transaction) error
	// ExecuteTransfer updates both balances and inserts both transactions, or
	// changes nothing.
	ExecuteTransfer(ctx context.Context, from, to TransferLeg) error
	// DeleteAccount removes an account and all of its transactions.
	DeleteAccount(ctx context.Context, accountNumber string) error

	LogAdminAction(ctx context.Context, entry model.AuditEntry) error
	// AuditLog returns audit entries newest first.
	AuditLog(ctx context.Context) ([]model.AuditEntry, error)

	InterestRate(ctx context.Context) (decimal.Decimal, error)
	SetInterestRate(ctx context.Context, rate decimal.Decimal) error

	// WithTx runs fn against a gateway whose writes commit together when fn
	// returns nil and are discarded otherwise.
	WithTx(ctx context.Context, fn func(Gateway) error) error
}

// Reverse reverses s in place and returns it.
func Reverse[T any](s []T) []T {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
	return s
}
