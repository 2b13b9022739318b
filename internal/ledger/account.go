// Package ledger holds the in-memory state of a single account and the
// primitives that move its balance. Nothing here touches storage.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledger/internal/model"
)

// MaxFailedAttempts is the number of consecutive failed logins that locks an account.
const MaxFailedAttempts = 3

// Account is one account plus its chronological transaction log.
type Account struct {
	model.Account
	Transactions []model.Transaction
}

// New returns an account whose log holds a single Initial Deposit of balance.
func New(rec model.Account, at time.Time) *Account {
	a := &Account{Account: rec}
	a.Transactions = []model.Transaction{{
		Timestamp: at,
		Kind:      model.KindInitialDeposit,
		Amount:    rec.Balance,
		Balance:   rec.Balance,
	}}
	return a
}

// Record returns the persisted fields of the account.
func (a *Account) Record() model.Account {
	return a.Account
}

// Deposit adds amount and appends a Deposit transaction.
func (a *Account) Deposit(amount decimal.Decimal, at time.Time) (model.Transaction, error) {
	return a.credit(model.KindDeposit, amount, at)
}

// CreditInterest adds amount and appends a Credit Interest transaction.
func (a *Account) CreditInterest(amount decimal.Decimal, at time.Time) (model.Transaction, error) {
	return a.credit(model.KindCreditInterest, amount, at)
}

// TransferIn adds amount and appends a Transfer In transaction.
func (a *Account) TransferIn(amount decimal.Decimal, at time.Time) (model.Transaction, error) {
	return a.credit(model.KindTransferIn, amount, at)
}

// Withdraw removes amount and appends a Withdrawal transaction.
func (a *Account) Withdraw(amount decimal.Decimal, at time.Time) (model.Transaction, error) {
	return a.debit(model.KindWithdrawal, amount, at)
}

// TransferOut removes amount and appends a Transfer Out transaction.
func (a *Account) TransferOut(amount decimal.Decimal, at time.Time) (model.Transaction, error) {
	return a.debit(model.KindTransferOut, amount, at)
}

func (a *Account) credit(kind model.Kind, amount decimal.Decimal, at time.Time) (model.Transaction, error) {
	if !amount.IsPositive() {
		return model.Transaction{}, ErrNonPositiveAmount
	}
	a.Balance = a.Balance.Add(amount)
	return a.append(kind, amount, at), nil
}

func (a *Account) debit(kind model.Kind, amount decimal.Decimal, at time.Time) (model.Transaction, error) {
	if !amount.IsPositive() {
		return model.Transaction{}, ErrNonPositiveAmount
	}
	if amount.GreaterThan(a.Balance) {
		return model.Transaction{}, ErrInsufficientBalance
	}
	a.Balance = a.Balance.Sub(amount)
	return a.append(kind, amount, at), nil
}

func (a *Account) append(kind model.Kind, amount decimal.Decimal, at time.Time) model.Transaction {
	txn := model.Transaction{Timestamp: at, Kind: kind, Amount: amount, Balance: a.Balance}
	a.Transactions = append(a.Transactions, txn)
	return txn
}

// RegisterFailedLogin counts a failed login and locks the account at the threshold.
func (a *Account) RegisterFailedLogin() {
	a.FailedAttempts++
	if a.FailedAttempts >= MaxFailedAttempts {
		a.Locked = true
	}
}

// RegisterSuccessfulLogin clears the failure counter and the lock.
func (a *Account) RegisterSuccessfulLogin() {
	a.FailedAttempts = 0
	a.Locked = false
}

// Unlock is the administrative reset; it has the same effect as a successful login.
func (a *Account) Unlock() {
	a.RegisterSuccessfulLogin()
}

// RemainingAttempts returns how many failures are left before lockout.
func (a *Account) RemainingAttempts() int {
	if n := MaxFailedAttempts - a.FailedAttempts; n > 0 {
		return n
	}
	return 0
}

// Checkpoint captures everything a mutation can change.
type Checkpoint struct {
	record model.Account
	txnLen int
}

// Checkpoint returns the current state for a later Restore.
func (a *Account) Checkpoint() Checkpoint {
	return Checkpoint{record: a.Account, txnLen: len(a.Transactions)}
}

// Restore rolls the account back to cp, dropping transactions appended since.
func (a *Account) Restore(cp Checkpoint) {
	a.Account = cp.record
	if cp.txnLen <= len(a.Transactions) {
		clear(a.Transactions[cp.txnLen:])
		a.Transactions = a.Transactions[:cp.txnLen]
	}
}

// Clone returns a deep copy safe to hand to callers.
func (a *Account) Clone() *Account {
	cp := &Account{Account: a.Account}
	cp.Transactions = make([]model.Transaction, len(a.Transactions))
	copy(cp.Transactions, a.Transactions)
	return cp
}
