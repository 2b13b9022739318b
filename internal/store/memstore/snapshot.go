package memstore

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/store"
)

// Snapshot is the complete stored state. Transactions and Audit are kept in
// insertion (chronological) order.
type Snapshot struct {
	Accounts     map[string]model.Account
	Transactions map[string][]model.Transaction
	Audit        []model.AuditEntry
	InterestRate decimal.Decimal
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Accounts:     make(map[string]model.Account),
		Transactions: make(map[string][]model.Transaction),
	}
}

// Clone returns a deep copy.
func (st *Snapshot) Clone() *Snapshot {
	cp := &Snapshot{
		Accounts:     make(map[string]model.Account, len(st.Accounts)),
		Transactions: make(map[string][]model.Transaction, len(st.Transactions)),
		Audit:        append([]model.AuditEntry(nil), st.Audit...),
		InterestRate: st.InterestRate,
	}
	for k, v := range st.Accounts {
		cp.Accounts[k] = v
	}
	for k, v := range st.Transactions {
		cp.Transactions[k] = append([]model.Transaction(nil), v...)
	}
	return cp
}

func (st *Snapshot) initSchema() {
	if st.Accounts == nil {
		st.Accounts = make(map[string]model.Account)
	}
	if st.Transactions == nil {
		st.Transactions = make(map[string][]model.Transaction)
	}
	if st.InterestRate.IsZero() {
		st.InterestRate = store.DefaultInterestRate
	}
}

func (st *Snapshot) mustExist(number string) error {
	if _, ok := st.Accounts[number]; !ok {
		return fmt.Errorf("%s: %w", number, store.ErrNotFound)
	}
	return nil
}

func (st *Snapshot) createAccount(acct model.Account, initial model.Transaction) error {
	if _, ok := st.Accounts[acct.AccountNumber]; ok {
		return fmt.Errorf("%s: %w", acct.AccountNumber, store.ErrDuplicate)
	}
	st.Accounts[acct.AccountNumber] = acct
	st.Transactions[acct.AccountNumber] = []model.Transaction{initial}
	return nil
}

func (st *Snapshot) updateAccountState(acct model.Account) error {
	if err := st.mustExist(acct.AccountNumber); err != nil {
		return err
	}
	cur := st.Accounts[acct.AccountNumber]
	cur.Name = acct.Name
	cur.Balance = acct.Balance
	cur.FailedAttempts = acct.FailedAttempts
	cur.Locked = acct.Locked
	st.Accounts[acct.AccountNumber] = cur
	return nil
}

func (st *Snapshot) updatePassword(number, hash string) error {
	if err := st.mustExist(number); err != nil {
		return err
	}
	cur := st.Accounts[number]
	cur.PasswordHash = hash
	st.Accounts[number] = cur
	return nil
}

func (st *Snapshot) saveTransaction(number string, txn model.Transaction) error {
	if err := st.mustExist(number); err != nil {
		return err
	}
	st.Transactions[number] = append(st.Transactions[number], txn)
	return nil
}

func (st *Snapshot) executeTransfer(from, to store.TransferLeg) error {
	if err := st.mustExist(from.AccountNumber); err != nil {
		return err
	}
	if err := st.mustExist(to.AccountNumber); err != nil {
		return err
	}
	for _, leg := range []store.TransferLeg{from, to} {
		cur := st.Accounts[leg.AccountNumber]
		cur.Balance = leg.Balance
		st.Accounts[leg.AccountNumber] = cur
		st.Transactions[leg.AccountNumber] = append(st.Transactions[leg.AccountNumber], leg.Transaction)
	}
	return nil
}

func (st *Snapshot) deleteAccount(number string) error {
	if err := st.mustExist(number); err != nil {
		return err
	}
	delete(st.Accounts, number)
	delete(st.Transactions, number)
	return nil
}

func (st *Snapshot) loadTransactions(number string) []model.Transaction {
	out := append([]model.Transaction(nil), st.Transactions[number]...)
	return store.Reverse(out)
}

func (st *Snapshot) auditLog() []model.AuditEntry {
	out := append([]model.AuditEntry(nil), st.Audit...)
	return store.Reverse(out)
}
