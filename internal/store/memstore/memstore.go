// Package memstore is an in-memory store.Gateway. Every write works on a copy
// of the state, passes it to an optional commit hook, and only then replaces
// the live state, so a failed write or a failed hook changes nothing.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/store"
)

// Operation names, used for fault injection and call counting.
const (
	OpInitSchema         = "InitSchema"
	OpLoadAllAccounts    = "LoadAllAccounts"
	OpLoadTransactions   = "LoadTransactions"
	OpCreateAccount      = "CreateAccount"
	OpUpdateAccountState = "UpdateAccountState"
	OpUpdatePassword     = "UpdatePassword"
	OpSaveTransaction    = "SaveTransaction"
	OpExecuteTransfer    = "ExecuteTransfer"
	OpDeleteAccount      = "DeleteAccount"
	OpLogAdminAction     = "LogAdminAction"
	OpAuditLog           = "AuditLog"
	OpInterestRate       = "InterestRate"
	OpSetInterestRate    = "SetInterestRate"
	OpWithTx             = "WithTx"
)

// CommitHook receives the state a write is about to publish. Returning an
// error aborts the write.
type CommitHook func(next *Snapshot) error

// Option configures a Store.
type Option func(*Store)

// WithSnapshot starts the store from an existing state.
func WithSnapshot(st *Snapshot) Option {
	return func(s *Store) { s.state = st.Clone() }
}

// WithCommitHook installs a hook run before every write is published.
func WithCommitHook(h CommitHook) Option {
	return func(s *Store) { s.hook = h }
}

// Store is a concurrency-safe in-memory gateway.
type Store struct {
	gateway

	mu    sync.RWMutex
	state *Snapshot
	hook  CommitHook

	faultMu sync.Mutex
	faults  map[string]error
	calls   map[string]int
}

var _ store.Gateway = (*Store)(nil)

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		state:  NewSnapshot(),
		faults: make(map[string]error),
		calls:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.gateway = gateway{run: s}
	return s
}

// Fail makes every later call of op return err until Heal is called.
func (s *Store) Fail(op string, err error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.faults[op] = err
}

// Heal clears injected failures for the given ops, or all of them when none are given.
func (s *Store) Heal(ops ...string) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	if len(ops) == 0 {
		s.faults = make(map[string]error)
		return
	}
	for _, op := range ops {
		delete(s.faults, op)
	}
}

// Calls reports how many times op has been invoked, including failed calls.
func (s *Store) Calls(op string) int {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	return s.calls[op]
}

// ResetCalls zeroes the call counters.
func (s *Store) ResetCalls() {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.calls = make(map[string]int)
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

func (s *Store) enter(op string) error {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.calls[op]++
	if err := s.faults[op]; err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Store) read(op string, fn func(*Snapshot) error) error {
	if err := s.enter(op); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.state)
}

func (s *Store) write(op string, fn func(*Snapshot) error) error {
	if err := s.enter(op); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.Clone()
	if err := fn(next); err != nil {
		return err
	}
	if s.hook != nil {
		if err := s.hook(next); err != nil {
			return fmt.Errorf("committing %s: %w", op, err)
		}
	}
	s.state = next
	return nil
}

func (s *Store) tx(ctx context.Context, fn func(store.Gateway) error) error {
	return s.write(OpWithTx, func(next *Snapshot) error {
		return fn(gateway{run: &txRunner{s: s, st: next}})
	})
}

// txRunner applies operations directly to the state staged by an open WithTx.
type txRunner struct {
	s  *Store
	st *Snapshot
}

func (r *txRunner) read(op string, fn func(*Snapshot) error) error {
	if err := r.s.enter(op); err != nil {
		return err
	}
	return fn(r.st)
}

func (r *txRunner) write(op string, fn func(*Snapshot) error) error {
	return r.read(op, fn)
}

func (r *txRunner) tx(ctx context.Context, fn func(store.Gateway) error) error {
	return fn(gateway{run: r})
}

type runner interface {
	read(op string, fn func(*Snapshot) error) error
	write(op string, fn func(*Snapshot) error) error
	tx(ctx context.Context, fn func(store.Gateway) error) error
}

// gateway maps store.Gateway calls onto a runner.
type gateway struct {
	run runner
}

func (g gateway) InitSchema(ctx context.Context) error {
	return g.run.write(OpInitSchema, func(st *Snapshot) error {
		st.initSchema()
		return nil
	})
}

func (g gateway) LoadAllAccounts(ctx context.Context) (map[string]model.Account, error) {
	var out map[string]model.Account
	err := g.run.read(OpLoadAllAccounts, func(st *Snapshot) error {
		out = make(map[string]model.Account, len(st.Accounts))
		for k, v := range st.Accounts {
			out[k] = v
		}
		return nil
	})
	return out, err
}

func (g gateway) LoadTransactions(ctx context.Context, accountNumber string) ([]model.Transaction, error) {
	var out []model.Transaction
	err := g.run.read(OpLoadTransactions, func(st *Snapshot) error {
		out = st.loadTransactions(accountNumber)
		return nil
	})
	return out, err
}

func (g gateway) CreateAccount(ctx context.Context, acct model.Account, initial model.Transaction) error {
	return g.run.write(OpCreateAccount, func(st *Snapshot) error {
		return st.createAccount(acct, initial)
	})
}

func (g gateway) UpdateAccountState(ctx context.Context, acct model.Account) error {
	return g.run.write(OpUpdateAccountState, func(st *Snapshot) error {
		return st.updateAccountState(acct)
	})
}

func (g gateway) UpdatePassword(ctx context.Context, accountNumber, hash string) error {
	return g.run.write(OpUpdatePassword, func(st *Snapshot) error {
		return st.updatePassword(accountNumber, hash)
	})
}

func (g gateway) SaveTransaction(ctx context.Context, accountNumber string, txn model.Transaction) error {
	return g.run.write(OpSaveTransaction, func(st *Snapshot) error {
		return st.saveTransaction(accountNumber, txn)
	})
}

func (g gateway) ExecuteTransfer(ctx context.Context, from, to store.TransferLeg) error {
	return g.run.write(OpExecuteTransfer, func(st *Snapshot) error {
		return st.executeTransfer(from, to)
	})
}

func (g gateway) DeleteAccount(ctx context.Context, accountNumber string) error {
	return g.run.write(OpDeleteAccount, func(st *Snapshot) error {
		return st.deleteAccount(accountNumber)
	})
}

func (g gateway) LogAdminAction(ctx context.Context, entry model.AuditEntry) error {
	return g.run.write(OpLogAdminAction, func(st *Snapshot) error {
		st.Audit = append(st.Audit, entry)
		return nil
	})
}

func (g gateway) AuditLog(ctx context.Context) ([]model.AuditEntry, error) {
	var out []model.AuditEntry
	err := g.run.read(OpAuditLog, func(st *Snapshot) error {
		out = st.auditLog()
		return nil
	})
	return out, err
}

func (g gateway) InterestRate(ctx context.Context) (decimal.Decimal, error) {
	var rate decimal.Decimal
	err := g.run.read(OpInterestRate, func(st *Snapshot) error {
		rate = st.InterestRate
		return nil
	})
	return rate, err
}

func (g gateway) SetInterestRate(ctx context.Context, rate decimal.Decimal) error {
	return g.run.write(OpSetInterestRate, func(st *Snapshot) error {
		st.InterestRate = rate
		return nil
	})
}

func (g gateway) WithTx(ctx context.Context, fn func(store.Gateway) error) error {
	return g.run.tx(ctx, fn)
}
