// Package bank is the ledger and authorization engine. It owns the
// authoritative in-memory accounts and the current session, and writes every
// change through a store.Gateway, undoing the in-memory change when the
// gateway fails.
package bank

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/cleared-dev/ledger/internal/ledger"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/password"
	"github.com/cleared-dev/ledger/internal/store"
)

// Defaults for a new engine.
const (
	AdminAccountNumber   = "admin"
	AdminName            = "Administrator"
	DefaultAdminPassword = "Admin@1234"
	DefaultCurrency      = "INR"
)

// LowBalanceThreshold triggers the login warning.
var LowBalanceThreshold = decimal.NewFromInt(1000)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the operational logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = l }
}

// WithClock replaces time.Now for transaction and audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithHashCost sets the bcrypt cost used for new passwords.
func WithHashCost(cost int) Option {
	return func(e *Engine) { e.hashCost = cost }
}

// WithCurrency sets the currency label used in messages.
func WithCurrency(code string) Option {
	return func(e *Engine) { e.currency = code }
}

// WithAdminPassword sets the password of an auto-provisioned admin.
func WithAdminPassword(pw string) Option {
	return func(e *Engine) { e.adminPassword = pw }
}

// entry guards one account. deleted is set, under mu, once the account is
// gone so that callers that looked it up earlier back off.
type entry struct {
	mu      sync.Mutex
	acct    *ledger.Account
	deleted bool
}

// Engine is safe for concurrent use.
type Engine struct {
	store store.Gateway
	log   logrus.FieldLogger
	now   func() time.Time

	hashCost      int
	currency      string
	adminPassword string

	mu       sync.RWMutex
	accounts map[string]*entry

	sessMu  sync.Mutex
	session *Session
}

// NewEngine prepares storage, loads every account and makes sure an
// administrator exists.
func NewEngine(ctx context.Context, gw store.Gateway, opts ...Option) (*Engine, error) {
	e := &Engine{
		store:         gw,
		log:           logrus.StandardLogger(),
		now:           time.Now,
		hashCost:      bcrypt.DefaultCost,
		currency:      DefaultCurrency,
		adminPassword: DefaultAdminPassword,
		accounts:      make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := gw.InitSchema(ctx); err != nil {
		return nil, fmt.Errorf("initialising schema: %w", err)
	}
	if err := e.reload(ctx); err != nil {
		return nil, err
	}
	if err := e.ensureAdmin(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// Currency returns the configured currency label.
func (e *Engine) Currency() string {
	return e.currency
}

func (e *Engine) reload(ctx context.Context) error {
	recs, err := e.store.LoadAllAccounts(ctx)
	if err != nil {
		return fmt.Errorf("loading accounts: %w", err)
	}
	accounts := make(map[string]*entry, len(recs))
	for number, rec := range recs {
		txns, err := e.store.LoadTransactions(ctx, number)
		if err != nil {
			return fmt.Errorf("loading transactions for %s: %w", number, err)
		}
		accounts[number] = &entry{acct: &ledger.Account{Account: rec, Transactions: store.Reverse(txns)}}
	}

	e.mu.Lock()
	e.accounts = accounts
	e.mu.Unlock()
	return nil
}

func (e *Engine) ensureAdmin(ctx context.Context) error {
	e.mu.RLock()
	for _, ent := range e.accounts {
		if ent.acct.Role == model.RoleAdmin {
			e.mu.RUnlock()
			return nil
		}
	}
	e.mu.RUnlock()

	hash, err := password.HashCost(e.adminPassword, e.hashCost)
	if err != nil {
		return fmt.Errorf("provisioning admin: %w", err)
	}
	acct := ledger.New(model.Account{
		AccountNumber: AdminAccountNumber,
		Name:          AdminName,
		Balance:       decimal.Zero,
		PasswordHash:  hash,
		Role:          model.RoleAdmin,
	}, e.now())

	err = e.store.CreateAccount(ctx, acct.Record(), acct.Transactions[0])
	if errors.Is(err, store.ErrDuplicate) {
		e.log.WithField("account", AdminAccountNumber).Info("admin account created concurrently, reloading")
		return e.reload(ctx)
	}
	if err != nil {
		return fmt.Errorf("provisioning admin: %w", err)
	}

	e.mu.Lock()
	e.accounts[AdminAccountNumber] = &entry{acct: acct}
	e.mu.Unlock()
	e.log.WithField("account", AdminAccountNumber).Warn("no administrator found, created default admin account; change its password")
	return nil
}

func (e *Engine) lookup(number string) (*entry, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ent, ok := e.accounts[number]
	return ent, ok
}

func (e *Engine) remove(number string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.accounts, number)
}

// sortedEntries returns every entry ordered by account number.
func (e *Engine) sortedEntries() []*entry {
	e.mu.RLock()
	numbers := make([]string, 0, len(e.accounts))
	for n := range e.accounts {
		numbers = append(numbers, n)
	}
	sort.Strings(numbers)
	out := make([]*entry, len(numbers))
	for i, n := range numbers {
		out[i] = e.accounts[n]
	}
	e.mu.RUnlock()
	return out
}

// lockAll locks entries in the order given and returns the matching unlock.
func lockAll(entries []*entry) func() {
	for _, ent := range entries {
		ent.mu.Lock()
	}
	return func() {
		for i := len(entries) - 1; i >= 0; i-- {
			entries[i].mu.Unlock()
		}
	}
}

// lockPair locks two distinct entries in ascending account-number order.
func lockPair(a, b *entry, aNumber, bNumber string) func() {
	if bNumber < aNumber {
		a, b = b, a
	}
	return lockAll([]*entry{a, b})
}

func (e *Engine) failPersist(op string, fields logrus.Fields, err error) *Failure {
	e.log.WithFields(fields).WithError(err).WithField("op", op).Error("storage write failed, in-memory state restored")
	return persistence(op, err)
}

func (e *Engine) money(d decimal.Decimal) string {
	return e.currency + " " + d.StringFixed(2)
}
