package bank

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/cleared-dev/ledger/internal/store/memstore"
)

const userPassword = "Secret123"

var t0 = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

var errDisk = errors.New("disk full")

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// stepClock returns a clock that advances one second per call.
func stepClock() func() time.Time {
	var mu sync.Mutex
	now := t0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

type fixture struct {
	ctx  context.Context
	eng  *Engine
	mem  *memstore.Store
	hook *test.Hook
}

func newFixture(t *testing.T, opts ...memstore.Option) *fixture {
	t.Helper()
	mem := memstore.New(opts...)
	return newFixtureOn(t, mem)
}

func newFixtureOn(t *testing.T, mem *memstore.Store) *fixture {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	eng, err := NewEngine(context.Background(), mem,
		WithLogger(logger),
		WithClock(stepClock()),
		WithHashCost(bcrypt.MinCost),
	)
	require.NoError(t, err)
	mem.ResetCalls()
	return &fixture{ctx: context.Background(), eng: eng, mem: mem, hook: hook}
}

func (f *fixture) createUser(t *testing.T, number, balance string) {
	t.Helper()
	_, err := f.eng.CreateAccount(f.ctx, "Test User", number, userPassword, dec(balance))
	require.NoError(t, err)
}

func (f *fixture) login(t *testing.T, number string) LoginResult {
	t.Helper()
	pw := userPassword
	if number == AdminAccountNumber {
		pw = DefaultAdminPassword
	}
	res, err := f.eng.Login(f.ctx, number, pw)
	require.NoError(t, err)
	return res
}

// details returns a copy of the in-memory account, bypassing the session.
func (f *fixture) details(t *testing.T, number string) AccountDetails {
	t.Helper()
	ent, ok := f.eng.lookup(number)
	require.True(t, ok, "account %s not loaded", number)
	ent.mu.Lock()
	defer ent.mu.Unlock()
	return detailsOf(ent.acct)
}

func (f *fixture) stored(t *testing.T, number string) (AccountView, int) {
	t.Helper()
	snap := f.mem.Snapshot()
	rec, ok := snap.Accounts[number]
	require.True(t, ok, "account %s not stored", number)
	return AccountView{
		AccountNumber:  rec.AccountNumber,
		Name:           rec.Name,
		Balance:        rec.Balance,
		Role:           rec.Role,
		FailedAttempts: rec.FailedAttempts,
		Locked:         rec.Locked,
	}, len(snap.Transactions[number])
}
