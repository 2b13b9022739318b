// Package storetest is a behavioural test suite shared by store.Gateway
// implementations.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/store"
)

var t0 = time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func account(number, balance string) model.Account {
	return model.Account{
		AccountNumber: number,
		Name:          "Jane Doe",
		Balance:       dec(balance),
		PasswordHash:  "$2a$04$hash",
		Role:          model.RoleUser,
	}
}

func opening(balance string) model.Transaction {
	return model.Transaction{Timestamp: t0, Kind: model.KindInitialDeposit, Amount: dec(balance), Balance: dec(balance)}
}

// Run exercises a fresh gateway returned by newGateway for each subtest.
func Run(t *testing.T, newGateway func(t *testing.T) store.Gateway) {
	ctx := context.Background()

	setup := func(t *testing.T) store.Gateway {
		t.Helper()
		g := newGateway(t)
		require.NoError(t, g.InitSchema(ctx))
		return g
	}

	t.Run("InitSchemaSeedsRate", func(t *testing.T) {
		g := setup(t)
		rate, err := g.InterestRate(ctx)
		require.NoError(t, err)
		assert.True(t, rate.Equal(store.DefaultInterestRate), "rate=%s", rate)

		// Idempotent and does not reset a changed rate.
		require.NoError(t, g.SetInterestRate(ctx, dec("4.25")))
		require.NoError(t, g.InitSchema(ctx))
		rate, err = g.InterestRate(ctx)
		require.NoError(t, err)
		assert.True(t, rate.Equal(dec("4.25")))
	})

	t.Run("CreateAndLoad", func(t *testing.T) {
		g := setup(t)
		require.NoError(t, g.CreateAccount(ctx, account("AC1", "100.00"), opening("100.00")))

		accts, err := g.LoadAllAccounts(ctx)
		require.NoError(t, err)
		require.Len(t, accts, 1)
		got := accts["AC1"]
		assert.Equal(t, "Jane Doe", got.Name)
		assert.True(t, got.Balance.Equal(dec("100")))
		assert.Equal(t, model.RoleUser, got.Role)
		assert.Equal(t, "$2a$04$hash", got.PasswordHash)

		txns, err := g.LoadTransactions(ctx, "AC1")
		require.NoError(t, err)
		require.Len(t, txns, 1)
		assert.Equal(t, model.KindInitialDeposit, txns[0].Kind)
		assert.True(t, txns[0].Timestamp.Equal(t0))
	})

	t.Run("CreateDuplicate", func(t *testing.T) {
		g := setup(t)
		require.NoError(t, g.CreateAccount(ctx, account("AC1", "1"), opening("1")))
		err := g.CreateAccount(ctx, account("AC1", "2"), opening("2"))
		assert.ErrorIs(t, err, store.ErrDuplicate)
	})

	t.Run("TransactionsNewestFirst", func(t *testing.T) {
		g := setup(t)
		require.NoError(t, g.CreateAccount(ctx, account("AC1", "100"), opening("100")))
		require.NoError(t, g.SaveTransaction(ctx, "AC1", model.Transaction{
			Timestamp: t0.Add(time.Minute), Kind: model.KindDeposit, Amount: dec("5"), Balance: dec("105"),
		}))
		require.NoError(t, g.SaveTransaction(ctx, "AC1", model.Transaction{
			Timestamp: t0.Add(2 * time.Minute), Kind: model.KindWithdrawal, Amount: dec("10"), Balance: dec("95"),
		}))

		txns, err := g.LoadTransactions(ctx, "AC1")
		require.NoError(t, err)
		require.Len(t, txns, 3)
		assert.Equal(t, model.KindWithdrawal, txns[0].Kind)
		assert.Equal(t, model.KindDeposit, txns[1].Kind)
		assert.Equal(t, model.KindInitialDeposit, txns[2].Kind)
		assert.True(t, txns[0].Balance.Equal(dec("95")))
	})

	t.Run("UpdateAccountState", func(t *testing.T) {
		g := setup(t)
		require.NoError(t, g.CreateAccount(ctx, account("AC1", "100"), opening("100")))

		upd := account("AC1", "42.50")
		upd.Name = "Jane Smith"
		upd.FailedAttempts = 2
		upd.Locked = true
		upd.PasswordHash = "ignored"
		require.NoError(t, g.UpdateAccountState(ctx, upd))

		accts, err := g.LoadAllAccounts(ctx)
		require.NoError(t, err)
		got := accts["AC1"]
		assert.Equal(t, "Jane Smith", got.Name)
		assert.True(t, got.Balance.Equal(dec("42.50")))
		assert.Equal(t, 2, got.FailedAttempts)
		assert.True(t, got.Locked)
		assert.Equal(t, "$2a$04$hash", got.PasswordHash, "state update must not touch the hash")
	})

	t.Run("UpdatePassword", func(t *testing.T) {
		g := setup(t)
		require.NoError(t, g.CreateAccount(ctx, account("AC1", "0"), opening("0")))
		require.NoError(t, g.UpdatePassword(ctx, "AC1", "$2a$04$other"))

		accts, err := g.LoadAllAccounts(ctx)
		require.NoError(t, err)
		assert.Equal(t, "$2a$04$other", accts["AC1"].PasswordHash)

		assert.ErrorIs(t, g.UpdatePassword(ctx, "NOPE", "x"), store.ErrNotFound)
	})

	t.Run("ExecuteTransfer", func(t *testing.T) {
		g := setup(t)
		require.NoError(t, g.CreateAccount(ctx, account("A", "100"), opening("100")))
		require.NoError(t, g.CreateAccount(ctx, account("B", "50"), opening("50")))

		err := g.ExecuteTransfer(ctx,
			store.TransferLeg{AccountNumber: "A", Balance: dec("70"), Transaction: model.Transaction{
				Timestamp: t0, Kind: model.KindTransferOut, Amount: dec("30"), Balance: dec("70"),
			}},
			store.TransferLeg{AccountNumber: "B", Balance: dec("80"), Transaction: model.Transaction{
				Timestamp: t0, Kind: model.KindTransferIn, Amount: dec("30"), Balance: dec("80"),
			}},
		)
		require.NoError(t, err)

		accts, err := g.LoadAllAccounts(ctx)
		require.NoError(t, err)
		assert.True(t, accts["A"].Balance.Equal(dec("70")))
		assert.True(t, accts["B"].Balance.Equal(dec("80")))

		a, err := g.LoadTransactions(ctx, "A")
		require.NoError(t, err)
		assert.Equal(t, model.KindTransferOut, a[0].Kind)
		b, err := g.LoadTransactions(ctx, "B")
		require.NoError(t, err)
		assert.Equal(t, model.KindTransferIn, b[0].Kind)
	})

	t.Run("ExecuteTransferMissingAccountChangesNothing", func(t *testing.T) {
		g := setup(t)
		require.NoError(t, g.CreateAccount(ctx, account("A", "100"), opening("100")))

		err := g.ExecuteTransfer(ctx,
			store.TransferLeg{AccountNumber: "A", Balance: dec("70"), Transaction: model.Transaction{
				Timestamp: t0, Kind: model.KindTransferOut, Amount: dec("30"), Balance: dec("70"),
			}},
			store.TransferLeg{AccountNumber: "GHOST", Balance: dec("30"), Transaction: model.Transaction{
				Timestamp: t0, Kind: model.KindTransferIn, Amount: dec("30"), Balance: dec("30"),
			}},
		)
		require.Error(t, err)

		accts, err := g.LoadAllAccounts(ctx)
		require.NoError(t, err)
		assert.True(t, accts["A"].Balance.Equal(dec("100")))
		txns, err := g.LoadTransactions(ctx, "A")
		require.NoError(t, err)
		assert.Len(t, txns, 1)
	})

	t.Run("DeleteAccount", func(t *testing.T) {
		g := setup(t)
		require.NoError(t, g.CreateAccount(ctx, account("A", "100"), opening("100")))
		require.NoError(t, g.CreateAccount(ctx, account("B", "1"), opening("1")))
		require.NoError(t, g.DeleteAccount(ctx, "A"))

		accts, err := g.LoadAllAccounts(ctx)
		require.NoError(t, err)
		assert.NotContains(t, accts, "A")
		assert.Contains(t, accts, "B")

		txns, err := g.LoadTransactions(ctx, "A")
		require.NoError(t, err)
		assert.Empty(t, txns)

		assert.ErrorIs(t, g.DeleteAccount(ctx, "A"), store.ErrNotFound)
	})

	t.Run("AuditLogNewestFirst", func(t *testing.T) {
		g := setup(t)
		require.NoError(t, g.LogAdminAction(ctx, model.AuditEntry{
			Timestamp: t0, Admin: "admin", Action: model.ActionUnlockAccount, Target: "AC1",
		}))
		require.NoError(t, g.LogAdminAction(ctx, model.AuditEntry{
			Timestamp: t0.Add(time.Hour), Admin: "admin", Action: model.ActionSetInterestRate,
			Target: model.TargetSystem, Details: "New rate: 3%",
		}))

		entries, err := g.AuditLog(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, model.ActionSetInterestRate, entries[0].Action)
		assert.Equal(t, "New rate: 3%", entries[0].Details)
		assert.Equal(t, model.ActionUnlockAccount, entries[1].Action)
		assert.Equal(t, "AC1", entries[1].Target)
		assert.True(t, entries[1].Timestamp.Equal(t0))
	})

	t.Run("WithTxCommits", func(t *testing.T) {
		g := setup(t)
		require.NoError(t, g.CreateAccount(ctx, account("A", "100"), opening("100")))

		err := g.WithTx(ctx, func(tx store.Gateway) error {
			if err := tx.SaveTransaction(ctx, "A", model.Transaction{
				Timestamp: t0, Kind: model.KindDeposit, Amount: dec("1"), Balance: dec("101"),
			}); err != nil {
				return err
			}
			return tx.UpdateAccountState(ctx, account("A", "101"))
		})
		require.NoError(t, err)

		accts, err := g.LoadAllAccounts(ctx)
		require.NoError(t, err)
		assert.True(t, accts["A"].Balance.Equal(dec("101")))
		txns, err := g.LoadTransactions(ctx, "A")
		require.NoError(t, err)
		assert.Len(t, txns, 2)
	})

	t.Run("WithTxRollsBack", func(t *testing.T) {
		g := setup(t)
		require.NoError(t, g.CreateAccount(ctx, account("A", "100"), opening("100")))

		boom := errors.New("boom")
		err := g.WithTx(ctx, func(tx store.Gateway) error {
			if err := tx.SaveTransaction(ctx, "A", model.Transaction{
				Timestamp: t0, Kind: model.KindDeposit, Amount: dec("1"), Balance: dec("101"),
			}); err != nil {
				return err
			}
			if err := tx.LogAdminAction(ctx, model.AuditEntry{Timestamp: t0, Admin: "admin", Action: model.ActionApplyInterest}); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		txns, err := g.LoadTransactions(ctx, "A")
		require.NoError(t, err)
		assert.Len(t, txns, 1)
		entries, err := g.AuditLog(ctx)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}
