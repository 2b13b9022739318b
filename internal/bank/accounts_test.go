package bank

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/store/memstore"
)

func TestCreateAccountValidation(t *testing.T) {
	tests := []struct {
		name    string
		acct    string
		number  string
		pw      string
		balance string
		is      error
		msg     string
	}{
		{"digits in name", "Agent 007", "AC1", userPassword, "0", ErrValidation, "Name is invalid."},
		{"empty name", "  ", "AC1", userPassword, "0", ErrValidation, "Name is invalid."},
		{"space in number", "Asha Rao", "AB 12", userPassword, "0", ErrValidation, "Account number must be alphanumeric."},
		{"empty number", "Asha Rao", "", userPassword, "0", ErrValidation, "Account number must be alphanumeric."},
		{"no uppercase", "Asha Rao", "AC1", "abcdefg1", "0", ErrValidation, "Invalid password: Password must contain at least one uppercase letter."},
		{"short", "Asha Rao", "AC1", "Ab1", "0", ErrValidation, "Invalid password: Password must be at least 8 characters long."},
		{"too long", "Asha Rao", "AC1", "Abcdefg1" + strings.Repeat("x", 70), "10", ErrValidation, "Invalid password: Password must be at most 72 bytes long."},
		{"negative balance", "Asha Rao", "AC1", userPassword, "-1", ErrValidation, "Balance cannot be negative."},
		{"fractional cents", "Asha Rao", "AC1", userPassword, "10.005", ErrValidation, "Amounts cannot have more than two decimal places."},
		{"taken", "Asha Rao", "admin", userPassword, "0", ErrRuleViolation, "An account with this number already exists."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.eng.CreateAccount(f.ctx, tt.acct, tt.number, tt.pw, dec(tt.balance))
			assert.ErrorIs(t, err, tt.is)
			assert.EqualError(t, err, tt.msg)
			assert.Equal(t, 0, f.mem.Calls(memstore.OpCreateAccount))
		})
	}
}

func TestCreateAccount(t *testing.T) {
	f := newFixture(t)

	view, err := f.eng.CreateAccount(f.ctx, "Mary-Jane Watson", "MJ1", "Abcdefg1", dec("250.50"))
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, view.Role)
	assert.Equal(t, "Active", view.Status())

	snap := f.mem.Snapshot()
	require.Len(t, snap.Transactions["MJ1"], 1)
	opening := snap.Transactions["MJ1"][0]
	assert.Equal(t, model.KindInitialDeposit, opening.Kind)
	assert.True(t, opening.Amount.Equal(dec("250.50")))
	assert.True(t, opening.Balance.Equal(dec("250.50")))
	assert.NotEqual(t, "Abcdefg1", snap.Accounts["MJ1"].PasswordHash)
}

func TestCreateAccountPersistenceFailure(t *testing.T) {
	f := newFixture(t)
	f.mem.Fail(memstore.OpCreateAccount, errDisk)

	_, err := f.eng.CreateAccount(f.ctx, "Asha Rao", "AC1", userPassword, dec("10"))
	assert.ErrorIs(t, err, ErrPersistence)
	assert.EqualError(t, err, "Account creation failed due to a storage error. Please try again.")

	_, ok := f.eng.lookup("AC1")
	assert.False(t, ok)
}

func TestDeposit(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "AC1", "100")
	f.login(t, "AC1")

	txn, err := f.eng.Deposit(f.ctx, dec("50.25"))
	require.NoError(t, err)
	assert.Equal(t, model.KindDeposit, txn.Kind)
	assert.True(t, txn.Balance.Equal(dec("150.25")))

	got := f.details(t, "AC1")
	assert.True(t, got.Balance.Equal(dec("150.25")))
	assert.Equal(t, txn, got.Transactions[len(got.Transactions)-1])

	stored, n := f.stored(t, "AC1")
	assert.True(t, stored.Balance.Equal(dec("150.25")))
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, f.mem.Calls(memstore.OpWithTx))
}

func TestDepositRejected(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "AC1", "100")
	f.login(t, "AC1")
	f.mem.ResetCalls()

	for _, amount := range []string{"0", "-5"} {
		_, err := f.eng.Deposit(f.ctx, dec(amount))
		assert.ErrorIs(t, err, ErrValidation)
		assert.EqualError(t, err, "Deposit failed. Amount must be positive.")
	}
	assert.Equal(t, 0, f.mem.Calls(memstore.OpWithTx))
	assert.Len(t, f.details(t, "AC1").Transactions, 1)
}

func TestDepositPersistenceFailureRestores(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "AC1", "100")
	f.login(t, "AC1")
	before := f.details(t, "AC1")

	// The second write of the unit fails after the first one succeeded.
	f.mem.Fail(memstore.OpUpdateAccountState, errDisk)
	_, err := f.eng.Deposit(f.ctx, dec("10"))
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, errDisk)

	assert.Equal(t, before, f.details(t, "AC1"))
	_, n := f.stored(t, "AC1")
	assert.Equal(t, 1, n)
}

func TestWithdraw(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "AC1", "100")
	f.login(t, "AC1")

	txn, err := f.eng.Withdraw(f.ctx, dec("40"))
	require.NoError(t, err)
	assert.Equal(t, model.KindWithdrawal, txn.Kind)
	assert.True(t, txn.Balance.Equal(dec("60")))

	_, err = f.eng.Withdraw(f.ctx, dec("60.01"))
	assert.ErrorIs(t, err, ErrRuleViolation)
	assert.EqualError(t, err, "Withdrawal failed. Insufficient balance.")

	_, err = f.eng.Withdraw(f.ctx, dec("0"))
	assert.ErrorIs(t, err, ErrValidation)

	txn, err = f.eng.Withdraw(f.ctx, dec("60"))
	require.NoError(t, err)
	assert.True(t, txn.Balance.IsZero())
}

func TestWithdrawPersistenceFailureRestores(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "AC1", "100")
	f.login(t, "AC1")
	before := f.details(t, "AC1")

	f.mem.Fail(memstore.OpSaveTransaction, errDisk)
	_, err := f.eng.Withdraw(f.ctx, dec("10"))
	assert.ErrorIs(t, err, ErrPersistence)
	assert.EqualError(t, err, "Withdrawal failed due to a storage error. Please try again.")
	assert.Equal(t, before, f.details(t, "AC1"))
}

func TestTransfer(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "A", "500")
	f.createUser(t, "B", "200")
	f.login(t, "A")

	receipt, err := f.eng.Transfer(f.ctx, "B", dec("125.50"))
	require.NoError(t, err)
	assert.Equal(t, "Test User", receipt.ToName)
	assert.True(t, receipt.FromBalance.Equal(dec("374.50")))

	a, b := f.details(t, "A"), f.details(t, "B")
	assert.True(t, a.Balance.Add(b.Balance).Equal(dec("700")), "transfer must be zero-sum")
	require.Len(t, a.Transactions, 2)
	require.Len(t, b.Transactions, 2)
	assert.Equal(t, model.KindTransferOut, a.Transactions[1].Kind)
	assert.Equal(t, model.KindTransferIn, b.Transactions[1].Kind)
	assert.True(t, b.Transactions[1].Balance.Equal(dec("325.50")))

	storedA, _ := f.stored(t, "A")
	storedB, _ := f.stored(t, "B")
	assert.True(t, storedA.Balance.Equal(a.Balance))
	assert.True(t, storedB.Balance.Equal(b.Balance))
}

func TestTransferRejected(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "A", "100")
	f.createUser(t, "B", "100")
	f.login(t, "A")
	f.mem.ResetCalls()

	tests := []struct {
		to, amount string
		is         error
		msg        string
	}{
		{"GHOST", "10", ErrRuleViolation, "Recipient account not found."},
		{"A", "10", ErrRuleViolation, "Cannot transfer to your own account."},
		{"B", "0", ErrValidation, "Transfer amount must be positive."},
		{"B", "-3", ErrValidation, "Transfer amount must be positive."},
		{"B", "100.01", ErrRuleViolation, "Insufficient balance."},
	}
	for _, tt := range tests {
		_, err := f.eng.Transfer(f.ctx, tt.to, dec(tt.amount))
		assert.ErrorIs(t, err, tt.is, "to=%s amount=%s", tt.to, tt.amount)
		assert.EqualError(t, err, tt.msg)
	}
	assert.Equal(t, 0, f.mem.Calls(memstore.OpExecuteTransfer))
}

func TestTransferPersistenceFailureRestoresBoth(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "A", "500")
	f.createUser(t, "B", "200")
	f.login(t, "A")
	beforeA, beforeB := f.details(t, "A"), f.details(t, "B")

	f.mem.Fail(memstore.OpExecuteTransfer, errDisk)
	_, err := f.eng.Transfer(f.ctx, "B", dec("100"))
	assert.ErrorIs(t, err, ErrPersistence)
	assert.EqualError(t, err, "Transfer failed due to a storage error. Please try again.")

	assert.Equal(t, beforeA, f.details(t, "A"))
	assert.Equal(t, beforeB, f.details(t, "B"))

	storedA, n := f.stored(t, "A")
	assert.True(t, storedA.Balance.Equal(dec("500")))
	assert.Equal(t, 1, n)
}

func TestConcurrentOppositeTransfers(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "A", "1000")
	f.createUser(t, "B", "1000")
	a, _ := f.eng.lookup("A")
	b, _ := f.eng.lookup("B")

	const rounds = 50
	var wg sync.WaitGroup
	errs := make(chan error, 2*rounds)
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.eng.transfer(f.ctx, "A", a, "B", dec("3"))
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := f.eng.transfer(f.ctx, "B", b, "A", dec("2"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	da, db := f.details(t, "A"), f.details(t, "B")
	assert.True(t, da.Balance.Equal(dec("950")), "A=%s", da.Balance)
	assert.True(t, db.Balance.Equal(dec("1050")), "B=%s", db.Balance)
	assert.Len(t, da.Transactions, 1+2*rounds)
	assert.Len(t, db.Transactions, 1+2*rounds)

	f.login(t, AdminAccountNumber)
	problems, err := f.eng.VerifyLedgers(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, problems, fmt.Sprint(problems))
}

func TestUpdateName(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "AC1", "100")
	f.login(t, "AC1")

	_, err := f.eng.UpdateName(f.ctx, "R2-D2")
	assert.ErrorIs(t, err, ErrValidation)
	assert.EqualError(t, err, "Name is invalid.")

	view, err := f.eng.UpdateName(f.ctx, "Asha Rao-Iyer")
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao-Iyer", view.Name)
	stored, _ := f.stored(t, "AC1")
	assert.Equal(t, "Asha Rao-Iyer", stored.Name)

	f.mem.Fail(memstore.OpUpdateAccountState, errDisk)
	_, err = f.eng.UpdateName(f.ctx, "Someone Else")
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, "Asha Rao-Iyer", f.details(t, "AC1").Name)
}

func TestUpdatePassword(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "AC1", "100")
	f.login(t, "AC1")

	err := f.eng.UpdatePassword(f.ctx, "Wrong1234", "NewSecret9")
	assert.ErrorIs(t, err, ErrRuleViolation)
	assert.EqualError(t, err, "Current password incorrect.")

	err = f.eng.UpdatePassword(f.ctx, userPassword, "weak")
	assert.ErrorIs(t, err, ErrValidation)
	assert.EqualError(t, err, "Failed to update: Password must be at least 8 characters long.")

	err = f.eng.UpdatePassword(f.ctx, userPassword, "NewSecret9"+strings.Repeat("x", 63))
	assert.ErrorIs(t, err, ErrValidation)
	assert.EqualError(t, err, "Failed to update: Password must be at most 72 bytes long.")
	assert.Equal(t, 0, f.mem.Calls(memstore.OpUpdatePassword))

	f.mem.Fail(memstore.OpUpdatePassword, errDisk)
	err = f.eng.UpdatePassword(f.ctx, userPassword, "NewSecret9")
	assert.ErrorIs(t, err, ErrPersistence)
	f.mem.Heal()

	require.NoError(t, f.eng.UpdatePassword(f.ctx, userPassword, "NewSecret9"))
	f.eng.Logout()

	_, err = f.eng.Login(f.ctx, "AC1", userPassword)
	assert.ErrorIs(t, err, ErrRuleViolation)
	_, err = f.eng.Login(f.ctx, "AC1", "NewSecret9")
	require.NoError(t, err)
}

func TestCurrentAccountIsACopy(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "AC1", "100")
	f.login(t, "AC1")

	acct, err := f.eng.CurrentAccount()
	require.NoError(t, err)
	acct.Transactions[0].Amount = dec("999")

	again, err := f.eng.CurrentAccount()
	require.NoError(t, err)
	assert.True(t, again.Transactions[0].Amount.Equal(dec("100")))
}
