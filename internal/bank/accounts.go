package bank

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/cleared-dev/ledger/internal/ledger"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/password"
	"github.com/cleared-dev/ledger/internal/store"
)

// CreateAccount opens a user account with one Initial Deposit of initialBalance.
func (e *Engine) CreateAccount(ctx context.Context, name, number, pw string, initialBalance decimal.Decimal) (AccountView, error) {
	if !validName(name) {
		return AccountView{}, invalid(msgNameInvalid)
	}
	if !validAccountNumber(number) {
		return AccountView{}, invalid("Account number must be alphanumeric.")
	}
	if _, exists := e.lookup(number); exists {
		return AccountView{}, violation("An account with this number already exists.")
	}
	if err := password.ValidateStrength(pw); err != nil {
		return AccountView{}, invalid("Invalid password: " + err.Error())
	}
	if initialBalance.IsNegative() {
		return AccountView{}, invalid("Balance cannot be negative.")
	}
	if !hasCents(initialBalance) {
		return AccountView{}, invalid(msgCents)
	}

	hash, err := password.HashCost(pw, e.hashCost)
	if err != nil {
		return AccountView{}, e.failPersist("Account creation", logrus.Fields{"account": number}, err)
	}
	acct := ledger.New(model.Account{
		AccountNumber: number,
		Name:          name,
		Balance:       initialBalance,
		PasswordHash:  hash,
		Role:          model.RoleUser,
	}, e.now())

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.accounts[number]; exists {
		return AccountView{}, violation("An account with this number already exists.")
	}
	err = e.store.CreateAccount(ctx, acct.Record(), acct.Transactions[0])
	if errors.Is(err, store.ErrDuplicate) {
		return AccountView{}, violation("An account with this number already exists.")
	}
	if err != nil {
		return AccountView{}, e.failPersist("Account creation", logrus.Fields{"account": number}, err)
	}
	e.accounts[number] = &entry{acct: acct}
	e.log.WithField("account", number).Info("account created")
	return viewOf(acct), nil
}

// CurrentAccount returns the session account with a copy of its transactions.
func (e *Engine) CurrentAccount() (AccountDetails, error) {
	_, ent, err := e.sessionEntry()
	if err != nil {
		return AccountDetails{}, err
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	if ent.deleted {
		return AccountDetails{}, violation(msgAccountNotFound)
	}
	return detailsOf(ent.acct), nil
}

// Deposit credits the session account.
func (e *Engine) Deposit(ctx context.Context, amount decimal.Decimal) (model.Transaction, error) {
	return e.post(ctx, "Deposit", amount, func(a *ledger.Account) (model.Transaction, error) {
		txn, err := a.Deposit(amount, e.now())
		if err != nil {
			return txn, invalid("Deposit failed. Amount must be positive.")
		}
		return txn, nil
	})
}

// Withdraw debits the session account.
func (e *Engine) Withdraw(ctx context.Context, amount decimal.Decimal) (model.Transaction, error) {
	return e.post(ctx, "Withdrawal", amount, func(a *ledger.Account) (model.Transaction, error) {
		txn, err := a.Withdraw(amount, e.now())
		switch {
		case errors.Is(err, ledger.ErrInsufficientBalance):
			return txn, violation("Withdrawal failed. Insufficient balance.")
		case err != nil:
			return txn, invalid("Withdrawal failed. Amount must be positive.")
		}
		return txn, nil
	})
}

// post applies a single-account posting and persists the new transaction
// together with the account state.
func (e *Engine) post(ctx context.Context, op string, amount decimal.Decimal, apply func(*ledger.Account) (model.Transaction, error)) (model.Transaction, error) {
	_, ent, err := e.sessionEntry()
	if err != nil {
		return model.Transaction{}, err
	}
	if !hasCents(amount) {
		return model.Transaction{}, invalid(msgCents)
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	if ent.deleted {
		return model.Transaction{}, violation(msgAccountNotFound)
	}

	acct := ent.acct
	cp := acct.Checkpoint()
	txn, err := apply(acct)
	if err != nil {
		return model.Transaction{}, err
	}

	err = e.store.WithTx(ctx, func(g store.Gateway) error {
		if err := g.SaveTransaction(ctx, acct.AccountNumber, txn); err != nil {
			return err
		}
		return g.UpdateAccountState(ctx, acct.Record())
	})
	if err != nil {
		acct.Restore(cp)
		return model.Transaction{}, e.failPersist(op, logrus.Fields{"account": acct.AccountNumber}, err)
	}
	return txn, nil
}

// TransferReceipt describes a completed transfer.
type TransferReceipt struct {
	From        string
	To          string
	ToName      string
	Amount      decimal.Decimal
	FromBalance decimal.Decimal
	Out         model.Transaction
	In          model.Transaction
}

// Transfer moves amount from the session account to another account. Both
// sides are persisted as one unit; if that fails neither account changes.
func (e *Engine) Transfer(ctx context.Context, to string, amount decimal.Decimal) (TransferReceipt, error) {
	sess, src, err := e.sessionEntry()
	if err != nil {
		return TransferReceipt{}, err
	}
	return e.transfer(ctx, sess.AccountNumber, src, to, amount)
}

func (e *Engine) transfer(ctx context.Context, fromNumber string, src *entry, to string, amount decimal.Decimal) (TransferReceipt, error) {
	dst, ok := e.lookup(to)
	if !ok {
		return TransferReceipt{}, violation("Recipient account not found.")
	}
	if to == fromNumber {
		return TransferReceipt{}, violation("Cannot transfer to your own account.")
	}
	if !amount.IsPositive() {
		return TransferReceipt{}, invalid("Transfer amount must be positive.")
	}
	if !hasCents(amount) {
		return TransferReceipt{}, invalid(msgCents)
	}

	unlock := lockPair(src, dst, fromNumber, to)
	defer unlock()
	if src.deleted {
		return TransferReceipt{}, violation(msgNoSession)
	}
	if dst.deleted {
		return TransferReceipt{}, violation("Recipient account not found.")
	}

	from, dest := src.acct, dst.acct
	if amount.GreaterThan(from.Balance) {
		return TransferReceipt{}, violation("Insufficient balance.")
	}

	fromCP, destCP := from.Checkpoint(), dest.Checkpoint()
	at := e.now()
	out, err := from.TransferOut(amount, at)
	if err != nil {
		return TransferReceipt{}, violation("Insufficient balance.")
	}
	in, err := dest.TransferIn(amount, at)
	if err != nil {
		from.Restore(fromCP)
		return TransferReceipt{}, invalid("Transfer amount must be positive.")
	}

	err = e.store.ExecuteTransfer(ctx,
		store.TransferLeg{AccountNumber: from.AccountNumber, Balance: from.Balance, Transaction: out},
		store.TransferLeg{AccountNumber: dest.AccountNumber, Balance: dest.Balance, Transaction: in},
	)
	if err != nil {
		from.Restore(fromCP)
		dest.Restore(destCP)
		return TransferReceipt{}, e.failPersist("Transfer", logrus.Fields{"account": from.AccountNumber, "to": to}, err)
	}

	return TransferReceipt{
		From:        from.AccountNumber,
		To:          dest.AccountNumber,
		ToName:      dest.Name,
		Amount:      amount,
		FromBalance: from.Balance,
		Out:         out,
		In:          in,
	}, nil
}

// UpdateName renames the session account.
func (e *Engine) UpdateName(ctx context.Context, name string) (AccountView, error) {
	_, ent, err := e.sessionEntry()
	if err != nil {
		return AccountView{}, err
	}
	if !validName(name) {
		return AccountView{}, invalid(msgNameInvalid)
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	if ent.deleted {
		return AccountView{}, violation(msgAccountNotFound)
	}

	acct := ent.acct
	cp := acct.Checkpoint()
	acct.Name = name
	if err := e.store.UpdateAccountState(ctx, acct.Record()); err != nil {
		acct.Restore(cp)
		return AccountView{}, e.failPersist("Name update", logrus.Fields{"account": acct.AccountNumber}, err)
	}
	return viewOf(acct), nil
}

// UpdatePassword replaces the session account's password after verifying oldPW.
func (e *Engine) UpdatePassword(ctx context.Context, oldPW, newPW string) error {
	_, ent, err := e.sessionEntry()
	if err != nil {
		return err
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	if ent.deleted {
		return violation(msgAccountNotFound)
	}

	acct := ent.acct
	if !password.Verify(oldPW, acct.PasswordHash) {
		return violation("Current password incorrect.")
	}
	if err := password.ValidateStrength(newPW); err != nil {
		return invalid("Failed to update: " + err.Error())
	}
	hash, err := password.HashCost(newPW, e.hashCost)
	if err != nil {
		return e.failPersist("Password update", logrus.Fields{"account": acct.AccountNumber}, err)
	}
	if err := e.store.UpdatePassword(ctx, acct.AccountNumber, hash); err != nil {
		return e.failPersist("Password update", logrus.Fields{"account": acct.AccountNumber}, err)
	}
	acct.PasswordHash = hash
	return nil
}
