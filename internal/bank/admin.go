package bank

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/cleared-dev/ledger/internal/ledger"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/store"
)

// DeleteAccount removes an account and its transactions.
func (e *Engine) DeleteAccount(ctx context.Context, number string) error {
	sess, err := e.RequireAdmin()
	if err != nil {
		return err
	}
	if number == sess.AccountNumber {
		return violation("Admin cannot delete their own account.")
	}
	ent, ok := e.lookup(number)
	if !ok {
		return violation(msgAccountNotFound)
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	if ent.deleted {
		return violation(msgAccountNotFound)
	}

	err = e.store.WithTx(ctx, func(g store.Gateway) error {
		if err := g.DeleteAccount(ctx, number); err != nil {
			return err
		}
		return g.LogAdminAction(ctx, e.audit(sess, model.ActionDeleteAccount, number, ""))
	})
	if err != nil {
		return e.failPersist("Account deletion", logrus.Fields{"account": number, "admin": sess.AccountNumber}, err)
	}
	ent.deleted = true
	e.remove(number)
	e.log.WithFields(logrus.Fields{"account": number, "admin": sess.AccountNumber}).Info("account deleted")
	return nil
}

// UnlockResult reports the outcome of UnlockAccount.
type UnlockResult struct {
	AccountNumber string
	// AlreadyActive means the account was not locked and nothing was written.
	AlreadyActive bool
}

// UnlockAccount clears the lockout of an account.
func (e *Engine) UnlockAccount(ctx context.Context, number string) (UnlockResult, error) {
	sess, err := e.RequireAdmin()
	if err != nil {
		return UnlockResult{}, err
	}
	ent, ok := e.lookup(number)
	if !ok {
		return UnlockResult{}, violation(msgAccountNotFound)
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	if ent.deleted {
		return UnlockResult{}, violation(msgAccountNotFound)
	}

	acct := ent.acct
	if !acct.Locked {
		return UnlockResult{AccountNumber: number, AlreadyActive: true}, nil
	}

	cp := acct.Checkpoint()
	acct.Unlock()
	err = e.store.WithTx(ctx, func(g store.Gateway) error {
		if err := g.UpdateAccountState(ctx, acct.Record()); err != nil {
			return err
		}
		return g.LogAdminAction(ctx, e.audit(sess, model.ActionUnlockAccount, number, ""))
	})
	if err != nil {
		acct.Restore(cp)
		return UnlockResult{}, e.failPersist("Account unlock", logrus.Fields{"account": number, "admin": sess.AccountNumber}, err)
	}
	e.log.WithFields(logrus.Fields{"account": number, "admin": sess.AccountNumber}).Info("account unlocked")
	return UnlockResult{AccountNumber: number}, nil
}

// InterestCredit is one account's share of an interest run.
type InterestCredit struct {
	AccountNumber string
	Transaction   model.Transaction
}

// InterestReport summarises ApplyInterest.
type InterestReport struct {
	Rate    decimal.Decimal
	Credits []InterestCredit
	Total   decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// ApplyInterest credits every user account with a positive balance at the
// current rate, rounded to cents. Accounts whose interest rounds to zero are
// skipped. The whole run and its audit entry are one unit of work.
func (e *Engine) ApplyInterest(ctx context.Context) (InterestReport, error) {
	sess, err := e.RequireAdmin()
	if err != nil {
		return InterestReport{}, err
	}
	rate, err := e.store.InterestRate(ctx)
	if err != nil {
		return InterestReport{}, e.failPersist("Interest application", logrus.Fields{"admin": sess.AccountNumber}, err)
	}

	entries := e.sortedEntries()
	unlock := lockAll(entries)
	defer unlock()

	type touched struct {
		acct *ledger.Account
		cp   ledger.Checkpoint
	}
	var changed []touched
	report := InterestReport{Rate: rate, Total: decimal.Zero}
	at := e.now()

	for _, ent := range entries {
		acct := ent.acct
		if ent.deleted || acct.Role != model.RoleUser || !acct.Balance.IsPositive() {
			continue
		}
		amount := acct.Balance.Mul(rate).Div(hundred).Round(2)
		if !amount.IsPositive() {
			continue
		}
		cp := acct.Checkpoint()
		txn, err := acct.CreditInterest(amount, at)
		if err != nil {
			continue
		}
		changed = append(changed, touched{acct: acct, cp: cp})
		report.Credits = append(report.Credits, InterestCredit{AccountNumber: acct.AccountNumber, Transaction: txn})
		report.Total = report.Total.Add(amount)
	}

	err = e.store.WithTx(ctx, func(g store.Gateway) error {
		for i, c := range report.Credits {
			if err := g.SaveTransaction(ctx, c.AccountNumber, c.Transaction); err != nil {
				return err
			}
			if err := g.UpdateAccountState(ctx, changed[i].acct.Record()); err != nil {
				return err
			}
		}
		return g.LogAdminAction(ctx, e.audit(sess, model.ActionApplyInterest, model.TargetAllUsers, fmt.Sprintf("Rate: %s%%", rate)))
	})
	if err != nil {
		for _, c := range changed {
			c.acct.Restore(c.cp)
		}
		return InterestReport{}, e.failPersist("Interest application", logrus.Fields{"admin": sess.AccountNumber}, err)
	}

	e.log.WithFields(logrus.Fields{
		"admin":    sess.AccountNumber,
		"rate":     rate.String(),
		"accounts": len(report.Credits),
		"total":    report.Total.StringFixed(2),
	}).Info("interest applied")
	return report, nil
}

// SetInterestRate changes the rate used by ApplyInterest.
func (e *Engine) SetInterestRate(ctx context.Context, rate decimal.Decimal) error {
	sess, err := e.RequireAdmin()
	if err != nil {
		return err
	}
	if !rate.IsPositive() {
		return invalid("Interest rate must be positive.")
	}
	err = e.store.WithTx(ctx, func(g store.Gateway) error {
		if err := g.SetInterestRate(ctx, rate); err != nil {
			return err
		}
		return g.LogAdminAction(ctx, e.audit(sess, model.ActionSetInterestRate, model.TargetSystem, fmt.Sprintf("New rate: %s%%", rate)))
	})
	if err != nil {
		return e.failPersist("Interest rate update", logrus.Fields{"admin": sess.AccountNumber}, err)
	}
	e.log.WithFields(logrus.Fields{"admin": sess.AccountNumber, "rate": rate.String()}).Info("interest rate changed")
	return nil
}

// InterestRate returns the stored rate in percent.
func (e *Engine) InterestRate(ctx context.Context) (decimal.Decimal, error) {
	rate, err := e.store.InterestRate(ctx)
	if err != nil {
		return decimal.Decimal{}, e.failPersist("Reading the interest rate", nil, err)
	}
	return rate, nil
}

// UsersReport lists every account ordered by account number.
func (e *Engine) UsersReport(ctx context.Context) ([]AccountView, error) {
	if _, err := e.RequireAdmin(); err != nil {
		return nil, err
	}
	var out []AccountView
	for _, ent := range e.sortedEntries() {
		ent.mu.Lock()
		if !ent.deleted {
			out = append(out, viewOf(ent.acct))
		}
		ent.mu.Unlock()
	}
	return out, nil
}

// AuditLog returns the audit trail, newest first.
func (e *Engine) AuditLog(ctx context.Context) ([]model.AuditEntry, error) {
	if _, err := e.RequireAdmin(); err != nil {
		return nil, err
	}
	entries, err := e.store.AuditLog(ctx)
	if err != nil {
		return nil, e.failPersist("Reading the audit log", nil, err)
	}
	return entries, nil
}

// VerifyLedgers checks the stored history of every account.
func (e *Engine) VerifyLedgers(ctx context.Context) ([]ledger.ValidationError, error) {
	if _, err := e.RequireAdmin(); err != nil {
		return nil, err
	}
	var out []ledger.ValidationError
	for _, ent := range e.sortedEntries() {
		ent.mu.Lock()
		if !ent.deleted {
			out = append(out, ledger.ValidateHistory(ent.acct)...)
		}
		ent.mu.Unlock()
	}
	return out, nil
}

func (e *Engine) audit(sess Session, action model.AuditAction, target, details string) model.AuditEntry {
	return model.AuditEntry{
		Timestamp: e.now(),
		Admin:     sess.AccountNumber,
		Action:    action,
		Target:    target,
		Details:   details,
	}
}
