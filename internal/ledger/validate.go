package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledger/internal/model"
)

// Rule numbers reported by ValidateHistory.
const (
	RuleOpening     = 1 // log starts with an Initial Deposit whose balance equals its amount
	RuleChain       = 2 // each resulting balance follows from the previous one
	RulePositive    = 3 // postings after the opening are positive
	RuleNonNegative = 4 // no resulting balance is negative
	RuleCents       = 5 // amounts and balances have at most two decimal places
	RuleOrder       = 6 // timestamps never go backwards
	RuleFinal       = 7 // the last resulting balance equals the account balance
	RuleKind        = 8 // every kind is known
)

// ValidationError describes a single ledger invariant violation.
type ValidationError struct {
	Rule          int
	AccountNumber string
	Index         int // position in the log, -1 for account-level problems
	Description   string
}

func (e ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("rule %d [%s]: %s", e.Rule, e.AccountNumber, e.Description)
	}
	return fmt.Sprintf("rule %d [%s#%d]: %s", e.Rule, e.AccountNumber, e.Index, e.Description)
}

var hundred = decimal.NewFromInt(100)

func hasCents(d decimal.Decimal) bool {
	scaled := d.Mul(hundred)
	return scaled.Equal(scaled.Floor())
}

// ValidateHistory checks the balance-after invariants over an account's log.
func ValidateHistory(a *Account) []ValidationError {
	var errs []ValidationError
	fail := func(rule, idx int, format string, args ...any) {
		errs = append(errs, ValidationError{
			Rule:          rule,
			AccountNumber: a.AccountNumber,
			Index:         idx,
			Description:   fmt.Sprintf(format, args...),
		})
	}

	if len(a.Transactions) == 0 {
		fail(RuleOpening, -1, "transaction log is empty")
		return errs
	}

	running := decimal.Zero
	for i, txn := range a.Transactions {
		if !txn.Kind.Valid() {
			fail(RuleKind, i, "unknown kind %q", txn.Kind)
			continue
		}

		if i == 0 {
			if txn.Kind != model.KindInitialDeposit {
				fail(RuleOpening, i, "first entry is %q, want %q", txn.Kind, model.KindInitialDeposit)
			}
			if !txn.Amount.Equal(txn.Balance) {
				fail(RuleOpening, i, "opening amount %s != balance %s", txn.Amount.StringFixed(2), txn.Balance.StringFixed(2))
			}
			running = txn.Balance
		} else {
			if txn.Kind == model.KindInitialDeposit {
				fail(RuleOpening, i, "%q after the first entry", txn.Kind)
			}
			if !txn.Amount.IsPositive() {
				fail(RulePositive, i, "amount %s is not positive", txn.Amount.StringFixed(2))
			}
			want := running.Sub(txn.Amount)
			if txn.Kind.Credit() {
				want = running.Add(txn.Amount)
			}
			if !want.Equal(txn.Balance) {
				fail(RuleChain, i, "%s of %s from %s gives %s, recorded %s",
					txn.Kind, txn.Amount.StringFixed(2), running.StringFixed(2), want.StringFixed(2), txn.Balance.StringFixed(2))
			}
			if txn.Timestamp.Before(a.Transactions[i-1].Timestamp) {
				fail(RuleOrder, i, "timestamp %s precedes previous entry", txn.Timestamp.Format("2006-01-02 15:04:05"))
			}
			running = txn.Balance
		}

		if txn.Balance.IsNegative() {
			fail(RuleNonNegative, i, "resulting balance %s is negative", txn.Balance.StringFixed(2))
		}
		if !hasCents(txn.Amount) {
			fail(RuleCents, i, "amount %s has more than 2 decimal places", txn.Amount)
		}
		if !hasCents(txn.Balance) {
			fail(RuleCents, i, "balance %s has more than 2 decimal places", txn.Balance)
		}
	}

	if !running.Equal(a.Balance) {
		fail(RuleFinal, -1, "last resulting balance %s != account balance %s", running.StringFixed(2), a.Balance.StringFixed(2))
	}
	return errs
}
