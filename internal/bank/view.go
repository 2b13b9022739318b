package bank

import (
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledger/internal/ledger"
	"github.com/cleared-dev/ledger/internal/model"
)

// AccountView is an account without its credentials.
type AccountView struct {
	AccountNumber  string
	Name           string
	Balance        decimal.Decimal
	Role           model.Role
	FailedAttempts int
	Locked         bool
}

// Status is "Locked" or "Active".
func (v AccountView) Status() string {
	if v.Locked {
		return "Locked"
	}
	return "Active"
}

// AccountDetails is an account view plus a copy of its transaction log.
type AccountDetails struct {
	AccountView
	Transactions []model.Transaction
}

func viewOf(a *ledger.Account) AccountView {
	return AccountView{
		AccountNumber:  a.AccountNumber,
		Name:           a.Name,
		Balance:        a.Balance,
		Role:           a.Role,
		FailedAttempts: a.FailedAttempts,
		Locked:         a.Locked,
	}
}

func detailsOf(a *ledger.Account) AccountDetails {
	return AccountDetails{AccountView: viewOf(a), Transactions: a.Clone().Transactions}
}
