package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind labels a ledger transaction.
type Kind string

const (
	KindInitialDeposit Kind = "Initial Deposit"
	KindDeposit        Kind = "Deposit"
	KindWithdrawal     Kind = "Withdrawal"
	KindTransferIn     Kind = "Transfer In"
	KindTransferOut    Kind = "Transfer Out"
	KindCreditInterest Kind = "Credit Interest"
)

// Kinds lists every transaction kind in display order.
var Kinds = []Kind{
	KindInitialDeposit,
	KindDeposit,
	KindWithdrawal,
	KindTransferIn,
	KindTransferOut,
	KindCreditInterest,
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Credit reports whether the kind increases the balance.
func (k Kind) Credit() bool {
	switch k {
	case KindInitialDeposit, KindDeposit, KindTransferIn, KindCreditInterest:
		return true
	default:
		return false
	}
}

// Transaction is one immutable entry in an account's ledger.
type Transaction struct {
	Timestamp time.Time
	Kind      Kind
	Amount    decimal.Decimal
	Balance   decimal.Decimal // resulting balance after this entry
}
