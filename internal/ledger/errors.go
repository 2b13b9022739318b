package ledger

import "errors"

var (
	// ErrNonPositiveAmount rejects zero or negative postings.
	ErrNonPositiveAmount = errors.New("amount must be positive")

	// ErrInsufficientBalance rejects withdrawals larger than the balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
)
