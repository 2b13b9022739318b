package model

import "github.com/shopspring/decimal"

// Role distinguishes ordinary account holders from the administrator.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Account is the persisted state of one account, without its transaction log.
type Account struct {
	AccountNumber  string
	Name           string
	Balance        decimal.Decimal
	PasswordHash   string
	Role           Role
	FailedAttempts int
	Locked         bool
}

// Status returns "Locked" or "Active".
func (a Account) Status() string {
	if a.Locked {
		return "Locked"
	}
	return "Active"
}
