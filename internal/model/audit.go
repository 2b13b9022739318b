package model

import "time"

// AuditAction names an administrative action recorded in the audit log.
type AuditAction string

const (
	ActionDeleteAccount   AuditAction = "DELETE_ACCOUNT"
	ActionUnlockAccount   AuditAction = "UNLOCK_ACCOUNT"
	ActionApplyInterest   AuditAction = "APPLY_INTEREST"
	ActionSetInterestRate AuditAction = "SET_INTEREST_RATE"
)

// Audit targets that are not account numbers.
const (
	TargetAllUsers = "ALL_USERS"
	TargetSystem   = "SYSTEM"
)

// AuditEntry is one row of the administrative audit trail.
type AuditEntry struct {
	Timestamp time.Time
	Admin     string
	Action    AuditAction
	Target    string
	Details   string
}
