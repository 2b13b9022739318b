package bank

import (
	"errors"
	"fmt"
)

// Failure classes. Every error returned by an Engine operation is a *Failure
// that matches exactly one of them with errors.Is.
var (
	ErrValidation    = errors.New("validation failed")
	ErrRuleViolation = errors.New("business rule violated")
	ErrPersistence   = errors.New("persistence failed")
)

// User-facing messages shared by several operations.
const (
	msgNoSession       = "No user logged in."
	msgAdminRequired   = "Administrator privileges required."
	msgAccountNotFound = "Account not found."
	msgAccountLocked   = "This account is locked."
	msgNameInvalid     = "Name is invalid."
	msgCents           = "Amounts cannot have more than two decimal places."
)

// Failure is an operation outcome the caller should show verbatim.
type Failure struct {
	kind    error
	Message string
	cause   error
}

func (f *Failure) Error() string {
	return f.Message
}

// Unwrap exposes the failure class and, for persistence failures, the storage error.
func (f *Failure) Unwrap() []error {
	if f.cause == nil {
		return []error{f.kind}
	}
	return []error{f.kind, f.cause}
}

func invalid(msg string) *Failure {
	return &Failure{kind: ErrValidation, Message: msg}
}

func violation(msg string) *Failure {
	return &Failure{kind: ErrRuleViolation, Message: msg}
}

func persistence(op string, cause error) *Failure {
	return &Failure{
		kind:    ErrPersistence,
		Message: fmt.Sprintf("%s failed due to a storage error. Please try again.", op),
		cause:   cause,
	}
}
