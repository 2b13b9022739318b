package bank

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/password"
)

// Session identifies the authenticated account of an engine.
type Session struct {
	ID            string
	AccountNumber string
	Role          model.Role
	StartedAt     time.Time
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Session Session
	Account AccountView
	// Warning is set when the balance is below LowBalanceThreshold.
	Warning string
}

// Login authenticates number with pw. A wrong password is counted and
// persisted before the failure is returned; the third one locks the account.
func (e *Engine) Login(ctx context.Context, number, pw string) (LoginResult, error) {
	ent, ok := e.lookup(number)
	if !ok {
		return LoginResult{}, violation(msgAccountNotFound)
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	if ent.deleted {
		return LoginResult{}, violation(msgAccountNotFound)
	}
	acct := ent.acct
	if acct.Locked {
		return LoginResult{}, violation(msgAccountLocked)
	}

	cp := acct.Checkpoint()
	log := e.log.WithField("account", number)

	if !password.Verify(pw, acct.PasswordHash) {
		acct.RegisterFailedLogin()
		if err := e.store.UpdateAccountState(ctx, acct.Record()); err != nil {
			acct.Restore(cp)
			return LoginResult{}, e.failPersist("Login", logrus.Fields{"account": number}, err)
		}
		if acct.Locked {
			log.Warn("account locked after repeated failed logins")
		}
		return LoginResult{}, violation(fmt.Sprintf("Incorrect password. %d attempts remaining.", acct.RemainingAttempts()))
	}

	acct.RegisterSuccessfulLogin()
	if err := e.store.UpdateAccountState(ctx, acct.Record()); err != nil {
		acct.Restore(cp)
		return LoginResult{}, e.failPersist("Login", logrus.Fields{"account": number}, err)
	}

	sess := Session{
		ID:            uuid.NewString(),
		AccountNumber: number,
		Role:          acct.Role,
		StartedAt:     e.now(),
	}
	e.sessMu.Lock()
	e.session = &sess
	e.sessMu.Unlock()
	log.WithField("session", sess.ID).Debug("session started")

	res := LoginResult{Session: sess, Account: viewOf(acct)}
	if acct.Balance.LessThan(LowBalanceThreshold) {
		res.Warning = "Low balance: " + e.money(acct.Balance)
	}
	return res, nil
}

// Logout ends the current session, if any.
func (e *Engine) Logout() {
	e.sessMu.Lock()
	defer e.sessMu.Unlock()
	if e.session != nil {
		e.log.WithField("session", e.session.ID).Debug("session ended")
	}
	e.session = nil
}

// CurrentSession returns the active session.
func (e *Engine) CurrentSession() (Session, bool) {
	e.sessMu.Lock()
	defer e.sessMu.Unlock()
	if e.session == nil {
		return Session{}, false
	}
	return *e.session, true
}

// sessionEntry returns the session and the entry of its account, unlocked.
func (e *Engine) sessionEntry() (Session, *entry, error) {
	sess, ok := e.CurrentSession()
	if !ok {
		return Session{}, nil, violation(msgNoSession)
	}
	ent, ok := e.lookup(sess.AccountNumber)
	if !ok {
		return Session{}, nil, violation(msgNoSession)
	}
	return sess, ent, nil
}

// RequireAdmin returns the current session if it belongs to an administrator.
func (e *Engine) RequireAdmin() (Session, error) {
	sess, ok := e.CurrentSession()
	if !ok {
		return Session{}, violation(msgNoSession)
	}
	if sess.Role != model.RoleAdmin {
		return Session{}, violation(msgAdminRequired)
	}
	return sess, nil
}
