// Package pgstore is a store.Gateway backed by PostgreSQL through lib/pq.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/store"
)

// Postgres error codes mapped onto store sentinels.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

const interestRateKey = "interest_rate"

// ledgerLockKey names the session-level advisory lock that serialises
// processes working on the same database.
const ledgerLockKey int64 = 0x6c6564676572

const (
	acquireLock = `SELECT pg_advisory_lock($1)`
	releaseLock = `SELECT pg_advisory_unlock($1)`
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store talks to PostgreSQL. Inside WithTx the same type is bound to the
// open transaction.
type Store struct {
	db   *sql.DB
	q    querier
	tx   *sql.Tx
	lock *sql.Conn
}

var _ store.Gateway = (*Store)(nil)

// Open connects to dsn and takes the ledger lock, waiting for any other
// process holding it until ctx is done. The engine's cached state is only
// valid while the lock is held, so it is kept until Close.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	s := New(db)
	if err := s.Lock(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing handle.
func New(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

// Lock acquires the ledger advisory lock on a dedicated connection.
func (s *Store) Lock(ctx context.Context) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("reserving lock connection: %w", err)
	}
	if _, err := conn.ExecContext(ctx, acquireLock, ledgerLockKey); err != nil {
		_ = conn.Close()
		return fmt.Errorf("acquiring ledger lock: %w", err)
	}
	s.lock = conn
	return nil
}

// Close releases the ledger lock, if held, and the connection pool.
func (s *Store) Close() error {
	var errs []error
	if s.lock != nil {
		if _, err := s.lock.ExecContext(context.Background(), releaseLock, ledgerLockKey); err != nil {
			errs = append(errs, fmt.Errorf("releasing ledger lock: %w", err))
		}
		if err := s.lock.Close(); err != nil {
			errs = append(errs, err)
		}
		s.lock = nil
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Store) InitSchema(ctx context.Context) error {
	return s.inTx(ctx, func(t *Store) error {
		for i, stmt := range schema {
			if _, err := t.q.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("applying schema statement %d: %w", i+1, err)
			}
		}
		if _, err := t.q.ExecContext(ctx, seedInterestRate, store.DefaultInterestRate.String()); err != nil {
			return fmt.Errorf("seeding interest rate: %w", err)
		}
		return nil
	})
}

func (s *Store) LoadAllAccounts(ctx context.Context) (map[string]model.Account, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT account_number, name, balance, password_hash, role, failed_attempts, is_locked
		FROM accounts`)
	if err != nil {
		return nil, fmt.Errorf("loading accounts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]model.Account)
	for rows.Next() {
		var a model.Account
		var role string
		if err := rows.Scan(&a.AccountNumber, &a.Name, &a.Balance, &a.PasswordHash, &role, &a.FailedAttempts, &a.Locked); err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}
		a.Role = model.Role(role)
		out[a.AccountNumber] = a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading accounts: %w", err)
	}
	return out, nil
}

func (s *Store) LoadTransactions(ctx context.Context, accountNumber string) ([]model.Transaction, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT occurred_at, kind, amount, balance_after
		FROM transactions
		WHERE account_number = $1
		ORDER BY occurred_at DESC, id DESC`, accountNumber)
	if err != nil {
		return nil, fmt.Errorf("loading transactions for %s: %w", accountNumber, err)
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		var t model.Transaction
		var kind string
		if err := rows.Scan(&t.Timestamp, &kind, &t.Amount, &t.Balance); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		t.Kind = model.Kind(kind)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading transactions for %s: %w", accountNumber, err)
	}
	return out, nil
}

func (s *Store) CreateAccount(ctx context.Context, acct model.Account, initial model.Transaction) error {
	return s.inTx(ctx, func(t *Store) error {
		_, err := t.q.ExecContext(ctx, `
			INSERT INTO accounts (account_number, name, balance, password_hash, role, failed_attempts, is_locked)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			acct.AccountNumber, acct.Name, acct.Balance, acct.PasswordHash, string(acct.Role), acct.FailedAttempts, acct.Locked)
		if err != nil {
			return fmt.Errorf("creating account %s: %w", acct.AccountNumber, classify(err))
		}
		return t.insertTransaction(ctx, acct.AccountNumber, initial)
	})
}

func (s *Store) UpdateAccountState(ctx context.Context, acct model.Account) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE accounts SET name = $1, balance = $2, failed_attempts = $3, is_locked = $4
		WHERE account_number = $5`,
		acct.Name, acct.Balance, acct.FailedAttempts, acct.Locked, acct.AccountNumber)
	if err != nil {
		return fmt.Errorf("updating account %s: %w", acct.AccountNumber, classify(err))
	}
	return affectedOne(res, acct.AccountNumber)
}

func (s *Store) UpdatePassword(ctx context.Context, accountNumber, hash string) error {
	res, err := s.q.ExecContext(ctx, `UPDATE accounts SET password_hash = $1 WHERE account_number = $2`, hash, accountNumber)
	if err != nil {
		return fmt.Errorf("updating password for %s: %w", accountNumber, classify(err))
	}
	return affectedOne(res, accountNumber)
}

func (s *Store) SaveTransaction(ctx context.Context, accountNumber string, txn model.Transaction) error {
	return s.insertTransaction(ctx, accountNumber, txn)
}

func (s *Store) insertTransaction(ctx context.Context, accountNumber string, txn model.Transaction) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO transactions (account_number, occurred_at, kind, amount, balance_after)
		VALUES ($1, $2, $3, $4, $5)`,
		accountNumber, txn.Timestamp, string(txn.Kind), txn.Amount, txn.Balance)
	if err != nil {
		return fmt.Errorf("saving transaction for %s: %w", accountNumber, classify(err))
	}
	return nil
}

func (s *Store) ExecuteTransfer(ctx context.Context, from, to store.TransferLeg) error {
	return s.inTx(ctx, func(t *Store) error {
		for _, leg := range []store.TransferLeg{from, to} {
			res, err := t.q.ExecContext(ctx, `UPDATE accounts SET balance = $1 WHERE account_number = $2`, leg.Balance, leg.AccountNumber)
			if err != nil {
				return fmt.Errorf("updating balance for %s: %w", leg.AccountNumber, classify(err))
			}
			if err := affectedOne(res, leg.AccountNumber); err != nil {
				return err
			}
			if err := t.insertTransaction(ctx, leg.AccountNumber, leg.Transaction); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) DeleteAccount(ctx context.Context, accountNumber string) error {
	return s.inTx(ctx, func(t *Store) error {
		if _, err := t.q.ExecContext(ctx, `DELETE FROM transactions WHERE account_number = $1`, accountNumber); err != nil {
			return fmt.Errorf("deleting transactions for %s: %w", accountNumber, err)
		}
		res, err := t.q.ExecContext(ctx, `DELETE FROM accounts WHERE account_number = $1`, accountNumber)
		if err != nil {
			return fmt.Errorf("deleting account %s: %w", accountNumber, err)
		}
		return affectedOne(res, accountNumber)
	})
}

func (s *Store) LogAdminAction(ctx context.Context, entry model.AuditEntry) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO audit_log (occurred_at, admin, action, target, details)
		VALUES ($1, $2, $3, $4, $5)`,
		entry.Timestamp, entry.Admin, string(entry.Action), entry.Target, entry.Details)
	if err != nil {
		return fmt.Errorf("writing audit entry: %w", err)
	}
	return nil
}

func (s *Store) AuditLog(ctx context.Context) ([]model.AuditEntry, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT occurred_at, admin, action, target, details
		FROM audit_log
		ORDER BY occurred_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("loading audit log: %w", err)
	}
	defer rows.Close()

	var out []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var action string
		if err := rows.Scan(&e.Timestamp, &e.Admin, &action, &e.Target, &e.Details); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		e.Action = model.AuditAction(action)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading audit log: %w", err)
	}
	return out, nil
}

func (s *Store) InterestRate(ctx context.Context) (decimal.Decimal, error) {
	var raw string
	err := s.q.QueryRowContext(ctx, `SELECT value FROM system_config WHERE key = $1`, interestRateKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return store.DefaultInterestRate, nil
	}
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("reading interest rate: %w", err)
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parsing interest rate %q: %w", raw, err)
	}
	return rate, nil
}

func (s *Store) SetInterestRate(ctx context.Context, rate decimal.Decimal) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO system_config (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		interestRateKey, rate.String())
	if err != nil {
		return fmt.Errorf("writing interest rate: %w", err)
	}
	return nil
}

func (s *Store) WithTx(ctx context.Context, fn func(store.Gateway) error) error {
	return s.inTx(ctx, func(t *Store) error { return fn(t) })
}

// inTx runs fn in a transaction, joining the current one when s is already
// bound to a transaction.
func (s *Store) inTx(ctx context.Context, fn func(*Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(&Store{db: s.db, q: tx, tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rolling back: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func affectedOne(res sql.Result, accountNumber string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", accountNumber, store.ErrNotFound)
	}
	return nil
}

// classify maps constraint violations onto the store sentinels.
func classify(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case codeUniqueViolation:
		return fmt.Errorf("%w: %s", store.ErrDuplicate, pqErr.Message)
	case codeForeignKeyViolation:
		return fmt.Errorf("%w: %s", store.ErrNotFound, pqErr.Message)
	}
	return err
}
