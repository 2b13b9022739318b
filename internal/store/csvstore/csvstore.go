// Package csvstore persists the ledger as flat files in a data directory.
// The files are loaded into a memstore and rewritten from its commit hook,
// so the in-memory state only advances once every file has been replaced.
// An open Store holds an exclusive lock on the directory: a second process
// waits in Open until the first one closes.
package csvstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/store/memstore"
)

// File names inside the data directory.
const (
	AccountsFile     = "accounts.csv"
	TransactionsFile = "transactions.csv"
	AuditFile        = "audit-log.csv"
	SystemFile       = "system-config.yaml"
	LockFile         = ".ledger.lock"
)

// ErrLocked is returned by Open when ctx ends while another Store holds the
// directory.
var ErrLocked = errors.New("data directory is in use")

const lockRetry = 50 * time.Millisecond

// SystemConfig is the content of system-config.yaml.
type SystemConfig struct {
	InterestRate string `yaml:"interest_rate"`
}

// Store is a memstore backed by files in Dir.
type Store struct {
	*memstore.Store
	Dir  string
	lock *flock.Flock
}

// Open locks the data directory, creating it if needed, and loads it. It
// waits for the current holder until ctx is done. The directory stays locked
// until Close.
func Open(ctx context.Context, dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	lock := flock.New(filepath.Join(dir, LockFile))
	locked, err := lock.TryLockContext(ctx, lockRetry)
	if !locked {
		if err == nil || ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s", ErrLocked, dir)
		}
		return nil, fmt.Errorf("locking data directory: %w", err)
	}

	st, err := Load(dir)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	s := &Store{Dir: dir, lock: lock}
	s.Store = memstore.New(
		memstore.WithSnapshot(st),
		memstore.WithCommitHook(func(next *memstore.Snapshot) error {
			return Flush(dir, next)
		}),
	)
	return s, nil
}

// Close releases the directory lock. The Store must not be used afterwards.
func (s *Store) Close() error {
	if err := s.lock.Unlock(); err != nil {
		return fmt.Errorf("unlocking data directory: %w", err)
	}
	return nil
}

// Load reads every file in dir into a snapshot. Missing files load as empty.
func Load(dir string) (*memstore.Snapshot, error) {
	st := memstore.NewSnapshot()

	if err := readFile(filepath.Join(dir, AccountsFile), func(b []byte) error {
		accts, err := ReadAccounts(bytes.NewReader(b))
		if err != nil {
			return err
		}
		for _, a := range accts {
			st.Accounts[a.AccountNumber] = a
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if err := readFile(filepath.Join(dir, TransactionsFile), func(b []byte) error {
		txns, err := ReadTransactions(bytes.NewReader(b))
		if err != nil {
			return err
		}
		for _, t := range txns {
			st.Transactions[t.AccountNumber] = append(st.Transactions[t.AccountNumber], t.Transaction)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if err := readFile(filepath.Join(dir, AuditFile), func(b []byte) error {
		entries, err := ReadAudit(bytes.NewReader(b))
		if err != nil {
			return err
		}
		st.Audit = entries
		return nil
	}); err != nil {
		return nil, err
	}

	if err := readFile(filepath.Join(dir, SystemFile), func(b []byte) error {
		var sc SystemConfig
		if err := yaml.Unmarshal(b, &sc); err != nil {
			return fmt.Errorf("parsing YAML: %w", err)
		}
		if sc.InterestRate == "" {
			return nil
		}
		rate, err := decimal.NewFromString(sc.InterestRate)
		if err != nil {
			return fmt.Errorf("parsing interest_rate %q: %w", sc.InterestRate, err)
		}
		st.InterestRate = rate
		return nil
	}); err != nil {
		return nil, err
	}

	return st, nil
}

func readFile(path string, parse func([]byte) error) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	if err := parse(b); err != nil {
		return fmt.Errorf("loading %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Flush writes the snapshot to dir. Every file is first written to a
// temporary sibling; the renames only start once all of them succeeded.
func Flush(dir string, st *memstore.Snapshot) error {
	files, err := render(st)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var staged []string
	cleanup := func() {
		for _, tmp := range staged {
			_ = os.Remove(tmp)
		}
	}
	for _, name := range names {
		tmp := filepath.Join(dir, "."+name+".tmp")
		if err := os.WriteFile(tmp, files[name], 0o644); err != nil {
			cleanup()
			return fmt.Errorf("writing %s: %w", name, err)
		}
		staged = append(staged, tmp)
	}
	for i, name := range names {
		if err := os.Rename(staged[i], filepath.Join(dir, name)); err != nil {
			cleanup()
			return fmt.Errorf("replacing %s: %w", name, err)
		}
	}
	return nil
}

func render(st *memstore.Snapshot) (map[string][]byte, error) {
	numbers := make([]string, 0, len(st.Accounts))
	for n := range st.Accounts {
		numbers = append(numbers, n)
	}
	sort.Strings(numbers)

	accts := make([]model.Account, 0, len(numbers))
	var txns []StoredTransaction
	for _, n := range numbers {
		accts = append(accts, st.Accounts[n])
		for _, t := range st.Transactions[n] {
			txns = append(txns, StoredTransaction{AccountNumber: n, Transaction: t})
		}
	}

	var acctBuf, txnBuf, auditBuf bytes.Buffer
	if err := WriteAccounts(&acctBuf, accts); err != nil {
		return nil, fmt.Errorf("rendering %s: %w", AccountsFile, err)
	}
	if err := WriteTransactions(&txnBuf, txns); err != nil {
		return nil, fmt.Errorf("rendering %s: %w", TransactionsFile, err)
	}
	if err := WriteAudit(&auditBuf, st.Audit); err != nil {
		return nil, fmt.Errorf("rendering %s: %w", AuditFile, err)
	}
	sys, err := yaml.Marshal(SystemConfig{InterestRate: st.InterestRate.String()})
	if err != nil {
		return nil, fmt.Errorf("rendering %s: %w", SystemFile, err)
	}

	return map[string][]byte{
		AccountsFile:     acctBuf.Bytes(),
		TransactionsFile: txnBuf.Bytes(),
		AuditFile:        auditBuf.Bytes(),
		SystemFile:       sys,
	}, nil
}
