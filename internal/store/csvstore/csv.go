package csvstore

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledger/internal/model"
)

// CSV headers for the data files.
const (
	AccountsHeader     = "account_number,name,balance,password_hash,role,failed_attempts,is_locked"
	TransactionsHeader = "account_number,timestamp,type,amount,balance"
	AuditHeader        = "timestamp,admin,action,target,details"
)

const timeFormat = time.RFC3339Nano

const (
	acctNumFields = 7
	acctColNumber = 0
	acctColName   = 1
	acctColBal    = 2
	acctColHash   = 3
	acctColRole   = 4
	acctColFailed = 5
	acctColLocked = 6
)

const (
	txnNumFields = 5
	txnColNumber = 0
	txnColTime   = 1
	txnColKind   = 2
	txnColAmount = 3
	txnColBal    = 4
)

const (
	auditNumFields = 5
	auditColTime   = 0
	auditColAdmin  = 1
	auditColAction = 2
	auditColTarget = 3
	auditColDetail = 4
)

// StoredTransaction is a transactions.csv row.
type StoredTransaction struct {
	AccountNumber string
	model.Transaction
}

func readRows(r io.Reader, numFields int) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) <= 1 {
		return nil, nil
	}
	return records[1:], nil
}

func writeRows(w io.Writer, header string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(strings.Split(header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadAccounts reads accounts.csv.
func ReadAccounts(r io.Reader) ([]model.Account, error) {
	rows, err := readRows(r, acctNumFields)
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}
	var out []model.Account
	for i, rec := range rows {
		acct, err := UnmarshalAccount(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		out = append(out, acct)
	}
	return out, nil
}

// WriteAccounts writes accounts.csv including the header.
func WriteAccounts(w io.Writer, accts []model.Account) error {
	rows := make([][]string, len(accts))
	for i, a := range accts {
		rows[i] = MarshalAccount(a)
	}
	return writeRows(w, AccountsHeader, rows)
}

// MarshalAccount converts an account to a CSV row.
func MarshalAccount(a model.Account) []string {
	row := make([]string, acctNumFields)
	row[acctColNumber] = a.AccountNumber
	row[acctColName] = a.Name
	row[acctColBal] = a.Balance.String()
	row[acctColHash] = a.PasswordHash
	row[acctColRole] = string(a.Role)
	row[acctColFailed] = strconv.Itoa(a.FailedAttempts)
	row[acctColLocked] = strconv.FormatBool(a.Locked)
	return row
}

// UnmarshalAccount converts a CSV row to an account.
func UnmarshalAccount(record []string) (model.Account, error) {
	if len(record) != acctNumFields {
		return model.Account{}, fmt.Errorf("expected %d fields, got %d", acctNumFields, len(record))
	}
	balance, err := decimal.NewFromString(record[acctColBal])
	if err != nil {
		return model.Account{}, fmt.Errorf("parsing balance %q: %w", record[acctColBal], err)
	}
	failed, err := strconv.Atoi(record[acctColFailed])
	if err != nil {
		return model.Account{}, fmt.Errorf("parsing failed_attempts %q: %w", record[acctColFailed], err)
	}
	locked, err := strconv.ParseBool(record[acctColLocked])
	if err != nil {
		return model.Account{}, fmt.Errorf("parsing is_locked %q: %w", record[acctColLocked], err)
	}
	return model.Account{
		AccountNumber:  record[acctColNumber],
		Name:           record[acctColName],
		Balance:        balance,
		PasswordHash:   record[acctColHash],
		Role:           model.Role(record[acctColRole]),
		FailedAttempts: failed,
		Locked:         locked,
	}, nil
}

// ReadTransactions reads transactions.csv.
func ReadTransactions(r io.Reader) ([]StoredTransaction, error) {
	rows, err := readRows(r, txnNumFields)
	if err != nil {
		return nil, fmt.Errorf("reading transactions CSV: %w", err)
	}
	var out []StoredTransaction
	for i, rec := range rows {
		txn, err := UnmarshalTransaction(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		out = append(out, txn)
	}
	return out, nil
}

// WriteTransactions writes transactions.csv including the header.
func WriteTransactions(w io.Writer, txns []StoredTransaction) error {
	rows := make([][]string, len(txns))
	for i, t := range txns {
		rows[i] = MarshalTransaction(t)
	}
	return writeRows(w, TransactionsHeader, rows)
}

// MarshalTransaction converts a transaction to a CSV row.
func MarshalTransaction(t StoredTransaction) []string {
	row := make([]string, txnNumFields)
	row[txnColNumber] = t.AccountNumber
	row[txnColTime] = t.Timestamp.Format(timeFormat)
	row[txnColKind] = string(t.Kind)
	row[txnColAmount] = t.Amount.String()
	row[txnColBal] = t.Balance.String()
	return row
}

// UnmarshalTransaction converts a CSV row to a transaction.
func UnmarshalTransaction(record []string) (StoredTransaction, error) {
	if len(record) != txnNumFields {
		return StoredTransaction{}, fmt.Errorf("expected %d fields, got %d", txnNumFields, len(record))
	}
	ts, err := time.Parse(timeFormat, record[txnColTime])
	if err != nil {
		return StoredTransaction{}, fmt.Errorf("parsing timestamp %q: %w", record[txnColTime], err)
	}
	kind := model.Kind(record[txnColKind])
	if !kind.Valid() {
		return StoredTransaction{}, fmt.Errorf("unknown transaction type %q", record[txnColKind])
	}
	amount, err := decimal.NewFromString(record[txnColAmount])
	if err != nil {
		return StoredTransaction{}, fmt.Errorf("parsing amount %q: %w", record[txnColAmount], err)
	}
	balance, err := decimal.NewFromString(record[txnColBal])
	if err != nil {
		return StoredTransaction{}, fmt.Errorf("parsing balance %q: %w", record[txnColBal], err)
	}
	return StoredTransaction{
		AccountNumber: record[txnColNumber],
		Transaction: model.Transaction{
			Timestamp: ts,
			Kind:      kind,
			Amount:    amount,
			Balance:   balance,
		},
	}, nil
}

// ReadAudit reads audit-log.csv.
func ReadAudit(r io.Reader) ([]model.AuditEntry, error) {
	rows, err := readRows(r, auditNumFields)
	if err != nil {
		return nil, fmt.Errorf("reading audit log CSV: %w", err)
	}
	var out []model.AuditEntry
	for i, rec := range rows {
		e, err := UnmarshalAuditEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// WriteAudit writes audit-log.csv including the header.
func WriteAudit(w io.Writer, entries []model.AuditEntry) error {
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = MarshalAuditEntry(e)
	}
	return writeRows(w, AuditHeader, rows)
}

// MarshalAuditEntry converts an audit entry to a CSV row.
func MarshalAuditEntry(e model.AuditEntry) []string {
	row := make([]string, auditNumFields)
	row[auditColTime] = e.Timestamp.Format(timeFormat)
	row[auditColAdmin] = e.Admin
	row[auditColAction] = string(e.Action)
	row[auditColTarget] = e.Target
	row[auditColDetail] = e.Details
	return row
}

// UnmarshalAuditEntry converts a CSV row to an audit entry.
func UnmarshalAuditEntry(record []string) (model.AuditEntry, error) {
	if len(record) != auditNumFields {
		return model.AuditEntry{}, fmt.Errorf("expected %d fields, got %d", auditNumFields, len(record))
	}
	ts, err := time.Parse(timeFormat, record[auditColTime])
	if err != nil {
		return model.AuditEntry{}, fmt.Errorf("parsing timestamp %q: %w", record[auditColTime], err)
	}
	return model.AuditEntry{
		Timestamp: ts,
		Admin:     record[auditColAdmin],
		Action:    model.AuditAction(record[auditColAction]),
		Target:    record[auditColTarget],
		Details:   record[auditColDetail],
	}, nil
}
