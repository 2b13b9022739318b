// Package statement exports an account's transaction history as CSV.
package statement

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cleared-dev/ledger/internal/model"
)

// TimeFormat is the timestamp layout of the Date & Time column.
const TimeFormat = "2006-01-02 15:04:05"

// Header is the first row of every export.
var Header = []string{"Date & Time", "Transaction Type", "Amount", "Balance"}

// FileName is the conventional export name for an account.
func FileName(accountNumber string) string {
	return fmt.Sprintf("Transactions_%s.csv", accountNumber)
}

// WriteCSV writes txns in the order given.
func WriteCSV(w io.Writer, txns []model.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, t := range txns {
		row := []string{
			t.Timestamp.Format(TimeFormat),
			string(t.Kind),
			t.Amount.StringFixed(2),
			t.Balance.StringFixed(2),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing transaction %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Export writes FileName(accountNumber) into dir and returns its path.
func Export(dir, accountNumber string, txns []model.Transaction) (string, error) {
	path := filepath.Join(dir, FileName(accountNumber))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating statement: %w", err)
	}
	if err := WriteCSV(f, txns); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing statement: %w", err)
	}
	return path, nil
}
