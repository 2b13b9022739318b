package statement

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledger/internal/model"
)

var t0 = time.Date(2025, 2, 3, 14, 5, 9, 0, time.UTC)

func sample() []model.Transaction {
	return []model.Transaction{
		{Timestamp: t0, Kind: model.KindInitialDeposit, Amount: decimal.NewFromInt(1000), Balance: decimal.NewFromInt(1000)},
		{Timestamp: t0.Add(time.Hour), Kind: model.KindTransferOut, Amount: decimal.RequireFromString("12.5"), Balance: decimal.RequireFromString("987.5")},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sample()))

	want := "Date & Time,Transaction Type,Amount,Balance\n" +
		"2025-02-03 14:05:09,Initial Deposit,1000.00,1000.00\n" +
		"2025-02-03 15:05:09,Transfer Out,12.50,987.50\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "Date & Time,Transaction Type,Amount,Balance\n", buf.String())
}

func TestExport(t *testing.T) {
	dir := t.TempDir()

	path, err := Export(dir, "AC1001", sample())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Transactions_AC1001.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Transfer Out,12.50,987.50")
}

func TestExportMissingDir(t *testing.T) {
	_, err := Export(filepath.Join(t.TempDir(), "nope"), "AC1", sample())
	assert.ErrorContains(t, err, "creating statement")
}
