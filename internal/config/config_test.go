package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Store = StoreConfig{Driver: DriverPostgres, DSN: "postgres://ledger@localhost/ledger?sslmode=disable"}
	cfg.Bank.Currency = "EUR"
	cfg.Bank.BcryptCost = 4
	cfg.Git.AutoCommit = true

	path := filepath.Join(t.TempDir(), FileName)
	err := Save(path, cfg)
	require.NoError(t, err)

	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, cfg.Store, got.Store)
	assert.Equal(t, "EUR", got.Bank.Currency)
	assert.Equal(t, 4, got.Bank.BcryptCost)
	assert.Equal(t, cfg.Bank.DefaultAdminPassword, got.Bank.DefaultAdminPassword)
	assert.Equal(t, cfg.Log, got.Log)
	assert.True(t, got.Git.AutoCommit)
	assert.Equal(t, cfg.Git.AuthorName, got.Git.AuthorName)
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DriverCSV, cfg.Store.Driver)
	assert.Empty(t, cfg.Store.DSN)
	assert.Equal(t, "INR", cfg.Bank.Currency)
	assert.Equal(t, "Admin@1234", cfg.Bank.DefaultAdminPassword)
	assert.Zero(t, cfg.Bank.BcryptCost)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.False(t, cfg.Git.AutoCommit)
	assert.NoError(t, cfg.Validate())
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadKeepsDefaultsForMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("bank:\n  currency: USD\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "USD", cfg.Bank.Currency)
	assert.Equal(t, DriverCSV, cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestYAMLFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	err := Save(path, Default())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "driver: csv")
	assert.Contains(t, contents, "currency: INR")
	assert.Contains(t, contents, "level: info")
	assert.Contains(t, contents, "auto_commit: false")
	assert.NotContains(t, contents, "dsn:")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvStoreDriver, DriverPostgres)
	t.Setenv(EnvDSN, "postgres://example")
	t.Setenv(EnvLogLevel, "debug")

	cfg := Default()
	ApplyEnv(cfg)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "postgres://example", cfg.Store.DSN)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvDSN, "")
	t.Setenv(EnvLogLevel, "warn")

	cfg := Default()
	cfg.Bank.Currency = "GBP"
	require.NoError(t, Save(filepath.Join(dir, FileName), cfg))
	require.NoError(t, os.WriteFile(filepath.Join(dir, EnvFile), []byte("LEDGER_LOG_LEVEL=error\n"), 0o644))

	got, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "GBP", got.Bank.Currency)
	// Variables already in the environment win over .env.
	assert.Equal(t, "warn", got.Log.Level)
}

func TestLoadDirWithoutFiles(t *testing.T) {
	t.Setenv(EnvStoreDriver, "")
	t.Setenv(EnvDSN, "")
	t.Setenv(EnvLogLevel, "")

	cfg, err := LoadDir(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Store.Driver = DriverPostgres
	assert.ErrorContains(t, cfg.Validate(), "requires a dsn")

	cfg.Store.DSN = "postgres://x"
	assert.NoError(t, cfg.Validate())

	cfg.Store.Driver = "sqlite"
	assert.ErrorContains(t, cfg.Validate(), "unknown store driver")
}
