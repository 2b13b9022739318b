package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// File names inside a data directory.
const (
	FileName = "ledger.yaml"
	EnvFile  = ".env"
)

// Store drivers.
const (
	DriverCSV      = "csv"
	DriverPostgres = "postgres"
)

// Environment overrides applied by ApplyEnv.
const (
	EnvStoreDriver = "LEDGER_STORE_DRIVER"
	EnvDSN         = "LEDGER_DSN"
	EnvLogLevel    = "LEDGER_LOG_LEVEL"
)

// Config represents the top-level ledger.yaml configuration.
type Config struct {
	Store StoreConfig `yaml:"store"`
	Bank  BankConfig  `yaml:"bank"`
	Log   LogConfig   `yaml:"log"`
	Git   GitConfig   `yaml:"git"`
}

// StoreConfig selects the persistence gateway.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn,omitempty"`
}

// BankConfig holds engine settings.
type BankConfig struct {
	Currency             string `yaml:"currency"`
	DefaultAdminPassword string `yaml:"default_admin_password"`
	BcryptCost           int    `yaml:"bcrypt_cost,omitempty"` // 0 means bcrypt.DefaultCost
}

// LogConfig controls the operational log.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// GitConfig controls git integration.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// Load reads a ledger.yaml file from disk. Fields missing from the file keep
// their Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new data directory.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Driver: DriverCSV,
		},
		Bank: BankConfig{
			Currency:             "INR",
			DefaultAdminPassword: "Admin@1234",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Git: GitConfig{
			AutoCommit:  false,
			AuthorName:  "Ledger",
			AuthorEmail: "ledger@localhost",
		},
	}
}

// LoadDir loads dir/.env into the environment (without overriding variables
// already set), then dir/ledger.yaml if present, then applies ApplyEnv.
func LoadDir(dir string) (*Config, error) {
	envPath := filepath.Join(dir, EnvFile)
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("loading %s: %w", EnvFile, err)
		}
	}

	cfg, err := Load(filepath.Join(dir, FileName))
	if errors.Is(err, fs.ErrNotExist) {
		cfg = Default()
	} else if err != nil {
		return nil, err
	}

	ApplyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg from LEDGER_* environment variables.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv(EnvStoreDriver); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv(EnvDSN); v != "" {
		cfg.Store.DSN = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
}

// Validate checks the store selection.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverCSV:
	case DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store driver %q requires a dsn (set store.dsn or %s)", DriverPostgres, EnvDSN)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	return nil
}
