package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/bank"
	"github.com/cleared-dev/ledger/internal/config"
	"github.com/cleared-dev/ledger/internal/gitops"
	"github.com/cleared-dev/ledger/internal/logging"
	"github.com/cleared-dev/ledger/internal/store"
	"github.com/cleared-dev/ledger/internal/store/csvstore"
	"github.com/cleared-dev/ledger/internal/store/pgstore"
)

// Credentials may come from the environment or <dir>/.env.
const (
	envAccount  = "LEDGER_ACCOUNT"
	envPassword = "LEDGER_PASSWORD"
)

// lockWait bounds how long a command waits for another command working on
// the same ledger.
const lockWait = 30 * time.Second

// app is an opened data directory: configuration, logger, gateway and engine.
type app struct {
	dir    string
	cfg    *config.Config
	log    *logrus.Logger
	eng    *bank.Engine
	out    io.Writer
	closer func() error
}

func openApp(cmd *cobra.Command, flags *globalFlags) (*app, error) {
	cfg, err := config.LoadDir(flags.dir)
	if err != nil {
		return nil, err
	}
	return openWithConfig(cmd, flags.dir, cfg)
}

func openWithConfig(cmd *cobra.Command, dir string, cfg *config.Config) (*app, error) {
	ctx := cmd.Context()
	log, err := logging.NewWithOutput(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	gw, closer, err := openGateway(ctx, dir, cfg.Store)
	if err != nil {
		return nil, err
	}

	opts := []bank.Option{
		bank.WithLogger(log),
		bank.WithCurrency(cfg.Bank.Currency),
		bank.WithAdminPassword(cfg.Bank.DefaultAdminPassword),
	}
	if cfg.Bank.BcryptCost > 0 {
		opts = append(opts, bank.WithHashCost(cfg.Bank.BcryptCost))
	}
	eng, err := bank.NewEngine(ctx, gw, opts...)
	if err != nil {
		_ = closer()
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	return &app{dir: dir, cfg: cfg, log: log, eng: eng, out: cmd.OutOrStdout(), closer: closer}, nil
}

// openGateway opens the configured store. The returned gateway holds the
// ledger lock until the closer runs.
func openGateway(ctx context.Context, dir string, sc config.StoreConfig) (store.Gateway, func() error, error) {
	ctx, cancel := context.WithTimeout(ctx, lockWait)
	defer cancel()

	switch sc.Driver {
	case config.DriverPostgres:
		pg, err := pgstore.Open(ctx, sc.DSN)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	default:
		cs, err := csvstore.Open(ctx, dir)
		if err != nil {
			return nil, nil, err
		}
		return cs, cs.Close, nil
	}
}

func (a *app) close() {
	a.eng.Logout()
	if err := a.closer(); err != nil {
		a.log.WithError(err).Warn("closing store")
	}
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *app) money(d decimal.Decimal) string {
	return a.cfg.Bank.Currency + " " + d.StringFixed(2)
}

// login authenticates with the flag or environment credentials.
func (a *app) login(ctx context.Context, flags *globalFlags) (bank.LoginResult, error) {
	account := firstNonEmpty(flags.account, os.Getenv(envAccount))
	password := firstNonEmpty(flags.password, os.Getenv(envPassword))
	if account == "" {
		return bank.LoginResult{}, fmt.Errorf("no account given (use --account or %s)", envAccount)
	}
	res, err := a.eng.Login(ctx, account, password)
	if err != nil {
		return res, err
	}
	if res.Warning != "" {
		fmt.Fprintf(a.out, "Warning: %s\n", res.Warning)
	}
	return res, nil
}

// commit snapshots the data directory when git auto-commit is enabled.
func (a *app) commit(ctx context.Context, message string) {
	if !a.cfg.Git.AutoCommit || a.cfg.Store.Driver != config.DriverCSV || !gitops.IsRepo(a.dir) {
		return
	}
	repo := gitops.Repo{Dir: a.dir, AuthorName: a.cfg.Git.AuthorName, AuthorEmail: a.cfg.Git.AuthorEmail}
	hash, err := repo.Snapshot(ctx, message)
	if errors.Is(err, gitops.ErrNothingToCommit) {
		return
	}
	if err != nil {
		a.log.WithError(err).Warn("auto-commit failed")
		return
	}
	a.log.WithField("commit", hash).Debug("data directory committed")
}

// withApp opens the data directory, runs fn and closes it.
func withApp(cmd *cobra.Command, flags *globalFlags, fn func(ctx context.Context, a *app) error) error {
	a, err := openApp(cmd, flags)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(cmd.Context(), a)
}

// withSession is withApp plus a login with the global credentials.
func withSession(cmd *cobra.Command, flags *globalFlags, fn func(ctx context.Context, a *app) error) error {
	return withApp(cmd, flags, func(ctx context.Context, a *app) error {
		if _, err := a.login(ctx, flags); err != nil {
			return err
		}
		return fn(ctx, a)
	})
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q", s)
	}
	return d, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
