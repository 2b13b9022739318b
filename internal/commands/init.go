package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/config"
	"github.com/cleared-dev/ledger/internal/gitops"
)

func newInitCommand(flags *globalFlags) *cobra.Command {
	var driver string
	var dsn string
	var useGit bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a ledger data directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := flags.dir
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd, absDir, driver, dsn, useGit)
		},
	}

	cmd.Flags().StringVar(&driver, "store", config.DriverCSV, "storage driver (csv or postgres)")
	cmd.Flags().StringVar(&dsn, "dsn", "", "PostgreSQL connection string")
	cmd.Flags().BoolVar(&useGit, "git", false, "track the data directory in git and commit after every change")

	return cmd
}

func runInit(cmd *cobra.Command, dir, driver, dsn string, useGit bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking config: %w", err)
	}

	cfg := config.Default()
	cfg.Store.Driver = driver
	cfg.Store.DSN = dsn
	cfg.Git.AutoCommit = useGit

	// Validate with environment overrides, but persist only what was asked for.
	effective := *cfg
	config.ApplyEnv(&effective)
	if err := effective.Validate(); err != nil {
		return err
	}
	if useGit && driver != config.DriverCSV {
		return fmt.Errorf("--git needs the %s store", config.DriverCSV)
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Opening the ledger creates the schema and the default admin.
	a, err := openWithConfig(cmd, dir, &effective)
	if err != nil {
		return err
	}
	a.close()

	out := cmd.OutOrStdout()
	if !useGit {
		fmt.Fprintf(out, "Initialized ledger at %s (%s store)\n", dir, driver)
		return nil
	}

	repo := gitops.Repo{Dir: dir, AuthorName: cfg.Git.AuthorName, AuthorEmail: cfg.Git.AuthorEmail}
	if err := repo.Init(cmd.Context()); err != nil {
		return fmt.Errorf("git init: %w", err)
	}
	hash, err := repo.Snapshot(cmd.Context(), "init: ledger data directory")
	if err != nil {
		return fmt.Errorf("initial commit: %w", err)
	}
	fmt.Fprintf(out, "Initialized ledger at %s (%s store, %s)\n", dir, driver, hash)
	return nil
}
