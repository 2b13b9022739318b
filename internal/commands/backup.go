package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/config"
	"github.com/cleared-dev/ledger/internal/gitops"
)

func newBackupCommand(flags *globalFlags) *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Commit the data directory to git (requires an admin login)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, flags, func(ctx context.Context, a *app) error {
				sess, err := a.eng.RequireAdmin()
				if err != nil {
					return err
				}
				if a.cfg.Store.Driver != config.DriverCSV {
					return fmt.Errorf("backup needs the %s store; use your database's own backup tooling", config.DriverCSV)
				}
				if !gitops.Available() {
					return errors.New("git is not installed")
				}

				repo := gitops.Repo{Dir: a.dir, AuthorName: a.cfg.Git.AuthorName, AuthorEmail: a.cfg.Git.AuthorEmail}
				if err := repo.Init(ctx); err != nil {
					return fmt.Errorf("git init: %w", err)
				}
				if message == "" {
					message = fmt.Sprintf("backup: by %s", sess.AccountNumber)
				}
				hash, err := repo.Snapshot(ctx, message)
				if errors.Is(err, gitops.ErrNothingToCommit) {
					a.printf("Nothing to back up.\n")
					return nil
				}
				if err != nil {
					return fmt.Errorf("backup: %w", err)
				}
				a.printf("Backup committed as %s.\n", hash)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")

	return cmd
}
