package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/statement"
)

func newStatementCommand(flags *globalFlags) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "statement",
		Short: "Export the logged-in account's transactions to CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, flags, func(ctx context.Context, a *app) error {
				acct, err := a.eng.CurrentAccount()
				if err != nil {
					return err
				}
				if len(acct.Transactions) == 0 {
					a.printf("No transactions to export.\n")
					return nil
				}

				if out == "" {
					path, err := statement.Export(a.dir, acct.AccountNumber, acct.Transactions)
					if err != nil {
						return err
					}
					a.printf("Statement exported to %s\n", path)
					return nil
				}

				if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
					return fmt.Errorf("creating directory: %w", err)
				}
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("creating statement: %w", err)
				}
				if err := statement.WriteCSV(f, acct.Transactions); err != nil {
					_ = f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return fmt.Errorf("closing statement: %w", err)
				}
				a.printf("Statement exported to %s\n", out)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default Transactions_<account>.csv in the data directory)")

	return cmd
}
