package commands

import (
	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/buildinfo"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	dir      string
	account  string
	password string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:     "ledger",
		Short:   "Single-tenant banking ledger",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.dir, "dir", ".", "ledger data directory")
	pf.StringVar(&flags.account, "account", "", "account number to log in as (or "+envAccount+")")
	pf.StringVar(&flags.password, "password", "", "account password (or "+envPassword+")")

	rootCmd.AddCommand(
		newInitCommand(&flags),
		newAccountCommand(&flags),
		newLoginCommand(&flags),
		newShowCommand(&flags),
		newHistoryCommand(&flags),
		newDepositCommand(&flags),
		newWithdrawCommand(&flags),
		newTransferCommand(&flags),
		newProfileCommand(&flags),
		newStatementCommand(&flags),
		newEMICommand(&flags),
		newAdminCommand(&flags),
		newBackupCommand(&flags),
	)

	return rootCmd
}
