package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/statement"
)

func newAccountCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts",
	}
	cmd.AddCommand(newAccountCreateCommand(flags))
	return cmd
}

func newAccountCreateCommand(flags *globalFlags) *cobra.Command {
	var name, number, balance string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open a new account (the password comes from --password)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(balance)
			if err != nil {
				return err
			}
			password := firstNonEmpty(flags.password, os.Getenv(envPassword))
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				view, err := a.eng.CreateAccount(ctx, name, number, password, amount)
				if err != nil {
					return err
				}
				a.commit(ctx, fmt.Sprintf("account: create %s", view.AccountNumber))
				a.printf("Account created successfully! You can now log in.\n")
				a.printf("Account %s opened for %s with %s.\n", view.AccountNumber, view.Name, a.money(view.Balance))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "account holder name (required)")
	cmd.Flags().StringVar(&number, "number", "", "account number (required)")
	cmd.Flags().StringVar(&balance, "balance", "0", "initial deposit")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("number")

	return cmd
}

func newLoginCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Check credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				res, err := a.login(ctx, flags)
				if err != nil {
					return err
				}
				a.printf("Login successful. Welcome, %s.\n", res.Account.Name)
				return nil
			})
		},
	}
}

func newShowCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show account details",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, flags, func(ctx context.Context, a *app) error {
				acct, err := a.eng.CurrentAccount()
				if err != nil {
					return err
				}
				a.printf("Account Number: %s\n", acct.AccountNumber)
				a.printf("Name:           %s\n", acct.Name)
				a.printf("Balance:        %s\n", a.money(acct.Balance))
				a.printf("Status:         %s\n", acct.Status())
				a.printf("Role:           %s\n", acct.Role)
				a.printf("Transactions:   %d\n", len(acct.Transactions))
				return nil
			})
		},
	}
}

func newHistoryCommand(flags *globalFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the logged-in account's transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, flags, func(ctx context.Context, a *app) error {
				acct, err := a.eng.CurrentAccount()
				if err != nil {
					return err
				}
				txns := acct.Transactions
				if len(txns) == 0 {
					a.printf("No transactions.\n")
					return nil
				}

				tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "DATE & TIME\tTYPE\tAMOUNT\tBALANCE")
				shown := 0
				for i := len(txns) - 1; i >= 0; i-- {
					if limit > 0 && shown == limit {
						break
					}
					t := txns[i]
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
						t.Timestamp.Format(statement.TimeFormat), t.Kind, t.Amount.StringFixed(2), t.Balance.StringFixed(2))
					shown++
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most this many transactions (0 for all)")

	return cmd
}
