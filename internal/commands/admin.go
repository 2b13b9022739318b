package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

const auditTimeFormat = "2006-01-02 15:04:05"

func newAdminCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrative operations (requires an admin login)",
	}
	cmd.AddCommand(
		newAdminUsersCommand(flags),
		newAdminAuditCommand(flags),
		newAdminUnlockCommand(flags),
		newAdminDeleteCommand(flags),
		newAdminInterestCommand(flags),
		newAdminRateCommand(flags),
		newAdminVerifyCommand(flags),
	)
	return cmd
}

func newAdminUsersCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List all accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, flags, func(ctx context.Context, a *app) error {
				users, err := a.eng.UsersReport(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ACCOUNT\tNAME\tBALANCE\tROLE\tFAILED\tSTATUS")
				for _, u := range users {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
						u.AccountNumber, u.Name, u.Balance.StringFixed(2), u.Role, u.FailedAttempts, u.Status())
				}
				return tw.Flush()
			})
		},
	}
}

func newAdminAuditCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Show the audit log, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, flags, func(ctx context.Context, a *app) error {
				entries, err := a.eng.AuditLog(ctx)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					a.printf("Audit log is empty.\n")
					return nil
				}
				tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "TIME\tADMIN\tACTION\tTARGET\tDETAILS")
				for _, en := range entries {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
						en.Timestamp.Local().Format(auditTimeFormat), en.Admin, en.Action, en.Target, en.Details)
				}
				return tw.Flush()
			})
		},
	}
}

func newAdminUnlockCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock ACCOUNT",
		Short: "Unlock a locked account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, flags, func(ctx context.Context, a *app) error {
				res, err := a.eng.UnlockAccount(ctx, args[0])
				if err != nil {
					return err
				}
				if res.AlreadyActive {
					a.printf("Account %s is already active.\n", res.AccountNumber)
					return nil
				}
				a.commit(ctx, fmt.Sprintf("admin: unlock %s", res.AccountNumber))
				a.printf("Account %s has been unlocked.\n", res.AccountNumber)
				return nil
			})
		},
	}
}

func newAdminDeleteCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ACCOUNT",
		Short: "Delete an account and its transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, flags, func(ctx context.Context, a *app) error {
				if err := a.eng.DeleteAccount(ctx, args[0]); err != nil {
					return err
				}
				a.commit(ctx, fmt.Sprintf("admin: delete %s", args[0]))
				a.printf("Account %s deleted.\n", args[0])
				return nil
			})
		},
	}
}

func newAdminInterestCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interest",
		Short: "Interest operations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "apply",
		Short: "Credit interest to every user account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, flags, func(ctx context.Context, a *app) error {
				rep, err := a.eng.ApplyInterest(ctx)
				if err != nil {
					return err
				}
				a.commit(ctx, fmt.Sprintf("admin: interest %s%%", rep.Rate.String()))
				a.printf("Interest applied at %s%% to %d accounts. Total credited: %s.\n",
					rep.Rate.String(), len(rep.Credits), a.money(rep.Total))
				return nil
			})
		},
	})
	return cmd
}

func newAdminRateCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "rate [NEW_RATE]",
		Short: "Show or set the annual interest rate",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return withApp(cmd, flags, func(ctx context.Context, a *app) error {
					rate, err := a.eng.InterestRate(ctx)
					if err != nil {
						return err
					}
					a.printf("Current interest rate: %s%%\n", rate.String())
					return nil
				})
			}

			rate, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd, flags, func(ctx context.Context, a *app) error {
				if err := a.eng.SetInterestRate(ctx, rate); err != nil {
					return err
				}
				a.commit(ctx, fmt.Sprintf("admin: rate %s%%", rate.String()))
				a.printf("Interest rate set to %s%%.\n", rate.String())
				return nil
			})
		},
	}
}

func newAdminVerifyCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check every account's transaction history for consistency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, flags, func(ctx context.Context, a *app) error {
				problems, err := a.eng.VerifyLedgers(ctx)
				if err != nil {
					return err
				}
				if len(problems) == 0 {
					a.printf("All ledgers are consistent.\n")
					return nil
				}
				for _, p := range problems {
					a.printf("  %s\n", p.Error())
				}
				return fmt.Errorf("%d ledger problem(s) found", len(problems))
			})
		},
	}
}

