package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/bank"
	"github.com/cleared-dev/ledger/internal/config"
)

func newDepositCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "deposit AMOUNT",
		Short: "Deposit into the logged-in account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd, flags, func(ctx context.Context, a *app) error {
				txn, err := a.eng.Deposit(ctx, amount)
				if err != nil {
					return err
				}
				a.commit(ctx, fmt.Sprintf("deposit: %s", amount.StringFixed(2)))
				a.printf("Successfully deposited %s. New balance: %s.\n", a.money(amount), a.money(txn.Balance))
				return nil
			})
		},
	}
}

func newWithdrawCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw AMOUNT",
		Short: "Withdraw from the logged-in account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd, flags, func(ctx context.Context, a *app) error {
				txn, err := a.eng.Withdraw(ctx, amount)
				if err != nil {
					return err
				}
				a.commit(ctx, fmt.Sprintf("withdraw: %s", amount.StringFixed(2)))
				a.printf("Successfully withdrew %s. New balance: %s.\n", a.money(amount), a.money(txn.Balance))
				return nil
			})
		},
	}
}

func newTransferCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "transfer TO AMOUNT",
		Short: "Transfer to another account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			return withSession(cmd, flags, func(ctx context.Context, a *app) error {
				r, err := a.eng.Transfer(ctx, args[0], amount)
				if err != nil {
					return err
				}
				a.commit(ctx, fmt.Sprintf("transfer: %s -> %s %s", r.From, r.To, amount.StringFixed(2)))
				a.printf("Successfully transferred %s to %s.\n", a.money(r.Amount), r.ToName)
				return nil
			})
		},
	}
}

func newEMICommand(flags *globalFlags) *cobra.Command {
	var principal, rate string
	var years int

	cmd := &cobra.Command{
		Use:   "emi",
		Short: "Estimate the monthly instalment of a loan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parseAmount(principal)
			if err != nil {
				return err
			}
			r, err := parseAmount(rate)
			if err != nil {
				return err
			}
			emi, err := bank.CalculateLoanEMI(p, r, years)
			if err != nil {
				return err
			}
			currency := bank.DefaultCurrency
			if cfg, err := config.LoadDir(flags.dir); err == nil {
				currency = cfg.Bank.Currency
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Estimated EMI: %s %s per month.\n", currency, emi.StringFixed(2))
			return nil
		},
	}

	cmd.Flags().StringVar(&principal, "principal", "", "loan amount (required)")
	cmd.Flags().StringVar(&rate, "rate", "", "annual interest rate in percent (required)")
	cmd.Flags().IntVar(&years, "years", 0, "loan term in years (required)")
	_ = cmd.MarkFlagRequired("principal")
	_ = cmd.MarkFlagRequired("rate")
	_ = cmd.MarkFlagRequired("years")

	return cmd
}
