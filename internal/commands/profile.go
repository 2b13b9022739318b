package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newProfileCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Update the logged-in account's profile",
	}
	cmd.AddCommand(newProfileNameCommand(flags), newProfilePasswordCommand(flags))
	return cmd
}

func newProfileNameCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "name NEW_NAME",
		Short: "Change the account holder name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, flags, func(ctx context.Context, a *app) error {
				view, err := a.eng.UpdateName(ctx, args[0])
				if err != nil {
					return err
				}
				a.commit(ctx, fmt.Sprintf("profile: rename %s", view.AccountNumber))
				a.printf("Name updated to %s.\n", view.Name)
				return nil
			})
		},
	}
}

func newProfilePasswordCommand(flags *globalFlags) *cobra.Command {
	var oldPW, newPW string

	cmd := &cobra.Command{
		Use:   "password",
		Short: "Change the account password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, flags, func(ctx context.Context, a *app) error {
				old := firstNonEmpty(oldPW, flags.password)
				if err := a.eng.UpdatePassword(ctx, old, newPW); err != nil {
					return err
				}
				if sess, ok := a.eng.CurrentSession(); ok {
					a.commit(ctx, fmt.Sprintf("profile: password %s", sess.AccountNumber))
				}
				a.printf("Password updated successfully.\n")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&oldPW, "old", "", "current password (defaults to --password)")
	cmd.Flags().StringVar(&newPW, "new", "", "new password (required)")
	_ = cmd.MarkFlagRequired("new")

	return cmd
}
