package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/model"
)

func newAccountCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage bank accounts",
	}
	cmd.AddCommand(newAccountAddCommand(opts), newAccountListCommand(opts))
	return cmd
}

func newAccountAddCommand(opts *options) *cobra.Command {
	var name, typ string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an account to import statements into",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t := model.AccountType(typ)
			if !t.Valid() {
				return fmt.Errorf("unknown account type %q", typ)
			}
			a, ctx, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			acct := &model.Account{UserID: a.user, Name: name, Type: t}
			if _, err := a.store.InsertAccount(ctx, acct); err != nil {
				return err
			}
			success.Fprintf(a.out, "Added account %d: %s (%s)\n", acct.ID, acct.Name, acct.Type)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "account name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&typ, "type", string(model.AccountTypeChecking), "checking, savings, credit_card or investment")

	return cmd
}

func newAccountListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			accounts, err := a.store.ListAccounts(ctx, a.user)
			if err != nil {
				return err
			}
			tw := newTable(a.out)
			fmt.Fprintln(tw, "ID\tNAME\tTYPE")
			for _, acct := range accounts {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", acct.ID, acct.Name, acct.Type)
			}
			return tw.Flush()
		},
	}
}
