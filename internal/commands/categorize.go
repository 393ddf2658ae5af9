package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/model"
)

func newCategorizeCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categorize",
		Short: "Set transaction categories by hand",
	}
	cmd.AddCommand(
		newCategorizeSetCommand(opts),
		newCategorizeBulkCommand(opts),
		newCategorizeApplyRulesCommand(opts),
	)
	return cmd
}

func newCategorizeSetCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "set <transaction-id> <category|none>",
		Short: "Categorize one transaction and learn a rule for its merchant",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			txnID, err := parseID(args[0], "transaction")
			if err != nil {
				return err
			}
			a, ctx, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			catID, err := a.categoryRef(ctx, args[1])
			if err != nil {
				return err
			}
			learned, err := a.categorizer().SetCategory(ctx, a.user, txnID, catID)
			if err != nil {
				return err
			}
			success.Fprintf(a.out, "Transaction %d set to %s\n", txnID, args[1])
			printLearned(a, learned)
			return nil
		},
	}
}

func newCategorizeBulkCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "bulk <category|none> <transaction-id>...",
		Short: "Apply one category to several transactions",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args[1:], "transaction")
			if err != nil {
				return err
			}
			a, ctx, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			catID, err := a.categoryRef(ctx, args[0])
			if err != nil {
				return err
			}
			n, err := a.categorizer().BulkSetCategory(ctx, a.user, ids, catID)
			if err != nil {
				return err
			}
			success.Fprintf(a.out, "Updated %d transactions\n", n)
			return nil
		},
	}
}

func newCategorizeApplyRulesCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "apply-rules",
		Short: "Run rules and built-in patterns over uncategorized transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.categorizer().ApplyRules(ctx, a.user)
			if err != nil {
				return err
			}
			success.Fprintf(a.out, "Categorized %d transactions\n", n)
			return nil
		},
	}
}

func printLearned(a *app, r *model.Rule) {
	if r == nil {
		return
	}
	fmt.Fprintf(a.out, "Learned rule %d: %q (priority %d)\n", r.ID, r.Keyword, r.Priority)
}
