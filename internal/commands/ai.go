package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/aiclassify"
)

func newAICommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ai",
		Short: "Categorize with the language model fallback",
	}
	cmd.AddCommand(
		newAIRunCommand(opts),
		newAISuggestCommand(opts),
		newAIApplyCommand(opts),
	)
	return cmd
}

func newAIRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Categorize every uncategorized transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, cls, err := opts.openAI(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.fallback(cls).AutoCategorize(ctx, a.user)
			if err != nil {
				return err
			}
			printStats(a, stats)
			return nil
		},
	}
}

func printStats(a *app, stats *aiclassify.Stats) {
	success.Fprintf(a.out, "Categorized %d of %d transactions\n", stats.Categorized, stats.Total)
	if stats.Failed > 0 {
		warning.Fprintf(a.out, "%d left uncategorized\n", stats.Failed)
	}
	for _, be := range stats.BatchErrors {
		warning.Fprintf(a.out, "  %v\n", be)
	}
}

func newAISuggestCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <txn-id>...",
		Short: "Show proposed categories without changing anything",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args, "transaction")
			if err != nil {
				return err
			}
			a, ctx, cls, err := opts.openAI(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			sugg, err := a.fallback(cls).Suggest(ctx, a.user, ids)
			if err != nil {
				return err
			}
			tw := newTable(a.out)
			fmt.Fprintln(tw, "TXN\tCATEGORY\tCONFIDENCE")
			for _, id := range ids {
				s, ok := sugg[id]
				if !ok {
					continue
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\n", id, s.CategoryName, s.Confidence)
			}
			return tw.Flush()
		},
	}
}

func newAIApplyCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <txn-id> <category>",
		Short: "Accept a suggestion and learn a rule from it",
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
			if catID == nil {
				return fmt.Errorf("apply needs a category")
			}
			rule, err := aiclassify.NewFallback(a.store, nil, a.categorizer()).Apply(ctx, a.user, txnID, *catID)
			if err != nil {
				return err
			}
			success.Fprintf(a.out, "Transaction %d -> %s\n", txnID, args[1])
			printLearned(a, rule)
			return nil
		},
	}
}
