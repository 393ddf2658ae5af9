package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRulesCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage keyword categorization rules",
	}
	cmd.AddCommand(
		newRulesAddCommand(opts),
		newRulesListCommand(opts),
		newRulesToggleCommand(opts, "disable", false),
		newRulesToggleCommand(opts, "enable", true),
	)
	return cmd
}

func newRulesAddCommand(opts *options) *cobra.Command {
	var priority int

	cmd := &cobra.Command{
		Use:   "add <keyword> <category>",
		Short: "Add a rule; descriptions containing keyword get category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
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
				return fmt.Errorf("a rule needs a category")
			}
			r, err := a.categorizer().AddRule(ctx, a.user, args[0], *catID, priority)
			if err != nil {
				return err
			}
			success.Fprintf(a.out, "Added rule %d: %q -> %s (priority %d)\n", r.ID, r.Keyword, args[1], r.Priority)
			return nil
		},
	}

	cmd.Flags().IntVar(&priority, "priority", 1, "higher priorities are tried first")

	return cmd
}

func newRulesListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rules in the order they are tried",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			rules, err := a.categorizer().Rules(ctx, a.user)
			if err != nil {
				return err
			}
			names, err := a.categoryNames(ctx)
			if err != nil {
				return err
			}
			tw := newTable(a.out)
			fmt.Fprintln(tw, "ID\tPRIORITY\tACTIVE\tKEYWORD\tCATEGORY")
			for _, r := range rules {
				fmt.Fprintf(tw, "%d\t%d\t%t\t%s\t%s\n", r.ID, r.Priority, r.IsActive, r.Keyword, names[r.CategoryID])
			}
			return tw.Flush()
		},
	}
}

func newRulesToggleCommand(opts *options, verb string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <rule-id>",
		Short: fmt.Sprintf("%s a rule", verb),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "rule")
			if err != nil {
				return err
			}
			a, ctx, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.categorizer().SetRuleActive(ctx, a.user, id, active); err != nil {
				return err
			}
			success.Fprintf(a.out, "Rule %d %sd\n", id, verb)
			return nil
		},
	}
}
