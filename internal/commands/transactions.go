package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/store"
)

func newTransactionsCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"txns"},
		Short:   "Browse imported transactions",
	}
	cmd.AddCommand(newTransactionsListCommand(opts))
	return cmd
}

func newTransactionsListCommand(opts *options) *cobra.Command {
	var (
		accountID     int64
		category      string
		uncategorized bool
		typ           string
		from, to      string
		limit         int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			f := store.Filter{UserID: a.user, AccountID: accountID, Uncategorized: uncategorized, Limit: limit}
			if typ != "" {
				f.Type = model.TxnType(typ)
				if !f.Type.Valid() {
					return fmt.Errorf("unknown transaction type %q", typ)
				}
			}
			if category != "" {
				id, err := a.categoryRef(ctx, category)
				if err != nil {
					return err
				}
				if id == nil {
					f.Uncategorized = true
				}
				f.CategoryID = id
			}
			if f.From, err = parseDateFlag("from", from); err != nil {
				return err
			}
			if f.To, err = parseDateFlag("to", to); err != nil {
				return err
			}

			txns, err := a.store.ListTransactions(ctx, f)
			if err != nil {
				return err
			}
			names, err := a.categoryNames(ctx)
			if err != nil {
				return err
			}

			tw := newTable(a.out)
			fmt.Fprintln(tw, "ID\tDATE\tTYPE\tAMOUNT\tCATEGORY\tMERCHANT\tDESCRIPTION")
			for _, t := range txns {
				cat := "-"
				if t.CategoryID != nil {
					cat = names[*t.CategoryID]
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
					t.ID, t.Date.Format(model.DateFormat), t.Type, t.Amount.StringFixed(2), cat, t.Merchant, t.Description)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().Int64Var(&accountID, "account", 0, "only this account")
	cmd.Flags().StringVar(&category, "category", "", "only this category (id, name or none)")
	cmd.Flags().BoolVar(&uncategorized, "uncategorized", false, "only uncategorized transactions")
	cmd.Flags().StringVar(&typ, "type", "", "expense or income")
	cmd.Flags().StringVar(&from, "from", "", "start date, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "end date, YYYY-MM-DD")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum rows")

	return cmd
}

func parseDateFlag(name, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(model.DateFormat, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", name, err)
	}
	return d, nil
}
