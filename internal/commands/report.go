package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/report"
)

func newReportCommand(opts *options) *cobra.Command {
	var (
		period    string
		accountID int64
		from, to  string
		xlsxPath  string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize spending by category, day, month and account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := report.Query{Period: report.Period(period), AccountID: accountID}
			var err error
			if q.From, err = parseDateFlag("from", from); err != nil {
				return err
			}
			if q.To, err = parseDateFlag("to", to); err != nil {
				return err
			}
			if (from != "" || to != "") && period == "" {
				q.Period = report.PeriodCustom
			}

			a, ctx, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			sp, err := report.NewService(a.store).Spending(ctx, a.user, q)
			if err != nil {
				return err
			}

			if xlsxPath != "" {
				f, err := os.Create(xlsxPath)
				if err != nil {
					return fmt.Errorf("creating %s: %w", xlsxPath, err)
				}
				if err := report.WriteXLSX(f, sp); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				success.Fprintf(a.out, "Wrote %s\n", xlsxPath)
				return nil
			}
			return printSpending(a, sp)
		},
	}

	cmd.Flags().StringVar(&period, "period", "", "last_30, last_90, last_180, last_365, all or custom (default last_365)")
	cmd.Flags().Int64Var(&accountID, "account", 0, "only this account")
	cmd.Flags().StringVar(&from, "from", "", "custom range start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "custom range end (YYYY-MM-DD)")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "write the report to an Excel workbook instead")

	return cmd
}

func printSpending(a *app, sp *report.Spending) error {
	s := sp.Summary
	heading.Fprintln(a.out, "Summary")
	fmt.Fprintf(a.out, "  Total spent:     $%s\n", s.Total.StringFixed(2))
	fmt.Fprintf(a.out, "  Monthly average: $%s\n", s.AvgMonthly.StringFixed(2))
	if s.TopCategory != "" {
		fmt.Fprintf(a.out, "  Top category:    %s ($%s)\n", s.TopCategory, s.TopCategoryAmount.StringFixed(2))
	}
	fmt.Fprintf(a.out, "  Transactions:    %d in %d categories\n", sp.Transactions, s.CategoriesCount)

	sections := []struct {
		title   string
		buckets []report.Bucket
	}{
		{"By category", sp.Categories},
		{"By month", sp.Monthly},
		{"By account", sp.Accounts},
	}
	for _, sec := range sections {
		if len(sec.buckets) == 0 {
			continue
		}
		fmt.Fprintln(a.out)
		heading.Fprintln(a.out, sec.title)
		tw := newTable(a.out)
		for _, b := range sec.buckets {
			fmt.Fprintf(tw, "  %s\t$%s\t%d\n", b.Label, b.Amount.StringFixed(2), b.Count)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

