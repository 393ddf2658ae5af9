// Package report aggregates spending for charts and summaries.
package report

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
)

// UncategorizedLabel names the bucket for transactions without a category.
const UncategorizedLabel = "Uncategorized"

// Bucket is one labelled total.
type Bucket struct {
	Label  string
	Amount decimal.Decimal
	Count  int
}

type accumulator struct {
	order   []string
	buckets map[string]*Bucket
}

func newAccumulator() *accumulator {
	return &accumulator{buckets: map[string]*Bucket{}}
}

func (a *accumulator) add(label string, amount decimal.Decimal) {
	b, ok := a.buckets[label]
	if !ok {
		b = &Bucket{Label: label}
		a.buckets[label] = b
		a.order = append(a.order, label)
	}
	b.Amount = b.Amount.Add(amount)
	b.Count++
}

func (a *accumulator) list() []Bucket {
	out := make([]Bucket, 0, len(a.order))
	for _, label := range a.order {
		out = append(out, *a.buckets[label])
	}
	return out
}

// byAmountDesc sorts largest first, then by label.
func byAmountDesc(bs []Bucket) []Bucket {
	sort.SliceStable(bs, func(i, j int) bool {
		if c := bs[i].Amount.Cmp(bs[j].Amount); c != 0 {
			return c > 0
		}
		return bs[i].Label < bs[j].Label
	})
	return bs
}

// CategoryBreakdown sums amounts per category name. Transactions with no
// category, or a category not in cats, land in the Uncategorized bucket, so
// the buckets always add up to the input total.
func CategoryBreakdown(txns []model.Transaction, cats []model.Category) []Bucket {
	names := make(map[int64]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	acc := newAccumulator()
	for _, t := range txns {
		acc.add(categoryLabel(t, names), t.Amount)
	}
	return byAmountDesc(acc.list())
}

func categoryLabel(t model.Transaction, names map[int64]string) string {
	if t.CategoryID == nil {
		return UncategorizedLabel
	}
	if name, ok := names[*t.CategoryID]; ok {
		return name
	}
	return UncategorizedLabel
}

// DailyTrend sums amounts per calendar day, oldest first.
func DailyTrend(txns []model.Transaction) []Bucket {
	acc := newAccumulator()
	for _, t := range txns {
		acc.add(t.Date.Format(model.DateFormat), t.Amount)
	}
	out := acc.list()
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// MonthlyComparison sums amounts per month, oldest first, labelled "Jan 2024".
func MonthlyComparison(txns []model.Transaction) []Bucket {
	acc := newAccumulator()
	for _, t := range txns {
		acc.add(t.Date.Format("2006-01"), t.Amount)
	}
	out := acc.list()
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	for i := range out {
		if d, err := parseMonth(out[i].Label); err == nil {
			out[i].Label = d
		}
	}
	return out
}

// AccountDistribution sums amounts per account name, largest first.
func AccountDistribution(txns []model.Transaction, accounts []model.Account) []Bucket {
	names := make(map[int64]string, len(accounts))
	for _, a := range accounts {
		names[a.ID] = a.Name
	}
	acc := newAccumulator()
	for _, t := range txns {
		name, ok := names[t.AccountID]
		if !ok {
			name = fmt.Sprintf("Account %d", t.AccountID)
		}
		acc.add(name, t.Amount)
	}
	return byAmountDesc(acc.list())
}

// Summary holds headline numbers for a set of transactions.
type Summary struct {
	Total             decimal.Decimal
	AvgMonthly        decimal.Decimal
	TopCategory       string
	TopCategoryAmount decimal.Decimal
	CategoriesCount   int
}

var thirty = decimal.NewFromInt(30)

// Summarize computes a Summary. The monthly average divides the total by
// the covered span in 30-day months, never by less than one.
func Summarize(txns []model.Transaction, cats []model.Category) Summary {
	if len(txns) == 0 {
		return Summary{}
	}
	var s Summary
	first, last := txns[0].Date, txns[0].Date
	for _, t := range txns {
		s.Total = s.Total.Add(t.Amount)
		if t.Date.Before(first) {
			first = t.Date
		}
		if t.Date.After(last) {
			last = t.Date
		}
	}

	days := int64(last.Sub(first).Hours() / 24)
	months := decimal.NewFromInt(days).Div(thirty)
	if months.LessThan(decimal.NewFromInt(1)) {
		months = decimal.NewFromInt(1)
	}
	s.AvgMonthly = s.Total.Div(months).Round(2)

	breakdown := CategoryBreakdown(txns, cats)
	s.CategoriesCount = len(breakdown)
	if len(breakdown) > 0 {
		s.TopCategory = breakdown[0].Label
		s.TopCategoryAmount = breakdown[0].Amount
	}
	return s
}
