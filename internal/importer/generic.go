package importer

import (
	"strings"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/normalize"
	"github.com/cleared-dev/tally/internal/source"
)

// GenericParser infers the date, description and amount columns from the
// header row. Negative amounts are expenses.
type GenericParser struct{}

// Candidate header substrings per role, in preference order.
var (
	genericDateHeaders   = []string{"date", "transaction date", "posted date", "trans date"}
	genericDescHeaders   = []string{"description", "desc", "memo", "transaction", "details"}
	genericAmountHeaders = []string{"amount", "debit", "credit", "transaction amount"}
)

var genericDateLayouts = []string{
	"1/2/2006",
	"1-2-2006",
	"2006-1-2",
	"1/2/06",
	"1-2-06",
	"2/1/2006",
	"2-1-2006",
}

// Format returns the parser format.
func (p *GenericParser) Format() Format { return FormatGeneric }

// Parse reads a headed statement of unknown origin. A header that lacks any
// of the three roles fails the whole file.
func (p *GenericParser) Parse(t *source.Table) (*Batch, error) {
	rows, err := tableRows(FormatGeneric, t)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &ParseFailure{Format: FormatGeneric, Reason: "empty file"}
	}
	cols, ok := InferColumns(rows[0])
	if !ok {
		return nil, &ParseFailure{Format: FormatGeneric, Reason: "could not detect required columns (date, description, amount)"}
	}

	b := &Batch{Format: FormatGeneric}
	for i, rec := range rows[1:] {
		amount := normalize.CleanAmount(cell(rec, cols.Amount))
		typ := model.TxnIncome
		if amount.IsNegative() {
			typ = model.TxnExpense
		}
		desc := normalize.ScrubDescription(cell(rec, cols.Description))
		b.add(i+2, cell(rec, cols.Date), genericDateLayouts, desc, amount, typ)
	}
	return b, nil
}

// Columns holds inferred column indexes.
type Columns struct {
	Date        int
	Description int
	Amount      int
}

// InferColumns matches header names against the role patterns. Patterns
// are tried in order and the first column containing one wins.
func InferColumns(header []string) (Columns, bool) {
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.ToLower(strings.TrimSpace(h))
	}
	date := matchColumn(names, genericDateHeaders)
	desc := matchColumn(names, genericDescHeaders)
	amount := matchColumn(names, genericAmountHeaders)
	if date < 0 || desc < 0 || amount < 0 {
		return Columns{}, false
	}
	return Columns{Date: date, Description: desc, Amount: amount}, true
}

func matchColumn(names, patterns []string) int {
	for _, p := range patterns {
		for i, n := range names {
			if strings.Contains(n, p) {
				return i
			}
		}
	}
	return -1
}
