package importer

import (
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/normalize"
	"github.com/cleared-dev/tally/internal/source"
)

// AmexParser parses American Express exports: no header, columns
// date, description, (unused), amount. Charges are positive.
type AmexParser struct{}

const (
	amexColDate   = 0
	amexColDesc   = 1
	amexColAmount = 3
)

var amexDateLayouts = []string{"2 Jan. 2006", "2 Jan 2006", "2 January 2006", "2 January. 2006"}

// Format returns the parser format.
func (p *AmexParser) Format() Format { return FormatAmex }

// Parse reads an Amex statement.
func (p *AmexParser) Parse(t *source.Table) (*Batch, error) {
	rows, err := tableRows(FormatAmex, t)
	if err != nil {
		return nil, err
	}
	b := &Batch{Format: FormatAmex}
	for i, rec := range rows {
		amount := normalize.CleanAmount(cell(rec, amexColAmount))
		typ := model.TxnExpense
		if amount.IsNegative() {
			typ = model.TxnIncome
		}
		b.add(i+1, cell(rec, amexColDate), amexDateLayouts, cell(rec, amexColDesc), amount, typ)
	}
	return b, nil
}

// CIBCParser parses CIBC exports: no header, columns date, description,
// debit, credit.
type CIBCParser struct{}

const (
	cibcColDate   = 0
	cibcColDesc   = 1
	cibcColDebit  = 2
	cibcColCredit = 3
)

var cibcDateLayouts = []string{"2006-01-02"}

// Format returns the parser format.
func (p *CIBCParser) Format() Format { return FormatCIBC }

// Parse reads a CIBC statement. A positive debit is an expense, otherwise
// a positive credit is income.
func (p *CIBCParser) Parse(t *source.Table) (*Batch, error) {
	rows, err := tableRows(FormatCIBC, t)
	if err != nil {
		return nil, err
	}
	b := &Batch{Format: FormatCIBC}
	for i, rec := range rows {
		debit := normalize.CleanAmount(cell(rec, cibcColDebit))
		credit := normalize.CleanAmount(cell(rec, cibcColCredit))
		switch {
		case debit.IsPositive():
			b.add(i+1, cell(rec, cibcColDate), cibcDateLayouts, cell(rec, cibcColDesc), debit, model.TxnExpense)
		case credit.IsPositive():
			b.add(i+1, cell(rec, cibcColDate), cibcDateLayouts, cell(rec, cibcColDesc), credit, model.TxnIncome)
		default:
			// Still report a bad date ahead of the missing amount.
			b.add(i+1, cell(rec, cibcColDate), cibcDateLayouts, cell(rec, cibcColDesc), decimal.Zero, model.TxnExpense)
		}
	}
	return b, nil
}

// EQBankParser parses EQ Bank exports: no header, columns date,
// description, amount, balance. Withdrawals are negative or parenthesized.
type EQBankParser struct{}

const (
	eqColDate   = 0
	eqColDesc   = 1
	eqColAmount = 2
)

var eqDateLayouts = []string{"2-Jan-06", "2-January-06", "2-Jan-2006", "2-January-2006"}

// Format returns the parser format.
func (p *EQBankParser) Format() Format { return FormatEQBank }

// Parse reads an EQ Bank statement.
func (p *EQBankParser) Parse(t *source.Table) (*Batch, error) {
	rows, err := tableRows(FormatEQBank, t)
	if err != nil {
		return nil, err
	}
	b := &Batch{Format: FormatEQBank}
	for i, rec := range rows {
		amount := normalize.CleanAmount(cell(rec, eqColAmount))
		typ := model.TxnIncome
		if amount.IsNegative() {
			typ = model.TxnExpense
		}
		b.add(i+1, cell(rec, eqColDate), eqDateLayouts, cell(rec, eqColDesc), amount, typ)
	}
	return b, nil
}

// SimpliiParser parses Simplii Financial exports, which carry a header row
// with Date, Transaction Details, Funds Out and Funds In.
type SimpliiParser struct{}

var simpliiDateLayouts = []string{"1/2/2006", "2/1/2006"}

// Format returns the parser format.
func (p *SimpliiParser) Format() Format { return FormatSimplii }

// Parse reads a Simplii statement.
func (p *SimpliiParser) Parse(t *source.Table) (*Batch, error) {
	rows, err := tableRows(FormatSimplii, t)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &Batch{Format: FormatSimplii}, nil
	}
	cols, err := requireColumns(FormatSimplii, rows[0], "date", "transaction details")
	if err != nil {
		return nil, err
	}
	hdr := headerIndex(rows[0])
	out, hasOut := hdr["funds out"]
	in, hasIn := hdr["funds in"]
	if !hasOut {
		out = -1
	}
	if !hasIn {
		in = -1
	}

	b := &Batch{Format: FormatSimplii}
	for i, rec := range rows[1:] {
		row := i + 2
		fundsOut := normalize.CleanAmount(cell(rec, out))
		fundsIn := normalize.CleanAmount(cell(rec, in))
		date, desc := cell(rec, cols[0]), cell(rec, cols[1])
		switch {
		case fundsOut.IsPositive():
			b.add(row, date, simpliiDateLayouts, desc, fundsOut, model.TxnExpense)
		case fundsIn.IsPositive():
			b.add(row, date, simpliiDateLayouts, desc, fundsIn, model.TxnIncome)
		default:
			b.add(row, date, simpliiDateLayouts, desc, decimal.Zero, model.TxnExpense)
		}
	}
	return b, nil
}

// TDParser parses TD exports with a date,description,debit header. Every
// row is recorded as an expense; rows without a debit are skipped.
type TDParser struct{}

var tdDateLayouts = []string{"1/2/2006", "2006-01-02", "2/1/2006"}

// Format returns the parser format.
func (p *TDParser) Format() Format { return FormatTD }

// Parse reads a TD statement.
func (p *TDParser) Parse(t *source.Table) (*Batch, error) {
	rows, err := tableRows(FormatTD, t)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &Batch{Format: FormatTD}, nil
	}
	cols, err := requireColumns(FormatTD, rows[0], "date", "description", "debit")
	if err != nil {
		return nil, err
	}

	b := &Batch{Format: FormatTD}
	for i, rec := range rows[1:] {
		debit := normalize.CleanAmount(cell(rec, cols[2]))
		b.add(i+2, cell(rec, cols[0]), tdDateLayouts, cell(rec, cols[1]), debit, model.TxnExpense)
	}
	return b, nil
}

// requireColumns returns the indexes of the named header columns, matched
// case-insensitively, or a ParseFailure naming the first one missing.
func requireColumns(f Format, header []string, names ...string) ([]int, error) {
	hdr := headerIndex(header)
	cols := make([]int, len(names))
	for i, name := range names {
		idx, ok := hdr[name]
		if !ok {
			return nil, &ParseFailure{Format: f, Reason: "missing column " + name}
		}
		cols[i] = idx
	}
	return cols, nil
}
