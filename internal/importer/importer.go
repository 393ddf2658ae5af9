// Package importer detects statement formats and parses them into
// transaction candidates.
package importer

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/normalize"
	"github.com/cleared-dev/tally/internal/source"
)

// Format identifies a statement layout.
type Format string

const (
	FormatAuto    Format = "auto"
	FormatAmex    Format = "amex"
	FormatCIBC    Format = "cibc"
	FormatEQBank  Format = "eq_bank"
	FormatSimplii Format = "simplii"
	FormatTD      Format = "td"
	FormatOFX     Format = "ofx"
	FormatGeneric Format = "generic"
)

// Parser converts a statement into candidates.
type Parser interface {
	Format() Format
	Parse(t *source.Table) (*Batch, error)
}

// Candidate is one parsed row, not yet checked against the store.
// Amount is positive; Type carries the direction.
type Candidate struct {
	Row         int
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Type        model.TxnType
}

// Normalized binds the candidate to an account.
func (c Candidate) Normalized(accountID int64) model.NormalizedTransaction {
	return model.NormalizedTransaction{
		AccountID:   accountID,
		Date:        c.Date,
		Description: c.Description,
		Amount:      c.Amount,
		Type:        c.Type,
	}
}

// Batch is the result of parsing one file.
type Batch struct {
	Format     Format
	Candidates []Candidate
	Skipped    []RowError
}

func (b *Batch) skip(row int, reason string) {
	b.Skipped = append(b.Skipped, RowError{Row: row, Reason: reason})
}

// add validates a row and appends it as a candidate, or records why it was
// skipped. amount is taken as an absolute value.
func (b *Batch) add(row int, rawDate string, layouts []string, rawDesc string, amount decimal.Decimal, typ model.TxnType) {
	date, ok := normalize.ParseDate(rawDate, layouts)
	if !ok {
		b.skip(row, fmt.Sprintf("unparseable date %q", strings.TrimSpace(rawDate)))
		return
	}
	b.addDated(row, date, rawDesc, amount, typ)
}

func (b *Batch) addDated(row int, date time.Time, rawDesc string, amount decimal.Decimal, typ model.TxnType) {
	desc := normalize.Description(rawDesc, model.MaxDescriptionLen)
	if desc == "" {
		b.skip(row, "empty description")
		return
	}
	amount = amount.Abs().Round(2)
	if amount.IsZero() {
		b.skip(row, "zero or missing amount")
		return
	}
	b.Candidates = append(b.Candidates, Candidate{
		Row:         row,
		Date:        date,
		Description: desc,
		Amount:      amount,
		Type:        typ,
	})
}

// RowError records a row that was skipped. It never aborts a file.
type RowError struct {
	Row    int
	Reason string
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// ParseFailure is fatal for one file: nothing from it is committed.
type ParseFailure struct {
	Format Format
	Reason string
	Err    error
}

func (e *ParseFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parsing %s statement: %s: %v", e.Format, e.Reason, e.Err)
	}
	return fmt.Sprintf("parsing %s statement: %s", e.Format, e.Reason)
}

func (e *ParseFailure) Unwrap() error { return e.Err }

// IsParseFailure reports whether err is or wraps a ParseFailure.
func IsParseFailure(err error) bool {
	var pf *ParseFailure
	return errors.As(err, &pf)
}

// tableRows returns the rows of t or a ParseFailure for format f.
func tableRows(f Format, t *source.Table) ([][]string, error) {
	rows, err := t.Rows()
	if err != nil {
		return nil, &ParseFailure{Format: f, Reason: "malformed file", Err: err}
	}
	return rows, nil
}

// cell returns rec[i] trimmed, or "" when the row is short.
func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// headerIndex maps lower-cased, trimmed header names to column indexes.
func headerIndex(rec []string) map[string]int {
	idx := make(map[string]int, len(rec))
	for i, h := range rec {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, ok := idx[key]; !ok {
			idx[key] = i
		}
	}
	return idx
}
