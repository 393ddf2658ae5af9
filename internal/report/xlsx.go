package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// WriteXLSX writes sp as a workbook with one sheet per aggregation.
func WriteXLSX(w io.Writer, sp *Spending) error {
	f := excelize.NewFile()
	defer f.Close()

	sheets := []struct {
		name    string
		header  string
		buckets []Bucket
	}{
		{"Categories", "Category", sp.Categories},
		{"Trend", "Date", sp.Trend},
		{"Monthly", "Month", sp.Monthly},
		{"Accounts", "Account", sp.Accounts},
	}
	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.name); err != nil {
				return fmt.Errorf("naming sheet %s: %w", s.name, err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("creating sheet %s: %w", s.name, err)
		}
		if err := f.SetSheetRow(s.name, "A1", &[]any{s.header, "Amount", "Transactions"}); err != nil {
			return fmt.Errorf("writing %s header: %w", s.name, err)
		}
		for j, b := range s.buckets {
			cell, err := excelize.CoordinatesToCellName(1, j+2)
			if err != nil {
				return err
			}
			amount, _ := b.Amount.Float64()
			if err := f.SetSheetRow(s.name, cell, &[]any{b.Label, amount, b.Count}); err != nil {
				return fmt.Errorf("writing %s row %d: %w", s.name, j+2, err)
			}
		}
	}

	summary := "Summary"
	if _, err := f.NewSheet(summary); err != nil {
		return fmt.Errorf("creating sheet %s: %w", summary, err)
	}
	total, _ := sp.Summary.Total.Float64()
	avg, _ := sp.Summary.AvgMonthly.Float64()
	top, _ := sp.Summary.TopCategoryAmount.Float64()
	rows := [][]any{
		{"Total", total},
		{"Average per month", avg},
		{"Top category", sp.Summary.TopCategory},
		{"Top category amount", top},
		{"Categories", sp.Summary.CategoriesCount},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summary, cell, &r); err != nil {
			return fmt.Errorf("writing summary: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
