package categories

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/store"
)

const (
	numFields = 3
	colName   = 0
	colColor  = 1
	colParent = 2
)

var csvHeader = []string{"name", "color", "parent"}

// Entry is one row of a category CSV. Parent is referenced by name.
type Entry struct {
	Name   string
	Color  string
	Parent string
}

// ReadEntries reads a category CSV with a name,color,parent header.
func ReadEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading categories CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	entries := make([]Entry, 0, len(records)-1)
	for i, rec := range records[1:] {
		e := Entry{
			Name:   strings.TrimSpace(rec[colName]),
			Color:  strings.TrimSpace(rec[colColor]),
			Parent: strings.TrimSpace(rec[colParent]),
		}
		if e.Name == "" {
			return nil, fmt.Errorf("row %d: empty name", i+2)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// WriteEntries writes a category CSV.
func WriteEntries(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, e := range entries {
		row := make([]string, numFields)
		row[colName] = e.Name
		row[colColor] = e.Color
		row[colParent] = e.Parent
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// Entries converts categories to CSV entries, resolving parent IDs to names.
func Entries(cats []model.Category) []Entry {
	names := make(map[int64]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	entries := make([]Entry, 0, len(cats))
	for _, c := range cats {
		e := Entry{Name: c.Name, Color: c.Color}
		if c.ParentID != nil {
			e.Parent = names[*c.ParentID]
		}
		entries = append(entries, e)
	}
	return entries
}

// Export writes the user's categories as CSV.
func (s *Service) Export(ctx context.Context, userID int64, w io.Writer) error {
	cats, err := s.List(ctx, userID)
	if err != nil {
		return fmt.Errorf("listing categories: %w", err)
	}
	return WriteEntries(w, Entries(cats))
}

// Import creates the categories in r that the user does not already have,
// then links parents by name. It returns how many categories were created.
// Nothing is kept when any row fails.
func (s *Service) Import(ctx context.Context, userID int64, r io.Reader) (int, error) {
	entries, err := ReadEntries(r)
	if err != nil {
		return 0, err
	}

	created := 0
	err = s.store.InTx(ctx, func(st store.Store) error {
		tx := NewService(st)
		for _, e := range entries {
			if _, err := tx.Create(ctx, userID, e.Name, e.Color, nil); err != nil {
				if errors.Is(err, ErrDuplicateName) {
					continue
				}
				return fmt.Errorf("creating %q: %w", e.Name, err)
			}
			created++
		}

		for _, e := range entries {
			if e.Parent == "" {
				continue
			}
			child, err := tx.Find(ctx, userID, e.Name)
			if err != nil {
				return err
			}
			parent, err := tx.Find(ctx, userID, e.Parent)
			if err != nil {
				return fmt.Errorf("parent of %q: %w", e.Name, err)
			}
			if err := tx.SetParent(ctx, userID, child.ID, &parent.ID); err != nil {
				return fmt.Errorf("linking %q under %q: %w", e.Name, e.Parent, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}
