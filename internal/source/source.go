// Package source reads an uploaded statement into rows of text cells,
// whatever container it arrived in.
package source

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Kind is the container an upload was read from.
type Kind string

const (
	KindText Kind = "text"
	KindXLSX Kind = "xlsx"
	KindXLS  Kind = "xls"
)

// headLines is how many leading lines format detection looks at.
const headLines = 3

var (
	utf8BOM   = []byte{0xEF, 0xBB, 0xBF}
	zipMagic  = []byte("PK\x03\x04")
	ole2Magic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// Table is an upload read into memory. For text uploads Rows is filled
// lazily by CSV, since not every format is delimited (OFX).
type Table struct {
	Name string
	Kind Kind
	Raw  []byte
	Head []string

	rows    [][]string
	rowsErr error
	loaded  bool
}

// Read loads r fully and sniffs the container from its leading bytes.
func Read(name string, r io.Reader) (*Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)

	t := &Table{Name: name, Raw: raw}
	switch {
	case bytes.HasPrefix(raw, zipMagic):
		rows, err := readXLSX(raw)
		if err != nil {
			return nil, fmt.Errorf("reading %s as xlsx: %w", name, err)
		}
		t.Kind = KindXLSX
		t.setRows(rows)
	case bytes.HasPrefix(raw, ole2Magic):
		rows, err := readXLS(raw)
		if err != nil {
			return nil, fmt.Errorf("reading %s as xls: %w", name, err)
		}
		t.Kind = KindXLS
		t.setRows(rows)
	default:
		t.Kind = KindText
		t.Head = textHead(raw, headLines)
	}
	return t, nil
}

// ReadFile opens path and reads it with Read.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return Read(filepath.Base(path), f)
}

// Head returns the leading lines of the file at path, as format detection
// sees them.
func Head(path string) ([]string, error) {
	t, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return t.Head, nil
}

// Rows returns the table as cells. Text is parsed as CSV on first use; a
// syntax error is returned on every call.
func (t *Table) Rows() ([][]string, error) {
	if !t.loaded {
		t.rows, t.rowsErr = readCSV(t.Raw)
		t.loaded = true
	}
	return t.rows, t.rowsErr
}

func (t *Table) setRows(rows [][]string) {
	t.rows = rows
	t.loaded = true
	for i := 0; i < len(rows) && i < headLines; i++ {
		t.Head = append(t.Head, strings.Join(rows[i], ","))
	}
}

func readCSV(raw []byte) ([][]string, error) {
	cr := csv.NewReader(bytes.NewReader(raw))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	return rows, nil
}

func textHead(raw []byte, n int) []string {
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(raw))
	for len(lines) < n && sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
