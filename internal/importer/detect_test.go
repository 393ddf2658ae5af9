package importer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetector_Detect(t *testing.T) {
	tests := []struct {
		name string
		head []string
		want Format
	}{
		{"amex", []string{"05 Jan. 2024,STARBUCKS,,4.50"}, FormatAmex},
		{"cibc name", []string{"CIBC statement"}, FormatCIBC},
		{"cibc mastercard", []string{"2024-01-02,MASTERCARD PAYMENT,,50.00", "2024-01-03,PAYMENT THANK YOU,,10"}, FormatCIBC},
		{"mastercard alone", []string{"2024-01-02,MASTERCARD PAYMENT,,50.00", "2024-01-03,GROCERY,5.00,"}, FormatGeneric},
		{"eq bank", []string{"05-Jan-24,Transfer from savings,$500.00,$1500.00"}, FormatEQBank},
		{"eq bank deposit", []string{"5-Feb-2024,Interest deposit,$1.25,$10.00"}, FormatEQBank},
		{"eq date without keyword", []string{"05-Jan-24,Bill payment,($1.00),$2.00"}, FormatGeneric},
		{"simplii", []string{"Date, Transaction Details, Funds Out, Funds In"}, FormatSimplii},
		{"td", []string{"Date,Description,Debit,Credit,Balance"}, FormatTD},
		{"ofx", []string{"OFXHEADER:100", "DATA:OFXSGML"}, FormatOFX},
		{"ofx xml", []string{`<?xml version="1.0"?>`, `<?OFX OFXHEADER="200"?>`}, FormatOFX},
		{"generic", []string{"Transaction Date,Description,Amount"}, FormatGeneric},
		{"empty", nil, FormatGeneric},
	}
	d := NewDetector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.Detect(tt.head))
		})
	}
}

func TestDetector_DetectFile(t *testing.T) {
	d := NewDetector()
	fixtures := map[string]Format{
		"amex.csv":      FormatAmex,
		"eqbank.csv":    FormatEQBank,
		"simplii.csv":   FormatSimplii,
		"td.csv":        FormatTD,
		"generic.csv":   FormatGeneric,
		"statement.ofx": FormatOFX,
	}
	for name, want := range fixtures {
		assert.Equal(t, want, d.DetectFile(filepath.Join("testdata", name)), name)
	}
}

func TestDetector_DetectFileNeverFails(t *testing.T) {
	d := NewDetector()
	assert.Equal(t, FormatGeneric, d.DetectFile(filepath.Join(t.TempDir(), "missing.csv")))

	path := filepath.Join(t.TempDir(), "truncated.csv")
	require.NoError(t, os.WriteFile(path, []byte{0xff, 0xfe, 0x00}, 0o644))
	assert.Equal(t, FormatGeneric, d.DetectFile(path))
}
