package commands

import (
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
)

var (
	success = color.New(color.FgGreen)
	warning = color.New(color.FgYellow)
	heading = color.New(color.Bold)
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}
