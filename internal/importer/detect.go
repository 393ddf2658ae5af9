package importer

import (
	"regexp"
	"strings"

	"github.com/cleared-dev/tally/internal/source"
)

var (
	amexLeadingDate = regexp.MustCompile(`^\d+\s+(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)`)
	eqLeadingDate   = regexp.MustCompile(`^\d+-\w+-\d+`)
)

// Detector classifies a statement by its leading lines.
type Detector struct{}

// NewDetector returns a Detector.
func NewDetector() *Detector { return &Detector{} }

// Detect returns the first format whose signature matches head, or
// FormatGeneric. It never fails.
func (d *Detector) Detect(head []string) Format {
	if len(head) == 0 {
		return FormatGeneric
	}
	if isOFX(head) {
		return FormatOFX
	}

	first := strings.TrimSpace(head[0])
	second := ""
	if len(head) > 1 {
		second = strings.TrimSpace(head[1])
	}
	lf, ls := strings.ToLower(first), strings.ToLower(second)

	switch {
	case !strings.HasPrefix(lf, "date") && !strings.HasPrefix(lf, "transaction") && amexLeadingDate.MatchString(first):
		// Amex exports have no header and start with "12 Jan." style dates.
		return FormatAmex
	case strings.Contains(lf, "cibc"),
		strings.Contains(lf, "mastercard") && strings.Contains(ls, "payment thank you"):
		return FormatCIBC
	case eqLeadingDate.MatchString(first) && (strings.Contains(lf, "deposit") || strings.Contains(lf, "transfer")):
		return FormatEQBank
	case strings.Contains(lf, "transaction details") && strings.Contains(lf, "funds out"):
		return FormatSimplii
	case strings.Contains(lf, "date,description,debit"):
		return FormatTD
	}
	return FormatGeneric
}

// DetectFile reads the head of the file at path and detects its format.
// Unreadable files are reported as generic.
func (d *Detector) DetectFile(path string) Format {
	head, err := source.Head(path)
	if err != nil {
		return FormatGeneric
	}
	return d.Detect(head)
}

func isOFX(head []string) bool {
	for _, line := range head {
		u := strings.ToUpper(line)
		if strings.Contains(u, "OFXHEADER") || strings.Contains(u, "<?OFX") || strings.Contains(u, "<OFX>") {
			return true
		}
	}
	return false
}
