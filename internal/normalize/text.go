package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/cleared-dev/tally/internal/model"
)

var controlToSpace = runes.Map(func(r rune) rune {
	if unicode.IsControl(r) {
		return ' '
	}
	return r
})

// Description returns s in NFC form with control characters blanked,
// trimmed and capped at max runes. A max of zero or less means no cap.
// Text that is not valid UTF-8 is read as Windows-1252.
func Description(s string, max int) string {
	if !utf8.ValidString(s) {
		if dec, err := charmap.Windows1252.NewDecoder().String(s); err == nil {
			s = dec
		} else {
			s = strings.ToValidUTF8(s, "\uFFFD")
		}
	}
	t := transform.Chain(norm.NFC, controlToSpace)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = strings.TrimSpace(out)
	return truncate(out, max)
}

var merchantPrefix = regexp.MustCompile(`^(POS MERCHANDISE|INTERNET BILL PAYMENT|PAYROLL DEPOSIT|EFT CREDIT|INTERAC E-TRANSFER|ABM WITHDRAWAL)`)

// merchantSeparators are checked in order; the first one present in the
// description decides where the merchant name ends.
var merchantSeparators = []string{" - ", " / ", " #", " *", "  ", ","}

// Merchant derives a merchant name from a transaction description. It
// strips point-of-sale and transfer boilerplate, then cuts at the first
// known separator. The result is capped at model.MaxMerchantLen runes and is ""
// when nothing is left.
func Merchant(desc string) string {
	s := strings.TrimSpace(merchantPrefix.ReplaceAllString(desc, ""))
	for _, sep := range merchantSeparators {
		if i := strings.Index(s, sep); i >= 0 {
			s = s[:i]
			break
		}
	}
	return truncate(strings.TrimSpace(s), model.MaxMerchantLen)
}

var scrubPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\*+\d+\*+`), // masked card numbers, *1234*
	regexp.MustCompile(`#\d+`),
	regexp.MustCompile(`\d{4}-\d{4}`),
}

// ScrubDescription removes card masks, reference numbers and similar noise
// that some exports embed in the description.
func ScrubDescription(s string) string {
	for _, re := range scrubPatterns {
		s = re.ReplaceAllString(s, "")
	}
	return strings.TrimSpace(s)
}

func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return strings.TrimSpace(string(r[:max]))
}
