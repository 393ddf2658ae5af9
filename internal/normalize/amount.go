// Package normalize converts the loose text found in bank exports into
// canonical amounts, dates and descriptions.
package normalize

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var amountJunk = regexp.MustCompile(`[^\d.\-+()]`)

// CleanAmount parses a bank-formatted amount such as "$1,234.56" or
// "(45.00)". Everything except digits, '.', '-', '+' and parentheses is
// dropped; a parenthesized value is negative. Anything that still fails to
// parse yields zero, which callers treat as "no amount".
func CleanAmount(s string) decimal.Decimal {
	s = amountJunk.ReplaceAllString(strings.TrimSpace(s), "")
	if s == "" {
		return decimal.Zero
	}
	if strings.Contains(s, "(") && strings.Contains(s, ")") {
		s = "-" + strings.NewReplacer("(", "", ")", "").Replace(s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d.Round(2)
}
