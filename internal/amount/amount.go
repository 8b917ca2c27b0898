// Package amount normalizes currency-formatted text into decimals.
package amount

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency words that carry their own '.' would otherwise leak a decimal
// point into the digits ("Rs.1,234" -> ".1234").
var currencyWords = regexp.MustCompile(`(?i)\b(rs\.?|inr|usd)`)

var numeric = regexp.MustCompile(`^-?(\d+\.?\d*|\.\d+)$`)

// Parse turns noisy amount text into a decimal. Every character other than a
// digit, '.' or '-' is dropped before parsing. Anything that still fails to
// parse yields zero.
func Parse(raw string) decimal.Decimal {
	d, _ := ParseOK(raw)
	return d
}

// ParseOK is Parse with a flag reporting whether the text held a number.
func ParseOK(raw string) (decimal.Decimal, bool) {
	s := currencyWords.ReplaceAllString(raw, "")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}

	cleaned := strings.TrimRight(b.String(), ".")
	if !numeric.MatchString(cleaned) {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Format renders d as rupees with Indian digit grouping, e.g. ₹1,23,456.78.
func Format(d decimal.Decimal) string {
	neg := d.IsNegative()
	s := d.Abs().StringFixed(2)

	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	grouped := groupIndian(intPart)
	if neg {
		return "-₹" + grouped + frac
	}
	return "₹" + grouped + frac
}

// groupIndian places the first separator after three digits and every two
// digits thereafter.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]

	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(parts, ",") + "," + tail
}
