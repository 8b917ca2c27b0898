// Package detect classifies extracted statement text by issuing bank.
package detect

import (
	"regexp"
	"strings"
)

// Bank identifies a supported statement layout.
type Bank string

const (
	HDFC    Bank = "hdfc"
	ICICI   Bank = "icici"
	SBI     Bank = "sbi"
	Axis    Bank = "axis"
	Kotak   Bank = "kotak"
	Unknown Bank = "unknown"
)

// String returns the registry key.
func (b Bank) String() string { return string(b) }

// ParseBank maps a registry key (any case) to a Bank, or Unknown.
func ParseBank(s string) Bank {
	b := Bank(strings.ToLower(strings.TrimSpace(s)))
	for _, m := range markers {
		if m.bank == b {
			return b
		}
	}
	return Unknown
}

type marker struct {
	bank     Bank
	patterns []*regexp.Regexp
}

// markers are checked top to bottom and the first hit wins. A statement
// from one bank can mention another (e.g. a payment sourced from an ICICI
// account on an HDFC card), so the order is fixed.
var markers = []marker{
	{HDFC, compile(`\bhdfc\b`, `\bhdfcbank\b`)},
	{ICICI, compile(`\bicici\b`)},
	{SBI, compile(`\bsbi card\b`, `\bstate bank of india\b`, `\bsbi\b`)},
	{Axis, compile(`\baxis bank\b`, `\baxisbank\b`)},
	{Kotak, compile(`\bkotak\b`)},
}

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// Detect returns the first bank whose marker appears in text, or Unknown.
// Matching ignores case and collapses whitespace and line breaks.
func Detect(text string) Bank {
	norm := normalize(text)
	if norm == "" {
		return Unknown
	}
	for _, m := range markers {
		for _, re := range m.patterns {
			if re.MatchString(norm) {
				return m.bank
			}
		}
	}
	return Unknown
}

// Supported lists every bank Detect can return, in priority order.
func Supported() []Bank {
	out := make([]Bank, len(markers))
	for i, m := range markers {
		out[i] = m.bank
	}
	return out
}

func normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
