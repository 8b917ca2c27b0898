package domain

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DisplayDateLayout is the DD-MMM-YYYY form used for every rendered date.
const DisplayDateLayout = "02-Jan-2006"

// NotAvailable marks a field that could not be extracted.
const NotAvailable = "N/A"

// dateLayouts are tried in order by ParseDate.
var dateLayouts = []string{
	DisplayDateLayout,
	"02 Jan 2006",
	"2 Jan 2006",
	"02/01/2006",
	"02-01-2006",
	"2006-01-02",
	"02 Jan 06",
	"02-Jan-06",
	"02/01/06",
	"January 2, 2006",
	"Jan 2, 2006",
	"02 January 2006",
	"2 January 2006",
}

var titleCaser = cases.Title(language.English)

// Date is a calendar date that may be unknown. The zero value is unknown.
type Date struct {
	d     civil.Date
	known bool
}

// NewDate returns a known date.
func NewDate(year int, month time.Month, day int) Date {
	return Date{d: civil.Date{Year: year, Month: month, Day: day}, known: true}
}

// DateOf returns the calendar date of t.
func DateOf(t time.Time) Date {
	return Date{d: civil.DateOf(t), known: true}
}

// UnknownDate returns the explicit unknown marker.
func UnknownDate() Date { return Date{} }

// ParseDate accepts the date layouts found on Indian card statements.
// Text that matches none of them yields an unknown Date.
func ParseDate(s string) Date {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" || strings.EqualFold(s, NotAvailable) {
		return Date{}
	}
	// time.Parse wants "Jan", statements print "JAN" or "jan".
	s = titleCaser.String(strings.ToLower(s))

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t)
		}
	}
	return Date{}
}

// ParseDateLayouts parses s with the given layouts only.
func ParseDateLayouts(s string, layouts ...string) Date {
	s = titleCaser.String(strings.ToLower(strings.Join(strings.Fields(s), " ")))
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t)
		}
	}
	return Date{}
}

// Known reports whether the date was resolved.
func (d Date) Known() bool { return d.known }

// Civil returns the underlying calendar date and whether it is known.
func (d Date) Civil() (civil.Date, bool) { return d.d, d.known }

// Time returns midnight UTC of the date; the zero time when unknown.
func (d Date) Time() time.Time {
	if !d.known {
		return time.Time{}
	}
	return d.d.In(time.UTC)
}

// Before reports whether d is strictly before o. Unknown dates are never before anything.
func (d Date) Before(o Date) bool {
	return d.known && o.known && d.d.Before(o.d)
}

// Equal reports whether both dates are unknown or both are the same day.
func (d Date) Equal(o Date) bool {
	if d.known != o.known {
		return false
	}
	return !d.known || d.d == o.d
}

// String renders DD-MMM-YYYY, or N/A when unknown.
func (d Date) String() string {
	if !d.known {
		return NotAvailable
	}
	return d.Time().Format(DisplayDateLayout)
}

// MarshalJSON encodes the display form.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts any form ParseDate understands, plus null.
func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*d = ParseDate(s)
	return nil
}

// Period is the billing cycle covered by a statement.
type Period struct {
	From Date `json:"from"`
	To   Date `json:"to"`
}

// NewPeriod builds a period, dropping both ends when they are inverted.
func NewPeriod(from, to Date) Period {
	if to.Before(from) {
		return Period{}
	}
	return Period{From: from, To: to}
}
