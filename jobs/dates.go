/*
dates.go - Date parsing for extract fields

PURPOSE:
  Job dates arrive either as spreadsheet serial numbers (days since the
  1899-12-30 epoch; the classic 1900 leap-year bug means the 1900-01-01
  epoch needs a -1 day correction) or as free-text strings in a handful
  of US formats. Unparseable values are nil and drop out of date-range
  and matching computations.

INVARIANT:
  ParseDate never returns an error: best-effort parse or nil.
*/
package jobs

import (
	"strings"
	"time"

	"github.com/spf13/cast"
)

// serialEpoch is 1899-12-30: spreadsheet serial day 1 is 1899-12-31 under
// the corrected epoch, so serial N maps to epoch + N days.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// dateLayouts are the free-text formats seen across extracts.
var dateLayouts = []string{
	"1/2/2006",
	"01/02/2006",
	"1/2/06",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"1/2/2006 15:04",
	"Jan 2, 2006",
	"January 2, 2006",
	"02-Jan-2006",
}

// ParseDate parses a raw extract value as a date. Numeric-looking values
// are treated as spreadsheet serial dates; everything else is tried
// against the known text layouts. Returns nil when nothing matches.
func ParseDate(raw string) *time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}

	if serial, err := cast.ToFloat64E(s); err == nil {
		t := SerialDate(serial)
		return &t
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &t
		}
	}
	return nil
}

// SerialDate converts a spreadsheet serial number to a calendar date.
// Fractional day parts (time of day) are discarded.
func SerialDate(serial float64) time.Time {
	return serialEpoch.AddDate(0, 0, int(serial))
}
