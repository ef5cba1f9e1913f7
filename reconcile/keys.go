/*
keys.go - Composite job-day identity

The two systems share no primary key, so a job-day is identified by a
derived composite key: location | zero-padded person ID | YYYYMMDD date.
The exact key-construction semantics (7-character padding width,
2-character prefix strip, 4-character suffix slice) are load-bearing for
correctness; change them on both sides or not at all.
*/
package reconcile

import (
	"fmt"
	"strings"
	"time"
)

// PadEISID formats a person identifier as a 7-character zero-padded
// string, the payroll system's canonical EISID form.
func PadEISID(id int64) string {
	return fmt.Sprintf("%07d", id)
}

// DateKey formats a date as the 8-digit YYYYMMDD key component.
func DateKey(t time.Time) string {
	return t.Format("20060102")
}

// CompositeKey builds the cross-system job-day identity.
func CompositeKey(location, eisid, dateKey string) string {
	return location + "|" + eisid + "|" + dateKey
}

// suffixLen is how many trailing characters of a primary location code
// form the short identifier used to translate payroll school codes.
const suffixLen = 4

func locationSuffix(location string) string {
	if len(location) <= suffixLen {
		return location
	}
	return location[len(location)-suffixLen:]
}

// translationTable maps the last-4-character suffix of every distinct
// primary location to the full location string. Returns the number of
// suffix collisions found; on collision the later location wins, so a
// non-zero count means some payroll rows may be attributed to the wrong
// school and the run needs a proper cross-system key mapping instead of
// this heuristic.
func translationTable(locations []string) (map[string]string, int) {
	table := map[string]string{}
	collisions := 0
	for _, loc := range locations {
		loc = strings.TrimSpace(loc)
		if loc == "" {
			continue
		}
		suffix := locationSuffix(loc)
		if existing, ok := table[suffix]; ok && existing != loc {
			collisions++
		}
		table[suffix] = loc
	}
	return table, collisions
}
