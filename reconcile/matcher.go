/*
Package reconcile cross-validates filled jobs against payroll records.

PURPOSE:
  Determines, per school location, how many job-days reported as filled
  in the assignment system (SubCentral) also appear as payroll
  disbursements (SREPP), without a shared primary key between systems.

ALGORITHM:
  1. Primary side: filled records with a valid date and person ID become
     composite keys (location | 7-char EISID | YYYYMMDD), collected into
     a per-location set plus a per-location job-day count. Duplicate keys
     collapse in the set but both count toward the total.
  2. Payroll side: rows with a numeric EISID and parseable date become
     the same key shape, with the school code's 2-character prefix
     stripped first.
  3. Location translation: payroll school codes live in a different
     namespace, so they are translated through a last-4-characters
     suffix table built from the primary locations. Untranslatable rows
     are dropped as unmatchable. Suffix collisions are counted and
     logged; this heuristic is the largest source of matching error.
  4. Per location, matched jobs is the size of the set intersection.
     Match percentage is coverage from the payroll perspective:
     matched / payroll job days * 100, 0 when there are no payroll days.

FAILURE MODES:
  Missing required payroll columns skip that side entirely with a
  warning; the matcher still returns best-effort results for whichever
  side succeeded. It never returns an error.

SEE ALSO:
  - keys.go: Composite key construction
  - ingest: Produces both inputs
*/
package reconcile

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/subcentral/fillrate-engine/jobs"
	"github.com/subcentral/fillrate-engine/stats"
)

// payroll column names expected after schema sniffing.
const (
	colSchool = "SCHOOL"
	colEISID  = "EISID"
	colDate   = "DATE"
)

// MatchResult is the per-location reconciliation outcome.
type MatchResult struct {
	Location          string
	SubCentralJobDays int
	PayrollJobDays    int
	MatchedJobs       int
	MatchPercentage   decimal.Decimal
}

// Matcher runs the cross-system matching analysis.
type Matcher struct {
	logger *zap.Logger
}

// NewMatcher creates a Matcher.
func NewMatcher(logger *zap.Logger) *Matcher {
	return &Matcher{logger: logger}
}

// Match reconciles filled primary records against the payroll table.
// Returns one row per location present in either system, sorted by
// location ascending.
func (m *Matcher) Match(records []jobs.JobRecord, payroll jobs.PayrollTable) []MatchResult {
	if len(records) == 0 && payroll.Empty() {
		m.logger.Info("no data on either side, skipping matching analysis")
		return nil
	}

	primaryKeys, primaryTotals := m.primarySide(records)
	payrollKeys, payrollTotals := m.payrollSide(records, payroll)

	locations := map[string]bool{}
	for loc := range primaryTotals {
		locations[loc] = true
	}
	for loc := range payrollTotals {
		locations[loc] = true
	}
	if len(locations) == 0 {
		m.logger.Info("no locations found in either system")
		return nil
	}

	results := make([]MatchResult, 0, len(locations))
	totalMatches := 0
	for loc := range locations {
		matched := 0
		for key := range primaryKeys[loc] {
			if payrollKeys[loc][key] {
				matched++
			}
		}
		totalMatches += matched

		results = append(results, MatchResult{
			Location:          loc,
			SubCentralJobDays: primaryTotals[loc],
			PayrollJobDays:    payrollTotals[loc],
			MatchedJobs:       matched,
			MatchPercentage:   stats.Percentage(matched, payrollTotals[loc]),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Location < results[j].Location
	})

	m.logger.Info("matching analysis complete",
		zap.Int("locations", len(results)),
		zap.Int("matched_jobs", totalMatches))

	return results
}

// =============================================================================
// PRIMARY SIDE
// =============================================================================

// primarySide builds per-location composite key sets and job-day counts
// from filled records. Records without a parseable date or numeric person
// ID are dropped from matching, with before/after counts logged.
func (m *Matcher) primarySide(records []jobs.JobRecord) (map[string]map[string]bool, map[string]int) {
	keys := map[string]map[string]bool{}
	totals := map[string]int{}

	filled := 0
	withDate := 0
	withSub := 0

	for _, rec := range records {
		if rec.FillStatus != jobs.StatusFilled {
			continue
		}
		filled++
		if rec.JobStart == nil {
			continue
		}
		withDate++
		if rec.SpecifiedSub == nil {
			continue
		}
		withSub++

		loc := strings.TrimSpace(rec.Location)
		key := CompositeKey(loc, PadEISID(*rec.SpecifiedSub), DateKey(*rec.JobStart))
		if keys[loc] == nil {
			keys[loc] = map[string]bool{}
		}
		keys[loc][key] = true
		totals[loc]++
	}

	m.logger.Info("built primary-side job identifiers",
		zap.Int("records", len(records)),
		zap.Int("filled", filled),
		zap.Int("with_valid_date", withDate),
		zap.Int("with_valid_sub", withSub),
		zap.Int("locations", len(totals)))

	return keys, totals
}

// =============================================================================
// PAYROLL SIDE
// =============================================================================

// payrollSide builds per-location composite key sets and record counts
// from the payroll table, translated into the primary location namespace.
// A missing required column skips the whole side with a warning.
func (m *Matcher) payrollSide(records []jobs.JobRecord, payroll jobs.PayrollTable) (map[string]map[string]bool, map[string]int) {
	keys := map[string]map[string]bool{}
	totals := map[string]int{}

	if payroll.Empty() {
		m.logger.Info("no payroll data to process")
		return keys, totals
	}

	schoolIdx := payroll.ColumnIndex(colSchool)
	eisidIdx := payroll.ColumnIndex(colEISID)
	dateIdx := payroll.ColumnIndex(colDate)
	if schoolIdx < 0 || eisidIdx < 0 || dateIdx < 0 {
		m.logger.Warn("payroll data missing required columns, skipping payroll side",
			zap.Strings("required", []string{colSchool, colEISID, colDate}),
			zap.Strings("available", payroll.Columns))
		return keys, totals
	}

	translation, collisions := translationTable(distinctLocations(records))
	if collisions > 0 {
		m.logger.Warn("location suffix collisions in translation table",
			zap.Int("collisions", collisions))
	}

	badEISID := 0
	badDate := 0
	unmapped := 0

	for _, row := range payroll.Rows {
		eisidRaw := strings.TrimSpace(payroll.Cell(row, eisidIdx))
		if eisidRaw == "" {
			badEISID++
			continue
		}
		eisidF, err := cast.ToFloat64E(eisidRaw)
		if err != nil {
			badEISID++
			continue
		}

		date := jobs.ParseDate(payroll.Cell(row, dateIdx))
		if date == nil {
			badDate++
			continue
		}

		school := strings.TrimSpace(payroll.Cell(row, schoolIdx))
		if len(school) > 2 {
			school = school[2:]
		} else {
			school = ""
		}

		loc, ok := translation[school]
		if !ok {
			unmapped++
			continue
		}

		key := CompositeKey(school, PadEISID(int64(eisidF)), DateKey(*date))
		if keys[loc] == nil {
			keys[loc] = map[string]bool{}
		}
		keys[loc][key] = true
		totals[loc]++
	}

	m.logger.Info("built payroll-side job identifiers",
		zap.Int("rows", len(payroll.Rows)),
		zap.Int("invalid_eisid", badEISID),
		zap.Int("invalid_date", badDate),
		zap.Int("unmapped_school", unmapped),
		zap.Int("locations", len(totals)))

	return keys, totals
}

// distinctLocations returns the unique location codes in the records.
func distinctLocations(records []jobs.JobRecord) []string {
	seen := map[string]bool{}
	var out []string
	for _, rec := range records {
		if !seen[rec.Location] {
			seen[rec.Location] = true
			out = append(out, rec.Location)
		}
	}
	return out
}
