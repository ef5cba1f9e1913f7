/*
Package stats rolls normalized job records up into fill-rate summaries.

PURPOSE:
  Computes the summary tables the report tree is built from: counts of
  the four outcome buckets per grouping key, derived totals, and
  zero-guarded fill percentages. Called at four fixed granularities
  (citywide, borough, superintendent, superintendent x school); each call
  is independent and stateless, and callers cache the results.

INVARIANTS:
  - Missing buckets are explicit zeros, guaranteed by the SummaryRow
    struct rather than a runtime column-existence check.
  - Every percentage is 0 when its denominator is 0. Never NaN, never a
    panic.
  - Summing the four bucket counts of a row reproduces the number of
    input records mapped to that group.

ORDERING:
  Output rows follow first-appearance order of each group in the input.
  Display sorting belongs to the rendering collaborator.
*/
package stats

import (
	"github.com/shopspring/decimal"

	"github.com/subcentral/fillrate-engine/jobs"
)

// Field is a grouping dimension for Summarize.
type Field string

const (
	FieldBorough        Field = "Borough"
	FieldSuperintendent Field = "Superintendent"
	FieldLocation       Field = "Location"
)

// SummaryRow is one aggregated line: a grouping key plus classification,
// the four bucket counts, derived totals and fill percentages.
type SummaryRow struct {
	Borough        string
	Superintendent string
	Location       string
	Classification string

	VacancyFilled   int
	VacancyUnfilled int
	AbsenceFilled   int
	AbsenceUnfilled int

	TotalVacancy  int
	TotalAbsence  int
	Total         int
	TotalFilled   int
	TotalUnfilled int

	VacancyFillPct decimal.Decimal
	AbsenceFillPct decimal.Decimal
	OverallFillPct decimal.Decimal
}

// groupKey identifies one aggregation group. Fields not requested in the
// grouping stay empty, so the same struct serves every granularity.
type groupKey struct {
	borough        string
	superintendent string
	location       string
	classification string
}

// Summarize aggregates records by the given fields plus classification.
// An empty groupBy produces citywide statistics (classification only).
func Summarize(records []jobs.JobRecord, groupBy []Field) []SummaryRow {
	counts := map[groupKey]*SummaryRow{}
	var order []groupKey

	for _, rec := range records {
		key := groupKey{classification: rec.Classification}
		for _, f := range groupBy {
			switch f {
			case FieldBorough:
				key.borough = rec.Borough
			case FieldSuperintendent:
				key.superintendent = rec.Superintendent
			case FieldLocation:
				key.location = rec.Location
			}
		}

		row, ok := counts[key]
		if !ok {
			row = &SummaryRow{
				Borough:        key.borough,
				Superintendent: key.superintendent,
				Location:       key.location,
				Classification: key.classification,
			}
			counts[key] = row
			order = append(order, key)
		}

		switch rec.Bucket {
		case jobs.VacancyFilled:
			row.VacancyFilled++
		case jobs.VacancyUnfilled:
			row.VacancyUnfilled++
		case jobs.AbsenceFilled:
			row.AbsenceFilled++
		case jobs.AbsenceUnfilled:
			row.AbsenceUnfilled++
		}
	}

	rows := make([]SummaryRow, 0, len(order))
	for _, key := range order {
		row := counts[key]
		row.TotalVacancy = row.VacancyFilled + row.VacancyUnfilled
		row.TotalAbsence = row.AbsenceFilled + row.AbsenceUnfilled
		row.Total = row.TotalVacancy + row.TotalAbsence
		row.TotalFilled = row.VacancyFilled + row.AbsenceFilled
		row.TotalUnfilled = row.VacancyUnfilled + row.AbsenceUnfilled
		row.VacancyFillPct = Percentage(row.VacancyFilled, row.TotalVacancy)
		row.AbsenceFillPct = Percentage(row.AbsenceFilled, row.TotalAbsence)
		row.OverallFillPct = Percentage(row.TotalFilled, row.Total)
		rows = append(rows, *row)
	}
	return rows
}

// Percentage is filled/total*100 rounded to one decimal place, defined as
// 0 when total is 0.
func Percentage(filled, total int) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(filled)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total))).
		Round(1)
}
