/*
rollup.go - Scalar rollups over summary collections

Generic total/percentage extraction consumed by all higher-level
reporting. FillRates deliberately duplicates the division semantics of
Summarize because callers need rates from ad hoc totals, not only from
full SummaryRow collections.
*/
package stats

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/subcentral/fillrate-engine/jobs"
)

// TotalCounts is a column-wise sum over a SummaryRow collection, used to
// produce a single citywide comparison point.
type TotalCounts struct {
	Total         int
	TotalVacancy  int
	TotalAbsence  int
	VacancyFilled int
	AbsenceFilled int
}

// Totals sums the count columns across all rows.
func Totals(rows []SummaryRow) TotalCounts {
	var t TotalCounts
	for _, r := range rows {
		t.Total += r.Total
		t.TotalVacancy += r.TotalVacancy
		t.TotalAbsence += r.TotalAbsence
		t.VacancyFilled += r.VacancyFilled
		t.AbsenceFilled += r.AbsenceFilled
	}
	return t
}

// FillRates computes (overall, vacancy, absence) fill percentages from
// totals, with the same zero-denominator guard as Summarize.
func FillRates(t TotalCounts) (overall, vacancy, absence decimal.Decimal) {
	overall = Percentage(t.VacancyFilled+t.AbsenceFilled, t.Total)
	vacancy = Percentage(t.VacancyFilled, t.TotalVacancy)
	absence = Percentage(t.AbsenceFilled, t.TotalAbsence)
	return overall, vacancy, absence
}

// DateRange renders the min/max job start dates as a display string.
// Records without a parseable date are excluded.
func DateRange(records []jobs.JobRecord) string {
	var min, max *time.Time
	for _, rec := range records {
		if rec.JobStart == nil {
			continue
		}
		if min == nil || rec.JobStart.Before(*min) {
			min = rec.JobStart
		}
		if max == nil || rec.JobStart.After(*max) {
			max = rec.JobStart
		}
	}
	if min == nil {
		return "Date range not available"
	}
	const layout = "January 2, 2006"
	if min.Equal(*max) {
		return "Job dates: " + min.Format(layout)
	}
	return "Job dates: " + min.Format(layout) + " to " + max.Format(layout)
}
