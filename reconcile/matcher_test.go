package reconcile_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/subcentral/fillrate-engine/jobs"
	"github.com/subcentral/fillrate-engine/reconcile"
)

func filledJob(location string, sub int64, year int, month time.Month, day int) jobs.JobRecord {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return jobs.JobRecord{
		Location:     location,
		FillStatus:   jobs.StatusFilled,
		JobStart:     &d,
		SpecifiedSub: &sub,
	}
}

func payrollTable(rows ...[]string) jobs.PayrollTable {
	return jobs.PayrollTable{
		Columns: []string{"SCHOOL", "EISID", "DATE"},
		Rows:    rows,
	}
}

func pctEqual(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(decimal.RequireFromString(want)),
		"percentage = %s, want %s", got, want)
}

// =============================================================================
// KEY CONSTRUCTION
// =============================================================================

func TestCompositeKey_Construction(t *testing.T) {
	key := reconcile.CompositeKey("M015", reconcile.PadEISID(12345),
		reconcile.DateKey(time.Date(2023, time.September, 14, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "M015|0012345|20230914", key)
}

func TestPadEISID_SevenCharZeroPadded(t *testing.T) {
	assert.Equal(t, "0012345", reconcile.PadEISID(12345))
	assert.Equal(t, "0000001", reconcile.PadEISID(1))
	assert.Equal(t, "1234567", reconcile.PadEISID(1234567))
}

func TestKeyConstruction_CommutativeAcrossFormats(t *testing.T) {
	// GIVEN: The same job-day expressed in both systems' raw formats
	//        (serial date + integer sub vs text date + float-formatted ID)
	// WHEN: Matched
	// THEN: The composite keys agree and the job matches

	records := []jobs.JobRecord{filledJob("M015", 12345, 2023, time.September, 14)}
	payroll := payrollTable([]string{"02M015", "12345.0", "9/14/2023"})

	results := reconcile.NewMatcher(zap.NewNop()).Match(records, payroll)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].MatchedJobs)
}

// =============================================================================
// MATCHING
// =============================================================================

func TestMatch_PerLocationIntersection(t *testing.T) {
	// GIVEN: One filled job at M015 and two payroll rows there, one of
	//        which corresponds to the job
	// WHEN: Matched
	// THEN: matched=1 of payroll_days=2 -> 50% coverage

	records := []jobs.JobRecord{filledJob("M015", 12345, 2023, time.September, 14)}
	payroll := payrollTable(
		[]string{"02M015", "12345", "9/14/2023"},
		[]string{"02M015", "67890", "9/15/2023"},
	)

	results := reconcile.NewMatcher(zap.NewNop()).Match(records, payroll)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, "M015", r.Location)
	assert.Equal(t, 1, r.SubCentralJobDays)
	assert.Equal(t, 2, r.PayrollJobDays)
	assert.Equal(t, 1, r.MatchedJobs)
	pctEqual(t, "50", r.MatchPercentage)
}

func TestMatch_UntranslatableSchoolIsDropped(t *testing.T) {
	// A payroll school with no matching location suffix contributes to
	// neither side's totals.

	records := []jobs.JobRecord{filledJob("M015", 12345, 2023, time.September, 14)}
	payroll := payrollTable([]string{"02X999", "11111", "9/14/2023"})

	results := reconcile.NewMatcher(zap.NewNop()).Match(records, payroll)
	require.Len(t, results, 1)
	assert.Equal(t, "M015", results[0].Location)
	assert.Equal(t, 0, results[0].PayrollJobDays)
	assert.Equal(t, 0, results[0].MatchedJobs)
	pctEqual(t, "0", results[0].MatchPercentage)
}

func TestMatch_OnlyFilledJobsWithDateAndSubCount(t *testing.T) {
	sub := int64(12345)
	d := time.Date(2023, time.September, 14, 0, 0, 0, 0, time.UTC)
	records := []jobs.JobRecord{
		filledJob("M015", 12345, 2023, time.September, 14),
		{Location: "M015", FillStatus: jobs.StatusUnfilled, JobStart: &d, SpecifiedSub: &sub},
		{Location: "M015", FillStatus: jobs.StatusFilled, JobStart: nil, SpecifiedSub: &sub},
		{Location: "M015", FillStatus: jobs.StatusFilled, JobStart: &d, SpecifiedSub: nil},
	}

	results := reconcile.NewMatcher(zap.NewNop()).Match(records, jobs.PayrollTable{})
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].SubCentralJobDays)
}

func TestMatch_DuplicateJobDaysCountTowardTotalsButCollapseInSet(t *testing.T) {
	records := []jobs.JobRecord{
		filledJob("M015", 12345, 2023, time.September, 14),
		filledJob("M015", 12345, 2023, time.September, 14),
	}
	payroll := payrollTable([]string{"02M015", "12345", "9/14/2023"})

	results := reconcile.NewMatcher(zap.NewNop()).Match(records, payroll)
	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].SubCentralJobDays)
	assert.Equal(t, 1, results[0].MatchedJobs, "duplicate keys collapse in the set")
}

func TestMatch_MonotonicityBound(t *testing.T) {
	// matched_jobs never exceeds either side's count.

	records := []jobs.JobRecord{
		filledJob("M015", 1, 2023, time.September, 14),
		filledJob("M015", 2, 2023, time.September, 14),
		filledJob("K100", 3, 2023, time.September, 15),
	}
	payroll := payrollTable(
		[]string{"02M015", "1", "9/14/2023"},
		[]string{"02M015", "2", "9/14/2023"},
		[]string{"02M015", "9", "9/14/2023"},
		[]string{"13K100", "3", "9/15/2023"},
	)

	for _, r := range reconcile.NewMatcher(zap.NewNop()).Match(records, payroll) {
		if r.MatchedJobs > r.SubCentralJobDays || r.MatchedJobs > r.PayrollJobDays {
			t.Errorf("%s: matched=%d exceeds sides (%d, %d)",
				r.Location, r.MatchedJobs, r.SubCentralJobDays, r.PayrollJobDays)
		}
	}
}

func TestMatch_SuffixCollisionLaterLocationWinsAndWarns(t *testing.T) {
	// GIVEN: Two primary locations sharing the same trailing 4 characters
	// WHEN: A payroll row carries that suffix
	// THEN: It is attributed to the later location, and the collision is
	//       logged as a warning

	core, observed := observer.New(zapcore.WarnLevel)

	records := []jobs.JobRecord{
		filledJob("AB1234", 111, 2023, time.September, 14),
		filledJob("X1234", 222, 2023, time.September, 14),
	}
	payroll := payrollTable([]string{"ZZ1234", "333", "9/14/2023"})

	results := reconcile.NewMatcher(zap.New(core)).Match(records, payroll)
	require.Len(t, results, 2)

	byLocation := map[string]reconcile.MatchResult{}
	for _, r := range results {
		byLocation[r.Location] = r
	}
	assert.Equal(t, 1, byLocation["X1234"].PayrollJobDays, "suffix resolves to the later location")
	assert.Equal(t, 0, byLocation["AB1234"].PayrollJobDays)

	warnings := observed.FilterMessage("location suffix collisions in translation table").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, int64(1), warnings[0].ContextMap()["collisions"])
}

func TestMatch_MissingPayrollColumnsSkipsPayrollSide(t *testing.T) {
	// GIVEN: A payroll table without the required columns
	// WHEN: Matched
	// THEN: Primary-side results are still produced, payroll side empty

	records := []jobs.JobRecord{filledJob("M015", 12345, 2023, time.September, 14)}
	payroll := jobs.PayrollTable{
		Columns: []string{"SITE", "WORKER", "WHEN"},
		Rows:    [][]string{{"02M015", "12345", "9/14/2023"}},
	}

	results := reconcile.NewMatcher(zap.NewNop()).Match(records, payroll)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].SubCentralJobDays)
	assert.Equal(t, 0, results[0].PayrollJobDays)
}

func TestMatch_BadPayrollRowsAreDropped(t *testing.T) {
	records := []jobs.JobRecord{filledJob("M015", 12345, 2023, time.September, 14)}
	payroll := payrollTable(
		[]string{"02M015", "", "9/14/2023"},         // missing EISID
		[]string{"02M015", "abc", "9/14/2023"},      // non-numeric EISID
		[]string{"02M015", "12345", "not a date"},   // unparseable date
		[]string{"02M015", "12345", "9/14/2023"},    // valid
	)

	results := reconcile.NewMatcher(zap.NewNop()).Match(records, payroll)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].PayrollJobDays)
	assert.Equal(t, 1, results[0].MatchedJobs)
}

func TestMatch_SortedByLocation(t *testing.T) {
	records := []jobs.JobRecord{
		filledJob("X200", 1, 2023, time.September, 14),
		filledJob("K100", 2, 2023, time.September, 14),
		filledJob("M015", 3, 2023, time.September, 14),
	}

	results := reconcile.NewMatcher(zap.NewNop()).Match(records, jobs.PayrollTable{})
	require.Len(t, results, 3)
	assert.Equal(t, "K100", results[0].Location)
	assert.Equal(t, "M015", results[1].Location)
	assert.Equal(t, "X200", results[2].Location)
}

func TestMatch_BothSidesEmpty(t *testing.T) {
	results := reconcile.NewMatcher(zap.NewNop()).Match(nil, jobs.PayrollTable{})
	assert.Empty(t, results)
}

func TestMatch_PayrollOnlyLocationStillEmitsRow(t *testing.T) {
	// A location present only in payroll cannot exist: payroll rows are
	// translated through the primary location table, so an unfilled
	// primary location still anchors the row.

	records := []jobs.JobRecord{
		// Unfilled, so no primary-side job days, but the location still
		// feeds the translation table.
		{Location: "M015", FillStatus: jobs.StatusUnfilled},
	}
	payroll := payrollTable([]string{"02M015", "12345", "9/14/2023"})

	results := reconcile.NewMatcher(zap.NewNop()).Match(records, payroll)
	require.Len(t, results, 1)
	assert.Equal(t, "M015", results[0].Location)
	assert.Equal(t, 0, results[0].SubCentralJobDays)
	assert.Equal(t, 1, results[0].PayrollJobDays)
	assert.Equal(t, 0, results[0].MatchedJobs)
	pctEqual(t, "0", results[0].MatchPercentage)
}
