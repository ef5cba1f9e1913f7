/*
Package jobs defines the core domain types for substitute-staffing records.

PURPOSE:
  This package contains the shared vocabulary of the fill-rate engine:
  job records from the assignment-tracking system (SubCentral), the raw
  payroll table (SREPP), and the classification/status rules that turn
  free-text extract fields into canonical categories.

KEY CONCEPTS IN THIS FILE (types.go):
  - JobRecord: One staffing event (a vacancy or absence needing coverage)
  - JobType / FillStatus / Bucket: The four mutually exclusive outcome
    buckets every record falls into (Vacancy_Filled, Vacancy_Unfilled,
    Absence_Filled, Absence_Unfilled)
  - PayrollTable: Schema-sniffed payroll rows kept in raw tabular form

DESIGN PRINCIPLES:
  1. Immutability: Records are built once during ingestion; downstream
     stages receive copies, never mutate shared slices
  2. Explicit absence: Unparseable dates and identifiers are nil pointers,
     not zero values, so filters can distinguish "absent" from "zero"
  3. Defined defaults: Unresolved lookups are the literal "Unknown",
     missing buckets are explicit zeros

SEE ALSO:
  - classification.go: Gender-qualifier cleanup rules
  - dates.go: Spreadsheet-serial and free-text date parsing
  - ingest: Builds JobRecords from raw extracts
*/
package jobs

import (
	"strings"
	"time"
)

// =============================================================================
// JOB TYPE / FILL STATUS / BUCKET
// =============================================================================

// JobType is the category of staffing request.
type JobType string

const (
	TypeVacancy JobType = "Vacancy"
	TypeAbsence JobType = "Absence"
)

// FillStatus indicates whether a request was covered by a substitute.
type FillStatus string

const (
	StatusFilled   FillStatus = "Filled"
	StatusUnfilled FillStatus = "Unfilled"
)

// Bucket is the combined type+fill-status category. Every record with a
// non-empty type and status lands in exactly one bucket.
type Bucket string

const (
	VacancyFilled   Bucket = "Vacancy_Filled"
	VacancyUnfilled Bucket = "Vacancy_Unfilled"
	AbsenceFilled   Bucket = "Absence_Filled"
	AbsenceUnfilled Bucket = "Absence_Unfilled"
)

// filledStatuses is the whitelist of raw sub-status strings that mean a
// job was actually covered. Everything else counts as Unfilled.
var filledStatuses = map[string]bool{
	"Finished/Admin Assigned": true,
	"Finished/IVR Assigned":   true,
	"Finished/IVR Sub Search": true,
	"Finished/Pre Arranged":   true,
	"Finished/Web Sub Search": true,
}

// FillStatusOf maps a raw status string to Filled/Unfilled.
func FillStatusOf(status string) FillStatus {
	if filledStatuses[status] {
		return StatusFilled
	}
	return StatusUnfilled
}

// BucketOf derives the combined category key.
func BucketOf(t JobType, f FillStatus) Bucket {
	return Bucket(string(t) + "_" + string(f))
}

// =============================================================================
// JOB RECORD
// =============================================================================

// JobRecord is one staffing event from the primary (SubCentral) extract,
// after normalization and mapping enrichment.
type JobRecord struct {
	Location       string
	Classification string
	Type           JobType
	Status         string
	FillStatus     FillStatus
	Bucket         Bucket
	District       int
	Borough        string

	// JobStart is nil when the extract value could not be parsed.
	JobStart *time.Time

	// SpecifiedSub is the person identifier used for payroll matching.
	// Nil when absent or non-numeric.
	SpecifiedSub *int64

	SourceFile string

	// Enrichment from the reference mapping; "Unknown" when unresolved.
	Superintendent string
	MappedDistrict string
	MappedBorough  string
	DBN            string
	SchoolName     string
}

// boroughByPrefix maps the first character of a location code to its
// borough. Unmapped prefixes resolve to Unknown.
var boroughByPrefix = map[byte]string{
	'M': "Manhattan",
	'K': "Brooklyn",
	'Q': "Queens",
	'X': "Bronx",
	'R': "Staten Island",
}

// BoroughOf derives the borough from a location code.
func BoroughOf(location string) string {
	loc := strings.TrimSpace(location)
	if loc == "" {
		return "Unknown"
	}
	first := loc[0]
	if 'a' <= first && first <= 'z' {
		first -= 'a' - 'A'
	}
	if b, ok := boroughByPrefix[first]; ok {
		return b
	}
	return "Unknown"
}

// =============================================================================
// PAYROLL TABLE
// =============================================================================

// PayrollTable holds payroll-system rows in raw tabular form. The payroll
// schema varies between runs, so columns are only interpreted at matching
// time, not at load time.
type PayrollTable struct {
	Columns []string
	Rows    [][]string
}

// Empty reports whether the table carries no data rows.
func (t PayrollTable) Empty() bool { return len(t.Rows) == 0 }

// ColumnIndex returns the index of the named column, or -1 when absent.
func (t PayrollTable) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Cell returns the value at (row, column index), tolerating short rows.
func (t PayrollTable) Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
