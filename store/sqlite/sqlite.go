/*
Package sqlite persists the tabular outputs of a run as a SQLite artifact.

PURPOSE:
  The engine hands four plain tabular outputs to the report-rendering
  collaborator: the normalized record table, the summary collections at
  each granularity, and the match results. This store writes all of them
  into a single SQLite file per run so the rendering layer (and ad hoc
  inspection) can read them without re-running the pipeline.

KEY TABLES:
  runs:          One row per pipeline run (UUID, timestamps, date range)
  job_records:   The normalized, enriched primary table
  summary_rows:  Summary statistics, tagged with their granularity level
  match_results: Per-location payroll reconciliation outcomes

WRITE PATTERN:
  A run is written in one transaction: either the whole artifact lands
  or none of it does. Nothing is updated after insert; re-running with
  the same output path appends a new run.

WAL MODE:
  Opened with WAL so a renderer can read a previous run while a new one
  is being written.

USAGE:
  st, err := sqlite.New("./fillrate.db")
  if err != nil { ... }
  defer st.Close()
  err = st.SaveRun(ctx, run)

SEE ALSO:
  - cmd/fillrate: Builds the Run value from pipeline outputs
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/subcentral/fillrate-engine/jobs"
	"github.com/subcentral/fillrate-engine/reconcile"
	"github.com/subcentral/fillrate-engine/stats"
)

// Run is the complete tabular output of one pipeline run.
type Run struct {
	ID        uuid.UUID
	CreatedAt time.Time
	DateRange string

	Records []jobs.JobRecord

	// Summaries maps granularity level ("citywide", "borough",
	// "superintendent", "school") to its summary rows.
	Summaries map[string][]stats.SummaryRow

	Matches []reconcile.MatchResult
}

// Store writes run artifacts to SQLite.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the artifact database at path.
// Use ":memory:" for an in-memory database in tests.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the artifact schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		date_range TEXT NOT NULL,
		record_count INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS job_records (
		run_id TEXT NOT NULL REFERENCES runs(id),
		location TEXT NOT NULL,
		classification TEXT NOT NULL,
		job_type TEXT NOT NULL,
		status TEXT NOT NULL,
		fill_status TEXT NOT NULL,
		bucket TEXT NOT NULL,
		district INTEGER NOT NULL,
		borough TEXT NOT NULL,
		job_start TEXT,
		specified_sub INTEGER,
		source_file TEXT NOT NULL,
		superintendent TEXT NOT NULL,
		mapped_district TEXT NOT NULL,
		mapped_borough TEXT NOT NULL,
		dbn TEXT NOT NULL,
		school_name TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_job_records_run
		ON job_records(run_id);
	CREATE INDEX IF NOT EXISTS idx_job_records_location
		ON job_records(run_id, location);

	CREATE TABLE IF NOT EXISTS summary_rows (
		run_id TEXT NOT NULL REFERENCES runs(id),
		level TEXT NOT NULL,
		borough TEXT NOT NULL,
		superintendent TEXT NOT NULL,
		location TEXT NOT NULL,
		classification TEXT NOT NULL,
		vacancy_filled INTEGER NOT NULL,
		vacancy_unfilled INTEGER NOT NULL,
		absence_filled INTEGER NOT NULL,
		absence_unfilled INTEGER NOT NULL,
		total_vacancy INTEGER NOT NULL,
		total_absence INTEGER NOT NULL,
		total INTEGER NOT NULL,
		total_filled INTEGER NOT NULL,
		total_unfilled INTEGER NOT NULL,
		vacancy_fill_pct TEXT NOT NULL,
		absence_fill_pct TEXT NOT NULL,
		overall_fill_pct TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_summary_rows_run_level
		ON summary_rows(run_id, level);

	CREATE TABLE IF NOT EXISTS match_results (
		run_id TEXT NOT NULL REFERENCES runs(id),
		location TEXT NOT NULL,
		subcentral_job_days INTEGER NOT NULL,
		payroll_job_days INTEGER NOT NULL,
		matched_jobs INTEGER NOT NULL,
		match_percentage TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_match_results_run
		ON match_results(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveRun writes a complete run artifact in one transaction.
func (s *Store) SaveRun(ctx context.Context, run Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, date_range, record_count) VALUES (?, ?, ?, ?)`,
		run.ID.String(), run.CreatedAt.UTC().Format(time.RFC3339), run.DateRange, len(run.Records))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if err := insertRecords(ctx, tx, run.ID, run.Records); err != nil {
		return err
	}
	for level, rows := range run.Summaries {
		if err := insertSummaries(ctx, tx, run.ID, level, rows); err != nil {
			return err
		}
	}
	if err := insertMatches(ctx, tx, run.ID, run.Matches); err != nil {
		return err
	}

	return tx.Commit()
}

func insertRecords(ctx context.Context, tx *sql.Tx, runID uuid.UUID, records []jobs.JobRecord) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO job_records (
			run_id, location, classification, job_type, status, fill_status,
			bucket, district, borough, job_start, specified_sub, source_file,
			superintendent, mapped_district, mapped_borough, dbn, school_name
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare job_records: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		var jobStart interface{}
		if r.JobStart != nil {
			jobStart = r.JobStart.Format("2006-01-02")
		}
		var specifiedSub interface{}
		if r.SpecifiedSub != nil {
			specifiedSub = *r.SpecifiedSub
		}
		_, err := stmt.ExecContext(ctx,
			runID.String(), r.Location, r.Classification, string(r.Type), r.Status,
			string(r.FillStatus), string(r.Bucket), r.District, r.Borough,
			jobStart, specifiedSub, r.SourceFile,
			r.Superintendent, r.MappedDistrict, r.MappedBorough, r.DBN, r.SchoolName)
		if err != nil {
			return fmt.Errorf("insert job_record: %w", err)
		}
	}
	return nil
}

func insertSummaries(ctx context.Context, tx *sql.Tx, runID uuid.UUID, level string, rows []stats.SummaryRow) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO summary_rows (
			run_id, level, borough, superintendent, location, classification,
			vacancy_filled, vacancy_unfilled, absence_filled, absence_unfilled,
			total_vacancy, total_absence, total, total_filled, total_unfilled,
			vacancy_fill_pct, absence_fill_pct, overall_fill_pct
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare summary_rows: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		_, err := stmt.ExecContext(ctx,
			runID.String(), level, r.Borough, r.Superintendent, r.Location, r.Classification,
			r.VacancyFilled, r.VacancyUnfilled, r.AbsenceFilled, r.AbsenceUnfilled,
			r.TotalVacancy, r.TotalAbsence, r.Total, r.TotalFilled, r.TotalUnfilled,
			r.VacancyFillPct.String(), r.AbsenceFillPct.String(), r.OverallFillPct.String())
		if err != nil {
			return fmt.Errorf("insert summary_row: %w", err)
		}
	}
	return nil
}

func insertMatches(ctx context.Context, tx *sql.Tx, runID uuid.UUID, matches []reconcile.MatchResult) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO match_results (
			run_id, location, subcentral_job_days, payroll_job_days,
			matched_jobs, match_percentage
		) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare match_results: %w", err)
	}
	defer stmt.Close()

	for _, m := range matches {
		_, err := stmt.ExecContext(ctx,
			runID.String(), m.Location, m.SubCentralJobDays, m.PayrollJobDays,
			m.MatchedJobs, m.MatchPercentage.String())
		if err != nil {
			return fmt.Errorf("insert match_result: %w", err)
		}
	}
	return nil
}

// CountRows returns the number of rows a run wrote to the given table.
// Used by the orchestrator's post-write sanity log and by tests.
func (s *Store) CountRows(ctx context.Context, table string, runID uuid.UUID) (int, error) {
	switch table {
	case "job_records", "summary_rows", "match_results":
	default:
		return 0, fmt.Errorf("unknown table %q", table)
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE run_id = ?", table), runID.String()).Scan(&n)
	return n, err
}
