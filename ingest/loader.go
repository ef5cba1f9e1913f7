/*
Package ingest loads and normalizes the raw staffing extracts.

PURPOSE:
  Turns a pile of delimited extract files into two clean inputs for the
  rest of the engine:
    1. A normalized slice of jobs.JobRecord (the primary SubCentral data)
    2. A raw jobs.PayrollTable (the SREPP payroll data, schema-sniffed)

FILE PARTITIONING:
  Files are split into "payroll" and "primary" groups by exact filename
  match against a small fixed set of known payroll extract names. Payroll
  files tolerate schema drift between runs; primary files must carry the
  required columns or the run aborts.

SCHEMA SNIFFING (payroll files):
  Payroll exports sometimes interleave annotation columns and carry a
  second header/annotation row. When a file exposes 10 or more named
  columns, only the even-indexed columns are kept and the second physical
  row is skipped. Below that threshold the file is read as-is. Columns
  with blank names or an "Unnamed" prefix (blank header cells) are
  dropped either way.

ERROR TAXONOMY:
  - A payroll file that fails to parse is logged and skipped; the run
    continues with the remaining files.
  - Missing required columns in the combined primary table are fatal.
  - Unparseable dates and identifiers become nil and are logged in
    aggregate, never fatal.

SEE ALSO:
  - normalize.go: Primary-table post-processing
  - jobs: Domain types and cleanup rules
*/
package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"github.com/subcentral/fillrate-engine/jobs"
)

// defaultPayrollFilenames are the known payroll extract names.
var defaultPayrollFilenames = map[string]bool{
	"SREPP1.csv": true,
	"SREPP2.csv": true,
}

// sourceColumn is the provenance column added to every loaded row.
const sourceColumn = "Source_File"

// Loader reads, partitions and normalizes extract files.
type Loader struct {
	logger  *zap.Logger
	payroll map[string]bool
}

// NewLoader creates a Loader with the default payroll filename set.
func NewLoader(logger *zap.Logger) *Loader {
	return &Loader{logger: logger, payroll: defaultPayrollFilenames}
}

// Load reads all extract files, returning normalized primary records and
// the combined payroll table. Payroll file failures are recoverable;
// primary schema failures are not.
func (l *Loader) Load(paths []string) ([]jobs.JobRecord, jobs.PayrollTable, error) {
	var primaries, payrolls []table

	for _, path := range paths {
		name := filepath.Base(path)

		if l.payroll[name] {
			t, err := l.loadPayrollFile(path)
			if err != nil {
				l.logger.Warn("skipping unreadable payroll file",
					zap.String("file", name), zap.Error(err))
				continue
			}
			l.logger.Info("loaded payroll extract",
				zap.String("file", name),
				zap.Int("rows", len(t.rows)),
				zap.Strings("columns", t.cols))
			payrolls = append(payrolls, t)
			continue
		}

		t, err := readTable(path)
		if err != nil {
			return nil, jobs.PayrollTable{}, fmt.Errorf("load %s: %w", name, err)
		}
		t = dropNoiseColumns(t)
		t = t.withColumn(sourceColumn, name)
		l.logger.Info("loaded primary extract",
			zap.String("file", name), zap.Int("rows", len(t.rows)))
		primaries = append(primaries, t)
	}

	combined := mergeTables(primaries)
	l.logger.Info("combined primary data",
		zap.Int("rows", len(combined.rows)), zap.Int("files", len(primaries)))

	records, err := l.normalize(combined)
	if err != nil {
		return nil, jobs.PayrollTable{}, err
	}

	payroll := mergeTables(payrolls)
	if len(payrolls) > 0 {
		l.logger.Info("combined payroll data",
			zap.Int("rows", len(payroll.rows)), zap.Int("files", len(payrolls)))
	}

	return records, jobs.PayrollTable{Columns: payroll.cols, Rows: payroll.rows}, nil
}

// =============================================================================
// RAW TABLES
// =============================================================================

// table is an intermediate header+rows representation of one extract.
type table struct {
	cols []string
	rows [][]string
}

// readTable reads a delimited file into a table. Files that are not valid
// UTF-8 fall back to Windows-1252, the usual encoding of legacy exports.
func readTable(path string) (table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return table{}, err
	}
	if !utf8.Valid(raw) {
		raw, err = charmap.Windows1252.NewDecoder().Bytes(raw)
		if err != nil {
			return table{}, fmt.Errorf("decode: %w", err)
		}
	}
	raw = bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})

	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return table{}, fmt.Errorf("parse: %w", err)
	}
	if len(rows) == 0 {
		return table{}, fmt.Errorf("empty file")
	}

	cols := make([]string, len(rows[0]))
	for i, c := range rows[0] {
		cols[i] = strings.TrimSpace(c)
	}
	return table{cols: cols, rows: rows[1:]}, nil
}

// loadPayrollFile reads one payroll extract with schema sniffing.
func (l *Loader) loadPayrollFile(path string) (table, error) {
	raw, err := readTable(path)
	if err != nil {
		return table{}, err
	}

	named := 0
	for _, c := range raw.cols {
		if !isNoiseColumn(c) {
			named++
		}
	}

	t := raw
	if named >= 10 {
		// Annotation-interleaved layout: keep even-indexed columns and
		// skip the annotation row that follows the header.
		n := named / 2
		if n > 10 {
			n = 10
		}
		idxs := make([]int, 0, n)
		for i := 0; i < n; i++ {
			idxs = append(idxs, 2*i)
		}
		t = project(raw, idxs)
		if len(t.rows) > 0 {
			t.rows = t.rows[1:]
		}
	}

	t = dropNoiseColumns(t)
	return t.withColumn(sourceColumn, filepath.Base(path)), nil
}

// project keeps only the given column indexes, in order.
func project(t table, idxs []int) table {
	out := table{cols: make([]string, 0, len(idxs))}
	for _, i := range idxs {
		out.cols = append(out.cols, t.cols[i])
	}
	out.rows = make([][]string, 0, len(t.rows))
	for _, row := range t.rows {
		projected := make([]string, 0, len(idxs))
		for _, i := range idxs {
			if i < len(row) {
				projected = append(projected, row[i])
			} else {
				projected = append(projected, "")
			}
		}
		out.rows = append(out.rows, projected)
	}
	return out
}

// isNoiseColumn reports whether a header cell is a blank-header artifact.
func isNoiseColumn(name string) bool {
	trimmed := strings.TrimSpace(name)
	return trimmed == "" || strings.HasPrefix(strings.ToLower(trimmed), "unnamed")
}

// dropNoiseColumns removes blank and "Unnamed" columns.
func dropNoiseColumns(t table) table {
	keep := make([]int, 0, len(t.cols))
	for i, c := range t.cols {
		if !isNoiseColumn(c) {
			keep = append(keep, i)
		}
	}
	if len(keep) == len(t.cols) {
		return t
	}
	return project(t, keep)
}

// withColumn appends a constant-valued column.
func (t table) withColumn(name, value string) table {
	out := table{cols: append(append([]string{}, t.cols...), name)}
	out.rows = make([][]string, 0, len(t.rows))
	for _, row := range t.rows {
		out.rows = append(out.rows, append(append([]string{}, row...), value))
	}
	return out
}

// columnIndex finds a column by trimmed name, or -1.
func (t table) columnIndex(name string) int {
	for i, c := range t.cols {
		if strings.TrimSpace(c) == name {
			return i
		}
	}
	return -1
}

// cell reads a value tolerating short rows.
func (t table) cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// mergeTables concatenates tables over the union of their columns, filling
// missing cells with the empty string.
func mergeTables(tables []table) table {
	var out table
	seen := map[string]int{}
	for _, t := range tables {
		for _, c := range t.cols {
			if _, ok := seen[c]; !ok {
				seen[c] = len(out.cols)
				out.cols = append(out.cols, c)
			}
		}
	}
	for _, t := range tables {
		idx := make([]int, len(t.cols))
		for i, c := range t.cols {
			idx[i] = seen[c]
		}
		for _, row := range t.rows {
			merged := make([]string, len(out.cols))
			for i, v := range row {
				if i < len(idx) {
					merged[idx[i]] = v
				}
			}
			out.rows = append(out.rows, merged)
		}
	}
	return out
}
