/*
main.go - Pipeline entry point

PURPOSE:
  Runs the full fill-rate analysis: load extracts, reconcile against
  payroll, enrich with the school mapping, compute summary statistics at
  every granularity, and write the run artifact.

PIPELINE:
  1. Discover extract files in the data directory
  2. Load and normalize primary + payroll data
  3. Cross-system matching analysis
  4. School mapping enrichment (warn-and-continue when unavailable)
  5. Summary statistics: citywide, borough, superintendent, school
  6. Persist everything as one run in the SQLite artifact

COMMAND-LINE FLAGS:
  -data            Directory containing the CSV extracts (default: ".")
  -mapping-prefix  Filename prefix of the reference mapping file
                   (default: "8.8.25")
  -out             SQLite artifact path (default: "fillrate.db")
  -debug           Enable debug logging

EXIT BEHAVIOR:
  Fatal errors (no primary data, broken primary schema) log and exit
  non-zero. Recoverable data-quality problems are logged and the run
  completes with the reduced dataset; the log is the audit trail.

SEE ALSO:
  - ingest: Loading and normalization
  - reconcile: Payroll matching
  - store/sqlite: Artifact schema
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/subcentral/fillrate-engine/ingest"
	"github.com/subcentral/fillrate-engine/mapping"
	"github.com/subcentral/fillrate-engine/reconcile"
	"github.com/subcentral/fillrate-engine/stats"
	"github.com/subcentral/fillrate-engine/store/sqlite"
)

func main() {
	dataDir := flag.String("data", ".", "directory containing the CSV extracts")
	mappingPrefix := flag.String("mapping-prefix", "8.8.25", "filename prefix of the reference mapping file")
	out := flag.String("out", "fillrate.db", "SQLite artifact path")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	config := zap.NewProductionConfig()
	if *debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := config.Build()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(logger, *dataDir, *mappingPrefix, *out); err != nil {
		logger.Error("run failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger, dataDir, mappingPrefix, out string) error {
	start := time.Now()
	ctx := context.Background()

	mappingPath, mappingErr := mapping.Find(dataDir, mappingPrefix)

	paths, err := filepath.Glob(filepath.Join(dataDir, "*.csv"))
	if err != nil {
		return err
	}
	// The reference mapping is not a staffing extract.
	if mappingErr == nil {
		paths = exclude(paths, mappingPath)
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return fmt.Errorf("no extract files found in %s", dataDir)
	}
	logger.Info("discovered extract files", zap.Int("files", len(paths)))

	loader := ingest.NewLoader(logger)
	records, payroll, err := loader.Load(paths)
	if err != nil {
		return err
	}

	// Matching runs before enrichment: it only needs normalized records.
	matcher := reconcile.NewMatcher(logger)
	matches := matcher.Match(records, payroll)

	if mappingErr != nil {
		logger.Warn("no school mapping available, continuing without enrichment",
			zap.Error(mappingErr))
	} else {
		m, err := mapping.Load(mappingPath, logger)
		if err != nil {
			logger.Warn("could not load school mapping, continuing without enrichment",
				zap.Error(err))
		} else {
			records = mapping.Enrich(records, m, logger)
		}
	}

	dateRange := stats.DateRange(records)
	logger.Info("report period", zap.String("range", dateRange))

	summaries := map[string][]stats.SummaryRow{
		"citywide":       stats.Summarize(records, nil),
		"borough":        stats.Summarize(records, []stats.Field{stats.FieldBorough}),
		"superintendent": stats.Summarize(records, []stats.Field{stats.FieldSuperintendent}),
		"school":         stats.Summarize(records, []stats.Field{stats.FieldSuperintendent, stats.FieldLocation}),
	}
	for level, rows := range summaries {
		logger.Info("computed summary statistics",
			zap.String("level", level), zap.Int("rows", len(rows)))
	}

	st, err := sqlite.New(out)
	if err != nil {
		return err
	}
	defer st.Close()

	artifact := sqlite.Run{
		ID:        uuid.New(),
		CreatedAt: time.Now(),
		DateRange: dateRange,
		Records:   records,
		Summaries: summaries,
		Matches:   matches,
	}
	if err := st.SaveRun(ctx, artifact); err != nil {
		return err
	}

	logger.Info("run artifact written",
		zap.String("run_id", artifact.ID.String()),
		zap.String("path", out),
		zap.Int("records", len(records)),
		zap.Int("match_locations", len(matches)),
		zap.Duration("elapsed", time.Since(start)))

	return nil
}

func exclude(paths []string, drop string) []string {
	out := paths[:0]
	for _, p := range paths {
		if p != drop {
			out = append(out, p)
		}
	}
	return out
}
