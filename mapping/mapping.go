/*
Package mapping loads the school-to-superintendent reference table and
back-fills job records with their owning organizational unit.

PURPOSE:
  The primary extract only carries a school location code. Reports need
  the supervisory layer above the school: superintendent, district and
  borough. This package owns the reference table keyed by location code
  and the enrichment pass over job records.

KEY RULES:
  - The reference file is selected by a fixed filename prefix; zero
    matches is fatal, multiple matches silently take the first.
  - Location codes are the DBN with its 2-character district prefix
    stripped ("01M015" -> "M015").
  - Legacy district 75 is remapped to 97 before dedup.
  - Duplicate location codes keep the first occurrence. This is a known
    data-quality compromise, logged with a sample, not a correctness
    guarantee.
  - Unresolved lookups default to the literal "Unknown" in every
    enrichment column.

DESIGN:
  The Mapping is an explicitly constructed immutable value passed into
  Enrich; there is no package-level cache, so runs stay test-isolated.

SEE ALSO:
  - ingest: Produces the records Enrich operates on
*/
package mapping

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/subcentral/fillrate-engine/jobs"
)

// ErrNoMappingFile is returned when no reference file matches the prefix.
var ErrNoMappingFile = errors.New("no reference mapping file found")

// SchoolInfo is everything the reference table knows about one school.
type SchoolInfo struct {
	District       string
	Borough        string
	Superintendent string
	DBN            string
	SchoolName     string
}

// Mapping is the reference table keyed by location code.
type Mapping map[string]SchoolInfo

// =============================================================================
// FILE SELECTION AND LOADING
// =============================================================================

// Find locates the reference file in dir by filename prefix. Zero matches
// is an error; multiple matches take the first in lexical order.
func Find(dir, prefix string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"*.csv"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: prefix %q in %s", ErrNoMappingFile, prefix, dir)
	}
	sort.Strings(matches)
	return matches[0], nil
}

// Load reads the reference file and builds the location-keyed mapping.
func Load(path string, logger *zap.Logger) (Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mapping file: %w", err)
	}
	defer f.Close()

	rows, cols, err := readCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read mapping file %s: %w", filepath.Base(path), err)
	}

	idx := map[string]int{}
	for _, name := range []string{"DBN", "Dist", "Boro", "Superintendent", "School Name"} {
		i := -1
		for j, c := range cols {
			if strings.TrimSpace(c) == name {
				i = j
				break
			}
		}
		if i < 0 {
			return nil, fmt.Errorf("mapping file missing required column %q", name)
		}
		idx[name] = i
	}

	m := make(Mapping, len(rows))
	var duplicates []string

	for _, row := range rows {
		dbn := strings.TrimSpace(cell(row, idx["DBN"]))
		superintendent := strings.TrimSpace(cell(row, idx["Superintendent"]))
		if dbn == "" || superintendent == "" {
			continue
		}

		district := zeroPad2(strings.TrimSpace(cell(row, idx["Dist"])))
		// Legacy unit code: district 75 programs report under 97.
		if district == "75" {
			district = "97"
		}

		location := dbn
		if len(dbn) > 2 {
			location = dbn[2:]
		}

		if existing, ok := m[location]; ok {
			if len(duplicates) < 10 {
				duplicates = append(duplicates, fmt.Sprintf(
					"%s: kept %s (district %s), ignored %s (district %s)",
					location, existing.Superintendent, existing.District, superintendent, district))
			}
			continue
		}

		m[location] = SchoolInfo{
			District:       district,
			Borough:        strings.TrimSpace(cell(row, idx["Boro"])),
			Superintendent: superintendent,
			DBN:            dbn,
			SchoolName:     strings.TrimSpace(cell(row, idx["School Name"])),
		}
	}

	if len(duplicates) > 0 {
		logger.Warn("duplicate school mappings resolved first-occurrence-wins",
			zap.Int("duplicates", len(duplicates)),
			zap.Strings("sample", duplicates))
	}
	logger.Info("loaded school mapping",
		zap.String("file", filepath.Base(path)),
		zap.Int("schools", len(m)))

	return m, nil
}

// =============================================================================
// ENRICHMENT
// =============================================================================

// Enrich returns a copy of records with superintendent, district, borough,
// DBN and school name filled from the mapping. Unresolved locations keep
// "Unknown" in every enrichment column. The mapped fraction is logged as a
// diagnostic, never treated as a failure.
func Enrich(records []jobs.JobRecord, m Mapping, logger *zap.Logger) []jobs.JobRecord {
	out := make([]jobs.JobRecord, len(records))
	mapped := 0

	for i, rec := range records {
		out[i] = rec
		info, ok := m[rec.Location]
		if !ok {
			continue
		}
		out[i].Superintendent = info.Superintendent
		out[i].MappedDistrict = info.District
		out[i].MappedBorough = info.Borough
		out[i].DBN = info.DBN
		out[i].SchoolName = info.SchoolName
		mapped++
	}

	pct := 0.0
	if len(records) > 0 {
		pct = float64(mapped) / float64(len(records)) * 100
	}
	logger.Info("enriched records with school mapping",
		zap.Int("mapped", mapped),
		zap.Int("total", len(records)),
		zap.Float64("mapped_pct", pct))

	return out
}

// =============================================================================
// HELPERS
// =============================================================================

// readCSV reads header and data rows, tolerating ragged rows.
func readCSV(r io.Reader) ([][]string, []string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	all, err := cr.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(all) == 0 {
		return nil, nil, errors.New("empty file")
	}
	return all[1:], all[0], nil
}

func zeroPad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
