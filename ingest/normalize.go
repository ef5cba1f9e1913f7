/*
normalize.go - Primary-table post-processing

Turns the combined primary table into typed JobRecords:
  - Classification cleanup (whitespace, gender qualifiers)
  - Rows without a District are dropped (cannot be attributed)
  - Type trimmed and title-cased
  - Fill status derived from the finished-status whitelist
  - Job Start parsed from serial or free-text form, nil on failure

The before/after counts logged here are the audit trail for data-quality
problems; keep them intact when changing filter logic.
*/
package ingest

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/subcentral/fillrate-engine/jobs"
)

// requiredColumns must be present in the combined primary table.
var requiredColumns = []string{"Location", "Classification", "Type", "Status", "District"}

// normalize converts the combined primary table into JobRecords.
// An empty table yields no records and no error.
func (l *Loader) normalize(t table) ([]jobs.JobRecord, error) {
	if len(t.rows) == 0 {
		return nil, nil
	}

	idx := map[string]int{}
	for _, name := range requiredColumns {
		i := t.columnIndex(name)
		if i < 0 {
			return nil, fmt.Errorf("primary extract missing required column %q", name)
		}
		idx[name] = i
	}
	jobStartIdx := t.columnIndex("Job Start")
	specifiedSubIdx := t.columnIndex("Specified Sub")
	sourceIdx := t.columnIndex(sourceColumn)

	titleCaser := cases.Title(language.English)

	var (
		records        []jobs.JobRecord
		droppedNoUnit  int
		badDates       int
		badIdentifiers int
	)

	for _, row := range t.rows {
		districtRaw := strings.TrimSpace(t.cell(row, idx["District"]))
		if districtRaw == "" {
			droppedNoUnit++
			continue
		}
		districtF, err := cast.ToFloat64E(districtRaw)
		if err != nil {
			return nil, fmt.Errorf("primary extract: non-numeric District %q", districtRaw)
		}

		location := strings.TrimSpace(t.cell(row, idx["Location"]))
		status := strings.TrimSpace(t.cell(row, idx["Status"]))
		typ := jobs.JobType(titleCaser.String(strings.TrimSpace(t.cell(row, idx["Type"]))))
		fill := jobs.FillStatusOf(status)

		jobStart := jobs.ParseDate(t.cell(row, jobStartIdx))
		if jobStart == nil && strings.TrimSpace(t.cell(row, jobStartIdx)) != "" {
			badDates++
		}

		var specifiedSub *int64
		if raw := strings.TrimSpace(t.cell(row, specifiedSubIdx)); raw != "" {
			if f, err := cast.ToFloat64E(raw); err == nil {
				v := int64(f)
				specifiedSub = &v
			} else {
				badIdentifiers++
			}
		}

		records = append(records, jobs.JobRecord{
			Location:       location,
			Classification: jobs.CleanClassification(t.cell(row, idx["Classification"])),
			Type:           typ,
			Status:         status,
			FillStatus:     fill,
			Bucket:         jobs.BucketOf(typ, fill),
			District:       int(districtF),
			Borough:        jobs.BoroughOf(location),
			JobStart:       jobStart,
			SpecifiedSub:   specifiedSub,
			SourceFile:     t.cell(row, sourceIdx),
			Superintendent: "Unknown",
			MappedDistrict: "Unknown",
			MappedBorough:  "Unknown",
			DBN:            "Unknown",
			SchoolName:     "Unknown",
		})
	}

	l.logger.Info("normalized primary records",
		zap.Int("input_rows", len(t.rows)),
		zap.Int("records", len(records)),
		zap.Int("dropped_no_district", droppedNoUnit),
		zap.Int("unparseable_dates", badDates),
		zap.Int("unparseable_identifiers", badIdentifiers))

	return records, nil
}
