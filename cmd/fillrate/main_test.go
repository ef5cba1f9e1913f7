package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRun_NoExtractFilesIsFatal(t *testing.T) {
	// GIVEN: A data directory with no CSV extracts
	// WHEN: The pipeline runs
	// THEN: It fails instead of writing an empty artifact

	dir := t.TempDir()
	err := run(zap.NewNop(), dir, "8.8.25", filepath.Join(dir, "out.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no extract files")
}

func TestRun_MappingFileAloneIsNotAnExtract(t *testing.T) {
	// The reference mapping is excluded from the extract set, so a
	// directory holding only the mapping file still has no data.

	dir := t.TempDir()
	mappingCSV := "DBN,Dist,Boro,Superintendent,School Name\n01M015,1,M,Alice Rivera,PS 15\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "8.8.25 schools.csv"), []byte(mappingCSV), 0o644))

	err := run(zap.NewNop(), dir, "8.8.25", filepath.Join(dir, "out.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no extract files")
}
