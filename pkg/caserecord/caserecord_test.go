package caserecord

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord(caseNo int, outcome Outcome) *Record {
	return &Record{
		CaseNo:        caseNo,
		Name:          "PageFaultTest",
		API:           "DX12",
		Outcome:       outcome,
		AppCrashed:    true,
		DumpGenerated: true,
		CapturePassed: true,
		BackendRan:    true,
		BackendPassed: outcome == OutcomePassed,
		CLIPassed:     true,
		CreatedAt:     time.Now(),
	}
}

func TestSaveAndLoad(t *testing.T) {
	outDir := t.TempDir()
	record := testRecord(3, OutcomePassed)
	record.DumpFile = "umd_crash_case3.rgd"

	err := record.Save(outDir)
	require.NoError(t, err)

	loaded, err := LoadRecord(outDir, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.CaseNo)
	assert.Equal(t, "PageFaultTest", loaded.Name)
	assert.Equal(t, OutcomePassed, loaded.Outcome)
	assert.Equal(t, "umd_crash_case3.rgd", loaded.DumpFile)
	assert.True(t, loaded.BackendRan)
}

func TestLoadRecord_NotExist(t *testing.T) {
	outDir := t.TempDir()

	_, err := LoadRecord(outDir, 42)
	require.Error(t, err)
	assert.True(t, IsNotExistError(err))
}

func TestListRecords(t *testing.T) {
	outDir := t.TempDir()
	for _, caseNo := range []int{10, 2, 7} {
		err := testRecord(caseNo, OutcomePassed).Save(outDir)
		require.NoError(t, err)
	}

	records, err := ListRecords(outDir)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Ordered by case number, not by file name
	assert.Equal(t, 2, records[0].CaseNo)
	assert.Equal(t, 7, records[1].CaseNo)
	assert.Equal(t, 10, records[2].CaseNo)
}

func TestListRecords_NoRecordsDir(t *testing.T) {
	records, err := ListRecords(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFailedStage(t *testing.T) {
	record := testRecord(1, OutcomePassed)
	assert.Equal(t, "", record.FailedStage())

	record.CapturePassed = false
	assert.Equal(t, "capture", record.FailedStage())

	record.CapturePassed = true
	record.BackendPassed = false
	assert.Equal(t, "backend", record.FailedStage())

	// A backend stage that never ran cannot be the failed stage
	record.BackendRan = false
	record.CLIPassed = false
	assert.Equal(t, "cli", record.FailedStage())
}

func TestShortDescription(t *testing.T) {
	record := testRecord(3, OutcomeFailed)
	record.BackendPassed = false
	assert.Equal(t, "[03] PageFaultTest FAILED (backend stage)", record.ShortDescription())
}
