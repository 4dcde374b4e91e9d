package results

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpuopen-tools/rgd-testkit/internal/cmdutils"
	"github.com/gpuopen-tools/rgd-testkit/pkg/caserecord"
)

// setUpRunDir creates a run output directory holding the records of
// one passed and one failed case.
func setUpRunDir(t *testing.T) string {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	runDir := filepath.Join(t.TempDir(), "Output-20250102_030405")
	require.NoError(t, os.MkdirAll(runDir, 0o755))

	passed := &caserecord.Record{
		CaseNo:        1,
		Name:          "DriverSanity",
		API:           "DX12",
		Outcome:       caserecord.OutcomePassed,
		AppCrashed:    true,
		DumpGenerated: true,
		CapturePassed: true,
		BackendRan:    true,
		BackendPassed: true,
		CLIPassed:     true,
	}
	failed := &caserecord.Record{
		CaseNo:        3,
		Name:          "PageFault",
		API:           "DX12",
		Outcome:       caserecord.OutcomeFailed,
		AppCrashed:    true,
		DumpGenerated: true,
		CapturePassed: true,
		BackendRan:    true,
		FailureLog:    filepath.Join(runDir, "RGDFiles", "extended_output_case_3.txt"),
	}
	require.NoError(t, passed.Save(runDir))
	require.NoError(t, failed.Save(runDir))

	return runDir
}

func TestResults_List(t *testing.T) {
	runDir := setUpRunDir(t)

	_, err := cmdutils.ExecuteCommand(t, New(), os.Stdin, "--output-dir", runDir)
	require.NoError(t, err)
}

func TestResults_ListJSON(t *testing.T) {
	runDir := setUpRunDir(t)

	output, err := cmdutils.ExecuteCommand(t, New(), os.Stdin, "--output-dir", runDir, "--json")
	require.NoError(t, err)
	assert.Contains(t, output, `"case_no": 1`)
	assert.Contains(t, output, `"case_no": 3`)
	assert.Contains(t, output, `"outcome": "FAILED"`)
}

func TestResults_ListNoRuns(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	output, err := cmdutils.ExecuteCommand(t, New(), os.Stdin, "--kit-dir", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, output, "No case results found. Run the tests first.")
}

func TestResults_Show(t *testing.T) {
	runDir := setUpRunDir(t)

	output, err := cmdutils.ExecuteCommand(t, New(), os.Stdin, "--output-dir", runDir, "3")
	require.NoError(t, err)
	assert.Contains(t, output, "[03] PageFault FAILED (backend stage)")
	assert.Contains(t, output, `"backend_passed"`)
	assert.Contains(t, output, "Extended failure log: ")
}

func TestResults_ShowJSON(t *testing.T) {
	runDir := setUpRunDir(t)

	output, err := cmdutils.ExecuteCommand(t, New(), os.Stdin, "--output-dir", runDir, "--json", "1")
	require.NoError(t, err)
	assert.Contains(t, output, `"outcome": "PASSED"`)
	assert.NotContains(t, output, `"case_no": 3`)
}

func TestResults_ShowNotExist(t *testing.T) {
	runDir := setUpRunDir(t)

	_, err := cmdutils.ExecuteCommand(t, New(), os.Stdin, "--output-dir", runDir, "7")
	require.Error(t, err)
	assert.True(t, cmdutils.IsSilentError(err))
}

func TestResults_InvalidCaseNumber(t *testing.T) {
	runDir := setUpRunDir(t)

	_, err := cmdutils.ExecuteCommand(t, New(), os.Stdin, "--output-dir", runDir, "first")
	require.Error(t, err)
	assert.True(t, cmdutils.IsIncorrectUsageError(err))
}

func TestResults_OpenWithoutCase(t *testing.T) {
	runDir := setUpRunDir(t)

	_, err := cmdutils.ExecuteCommand(t, New(), os.Stdin, "--output-dir", runDir, "--open")
	require.Error(t, err)
	assert.True(t, cmdutils.IsIncorrectUsageError(err))
}
