package driver

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpuopen-tools/rgd-testkit/internal/config"
	"github.com/gpuopen-tools/rgd-testkit/internal/pipeline"
	"github.com/gpuopen-tools/rgd-testkit/pkg/artifact"
	"github.com/gpuopen-tools/rgd-testkit/pkg/caserecord"
	"github.com/gpuopen-tools/rgd-testkit/pkg/legacylog"
	"github.com/gpuopen-tools/rgd-testkit/pkg/log"
)

type driverTest struct {
	crashGenDir  string
	outDir       string
	artifactsDir string

	logOutput     *bytes.Buffer
	legacyConsole *bytes.Buffer

	driver *Driver
}

// setUpDriverTest builds a driver over a pipeline whose kit
// executables are shell scripts. Each descriptor content string is
// written to its own file and all of them become the run's descriptor
// list.
func setUpDriverTest(t *testing.T, retain bool, descriptors []string, captureScript, backendScript, cliScript string) *driverTest {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test fixtures are shell scripts")
	}

	baseDir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	crashingAppDir := filepath.Join(baseDir, "sample_apps", "GpuTrasher")
	ts := &driverTest{
		crashGenDir:   filepath.Join(baseDir, "kit"),
		outDir:        filepath.Join(baseDir, "Output-20250102_030405"),
		artifactsDir:  filepath.Join(baseDir, "Output-20250102_030405", "RGDFiles"),
		logOutput:     &bytes.Buffer{},
		legacyConsole: &bytes.Buffer{},
	}
	for _, dir := range []string{crashingAppDir, ts.crashGenDir, ts.artifactsDir} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}

	var descriptorPaths []string
	for i, contents := range descriptors {
		path := filepath.Join(baseDir, fmt.Sprintf("descriptor%d.json", i))
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
		descriptorPaths = append(descriptorPaths, path)
	}

	logger := log.NewLogger()
	logger.Output = ts.logOutput
	logger.SetConsoleVerbosity(true)
	require.NoError(t, logger.SetFileHandler(ts.outDir, "20250102_030405"))

	legacy := legacylog.NewLogger("20250102_030405")
	legacy.Output = ts.legacyConsole
	legacy.SetExtendedLogDir(ts.artifactsDir)
	require.NoError(t, legacy.SetFileHandler(ts.outDir))

	conf := &config.TestConfig{
		OutDir:               ts.outDir,
		ArtifactsDir:         ts.artifactsDir,
		Descriptors:          descriptorPaths,
		APIs:                 []string{"DX12"},
		Retain:               retain,
		CrashingAppDir:       crashingAppDir,
		CrashGeneratorPath:   writeTool(t, ts.crashGenDir, "GpuTrasherTestCli", captureScript),
		BackendValidatorPath: writeTool(t, ts.crashGenDir, "rgd_test", backendScript),
		CLIPath:              writeTool(t, ts.crashGenDir, "rgd", cliScript),
	}

	locator := artifact.NewLocator(crashingAppDir, ts.crashGenDir, ts.artifactsDir, logger, legacy)
	pipe := pipeline.NewPipeline(conf, locator, logger, legacy)
	ts.driver = NewDriver(conf, pipe, logger, legacy)
	return ts
}

func writeTool(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	err := os.WriteFile(path, []byte("#!/bin/sh\n"+contents), 0o755)
	require.NoError(t, err)
	return path
}

func TestRunTests_ExpectedNoCrash(t *testing.T) {
	ts := setUpDriverTest(t, true, []string{
		`{"DX12": [{"test_name": "NoCrash", "crash_test_case": 3, "verify_crash_dump": true}]}`,
	}, `exit 0`, `exit 0`, `exit 0`)

	failed, err := ts.driver.RunTests(context.Background())
	require.NoError(t, err)
	assert.False(t, failed)
	assert.Equal(t, RunCounters{CapturePassed: 1}, ts.driver.counters)

	summary := ts.legacyConsole.String()
	assert.Contains(t, summary, "BackendTest: Skipped. For case #3, crash dump is not generated which is expected on the current system config.")
	assert.Contains(t, summary, "Capture Test runs: 1 out of 1......[PASSED]")
	assert.Contains(t, summary, "Backend Test runs: 0 out of 0......[PASSED]")

	output := ts.logOutput.String()
	assert.Contains(t, output, "Running tests for API - DX12")
	assert.Contains(t, output, "PASSED: 1/1")
	assert.Contains(t, output, "FAILED: 0/1")
	assert.Contains(t, output, "RGD Test log file: "+filepath.Join(filepath.Base(ts.outDir), "Log_20250102_030405.txt"))

	records, err := caserecord.ListRecords(ts.outDir)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, caserecord.OutcomePassed, records[0].Outcome)
	assert.False(t, records[0].BackendRan)
}

func TestRunTests_FullRun(t *testing.T) {
	ts := setUpDriverTest(t, true, []string{
		`{"DX12": [{"test_name": "ExecutionMarkerTest", "crash_test_case": 3, "verify_crash_dump": true, "verify_rgd_output": true}]}`,
	}, `
mkdir -p rgd-dumps-run1
echo dump > "rgd-dumps-run1/trasher-case3.rgd"
exit 1
`, `
echo "All tests passed (12 assertions in 3 test cases)"
exit 0
`, `
echo "{}" > "$2"
echo "report" > "$4"
`)

	failed, err := ts.driver.RunTests(context.Background())
	require.NoError(t, err)
	assert.False(t, failed)
	assert.Equal(t, RunCounters{CapturePassed: 1, BackendPassed: 1}, ts.driver.counters)

	summary := ts.legacyConsole.String()
	assert.Contains(t, summary, "Capture Test runs: 1 out of 1......[PASSED]")
	assert.Contains(t, summary, "Backend Test runs: 1 out of 1......[PASSED]")
	assert.Contains(t, summary, "Capture Test Log    : ")
	assert.Contains(t, summary, "RGD Backend Test Log: ")
	assert.Contains(t, summary, "Test Run Summary    : ")

	// Passing runs with retention keep the artifacts.
	assert.DirExists(t, ts.artifactsDir)

	records, err := caserecord.ListRecords(ts.outDir)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, caserecord.OutcomePassed, records[0].Outcome)
	assert.True(t, records[0].BackendRan)
	assert.True(t, records[0].DumpGenerated)
}

func TestRunTests_RemovesArtifactsWithoutRetention(t *testing.T) {
	ts := setUpDriverTest(t, false, []string{
		`{"DX12": [{"test_name": "NoCrash", "crash_test_case": 3, "verify_crash_dump": true}]}`,
	}, `exit 0`, `exit 0`, `exit 0`)

	failed, err := ts.driver.RunTests(context.Background())
	require.NoError(t, err)
	assert.False(t, failed)

	assert.NoDirExists(t, ts.artifactsDir)
	// Only the artifacts are removed; logs and records stay.
	assert.DirExists(t, ts.outDir)
}

func TestRunTests_CaptureFailure(t *testing.T) {
	ts := setUpDriverTest(t, false, []string{
		`{"DX12": [{"test_name": "LaunchFailure", "crash_test_case": 2, "verify_crash_dump": true}]}`,
	}, `exit 1`, `exit 0`, `exit 0`)

	failed, err := ts.driver.RunTests(context.Background())
	require.NoError(t, err)
	assert.True(t, failed)
	assert.Equal(t, RunCounters{CaptureFailed: 1}, ts.driver.counters)

	assert.Contains(t, ts.legacyConsole.String(), "Capture Test runs: 0 out of 1......[FAILED]")

	output := ts.logOutput.String()
	assert.Contains(t, output, "PASSED: 0/1")
	assert.Contains(t, output, "FAILED: 1/1")
	assert.Contains(t, output, "Test output files are retained! Path: "+ts.artifactsDir)

	// Failed runs keep their output regardless of the retention flag.
	assert.DirExists(t, ts.artifactsDir)

	records, err := caserecord.ListRecords(ts.outDir)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, caserecord.OutcomeFailed, records[0].Outcome)
	assert.Equal(t, "capture", records[0].FailedStage())
}

func TestRunTests_BackendFailure(t *testing.T) {
	ts := setUpDriverTest(t, true, []string{
		`{"DX12": [{"test_name": "MarkerTest", "crash_test_case": 4, "verify_crash_dump": true}]}`,
	}, `
mkdir -p rgd-dumps-run1
echo dump > "rgd-dumps-run1/trasher-case4.rgd"
exit 1
`, `
echo "assertions: 12 | 10 passed | 2 failed"
exit 2
`, `
echo "{}" > "$2"
echo "report" > "$4"
`)

	failed, err := ts.driver.RunTests(context.Background())
	require.NoError(t, err)
	assert.True(t, failed)
	assert.Equal(t, RunCounters{CapturePassed: 1, BackendFailed: 1}, ts.driver.counters)

	summary := ts.legacyConsole.String()
	assert.Contains(t, summary, "Capture Test runs: 1 out of 1......[PASSED]")
	assert.Contains(t, summary, "Backend Test runs: 0 out of 1......[FAILED]")
}

func TestRunTests_SkipsDeclarations(t *testing.T) {
	ts := setUpDriverTest(t, true, []string{
		`{
			"Mantle": [{"test_name": "OldAPI", "crash_test_case": 1, "verify_crash_dump": true}],
			"DX12": [
				{"test_name": "NotVerified", "crash_test_case": 2},
				{"test_name": "NoCase", "verify_crash_dump": true}
			]
		}`,
	}, `exit 0`, `exit 0`, `exit 0`)

	failed, err := ts.driver.RunTests(context.Background())
	require.NoError(t, err)
	assert.False(t, failed)
	assert.Empty(t, ts.driver.cases)
	assert.Equal(t, RunCounters{}, ts.driver.counters)

	output := ts.logOutput.String()
	assert.Contains(t, output, "Mantle is not supported. Supported APIs - DX12")
	assert.Contains(t, output, `Test "NotVerified" is ignored as "verify_crash_dump" is not set in the test descriptor.`)
	assert.Contains(t, output, `Invalid/No case no provided for test "NoCase".`)

	assert.Contains(t, ts.legacyConsole.String(), "Capture Test runs: 0 out of 0......[PASSED]")
}

func TestRunTests_MultipleDescriptors(t *testing.T) {
	ts := setUpDriverTest(t, true, []string{
		`{"DX12": [{"test_name": "First", "crash_test_case": 3, "verify_crash_dump": true}]}`,
		`{"DX12": [{"test_name": "Second", "crash_test_case": 7, "verify_crash_dump": true}]}`,
	}, `exit 0`, `exit 0`, `exit 0`)

	failed, err := ts.driver.RunTests(context.Background())
	require.NoError(t, err)
	assert.False(t, failed)
	assert.Equal(t, RunCounters{CapturePassed: 2}, ts.driver.counters)

	// One summary covering the cases of all descriptor files.
	assert.Contains(t, ts.legacyConsole.String(), "Capture Test runs: 2 out of 2......[PASSED]")

	records, err := caserecord.ListRecords(ts.outDir)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 3, records[0].CaseNo)
	assert.Equal(t, 7, records[1].CaseNo)
}

func TestRunTests_UnreadableDescriptor(t *testing.T) {
	ts := setUpDriverTest(t, true, []string{}, `exit 0`, `exit 0`, `exit 0`)
	ts.driver.conf.Descriptors = []string{filepath.Join(ts.outDir, "missing.json")}

	_, err := ts.driver.RunTests(context.Background())
	require.Error(t, err)
}

func TestRunTests_Cancelled(t *testing.T) {
	ts := setUpDriverTest(t, true, []string{
		`{"DX12": [{"test_name": "First", "crash_test_case": 3, "verify_crash_dump": true}]}`,
	}, `exit 0`, `exit 0`, `exit 0`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ts.driver.RunTests(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, ts.driver.cases)
}
