package artifact

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpuopen-tools/rgd-testkit/pkg/legacylog"
	"github.com/gpuopen-tools/rgd-testkit/pkg/log"
)

const testTimestamp = "20250102_120000"

func newTestLocator(t *testing.T) (*Locator, *bytes.Buffer) {
	t.Helper()

	tempDir := t.TempDir()
	appDir := filepath.Join(tempDir, "sample_apps", "GpuTrasher")
	genDir := filepath.Join(tempDir, "kit")
	artifactsDir := filepath.Join(tempDir, "Output-"+testTimestamp, "RGDFiles")
	for _, dir := range []string{appDir, genDir, artifactsDir} {
		err := os.MkdirAll(dir, 0o755)
		require.NoError(t, err)
	}

	logger := log.NewLogger()
	logger.Output = io.Discard
	consoleOut := &bytes.Buffer{}
	legacy := legacylog.NewLogger(testTimestamp)
	legacy.Output = consoleOut

	return NewLocator(appDir, genDir, artifactsDir, logger, legacy), consoleOut
}

func writeTestFile(t *testing.T, path string) {
	t.Helper()
	err := os.MkdirAll(filepath.Dir(path), 0o755)
	require.NoError(t, err)
	err = os.WriteFile(path, []byte("content"), 0o644)
	require.NoError(t, err)
}

func TestMoveCrashLog(t *testing.T) {
	locator, _ := newTestLocator(t)
	writeTestFile(t, filepath.Join(locator.CrashingAppDir, "GpuTrasher_DX12_case3_"+testTimestamp+".txt"))

	appCrashed := locator.MoveCrashLog(3)
	assert.True(t, appCrashed)

	// The log file was renamed and moved into the artifacts directory
	movedLog := filepath.Join(locator.ArtifactsDir, "GpuTrasher_DX12_case3_"+testTimestamp+"-log.txt")
	assert.FileExists(t, movedLog)
	entries, err := os.ReadDir(locator.CrashingAppDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMoveCrashLog_LogFromOtherCase(t *testing.T) {
	locator, _ := newTestLocator(t)
	writeTestFile(t, filepath.Join(locator.CrashingAppDir, "GpuTrasher_DX12_case7_"+testTimestamp+".txt"))

	appCrashed := locator.MoveCrashLog(3)

	// A stale log from another case does not count as a crash of this
	// case but is still collected
	assert.False(t, appCrashed)
	assert.FileExists(t, filepath.Join(locator.ArtifactsDir, "GpuTrasher_DX12_case7_"+testTimestamp+"-log.txt"))
}

func TestMoveCrashLog_NoLog(t *testing.T) {
	locator, _ := newTestLocator(t)

	appCrashed := locator.MoveCrashLog(3)
	assert.False(t, appCrashed)
}

func TestMoveDump(t *testing.T) {
	locator, _ := newTestLocator(t)
	runDir := filepath.Join(locator.CrashGeneratorDir, "rgd-dumps-run-"+testTimestamp)
	writeTestFile(t, filepath.Join(runDir, "umd_crash_case3.rgd"))

	dumpPath, dumpFound, err := locator.MoveDump(3)
	require.NoError(t, err)
	assert.True(t, dumpFound)
	assert.Equal(t, filepath.Join(locator.ArtifactsDir, "umd_crash_case3.rgd"), dumpPath)
	assert.FileExists(t, dumpPath)
	assert.NoDirExists(t, runDir)
}

func TestMoveDump_NoRunDir(t *testing.T) {
	locator, _ := newTestLocator(t)

	dumpPath, dumpFound, err := locator.MoveDump(3)
	require.NoError(t, err)
	assert.False(t, dumpFound)
	assert.Empty(t, dumpPath)
}

func TestMoveDump_NoMatchingDump(t *testing.T) {
	locator, _ := newTestLocator(t)
	runDir := filepath.Join(locator.CrashGeneratorDir, "rgd-dumps-run-"+testTimestamp)
	writeTestFile(t, filepath.Join(runDir, "umd_crash_case9.rgd"))

	dumpPath, dumpFound, err := locator.MoveDump(3)
	require.NoError(t, err)
	assert.False(t, dumpFound)
	assert.Empty(t, dumpPath)

	// The run directory is removed even when it held no dump for this
	// case, the next case starts from a clean slate
	assert.NoDirExists(t, runDir)
}

func TestMoveDump_PicksLatestRunDir(t *testing.T) {
	locator, _ := newTestLocator(t)
	oldRunDir := filepath.Join(locator.CrashGeneratorDir, "rgd-dumps-run-20240101_080000")
	newRunDir := filepath.Join(locator.CrashGeneratorDir, "rgd-dumps-run-"+testTimestamp)
	writeTestFile(t, filepath.Join(oldRunDir, "umd_crash_case3.rgd"))
	writeTestFile(t, filepath.Join(newRunDir, "umd_crash_case3_fresh.rgd"))

	dumpPath, dumpFound, err := locator.MoveDump(3)
	require.NoError(t, err)
	assert.True(t, dumpFound)
	assert.Equal(t, filepath.Join(locator.ArtifactsDir, "umd_crash_case3_fresh.rgd"), dumpPath)
	assert.NoDirExists(t, oldRunDir)
	assert.NoDirExists(t, newRunDir)
}

func TestMoveDump_CreatesLockFile(t *testing.T) {
	locator, _ := newTestLocator(t)
	runDir := filepath.Join(locator.CrashGeneratorDir, "rgd-dumps-run-"+testTimestamp)
	writeTestFile(t, filepath.Join(runDir, "umd_crash_case3.rgd"))

	_, _, err := locator.MoveDump(3)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(filepath.Dir(locator.ArtifactsDir), lockFileName))
}

func TestCaseToken(t *testing.T) {
	assert.Equal(t, "case12", caseToken(12))
}
