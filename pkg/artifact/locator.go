// Package artifact relocates the files a crash test case leaves
// behind. The crash generator writes its log next to the crashing
// sample app and drops crash dumps into per-run directories next to
// its own executable; both are collected into the run's artifacts
// directory so later stages and failure analysis find them in one
// place.
package artifact

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/alexflint/go-filemutex"
	"github.com/mattn/go-zglob"
	"github.com/mitchellh/ioprogress"
	"github.com/pkg/errors"

	"github.com/gpuopen-tools/rgd-testkit/pkg/legacylog"
	"github.com/gpuopen-tools/rgd-testkit/pkg/log"
	"github.com/gpuopen-tools/rgd-testkit/util/fileutil"
)

const (
	crashLogPattern   = "GpuTrasher_DX12*.txt"
	dumpRunDirPattern = "rgd-dumps-run*"
	dumpFileExt       = ".rgd"
	logNameSuffix     = "-log"
	lockFileName      = ".rgd-testkit.lock"
)

// ErrDumpCount reports that a crash dump did not end up as exactly one
// file in the artifacts directory. That means the artifacts directory
// is in an unexpected state and the whole run has to stop, results
// produced from a stale dump would be meaningless.
var ErrDumpCount = errors.New("invalid crash dump file count")

// Locator finds and relocates the artifacts of a single case run.
type Locator struct {
	// CrashingAppDir is the directory of the crashing sample app,
	// where the crash generator leaves its log file.
	CrashingAppDir string
	// CrashGeneratorDir is the directory of the crash generator
	// executable, where dump run directories appear.
	CrashGeneratorDir string
	// ArtifactsDir is the run's collection directory.
	ArtifactsDir string

	logger *log.Logger
	legacy *legacylog.Logger
}

func NewLocator(crashingAppDir, crashGeneratorDir, artifactsDir string, logger *log.Logger, legacy *legacylog.Logger) *Locator {
	return &Locator{
		CrashingAppDir:    crashingAppDir,
		CrashGeneratorDir: crashGeneratorDir,
		ArtifactsDir:      artifactsDir,
		logger:            logger,
		legacy:            legacy,
	}
}

// MoveCrashLog renames the crash generator log files by appending
// "-log" to their stem and moves them into the artifacts directory.
// It returns whether any log file carried the case token, which is
// the signal that the sample app actually crashed for this case.
func (l *Locator) MoveCrashLog(caseNo int) bool {
	appCrashed := false
	matches, err := zglob.Glob(filepath.Join(l.CrashingAppDir, crashLogPattern))
	if err != nil {
		l.logger.Debugf("Crash log lookup failed: %v", err)
		return false
	}

	token := caseToken(caseNo)
	for _, logFile := range matches {
		name := filepath.Base(logFile)
		if strings.Contains(name, token) {
			appCrashed = true
		}
		ext := filepath.Ext(name)
		newName := strings.TrimSuffix(name, ext) + logNameSuffix + ext
		err = os.Rename(logFile, filepath.Join(filepath.Dir(logFile), newName))
		if err != nil {
			l.logger.Errorf(err, "Unable to rename crash generator log file: %v", err)
		}
	}

	// The renamed files still match the pattern and are picked up here.
	// Though the glob returns a list, it is expected to include only
	// one crash generator log file.
	matches, err = zglob.Glob(filepath.Join(l.CrashingAppDir, crashLogPattern))
	if err != nil {
		l.logger.Debugf("Crash log lookup failed: %v", err)
		return appCrashed
	}
	for _, logFile := range matches {
		_, err = fileutil.MoveFileToDir(logFile, l.ArtifactsDir)
		if err != nil {
			l.logger.Errorf(err, "Unable to move generated test files: %v", err)
			l.legacy.SummaryInfof("ERROR: Unable to move crash generator log file %s to %s", logFile, l.ArtifactsDir)
		}
	}

	return appCrashed
}

// MoveDump relocates the case's crash dump from the newest dump run
// directory into the artifacts directory and removes the run
// directories. It returns the new dump path and whether a dump for
// this case was found. A dump that cannot be accounted for after the
// move is a fault that stops the whole run.
func (l *Locator) MoveDump(caseNo int) (string, bool, error) {
	runDirs, err := zglob.Glob(filepath.Join(l.CrashGeneratorDir, dumpRunDirPattern))
	if err != nil {
		return "", false, errors.WithStack(err)
	}
	if len(runDirs) == 0 {
		return "", false, nil
	}
	sort.Strings(runDirs)

	// Acquire a file lock to avoid races with other harness processes
	// running against the same kit in parallel
	mutex, err := filemutex.New(filepath.Join(filepath.Dir(l.ArtifactsDir), lockFileName))
	if err != nil {
		return "", false, errors.WithStack(err)
	}
	err = mutex.Lock()
	if err != nil {
		return "", false, errors.WithStack(err)
	}

	dumpPath, dumpFound, err := l.collectDump(caseNo, runDirs)

	// Release the file lock
	unlockErr := mutex.Unlock()
	if err == nil {
		err = errors.WithStack(unlockErr)
	} else if unlockErr != nil {
		l.logger.Error(unlockErr)
	}
	return dumpPath, dumpFound, err
}

func (l *Locator) collectDump(caseNo int, runDirs []string) (string, bool, error) {
	// The run directories are disposable once the search has executed,
	// whether or not a dump was found.
	defer func() {
		for _, dir := range runDirs {
			err := fileutil.Cleanup(dir)
			if err != nil {
				l.logger.Warnf("Unable to remove dump run directory %s: %v", dir, err)
			}
		}
	}()

	// Only one rgd-dumps-run* directory is expected. In case there are
	// more than one, the latest is picked; the names embed the run
	// timestamp, so name order is creation order.
	latest := runDirs[len(runDirs)-1]
	dumpFiles, err := zglob.Glob(filepath.Join(latest, "*"+dumpFileExt))
	if err != nil {
		return "", false, errors.WithStack(err)
	}

	var dumpPath string
	dumpFound := false
	token := caseToken(caseNo)
	for _, file := range dumpFiles {
		name := filepath.Base(file)
		if !strings.Contains(name, token) {
			continue
		}
		err = l.moveDumpFile(file, l.ArtifactsDir)
		if err != nil {
			l.logger.Errorf(err, "Unable to move generated test files: %v", err)
		}
		moved := filepath.Join(l.ArtifactsDir, name)
		exists, err := fileutil.Exists(moved)
		if err != nil {
			return "", false, err
		}
		if !exists {
			// The move must leave exactly one matching .rgd file behind.
			l.legacy.SummaryInfof("ERROR: Invalid crash dump file count for file %s. Count: %d", name, 0)
			return "", false, errors.Wrapf(ErrDumpCount, "file %s, count %d", name, 0)
		}
		dumpPath = moved
		dumpFound = true
	}

	return dumpPath, dumpFound, nil
}

// moveDumpFile moves a dump into destDir. Dumps can be large, so the
// copy fallback for cross-filesystem moves reports its progress at
// debug level.
func (l *Locator) moveDumpFile(file, destDir string) error {
	dest := filepath.Join(destDir, filepath.Base(file))
	err := os.Rename(file, dest)
	if err == nil {
		return nil
	}

	in, err := os.Open(file)
	if err != nil {
		return errors.WithStack(err)
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return errors.WithStack(err)
	}

	reader := &ioprogress.Reader{
		Reader: in,
		Size:   info.Size(),
		DrawFunc: func(progress, total int64) error {
			l.logger.Debugf("Relocating %s: %d/%d bytes", filepath.Base(file), progress, total)
			return nil
		},
	}

	out, err := os.Create(dest)
	if err != nil {
		return errors.WithStack(err)
	}
	_, err = io.Copy(out, reader)
	if err != nil {
		_ = out.Close()
		return errors.WithStack(err)
	}
	err = out.Close()
	if err != nil {
		return errors.WithStack(err)
	}
	err = os.Remove(file)
	if err != nil {
		return errors.WithStack(err)
	}
	return nil
}

func caseToken(caseNo int) string {
	return "case" + strconv.Itoa(caseNo)
}
