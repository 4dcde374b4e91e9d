// Package legacylog implements the original output format of the test
// kit: three plain-text channels (capture, backend, summary) that are
// written to separate per-run files, with the summary channel mirrored
// to the console. Newer runs use pkg/log instead, but automation that
// parses the historical file layout keeps working against this format.
package legacylog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/gpuopen-tools/rgd-testkit/pkg/log"
)

const failureLogDivider = "============================"

type channel struct {
	file  *os.File
	level log.Level
}

func (c *channel) writef(format string, args ...interface{}) {
	if c.file == nil || log.LevelInfo < c.level {
		return
	}
	fmt.Fprintf(c.file, format+"\n", args...)
}

// Logger holds the legacy output channels. The failure logs for
// individual cases are separate from the three channels and are
// written even when the channels are disabled, so extended failure
// information is available in both output formats.
type Logger struct {
	// Output receives the console mirror of the summary channel.
	// Defaults to stderr.
	Output io.Writer

	CaptureLogFile string
	BackendLogFile string
	SummaryLogFile string

	mu             sync.Mutex
	timestamp      string
	capture        channel
	backend        channel
	summary        channel
	consoleLevel   log.Level
	extendedLogDir string
	caseFiles      map[int]*os.File
}

// NewLogger returns a legacy logger for a run identified by timestamp.
// The timestamp becomes part of every file name the logger creates.
// Channels write nothing until SetFileHandler was called; the summary
// console mirror works immediately.
func NewLogger(timestamp string) *Logger {
	return &Logger{
		Output:       os.Stderr,
		timestamp:    timestamp,
		capture:      channel{level: log.LevelInfo},
		backend:      channel{level: log.LevelInfo},
		summary:      channel{level: log.LevelInfo},
		consoleLevel: log.LevelInfo,
		caseFiles:    map[int]*os.File{},
	}
}

// SetFileHandler creates the three channel files in logDir.
func (l *Logger) SetFileHandler(logDir string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.CaptureLogFile = filepath.Join(logDir, fmt.Sprintf("CaptureTest_output_%s.txt", l.timestamp))
	l.BackendLogFile = filepath.Join(logDir, fmt.Sprintf("BackendTest_output_%s.txt", l.timestamp))
	l.SummaryLogFile = filepath.Join(logDir, fmt.Sprintf("TestSummary_%s.txt", l.timestamp))

	var err error
	l.capture.file, err = os.Create(l.CaptureLogFile)
	if err != nil {
		return errors.WithStack(err)
	}
	l.backend.file, err = os.Create(l.BackendLogFile)
	if err != nil {
		return errors.WithStack(err)
	}
	l.summary.file, err = os.Create(l.SummaryLogFile)
	if err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// SetExtendedLogDir sets the directory for per-case failure logs.
func (l *Logger) SetExtendedLogDir(logDir string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.extendedLogDir = logDir
}

// Disable raises the channel thresholds above the highest level, which
// silences the channel files and the console mirror. Per-case failure
// logs are not affected.
func (l *Logger) Disable() {
	l.mu.Lock()
	defer l.mu.Unlock()
	disabled := log.LevelCritical + 1
	l.capture.level = disabled
	l.backend.level = disabled
	l.summary.level = disabled
	l.consoleLevel = disabled
}

// Close closes all files the logger has opened.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for _, file := range []*os.File{l.capture.file, l.backend.file, l.summary.file} {
		if file == nil {
			continue
		}
		err := file.Close()
		if err != nil && firstErr == nil {
			firstErr = errors.WithStack(err)
		}
	}
	l.capture.file = nil
	l.backend.file = nil
	l.summary.file = nil

	for caseNo, file := range l.caseFiles {
		err := file.Close()
		if err != nil && firstErr == nil {
			firstErr = errors.WithStack(err)
		}
		delete(l.caseFiles, caseNo)
	}
	return firstErr
}

// CaptureInfof writes to the capture test channel.
func (l *Logger) CaptureInfof(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.capture.writef(format, args...)
}

// BackendInfof writes to the backend test channel.
func (l *Logger) BackendInfof(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.backend.writef(format, args...)
}

// SummaryInfof writes to the summary channel and its console mirror.
func (l *Logger) SummaryInfof(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Output != nil && log.LevelInfo >= l.consoleLevel {
		fmt.Fprintf(l.Output, format+"\n", args...)
	}
	l.summary.writef(format, args...)
}

// FailureSection appends one titled section to the extended failure
// log of the given case. The log file is created on first use, named
// after the run timestamp and the case number.
func (l *Logger) FailureSection(caseNo int, title, content string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, ok := l.caseFiles[caseNo]
	if !ok {
		name := fmt.Sprintf("RGDTest-%s-case%d-failure_extended_log.txt", l.timestamp, caseNo)
		var err error
		file, err = os.Create(filepath.Join(l.extendedLogDir, name))
		if err != nil {
			return errors.WithStack(err)
		}
		l.caseFiles[caseNo] = file
	}

	_, err := fmt.Fprintf(file, "%s\n%s\n%s\n\n", title, failureLogDivider, content)
	if err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// FailureLogFile returns the path a case's extended failure log would
// be written to. The file only exists if the case actually failed.
func (l *Logger) FailureLogFile(caseNo int) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	name := fmt.Sprintf("RGDTest-%s-case%d-failure_extended_log.txt", l.timestamp, caseNo)
	return filepath.Join(l.extendedLogDir, name)
}
