package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/pterm/pterm"
	"golang.org/x/term"
)

// Logger writes leveled records to the console and optionally to a log
// file. Records are rendered as "   LABEL: message" with the label
// right-aligned; the console only shows records at or above its
// threshold while the file captures everything down to debug level.
//
// Loggers are passed explicitly to the components that need them, so
// tests can inspect output by swapping the Output writer.
type Logger struct {
	// Output receives console records. Defaults to stderr.
	Output io.Writer
	// LogFile is the path of the file handler, empty until
	// SetFileHandler was called.
	LogFile string

	mu           sync.Mutex
	consoleLevel Level
	fileLevel    Level
	file         *os.File
	styled       bool
	spinner      *pterm.SpinnerPrinter
}

// NewLogger returns a logger that writes to stderr with the default
// console threshold. The threshold keeps test detail off the console
// but lets warnings, PASS/FAIL lines and results through.
func NewLogger() *Logger {
	return &Logger{
		Output:       os.Stderr,
		consoleLevel: LevelWarning,
		fileLevel:    LevelDebug,
		styled:       term.IsTerminal(int(os.Stderr.Fd())),
	}
}

// SetFileHandler opens Log_<timestamp>.txt in logDir and mirrors all
// records at debug level and above into it.
func (l *Logger) SetFileHandler(logDir, timestamp string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	logFile := filepath.Join(logDir, fmt.Sprintf("Log_%s.txt", timestamp))
	file, err := os.Create(logFile)
	if err != nil {
		return errors.WithStack(err)
	}
	l.file = file
	l.LogFile = logFile
	return nil
}

// SetConsoleVerbosity selects the console threshold: info level when
// verbose, which additionally shows info records and test messages,
// the default warning level otherwise. Selecting a verbosity
// re-enables a disabled console.
func (l *Logger) SetConsoleVerbosity(verbose bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if verbose {
		l.consoleLevel = LevelInfo
	} else {
		l.consoleLevel = LevelWarning
	}
}

// Disable raises all thresholds above the highest level so the logger
// emits nothing. Used when the legacy output format is selected.
func (l *Logger) Disable() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.consoleLevel = levelDisabled
	l.fileLevel = levelDisabled
}

// Close closes the log file if one was opened.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	if err != nil {
		return errors.WithStack(err)
	}
	return nil
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.logf(LevelDebug, format, args...)
}

func (l *Logger) TestInfof(format string, args ...interface{}) {
	l.logf(LevelTestInfo, format, args...)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.logf(LevelInfo, format, args...)
}

func (l *Logger) TestMsgf(format string, args ...interface{}) {
	l.logf(LevelTestMsg, format, args...)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.logf(LevelWarning, format, args...)
}

func (l *Logger) TestPassf(format string, args ...interface{}) {
	l.logf(LevelTestPass, format, args...)
}

func (l *Logger) TestFailf(format string, args ...interface{}) {
	l.logf(LevelTestFail, format, args...)
}

// Error logs err at error level. If message strings are given they are
// logged instead of the error text. The full error with its stack
// trace is added at debug level, so it ends up in the log file and on
// a verbose console without cluttering the default output.
func (l *Logger) Error(err error, msgs ...string) {
	msg := strings.Join(msgs, " ")
	if msg == "" && err != nil {
		msg = err.Error()
	}
	l.logf(LevelError, "%s", msg)
	if err != nil {
		l.logf(LevelDebug, "%+v", err)
	}
}

// Errorf logs a formatted message at error level with the same stack
// trace handling as Error.
func (l *Logger) Errorf(err error, format string, args ...interface{}) {
	l.logf(LevelError, format, args...)
	if err != nil {
		l.logf(LevelDebug, "%+v", err)
	}
}

func (l *Logger) Criticalf(format string, args ...interface{}) {
	l.logf(LevelCritical, format, args...)
}

func (l *Logger) TestResultf(format string, args ...interface{}) {
	l.logf(LevelTestResult, format, args...)
}

func (l *Logger) logf(level Level, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)

	l.mu.Lock()
	defer l.mu.Unlock()
	if level >= l.consoleLevel {
		l.writeRecord(l.Output, level, msg, l.styled)
	}
	if l.file != nil && level >= l.fileLevel {
		l.writeRecord(l.file, level, msg, false)
	}
}

func (l *Logger) writeRecord(w io.Writer, level Level, msg string, styled bool) {
	label := fmt.Sprintf("%*s", LongestLabelLength(), level.Label())
	if styled {
		if style, ok := levelStyles[level]; ok {
			label = style.Sprint(label)
		}
	}
	fmt.Fprintf(w, "%s: %s\n", label, msg)
}
