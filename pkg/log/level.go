package log

import "github.com/gookit/color"

// Level is the severity of a log record. The numeric values leave gaps
// so that test-flow severities interleave with the conventional ones:
// a record is emitted when its level is at or above the handler
// threshold, which lets the console show PASS/FAIL lines by default
// while INFO and below only appear in verbose mode or in the log file.
type Level int

const (
	LevelDebug      Level = 10
	LevelTestInfo   Level = 15
	LevelInfo       Level = 20
	LevelTestMsg    Level = 22
	LevelWarning    Level = 30
	LevelTestPass   Level = 32
	LevelTestFail   Level = 37
	LevelError      Level = 40
	LevelTestResult Level = 45
	LevelCritical   Level = 100
)

// levelDisabled is above every level, including LevelCritical, so
// setting it as a threshold silences a handler entirely.
const levelDisabled = LevelCritical + 1

var levelLabels = map[Level]string{
	LevelDebug:      "DEBUG",
	LevelTestInfo:   "",
	LevelInfo:       "INFO",
	LevelTestMsg:    "",
	LevelWarning:    "WARNING",
	LevelTestPass:   "PASS",
	LevelTestFail:   "*FAIL*",
	LevelError:      "ERROR",
	LevelTestResult: "RESULT",
	LevelCritical:   "CRITICAL",
}

var levelStyles = map[Level]color.Style{
	LevelDebug:      {color.FgGray},
	LevelWarning:    {color.FgYellow},
	LevelTestPass:   {color.FgGreen},
	LevelTestFail:   {color.FgRed, color.OpBold},
	LevelError:      {color.FgRed},
	LevelTestResult: {color.FgCyan},
	LevelCritical:   {color.FgRed, color.OpBold},
}

// Label returns the record prefix for the level. Test detail levels
// have an empty label, which renders as plain indentation.
func (l Level) Label() string {
	return levelLabels[l]
}

// LongestLabelLength returns the width of the widest level label.
// Records right-align their label to this width, and multi-line
// messages use it to indent continuation lines.
func LongestLabelLength() int {
	longest := 0
	for _, label := range levelLabels {
		if len(label) > longest {
			longest = len(label)
		}
	}
	return longest
}
