// Package toolout provides scanning helpers for console output of the
// RGD tool family. The crash generator and the backend validator both
// tag their diagnostics with an ERROR: marker; the backend validator
// additionally prints a Catch2 run report whose result section starts
// at a divider line.
package toolout

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gpuopen-tools/rgd-testkit/util/regexutil"
)

const (
	errorMarker    = "ERROR:"
	sectionDivider = "----"
)

var (
	assertionPattern = regexp.MustCompile(
		`assertions:\s*(?P<total>\d+)\s*\|\s*(?P<passed>\d+) passed\s*\|\s*(?P<failed>\d+) failed`,
	)
	allPassedPattern = regexp.MustCompile(
		`All tests passed \((?P<total>\d+) assertions? in \d+ test cases?\)`,
	)
)

// Lines splits console output into lines, without a trailing empty
// line for output that ends in a newline.
func Lines(output string) []string {
	if output == "" {
		return nil
	}
	output = strings.ReplaceAll(output, "\r\n", "\n")
	output = strings.TrimSuffix(output, "\n")
	return strings.Split(output, "\n")
}

// ErrorLines returns the lines of output that carry the ERROR: marker.
func ErrorLines(output string) []string {
	var lines []string
	for _, line := range Lines(output) {
		if strings.Contains(line, errorMarker) {
			lines = append(lines, line)
		}
	}
	return lines
}

// ResultSection returns the lines of a Catch2 run report from the
// first divider line to the end. Everything before the divider is
// per-assertion noise that is only interesting in the raw output.
func ResultSection(output string) []string {
	var lines []string
	include := false
	for _, line := range Lines(output) {
		if strings.Contains(line, sectionDivider) {
			include = true
		}
		if include {
			lines = append(lines, line)
		}
	}
	return lines
}

// AssertionSummary is the assertion tally of a Catch2 run report.
type AssertionSummary struct {
	Total  int
	Passed int
	Failed int
}

// ParseAssertionSummary extracts the assertion tally from a Catch2 run
// report. It handles both the tabular tally printed for failed runs
// and the single line printed when all tests passed.
func ParseAssertionSummary(output string) (*AssertionSummary, bool) {
	result, found := regexutil.FindNamedGroupsMatch(assertionPattern, output)
	if found {
		return &AssertionSummary{
			Total:  atoi(result["total"]),
			Passed: atoi(result["passed"]),
			Failed: atoi(result["failed"]),
		}, true
	}

	result, found = regexutil.FindNamedGroupsMatch(allPassedPattern, output)
	if found {
		total := atoi(result["total"])
		return &AssertionSummary{Total: total, Passed: total}, true
	}

	return nil, false
}

func atoi(s string) int {
	// The pattern groups only match digits
	n, _ := strconv.Atoi(s)
	return n
}
