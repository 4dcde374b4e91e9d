// Package pipeline runs a single crash test case through its stages:
// crash generation and dump capture, backend validation of the
// captured dump, and report generation through the rgd CLI. Stage
// outcomes are recorded on the case; only faults that invalidate the
// whole run surface as errors.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gpuopen-tools/rgd-testkit/internal/cmdutils"
	"github.com/gpuopen-tools/rgd-testkit/internal/config"
	"github.com/gpuopen-tools/rgd-testkit/pkg/artifact"
	"github.com/gpuopen-tools/rgd-testkit/pkg/legacylog"
	"github.com/gpuopen-tools/rgd-testkit/pkg/log"
	"github.com/gpuopen-tools/rgd-testkit/pkg/parser/toolout"
	"github.com/gpuopen-tools/rgd-testkit/util/executil"
)

const (
	SuffixPassed = "......[PASSED]"
	SuffixFailed = "......[FAILED]"
)

type Pipeline struct {
	conf    *config.TestConfig
	locator *artifact.Locator
	logger  *log.Logger
	legacy  *legacylog.Logger
}

func NewPipeline(conf *config.TestConfig, locator *artifact.Locator, logger *log.Logger, legacy *legacylog.Logger) *Pipeline {
	return &Pipeline{
		conf:    conf,
		locator: locator,
		logger:  logger,
		legacy:  legacy,
	}
}

// Run drives the case through all stages and logs the case result.
func (p *Pipeline) Run(c *Case) error {
	c.State = StateCapturing
	err := p.runCapture(c)
	if err != nil {
		return err
	}

	if c.CapturePassed {
		if c.DumpGenerated {
			// The backend test duration covers both validation stages.
			backendStart := time.Now()
			c.State = StateBackendValidating
			err = p.runBackendValidator(c)
			if err != nil {
				return err
			}
			c.State = StateCliValidating
			err = p.runCLI(c)
			if err != nil {
				return err
			}
			c.BackendDuration = time.Since(backendStart)
		} else {
			// Some cases are expected not to crash on certain system
			// configurations. The capture counts as passed without a
			// dump and there is nothing to validate.
			msg := fmt.Sprintf("BackendTest: Skipped. For case #%d, crash dump is not generated which is expected on the current system config.", c.CaseNo)
			p.legacy.SummaryInfof("%s", msg)
			p.legacy.BackendInfof("%s", msg)
		}
	}

	c.State = StateReported
	p.report(c)
	return nil
}

// runCapture launches the crash generator and collects the artifacts
// it left behind. The capture passes when the process exits cleanly or
// a dump was generated; the exit code alone is unreliable because a
// delayed app launch can run into the generator's timeout even though
// the crash and the dump capture succeeded.
func (p *Pipeline) runCapture(c *Case) error {
	start := time.Now()
	p.logger.TestInfof("")

	cmd := executil.Command(p.conf.CrashGeneratorPath, c.GtestFilter())
	commandStr := strings.Join(cmd.Args, " ")
	p.legacy.CaptureInfof("[TestRunner] Start: %s", commandStr)
	p.legacy.SummaryInfof("%s", commandStr)

	p.logger.StartSpinner(fmt.Sprintf("Running crash test case [%02d] - \"%s\"", c.CaseNo, c.Name))
	stdout, stderr, returnCode, err := cmd.Output()
	p.logger.StopSpinner()
	if err != nil {
		return cmdutils.WrapExecError(err, cmd.Cmd)
	}
	c.captureConsole = stdout
	c.captureError = stderr

	// A successfully crashed app leaves a log file in its folder.
	c.AppCrashed = p.locator.MoveCrashLog(c.CaseNo)

	c.DumpFile, c.DumpGenerated, err = p.locator.MoveDump(c.CaseNo)
	if err != nil {
		return err
	}

	switch classifyCapture(returnCode == 0, c.DumpGenerated, c.AppCrashed) {
	case capturePassed:
		c.CapturePassed = true
		p.legacy.SummaryInfof("Capture:%s", SuffixPassed)
		if c.DumpGenerated {
			p.logger.TestMsgf("Crash dump file generated successfully for test \"%s\".", c.Name)
		}
	case captureCrashedNoDump:
		c.CapturePassed = false
		p.legacy.SummaryInfof("Capture:%s (Return code: %d)", SuffixFailed, returnCode)
		p.legacy.CaptureInfof("Capture test failed for case %d - GPUTrasher crashed but no crash dump generated.", c.CaseNo)
		for _, line := range toolout.ErrorLines(c.captureError) {
			p.legacy.CaptureInfof("%s", line)
		}
		p.logger.TestFailf("Crash dump file not generated for test \"%s\".", c.Name)
	case captureNotCrashed:
		// The generator could not be launched, or it ran but did not
		// crash the app when it was expected to crash.
		c.CapturePassed = false
		p.legacy.SummaryInfof("Capture:%s (Return code: %d)", SuffixFailed, returnCode)
		p.legacy.CaptureInfof("Capture test failed for case %d.", c.CaseNo)
		for _, line := range toolout.ErrorLines(c.captureError) {
			p.legacy.CaptureInfof("%s", line)
		}
	}

	c.CaptureDuration = time.Since(start)
	return nil
}

type captureOutcome int

const (
	capturePassed captureOutcome = iota
	captureCrashedNoDump
	captureNotCrashed
)

// classifyCapture decides the capture outcome. The exit code alone is
// unreliable: a capture that times out can exit non-zero after writing
// a valid dump, so dump presence outranks the return code.
func classifyCapture(rcZero, dumpGenerated, appCrashed bool) captureOutcome {
	switch {
	case rcZero || dumpGenerated:
		return capturePassed
	case appCrashed:
		return captureCrashedNoDump
	default:
		return captureNotCrashed
	}
}

// runBackendValidator runs rgd_test against the captured dump. The
// exit code is the Catch2 failed-assertion count.
func (p *Pipeline) runBackendValidator(c *Case) error {
	p.logger.TestInfof("")
	p.logger.TestInfof("Running RGD Tests...")

	args := []string{"--rgd", c.DumpFile}
	if c.PageFaultCase {
		args = append(args, "--page-fault")
	}
	cmd := executil.Command(p.conf.BackendValidatorPath, args...)
	commandStr := strings.Join(cmd.Args, " ")
	p.legacy.BackendInfof("[TestRunner] Start %s", commandStr)
	p.legacy.BackendInfof("Running RGD Tests...")

	stdout, stderr, failedAssertions, err := cmd.Output()
	if err != nil {
		return cmdutils.WrapExecError(err, cmd.Cmd)
	}
	c.backendConsole = stdout
	c.backendError = stderr
	c.BackendRan = true

	p.legacy.BackendInfof("Return code from Catch2 %d", failedAssertions)
	if failedAssertions == 0 {
		c.BackendPassed = true
		p.legacy.SummaryInfof("BackendTest: API: %s    %s%s", c.API, commandStr, SuffixPassed)
		p.legacy.BackendInfof("All tests passed.")
	} else {
		c.BackendPassed = false
		p.legacy.SummaryInfof("BackendTest: API: %s    %s%s", c.API, commandStr, SuffixFailed)
		p.legacy.BackendInfof("%d backend tests failed.", failedAssertions)
	}

	if summary, ok := toolout.ParseAssertionSummary(c.backendConsole); ok {
		p.logger.Debugf("Catch2 reported %d assertions, %d passed, %d failed", summary.Total, summary.Passed, summary.Failed)
	}

	p.postProcessBackendOutput(c)
	return nil
}

func (p *Pipeline) postProcessBackendOutput(c *Case) {
	for _, line := range toolout.ErrorLines(c.backendError) {
		p.legacy.BackendInfof("%s", line)
	}
	for _, line := range toolout.ResultSection(c.backendConsole) {
		p.logger.TestInfof("%s", line)
	}
}

// runCLI generates the text and JSON report for the captured dump and
// verifies both files came out non-empty. This stage logs its findings
// independently and never flips the capture or backend outcome.
func (p *Pipeline) runCLI(c *Case) error {
	p.logger.TestInfof("")
	p.logger.TestInfof("Running RGD CLI...")

	dumpName := filepath.Base(c.DumpFile)
	p.logger.TestInfof("Input crash dump file: %s", dumpName)

	summaryName := strings.TrimSuffix(dumpName, filepath.Ext(dumpName)) + "-summary"
	c.TextSummaryFile = filepath.Join(p.conf.ArtifactsDir, summaryName+".txt")
	c.JSONSummaryFile = filepath.Join(p.conf.ArtifactsDir, summaryName+".json")

	cmd := executil.Command(p.conf.CLIPath, "-j", c.JSONSummaryFile, "-o", c.TextSummaryFile, "-p", c.DumpFile)
	stdout, stderr, _, err := cmd.Output()
	if err != nil {
		return cmdutils.WrapExecError(err, cmd.Cmd)
	}
	c.cliConsole = stdout
	c.cliError = stderr

	textGenerated := isNonEmptyFile(c.TextSummaryFile)
	jsonGenerated := isNonEmptyFile(c.JSONSummaryFile)
	c.CLIPassed = textGenerated && jsonGenerated

	switch {
	case textGenerated && jsonGenerated:
		p.logger.TestMsgf("RGD text and JSON output is generated for test \"%s\".", c.Name)
	case textGenerated:
		p.logger.TestMsgf("RGD text output is generated for test \"%s\".", c.Name)
		p.logger.TestFailf("RGD JSON output is not generated for test \"%s\".", c.Name)
	case jsonGenerated:
		p.logger.TestMsgf("RGD JSON output is generated for test \"%s\".", c.Name)
		p.logger.TestFailf("RGD text output is not generated for test \"%s\".", c.Name)
	default:
		p.logger.TestFailf("RGD text and JSON output is not generated for test \"%s\".", c.Name)
	}

	p.postProcessCLIOutput(c)
	return nil
}

func (p *Pipeline) postProcessCLIOutput(c *Case) {
	p.logger.TestInfof("Console output from the RGD CLI:")
	for _, line := range toolout.Lines(c.cliConsole) {
		p.logger.TestInfof("%s", line)
	}
	p.logger.TestInfof("")
}

// report logs the case result and, for a failed case, writes the
// captured process output of all stages into the case's extended
// failure log.
func (p *Pipeline) report(c *Case) {
	if c.Passed() {
		p.logger.TestPassf("Crash test passed for case no [%02d] - \"%s\"", c.CaseNo, c.Name)
		return
	}

	p.logger.TestFailf("Crash test failed for case no [%02d] - \"%s\"", c.CaseNo, c.Name)

	sections := []struct {
		title   string
		content string
	}{
		{"Capture test console output:", c.captureConsole},
		{"Capture test error output:", c.captureError},
		{"Backend test console output:", c.backendConsole},
		{"Backend test error output:", c.backendError},
		{"RGD CLI console output:", c.cliConsole},
		{"RGD CLI error output:", c.cliError},
	}
	for _, section := range sections {
		if section.content == "" {
			continue
		}
		err := p.legacy.FailureSection(c.CaseNo, section.title, section.content)
		if err != nil {
			p.logger.Errorf(err, "Unable to write extended failure log: %v", err)
			continue
		}
		c.FailureLog = p.legacy.FailureLogFile(c.CaseNo)
	}
}

func isNonEmptyFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}
