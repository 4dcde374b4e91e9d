// Package driver expands test descriptors into crash test cases, runs
// each case through the pipeline and emits the final run summary in
// both output formats.
package driver

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/pkg/errors"

	"github.com/gpuopen-tools/rgd-testkit/internal/config"
	"github.com/gpuopen-tools/rgd-testkit/internal/descriptor"
	"github.com/gpuopen-tools/rgd-testkit/internal/pipeline"
	"github.com/gpuopen-tools/rgd-testkit/pkg/legacylog"
	"github.com/gpuopen-tools/rgd-testkit/pkg/log"
	"github.com/gpuopen-tools/rgd-testkit/pkg/popup"
	"github.com/gpuopen-tools/rgd-testkit/util/fileutil"
	"github.com/gpuopen-tools/rgd-testkit/util/sliceutil"
)

// RunCounters tallies case outcomes per stage. Backend counters only
// move for cases whose backend stage actually ran; a stage skipped
// because no dump was generated counts neither as passed nor failed.
type RunCounters struct {
	CapturePassed int
	CaptureFailed int
	BackendPassed int
	BackendFailed int
}

type Driver struct {
	conf     *config.TestConfig
	pipeline *pipeline.Pipeline
	logger   *log.Logger
	legacy   *legacylog.Logger

	counters RunCounters
	cases    []*pipeline.Case

	startTime            time.Time
	totalCaptureDuration time.Duration
	totalBackendDuration time.Duration
}

func NewDriver(conf *config.TestConfig, pipeline *pipeline.Pipeline, logger *log.Logger, legacy *legacylog.Logger) *Driver {
	return &Driver{
		conf:     conf,
		pipeline: pipeline,
		logger:   logger,
		legacy:   legacy,
	}
}

// RunTests runs all cases declared in the configured test descriptors
// and reports whether any of them failed. The returned error is
// reserved for harness faults; failing crash tests are a regular
// outcome. Cancelling the context stops the run before the next case,
// a running kit executable is not interrupted.
func (d *Driver) RunTests(ctx context.Context) (bool, error) {
	d.startTime = time.Now()

	for _, file := range d.conf.Descriptors {
		d.logger.TestMsgf("Processing test descriptor - %s", file)
		descriptorFile, err := descriptor.ParseFile(file)
		if err != nil {
			return false, err
		}

		for _, set := range descriptorFile.Sets {
			d.logger.TestMsgf("Running tests for API - %s", set.API)
			if !sliceutil.Contains(config.SupportedAPIs, set.API) {
				d.logger.Criticalf("%s is not supported. Supported APIs - %s", set.API, config.SupportedAPIString())
				continue
			}

			for _, decl := range set.Tests {
				if !decl.VerifyCrashDump {
					d.logger.Warnf("Test \"%s\" is ignored as \"verify_crash_dump\" is not set in the test descriptor.", decl.DisplayName())
					continue
				}
				if !decl.HasCaseNo() {
					d.logger.Warnf("Invalid/No case no provided for test \"%s\".", decl.DisplayName())
					continue
				}

				if err := ctx.Err(); err != nil {
					return false, errors.WithStack(err)
				}

				c := pipeline.NewCase(set.API, decl)
				d.cases = append(d.cases, c)
				err = d.pipeline.Run(c)
				if err != nil {
					return false, err
				}

				d.updateCounters(c)
				d.totalCaptureDuration += c.CaptureDuration
				d.totalBackendDuration += c.BackendDuration
				d.saveRecord(c)
			}
		}
	}

	failed, err := d.logFinalTestStatus()
	if err != nil {
		return false, err
	}

	// At least one passed capture means a crash was provoked, which is
	// what makes the driver open its bug report dialog.
	if d.counters.CapturePassed > 0 {
		popup.CloseBugReportWindow(d.logger)
	}

	if d.conf.Notify {
		d.notifyRunFinished(failed)
	}
	return failed, nil
}

func (d *Driver) updateCounters(c *pipeline.Case) {
	if !c.CapturePassed {
		d.counters.CaptureFailed++
		return
	}
	d.counters.CapturePassed++
	if c.BackendRan {
		if c.BackendPassed {
			d.counters.BackendPassed++
		} else {
			d.counters.BackendFailed++
		}
	}
}

func (d *Driver) saveRecord(c *pipeline.Case) {
	err := c.Record().Save(d.conf.OutDir)
	if err != nil {
		d.logger.Warnf("Unable to save the record of case %d: %v", c.CaseNo, err)
	}
}

// logFinalTestStatus emits the run summary in both output formats,
// then applies the retention policy: output files of a failed run are
// always kept, output files of a passed run are removed unless
// retention was requested.
func (d *Driver) logFinalTestStatus() (bool, error) {
	counters := d.counters
	totalCases := len(d.cases)
	totalCaptured := counters.CapturePassed + counters.CaptureFailed
	totalBackend := counters.BackendPassed + counters.BackendFailed

	indent := strings.Repeat(" ", log.LongestLabelLength()) + ": "
	var summary strings.Builder
	summary.WriteString("Final test summary:\n")
	summary.WriteString(indent + "==================\n")
	fmt.Fprintf(&summary, "%sPASSED: %d/%d\n", indent, counters.CapturePassed, totalCaptured)
	fmt.Fprintf(&summary, "%sFAILED: %d/%d\n", indent, counters.CaptureFailed, totalCaptured)
	summary.WriteString(indent + "==================\n")
	summary.WriteString(indent + "\n")
	summary.WriteString(indent + "RGD Test log file: " + fileutil.TailPath(d.logger.LogFile))

	d.logger.TestMsgf("")
	d.logger.TestResultf("%s", summary.String())
	d.logger.TestMsgf("")

	d.legacy.SummaryInfof("=============")
	d.legacy.SummaryInfof("Test Results:")

	captureSuffix := pipeline.SuffixPassed
	if counters.CaptureFailed > 0 {
		captureSuffix = pipeline.SuffixFailed
	}
	d.legacy.SummaryInfof("Capture Test runs: %d out of %d%s", counters.CapturePassed, totalCases, captureSuffix)

	backendSuffix := pipeline.SuffixPassed
	if counters.BackendFailed > 0 {
		backendSuffix = pipeline.SuffixFailed
	}
	d.legacy.SummaryInfof("Backend Test runs: %d out of %d%s", counters.BackendPassed, totalBackend, backendSuffix)

	d.legacy.SummaryInfof("Total Tests Duration  : %v secs", time.Since(d.startTime).Seconds())
	d.legacy.SummaryInfof("Capture Tests Duration: %v secs", d.totalCaptureDuration.Seconds())
	d.legacy.SummaryInfof("Backend Tests Duration: %v secs", d.totalBackendDuration.Seconds())

	d.legacy.SummaryInfof("Capture Test Log    : %s", fileutil.TailPath(d.legacy.CaptureLogFile))
	d.legacy.SummaryInfof("RGD Backend Test Log: %s", fileutil.TailPath(d.legacy.BackendLogFile))
	d.legacy.SummaryInfof("Test Run Summary    : %s", fileutil.TailPath(d.legacy.SummaryLogFile))

	if counters.CaptureFailed != 0 || counters.BackendFailed != 0 {
		d.logger.TestMsgf("Test output files are retained! Path: %s", d.conf.ArtifactsDir)
		return true, nil
	}
	if !d.conf.Retain {
		err := os.RemoveAll(d.conf.ArtifactsDir)
		if err != nil {
			return false, errors.WithStack(err)
		}
	}
	return false, nil
}

// notifyRunFinished posts a desktop notification, so long runs on a
// machine the operator switched away from are noticed when they end.
// Notification support varies by desktop environment, so failures are
// only logged.
func (d *Driver) notifyRunFinished(failed bool) {
	message := fmt.Sprintf("Crash test run passed (%d/%d).", d.counters.CapturePassed, len(d.cases))
	if failed {
		message = fmt.Sprintf("Crash test run failed (%d/%d capture tests passed).", d.counters.CapturePassed, len(d.cases))
	}
	err := beeep.Notify("RGD Test Kit", message, "")
	if err != nil {
		d.logger.Debugf("Unable to send desktop notification: %v", err)
	}
}
