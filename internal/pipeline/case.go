package pipeline

import (
	"strconv"
	"time"

	"github.com/gpuopen-tools/rgd-testkit/internal/descriptor"
	"github.com/gpuopen-tools/rgd-testkit/pkg/caserecord"
)

// State tracks how far a case has progressed through the pipeline.
type State int

const (
	StateInit State = iota
	StateCapturing
	StateBackendValidating
	StateCliValidating
	StateReported
)

var stateNames = map[State]string{
	StateInit:              "init",
	StateCapturing:         "capturing",
	StateBackendValidating: "backend-validating",
	StateCliValidating:     "cli-validating",
	StateReported:          "reported",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Case is one crash test case built from a descriptor declaration.
type Case struct {
	API    string
	Name   string
	CaseNo int

	VerifyCrashDump bool
	VerifyRGDOutput bool
	PageFaultCase   bool

	State State

	AppCrashed    bool
	DumpGenerated bool
	CapturePassed bool
	BackendRan    bool
	BackendPassed bool
	CLIPassed     bool

	DumpFile        string
	TextSummaryFile string
	JSONSummaryFile string
	FailureLog      string

	CaptureDuration time.Duration
	BackendDuration time.Duration

	captureConsole string
	captureError   string
	backendConsole string
	backendError   string
	cliConsole     string
	cliError       string
}

// NewCase builds a case for one declaration of a descriptor's API set.
// The pass flags start out true; a stage that never runs leaves its
// flag untouched.
func NewCase(api string, decl descriptor.Declaration) *Case {
	return &Case{
		API:             api,
		Name:            decl.CaseName(),
		CaseNo:          decl.CrashTestCase,
		VerifyCrashDump: decl.VerifyCrashDump,
		VerifyRGDOutput: decl.VerifyRGDOutput,
		PageFaultCase:   decl.PageFaultCase,
		AppCrashed:      true,
		CapturePassed:   true,
		BackendPassed:   true,
		CLIPassed:       true,
	}
}

// GtestFilter returns the filter argument that selects this case's
// test in the crash generator.
func (c *Case) GtestFilter() string {
	return "--gtest_filter=*Case" + strconv.Itoa(c.CaseNo)
}

// Passed reports the case outcome. The CLI stage logs what it found
// but never decides the outcome.
func (c *Case) Passed() bool {
	return c.CapturePassed && c.BackendPassed
}

// Record converts the case outcome into its persisted form.
func (c *Case) Record() *caserecord.Record {
	outcome := caserecord.OutcomeFailed
	if c.Passed() {
		outcome = caserecord.OutcomePassed
	}
	return &caserecord.Record{
		CaseNo:        c.CaseNo,
		Name:          c.Name,
		API:           c.API,
		Outcome:       outcome,
		AppCrashed:    c.AppCrashed,
		DumpGenerated: c.DumpGenerated,
		CapturePassed: c.CapturePassed,
		BackendRan:    c.BackendRan,
		BackendPassed: c.BackendPassed,
		CLIPassed:     c.CLIPassed,
		DumpFile:      c.DumpFile,
		FailureLog:    c.FailureLog,
		Details:       c.failureDetails(),
		CreatedAt:     time.Now(),
	}
}

// failureDetails condenses the stage flags into one line for the case
// record. The console output of the failed stages is in the extended
// failure log, not here.
func (c *Case) failureDetails() string {
	switch {
	case !c.CapturePassed && c.AppCrashed:
		return "GPUTrasher crashed but no crash dump was generated."
	case !c.CapturePassed:
		return "GPUTrasher did not crash or could not be launched."
	case c.BackendRan && !c.BackendPassed:
		return "Backend validation reported failed assertions."
	case !c.CLIPassed:
		return "RGD CLI output files are missing or empty."
	}
	return ""
}
