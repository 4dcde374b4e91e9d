// Package caserecord persists the outcome of individual crash test
// cases as JSON files inside the run's output directory, so results
// can be inspected after the run without re-parsing the log files.
package caserecord

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"
)

const nameRecordsDir = "case-records"

type Outcome string

const (
	OutcomePassed Outcome = "PASSED"
	OutcomeFailed Outcome = "FAILED"
)

// Record describes one executed crash test case.
type Record struct {
	CaseNo  int     `json:"case_no"`
	Name    string  `json:"name,omitempty"`
	API     string  `json:"api,omitempty"`
	Outcome Outcome `json:"outcome,omitempty"`

	AppCrashed    bool `json:"app_crashed"`
	DumpGenerated bool `json:"dump_generated"`
	CapturePassed bool `json:"capture_passed"`
	BackendRan    bool `json:"backend_ran"`
	BackendPassed bool `json:"backend_passed"`
	CLIPassed     bool `json:"cli_passed"`

	DumpFile   string `json:"dump_file,omitempty"`
	FailureLog string `json:"failure_log,omitempty"`
	Details    string `json:"details,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
}

// FailedStage names the first pipeline stage that failed, or returns
// an empty string for a passing case. A backend stage that was skipped
// because no dump was generated is not a failure of the backend.
func (r *Record) FailedStage() string {
	switch {
	case !r.CapturePassed:
		return "capture"
	case r.BackendRan && !r.BackendPassed:
		return "backend"
	case !r.CLIPassed:
		return "cli"
	}
	return ""
}

func (r *Record) ShortDescription() string {
	desc := fmt.Sprintf("[%02d] %s %s", r.CaseNo, r.Name, r.Outcome)
	if stage := r.FailedStage(); stage != "" {
		desc += fmt.Sprintf(" (%s stage)", stage)
	}
	return desc
}

// ShortDescriptionColumns returns the fields shown per record in the
// results overview table.
func (r *Record) ShortDescriptionColumns() []string {
	stage := r.FailedStage()
	if stage == "" && r.Outcome == OutcomePassed {
		stage = "-"
	}
	return []string{
		fmt.Sprintf("%02d", r.CaseNo),
		r.Name,
		r.API,
		string(r.Outcome),
		stage,
	}
}

// Save writes the record into the records directory under outDir,
// creating the directory on first use.
func (r *Record) Save(outDir string) error {
	recordsDir := filepath.Join(outDir, nameRecordsDir)
	err := os.MkdirAll(recordsDir, 0o755)
	if err != nil {
		return errors.WithStack(err)
	}

	bytes, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.WithStack(err)
	}
	jsonPath := filepath.Join(recordsDir, recordFileName(r.CaseNo))
	err = os.WriteFile(jsonPath, bytes, 0o644)
	if err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// ListRecords parses the JSON files of all case records under outDir
// and returns them ordered by case number.
func ListRecords(outDir string) ([]*Record, error) {
	recordsDir := filepath.Join(outDir, nameRecordsDir)
	entries, err := os.ReadDir(recordsDir)
	if os.IsNotExist(err) {
		return []*Record{}, nil
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var res []*Record
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		r, err := loadFile(filepath.Join(recordsDir, e.Name()))
		if err != nil {
			return nil, err
		}
		res = append(res, r)
	}

	sort.SliceStable(res, func(i, j int) bool {
		return res[i].CaseNo < res[j].CaseNo
	})

	return res, nil
}

// LoadRecord parses the JSON file of the specified case and returns
// the result.
// If no record exists for the case, a NotExistError is returned.
func LoadRecord(outDir string, caseNo int) (*Record, error) {
	jsonPath := filepath.Join(outDir, nameRecordsDir, recordFileName(caseNo))
	return loadFile(jsonPath)
}

func loadFile(jsonPath string) (*Record, error) {
	bytes, err := os.ReadFile(jsonPath)
	if os.IsNotExist(err) {
		return nil, WrapNotExistError(err)
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	var r Record
	err = json.Unmarshal(bytes, &r)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &r, nil
}

func recordFileName(caseNo int) string {
	return fmt.Sprintf("case%d.json", caseNo)
}
