// Package descriptor reads test descriptor files. A descriptor is a
// JSON object mapping an API name to an array of test declarations:
//
//	{
//	  "DX12": [
//	    {
//	      "test_name": "RgdCrashTests.PageFaultEvent",
//	      "crash_test_case": 1,
//	      "verify_crash_dump": true,
//	      "verify_rgd_output": true,
//	      "page_fault_case": true
//	    }
//	  ]
//	}
//
// Declarations run in file order, so the parser must not lose the
// order of the object keys. JSON is a YAML subset, which lets the
// YAML node API provide the ordered walk that encoding/json maps
// would destroy.
package descriptor

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Declaration is a single test entry of a descriptor file.
type Declaration struct {
	TestName        string
	CrashTestCase   int
	VerifyCrashDump bool
	VerifyRGDOutput bool
	PageFaultCase   bool
}

// DisplayName returns the test name for log messages, or "N/A" when
// the declaration has none.
func (d *Declaration) DisplayName() string {
	if d.TestName == "" {
		return "N/A"
	}
	return d.TestName
}

// CaseName returns the test name a case is created with, or "NULL"
// when the declaration has none.
func (d *Declaration) CaseName() string {
	if d.TestName == "" {
		return "NULL"
	}
	return d.TestName
}

// HasCaseNo reports whether the declaration carries a usable case
// number. Case numbers start at 1; a missing or unparseable value
// comes out as 0.
func (d *Declaration) HasCaseNo() bool {
	return d.CrashTestCase != 0
}

// APISet is the ordered list of declarations for one API.
type APISet struct {
	API   string
	Tests []Declaration
}

// File is one parsed descriptor file.
type File struct {
	Path string
	Sets []APISet
}

// ParseFile reads and parses a descriptor file.
func ParseFile(path string) (*File, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var doc yaml.Node
	err = yaml.Unmarshal(bytes, &doc)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing test descriptor %s", path)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.Errorf("test descriptor %s is empty", path)
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.Errorf("test descriptor %s: expected an object of API entries", path)
	}

	file := &File{Path: path}
	for i := 0; i+1 < len(root.Content); i += 2 {
		api := root.Content[i].Value
		seq := root.Content[i+1]
		if seq.Kind != yaml.SequenceNode {
			return nil, errors.Errorf("test descriptor %s: API %q: expected an array of test declarations", path, api)
		}

		set := APISet{API: api}
		for _, item := range seq.Content {
			decl, err := parseDeclaration(item)
			if err != nil {
				return nil, errors.Wrapf(err, "test descriptor %s: API %q", path, api)
			}
			set.Tests = append(set.Tests, decl)
		}
		file.Sets = append(file.Sets, set)
	}

	return file, nil
}

func parseDeclaration(node *yaml.Node) (Declaration, error) {
	var d Declaration
	if node.Kind != yaml.MappingNode {
		return d, errors.New("expected a test declaration object")
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		value := node.Content[i+1]
		switch key {
		case "test_name":
			d.TestName = value.Value
		case "crash_test_case":
			// A declaration with a non-numeric case number is treated
			// like one without a case number and skipped later with a
			// warning.
			var caseNo int
			if err := value.Decode(&caseNo); err == nil {
				d.CrashTestCase = caseNo
			}
		case "verify_crash_dump":
			_ = value.Decode(&d.VerifyCrashDump)
		case "verify_rgd_output":
			_ = value.Decode(&d.VerifyRGDOutput)
		case "page_fault_case":
			_ = value.Decode(&d.PageFaultCase)
		}
	}

	return d, nil
}
