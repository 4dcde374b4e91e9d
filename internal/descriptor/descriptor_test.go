package descriptor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDescriptor(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "descriptor.json")
	err := os.WriteFile(path, []byte(content), 0o644)
	require.NoError(t, err)
	return path
}

func TestParseFile(t *testing.T) {
	path := writeDescriptor(t, `{
  "DX12": [
    {
      "test_name": "RgdCrashTests.PageFaultEvent",
      "crash_test_case": 1,
      "verify_crash_dump": true,
      "verify_rgd_output": true,
      "page_fault_case": true
    },
    {
      "test_name": "RgdCrashTests.HangEvent",
      "crash_test_case": 2,
      "verify_crash_dump": true
    }
  ]
}`)

	file, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, file.Sets, 1)
	assert.Equal(t, "DX12", file.Sets[0].API)

	tests := file.Sets[0].Tests
	require.Len(t, tests, 2)
	assert.Equal(t, Declaration{
		TestName:        "RgdCrashTests.PageFaultEvent",
		CrashTestCase:   1,
		VerifyCrashDump: true,
		VerifyRGDOutput: true,
		PageFaultCase:   true,
	}, tests[0])
	assert.Equal(t, Declaration{
		TestName:        "RgdCrashTests.HangEvent",
		CrashTestCase:   2,
		VerifyCrashDump: true,
	}, tests[1])
}

func TestParseFile_KeepsAPIOrder(t *testing.T) {
	path := writeDescriptor(t, `{
  "Vulkan": [{"test_name": "a", "crash_test_case": 1, "verify_crash_dump": true}],
  "DX12": [{"test_name": "b", "crash_test_case": 2, "verify_crash_dump": true}]
}`)

	file, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, file.Sets, 2)
	assert.Equal(t, "Vulkan", file.Sets[0].API)
	assert.Equal(t, "DX12", file.Sets[1].API)
}

func TestParseFile_MissingFields(t *testing.T) {
	path := writeDescriptor(t, `{"DX12": [{"crash_test_case": 3}]}`)

	file, err := ParseFile(path)
	require.NoError(t, err)
	decl := file.Sets[0].Tests[0]
	assert.False(t, decl.VerifyCrashDump)
	assert.Equal(t, "N/A", decl.DisplayName())
	assert.Equal(t, "NULL", decl.CaseName())
	assert.True(t, decl.HasCaseNo())
}

func TestParseFile_InvalidCaseNo(t *testing.T) {
	path := writeDescriptor(t, `{"DX12": [{"test_name": "x", "crash_test_case": "soon", "verify_crash_dump": true}]}`)

	file, err := ParseFile(path)
	require.NoError(t, err)
	assert.False(t, file.Sets[0].Tests[0].HasCaseNo())
}

func TestParseFile_NotAnObject(t *testing.T) {
	path := writeDescriptor(t, `["DX12"]`)

	_, err := ParseFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected an object")
}

func TestParseFile_DeclarationNotAnObject(t *testing.T) {
	path := writeDescriptor(t, `{"DX12": ["nope"]}`)

	_, err := ParseFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `API "DX12"`)
}

func TestParseFile_FileMissing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
