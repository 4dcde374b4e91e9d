package fileutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrettifyPath(t *testing.T) {
	var filesystemRoot string
	if runtime.GOOS == "windows" {
		filesystemRoot = "C:\\"
	} else {
		filesystemRoot = "/"
	}
	cwd, err := os.Getwd()
	require.NoError(t, err)

	assert.Equal(t, filesystemRoot+filepath.Join("not", "cwd"), PrettifyPath(filesystemRoot+filepath.Join("not", "cwd")))
	assert.Equal(t, filepath.Join("some", "dir"), PrettifyPath(filepath.Join(cwd, "some", "dir")))
	assert.Equal(t, cwd, PrettifyPath(cwd))
	assert.Equal(t, filepath.Dir(cwd), PrettifyPath(filepath.Dir(cwd)))
}

func TestTailPath(t *testing.T) {
	path := filepath.Join("some", "where", "Output-20230101_120000", "Log_20230101_120000.txt")
	assert.Equal(t, filepath.Join("Output-20230101_120000", "Log_20230101_120000.txt"), TailPath(path))
}

func TestMoveFileToDir(t *testing.T) {
	srcDir := t.TempDir()
	destDir := t.TempDir()

	srcFile := filepath.Join(srcDir, "crash.txt")
	err := os.WriteFile(srcFile, []byte("contents"), 0o644)
	require.NoError(t, err)

	dest, err := MoveFileToDir(srcFile, destDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(destDir, "crash.txt"), dest)

	// The source must be gone and the destination must carry the contents
	exists, err := Exists(srcFile)
	require.NoError(t, err)
	assert.False(t, exists)
	contents, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, []byte("contents"), contents)
}

func TestMoveFileToDir_MissingSource(t *testing.T) {
	destDir := t.TempDir()
	_, err := MoveFileToDir(filepath.Join(t.TempDir(), "nope.txt"), destDir)
	require.Error(t, err)
}

func TestMoveFileToDir_MissingDestDir(t *testing.T) {
	srcFile := filepath.Join(t.TempDir(), "crash.txt")
	err := Touch(srcFile)
	require.NoError(t, err)

	_, err = MoveFileToDir(srcFile, filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestCleanup(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "artifacts")
	err := os.MkdirAll(filepath.Join(dir, "nested"), 0o755)
	require.NoError(t, err)
	err = Touch(filepath.Join(dir, "nested", "file.rgd"))
	require.NoError(t, err)

	err = Cleanup(dir)
	require.NoError(t, err)
	exists, err := Exists(dir)
	require.NoError(t, err)
	assert.False(t, exists)

	// Cleaning up a path that is already gone is not an error
	err = Cleanup(dir)
	require.NoError(t, err)
}
