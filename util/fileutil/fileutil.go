package fileutil

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/otiai10/copy"
	"github.com/pkg/errors"
)

// IsDir returns whether this path is a directory. Tries to behave the
// same as Python's pathlib.Path.is_dir()
func IsDir(path string) bool {
	f, err := os.Stat(path)
	if err != nil {
		return false
	}
	return f.Mode()&os.ModeDir != 0
}

// Touch creates a file at the given path
func Touch(path string) error {
	file, err := os.OpenFile(path, os.O_RDONLY|os.O_CREATE, 0o644)
	if err != nil && !errors.Is(err, os.ErrExist) {
		return errors.WithStack(err)
	}
	err = file.Close()
	if err != nil {
		return errors.WithStack(err)
	}
	return nil
}

func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, errors.WithStack(err)
	}
	return !errors.Is(err, os.ErrNotExist), nil
}

// Cleanup removes the file or directory tree at path. A path that
// doesn't exist is not an error, so it is safe to call on directories
// that may already have been removed.
func Cleanup(path string) error {
	err := os.RemoveAll(path)
	if err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// MoveFileToDir moves file into destDir, keeping the base name, and
// returns the new path. A plain rename is attempted first; if that
// fails (for example when source and destination are on different
// filesystems) the file is copied and the source removed. Both file
// and destDir must already exist.
func MoveFileToDir(file, destDir string) (string, error) {
	exists, err := Exists(file)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", errors.Errorf("no such file: %s", file)
	}
	if !IsDir(destDir) {
		return "", errors.Errorf("no such directory: %s", destDir)
	}

	dest := filepath.Join(destDir, filepath.Base(file))
	err = os.Rename(file, dest)
	if err == nil {
		return dest, nil
	}

	err = copy.Copy(file, dest)
	if err != nil {
		return "", errors.WithStack(err)
	}
	err = os.Remove(file)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return dest, nil
}

// PrettifyPath prints a possibly shortened path for display purposes.
// If path is located under the current working directory, the relative path to
// it is returned, otherwise or in case of an error the path is returned
// unchanged.
func PrettifyPath(path string) string {
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(cwd, path)
	if err != nil {
		return path
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, filepath.FromSlash("../")) {
		return path
	}
	return rel
}

// TailPath returns the last directory component of path joined with its
// base name, which is how log locations are shown in run summaries.
func TailPath(path string) string {
	return filepath.Join(filepath.Base(filepath.Dir(path)), filepath.Base(path))
}
