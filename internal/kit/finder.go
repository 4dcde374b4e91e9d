// Package kit locates the pieces of an RGD test kit installation. A
// kit directory contains a radeon_gpu_detective-<version> folder with
// the rgd CLI and the rgd_test backend validator, an RGDCaptureTests
// folder with the crash generator, a Version.txt and the bundled test
// descriptor files.
package kit

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/mattn/go-zglob"
	"github.com/pkg/errors"
)

const (
	cliPackagePattern            = "radeon_gpu_detective-*"
	crashGeneratorPackagePattern = "RGDCaptureTests*"

	cliExecutable              = "rgd"
	backendValidatorExecutable = "rgd_test"
	crashGeneratorExecutable   = "RGDIntegrationTests"

	versionFileName       = "Version.txt"
	descriptorFolderName  = "input_description_files"
	defaultDescriptorName = "RgdDriverSanity.json"
)

// Finder locates the executables and support files of a test kit.
type Finder interface {
	RootDir() string
	CLIPath() (string, error)
	BackendValidatorPath() (string, error)
	CrashGeneratorPath() (string, error)
	VersionFilePath() string
	DefaultDescriptorPath() string
}

type KitFinder struct {
	KitDir string
}

var _ Finder = (*KitFinder)(nil)

// NewFinder returns a finder for the kit at kitDir. When kitDir is
// empty the directory of the running executable is used, which is the
// kit root in a packaged test kit.
func NewFinder(kitDir string) (*KitFinder, error) {
	if kitDir == "" {
		executable, err := os.Executable()
		if err != nil {
			return nil, errors.WithStack(err)
		}
		// The executable path can contain symlinks on some systems
		executable, err = filepath.EvalSymlinks(executable)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		kitDir = filepath.Dir(executable)
	}
	return &KitFinder{KitDir: kitDir}, nil
}

// RootDir returns the kit directory, which is also where run output
// directories are created.
func (f *KitFinder) RootDir() string {
	return f.KitDir
}

// CLIPath returns the path of the rgd CLI inside the kit.
func (f *KitFinder) CLIPath() (string, error) {
	packageDir, err := f.cliPackageDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(packageDir, executableName(cliExecutable)), nil
}

// BackendValidatorPath returns the path of the rgd_test executable,
// which lives next to the rgd CLI.
func (f *KitFinder) BackendValidatorPath() (string, error) {
	packageDir, err := f.cliPackageDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(packageDir, executableName(backendValidatorExecutable)), nil
}

// CrashGeneratorPath returns the path of the crash generator
// executable inside the capture tests package.
func (f *KitFinder) CrashGeneratorPath() (string, error) {
	matches, err := zglob.Glob(filepath.Join(f.KitDir, crashGeneratorPackagePattern))
	if err != nil {
		return "", errors.WithStack(err)
	}
	if len(matches) == 0 {
		return "", errors.New("Unable to locate the default Crash Generator package")
	}
	sort.Strings(matches)
	return filepath.Join(matches[0], executableName(crashGeneratorExecutable)), nil
}

// VersionFilePath returns the path of the kit's Version.txt. The file
// is optional, so callers have to check whether it exists.
func (f *KitFinder) VersionFilePath() string {
	return filepath.Join(f.KitDir, versionFileName)
}

// DefaultDescriptorPath returns the path of the bundled driver sanity
// test descriptor, which is used when no descriptor is given.
func (f *KitFinder) DefaultDescriptorPath() string {
	return filepath.Join(f.KitDir, descriptorFolderName, defaultDescriptorName)
}

// DescriptorDir returns the directory of the bundled test descriptors.
func (f *KitFinder) DescriptorDir() string {
	return filepath.Join(f.KitDir, descriptorFolderName)
}

func (f *KitFinder) cliPackageDir() (string, error) {
	// There should be only one radeon_gpu_detective-<version> folder in
	// the kit, but the glob returns a list.
	matches, err := zglob.Glob(filepath.Join(f.KitDir, cliPackagePattern))
	if err != nil {
		return "", errors.WithStack(err)
	}
	if len(matches) == 0 {
		return "", errors.New("Unable to locate the default RGD package")
	}
	sort.Strings(matches)
	return matches[0], nil
}

func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}
