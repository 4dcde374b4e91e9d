package dependencies

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/gpuopen-tools/rgd-testkit/internal/kit"
	"github.com/gpuopen-tools/rgd-testkit/pkg/log"
	"github.com/gpuopen-tools/rgd-testkit/util/fileutil"
)

var ErrDeps = errors.New(`Unable to run tests due to missing test kit executables.
Check the kit directory layout or pass explicit paths via
--crash-generator, --rgd-test and --rgd-cli.
`)

type Key string

const (
	CrashGenerator   Key = "crash generator"
	BackendValidator Key = "rgd_test"
	CLI              Key = "rgd"

	MessageVersion = "rgd-testkit requires test kit %s or higher, have %s"
	MessageMissing = "rgd-testkit requires the %s, but it was not found at %s"
)

// Dependency represents a single test kit executable
type Dependency struct {
	finder kit.Finder

	Key Key
	// Path resolves the location of the executable inside the kit
	Path func(*Dependency) (string, error)
}

type Dependencies map[Key]*Dependency

// List of all known dependencies
var deps = Dependencies{
	CrashGenerator: {
		Key: CrashGenerator,
		Path: func(dep *Dependency) (string, error) {
			return dep.finder.CrashGeneratorPath()
		},
	},
	BackendValidator: {
		Key: BackendValidator,
		Path: func(dep *Dependency) (string, error) {
			return dep.finder.BackendValidatorPath()
		},
	},
	CLI: {
		Key: CLI,
		Path: func(dep *Dependency) (string, error) {
			return dep.finder.CLIPath()
		},
	},
}

func (dep *Dependency) installed(logger *log.Logger) bool {
	path, err := dep.Path(dep)
	if err != nil {
		logger.Warnf("%v", err)
		return false
	}
	exists, err := fileutil.Exists(path)
	if err != nil || !exists {
		logger.Warnf(MessageMissing, dep.Key, path)
		return false
	}
	logger.Debugf("Found %s: %s", dep.Key, path)
	return true
}

// Check verifies that the given test kit executables are present where
// the finder resolves them.
func Check(keys []Key, finder kit.Finder, logger *log.Logger) error {
	return check(keys, deps, finder, logger)
}

func check(keys []Key, deps Dependencies, finder kit.Finder, logger *log.Logger) error {
	allFine := true
	for _, key := range keys {
		dep, found := deps[key]
		if !found {
			panic(fmt.Sprintf("Undefined dependency %s", key))
		}

		dep.finder = finder

		if !dep.installed(logger) {
			allFine = false
		}
	}

	if !allFine {
		return ErrDeps
	}
	return nil
}
