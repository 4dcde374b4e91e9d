// Package config resolves the effective configuration of a test run
// from the command line flags and the test kit layout: which tools to
// launch, which descriptor files to process, and where the run's
// output lands.
package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-zglob"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/gpuopen-tools/rgd-testkit/internal/kit"
	"github.com/gpuopen-tools/rgd-testkit/pkg/legacylog"
	"github.com/gpuopen-tools/rgd-testkit/pkg/log"
	"github.com/gpuopen-tools/rgd-testkit/util/fileutil"
	"github.com/gpuopen-tools/rgd-testkit/util/sliceutil"
)

const (
	// TimestampLayout renders the timestamp that names a run's output
	// directory and log files.
	TimestampLayout = "20060102_150405"

	// OutDirPrefix starts the name of every run output directory.
	OutDirPrefix = "Output-"

	// ArtifactsDirName is the directory inside the output directory
	// that collects crash dumps, tool logs and generated summaries.
	ArtifactsDirName = "RGDFiles"

	sampleAppsFolderName = "sample_apps"
	crashingAppName      = "GpuTrasher"

	exitingSuffix = "Exiting..."
)

// SupportedAPIs lists the graphics APIs the harness can run crash
// tests for.
var SupportedAPIs = []string{"DX12"}

// SupportedAPIString returns the supported APIs as a comma-separated
// list for log messages.
func SupportedAPIString() string {
	return strings.Join(SupportedAPIs, ", ")
}

// FindAndParseConfigFile fills opts from the bound flags, an optional
// rgd-testkit.yaml next to the kit and RGD_TESTKIT_* environment
// variables. Flags win over the environment, the environment wins
// over the config file.
func FindAndParseConfigFile(opts interface{}) error {
	viper.SetConfigName("rgd-testkit")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("RGD_TESTKIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if kitDir := viper.GetString("kit-dir"); kitDir != "" {
		viper.AddConfigPath(kitDir)
	}
	viper.AddConfigPath(".")

	err := viper.ReadInConfig()
	if err != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(err, &notFoundErr) {
			return errors.WithStack(err)
		}
	}

	err = viper.Unmarshal(opts)
	if err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// FindRunDirs returns the run output directories under kitRoot, oldest
// run first. The timestamp suffix makes the lexical order the
// chronological order.
func FindRunDirs(kitRoot string) ([]string, error) {
	matches, err := zglob.Glob(filepath.Join(kitRoot, OutDirPrefix+"*"))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	var dirs []string
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if info.IsDir() {
			dirs = append(dirs, match)
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// LatestRunDir returns the newest run output directory under kitRoot,
// or an empty string when no run has been recorded yet.
func LatestRunDir(kitRoot string) (string, error) {
	dirs, err := FindRunDirs(kitRoot)
	if err != nil {
		return "", err
	}
	if len(dirs) == 0 {
		return "", nil
	}
	return dirs[len(dirs)-1], nil
}

// ResolveRunDir returns outputDir when it is set, otherwise the newest
// run output directory inside the kit.
func ResolveRunDir(outputDir, kitDir string) (string, error) {
	if outputDir != "" {
		return outputDir, nil
	}
	finder, err := kit.NewFinder(kitDir)
	if err != nil {
		return "", err
	}
	return LatestRunDir(finder.RootDir())
}

// Options holds the raw command line values of the run command.
type Options struct {
	Descriptors    []string `mapstructure:"test"`
	CrashGenerator string   `mapstructure:"crash-generator"`
	RGDTest        string   `mapstructure:"rgd-test"`
	RGDCLI         string   `mapstructure:"rgd-cli"`
	Retain         bool     `mapstructure:"retain"`
	APIs           []string `mapstructure:"api"`
	Verbose        bool     `mapstructure:"verbose"`
	ModernOutput   bool     `mapstructure:"modern-output"`
	Notify         bool     `mapstructure:"notify"`
	KitDir         string   `mapstructure:"kit-dir"`

	// Timestamp identifies the run. Set by the run command before the
	// config is resolved, not a flag.
	Timestamp string
}

// TestConfig is the resolved configuration of one test run.
type TestConfig struct {
	Timestamp    string
	OutDir       string
	ArtifactsDir string

	Descriptors  []string
	APIs         []string
	Retain       bool
	Verbose      bool
	ModernOutput bool
	Notify       bool

	// CrashGeneratorPath launches the crash test cases.
	CrashGeneratorPath string
	// CrashingAppDir is the folder of the sample app the crash
	// generator drives. Its log files appear there.
	CrashingAppDir string
	// BackendValidatorPath is the rgd_test executable.
	BackendValidatorPath string
	// CLIPath is the rgd executable that turns dumps into summaries.
	CLIPath string

	// OverriddenTools names the tools whose paths came from flags
	// instead of the kit lookup, so preflight checks can skip them.
	OverriddenTools []string
}

// NewTestConfig resolves the run configuration and creates the run's
// output directories. Messages about an unusable kit layout go to both
// output formats before the error is returned.
func NewTestConfig(opts *Options, finder kit.Finder, logger *log.Logger, legacy *legacylog.Logger) (*TestConfig, error) {
	c := &TestConfig{
		Timestamp:    opts.Timestamp,
		Retain:       opts.Retain,
		Verbose:      opts.Verbose,
		ModernOutput: opts.ModernOutput,
		Notify:       opts.Notify,
	}
	if c.Timestamp == "" {
		c.Timestamp = time.Now().Format(TimestampLayout)
	}

	var err error
	c.CrashGeneratorPath = opts.CrashGenerator
	if c.CrashGeneratorPath == "" {
		c.CrashGeneratorPath, err = finder.CrashGeneratorPath()
		if err != nil {
			return nil, err
		}
	} else {
		c.OverriddenTools = append(c.OverriddenTools, "crash generator")
	}

	c.BackendValidatorPath = opts.RGDTest
	if c.BackendValidatorPath == "" {
		c.BackendValidatorPath, err = finder.BackendValidatorPath()
		if err != nil {
			return nil, err
		}
	} else {
		c.OverriddenTools = append(c.OverriddenTools, "rgd_test")
	}

	c.CLIPath = opts.RGDCLI
	if c.CLIPath == "" {
		c.CLIPath, err = finder.CLIPath()
		if err != nil {
			return nil, err
		}
	} else {
		c.OverriddenTools = append(c.OverriddenTools, "rgd")
	}

	if len(opts.Descriptors) > 0 {
		c.Descriptors = opts.Descriptors
	} else {
		c.Descriptors = []string{finder.DefaultDescriptorPath()}
	}

	// Unsupported API names are dropped here without a message; the
	// descriptor processing reports unsupported APIs per descriptor.
	for _, api := range opts.APIs {
		if sliceutil.Contains(SupportedAPIs, api) {
			c.APIs = append(c.APIs, api)
		}
	}
	if len(c.APIs) == 0 {
		c.APIs = []string{SupportedAPIs[0]}
	}

	c.OutDir = filepath.Join(finder.RootDir(), OutDirPrefix+c.Timestamp)
	c.ArtifactsDir = filepath.Join(c.OutDir, ArtifactsDirName)
	for _, dir := range []string{c.OutDir, c.ArtifactsDir} {
		err = os.MkdirAll(dir, 0o755)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		err = ensureDirAccessible(dir)
		if err != nil {
			return nil, err
		}
	}

	c.CrashingAppDir, err = findCrashingAppDir(c.CrashGeneratorPath, logger, legacy)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// findCrashingAppDir locates the GpuTrasher folder relative to the
// crash generator executable. Both lookups report to both output
// formats, the legacy summary being how existing automation learns
// the run never started.
func findCrashingAppDir(crashGeneratorPath string, logger *log.Logger, legacy *legacylog.Logger) (string, error) {
	crashGeneratorDir := filepath.Dir(crashGeneratorPath)

	sampleAppsDir := filepath.Join(crashGeneratorDir, sampleAppsFolderName)
	if !fileutil.IsDir(sampleAppsDir) {
		msg := "Unable to locate the sample apps folder"
		logger.Errorf(errors.New(msg), "%s inside %s.", msg, crashGeneratorDir)
		legacy.SummaryInfof("%s inside %s. %s", msg, crashGeneratorDir, exitingSuffix)
		return "", errors.Errorf("%s inside %s", msg, crashGeneratorDir)
	}

	crashingAppDir := filepath.Join(sampleAppsDir, crashingAppName)
	if !fileutil.IsDir(crashingAppDir) {
		msg := "Unable to locate the GPUTrasher folder"
		logger.Errorf(errors.New(msg), "%s inside %s.", msg, sampleAppsDir)
		legacy.SummaryInfof("%s inside %s. %s", msg, sampleAppsDir, exitingSuffix)
		return "", errors.Errorf("%s inside %s", msg, sampleAppsDir)
	}

	return crashingAppDir, nil
}
