package run

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gpuopen-tools/rgd-testkit/internal/cmdutils"
	"github.com/gpuopen-tools/rgd-testkit/internal/completion"
	"github.com/gpuopen-tools/rgd-testkit/internal/config"
	"github.com/gpuopen-tools/rgd-testkit/internal/driver"
	"github.com/gpuopen-tools/rgd-testkit/internal/kit"
	"github.com/gpuopen-tools/rgd-testkit/internal/pipeline"
	"github.com/gpuopen-tools/rgd-testkit/pkg/artifact"
	"github.com/gpuopen-tools/rgd-testkit/pkg/dependencies"
	"github.com/gpuopen-tools/rgd-testkit/pkg/legacylog"
	"github.com/gpuopen-tools/rgd-testkit/pkg/log"
	"github.com/gpuopen-tools/rgd-testkit/util/fileutil"
	"github.com/gpuopen-tools/rgd-testkit/util/sliceutil"
)

type runCmd struct {
	*cobra.Command
	opts *config.Options

	logger *log.Logger
	legacy *legacylog.Logger
}

func New() *cobra.Command {
	opts := &config.Options{}
	var bindFlags func()

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the RGD crash tests",
		Long: `This command runs the automated RGD crash tests. For every case listed
in the test descriptor files it launches the crash generator to provoke
a GPU crash, waits for the crash dump, validates the dump with the RGD
backend tests and generates crash summaries with the RGD CLI.

The results are written to a new Output-<timestamp> folder inside the
kit folder. By default the output uses the legacy three-file format
existing automation parses; --modern-output switches to a single
leveled log file.

The command exits with a non-zero status when any capture or backend
test failed.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind viper keys to flags. We can't do this in the New
			// function, because that would re-bind viper keys which
			// were bound to the flags of other commands before.
			bindFlags()

			return config.FindAndParseConfigFile(opts)
		},
		RunE: func(c *cobra.Command, args []string) error {
			cmd := runCmd{Command: c, opts: opts}
			return cmd.run()
		},
	}

	// Note: If a flag should be configurable via rgd-testkit.yaml as
	// well, bind it to viper in the PreRunE function.
	bindFlags = cmdutils.AddFlags(cmd,
		cmdutils.AddTestDescriptorFlag,
		cmdutils.AddCrashGeneratorFlag,
		cmdutils.AddRGDTestFlag,
		cmdutils.AddRGDCLIFlag,
		cmdutils.AddRetainFlag,
		cmdutils.AddAPIFlag,
		cmdutils.AddVerboseFlag,
		cmdutils.AddModernOutputFlag,
		cmdutils.AddNotifyFlag,
		cmdutils.AddKitDirFlag,
	)

	err := cmd.RegisterFlagCompletionFunc("api", completion.ValidAPIs)
	if err != nil {
		panic(err)
	}
	err = cmd.RegisterFlagCompletionFunc("test", completion.ValidTestDescriptors)
	if err != nil {
		panic(err)
	}

	return cmd
}

func (c *runCmd) run() error {
	c.opts.Timestamp = time.Now().Format(config.TimestampLayout)
	c.logger = log.NewLogger()
	c.legacy = legacylog.NewLogger(c.opts.Timestamp)

	finder, err := kit.NewFinder(c.opts.KitDir)
	if err != nil {
		return err
	}

	conf, err := config.NewTestConfig(c.opts, finder, c.logger, c.legacy)
	if err != nil {
		return err
	}

	err = c.setUpOutput(conf, finder)
	if err != nil {
		return err
	}
	defer c.closeOutput()

	err = c.checkDependencies(conf, finder)
	if err != nil {
		return err
	}

	locator := artifact.NewLocator(conf.CrashingAppDir, filepath.Dir(conf.CrashGeneratorPath), conf.ArtifactsDir, c.logger, c.legacy)
	testPipeline := pipeline.NewPipeline(conf, locator, c.logger, c.legacy)
	testDriver := driver.NewDriver(conf, testPipeline, c.logger, c.legacy)

	failed, err := c.executeDriver(testDriver)
	if err != nil {
		return err
	}
	if failed {
		// The results were already logged; the exit status is what
		// tells automation that tests failed.
		return cmdutils.ErrSilent
	}
	return nil
}

// setUpOutput routes the run's records into the selected output
// format. The modern format writes leveled records to Log_<ts>.txt,
// the legacy format writes the three channel files existing automation
// parses. The format that was not selected is disabled, so neither
// format ever contains lines of the other.
func (c *runCmd) setUpOutput(conf *config.TestConfig, finder kit.Finder) error {
	c.legacy.SetExtendedLogDir(conf.ArtifactsDir)

	if conf.ModernOutput {
		err := c.logger.SetFileHandler(conf.OutDir, conf.Timestamp)
		if err != nil {
			return err
		}
		c.logger.SetConsoleVerbosity(conf.Verbose)
		c.legacy.Disable()
		return nil
	}

	err := c.legacy.SetFileHandler(conf.OutDir)
	if err != nil {
		return err
	}
	version, err := dependencies.KitVersionString(finder)
	if err == nil && version != "" {
		c.legacy.SummaryInfof("Test Kit Version: %s", version)
	}
	c.legacy.SummaryInfof("Open Capture Test Log: %s", fileutil.PrettifyPath(c.legacy.CaptureLogFile))
	c.logger.Disable()
	return nil
}

func (c *runCmd) closeOutput() {
	_ = c.logger.Close()
	_ = c.legacy.Close()
}

// checkDependencies verifies that the kit executables the run is going
// to launch exist. Tools whose paths were overridden on the command
// line are not part of the kit and are taken as given.
func (c *runCmd) checkDependencies(conf *config.TestConfig, finder kit.Finder) error {
	var keys []dependencies.Key
	for _, key := range []dependencies.Key{dependencies.CrashGenerator, dependencies.BackendValidator, dependencies.CLI} {
		if !sliceutil.Contains(conf.OverriddenTools, string(key)) {
			keys = append(keys, key)
		}
	}

	err := dependencies.Check(keys, finder, c.logger)
	if err != nil {
		c.logger.Error(err)
		c.legacy.SummaryInfof("%v", err)
		return cmdutils.WrapSilentError(err)
	}

	dependencies.CheckKitVersion(finder, c.logger)
	return nil
}

// executeDriver runs the test driver and maps termination signals to
// the exit status automation expects. A terminating signal stops the
// run before the next case; the process group of a running kit
// executable is terminated by the process runner itself.
func (c *runCmd) executeDriver(testDriver *driver.Driver) (bool, error) {
	signalHandlerCtx, cancelSignalHandler := context.WithCancel(context.Background())
	routines, routinesCtx := errgroup.WithContext(signalHandlerCtx)
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	var failed bool
	var signalErr error
	routines.Go(func() error {
		select {
		case <-routinesCtx.Done():
			return nil
		case s := <-sigs:
			c.logger.Warnf("Received %s", s.String())
			signalErr = cmdutils.NewSignalError(s.(syscall.Signal))
			return signalErr
		}
	})

	routines.Go(func() error {
		defer cancelSignalHandler()
		var err error
		failed, err = testDriver.RunTests(routinesCtx)
		return err
	})

	err := routines.Wait()
	// We use a separate variable to pass signal errors, because the
	// signal cancels the driver goroutine, resulting in a race of
	// which returns an error first. In that case, we always want to
	// report the signal, not the driver's cancellation error.
	if signalErr != nil {
		c.logger.Error(signalErr, signalErr.Error())
		return failed, cmdutils.WrapSilentError(signalErr)
	}

	var execErr *cmdutils.ExecError
	if errors.As(err, &execErr) {
		// A kit executable that cannot be launched is a problem of the
		// user's kit installation, so the error is printed without the
		// stack trace.
		c.logger.Error(err)
		c.legacy.SummaryInfof("%v. Exiting...", err)
		return failed, cmdutils.WrapSilentError(err)
	}

	return failed, err
}
