package root

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/gpuopen-tools/rgd-testkit/internal/cmd/clean"
	"github.com/gpuopen-tools/rgd-testkit/internal/cmd/results"
	"github.com/gpuopen-tools/rgd-testkit/internal/cmd/run"
	"github.com/gpuopen-tools/rgd-testkit/internal/cmdutils"
	"github.com/gpuopen-tools/rgd-testkit/pkg/log"
)

func New() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rgd-testkit",
		Short: "Crash test harness for the Radeon GPU Detective kit",
		Long: `rgd-testkit runs the crash test cases of an RGD test kit: it launches
the crash generator for every case of the selected test descriptors,
validates the captured crash dumps with the rgd_test backend and the
rgd CLI, and collects dumps and logs in an Output-<timestamp> directory
inside the kit folder.`,
		// Errors are handled by Execute, which knows the error types
		// the subcommands return.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.AddCommand(run.New())
	rootCmd.AddCommand(results.New())
	rootCmd.AddCommand(clean.New())

	return rootCmd
}

// Execute runs the root command and turns the returned error into the
// process exit status. Test failures and other already-reported errors
// exit with status 1 without further output; a run terminated by a
// signal exits with the conventional 128+signal status.
func Execute() {
	cmd, err := New().ExecuteC()
	if err == nil {
		return
	}

	var signalErr *cmdutils.SignalError
	if errors.As(err, &signalErr) {
		os.Exit(128 + int(signalErr.Signal))
	}

	if !cmdutils.IsSilentError(err) {
		log.NewLogger().Error(err)
	}
	if cmdutils.IsIncorrectUsageError(err) {
		fmt.Println()
		_ = cmd.Usage()
	}
	os.Exit(1)
}
