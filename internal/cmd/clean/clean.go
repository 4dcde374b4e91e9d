package clean

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/gpuopen-tools/rgd-testkit/internal/cmdutils"
	"github.com/gpuopen-tools/rgd-testkit/internal/config"
	"github.com/gpuopen-tools/rgd-testkit/internal/kit"
	"github.com/gpuopen-tools/rgd-testkit/pkg/dialog"
)

type options struct {
	Force      bool   `mapstructure:"force"`
	KeepLatest bool   `mapstructure:"keep-latest"`
	KitDir     string `mapstructure:"kit-dir"`
}

type cleanCmd struct {
	*cobra.Command
	opts *options
}

func New() *cobra.Command {
	opts := &options{}
	var bindFlags func()

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove run output directories from the kit",
		Long: `Removes the Output-<timestamp> directories a test run leaves inside
the kit folder, including all collected artifacts and logs. Without
--force an interactive prompt asks which runs to remove.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind viper keys to flags. We can't do this in the New
			// function, because that would re-bind viper keys which
			// were bound to the flags of other commands before.
			bindFlags()
			return config.FindAndParseConfigFile(opts)
		},
		RunE: func(c *cobra.Command, args []string) error {
			cmd := cleanCmd{Command: c, opts: opts}
			return cmd.run()
		},
	}

	// Note: If a flag should be configurable via rgd-testkit.yaml as
	//       well, bind it to viper in the PreRun function.
	bindFlags = cmdutils.AddFlags(cmd,
		cmdutils.AddForceFlag,
		cmdutils.AddKeepLatestFlag,
		cmdutils.AddKitDirFlag,
	)

	return cmd
}

func (cmd *cleanCmd) run() error {
	finder, err := kit.NewFinder(cmd.opts.KitDir)
	if err != nil {
		return err
	}
	runDirs, err := config.FindRunDirs(finder.RootDir())
	if err != nil {
		return err
	}

	// The run directories are ordered oldest first, so keeping the
	// latest means dropping the last entry from the candidates.
	if cmd.opts.KeepLatest && len(runDirs) > 0 {
		runDirs = runDirs[:len(runDirs)-1]
	}
	if len(runDirs) == 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Nothing to clean.")
		return nil
	}

	if !cmd.opts.Force {
		runDirs, err = cmd.selectRunDirs(runDirs)
		if err != nil {
			return err
		}
		if len(runDirs) == 0 {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Nothing to clean.")
			return nil
		}

		question := fmt.Sprintf("Remove %d run output directories?", len(runDirs))
		if len(runDirs) == 1 {
			question = "Remove 1 run output directory?"
		}
		ok, err := dialog.Confirm(question, true)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}

	for _, dir := range runDirs {
		err = os.RemoveAll(dir)
		if err != nil {
			return errors.WithStack(err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", dir)
	}
	return nil
}

func (cmd *cleanCmd) selectRunDirs(runDirs []string) ([]string, error) {
	items := map[string]string{}
	for _, dir := range runDirs {
		items[filepath.Base(dir)] = dir
	}
	return dialog.MultiSelect("Select the run output directories to remove", items)
}
