package results

import (
	"fmt"
	"io"
	"strconv"

	"github.com/hokaccha/go-prettyjson"
	"github.com/pkg/browser"
	"github.com/pkg/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/gpuopen-tools/rgd-testkit/internal/cmdutils"
	"github.com/gpuopen-tools/rgd-testkit/internal/completion"
	"github.com/gpuopen-tools/rgd-testkit/internal/config"
	"github.com/gpuopen-tools/rgd-testkit/pkg/caserecord"
	"github.com/gpuopen-tools/rgd-testkit/pkg/log"
	"github.com/gpuopen-tools/rgd-testkit/util/fileutil"
	"github.com/gpuopen-tools/rgd-testkit/util/stringutil"
)

type options struct {
	PrintJSON bool   `mapstructure:"json"`
	Open      bool   `mapstructure:"open"`
	OutputDir string `mapstructure:"output-dir"`
	KitDir    string `mapstructure:"kit-dir"`
}

type resultsCmd struct {
	*cobra.Command
	opts   *options
	logger *log.Logger
}

func New() *cobra.Command {
	opts := &options{}
	var bindFlags func()

	cmd := &cobra.Command{
		Use:     "results [case-no]",
		Aliases: []string{"result"},
		Short:   "List and show crash test case results",
		Long: `Lists the recorded results of a test run, or shows the details of a
single case when called with its case number. Without --output-dir the
newest run output directory inside the kit is inspected.`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completion.ValidCaseRecords,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind viper keys to flags. We can't do this in the New
			// function, because that would re-bind viper keys which
			// were bound to the flags of other commands before.
			bindFlags()
			return config.FindAndParseConfigFile(opts)
		},
		RunE: func(c *cobra.Command, args []string) error {
			cmd := resultsCmd{Command: c, opts: opts, logger: log.NewLogger()}
			return cmd.run(args)
		},
	}

	// Note: If a flag should be configurable via rgd-testkit.yaml as
	//       well, bind it to viper in the PreRun function.
	bindFlags = cmdutils.AddFlags(cmd,
		cmdutils.AddJSONFlag,
		cmdutils.AddOpenFlag,
		cmdutils.AddOutputDirFlag,
		cmdutils.AddKitDirFlag,
	)

	err := cmd.RegisterFlagCompletionFunc("output-dir", completion.ValidRunDirs)
	if err != nil {
		panic(err)
	}

	return cmd
}

func (cmd *resultsCmd) run(args []string) error {
	runDir, err := config.ResolveRunDir(cmd.opts.OutputDir, cmd.opts.KitDir)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		if cmd.opts.Open {
			err = errors.New("the --open flag requires a case number")
			return cmdutils.WrapIncorrectUsageError(err)
		}
		return cmd.listRecords(runDir)
	}

	caseNo, err := strconv.Atoi(args[0])
	if err != nil {
		err = errors.Errorf("invalid case number %q", args[0])
		return cmdutils.WrapIncorrectUsageError(err)
	}
	return cmd.showRecord(runDir, caseNo)
}

// listRecords prints a short description of every recorded case of the
// run as a table, or as JSON in machine-readable mode.
func (cmd *resultsCmd) listRecords(runDir string) error {
	records := []*caserecord.Record{}
	if runDir != "" {
		var err error
		records, err = caserecord.ListRecords(runDir)
		if err != nil {
			return err
		}
	}

	if cmd.opts.PrintJSON {
		s, err := stringutil.ToJSONString(records)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), s)
		return nil
	}

	if len(records) == 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No case results found. Run the tests first.")
		return nil
	}

	data := [][]string{
		{"No", "Name", "API", "Outcome", "Failed stage"},
	}
	for _, r := range records {
		data = append(data, r.ShortDescriptionColumns())
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func (cmd *resultsCmd) showRecord(runDir string, caseNo int) error {
	if runDir == "" {
		err := errors.New("no test run output found")
		cmd.logger.Errorf(err, "No test run output found. Run the tests first.")
		return cmdutils.WrapSilentError(err)
	}

	r, err := caserecord.LoadRecord(runDir, caseNo)
	if caserecord.IsNotExistError(err) {
		cmd.logger.Errorf(err, "No result recorded for case %d", caseNo)
		return cmdutils.WrapSilentError(err)
	}
	if err != nil {
		return err
	}
	return cmd.printRecord(r)
}

func (cmd *resultsCmd) printRecord(r *caserecord.Record) error {
	if cmd.opts.PrintJSON {
		s, err := stringutil.ToJSONString(r)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), s)
		if err != nil {
			return errors.WithStack(err)
		}
		return nil
	}

	header := pterm.Style{pterm.Reset, pterm.Bold}.Sprint(r.ShortDescription())
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), header)

	colored, err := prettyjson.Marshal(r)
	if err != nil {
		return errors.WithStack(err)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(colored))

	if r.FailureLog != "" {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Extended failure log: %s\n", fileutil.PrettifyPath(r.FailureLog))
	}

	if cmd.opts.Open {
		return cmd.openFailureLog(r)
	}
	return nil
}

func (cmd *resultsCmd) openFailureLog(r *caserecord.Record) error {
	if r.FailureLog == "" {
		cmd.logger.Warnf("Case %d has no extended failure log.", r.CaseNo)
		return nil
	}
	// ignore output of browser package
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
	err := browser.OpenFile(r.FailureLog)
	return errors.WithStack(err)
}
