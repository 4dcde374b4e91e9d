package completion

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gpuopen-tools/rgd-testkit/internal/config"
	"github.com/gpuopen-tools/rgd-testkit/pkg/caserecord"
)

// ValidCaseRecords can be used as a cobra ValidArgsFunction that
// completes the case numbers recorded for the inspected run.
func ValidCaseRecords(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	outputDir, err := cmd.Flags().GetString("output-dir")
	if err != nil {
		cobra.CompErrorln(err.Error())
		return nil, cobra.ShellCompDirectiveError
	}
	kitDir, err := cmd.Flags().GetString("kit-dir")
	if err != nil {
		cobra.CompErrorln(err.Error())
		return nil, cobra.ShellCompDirectiveError
	}

	runDir, err := config.ResolveRunDir(outputDir, kitDir)
	if err != nil {
		cobra.CompErrorln(err.Error())
		return nil, cobra.ShellCompDirectiveError
	}
	if runDir == "" {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	records, err := caserecord.ListRecords(runDir)
	if err != nil {
		cobra.CompErrorln(err.Error())
		return nil, cobra.ShellCompDirectiveError
	}
	var res []string
	for _, r := range records {
		res = append(res, strconv.Itoa(r.CaseNo))
	}
	return res, cobra.ShellCompDirectiveNoFileComp
}
