package completion

import (
	"github.com/spf13/cobra"

	"github.com/gpuopen-tools/rgd-testkit/internal/config"
	"github.com/gpuopen-tools/rgd-testkit/internal/kit"
)

// ValidRunDirs can be used as a cobra ValidArgsFunction that completes
// the run output directories found inside the kit.
func ValidRunDirs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	kitDir, err := cmd.Flags().GetString("kit-dir")
	if err != nil {
		cobra.CompErrorln(err.Error())
		return nil, cobra.ShellCompDirectiveError
	}

	finder, err := kit.NewFinder(kitDir)
	if err != nil {
		cobra.CompErrorln(err.Error())
		return nil, cobra.ShellCompDirectiveError
	}

	runDirs, err := config.FindRunDirs(finder.RootDir())
	if err != nil {
		cobra.CompErrorln(err.Error())
		return nil, cobra.ShellCompDirectiveError
	}
	return runDirs, cobra.ShellCompDirectiveDefault
}
