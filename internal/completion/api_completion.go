package completion

import (
	"github.com/spf13/cobra"

	"github.com/gpuopen-tools/rgd-testkit/internal/config"
)

// ValidAPIs can be used as a cobra completion function for the --api
// flag of the run command.
func ValidAPIs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return config.SupportedAPIs, cobra.ShellCompDirectiveNoFileComp
}
