package completion

import (
	"path/filepath"

	"github.com/mattn/go-zglob"
	"github.com/spf13/cobra"

	"github.com/gpuopen-tools/rgd-testkit/internal/kit"
)

// ValidTestDescriptors can be used as a cobra completion function for
// the --test flag. It offers the descriptor files bundled with the
// kit; the flag accepts arbitrary paths, so file completion stays
// enabled.
func ValidTestDescriptors(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
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

	matches, err := zglob.Glob(filepath.Join(finder.DescriptorDir(), "*.json"))
	if err != nil {
		// A kit without bundled descriptors falls back to plain file
		// completion.
		return nil, cobra.ShellCompDirectiveDefault
	}
	return matches, cobra.ShellCompDirectiveDefault
}
