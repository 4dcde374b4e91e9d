package cmdutils

import (
	"bytes"
	"io"
	"testing"

	"github.com/spf13/cobra"
)

// ExecuteCommand runs the command with the given args and returns what
// it printed to its out and err streams.
func ExecuteCommand(t *testing.T, cmd *cobra.Command, in io.Reader, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(in)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
