package cmdutils

import (
	"bytes"
	"io"
	"testing"

	"github.com/spf13/cobra"
)

// ExecuteCommand runs cmd with the given args and returns what it
// wrote to stdout.
func ExecuteCommand(t *testing.T, cmd *cobra.Command, in io.Reader, args ...string) (string, error) {
	t.Helper()

	output := bytes.Buffer{}
	cmd.SetOut(&output)
	cmd.SetErr(io.Discard)
	cmd.SetIn(in)
	cmd.SetArgs(args)
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	err := cmd.Execute()
	return output.String(), err
}
