package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/uriel-frankel/android-code-coverage/internal/cmd/report"
	"github.com/uriel-frankel/android-code-coverage/internal/cmd/summary"
	"github.com/uriel-frankel/android-code-coverage/internal/cmdutils"
	"github.com/uriel-frankel/android-code-coverage/pkg/log"
)

func main() {
	os.Exit(execute(newRootCmd(), os.Args[1:]))
}

func newRootCmd() *cobra.Command {
	rootCmd := report.New()
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return cmdutils.WrapIncorrectUsageError(err)
	})

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Show more verbose output, including stack traces.")
	cmdutils.ViperMustBindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(summary.New())
	return rootCmd
}

// execute runs the command and returns the exit code. Warnings of a
// run don't change the exit code, every error does.
func execute(cmd *cobra.Command, args []string) int {
	cmd.SetArgs(args)
	c, err := cmd.ExecuteC()
	if err == nil {
		return 0
	}

	var usageErr *cmdutils.IncorrectUsageError
	if errors.As(err, &usageErr) {
		log.Error(err)
		_, _ = c.ErrOrStderr().Write([]byte("\n" + c.UsageString()))
		return 1
	}

	var silentErr *cmdutils.SilentError
	if !errors.As(err, &silentErr) {
		log.Error(err)
	}
	return 1
}
