package summary

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hokaccha/go-prettyjson"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/uriel-frankel/android-code-coverage/internal/cmdutils"
	"github.com/uriel-frankel/android-code-coverage/internal/coverage/summary"
)

type summaryOptions struct {
	json bool
}

func New() *cobra.Command {
	opts := &summaryOptions{}

	cmd := &cobra.Command{
		Use:   "summary [flags] <report file>",
		Short: "Print the coverage summary of an existing report",
		Long: `This command prints a table with the function, branch and line
coverage of every source file in a JaCoCo XML report (.xml) or an
LCOV trace file (.info, .lcov).`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				msg := fmt.Sprintf("Exactly one <report file> argument must be provided, got %d", len(args))
				return cmdutils.WrapIncorrectUsageError(errors.New(msg))
			}
			if parserFor(args[0]) == nil {
				msg := fmt.Sprintf("Unsupported report file %s, must be .xml, .info or .lcov", args[0])
				return cmdutils.WrapIncorrectUsageError(errors.New(msg))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0], opts)
		},
	}
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print the summary as JSON.")

	return cmd
}

func parserFor(path string) func(io.Reader) *summary.CoverageSummary {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return summary.ParseJacocoXML
	case ".info", ".lcov":
		return summary.ParseLcov
	}
	return nil
}

func run(cmd *cobra.Command, path string, opts *summaryOptions) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()

	s := parserFor(path)(f)
	if !opts.json {
		s.PrintTable(cmd.OutOrStdout())
		return nil
	}

	formatter := prettyjson.NewFormatter()
	formatter.DisabledColor = true
	b, err := formatter.Marshal(s)
	if err != nil {
		return errors.WithStack(err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return errors.WithStack(err)
}
