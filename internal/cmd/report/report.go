package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/hokaccha/go-prettyjson"
	"github.com/pkg/browser"
	"github.com/pkg/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/exp/maps"
	"golang.org/x/term"

	"github.com/uriel-frankel/android-code-coverage/internal/cmdutils"
	"github.com/uriel-frankel/android-code-coverage/internal/config"
	"github.com/uriel-frankel/android-code-coverage/internal/coverage/summary"
	"github.com/uriel-frankel/android-code-coverage/internal/pipeline"
	"github.com/uriel-frankel/android-code-coverage/pkg/log"
	"github.com/uriel-frankel/android-code-coverage/util/fileutil"
)

type reportOptions struct {
	Open bool `mapstructure:"open"`
	JSON bool `mapstructure:"json"`

	cfg config.Config
}

type reportCmd struct {
	*cobra.Command
	opts *reportOptions
}

type jsonOutput struct {
	Reports  map[string]string        `json:"reports"`
	Warnings []string                 `json:"warnings,omitempty"`
	Summary  *summary.CoverageSummary `json:"summary"`
}

func New() *cobra.Command {
	opts := &reportOptions{}
	var bindFlags func()

	cmd := &cobra.Command{
		Use:   "coverage-report -p <project dir> [flags]",
		Short: "Generate coverage reports from JaCoCo execution data",
		Long: `This command merges the execution data files recorded on a device
or emulator, analyzes the compiled classes of the project and writes
the coverage reports.

Class files matching one of the exclude patterns are left out. By
default, these are the generated Android classes (R, BuildConfig,
Manifest), test classes and the classes of the android package.

Settings can also be made in a coverage-report.yaml in the project
directory or with environment variables prefixed with COVERAGE_REPORT_.

` + pterm.Style{pterm.Reset, pterm.Bold}.Sprint("HTML and XML") + `
    coverage-report -p .

` + pterm.Style{pterm.Reset, pterm.Bold}.Sprint("All formats from two devices") + `
    coverage-report -p . -f device1.exec,device2.exec --format html,xml,csv,lcov
`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind viper keys to flags. We can't do this in the New
			// function, because that would re-bind viper keys which
			// were bound to the flags of other commands before.
			bindFlags()
			cmdutils.ViperMustBindPFlag("open", cmd.Flags().Lookup("open"))
			cmdutils.ViperMustBindPFlag("json", cmd.Flags().Lookup("json"))
			config.SetDefaults()

			if len(args) > 0 {
				return cmdutils.WrapIncorrectUsageError(errors.Errorf("unexpected arguments: %v", args))
			}
			projectDir := viper.GetString("project-dir")
			if projectDir == "" {
				return cmdutils.WrapIncorrectUsageError(errors.New(`Flag "project-dir" must be set`))
			}

			err := config.ReadProjectConfig(projectDir)
			if err != nil {
				return err
			}
			err = viper.Unmarshal(opts)
			if err != nil {
				return errors.WithStack(err)
			}
			opts.cfg, err = config.FromViper()
			return err
		},
		RunE: func(c *cobra.Command, args []string) error {
			cmd := reportCmd{Command: c, opts: opts}
			return cmd.run()
		},
	}

	// Note: If a flag should be configurable via coverage-report.yaml as
	// well, bind it to viper in the PreRunE function.
	bindFlags = cmdutils.AddFlags(cmd,
		cmdutils.AddProjectDirFlag,
		cmdutils.AddTitleFlag,
		cmdutils.AddExecFilesFlag,
		cmdutils.AddClassesDirFlag,
		cmdutils.AddSourceDirFlag,
		cmdutils.AddReportDirFlag,
		cmdutils.AddReportFileFlags,
		cmdutils.AddFormatFlag,
		cmdutils.AddExcludeFlag,
		cmdutils.AddEncodingFlag,
		cmdutils.AddTabWidthFlag,
		cmdutils.AddMergedExecFlag,
		cmdutils.AddParallelFlag,
	)
	cmd.Flags().Bool("open", false, "Open the HTML report in the browser.")
	cmd.Flags().Bool("json", false, "Print the coverage summary as JSON.")

	return cmd
}

func (c *reportCmd) run() error {
	res, err := pipeline.New(c.opts.cfg).Generate(c.Context())
	if res == nil {
		return err
	}

	for _, w := range res.Warnings {
		log.Debug(w)
	}
	if len(res.Warnings) > 0 {
		log.Warnf("Report generated with %d warnings, see the messages above", len(res.Warnings))
	}

	formats := maps.Keys(res.Reports)
	sort.Strings(formats)
	for _, format := range formats {
		log.Successf("Created %s coverage report: %s", format, fileutil.PrettifyPath(res.Reports[format]))
	}

	s := summary.FromBundle(res.Bundle)
	if c.opts.JSON {
		printErr := c.printJSON(res, s)
		if printErr != nil {
			return printErr
		}
	} else {
		s.PrintTable(c.OutOrStdout())
	}

	if index, ok := res.Reports[config.FormatHTML]; ok {
		handleErr := c.handleHTMLReport(index)
		if handleErr != nil {
			return handleErr
		}
	}

	// a format which failed to render ends the run with an error, after
	// the others were reported
	return err
}

func (c *reportCmd) printJSON(res *pipeline.Result, s *summary.CoverageSummary) error {
	out := jsonOutput{Reports: res.Reports, Summary: s}
	for _, w := range res.Warnings {
		out.Warnings = append(out.Warnings, w.Error())
	}

	formatter := prettyjson.NewFormatter()
	formatter.DisabledColor = !isTerminal(c.OutOrStdout())
	b, err := formatter.Marshal(out)
	if err != nil {
		return errors.WithStack(err)
	}
	_, err = fmt.Fprintln(c.OutOrStdout(), string(b))
	return errors.WithStack(err)
}

func (c *reportCmd) handleHTMLReport(index string) error {
	if c.opts.Open {
		// try to open the report in the browser ...
		err := c.openReport(index)
		if err == nil {
			return nil
		}
		//... if this fails print the file URI
		log.Debug(err)
	}
	return c.printReportURI(index)
}

func (c *reportCmd) openReport(reportPath string) error {
	// ignore output of browser package
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
	err := browser.OpenFile(reportPath)
	return errors.WithStack(err)
}

func (c *reportCmd) printReportURI(reportPath string) error {
	absReportPath, err := filepath.Abs(reportPath)
	if err != nil {
		return errors.WithStack(err)
	}
	reportURI := fmt.Sprintf("file://%s", filepath.ToSlash(absReportPath))
	log.Infof("To view the report, open this URI in a browser:\n\n   %s\n\n", reportURI)
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
