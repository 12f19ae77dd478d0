package cmdutils

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/uriel-frankel/android-code-coverage/internal/config"
)

func ViperMustBindPFlag(key string, flag *pflag.Flag) {
	err := viper.BindPFlag(key, flag)
	if err != nil {
		panic(err)
	}
}

// AddFlags executes the specified Add*Flag functions and returns a
// function which binds all those flags to viper
func AddFlags(cmd *cobra.Command, funcs ...func(cmd *cobra.Command) func()) (bindFlags func()) { // nolint:nonamedreturns
	var bindFlagFuncs []func()
	for _, f := range funcs {
		bindFlagFunc := f(cmd)
		bindFlagFuncs = append(bindFlagFuncs, bindFlagFunc)
	}
	return func() {
		for _, f := range bindFlagFuncs {
			f()
		}
	}
}

func bind(cmd *cobra.Command, name string) func() {
	return func() {
		ViperMustBindPFlag(name, cmd.Flags().Lookup(name))
	}
}

func AddProjectDirFlag(cmd *cobra.Command) func() {
	cmd.Flags().StringP("project-dir", "p", "",
		"The project `directory`. All other paths are relative to it.")
	return bind(cmd, "project-dir")
}

func AddTitleFlag(cmd *cobra.Command) func() {
	cmd.Flags().String("title", "",
		"The `title` of the report.\n"+
			"By default, the name of the project directory is used.")
	return bind(cmd, "title")
}

func AddExecFilesFlag(cmd *cobra.Command) func() {
	cmd.Flags().StringSliceP("filename", "f", []string{config.DefaultExecFile},
		"Comma separated list of the execution data `files` to merge.")
	return bind(cmd, "filename")
}

func AddClassesDirFlag(cmd *cobra.Command) func() {
	cmd.Flags().StringP("classes-dir", "c", config.Default("").ClassesDir,
		"The `directory` containing the compiled classes.")
	return bind(cmd, "classes-dir")
}

func AddSourceDirFlag(cmd *cobra.Command) func() {
	cmd.Flags().StringP("source-dir", "s", config.Default("").SourceDir,
		"The `directory` containing the source files.")
	return bind(cmd, "source-dir")
}

func AddReportDirFlag(cmd *cobra.Command) func() {
	cmd.Flags().StringP("report-dir", "r", config.Default("").ReportDir,
		"The output `directory` of the HTML report.")
	return bind(cmd, "report-dir")
}

func AddReportFileFlags(cmd *cobra.Command) func() {
	d := config.Default("")
	cmd.Flags().String("xml-report", d.XMLReport, "Output `path` of the XML report.")
	cmd.Flags().String("csv-report", d.CSVReport, "Output `path` of the CSV report.")
	cmd.Flags().String("lcov-report", d.LCOVReport, "Output `path` of the LCOV trace file.")
	return func() {
		for _, name := range []string{"xml-report", "csv-report", "lcov-report"} {
			ViperMustBindPFlag(name, cmd.Flags().Lookup(name))
		}
	}
}

func AddFormatFlag(cmd *cobra.Command) func() {
	cmd.Flags().StringSlice("format", config.Default("").Formats,
		"Comma separated list of report formats ("+strings.Join(config.ValidFormats, "/")+").")
	return bind(cmd, "format")
}

func AddExcludeFlag(cmd *cobra.Command) func() {
	cmd.Flags().StringSlice("exclude", config.Default("").Excludes,
		"Glob `patterns` of class files which are left out of the report.\n"+
			"Patterns are matched against the path relative to the classes directory.")
	return bind(cmd, "exclude")
}

func AddEncodingFlag(cmd *cobra.Command) func() {
	cmd.Flags().String("encoding", config.Default("").SourceEncoding,
		"The `encoding` of the source files.")
	return bind(cmd, "encoding")
}

func AddTabWidthFlag(cmd *cobra.Command) func() {
	cmd.Flags().Int("tab-width", config.Default("").TabWidth,
		"The number of `columns` a tab is expanded to in the HTML source pages.")
	return bind(cmd, "tab-width")
}

func AddMergedExecFlag(cmd *cobra.Command) func() {
	cmd.Flags().String("merged-exec", "",
		"Write the merged execution data to this `path`.")
	return bind(cmd, "merged-exec")
}

func AddParallelFlag(cmd *cobra.Command) func() {
	cmd.Flags().Bool("parallel", config.Default("").Parallel,
		"Merge the execution data while the classes directory is scanned,\n"+
			"and render the report formats concurrently.")
	return bind(cmd, "parallel")
}
