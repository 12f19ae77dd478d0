// Package config holds the configuration of a report run. A Config is
// built once, from defaults, the project config file, environment
// variables and flags, and passed by value to the components.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/uriel-frankel/android-code-coverage/internal/errs"
	"github.com/uriel-frankel/android-code-coverage/pkg/discovery"
	"github.com/uriel-frankel/android-code-coverage/pkg/log"
	"github.com/uriel-frankel/android-code-coverage/util/fileutil"
	"github.com/uriel-frankel/android-code-coverage/util/stringutil"
)

const (
	ProjectConfigFile = "coverage-report.yaml"
	EnvPrefix         = "COVERAGE_REPORT"

	DefaultExecFile = "coverage.exec"
)

const (
	FormatHTML = "html"
	FormatXML  = "xml"
	FormatCSV  = "csv"
	FormatLCOV = "lcov"
)

var ValidFormats = []string{FormatHTML, FormatXML, FormatCSV, FormatLCOV}

type Config struct {
	ProjectDir string `mapstructure:"project-dir"`
	// Title of the report, the base name of the project dir by default
	Title            string   `mapstructure:"title"`
	ExecFiles        []string `mapstructure:"filename"`
	ClassesDir       string   `mapstructure:"classes-dir"`
	SourceDir        string   `mapstructure:"source-dir"`
	ReportDir        string   `mapstructure:"report-dir"`
	XMLReport        string   `mapstructure:"xml-report"`
	CSVReport        string   `mapstructure:"csv-report"`
	LCOVReport       string   `mapstructure:"lcov-report"`
	Formats          []string `mapstructure:"format"`
	Excludes         []string `mapstructure:"exclude"`
	SourceEncoding   string   `mapstructure:"encoding"`
	TabWidth         int      `mapstructure:"tab-width"`
	MergedExecOutput string   `mapstructure:"merged-exec"`
	Parallel         bool     `mapstructure:"parallel"`

	resolved bool
}

// Default returns the default configuration for the project dir.
func Default(projectDir string) Config {
	return Config{
		ProjectDir:     projectDir,
		ExecFiles:      []string{DefaultExecFile},
		ClassesDir:     "/app/build/intermediates/classes",
		SourceDir:      "/app/src/main/java",
		ReportDir:      "../coveragereport",
		XMLReport:      "report.xml",
		CSVReport:      "report.csv",
		LCOVReport:     "coverage.info",
		Formats:        []string{FormatHTML, FormatXML},
		Excludes:       append([]string(nil), discovery.DefaultExcludes...),
		SourceEncoding: "utf-8",
		TabWidth:       4,
		Parallel:       true,
	}
}

// SetDefaults registers the defaults and the environment variables
// with viper.
func SetDefaults() {
	d := Default("")
	viper.SetDefault("project-dir", "")
	viper.SetDefault("title", "")
	viper.SetDefault("filename", d.ExecFiles)
	viper.SetDefault("classes-dir", d.ClassesDir)
	viper.SetDefault("source-dir", d.SourceDir)
	viper.SetDefault("report-dir", d.ReportDir)
	viper.SetDefault("xml-report", d.XMLReport)
	viper.SetDefault("csv-report", d.CSVReport)
	viper.SetDefault("lcov-report", d.LCOVReport)
	viper.SetDefault("format", d.Formats)
	viper.SetDefault("exclude", d.Excludes)
	viper.SetDefault("encoding", d.SourceEncoding)
	viper.SetDefault("tab-width", d.TabWidth)
	viper.SetDefault("merged-exec", "")
	viper.SetDefault("parallel", d.Parallel)

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// ReadProjectConfig merges the project config file into viper. The
// file is searched in the project dir and its parents, so that all
// modules of a repository can share one.
func ReadProjectConfig(projectDir string) error {
	absDir, err := filepath.Abs(projectDir)
	if err != nil {
		return errors.WithStack(err)
	}
	path, err := fileutil.SearchFileBackwards(absDir, ProjectConfigFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	viper.SetConfigFile(path)
	err = viper.MergeInConfig()
	if err != nil {
		return errs.WrapConfigurationError(ProjectConfigFile, err)
	}
	log.Debugf("Read config file %s", path)
	return nil
}

// FromViper creates the resolved configuration from the values in
// viper.
func FromViper() (Config, error) {
	var c Config
	err := viper.Unmarshal(&c)
	if err != nil {
		return Config{}, errs.WrapConfigurationError("options", err)
	}
	return c.Resolve()
}

// Resolve validates the configuration, fills in the derived defaults
// and makes all paths absolute. Relative paths and paths outside of
// the project dir are relative to the project dir. Resolving a resolved
// configuration only validates it again.
func (c Config) Resolve() (Config, error) {
	if c.resolved {
		return c, c.validate()
	}
	if c.ProjectDir == "" {
		return Config{}, errs.NewConfigurationError("project-dir", "the project directory is required")
	}
	projectDir, err := filepath.Abs(c.ProjectDir)
	if err != nil {
		return Config{}, errs.WrapConfigurationError("project-dir", err)
	}
	c.ProjectDir = projectDir

	if c.Title == "" {
		c.Title = filepath.Base(projectDir)
	}

	var execFiles []string
	for _, f := range c.ExecFiles {
		if f = strings.TrimSpace(f); f != "" {
			execFiles = append(execFiles, c.resolvePath(f))
		}
	}
	if len(execFiles) == 0 {
		execFiles = []string{c.resolvePath(DefaultExecFile)}
	}
	c.ExecFiles = execFiles

	c.ClassesDir = c.resolvePath(c.ClassesDir)
	c.SourceDir = c.resolvePath(c.SourceDir)
	c.ReportDir = c.resolvePath(c.ReportDir)
	c.XMLReport = c.resolvePath(c.XMLReport)
	c.CSVReport = c.resolvePath(c.CSVReport)
	c.LCOVReport = c.resolvePath(c.LCOVReport)
	if c.MergedExecOutput != "" {
		c.MergedExecOutput = c.resolvePath(c.MergedExecOutput)
	}

	var formats []string
	for _, f := range c.Formats {
		formats = append(formats, strings.ToLower(strings.TrimSpace(f)))
	}
	c.Formats = stringutil.Unique(formats)
	c.Excludes = append([]string(nil), c.Excludes...)
	c.resolved = true

	return c, c.validate()
}

func (c Config) resolvePath(p string) string {
	if filepath.IsAbs(p) {
		if below, err := fileutil.IsBelow(filepath.Clean(p), c.ProjectDir); err == nil && below {
			return filepath.Clean(p)
		}
	}
	return filepath.Join(c.ProjectDir, p)
}

func (c Config) validate() error {
	info, err := os.Stat(c.ProjectDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return errs.NewConfigurationError("project-dir", "%s does not exist", c.ProjectDir)
		}
		return errs.WrapConfigurationError("project-dir", err)
	}
	if !info.IsDir() {
		return errs.NewConfigurationError("project-dir", "%s is not a directory", c.ProjectDir)
	}

	if len(c.Formats) == 0 {
		return errs.NewConfigurationError("format", "at least one report format is required")
	}
	for _, f := range c.Formats {
		if !stringutil.Contains(ValidFormats, f) {
			return errs.NewConfigurationError("format", "unknown report format %q, must be one of %s", f, strings.Join(ValidFormats, ", "))
		}
	}

	if _, err := htmlindex.Get(c.SourceEncoding); err != nil {
		return errs.NewConfigurationError("encoding", "unsupported source encoding %q", c.SourceEncoding)
	}
	if c.TabWidth <= 0 {
		return errs.NewConfigurationError("tab-width", "tab width must be positive, got %d", c.TabWidth)
	}

	_, err = discovery.NewMatcher(c.Excludes)
	return err
}

// HasFormat returns true if the report format is enabled.
func (c Config) HasFormat(format string) bool {
	return stringutil.Contains(c.Formats, format)
}
