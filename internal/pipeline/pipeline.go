// Package pipeline generates the coverage reports of a project: it
// merges the execution data, discovers the class files, analyzes them
// and renders every configured report format from the one bundle.
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/alexflint/go-filemutex"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"golang.org/x/exp/maps"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/uriel-frankel/android-code-coverage/internal/config"
	"github.com/uriel-frankel/android-code-coverage/internal/errs"
	"github.com/uriel-frankel/android-code-coverage/pkg/analysis"
	"github.com/uriel-frankel/android-code-coverage/pkg/ci"
	"github.com/uriel-frankel/android-code-coverage/pkg/coverage"
	"github.com/uriel-frankel/android-code-coverage/pkg/discovery"
	"github.com/uriel-frankel/android-code-coverage/pkg/execdata"
	"github.com/uriel-frankel/android-code-coverage/pkg/log"
	"github.com/uriel-frankel/android-code-coverage/pkg/report"
	"github.com/uriel-frankel/android-code-coverage/pkg/report/csvreport"
	"github.com/uriel-frankel/android-code-coverage/pkg/report/htmlreport"
	"github.com/uriel-frankel/android-code-coverage/pkg/report/lcovreport"
	"github.com/uriel-frankel/android-code-coverage/pkg/report/xmlreport"
)

// Result of a successful run.
type Result struct {
	Bundle   *coverage.Bundle
	Snapshot *execdata.Snapshot
	// Reports maps the format to the path of its report
	Reports map[string]string
	// Warnings holds the non-fatal errors of discovery and analysis
	Warnings []error
	// FormatErrors maps the formats which failed to render to their
	// *errs.FatalIOError
	FormatErrors map[string]error
	// Excluded lists the class files left out by the exclusion patterns
	Excluded []string
}

type Option func(g *Generator)

// WithEngine replaces the class file engine used for the analysis.
func WithEngine(engine analysis.Engine) Option {
	return func(g *Generator) {
		g.engine = engine
	}
}

// WithSpinner forces the progress spinner on or off. By default it is
// shown if stdout is a terminal, verbose output is disabled and the run
// is not on a CI system.
func WithSpinner(enabled bool) Option {
	return func(g *Generator) {
		g.spinner = &enabled
	}
}

type Generator struct {
	cfg     config.Config
	engine  analysis.Engine
	spinner *bool
}

func New(cfg config.Config, opts ...Option) *Generator {
	g := &Generator{cfg: cfg, engine: analysis.NewClassFileEngine()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate runs the pipeline. Configuration errors are returned before
// any file is read, a failed merge before any report is written. The
// formats are rendered independently: if some of them fail, the others
// are still published and a *errs.FatalIOError for the first failed
// format is returned together with the result.
func (g *Generator) Generate(ctx context.Context) (*Result, error) {
	cfg, err := g.cfg.Resolve()
	if err != nil {
		return nil, err
	}
	matcher, err := discovery.NewMatcher(cfg.Excludes)
	if err != nil {
		return nil, err
	}
	err = discovery.CheckRoot(cfg.ClassesDir)
	if err != nil {
		return nil, err
	}
	locator, err := report.NewDirectorySourceLocator(cfg.SourceDir, cfg.SourceEncoding, cfg.TabWidth)
	if err != nil {
		return nil, errs.WrapConfigurationError("source", err)
	}

	loader := execdata.NewLoader()
	var discovered *discovery.Result
	merge := func() error {
		return loader.LoadAll(cfg.ExecFiles)
	}
	discover := func() error {
		var err error
		discovered, err = discovery.Discover(cfg.ClassesDir, matcher)
		return err
	}
	if cfg.Parallel {
		routines := errgroup.Group{}
		routines.Go(merge)
		routines.Go(discover)
		err = routines.Wait()
	} else {
		err = merge()
		if err == nil {
			err = discover()
		}
	}
	if err != nil {
		return nil, err
	}

	snapshot := loader.Freeze()
	log.Debugf("Merged %d execution data entries from %d sessions", snapshot.Store.Len(), len(snapshot.Sessions))
	if cfg.MergedExecOutput != "" {
		err = loader.Save(cfg.MergedExecOutput)
		if err != nil {
			return nil, errs.WrapFatalIOError("merge", cfg.MergedExecOutput, err)
		}
		log.Infof("Wrote merged execution data to %s", cfg.MergedExecOutput)
	}

	analyzed, err := g.analyze(ctx, cfg, snapshot, discovered.Artifacts)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Bundle:       analyzed.Bundle,
		Snapshot:     snapshot,
		Reports:      map[string]string{},
		Warnings:     append(append([]error(nil), discovered.Warnings...), analyzed.Warnings...),
		FormatErrors: map[string]error{},
		Excluded:     discovered.Excluded,
	}

	err = g.render(cfg, res, locator)
	if err != nil {
		return nil, err
	}
	if len(res.FormatErrors) > 0 {
		formats := maps.Keys(res.FormatErrors)
		sort.Strings(formats)
		return res, res.FormatErrors[formats[0]]
	}
	return res, nil
}

func (g *Generator) analyze(ctx context.Context, cfg config.Config, snapshot *execdata.Snapshot, artifacts []string) (*analysis.Result, error) {
	stop := g.startSpinner(log.AnalysisInProgressMsg, log.AnalysisInProgressSuccessMsg, log.AnalysisInProgressErrorMsg)
	analyzer := analysis.NewAnalyzer(g.engine, snapshot.Store, cfg.Title)
	res, err := analyzer.AnalyzeAll(ctx, artifacts)
	stop(err == nil)
	return res, err
}

// startSpinner shows a progress spinner and returns the function which
// stops it.
func (g *Generator) startSpinner(msg, successMsg, errorMsg string) func(success bool) {
	show := term.IsTerminal(int(os.Stdout.Fd())) && !viper.GetBool("verbose") && !ci.IsCI()
	if g.spinner != nil {
		show = *g.spinner
	}
	if !show {
		return func(bool) {}
	}
	log.CreateCurrentProgressSpinner(nil, msg)
	return func(success bool) {
		if success {
			log.StopCurrentProgressSpinner(log.GetPtermSuccessStyle(), successMsg)
		} else {
			log.StopCurrentProgressSpinner(log.GetPtermErrorStyle(), errorMsg)
		}
	}
}

type output struct {
	format    string
	path      string
	formatter report.Formatter
}

func outputs(cfg config.Config) []output {
	var outs []output
	for _, format := range cfg.Formats {
		switch format {
		case config.FormatHTML:
			outs = append(outs, output{format, filepath.Join(cfg.ReportDir, htmlreport.IndexFile), htmlreport.New(cfg.ReportDir)})
		case config.FormatXML:
			outs = append(outs, output{format, cfg.XMLReport, xmlreport.New(cfg.XMLReport).Indent()})
		case config.FormatCSV:
			outs = append(outs, output{format, cfg.CSVReport, csvreport.New(cfg.CSVReport)})
		case config.FormatLCOV:
			outs = append(outs, output{format, cfg.LCOVReport, lcovreport.New(cfg.LCOVReport, cfg.SourceDir)})
		}
	}
	return outs
}

// render writes all formats while holding a lock next to the report
// dir, so that concurrent runs for the same project don't mix their
// reports.
func (g *Generator) render(cfg config.Config, res *Result, locator report.SourceLocator) error {
	lockFile := filepath.Clean(cfg.ReportDir) + ".lock"
	err := os.MkdirAll(filepath.Dir(lockFile), 0o755)
	if err != nil {
		return errs.WrapFatalIOError("render", lockFile, errors.WithStack(err))
	}
	mutex, err := filemutex.New(lockFile)
	if err != nil {
		// filemutex.New returns errors from syscall.Open without the
		// path, so we wrap it in the os.PathError same as os.Open does.
		return errs.WrapFatalIOError("render", lockFile, errors.WithStack(&os.PathError{Op: "open", Path: lockFile, Err: err}))
	}
	defer mutex.Close()
	err = mutex.Lock()
	if err != nil {
		return errs.WrapFatalIOError("render", lockFile, errors.WithStack(err))
	}
	defer func() {
		_ = mutex.Unlock()
		_ = os.Remove(lockFile)
	}()

	var mu sync.Mutex
	renderOne := func(out output) {
		err := report.Render(out.formatter, res.Snapshot, res.Bundle, locator)

		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			err = errs.WrapFatalIOError("render:"+out.format, out.path, err)
			log.Error(err)
			res.FormatErrors[out.format] = err
			return
		}
		res.Reports[out.format] = out.path
		log.Debugf("Rendered %s report to %s", out.format, out.path)
	}

	stop := g.startSpinner(log.RenderInProgressMsg, log.RenderInProgressSuccessMsg, log.RenderInProgressErrorMsg)
	defer func() { stop(len(res.FormatErrors) == 0) }()

	outs := outputs(cfg)
	if !cfg.Parallel {
		for _, out := range outs {
			renderOne(out)
		}
		return nil
	}
	routines := errgroup.Group{}
	for _, out := range outs {
		out := out
		routines.Go(func() error {
			renderOne(out)
			return nil
		})
	}
	return routines.Wait()
}
