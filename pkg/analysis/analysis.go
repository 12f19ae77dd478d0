// Package analysis runs the analysis engine over the discovered
// artifacts and builds the coverage bundle of a project from the
// results.
package analysis

import (
	"context"
	"os"

	"github.com/pkg/errors"

	"github.com/uriel-frankel/android-code-coverage/internal/errs"
	"github.com/uriel-frankel/android-code-coverage/pkg/coverage"
	"github.com/uriel-frankel/android-code-coverage/pkg/execdata"
	"github.com/uriel-frankel/android-code-coverage/pkg/log"
)

// Result of an analysis run. Warnings holds an *errs.AnalysisError for
// every artifact which was left out of the bundle.
type Result struct {
	Bundle   *coverage.Bundle
	Warnings []error
	// NoMatch lists the classes for which only execution data of a
	// different class version exists.
	NoMatch []string
}

type Analyzer struct {
	engine Engine
	store  *execdata.Store
	title  string
}

// NewAnalyzer creates an analyzer for the frozen execution data. The
// bundle it builds is named title.
func NewAnalyzer(engine Engine, store *execdata.Store, title string) *Analyzer {
	return &Analyzer{engine: engine, store: store, title: title}
}

// AnalyzeAll analyzes the artifacts in the given order. Artifacts which
// fail are recorded as warnings. Only a cancelled context ends the run
// early.
func (a *Analyzer) AnalyzeAll(ctx context.Context, artifacts []string) (*Result, error) {
	builder := coverage.NewBuilder()
	res := &Result{}

	for _, artifact := range artifacts {
		if err := ctx.Err(); err != nil {
			return nil, errors.WithStack(err)
		}

		classes, err := a.analyze(artifact)
		if err == nil {
			err = checkClasses(builder, classes)
		}
		if err != nil {
			err = errs.WrapAnalysisError(artifact, err)
			log.Warn(err.Error())
			res.Warnings = append(res.Warnings, err)
			continue
		}

		for _, c := range classes {
			// checked above
			_ = builder.AddClass(c)
			if c.NoMatch {
				log.Warnf("Execution data for class %s does not match", c.Name)
				res.NoMatch = append(res.NoMatch, c.Name)
			}
		}
	}

	res.Bundle = builder.Bundle(a.title)
	log.Debugf("Analyzed %d classes in %d artifacts", builder.Len(), len(artifacts))
	return res, nil
}

// checkClasses makes sure all classes of an artifact can be added, so
// that an artifact is either fully part of the bundle or not at all.
func checkClasses(builder *coverage.Builder, classes []*coverage.Class) error {
	for _, c := range classes {
		if err := builder.Check(c); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) analyze(artifact string) ([]*coverage.Class, error) {
	f, err := os.Open(artifact)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	return a.engine.Analyze(a.store, artifact, f)
}
