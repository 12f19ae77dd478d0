// Package csvreport writes the JaCoCo CSV report with one row per
// class.
package csvreport

import (
	"encoding/csv"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/uriel-frankel/android-code-coverage/pkg/coverage"
	"github.com/uriel-frankel/android-code-coverage/pkg/execdata"
	"github.com/uriel-frankel/android-code-coverage/pkg/report"
)

const Name = "csv"

var header = []string{
	"GROUP", "PACKAGE", "CLASS",
	"INSTRUCTION_MISSED", "INSTRUCTION_COVERED",
	"BRANCH_MISSED", "BRANCH_COVERED",
	"LINE_MISSED", "LINE_COVERED",
	"COMPLEXITY_MISSED", "COMPLEXITY_COVERED",
	"METHOD_MISSED", "METHOD_COVERED",
}

type Formatter struct {
	out *report.SingleOutput
}

func New(path string) *Formatter {
	return &Formatter{out: report.NewSingleOutput(path)}
}

func (f *Formatter) Path() string {
	return f.out.Path()
}

func (f *Formatter) VisitInfo([]execdata.SessionInfo, []*execdata.ExecutionData) error {
	return nil
}

func (f *Formatter) VisitBundle(bundle *coverage.Bundle, _ report.SourceLocator) error {
	w, err := f.out.Open()
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	err = cw.Write(header)
	if err != nil {
		return errors.WithStack(err)
	}
	for _, p := range bundle.Packages {
		for _, c := range p.Classes {
			err = cw.Write(row(bundle.Name, p, c))
			if err != nil {
				return errors.WithStack(err)
			}
		}
	}
	cw.Flush()
	return errors.WithStack(cw.Error())
}

func (f *Formatter) VisitEnd() error {
	return f.out.Publish()
}

func (f *Formatter) Abort() error {
	return f.out.Abort()
}

func row(group string, p *coverage.Package, c *coverage.Class) []string {
	r := []string{group, strings.ReplaceAll(p.Name, "/", "."), strings.ReplaceAll(c.SimpleName(), "$", ".")}
	counters := c.Counters
	// without branches every method has a complexity of one
	complexity := counters.Method
	for _, counter := range []coverage.Counter{
		counters.Instruction, counters.Branch, counters.Line, complexity, counters.Method,
	} {
		r = append(r, strconv.Itoa(counter.Missed), strconv.Itoa(counter.Covered))
	}
	return r
}
