// Package lcovreport writes an LCOV tracefile with one record per
// source file.
package lcovreport

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/uriel-frankel/android-code-coverage/pkg/coverage"
	"github.com/uriel-frankel/android-code-coverage/pkg/execdata"
	"github.com/uriel-frankel/android-code-coverage/pkg/report"
)

const Name = "lcov"

type Formatter struct {
	out *report.SingleOutput
	// sourceDir is prepended to the source file paths of the records
	sourceDir string
}

func New(path, sourceDir string) *Formatter {
	return &Formatter{out: report.NewSingleOutput(path), sourceDir: sourceDir}
}

func (f *Formatter) Path() string {
	return f.out.Path()
}

func (f *Formatter) VisitInfo([]execdata.SessionInfo, []*execdata.ExecutionData) error {
	return nil
}

func (f *Formatter) VisitBundle(bundle *coverage.Bundle, _ report.SourceLocator) error {
	out, err := f.out.Open()
	if err != nil {
		return err
	}
	w := bufio.NewWriter(out)
	for _, p := range bundle.Packages {
		for _, s := range p.SourceFiles {
			var classes []*coverage.Class
			for _, c := range p.Classes {
				if c.SourceFileName == s.Name {
					classes = append(classes, c)
				}
			}
			f.writeRecord(w, bundle.Name, s.Path(), &s.SourceNode, classes)
		}
		// classes without source file get a record of their own, so the
		// totals match the other formats
		for _, c := range p.Classes {
			if c.SourceFileName == "" {
				f.writeRecord(w, bundle.Name, c.Name+".class", &c.SourceNode, []*coverage.Class{c})
			}
		}
	}
	return errors.WithStack(w.Flush())
}

func (f *Formatter) writeRecord(w *bufio.Writer, testName, path string, node *coverage.SourceNode, classes []*coverage.Class) {
	if f.sourceDir != "" {
		path = strings.TrimSuffix(f.sourceDir, "/") + "/" + path
	}
	fmt.Fprintf(w, "TN:%s\n", testName)
	fmt.Fprintf(w, "SF:%s\n", path)

	found, hit := 0, 0
	for _, c := range classes {
		for _, m := range c.Methods {
			name := functionName(c, m)
			fmt.Fprintf(w, "FN:%d,%s\n", m.FirstLine(), name)
			hits := 0
			if m.Counters.Method.Covered > 0 {
				hits = 1
				hit++
			}
			fmt.Fprintf(w, "FNDA:%d,%s\n", hits, name)
			found++
		}
	}
	fmt.Fprintf(w, "FNF:%d\nFNH:%d\n", found, hit)

	for _, l := range node.Lines() {
		fmt.Fprintf(w, "DA:%d,%d\n", l.Nr, l.Instructions.Covered)
	}
	fmt.Fprintf(w, "LF:%d\nLH:%d\n", node.Counters.Line.Total(), node.Counters.Line.Covered)
	if node.Counters.Branch.Total() > 0 {
		fmt.Fprintf(w, "BRF:%d\nBRH:%d\n", node.Counters.Branch.Total(), node.Counters.Branch.Covered)
	}
	fmt.Fprintln(w, "end_of_record")
}

func functionName(c *coverage.Class, m *coverage.Method) string {
	return c.SimpleName() + "." + m.Name + m.Desc
}

func (f *Formatter) VisitEnd() error {
	return f.out.Publish()
}

func (f *Formatter) Abort() error {
	return f.out.Abort()
}
