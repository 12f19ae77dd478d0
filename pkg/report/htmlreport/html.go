// Package htmlreport writes the multi-file HTML report: an index of
// the packages, a page per package, class and source file, and a page
// with the sessions the execution data was recorded in.
package htmlreport

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"path"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/uriel-frankel/android-code-coverage/pkg/coverage"
	"github.com/uriel-frankel/android-code-coverage/pkg/execdata"
	"github.com/uriel-frankel/android-code-coverage/pkg/log"
	"github.com/uriel-frankel/android-code-coverage/pkg/report"
)

const (
	Name = "html"

	IndexFile    = "index.html"
	SessionsFile = "jacoco-sessions.html"
	cssFile      = "jacoco-resources/report.css"
)

//go:embed resources
var resources embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"percent":    percent,
	"missedOf":   missedOf,
	"formatTime": func(t time.Time) string { return t.Format("Jan 2, 2006, 3:04:05 PM") },
}).ParseFS(resources, "resources/*.tmpl"))

// Formatter writes the report to a directory.
type Formatter struct {
	out      *report.MultiOutput
	sessions []execdata.SessionInfo
	contents []*execdata.ExecutionData
	now      func() time.Time
}

func New(dir string) *Formatter {
	return &Formatter{out: report.NewMultiOutput(dir), now: time.Now}
}

// Dir returns the report directory.
func (f *Formatter) Dir() string {
	return f.out.Dir()
}

type link struct {
	Name string
	Link string
}

type page struct {
	Title       string
	Root        string
	Breadcrumbs []link
	Created     string
}

type row struct {
	Name     string
	Link     string
	Counters coverage.Counters
}

type table struct {
	Rows  []row
	Total coverage.Counters
}

type coveragePage struct {
	page
	Table table
	Links []link
}

type sourceLine struct {
	Nr     int
	Text   string
	Status string
	Title  string
}

type sourcePage struct {
	page
	SourcePath string
	Lines      []sourceLine
}

type sessionsPage struct {
	page
	Sessions []execdata.SessionInfo
	Contents []*execdata.ExecutionData
	classes  map[string]bool
}

// Known returns true if the class with the given name is part of the
// report.
func (p *sessionsPage) Known(name string) bool {
	return p.classes[name]
}

func (f *Formatter) VisitInfo(sessions []execdata.SessionInfo, contents []*execdata.ExecutionData) error {
	f.sessions = sessions
	f.contents = contents
	return nil
}

func (f *Formatter) VisitBundle(bundle *coverage.Bundle, locator report.SourceLocator) error {
	created := f.now().Format(time.RFC1123)
	root := page{Title: bundle.Name, Created: created}

	index := coveragePage{page: root}
	index.Table.Total = bundle.Counters
	index.Links = []link{{Name: "Sessions", Link: SessionsFile}}
	for _, p := range bundle.Packages {
		index.Table.Rows = append(index.Table.Rows, row{Name: displayPackageName(p.Name), Link: packageDir(p.Name) + "/" + IndexFile, Counters: p.Counters})
		err := f.writePackage(p, root, locator)
		if err != nil {
			return err
		}
	}
	err := f.write(IndexFile, "coverage", index)
	if err != nil {
		return err
	}

	sessions := &sessionsPage{
		page:     page{Title: "Sessions", Created: created, Breadcrumbs: []link{{Name: bundle.Name, Link: IndexFile}}},
		Sessions: f.sessions,
		Contents: f.contents,
		classes:  map[string]bool{},
	}
	for _, c := range bundle.Classes() {
		sessions.classes[c.Name] = true
	}
	err = f.write(SessionsFile, "sessions", sessions)
	if err != nil {
		return err
	}
	return f.copyResource(cssFile)
}

func (f *Formatter) writePackage(p *coverage.Package, root page, locator report.SourceLocator) error {
	dir := packageDir(p.Name)
	name := displayPackageName(p.Name)
	parent := []link{{Name: root.Title, Link: "../" + IndexFile}}
	pkgPage := page{Title: name, Root: "../", Breadcrumbs: parent, Created: root.Created}
	crumbs := append(parent, link{Name: name, Link: IndexFile})

	classes := coveragePage{page: pkgPage, Table: table{Total: p.Counters}}
	classes.Links = []link{{Name: "Source Files", Link: "index.source.html"}}
	for _, c := range p.Classes {
		classes.Table.Rows = append(classes.Table.Rows, row{Name: c.SimpleName(), Link: classFile(c), Counters: c.Counters})
		err := f.writeClass(c, page{Title: c.SimpleName(), Root: "../", Breadcrumbs: crumbs, Created: root.Created})
		if err != nil {
			return err
		}
	}
	err := f.write(dir+"/"+IndexFile, "coverage", classes)
	if err != nil {
		return err
	}

	sources := coveragePage{page: pkgPage, Table: table{Total: p.Counters}}
	sources.Links = []link{{Name: "Classes", Link: IndexFile}}
	for _, s := range p.SourceFiles {
		sources.Table.Rows = append(sources.Table.Rows, row{Name: s.Name, Link: sourceFile(s.Name), Counters: s.Counters})
		err = f.writeSource(s, page{Title: s.Name, Root: "../", Breadcrumbs: crumbs, Created: root.Created}, locator)
		if err != nil {
			return err
		}
	}
	return f.write(dir+"/index.source.html", "coverage", sources)
}

func (f *Formatter) writeClass(c *coverage.Class, pg page) error {
	methods := coveragePage{page: pg, Table: table{Total: c.Counters}}
	for _, m := range c.Methods {
		r := row{Name: methodName(c, m), Counters: m.Counters}
		if c.SourceFileName != "" && m.FirstLine() > 0 {
			r.Link = fmt.Sprintf("%s#L%d", sourceFile(c.SourceFileName), m.FirstLine())
		}
		methods.Table.Rows = append(methods.Table.Rows, r)
	}
	if c.NoMatch {
		methods.Links = append(methods.Links, link{Name: "Execution data does not match the analyzed class version"})
	}
	return f.write(packageDir(c.PackageName)+"/"+classFile(c), "coverage", methods)
}

func (f *Formatter) writeSource(s *coverage.SourceFile, pg page, locator report.SourceLocator) error {
	sp := sourcePage{page: pg, SourcePath: s.Path()}
	var text []string
	if locator != nil {
		var err error
		text, err = locator.Lookup(s.PackageName, s.Name)
		if err != nil {
			// the page is still written, without source
			log.Warnf("Failed to read source file %s: %v", s.Path(), err)
		}
	}
	if text == nil {
		log.Debugf("Source file %s not found", s.Path())
	}
	for i, t := range text {
		l := s.Line(i + 1)
		sl := sourceLine{Nr: i + 1, Text: t}
		if status := l.Status(); status != coverage.Empty {
			sl.Status = status.String()
			sl.Title = fmt.Sprintf("%d of %d probes covered", l.Instructions.Covered, l.Instructions.Total())
		}
		sp.Lines = append(sp.Lines, sl)
	}
	return f.write(packageDir(s.PackageName)+"/"+sourceFile(s.Name), "source", sp)
}

func (f *Formatter) write(rel, tmpl string, data any) error {
	w, err := f.out.Create(rel)
	if err != nil {
		return err
	}
	err = templates.ExecuteTemplate(w, tmpl, data)
	if err != nil {
		_ = w.Close()
		return errors.Wrapf(err, "failed to write %s", rel)
	}
	return errors.WithStack(w.Close())
}

func (f *Formatter) copyResource(rel string) error {
	r, err := resources.Open("resources/" + path.Base(rel))
	if err != nil {
		return errors.WithStack(err)
	}
	defer r.Close()
	w, err := f.out.Create(rel)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return errors.WithStack(err)
	}
	return errors.WithStack(w.Close())
}

func (f *Formatter) VisitEnd() error {
	return f.out.Publish()
}

func (f *Formatter) Abort() error {
	return f.out.Abort()
}

func displayPackageName(name string) string {
	if name == "" {
		return "default"
	}
	return strings.ReplaceAll(name, "/", ".")
}

// packageDir returns the directory of the package pages relative to
// the report root.
func packageDir(name string) string {
	return displayPackageName(name)
}

func classFile(c *coverage.Class) string {
	return c.SimpleName() + ".html"
}

func sourceFile(name string) string {
	return name + ".html"
}

func methodName(c *coverage.Class, m *coverage.Method) string {
	switch m.Name {
	case "<init>":
		return c.SimpleName() + "()"
	case "<clinit>":
		return "static {...}"
	}
	return m.Name + "()"
}

func percent(c coverage.Counter) string {
	if c.Total() == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%d%%", int(c.Ratio()*100))
}

func missedOf(c coverage.Counter) string {
	return fmt.Sprintf("%d of %d", c.Missed, c.Total())
}
