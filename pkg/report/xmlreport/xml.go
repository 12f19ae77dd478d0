// Package xmlreport writes the JaCoCo XML report.
package xmlreport

import (
	"encoding/xml"
	"io"

	"github.com/pkg/errors"

	"github.com/uriel-frankel/android-code-coverage/pkg/coverage"
	"github.com/uriel-frankel/android-code-coverage/pkg/execdata"
	"github.com/uriel-frankel/android-code-coverage/pkg/report"
)

const (
	Name = "xml"

	doctype = `DOCTYPE report PUBLIC "-//JACOCO//DTD Report 1.1//EN" "report.dtd"`
)

type counterElement struct {
	XMLName xml.Name `xml:"counter"`
	Type    string   `xml:"type,attr"`
	Missed  int      `xml:"missed,attr"`
	Covered int      `xml:"covered,attr"`
}

type sessionElement struct {
	XMLName xml.Name `xml:"sessioninfo"`
	ID      string   `xml:"id,attr"`
	Start   int64    `xml:"start,attr"`
	Dump    int64    `xml:"dump,attr"`
}

type lineElement struct {
	Nr int `xml:"nr,attr"`
	Mi int `xml:"mi,attr"`
	Ci int `xml:"ci,attr"`
	Mb int `xml:"mb,attr"`
	Cb int `xml:"cb,attr"`
}

type methodElement struct {
	Name     string           `xml:"name,attr"`
	Desc     string           `xml:"desc,attr"`
	Line     int              `xml:"line,attr,omitempty"`
	Counters []counterElement `xml:"counter"`
}

type classElement struct {
	Name           string           `xml:"name,attr"`
	SourceFileName string           `xml:"sourcefilename,attr,omitempty"`
	Methods        []methodElement  `xml:"method"`
	Counters       []counterElement `xml:"counter"`
}

type sourceFileElement struct {
	Name     string           `xml:"name,attr"`
	Lines    []lineElement    `xml:"line"`
	Counters []counterElement `xml:"counter"`
}

type packageElement struct {
	XMLName     xml.Name            `xml:"package"`
	Name        string              `xml:"name,attr"`
	Classes     []classElement      `xml:"class"`
	SourceFiles []sourceFileElement `xml:"sourcefile"`
	Counters    []counterElement    `xml:"counter"`
}

// Formatter writes the report to a single file.
type Formatter struct {
	out      *report.SingleOutput
	sessions []execdata.SessionInfo
	indent   bool
}

func New(path string) *Formatter {
	return &Formatter{out: report.NewSingleOutput(path)}
}

// Indent makes the formatter write an indented document.
func (f *Formatter) Indent() *Formatter {
	f.indent = true
	return f
}

func (f *Formatter) Path() string {
	return f.out.Path()
}

func (f *Formatter) VisitInfo(sessions []execdata.SessionInfo, _ []*execdata.ExecutionData) error {
	f.sessions = sessions
	return nil
}

func (f *Formatter) VisitBundle(bundle *coverage.Bundle, _ report.SourceLocator) error {
	w, err := f.out.Open()
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	if err != nil {
		return errors.WithStack(err)
	}

	enc := xml.NewEncoder(w)
	if f.indent {
		enc.Indent("", "  ")
	}
	err = enc.EncodeToken(xml.Directive(doctype))
	if err != nil {
		return errors.WithStack(err)
	}
	start := xml.StartElement{
		Name: xml.Name{Local: "report"},
		Attr: []xml.Attr{{Name: xml.Name{Local: "name"}, Value: bundle.Name}},
	}
	err = enc.EncodeToken(start)
	if err != nil {
		return errors.WithStack(err)
	}
	for _, s := range f.sessions {
		err = enc.Encode(sessionElement{ID: s.ID, Start: s.Start.UnixMilli(), Dump: s.Dump.UnixMilli()})
		if err != nil {
			return errors.WithStack(err)
		}
	}
	for _, p := range bundle.Packages {
		err = enc.Encode(packageElementOf(p))
		if err != nil {
			return errors.WithStack(err)
		}
	}
	for _, c := range counterElements(bundle.Counters) {
		err = enc.Encode(c)
		if err != nil {
			return errors.WithStack(err)
		}
	}
	err = enc.EncodeToken(start.End())
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(enc.Flush())
}

func (f *Formatter) VisitEnd() error {
	return f.out.Publish()
}

func (f *Formatter) Abort() error {
	return f.out.Abort()
}

func packageElementOf(p *coverage.Package) packageElement {
	e := packageElement{Name: p.Name, Counters: counterElements(p.Counters)}
	for _, c := range p.Classes {
		ce := classElement{Name: c.Name, SourceFileName: c.SourceFileName, Counters: counterElements(c.Counters)}
		for _, m := range c.Methods {
			ce.Methods = append(ce.Methods, methodElement{
				Name:     m.Name,
				Desc:     m.Desc,
				Line:     m.FirstLine(),
				Counters: counterElements(m.Counters),
			})
		}
		e.Classes = append(e.Classes, ce)
	}
	for _, s := range p.SourceFiles {
		se := sourceFileElement{Name: s.Name, Counters: counterElements(s.Counters)}
		for _, l := range s.Lines() {
			se.Lines = append(se.Lines, lineElement{
				Nr: l.Nr,
				Mi: l.Instructions.Missed,
				Ci: l.Instructions.Covered,
				Mb: l.Branches.Missed,
				Cb: l.Branches.Covered,
			})
		}
		e.SourceFiles = append(e.SourceFiles, se)
	}
	return e
}

// counterElements returns the non-empty counters in report order.
func counterElements(counters coverage.Counters) []counterElement {
	var result []counterElement
	for _, entity := range coverage.Entities {
		c := counters.Get(entity)
		if c.Total() == 0 {
			continue
		}
		result = append(result, counterElement{Type: entity.String(), Missed: c.Missed, Covered: c.Covered})
	}
	return result
}
