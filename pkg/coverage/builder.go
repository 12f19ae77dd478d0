package coverage

import (
	"sort"

	"github.com/pkg/errors"
)

// Builder collects analyzed classes and creates the bundle from them.
// It is not safe for concurrent use.
type Builder struct {
	classes map[string]*Class
}

func NewBuilder() *Builder {
	return &Builder{classes: map[string]*Class{}}
}

// AddClass adds an analyzed class. Classes without methods are ignored.
// Adding a class with the same name but a different id fails, adding
// the same class twice is a no-op.
func (b *Builder) AddClass(c *Class) error {
	if err := b.Check(c); err != nil {
		return err
	}
	if _, ok := b.classes[c.Name]; ok || len(c.Methods) == 0 {
		return nil
	}
	b.classes[c.Name] = c
	return nil
}

// Check returns the error AddClass would return for c.
func (b *Builder) Check(c *Class) error {
	if existing, ok := b.classes[c.Name]; ok && existing.ID != c.ID {
		return errors.Errorf("can't add different class with same name: %s", c.Name)
	}
	return nil
}

// Len returns the number of classes added.
func (b *Builder) Len() int {
	return len(b.classes)
}

// Bundle creates the bundle with the given name. Packages, classes and
// source files are sorted by name so that the result doesn't depend on
// the order in which classes were added.
func (b *Builder) Bundle(name string) *Bundle {
	packages := map[string]*Package{}
	sourceFiles := map[string]*SourceFile{}

	classNames := make([]string, 0, len(b.classes))
	for n := range b.classes {
		classNames = append(classNames, n)
	}
	sort.Strings(classNames)

	for _, n := range classNames {
		c := b.classes[n]
		p, ok := packages[c.PackageName]
		if !ok {
			p = &Package{Name: c.PackageName}
			packages[c.PackageName] = p
		}
		p.Classes = append(p.Classes, c)

		if c.SourceFileName == "" {
			// classes without source file contribute directly
			p.Counters = p.Counters.Add(c.Counters)
			continue
		}
		key := c.PackageName + "/" + c.SourceFileName
		s, ok := sourceFiles[key]
		if !ok {
			s = &SourceFile{Name: c.SourceFileName, PackageName: c.PackageName}
			sourceFiles[key] = s
			p.SourceFiles = append(p.SourceFiles, s)
		}
		s.incrementNode(&c.SourceNode)
	}

	bundle := &Bundle{Name: name}
	for _, p := range packages {
		sort.Slice(p.SourceFiles, func(i, j int) bool { return p.SourceFiles[i].Name < p.SourceFiles[j].Name })
		for _, s := range p.SourceFiles {
			p.Counters = p.Counters.Add(s.Counters)
		}
		bundle.Packages = append(bundle.Packages, p)
	}
	sort.Slice(bundle.Packages, func(i, j int) bool { return bundle.Packages[i].Name < bundle.Packages[j].Name })
	for _, p := range bundle.Packages {
		bundle.Counters = bundle.Counters.Add(p.Counters)
	}
	return bundle
}
