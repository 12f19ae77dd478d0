package coverage

import (
	"sort"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Line holds the instruction and branch counters of one source line.
type Line struct {
	Nr           int
	Instructions Counter
	Branches     Counter
}

func (l Line) Status() Status {
	return l.Instructions.Status() | l.Branches.Status()
}

// SourceNode is embedded by all nodes which have line information.
type SourceNode struct {
	Counters Counters
	lines    map[int]*Line
}

// Increment adds instructions and branches to the node and, if nr is
// positive, to the line nr.
func (n *SourceNode) Increment(instructions, branches Counter, nr int) {
	n.Counters.Instruction = n.Counters.Instruction.Add(instructions)
	n.Counters.Branch = n.Counters.Branch.Add(branches)
	if nr <= 0 {
		return
	}
	if n.lines == nil {
		n.lines = make(map[int]*Line)
	}
	line, ok := n.lines[nr]
	if !ok {
		line = &Line{Nr: nr}
		n.lines[nr] = line
	}
	line.Instructions = line.Instructions.Add(instructions)
	line.Branches = line.Branches.Add(branches)
	n.Counters.Line = n.lineCounter()
}

// incrementNode adds all counters and lines of child.
func (n *SourceNode) incrementNode(child *SourceNode) {
	for _, line := range child.Lines() {
		n.Increment(line.Instructions, line.Branches, line.Nr)
	}
	// instructions without line information were only counted on the
	// child's node counters
	noLine := child.Counters.Instruction
	noLineBranches := child.Counters.Branch
	for _, line := range child.lines {
		noLine.Missed -= line.Instructions.Missed
		noLine.Covered -= line.Instructions.Covered
		noLineBranches.Missed -= line.Branches.Missed
		noLineBranches.Covered -= line.Branches.Covered
	}
	n.Increment(noLine, noLineBranches, 0)
	n.Counters.Method = n.Counters.Method.Add(child.Counters.Method)
	n.Counters.Class = n.Counters.Class.Add(child.Counters.Class)
}

func (n *SourceNode) lineCounter() Counter {
	var c Counter
	for _, line := range n.lines {
		if line.Instructions.Total() == 0 {
			continue
		}
		if line.Instructions.Covered > 0 {
			c.Covered++
		} else {
			c.Missed++
		}
	}
	return c
}

// Line returns the line with number nr, which is empty if the node has
// no code on that line.
func (n *SourceNode) Line(nr int) Line {
	if line, ok := n.lines[nr]; ok {
		return *line
	}
	return Line{Nr: nr}
}

// Lines returns all lines with code, sorted by line number.
func (n *SourceNode) Lines() []Line {
	lines := make([]Line, 0, len(n.lines))
	for _, line := range n.lines {
		lines = append(lines, *line)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].Nr < lines[j].Nr })
	return lines
}

// FirstLine returns the lowest line number with code or 0.
func (n *SourceNode) FirstLine() int {
	keys := maps.Keys(n.lines)
	if len(keys) == 0 {
		return 0
	}
	slices.Sort(keys)
	return keys[0]
}

// LastLine returns the highest line number with code or 0.
func (n *SourceNode) LastLine() int {
	keys := maps.Keys(n.lines)
	if len(keys) == 0 {
		return 0
	}
	slices.Sort(keys)
	return keys[len(keys)-1]
}

type Method struct {
	SourceNode
	Name string
	Desc string
}

func NewMethod(name, desc string) *Method {
	return &Method{Name: name, Desc: desc}
}

func (m *Method) finish() {
	m.Counters.Method = Counter{}
	if m.Counters.Instruction.Covered > 0 {
		m.Counters.Method.Covered = 1
	} else {
		m.Counters.Method.Missed = 1
	}
}

type Class struct {
	SourceNode
	ID uint64
	// Name is the internal name, e.g. com/example/App$Inner
	Name           string
	PackageName    string
	SourceFileName string
	// NoMatch is set if execution data exists for a class with the
	// same name but a different id, i.e. for another version of it.
	NoMatch bool
	Methods []*Method
}

func NewClass(id uint64, name, sourceFileName string, noMatch bool) *Class {
	packageName := ""
	if i := strings.LastIndex(name, "/"); i >= 0 {
		packageName = name[:i]
	}
	return &Class{
		ID:             id,
		Name:           name,
		PackageName:    packageName,
		SourceFileName: sourceFileName,
		NoMatch:        noMatch,
	}
}

// AddMethod adds a method which must have been fully incremented.
// Methods without instructions are ignored.
func (c *Class) AddMethod(m *Method) {
	if m.Counters.Instruction.Total() == 0 {
		return
	}
	m.finish()
	c.Methods = append(c.Methods, m)
	c.incrementNode(&m.SourceNode)
	c.Counters.Class = Counter{}
	if c.Counters.Method.Covered > 0 {
		c.Counters.Class.Covered = 1
	} else {
		c.Counters.Class.Missed = 1
	}
}

// SimpleName returns the class name without package, e.g. App$Inner.
func (c *Class) SimpleName() string {
	return strings.TrimPrefix(strings.TrimPrefix(c.Name, c.PackageName), "/")
}

// SourceFile aggregates the classes compiled from one source file.
type SourceFile struct {
	SourceNode
	Name        string
	PackageName string
}

// Path returns the path of the source file relative to a source root.
func (s *SourceFile) Path() string {
	if s.PackageName == "" {
		return s.Name
	}
	return s.PackageName + "/" + s.Name
}

type Package struct {
	Name        string
	Classes     []*Class
	SourceFiles []*SourceFile
	Counters    Counters
}

// SourceFile returns the source file with the given name or nil.
func (p *Package) SourceFile(name string) *SourceFile {
	for _, s := range p.SourceFiles {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Bundle is the coverage model of all analyzed classes. It is built
// once and must not be modified afterwards.
type Bundle struct {
	Name     string
	Packages []*Package
	Counters Counters
}

// Classes returns all classes of the bundle sorted by name.
func (b *Bundle) Classes() []*Class {
	var classes []*Class
	for _, p := range b.Packages {
		classes = append(classes, p.Classes...)
	}
	return classes
}

// SourceFiles returns all source files of the bundle sorted by path.
func (b *Bundle) SourceFiles() []*SourceFile {
	var files []*SourceFile
	for _, p := range b.Packages {
		files = append(files, p.SourceFiles...)
	}
	return files
}
