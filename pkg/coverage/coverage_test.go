package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	covered = Counter{Covered: 1}
	missed  = Counter{Missed: 1}
)

func TestCounter(t *testing.T) {
	assert.Equal(t, Empty, Counter{}.Status())
	assert.Equal(t, NotCovered, Counter{Missed: 2}.Status())
	assert.Equal(t, FullyCovered, Counter{Covered: 2}.Status())
	assert.Equal(t, PartlyCovered, Counter{Missed: 1, Covered: 1}.Status())

	assert.Equal(t, 0.0, Counter{}.Ratio())
	assert.Equal(t, 0.25, Counter{Missed: 3, Covered: 1}.Ratio())
	assert.Equal(t, "1/4", Counter{Missed: 3, Covered: 1}.String())
}

func TestStatus_CombinesAsBitwiseOr(t *testing.T) {
	assert.Equal(t, PartlyCovered, NotCovered|FullyCovered)
	assert.Equal(t, NotCovered, Empty|NotCovered)
	assert.Equal(t, PartlyCovered, Line{Instructions: covered, Branches: missed}.Status())
	assert.Equal(t, Empty, Line{}.Status())
}

func TestSourceNode_Increment(t *testing.T) {
	n := &SourceNode{}
	n.Increment(covered, Counter{}, 3)
	n.Increment(missed, Counter{}, 3)
	n.Increment(missed, Counter{}, 1)
	n.Increment(missed, Counter{}, 0)

	assert.Equal(t, Counter{Missed: 3, Covered: 1}, n.Counters.Instruction)
	assert.Equal(t, Counter{Missed: 1, Covered: 1}, n.Counters.Line)
	assert.Equal(t, 1, n.FirstLine())
	assert.Equal(t, 3, n.LastLine())

	lines := n.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, 1, lines[0].Nr)
	assert.Equal(t, PartlyCovered, lines[1].Status())
	assert.Equal(t, Empty, n.Line(2).Status())
}

func newClass(id uint64, name, source string, lines map[int]bool) *Class {
	c := NewClass(id, name, source, false)
	m := NewMethod("run", "()V")
	for nr, hit := range lines {
		if hit {
			m.Increment(covered, Counter{}, nr)
		} else {
			m.Increment(missed, Counter{}, nr)
		}
	}
	c.AddMethod(m)
	return c
}

func TestClass_AddMethod(t *testing.T) {
	c := NewClass(1, "com/example/App$Inner", "App.java", false)
	assert.Equal(t, "com/example", c.PackageName)
	assert.Equal(t, "App$Inner", c.SimpleName())

	c.AddMethod(NewMethod("empty", "()V"))
	assert.Empty(t, c.Methods)

	m := NewMethod("run", "()V")
	m.Increment(missed, Counter{}, 4)
	c.AddMethod(m)
	assert.Equal(t, Counter{Missed: 1}, m.Counters.Method)
	assert.Equal(t, Counter{Missed: 1}, c.Counters.Class)

	m = NewMethod("hit", "()V")
	m.Increment(covered, Counter{}, 5)
	c.AddMethod(m)
	assert.Equal(t, Counter{Missed: 1, Covered: 1}, c.Counters.Method)
	assert.Equal(t, Counter{Covered: 1}, c.Counters.Class)
	assert.Equal(t, Counter{Missed: 1, Covered: 1}, c.Counters.Line)
}

func TestBuilder_Bundle(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddClass(newClass(2, "com/b/B", "B.java", map[int]bool{1: true})))
	require.NoError(t, b.AddClass(newClass(1, "com/a/A", "A.java", map[int]bool{1: true, 2: false})))
	require.NoError(t, b.AddClass(newClass(3, "com/a/A$1", "A.java", map[int]bool{2: true})))
	require.NoError(t, b.AddClass(newClass(4, "com/a/Gen", "", map[int]bool{7: false})))
	// same class twice
	require.NoError(t, b.AddClass(newClass(2, "com/b/B", "B.java", map[int]bool{1: true})))
	// no methods
	require.NoError(t, b.AddClass(NewClass(5, "com/a/Empty", "A.java", false)))
	assert.Equal(t, 4, b.Len())

	bundle := b.Bundle("demo")
	assert.Equal(t, "demo", bundle.Name)
	require.Len(t, bundle.Packages, 2)

	a := bundle.Packages[0]
	assert.Equal(t, "com/a", a.Name)
	require.Len(t, a.Classes, 3)
	assert.Equal(t, "com/a/A", a.Classes[0].Name)
	assert.Equal(t, "com/a/A$1", a.Classes[1].Name)
	require.Len(t, a.SourceFiles, 1)

	// line 2 is missed by A and covered by A$1, so covered in the file
	src := a.SourceFile("A.java")
	require.NotNil(t, src)
	assert.Equal(t, "com/a/A.java", src.Path())
	assert.Equal(t, PartlyCovered, src.Line(2).Status())
	assert.Equal(t, Counter{Covered: 2}, src.Counters.Line)
	assert.Equal(t, Counter{Covered: 2}, src.Counters.Class)

	// the class without source file is counted in the package
	assert.Equal(t, Counter{Missed: 1, Covered: 2}, a.Counters.Class)
	assert.Equal(t, Counter{Missed: 1, Covered: 2}, a.Counters.Line)

	assert.Equal(t, Counter{Missed: 1, Covered: 3}, bundle.Counters.Class)
	assert.Equal(t, Counter{Missed: 2, Covered: 3}, bundle.Counters.Instruction)
	assert.Len(t, bundle.Classes(), 4)
	assert.Len(t, bundle.SourceFiles(), 2)
}

func TestBuilder_DuplicateNameDifferentID(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddClass(newClass(1, "A", "A.java", map[int]bool{1: true})))
	err := b.AddClass(newClass(2, "A", "A.java", map[int]bool{1: true}))
	assert.Error(t, err)
}

func TestBuilder_OrderIndependent(t *testing.T) {
	classes := []*Class{
		newClass(1, "x/A", "A.java", map[int]bool{1: true}),
		newClass(2, "y/B", "B.java", map[int]bool{1: false}),
		newClass(3, "x/C", "C.java", map[int]bool{2: true}),
	}
	b1, b2 := NewBuilder(), NewBuilder()
	for i := range classes {
		require.NoError(t, b1.AddClass(classes[i]))
		require.NoError(t, b2.AddClass(classes[len(classes)-1-i]))
	}
	assert.Equal(t, b1.Bundle("n"), b2.Bundle("n"))
}
