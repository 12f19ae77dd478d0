package classfile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uriel-frankel/android-code-coverage/internal/testutil"
	"github.com/uriel-frankel/android-code-coverage/pkg/classfile"
)

func TestParse(t *testing.T) {
	b := testutil.ClassBytes(testutil.Class{
		Name:       "com/example/App",
		SourceFile: "App.java",
		Methods: []testutil.Method{
			{Name: "<init>", Lines: []uint16{3}},
			{Name: "run", Descriptor: "(I)I", Lines: []uint16{5, 6, 6, 8}},
			{Name: "abstractOne", Abstract: true},
			{Name: "noDebugInfo"},
		},
	})

	cf, err := classfile.Parse(b)
	require.NoError(t, err)
	assert.Equal(t, "com/example/App", cf.Name)
	assert.Equal(t, "com/example", cf.PackageName())
	assert.Equal(t, "java/lang/Object", cf.SuperName)
	assert.Equal(t, "App.java", cf.SourceFile)
	assert.Equal(t, uint16(52), cf.MajorVersion)
	require.Len(t, cf.Methods, 4)

	run := cf.Methods[1]
	assert.Equal(t, "run", run.Name)
	assert.Equal(t, "(I)I", run.Descriptor)
	assert.True(t, run.HasCode())
	assert.Equal(t, []classfile.LineNumber{{0, 5}, {1, 6}, {2, 6}, {3, 8}}, run.Lines)

	assert.False(t, cf.Methods[2].HasCode())
	assert.True(t, cf.Methods[3].HasCode())
	assert.Empty(t, cf.Methods[3].Lines)
}

func TestParse_Invalid(t *testing.T) {
	_, err := classfile.Parse([]byte("PK\x03\x04"))
	assert.ErrorIs(t, err, classfile.ErrNotClassFile)

	b := testutil.ClassBytes(testutil.Class{Name: "A", Methods: []testutil.Method{{Name: "m", Lines: []uint16{1}}}})
	for _, n := range []int{10, len(b) / 2, len(b) - 1} {
		_, err = classfile.Parse(b[:n])
		assert.Error(t, err, "truncated at %d", n)
	}
}

func TestClassID(t *testing.T) {
	// CRC64 check value for the ISO polynomial without inversion
	assert.Equal(t, uint64(0), classfile.ClassID(nil))

	a := testutil.ClassBytes(testutil.Class{Name: "A"})
	b := testutil.ClassBytes(testutil.Class{Name: "B"})
	assert.Equal(t, classfile.ClassID(a), classfile.ClassID(append([]byte(nil), a...)))
	assert.NotEqual(t, classfile.ClassID(a), classfile.ClassID(b))
}

func TestClassID_Java9HashedAsJava8(t *testing.T) {
	java8 := testutil.ClassBytes(testutil.Class{Name: "A"})
	java9 := append([]byte(nil), java8...)
	java9[7] = 53
	java10 := append([]byte(nil), java8...)
	java10[7] = 54

	assert.Equal(t, classfile.ClassID(java8), classfile.ClassID(java9))
	assert.NotEqual(t, classfile.ClassID(java8), classfile.ClassID(java10))
}
