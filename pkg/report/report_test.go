package report

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uriel-frankel/android-code-coverage/internal/testutil"
	"github.com/uriel-frankel/android-code-coverage/pkg/coverage"
	"github.com/uriel-frankel/android-code-coverage/pkg/execdata"
	"github.com/uriel-frankel/android-code-coverage/pkg/log"
)

var testOut io.ReadWriter

func TestMain(m *testing.M) {
	// capture log output
	testOut = bytes.NewBuffer([]byte{})
	oldOut := log.Output
	log.Output = testOut
	viper.Set("verbose", true)

	code := m.Run()

	log.Output = oldOut
	os.Exit(code)
}

type recordingFormatter struct {
	calls   []string
	failAt  string
	aborted bool
}

func (f *recordingFormatter) step(name string) error {
	f.calls = append(f.calls, name)
	if name == f.failAt {
		return errors.New("disk full")
	}
	return nil
}

func (f *recordingFormatter) VisitInfo([]execdata.SessionInfo, []*execdata.ExecutionData) error {
	return f.step("info")
}

func (f *recordingFormatter) VisitBundle(*coverage.Bundle, SourceLocator) error {
	return f.step("bundle")
}

func (f *recordingFormatter) VisitEnd() error {
	return f.step("end")
}

func (f *recordingFormatter) Abort() error {
	f.aborted = true
	return nil
}

func TestVisitor_Order(t *testing.T) {
	f := &recordingFormatter{}
	v := NewVisitor(f)
	assert.Equal(t, StateCreated, v.State())

	assert.Panics(t, func() { _ = v.VisitBundle(nil, nil) })
	assert.Panics(t, func() { _ = v.VisitEnd() })

	require.NoError(t, v.VisitInfo(nil, nil))
	assert.Equal(t, StateInfoWritten, v.State())
	assert.Panics(t, func() { _ = v.VisitInfo(nil, nil) })

	require.NoError(t, v.VisitBundle(nil, nil))
	require.NoError(t, v.VisitEnd())
	assert.Equal(t, StateFinalized, v.State())

	assert.Panics(t, func() { _ = v.VisitEnd() })
	assert.Equal(t, []string{"info", "bundle", "end"}, f.calls)
}

func TestRender(t *testing.T) {
	f := &recordingFormatter{}
	require.NoError(t, Render(f, testutil.Snapshot(), testutil.Bundle(), nil))
	assert.Equal(t, []string{"info", "bundle", "end"}, f.calls)
	assert.False(t, f.aborted)
}

func TestRender_AbortsOnFailure(t *testing.T) {
	f := &recordingFormatter{failAt: "bundle"}
	err := Render(f, testutil.Snapshot(), testutil.Bundle(), nil)
	require.Error(t, err)
	assert.Equal(t, []string{"info", "bundle"}, f.calls)
	assert.True(t, f.aborted)
}

func TestMultiOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "report")
	out := NewMultiOutput(dir)

	w, err := out.Create("com.example/index.html")
	require.NoError(t, err)
	_, err = w.Write([]byte("<html/>"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	// nothing is visible before publishing
	assert.NoDirExists(t, dir)

	require.NoError(t, out.Publish())
	content, err := os.ReadFile(filepath.Join(dir, "com.example", "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<html/>", string(content))
}

func TestMultiOutput_ReplacesPreviousReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "report")
	write := func(out *MultiOutput, rel string) {
		w, err := out.Create(rel)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}

	first := NewMultiOutput(dir)
	write(first, "index.html")
	write(first, "com.example/index.html")
	write(first, "com.example/App.html")
	write(first, "com.removed/index.html")
	write(first, "com.removed/Gone.html")
	require.NoError(t, first.Publish())
	// not part of a report
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.xml"), nil, 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "notes"), 0o755))

	second := NewMultiOutput(dir)
	write(second, "index.html")
	write(second, "com.example/index.html")
	require.NoError(t, second.Publish())

	assert.FileExists(t, filepath.Join(dir, "index.html"))
	assert.FileExists(t, filepath.Join(dir, "com.example", "index.html"))
	assert.NoFileExists(t, filepath.Join(dir, "com.example", "App.html"))
	assert.NoDirExists(t, filepath.Join(dir, "com.removed"))
	assert.FileExists(t, filepath.Join(dir, "report.xml"))
	assert.DirExists(t, filepath.Join(dir, "notes"))
}

func TestMultiOutput_Abort(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "report")
	out := NewMultiOutput(dir)
	w, err := out.Create("index.html")
	require.NoError(t, err)
	require.NoError(t, w.Close())
	staging := out.staging

	require.NoError(t, out.Abort())
	assert.NoDirExists(t, staging)
	assert.NoDirExists(t, dir)
}

func TestSingleOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "report.xml")
	out := NewSingleOutput(path)

	w, err := out.Open()
	require.NoError(t, err)
	_, err = w.Write([]byte("<report/>"))
	require.NoError(t, err)
	assert.NoFileExists(t, path)

	require.NoError(t, out.Publish())
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<report/>", string(content))
	assert.NoFileExists(t, path+".tmp")

	failed := NewSingleOutput(filepath.Join(t.TempDir(), "other.xml"))
	_, err = failed.Open()
	require.NoError(t, err)
	require.NoError(t, failed.Abort())
	assert.NoFileExists(t, failed.Path())
	assert.NoFileExists(t, failed.Path()+".tmp")
}

func TestDirectorySourceLocator(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "com", "example"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "com", "example", "App.java"),
		[]byte("package com.example;\r\n\tclass App {}\r\n"), 0o644))
	// not at its package path
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "kotlin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kotlin", "Util.kt"), []byte("fun util() = 1\n"), 0o644))

	l, err := NewDirectorySourceLocator(dir, "utf-8", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, l.TabWidth())

	lines, err := l.Lookup("com/example", "App.java")
	require.NoError(t, err)
	assert.Equal(t, []string{"package com.example;", "    class App {}"}, lines)

	lines, err = l.Lookup("com/example/util", "Util.kt")
	require.NoError(t, err)
	assert.Equal(t, []string{"fun util() = 1"}, lines)

	lines, err = l.Lookup("com/example", "Missing.java")
	require.NoError(t, err)
	assert.Nil(t, lines)

	lines, err = l.Lookup("../..", "etc")
	require.NoError(t, err)
	assert.Nil(t, lines)
}

func TestDirectorySourceLocator_Encoding(t *testing.T) {
	dir := t.TempDir()
	// "Grüße" in ISO-8859-1
	require.NoError(t, os.WriteFile(filepath.Join(dir, "A.java"), []byte{'G', 'r', 0xFC, 0xDF, 'e'}, 0o644))

	l, err := NewDirectorySourceLocator(dir, "iso-8859-1", 4)
	require.NoError(t, err)
	lines, err := l.Lookup("", "A.java")
	require.NoError(t, err)
	assert.Equal(t, []string{"Grüße"}, lines)

	_, err = NewDirectorySourceLocator(dir, "no-such-encoding", 4)
	assert.Error(t, err)
	_, err = NewDirectorySourceLocator(dir, "utf-8", 0)
	assert.Error(t, err)
}

func TestExpandTabs(t *testing.T) {
	assert.Equal(t, "a   b", ExpandTabs("a\tb", 4))
	assert.Equal(t, "    x", ExpandTabs("\tx", 4))
	assert.Equal(t, "abcd    e", ExpandTabs("abcd\te", 4))
	assert.Equal(t, "ab  c", ExpandTabs("ab\tc", 2))
	assert.Equal(t, "no tabs", ExpandTabs("no tabs", 8))
}
