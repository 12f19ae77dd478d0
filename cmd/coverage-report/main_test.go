package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uriel-frankel/android-code-coverage/internal/testutil"
	"github.com/uriel-frankel/android-code-coverage/pkg/log"
)

var testOut io.ReadWriter

func TestMain(m *testing.M) {
	// capture log output
	testOut = bytes.NewBuffer([]byte{})
	oldOut := log.Output
	log.Output = testOut

	code := m.Run()

	log.Output = oldOut
	os.Exit(code)
}

func run(t *testing.T, args ...string) (int, string) {
	t.Helper()
	t.Cleanup(viper.Reset)
	cmd := newRootCmd()
	stderr := &bytes.Buffer{}
	cmd.SetOut(io.Discard)
	cmd.SetErr(stderr)
	return execute(cmd, args), stderr.String()
}

func TestExecute_MissingProjectDir(t *testing.T) {
	code, stderr := run(t)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Usage:")
	assert.Contains(t, stderr, "--project-dir")
}

func TestExecute_UnknownFlag(t *testing.T) {
	code, stderr := run(t, "--no-such-flag")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Usage:")
}

func TestExecute_FatalError(t *testing.T) {
	projectDir := t.TempDir()
	// the classes dir exists, coverage.exec doesn't
	require.NoError(t, os.MkdirAll(filepath.Join(projectDir, "app", "build", "intermediates", "classes"), 0o755))
	code, stderr := run(t, "-p", projectDir, "-r", "report")
	assert.Equal(t, 1, code)
	// fatal errors don't print the usage
	assert.NotContains(t, stderr, "Usage:")
}

func TestExecute_Success(t *testing.T) {
	projectDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(projectDir, "app", "build", "intermediates", "classes"), 0o755))
	testutil.WriteExecFile(t, filepath.Join(projectDir, "coverage.exec"), nil)

	code, _ := run(t, "-p", projectDir, "-r", "report")
	assert.Equal(t, 0, code)
	assert.FileExists(t, filepath.Join(projectDir, "report", "index.html"))
}

func TestExecute_Summary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coverage.info")
	require.NoError(t, os.WriteFile(path, []byte("SF:App.java\nLF:1\nLH:1\nend_of_record\n"), 0o644))

	code, _ := run(t, "summary", path)
	assert.Equal(t, 0, code)
}
