package report

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uriel-frankel/android-code-coverage/internal/cmdutils"
	"github.com/uriel-frankel/android-code-coverage/internal/errs"
	"github.com/uriel-frankel/android-code-coverage/internal/testutil"
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

// setupProject creates a project with one class which has two of its
// three lines covered.
func setupProject(t *testing.T) string {
	t.Helper()
	t.Cleanup(func() {
		viper.Reset()
		viper.Set("verbose", true)
	})

	projectDir := t.TempDir()
	classesDir := filepath.Join(projectDir, "app", "build", "intermediates", "classes")
	_, id := testutil.WriteClassFile(t, classesDir, testutil.Class{
		Name:       "com/example/App",
		SourceFile: "App.java",
		Methods: []testutil.Method{
			{Name: "<init>", Lines: []uint16{3}},
			{Name: "run", Lines: []uint16{5, 6}},
		},
	})
	testutil.WriteExecFile(t, filepath.Join(projectDir, "coverage.exec"), nil,
		&execdata.ExecutionData{ID: id, Name: "com/example/App", Probes: []bool{true, false, true}})
	return projectDir
}

func TestFail(t *testing.T) {
	t.Cleanup(viper.Reset)
	_, err := cmdutils.ExecuteCommand(t, New(), os.Stdin)
	require.Error(t, err)
	var usageErr *cmdutils.IncorrectUsageError
	assert.ErrorAs(t, err, &usageErr)
}

func TestUnexpectedArgs(t *testing.T) {
	projectDir := setupProject(t)
	_, err := cmdutils.ExecuteCommand(t, New(), os.Stdin, "-p", projectDir, "foo")
	var usageErr *cmdutils.IncorrectUsageError
	assert.ErrorAs(t, err, &usageErr)
}

func TestInvalidFormat(t *testing.T) {
	projectDir := setupProject(t)
	_, err := cmdutils.ExecuteCommand(t, New(), os.Stdin, "-p", projectDir, "--format", "pdf")
	var configErr *errs.ConfigurationError
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, "format", configErr.Setting)
}

func TestReport(t *testing.T) {
	projectDir := setupProject(t)

	out, err := cmdutils.ExecuteCommand(t, New(), os.Stdin,
		"-p", projectDir,
		"-r", "report",
		"--format", "html,xml,lcov",
	)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(projectDir, "report", "index.html"))
	assert.FileExists(t, filepath.Join(projectDir, "report.xml"))
	assert.FileExists(t, filepath.Join(projectDir, "coverage.info"))
	assert.NoFileExists(t, filepath.Join(projectDir, "report.csv"))
	assert.Contains(t, out, "com/example/App.java")
	assert.Contains(t, out, "2 / 3")
}

func TestReport_JSON(t *testing.T) {
	projectDir := setupProject(t)

	out, err := cmdutils.ExecuteCommand(t, New(), os.Stdin,
		"-p", projectDir,
		"-r", "report",
		"--format", "csv",
		"--json",
	)
	require.NoError(t, err)

	var result jsonOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, map[string]string{"csv": filepath.Join(projectDir, "report.csv")}, result.Reports)
	assert.Equal(t, 3, result.Summary.Total.LinesFound)
	assert.Equal(t, 2, result.Summary.Total.LinesHit)
	assert.Empty(t, result.Warnings)
}

func TestReport_ProjectConfigFile(t *testing.T) {
	projectDir := setupProject(t)
	err := os.WriteFile(filepath.Join(projectDir, "coverage-report.yaml"), []byte("format: [lcov]\nlcov-report: out/app.info\n"), 0o644)
	require.NoError(t, err)

	_, err = cmdutils.ExecuteCommand(t, New(), os.Stdin, "-p", projectDir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(projectDir, "out", "app.info"))
	assert.NoFileExists(t, filepath.Join(projectDir, "report.xml"))
}

func TestReport_MissingExecFile(t *testing.T) {
	projectDir := setupProject(t)

	_, err := cmdutils.ExecuteCommand(t, New(), os.Stdin, "-p", projectDir, "-r", "report", "-f", "missing.exec")
	var ioErr *errs.FatalIOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "merge", ioErr.Stage)
	assert.NoDirExists(t, filepath.Join(projectDir, "report"))
}
