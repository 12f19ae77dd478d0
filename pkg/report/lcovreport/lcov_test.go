package lcovreport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uriel-frankel/android-code-coverage/internal/coverage/summary"
	"github.com/uriel-frankel/android-code-coverage/internal/testutil"
	"github.com/uriel-frankel/android-code-coverage/pkg/report"
)

func TestFormatter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coverage.info")
	require.NoError(t, report.Render(New(path, "src/main/java"), testutil.Snapshot(), testutil.Bundle(), nil))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(b)

	assert.Contains(t, content, `TN:demo
SF:src/main/java/com/example/App.java
FN:3,App.<init>()V
FNDA:1,App.<init>()V
FN:5,App.run()V
FNDA:1,App.run()V
FN:10,App$Inner.call()V
FNDA:0,App$Inner.call()V
FNF:3
FNH:2
DA:3,1
DA:5,0
DA:6,1
DA:10,0
LF:4
LH:2
end_of_record
`)
	assert.Contains(t, content, "SF:src/main/java/com/example/util/Gen.class\n")
	assert.Equal(t, 3, strings.Count(content, "end_of_record"))

	parsed := summary.ParseLcov(strings.NewReader(content))
	assert.Equal(t, summary.FromBundle(testutil.Bundle()).Total, parsed.Total)
}
