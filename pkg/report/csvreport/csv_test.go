package csvreport

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uriel-frankel/android-code-coverage/internal/testutil"
	"github.com/uriel-frankel/android-code-coverage/pkg/report"
)

func TestFormatter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")
	require.NoError(t, report.Render(New(path), testutil.Snapshot(), testutil.Bundle(), nil))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 5)
	assert.Equal(t, header, records[0])
	assert.Equal(t, []string{"demo", "", "Main", "0", "1", "0", "0", "0", "1", "0", "1", "0", "1"}, records[1])
	assert.Equal(t, []string{"demo", "com.example", "App", "1", "2", "0", "0", "1", "2", "0", "2", "0", "2"}, records[2])
	assert.Equal(t, []string{"demo", "com.example", "App.Inner", "1", "0", "0", "0", "1", "0", "1", "0", "1", "0"}, records[3])
	assert.Equal(t, "com.example.util", records[4][1])
}
