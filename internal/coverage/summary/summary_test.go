package summary

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

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

func TestParseJacoco(t *testing.T) {
	reportData := `
<report name="android-example">
    <package name="com/example">
        <sourcefile name="ExploreMe.java">
            <counter type="LINE" missed="100" covered="100"/>
            <counter type="BRANCH" missed="22" covered="1"/>
            <counter type="METHOD" missed="19" covered="2"/>
        </sourcefile>
        <sourcefile name="App.java">
            <counter type="LINE" missed="0" covered="50"/>
            <counter type="BRANCH" missed="1" covered="9"/>
            <counter type="METHOD" missed="0" covered="1"/>
        </sourcefile>
    </package>
</report>
`
	summary := ParseJacocoXML(strings.NewReader(reportData))

	require.Len(t, summary.Files, 2)
	assert.Equal(t, "com/example/ExploreMe.java", summary.Files[0].Filename)
	assert.Equal(t, 3, summary.Total.FunctionsHit)
	assert.Equal(t, 22, summary.Total.FunctionsFound)
	assert.Equal(t, 10, summary.Total.BranchesHit)
	assert.Equal(t, 33, summary.Total.BranchesFound)
	assert.Equal(t, 150, summary.Total.LinesHit)
	assert.Equal(t, 250, summary.Total.LinesFound)

	assert.Equal(t, 2, summary.Files[0].Coverage.FunctionsHit)
	assert.Equal(t, 21, summary.Files[0].Coverage.FunctionsFound)
	assert.Equal(t, 1, summary.Files[0].Coverage.BranchesHit)
	assert.Equal(t, 23, summary.Files[0].Coverage.BranchesFound)
	assert.Equal(t, 100, summary.Files[0].Coverage.LinesHit)
	assert.Equal(t, 200, summary.Files[0].Coverage.LinesFound)

	assert.Equal(t, 1, summary.Files[1].Coverage.FunctionsHit)
	assert.Equal(t, 1, summary.Files[1].Coverage.FunctionsFound)
	assert.Equal(t, 9, summary.Files[1].Coverage.BranchesHit)
	assert.Equal(t, 10, summary.Files[1].Coverage.BranchesFound)
	assert.Equal(t, 50, summary.Files[1].Coverage.LinesHit)
	assert.Equal(t, 50, summary.Files[1].Coverage.LinesFound)
}

func TestParseJacoco_ReportCounters(t *testing.T) {
	reportData := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<!DOCTYPE report PUBLIC "-//JACOCO//DTD Report 1.1//EN" "report.dtd">
<report name="demo">
    <package name="">
        <sourcefile name="Main.java">
            <counter type="LINE" missed="0" covered="1"/>
        </sourcefile>
    </package>
    <counter type="LINE" missed="4" covered="1"/>
</report>
`
	summary := ParseJacocoXML(strings.NewReader(reportData))

	require.Len(t, summary.Files, 1)
	assert.Equal(t, "Main.java", summary.Files[0].Filename)
	assert.Equal(t, 5, summary.Total.LinesFound)
	assert.Equal(t, 1, summary.Total.LinesHit)
}

func TestParseJacoco_Empty(t *testing.T) {
	summary := ParseJacocoXML(strings.NewReader(""))

	assert.Len(t, summary.Files, 0)
	assert.Empty(t, summary.Total.BranchesFound)
	assert.Empty(t, summary.Total.LinesFound)
	assert.Empty(t, summary.Total.FunctionsFound)
}

func TestParseLcov(t *testing.T) {
	reportData := `TN:demo
SF:src/com/example/App.java
FN:3,App.<init>()V
FNDA:1,App.<init>()V
FNF:2
FNH:1
DA:3,1
DA:5,0
LF:2
LH:1
end_of_record
TN:demo
SF:src/Main.java
FNF:1
FNH:1
LF:1
LH:1
BRF:4
BRH:3
end_of_record
`
	summary := ParseLcov(strings.NewReader(reportData))

	require.Len(t, summary.Files, 2)
	assert.Equal(t, "src/com/example/App.java", summary.Files[0].Filename)
	assert.Equal(t, &Coverage{FunctionsFound: 2, FunctionsHit: 1, LinesFound: 2, LinesHit: 1}, summary.Files[0].Coverage)
	assert.Equal(t, &Coverage{FunctionsFound: 3, FunctionsHit: 2, BranchesFound: 4, BranchesHit: 3, LinesFound: 3, LinesHit: 2}, summary.Total)
}

func TestParseLcov_Invalid(t *testing.T) {
	summary := ParseLcov(strings.NewReader("LF:3\nSF:a\nLF:x\nLH:1\n"))
	// the record is never finished
	assert.Empty(t, summary.Files)
	assert.Equal(t, &Coverage{}, summary.Total)
}

func TestFromBundle(t *testing.T) {
	summary := FromBundle(testutil.Bundle())

	assert.Equal(t, &Coverage{FunctionsFound: 5, FunctionsHit: 3, LinesFound: 6, LinesHit: 3}, summary.Total)
	require.Len(t, summary.Files, 2)
	assert.Equal(t, "Main.java", summary.Files[0].Filename)
	assert.Equal(t, "com/example/App.java", summary.Files[1].Filename)
	assert.Equal(t, &Coverage{FunctionsFound: 3, FunctionsHit: 2, LinesFound: 4, LinesHit: 2}, summary.Files[1].Coverage)
}

func TestPrintTable(t *testing.T) {
	out := &bytes.Buffer{}
	FromBundle(testutil.Bundle()).PrintTable(out)

	assert.Contains(t, out.String(), "com/example/App.java")
	assert.Contains(t, out.String(), "3 / 6")
	assert.Contains(t, out.String(), "50.0%")
}

func TestPrintTable_Empty(t *testing.T) {
	out := &bytes.Buffer{}
	summary := &CoverageSummary{Total: &Coverage{}}
	summary.PrintTable(out)
	assert.Empty(t, out.String())
}
