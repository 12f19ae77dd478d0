// Package summary condenses coverage reports into per file and total
// line, branch and function coverage, and prints it as a table.
package summary

import (
	"fmt"
	"io"

	"github.com/pterm/pterm"

	"github.com/uriel-frankel/android-code-coverage/pkg/log"
)

type Coverage struct {
	FunctionsFound int `json:"functionsFound"`
	FunctionsHit   int `json:"functionsHit"`
	BranchesFound  int `json:"branchesFound"`
	BranchesHit    int `json:"branchesHit"`
	LinesFound     int `json:"linesFound"`
	LinesHit       int `json:"linesHit"`
}

func (c *Coverage) add(o *Coverage) {
	c.FunctionsFound += o.FunctionsFound
	c.FunctionsHit += o.FunctionsHit
	c.BranchesFound += o.BranchesFound
	c.BranchesHit += o.BranchesHit
	c.LinesFound += o.LinesFound
	c.LinesHit += o.LinesHit
}

type FileCoverage struct {
	Filename string    `json:"filename"`
	Coverage *Coverage `json:"coverage"`
}

type CoverageSummary struct {
	Total *Coverage       `json:"total"`
	Files []*FileCoverage `json:"files"`
}

func calcPercentage(hit, found int) string {
	if found == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", float64(hit)/float64(found)*100)
}

func columns(name string, c *Coverage) []string {
	return []string{
		name,
		fmt.Sprintf("%d / %d", c.FunctionsHit, c.FunctionsFound),
		calcPercentage(c.FunctionsHit, c.FunctionsFound),
		fmt.Sprintf("%d / %d", c.BranchesHit, c.BranchesFound),
		calcPercentage(c.BranchesHit, c.BranchesFound),
		fmt.Sprintf("%d / %d", c.LinesHit, c.LinesFound),
		calcPercentage(c.LinesHit, c.LinesFound),
	}
}

// PrintTable prints the summary as a table with one row per file and
// the total in the last row.
func (cs *CoverageSummary) PrintTable(w io.Writer) {
	if cs.Total.LinesFound == 0 && len(cs.Files) == 0 {
		log.Info("No coverage data available")
		return
	}

	data := [][]string{
		{"File", "Functions Hit", "", "Branches Hit", "", "Lines Hit", ""},
	}
	for _, f := range cs.Files {
		data = append(data, columns(f.Filename, f.Coverage))
	}
	data = append(data, columns("", cs.Total))

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		log.Error(err, "Failed to render coverage table")
		return
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, table)
	_, _ = fmt.Fprintln(w)
}
