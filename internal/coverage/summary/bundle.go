package summary

import "github.com/uriel-frankel/android-code-coverage/pkg/coverage"

func fromCounters(c coverage.Counters) *Coverage {
	return &Coverage{
		FunctionsFound: c.Method.Total(),
		FunctionsHit:   c.Method.Covered,
		BranchesFound:  c.Branch.Total(),
		BranchesHit:    c.Branch.Covered,
		LinesFound:     c.Line.Total(),
		LinesHit:       c.Line.Covered,
	}
}

// FromBundle creates the summary of a bundle with one entry per source
// file.
func FromBundle(b *coverage.Bundle) *CoverageSummary {
	summary := &CoverageSummary{Total: fromCounters(b.Counters)}
	for _, s := range b.SourceFiles() {
		summary.Files = append(summary.Files, &FileCoverage{Filename: s.Path(), Coverage: fromCounters(s.Counters)})
	}
	return summary
}
