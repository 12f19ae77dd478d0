package summary

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/uriel-frankel/android-code-coverage/pkg/log"
)

// ParseLcov takes an lcov tracefile and turns it into the
// `CoverageSummary` struct. Like ParseJacocoXML it skips what it
// can't parse.
func ParseLcov(in io.Reader) *CoverageSummary {
	summary := &CoverageSummary{
		Total: &Coverage{},
	}

	var currentFile *FileCoverage
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "end_of_record" {
			if currentFile != nil {
				summary.Total.add(currentFile.Coverage)
				summary.Files = append(summary.Files, currentFile)
			}
			currentFile = nil
			continue
		}

		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		if key == "SF" {
			currentFile = &FileCoverage{Filename: value, Coverage: &Coverage{}}
			continue
		}
		if currentFile == nil {
			continue
		}

		var target *int
		switch key {
		case "FNF":
			target = &currentFile.Coverage.FunctionsFound
		case "FNH":
			target = &currentFile.Coverage.FunctionsHit
		case "BRF":
			target = &currentFile.Coverage.BranchesFound
		case "BRH":
			target = &currentFile.Coverage.BranchesHit
		case "LF":
			target = &currentFile.Coverage.LinesFound
		case "LH":
			target = &currentFile.Coverage.LinesHit
		default:
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			log.Debugf("Unable to parse lcov line %q", line)
			continue
		}
		*target = n
	}
	if err := scanner.Err(); err != nil {
		log.Debugf("Unable to read lcov report: %v", err)
	}
	return summary
}
