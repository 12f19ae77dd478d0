package summary

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/uriel-frankel/android-code-coverage/pkg/log"
)

type jacocoCounter struct {
	Type    string `xml:"type,attr"`
	Missed  int    `xml:"missed,attr"`
	Covered int    `xml:"covered,attr"`
}

type jacocoReport struct {
	XMLName  xml.Name `xml:"report"`
	Name     string   `xml:"name,attr"`
	Packages []struct {
		Name        string `xml:"name,attr"`
		Sourcefiles []struct {
			Name    string          `xml:"name,attr"`
			Counter []jacocoCounter `xml:"counter"`
		} `xml:"sourcefile"`
	} `xml:"package"`
	Counter []jacocoCounter `xml:"counter"`
}

func countJacoco(c *Coverage, counter *jacocoCounter) {
	switch counter.Type {
	case "LINE":
		c.LinesFound += counter.Covered + counter.Missed
		c.LinesHit += counter.Covered
	case "BRANCH":
		c.BranchesFound += counter.Covered + counter.Missed
		c.BranchesHit += counter.Covered
	case "METHOD":
		c.FunctionsFound += counter.Covered + counter.Missed
		c.FunctionsHit += counter.Covered
	}
}

// ParseJacocoXML takes a jacoco xml report and turns it into
// the `CoverageSummary` struct. The parsing is as forgiving
// as possible. It will output debug logs instead of failing,
// with the goal to gather as much information as possible.
//
// The total is taken from the report counters, which include classes
// without source file. Reports without them get the sum of the files.
func ParseJacocoXML(in io.Reader) *CoverageSummary {
	summary := &CoverageSummary{
		Total: &Coverage{},
	}

	output, err := io.ReadAll(in)
	if err != nil {
		log.Debugf("Unable to read jacoco xml report")
		return summary
	}
	report := &jacocoReport{}
	err = xml.Unmarshal(output, report)
	if err != nil {
		log.Debugf("Unable to parse jacoco xml report")
		return summary
	}

	filesTotal := &Coverage{}
	for _, xmlPackage := range report.Packages {
		for _, sourcefile := range xmlPackage.Sourcefiles {
			filename := sourcefile.Name
			if xmlPackage.Name != "" {
				filename = fmt.Sprintf("%s/%s", xmlPackage.Name, sourcefile.Name)
			}
			currentFile := &FileCoverage{
				Filename: filename,
				Coverage: &Coverage{},
			}
			for _, counter := range sourcefile.Counter {
				countJacoco(currentFile.Coverage, &counter)
			}
			filesTotal.add(currentFile.Coverage)
			summary.Files = append(summary.Files, currentFile)
		}
	}

	if len(report.Counter) == 0 {
		summary.Total = filesTotal
		return summary
	}
	for _, counter := range report.Counter {
		countJacoco(summary.Total, &counter)
	}
	return summary
}
