package analyzer

import (
	"regexp"
	"strings"
)

// Structure carries the structural features scanned from a chunk. The scan
// is purely heuristic and never calls a model.
type Structure struct {
	HeadingCount int  `json:"heading_count"`
	ListCount    int  `json:"list_count"`
	LineCount    int  `json:"line_count"`
	HasHeadings  bool `json:"has_headings"`
	HasLists     bool `json:"has_lists"`
}

var (
	headingLine = regexp.MustCompile(`^#{1,6}\s+\S`)
	bulletLine  = regexp.MustCompile(`^\s*([-*+]|\d+[.)])\s+\S`)
)

func analyzeStructure(content string) *Structure {
	s := &Structure{}
	if content == "" {
		return s
	}

	lines := strings.Split(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	s.LineCount = len(lines)

	for _, line := range lines {
		switch {
		case headingLine.MatchString(line):
			s.HeadingCount++
		case bulletLine.MatchString(line):
			s.ListCount++
		}
	}
	s.HasHeadings = s.HeadingCount > 0
	s.HasLists = s.ListCount > 0
	return s
}
