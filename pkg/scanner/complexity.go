// Package scanner provides the issue scanners feeding the refactoring planner:
// cyclomatic-style complexity scoring, cross-file duplication detection and
// dependency-cycle detection. Scanners are pure functions over file contents
// and import graphs; they never touch the file system.
package scanner

import (
	"regexp"

	"github.com/refactord/refactord/internal/types"
)

// branchPatterns is the fixed token set counted toward the complexity score.
// "else if" is matched on its own in addition to the bare "if" it contains,
// mirroring how the score weights chained conditionals.
var branchPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bif\b`),
	regexp.MustCompile(`\belse\s+if\b`),
	regexp.MustCompile(`\bfor\b`),
	regexp.MustCompile(`\bwhile\b`),
	regexp.MustCompile(`\bcase\b`),
	regexp.MustCompile(`\bcatch\b`),
	regexp.MustCompile(`&&`),
	regexp.MustCompile(`\|\|`),
	regexp.MustCompile(`\?[^.:]*:`),
}

// ComplexityIssue is raised for a file whose branch score exceeds the threshold
type ComplexityIssue struct {
	File       string         `json:"file"`
	Score      int            `json:"score"`
	Priority   types.Priority `json:"priority"`
	Suggestion string         `json:"suggestion"`
}

// ComplexityScanner scores files by counting branching tokens
type ComplexityScanner struct {
	// Threshold is the score above which an issue is raised
	Threshold int
	// HighThreshold is the score above which the issue is high priority
	HighThreshold int
}

// NewComplexityScanner returns a scanner with the standard thresholds
func NewComplexityScanner() *ComplexityScanner {
	return &ComplexityScanner{
		Threshold:     10,
		HighThreshold: 20,
	}
}

// Score computes the complexity score for a file's content:
// 1 plus the number of branching-token occurrences.
func (s *ComplexityScanner) Score(content string) int {
	score := 1
	for _, p := range branchPatterns {
		score += len(p.FindAllStringIndex(content, -1))
	}
	return score
}

// Scan scores the file and returns an issue when the score exceeds the
// threshold, nil otherwise. Priority is high only above HighThreshold.
func (s *ComplexityScanner) Scan(path, content string) *ComplexityIssue {
	score := s.Score(content)
	if score <= s.Threshold {
		return nil
	}

	priority := types.PriorityMedium
	if score > s.HighThreshold {
		priority = types.PriorityHigh
	}

	return &ComplexityIssue{
		File:       path,
		Score:      score,
		Priority:   priority,
		Suggestion: "extract methods to reduce complexity",
	}
}

// ScanAll scans every file in the map and collects the issues raised
func (s *ComplexityScanner) ScanAll(files map[string]string) []ComplexityIssue {
	var issues []ComplexityIssue
	for path, content := range files {
		if issue := s.Scan(path, content); issue != nil {
			issues = append(issues, *issue)
		}
	}
	return issues
}
