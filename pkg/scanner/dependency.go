package scanner

import (
	"sort"
	"strings"
)

// DependencyIssueKind classifies a dependency finding
type DependencyIssueKind string

const (
	// DependencyCircular marks an import cycle
	DependencyCircular DependencyIssueKind = "circular"
	// DependencyUnused marks a declared import no other file resolves to
	DependencyUnused DependencyIssueKind = "unused"
)

// DependencyIssue is one finding over the import graph
type DependencyIssue struct {
	Kind        DependencyIssueKind `json:"kind"`
	Files       []string            `json:"files"`
	Description string              `json:"description"`
}

// CycleDetector finds import cycles in a file-level dependency graph
type CycleDetector struct{}

// NewCycleDetector returns a cycle detector
func NewCycleDetector() *CycleDetector {
	return &CycleDetector{}
}

// Detect runs a depth-first traversal from every file in the graph and
// records each import cycle as an arrow-joined chain. A single visited set
// is shared across the whole call: a node fully explored from one start is
// not re-explored from another, which suppresses duplicate reports of the
// same cycle while still surfacing every cycle at least once (every node
// serves as a start candidate).
func (c *CycleDetector) Detect(graph map[string][]string) []DependencyIssue {
	visited := make(map[string]bool)
	var issues []DependencyIssue

	for _, start := range sortedKeys(graph) {
		c.visit(graph, start, visited, nil, &issues)
	}

	return issues
}

// DetectDangling reports imports that resolve to no file in the graph.
// These usually indicate dead wiring left behind by a move or delete.
func (c *CycleDetector) DetectDangling(graph map[string][]string) []DependencyIssue {
	var issues []DependencyIssue
	for _, file := range sortedKeys(graph) {
		for _, dep := range graph[file] {
			if _, ok := graph[dep]; ok {
				continue
			}
			issues = append(issues, DependencyIssue{
				Kind:        DependencyUnused,
				Files:       []string{file, dep},
				Description: "unresolved import: " + file + " -> " + dep,
			})
		}
	}
	return issues
}

// visit walks deps of file with path as the explicit ancestor stack
func (c *CycleDetector) visit(graph map[string][]string, file string, visited map[string]bool, path []string, issues *[]DependencyIssue) {
	for i, ancestor := range path {
		if ancestor == file {
			cycle := append(append([]string{}, path[i:]...), file)
			*issues = append(*issues, DependencyIssue{
				Kind:        DependencyCircular,
				Files:       cycle,
				Description: "circular dependency: " + strings.Join(cycle, " -> "),
			})
			return
		}
	}

	if visited[file] {
		return
	}
	visited[file] = true

	path = append(path, file)
	for _, dep := range graph[file] {
		c.visit(graph, dep, visited, path, issues)
	}
}

// sortedKeys returns the graph's keys in lexical order for deterministic output
func sortedKeys(graph map[string][]string) []string {
	keys := make([]string, 0, len(graph))
	for k := range graph {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
