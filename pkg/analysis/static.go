package analysis

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/refactord/refactord/internal/types"
	"github.com/refactord/refactord/pkg/scanner"
)

// sourceExtensions are the file types the static analyzer inspects
var sourceExtensions = map[string]bool{
	".js":  true,
	".jsx": true,
	".ts":  true,
	".tsx": true,
	".mjs": true,
	".cjs": true,
}

// importPatterns extract module specifiers from source text
var importPatterns = []*regexp.Regexp{
	regexp.MustCompile(`import\s+(?:[\w{}\s,*]+\s+from\s+)?['"]([^'"]+)['"]`),
	regexp.MustCompile(`require\(\s*['"]([^'"]+)['"]\s*\)`),
	regexp.MustCompile(`export\s+[\w{}\s,*]+\s+from\s+['"]([^'"]+)['"]`),
}

// exportPattern recognizes lines that declare part of a file's public surface
var exportPattern = regexp.MustCompile(`^\s*(?:export|module\.exports)`)

// StaticConfig configures the built-in analyzer
type StaticConfig struct {
	// ProjectRoot is the directory sources are read from
	ProjectRoot string
	// IgnoredDirs are directory names skipped while collecting sources
	IgnoredDirs []string
	// MaxFiles caps how many sources one analysis call will read
	MaxFiles int
}

// DefaultStaticConfig returns the standard analyzer configuration
func DefaultStaticConfig(root string) StaticConfig {
	return StaticConfig{
		ProjectRoot: root,
		IgnoredDirs: []string{"node_modules", ".git", "vendor", "dist", "build"},
		MaxFiles:    2000,
	}
}

// StaticAnalyzer is the built-in Analyzer: it grades impact from file reads
// and regex heuristics, with no language server or AST behind it. It also
// serves as the engine's SourceProvider.
type StaticAnalyzer struct {
	config     StaticConfig
	complexity *scanner.ComplexityScanner
	log        zerolog.Logger
}

// NewStaticAnalyzer creates the built-in analyzer
func NewStaticAnalyzer(config StaticConfig, log zerolog.Logger) *StaticAnalyzer {
	return &StaticAnalyzer{
		config:     config,
		complexity: scanner.NewComplexityScanner(),
		log:        log.With().Str("component", "analyzer").Logger(),
	}
}

// AnalyzeChanges implements Analyzer. Deleting a file that other sources
// import is treated as breaking; beyond that, impact scales with how much of
// the codebase one batch touches.
func (a *StaticAnalyzer) AnalyzeChanges(ctx context.Context, changes []types.FileChange) (*types.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	files, err := a.CollectSources(ctx)
	if err != nil {
		return nil, err
	}
	graph := a.ImportGraph(files)
	importers := reverseEdges(graph)

	result := &types.AnalysisResult{
		Changes:              make([]types.FileChange, 0, len(changes)),
		Dependencies:         graphEdges(graph),
		RefactoringTasks:     []types.RefactoringTask{},
		DocumentationUpdates: []types.DocumentationUpdate{},
	}

	for _, change := range changes {
		flagged := change
		if change.Kind == types.ChangeDeleted && len(importers[change.Path]) > 0 {
			flagged.Breaking = true
		}
		result.Changes = append(result.Changes, flagged)

		if content, ok := files[change.Path]; ok {
			if issue := a.complexity.Scan(change.Path, content); issue != nil {
				result.RefactoringTasks = append(result.RefactoringTasks, types.RefactoringTask{
					Target:              issue.File,
					Type:                types.TaskExtract,
					Priority:            issue.Priority,
					Description:         issue.Suggestion,
					EstimatedComplexity: issue.Score / 5,
				})
			}
			if a.hasExports(content) {
				result.DocumentationUpdates = append(result.DocumentationUpdates, types.DocumentationUpdate{
					Target:  change.Path,
					Section: "api",
					Summary: fmt.Sprintf("document updated public surface of %s", change.Path),
				})
			}
		}
	}

	result.OverallImpact = a.gradeImpact(result.Changes)
	a.log.Debug().
		Int("changes", len(result.Changes)).
		Str("impact", string(result.OverallImpact)).
		Msg("change analysis complete")
	return result, nil
}

// CollectSources implements SourceProvider: path→content for every source file
func (a *StaticAnalyzer) CollectSources(ctx context.Context) (map[string]string, error) {
	files := make(map[string]string)

	err := filepath.WalkDir(a.config.ProjectRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if a.ignoredDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !sourceExtensions[filepath.Ext(path)] {
			return nil
		}
		if a.config.MaxFiles > 0 && len(files) >= a.config.MaxFiles {
			return fs.SkipAll
		}

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			a.log.Warn().Err(readErr).Str("path", path).Msg("skipping unreadable source")
			return nil
		}
		rel, relErr := filepath.Rel(a.config.ProjectRoot, path)
		if relErr != nil {
			rel = path
		}
		files[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to collect sources: %w", err)
	}

	return files, nil
}

// ImportGraph implements SourceProvider: resolves relative imports between
// the collected files. Every file appears as a key so dangling imports are
// distinguishable from leaves.
func (a *StaticAnalyzer) ImportGraph(files map[string]string) map[string][]string {
	graph := make(map[string][]string, len(files))

	for path, content := range files {
		deps := []string{}
		for _, pattern := range importPatterns {
			for _, match := range pattern.FindAllStringSubmatch(content, -1) {
				if resolved, ok := a.resolveImport(path, match[1], files); ok {
					deps = append(deps, resolved)
				}
			}
		}
		sort.Strings(deps)
		graph[path] = deps
	}

	return graph
}

// resolveImport maps a relative specifier to a collected file, trying the
// usual extension and index completions. Bare specifiers (packages) resolve
// to nothing.
func (a *StaticAnalyzer) resolveImport(from, specifier string, files map[string]string) (string, bool) {
	if !strings.HasPrefix(specifier, ".") {
		return "", false
	}

	base := filepath.ToSlash(filepath.Join(filepath.Dir(from), specifier))
	candidates := []string{base}
	if filepath.Ext(base) == "" {
		for ext := range sourceExtensions {
			candidates = append(candidates, base+ext)
		}
		candidates = append(candidates, base+"/index.js", base+"/index.ts")
	}

	for _, candidate := range candidates {
		if _, ok := files[candidate]; ok {
			return candidate, true
		}
	}
	return "", false
}

// gradeImpact maps a batch onto an overall impact level
func (a *StaticAnalyzer) gradeImpact(changes []types.FileChange) types.ImpactLevel {
	for _, c := range changes {
		if c.Breaking {
			return types.ImpactBreaking
		}
	}
	switch {
	case len(changes) > 10:
		return types.ImpactMajor
	case len(changes) > 3:
		return types.ImpactMinor
	default:
		return types.ImpactPatch
	}
}

func (a *StaticAnalyzer) hasExports(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		if exportPattern.MatchString(line) {
			return true
		}
	}
	return false
}

func (a *StaticAnalyzer) ignoredDir(name string) bool {
	for _, dir := range a.config.IgnoredDirs {
		if name == dir {
			return true
		}
	}
	return false
}

// graphEdges flattens the graph into dependency edges, deterministically
func graphEdges(graph map[string][]string) []types.DependencyEdge {
	froms := make([]string, 0, len(graph))
	for from := range graph {
		froms = append(froms, from)
	}
	sort.Strings(froms)

	var edges []types.DependencyEdge
	for _, from := range froms {
		for _, to := range graph[from] {
			edges = append(edges, types.DependencyEdge{From: from, To: to})
		}
	}
	return edges
}

// reverseEdges indexes the graph by import target
func reverseEdges(graph map[string][]string) map[string][]string {
	reversed := make(map[string][]string)
	for from, deps := range graph {
		for _, to := range deps {
			reversed[to] = append(reversed[to], from)
		}
	}
	return reversed
}
