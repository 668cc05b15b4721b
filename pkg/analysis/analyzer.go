// Package analysis defines the change-impact analyzer contract the
// orchestrator depends on and provides a built-in static implementation.
// The orchestrator treats the analyzer as an external collaborator; any
// implementation of Analyzer can be swapped in.
package analysis

import (
	"context"

	"github.com/refactord/refactord/internal/types"
)

// Analyzer produces an impact report for a batch of file changes
type Analyzer interface {
	AnalyzeChanges(ctx context.Context, changes []types.FileChange) (*types.AnalysisResult, error)
}

// SourceProvider exposes the project's source files and import graph to the
// refactoring engine. The built-in StaticAnalyzer implements it; remote
// analyzers may not, in which case refactoring planning is skipped.
type SourceProvider interface {
	CollectSources(ctx context.Context) (map[string]string, error)
	ImportGraph(files map[string]string) map[string][]string
}
