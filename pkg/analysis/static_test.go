package analysis

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refactord/refactord/internal/types"
)

func newTestAnalyzer(t *testing.T, dir string) *StaticAnalyzer {
	t.Helper()
	return NewStaticAnalyzer(DefaultStaticConfig(dir), zerolog.Nop())
}

func writeSource(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func change(path string, kind types.ChangeKind) types.FileChange {
	return types.FileChange{Path: path, Kind: kind, Timestamp: time.Now()}
}

func TestStaticAnalyzer_CollectSources(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "app.js", "const x = 1\n")
	writeSource(t, dir, "src/util.ts", "export const y = 2\n")
	writeSource(t, dir, "README.md", "# readme\n")
	writeSource(t, dir, "node_modules/dep/index.js", "ignored\n")

	files, err := newTestAnalyzer(t, dir).CollectSources(context.Background())
	require.NoError(t, err)

	assert.Contains(t, files, "app.js")
	assert.Contains(t, files, "src/util.ts")
	assert.NotContains(t, files, "README.md")
	assert.NotContains(t, files, "node_modules/dep/index.js")
}

func TestStaticAnalyzer_ImportGraph(t *testing.T) {
	a := newTestAnalyzer(t, t.TempDir())

	files := map[string]string{
		"app.js":      "import { util } from './lib/util'\nconst fs = require('fs')\n",
		"lib/util.js": "export function util() {}\n",
	}

	graph := a.ImportGraph(files)

	assert.Equal(t, []string{"lib/util.js"}, graph["app.js"])
	assert.Empty(t, graph["lib/util.js"])
	// bare package imports never resolve into the graph
	for _, deps := range graph {
		assert.NotContains(t, deps, "fs")
	}
}

func TestStaticAnalyzer_DeletedImportedFileIsBreaking(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "app.js", "import { util } from './util'\n")
	writeSource(t, dir, "util.js", "export function util() {}\n")

	a := newTestAnalyzer(t, dir)

	result, err := a.AnalyzeChanges(context.Background(), []types.FileChange{
		change("util.js", types.ChangeDeleted),
	})
	require.NoError(t, err)

	assert.Equal(t, types.ImpactBreaking, result.OverallImpact)
	require.Len(t, result.Changes, 1)
	assert.True(t, result.Changes[0].Breaking)
	assert.True(t, result.HasBreakingChanges())
}

func TestStaticAnalyzer_ImpactGrading(t *testing.T) {
	dir := t.TempDir()
	a := newTestAnalyzer(t, dir)

	tests := []struct {
		name     string
		count    int
		expected types.ImpactLevel
	}{
		{name: "small batch is patch", count: 2, expected: types.ImpactPatch},
		{name: "medium batch is minor", count: 5, expected: types.ImpactMinor},
		{name: "large batch is major", count: 12, expected: types.ImpactMajor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changes := make([]types.FileChange, 0, tt.count)
			for i := 0; i < tt.count; i++ {
				changes = append(changes, change("f.js", types.ChangeModified))
			}
			result, err := a.AnalyzeChanges(context.Background(), changes)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result.OverallImpact)
		})
	}
}

func TestStaticAnalyzer_SuggestsTasksAndDocUpdates(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "complex.js", "export default run\n"+strings.Repeat("if (x) {}\n", 25))

	result, err := newTestAnalyzer(t, dir).AnalyzeChanges(context.Background(), []types.FileChange{
		change("complex.js", types.ChangeModified),
	})
	require.NoError(t, err)

	require.Len(t, result.RefactoringTasks, 1)
	assert.Equal(t, types.TaskExtract, result.RefactoringTasks[0].Type)
	assert.Equal(t, types.PriorityHigh, result.RefactoringTasks[0].Priority)

	require.Len(t, result.DocumentationUpdates, 1)
	assert.Equal(t, "complex.js", result.DocumentationUpdates[0].Target)
}
