package refactor

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SnapshotArena holds pre-task file captures for a single execution run.
// Every ExecuteRefactoring call gets its own arena, so overlapping runs can
// never cross-contaminate each other's snapshots. Captures live in memory
// only and die with the run.
type SnapshotArena struct {
	runID string
	root  string
	log   zerolog.Logger

	mu    sync.Mutex
	files map[string]string
}

// NewSnapshotArena creates an arena rooted at the project path
func NewSnapshotArena(root string, log zerolog.Logger) *SnapshotArena {
	runID := uuid.NewString()
	return &SnapshotArena{
		runID: runID,
		root:  root,
		log:   log.With().Str("run_id", runID).Logger(),
		files: make(map[string]string),
	}
}

// RunID returns the unique identifier of this execution run
func (a *SnapshotArena) RunID() string {
	return a.runID
}

// Capture snapshots the current on-disk content of each path. Re-capturing a
// path overwrites the previous snapshot with current disk content: snapshots
// are idempotent per call, not additive.
func (a *SnapshotArena) Capture(paths ...string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, path := range paths {
		data, err := os.ReadFile(a.abs(path))
		if err != nil {
			return fmt.Errorf("failed to snapshot %s: %w", path, err)
		}
		a.files[path] = string(data)
	}
	return nil
}

// Restore writes a path's snapshot back to disk. A path that was never
// captured is a warning no-op rather than an error.
func (a *SnapshotArena) Restore(paths ...string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, path := range paths {
		content, ok := a.files[path]
		if !ok {
			a.log.Warn().Str("path", path).Msg("no snapshot to restore, skipping")
			continue
		}
		if err := os.WriteFile(a.abs(path), []byte(content), 0o600); err != nil {
			return fmt.Errorf("failed to restore %s: %w", path, err)
		}
	}
	return nil
}

// RestoreAll restores every snapshot captured during the run and returns the
// restored paths in lexical order.
func (a *SnapshotArena) RestoreAll() ([]string, error) {
	a.mu.Lock()
	paths := make([]string, 0, len(a.files))
	for path := range a.files {
		paths = append(paths, path)
	}
	a.mu.Unlock()

	sort.Strings(paths)
	if err := a.Restore(paths...); err != nil {
		return nil, err
	}
	return paths, nil
}

// Snapshot returns the captured content for a path, if any
func (a *SnapshotArena) Snapshot(path string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	content, ok := a.files[path]
	return content, ok
}

// Len reports how many paths are currently captured
func (a *SnapshotArena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.files)
}

func (a *SnapshotArena) abs(path string) string {
	if filepath.IsAbs(path) || a.root == "" {
		return path
	}
	return filepath.Join(a.root, path)
}
