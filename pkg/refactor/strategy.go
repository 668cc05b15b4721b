package refactor

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/refactord/refactord/internal/types"
)

// ErrNoStrategy is returned when no transformer is registered for a task type
var ErrNoStrategy = errors.New("no transformation strategy registered")

// Transformer applies one refactoring transformation to a file's content.
// Implementations must be pure with respect to the file system: they receive
// content and return content, and the executor owns reading and writing.
type Transformer interface {
	// Name identifies the strategy in logs and events
	Name() string
	// Transform rewrites content for the given task
	Transform(ctx context.Context, task types.RefactoringTask, content string) (string, error)
}

// StrategyRegistry maps task types to transformation strategies. Dispatch
// goes through the registry rather than a hard-coded branch so new
// transformation kinds plug in without touching the executor.
type StrategyRegistry struct {
	mu         sync.RWMutex
	strategies map[types.TaskType]Transformer
}

// NewStrategyRegistry creates an empty registry
func NewStrategyRegistry() *StrategyRegistry {
	return &StrategyRegistry{
		strategies: make(map[types.TaskType]Transformer),
	}
}

// DefaultStrategyRegistry returns a registry with the minimal built-in
// strategy bound to every task type. Real transformations are expected to be
// registered by the embedding application.
func DefaultStrategyRegistry() *StrategyRegistry {
	r := NewStrategyRegistry()
	cleanup := NewWhitespaceCleanup()
	for _, tt := range []types.TaskType{
		types.TaskExtract,
		types.TaskRename,
		types.TaskMove,
		types.TaskOptimize,
		types.TaskCleanup,
	} {
		r.Register(tt, cleanup)
	}
	return r
}

// Register binds a transformer to a task type, replacing any previous binding
func (r *StrategyRegistry) Register(taskType types.TaskType, t Transformer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[taskType] = t
}

// Lookup resolves the transformer for a task type
func (r *StrategyRegistry) Lookup(taskType types.TaskType) (Transformer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.strategies[taskType]
	if !ok {
		return nil, fmt.Errorf("%w for task type %q", ErrNoStrategy, taskType)
	}
	return t, nil
}

// WhitespaceCleanup is the minimal default strategy: it strips trailing
// whitespace and collapses runs of blank lines. It is deliberately
// conservative so it is safe to apply for any task type.
type WhitespaceCleanup struct {
	blankRuns *regexp.Regexp
}

// NewWhitespaceCleanup creates the default cleanup transformer
func NewWhitespaceCleanup() *WhitespaceCleanup {
	return &WhitespaceCleanup{
		blankRuns: regexp.MustCompile(`\n{3,}`),
	}
}

// Name implements Transformer
func (w *WhitespaceCleanup) Name() string {
	return "whitespace-cleanup"
}

// Transform implements Transformer
func (w *WhitespaceCleanup) Transform(_ context.Context, _ types.RefactoringTask, content string) (string, error) {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return w.blankRuns.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"), nil
}
