package refactor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/refactord/refactord/internal/types"
)

// TestRunner executes the test suite relevant to one task. A task is
// accepted only when every test passed.
type TestRunner interface {
	Run(ctx context.Context, task types.RefactoringTask) (types.TestReport, error)
}

// Committer records an accepted task in version control. Commit failures are
// logged by the executor and never fail the task.
type Committer interface {
	Commit(ctx context.Context, task types.RefactoringTask) error
}

// ExecutionListener observes executor progress. All methods are optional
// observability hooks; implementations must not block.
type ExecutionListener interface {
	OnTaskStart(task types.RefactoringTask)
	OnTaskComplete(task types.RefactoringTask, diff string)
	OnTaskFailed(task types.RefactoringTask, err error)
	OnRollback(runID string, restored []string)
}

// nopListener is the default listener
type nopListener struct{}

func (nopListener) OnTaskStart(types.RefactoringTask)            {}
func (nopListener) OnTaskComplete(types.RefactoringTask, string) {}
func (nopListener) OnTaskFailed(types.RefactoringTask, error)    {}
func (nopListener) OnRollback(string, []string)                  {}

// ExecutorConfig configures the task executor
type ExecutorConfig struct {
	// ProjectRoot is the directory task targets are resolved against
	ProjectRoot string
	// StepTimeout bounds each test run and commit call; zero means no timeout
	StepTimeout time.Duration
}

// Executor applies refactoring tasks one at a time: snapshot, transform,
// test, then commit or roll back. It holds no snapshot state of its own;
// every Execute call builds a fresh run-scoped arena.
type Executor struct {
	config     ExecutorConfig
	strategies *StrategyRegistry
	runner     TestRunner
	committer  Committer
	log        zerolog.Logger
	differ     *diffmatchpatch.DiffMatchPatch

	listenerMu sync.RWMutex
	listener   ExecutionListener
}

// NewExecutor creates an executor. The committer may be nil when version
// control integration is disabled.
func NewExecutor(config ExecutorConfig, strategies *StrategyRegistry, runner TestRunner, committer Committer, log zerolog.Logger) *Executor {
	if strategies == nil {
		strategies = DefaultStrategyRegistry()
	}
	return &Executor{
		config:     config,
		strategies: strategies,
		runner:     runner,
		committer:  committer,
		listener:   nopListener{},
		log:        log.With().Str("component", "executor").Logger(),
		differ:     diffmatchpatch.New(),
	}
}

// SetListener installs a progress listener, replacing the no-op default.
// Safe to call while another goroutine is inside Execute.
func (e *Executor) SetListener(l ExecutionListener) {
	if l == nil {
		l = nopListener{}
	}
	e.listenerMu.Lock()
	e.listener = l
	e.listenerMu.Unlock()
}

// currentListener snapshots the installed listener
func (e *Executor) currentListener() ExecutionListener {
	e.listenerMu.RLock()
	defer e.listenerMu.RUnlock()
	return e.listener
}

// Execute runs every task of the plan in order under snapshot rollback.
// Per-task failures are recovered and recorded in the result, never
// returned; the error return covers only rollback I/O failures, which leave
// the working tree in an unknown state and must surface.
func (e *Executor) Execute(ctx context.Context, plan *types.RefactoringPlan) (*types.RefactoringResult, error) {
	arena := NewSnapshotArena(e.config.ProjectRoot, e.log)
	result := &types.RefactoringResult{
		CompletedTasks: []types.RefactoringTask{},
		FailedTasks:    []types.RefactoringTask{},
	}

	e.log.Info().
		Str("run_id", arena.RunID()).
		Int("tasks", len(plan.Tasks)).
		Str("risk", string(plan.RiskLevel)).
		Msg("executing refactoring plan")

	listener := e.currentListener()
	for _, task := range plan.Tasks {
		listener.OnTaskStart(task)

		diff, err := e.executeTask(ctx, arena, task, result)
		if err != nil {
			e.log.Warn().Err(err).Str("target", task.Target).Msg("task failed, rolling back its files")
			if restoreErr := arena.Restore(task.Target); restoreErr != nil {
				return nil, restoreErr
			}
			result.FailedTasks = append(result.FailedTasks, task)
			listener.OnTaskFailed(task, err)
			continue
		}

		result.CompletedTasks = append(result.CompletedTasks, task)
		listener.OnTaskComplete(task, diff)
		e.commitTask(ctx, task)
	}

	result.Success = len(result.FailedTasks) == 0
	result.RollbackRequired = len(result.FailedTasks) > len(result.CompletedTasks)

	if result.RollbackRequired {
		restored, err := arena.RestoreAll()
		if err != nil {
			return nil, err
		}
		e.log.Warn().
			Str("run_id", arena.RunID()).
			Int("restored", len(restored)).
			Msg("majority of tasks failed, full snapshot rollback applied")
		listener.OnRollback(arena.RunID(), restored)
	}

	return result, nil
}

// executeTask runs one task and returns the applied diff on acceptance
func (e *Executor) executeTask(ctx context.Context, arena *SnapshotArena, task types.RefactoringTask, result *types.RefactoringResult) (string, error) {
	if err := arena.Capture(task.Target); err != nil {
		return "", err
	}

	before, _ := arena.Snapshot(task.Target)

	transformer, err := e.strategies.Lookup(task.Type)
	if err != nil {
		return "", err
	}

	after, err := transformer.Transform(ctx, task, before)
	if err != nil {
		return "", fmt.Errorf("strategy %s failed on %s: %w", transformer.Name(), task.Target, err)
	}

	if err := e.writeTarget(task.Target, after); err != nil {
		return "", err
	}

	report, err := e.runTests(ctx, task)
	result.TestsRun += report.Total
	result.TestsPassed += report.Passed
	if err != nil {
		return "", fmt.Errorf("test run failed for %s: %w", task.Target, err)
	}
	if !report.AllPassed() {
		return "", fmt.Errorf("tests rejected %s: %d of %d passed", task.Target, report.Passed, report.Total)
	}

	return e.unifiedDiff(before, after), nil
}

// runTests invokes the external test runner under the optional step timeout
func (e *Executor) runTests(ctx context.Context, task types.RefactoringTask) (types.TestReport, error) {
	if e.config.StepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.StepTimeout)
		defer cancel()
	}
	return e.runner.Run(ctx, task)
}

// commitTask records an accepted task; failures are log-only
func (e *Executor) commitTask(ctx context.Context, task types.RefactoringTask) {
	if e.committer == nil {
		return
	}
	if e.config.StepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.StepTimeout)
		defer cancel()
	}
	if err := e.committer.Commit(ctx, task); err != nil {
		e.log.Warn().Err(err).Str("target", task.Target).Msg("commit failed, continuing")
	}
}

func (e *Executor) writeTarget(path, content string) error {
	abs := path
	if !filepath.IsAbs(path) && e.config.ProjectRoot != "" {
		abs = filepath.Join(e.config.ProjectRoot, path)
	}
	if err := os.WriteFile(abs, []byte(content), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// unifiedDiff renders the applied change as a patch for events and logs
func (e *Executor) unifiedDiff(before, after string) string {
	if before == after {
		return ""
	}
	diffs := e.differ.DiffMain(before, after, false)
	return e.differ.PatchToText(e.differ.PatchMake(before, diffs))
}
