// Package orchestrator coordinates the whole change-refactoring cycle:
// it consumes debounced change batches, asks the analyzer for an impact
// report, routes documentation updates and refactoring plans through the
// optional approval gate, executes accepted plans and validates the
// aftermath. Batches are processed strictly in order by a single consumer
// goroutine, which is what keeps the approval queue, status counters and
// per-run snapshot arenas free of cross-batch races.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/refactord/refactord/internal/types"
	"github.com/refactord/refactord/pkg/analysis"
	"github.com/refactord/refactord/pkg/clock"
	"github.com/refactord/refactord/pkg/docs"
	"github.com/refactord/refactord/pkg/notify"
	"github.com/refactord/refactord/pkg/refactor"
	"github.com/refactord/refactord/pkg/suggest"
)

// ErrNotRunning is returned by operations that need a started orchestrator
var ErrNotRunning = errors.New("orchestrator is not running")

// ErrAlreadyRunning is returned by Start on a running orchestrator
var ErrAlreadyRunning = errors.New("orchestrator is already running")

// Config is the orchestrator's recognized configuration surface
type Config struct {
	// ProjectPath is the root of the project under management
	ProjectPath string `yaml:"project_path"`
	// AutoUpdate applies documentation updates without approval
	AutoUpdate bool `yaml:"auto_update"`
	// RequireApproval gates refactoring plans behind the approval queue
	RequireApproval bool `yaml:"require_approval"`
	// WatchPatterns are the globs the watcher reports changes for
	WatchPatterns []string `yaml:"watch_patterns"`
	// IgnoredPaths are globs the watcher excludes
	IgnoredPaths []string `yaml:"ignored_paths"`
	// DebounceMs is the watcher's debounce window in milliseconds
	DebounceMs int `yaml:"debounce_ms"`
	// StepTimeout bounds analyzer, test and commit calls; zero means none
	StepTimeout time.Duration `yaml:"step_timeout"`
	// ProgressInterval is the spacing of refactoring progress events
	ProgressInterval time.Duration `yaml:"progress_interval"`
}

// DefaultConfig returns the standard orchestrator configuration
func DefaultConfig(projectPath string) Config {
	return Config{
		ProjectPath:      projectPath,
		AutoUpdate:       false,
		RequireApproval:  true,
		WatchPatterns:    []string{"**/*.js", "**/*.jsx", "**/*.ts", "**/*.tsx"},
		IgnoredPaths:     []string{"**/node_modules/**", "**/.git/**", "**/dist/**"},
		DebounceMs:       500,
		ProgressInterval: 2 * time.Second,
	}
}

// ConfigPatch is a partial configuration update; nil fields keep their value
type ConfigPatch struct {
	AutoUpdate       *bool
	RequireApproval  *bool
	WatchPatterns    []string
	IgnoredPaths     []string
	DebounceMs       *int
	StepTimeout      *time.Duration
	ProgressInterval *time.Duration
}

// Status is the orchestrator's externally visible counters
type Status struct {
	Running          bool      `json:"running"`
	FilesWatched     int       `json:"files_watched"`
	ChangesProcessed int       `json:"changes_processed"`
	LastUpdate       time.Time `json:"last_update"`
	Errors           int       `json:"errors"`
}

// BranchCreator is the delegated side effect started for breaking changes
// when auto-update is enabled. Implementations typically create a working
// branch for the disruptive change; failures are log-only.
type BranchCreator interface {
	CreateBranch(ctx context.Context, reason string) error
}

// Deps wires the orchestrator's collaborators. Analyzer and Engine are
// required; everything else degrades gracefully when nil.
type Deps struct {
	Analyzer    analysis.Analyzer
	Sources     analysis.SourceProvider
	Engine      *refactor.Engine
	Docs        docs.Updater
	Suggestions suggest.Provider
	Notifier    notify.Notifier
	Branches    BranchCreator
	Clock       clock.Clock
}

// Orchestrator is the top-level coordinator
type Orchestrator struct {
	deps   Deps
	events *EventStream
	queue  *approvalQueue
	log    zerolog.Logger

	mu      sync.RWMutex
	config  Config
	status  Status
	running bool

	intake chan []types.FileChange
	done   chan struct{}
	wg     sync.WaitGroup
}

// New creates an orchestrator. Analyzer and Engine must be set.
func New(config Config, deps Deps, log zerolog.Logger) (*Orchestrator, error) {
	if deps.Analyzer == nil {
		return nil, fmt.Errorf("analyzer dependency is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("refactoring engine dependency is required")
	}
	if deps.Clock == nil {
		deps.Clock = clock.NewRealClock()
	}
	deps.Suggestions = suggest.OrNull(deps.Suggestions)

	o := &Orchestrator{
		deps:   deps,
		events: NewEventStream(0, log),
		queue:  newApprovalQueue(),
		log:    log.With().Str("component", "orchestrator").Logger(),
		config: config,
	}
	// Installed once here; approval replays and the consumer goroutine may
	// both reach the executor, so the listener must never be swapped later.
	deps.Engine.SetListener(o)
	return o, nil
}

// Events exposes the observability stream
func (o *Orchestrator) Events() *EventStream {
	return o.events
}

// Start launches the single consumer that drains watcher batches in order.
// The error channel is the watcher's; failures on it increment the error
// counter without stopping the pipeline.
func (o *Orchestrator) Start(batches <-chan []types.FileChange, watchErrs <-chan error) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return ErrAlreadyRunning
	}
	o.running = true
	o.status.Running = true
	o.intake = make(chan []types.FileChange, 16)
	o.done = make(chan struct{})
	o.mu.Unlock()

	o.wg.Add(2)
	go o.forward(batches, watchErrs)
	go o.consume()

	o.events.Emit(EventStarted, nil)
	o.log.Info().Msg("orchestrator started")
	return nil
}

// Stop prevents new batches from being picked up and waits for the batch
// already in flight to finish. It never aborts in-flight work.
func (o *Orchestrator) Stop() error {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return ErrNotRunning
	}
	o.running = false
	o.status.Running = false
	close(o.done)
	o.mu.Unlock()

	o.wg.Wait()
	o.events.Emit(EventStopped, nil)
	o.log.Info().Msg("orchestrator stopped")
	return nil
}

// ForceAnalysis queues an analysis pass outside the watcher: for the given
// files, or for every known source when none are named.
func (o *Orchestrator) ForceAnalysis(ctx context.Context, files ...string) error {
	o.mu.RLock()
	running := o.running
	intake := o.intake
	done := o.done
	o.mu.RUnlock()
	if !running {
		return ErrNotRunning
	}

	if len(files) == 0 {
		if o.deps.Sources == nil {
			return fmt.Errorf("no source provider available for full analysis")
		}
		sources, err := o.deps.Sources.CollectSources(ctx)
		if err != nil {
			return err
		}
		for path := range sources {
			files = append(files, path)
		}
	}

	batch := make([]types.FileChange, 0, len(files))
	now := o.deps.Clock.Now()
	for _, path := range files {
		batch = append(batch, types.FileChange{Path: path, Kind: types.ChangeModified, Timestamp: now})
	}

	select {
	case intake <- batch:
		return nil
	case <-done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ApproveUpdate replays the stored action for a pending approval
func (o *Orchestrator) ApproveUpdate(ctx context.Context, id string) error {
	return o.queue.Approve(ctx, id)
}

// RejectUpdate discards a pending approval
func (o *Orchestrator) RejectUpdate(id string) error {
	return o.queue.Reject(id)
}

// GetStatus snapshots the orchestrator's counters
func (o *Orchestrator) GetStatus() Status {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.status
}

// GetApprovalQueue snapshots the pending approvals, oldest first
func (o *Orchestrator) GetApprovalQueue() []Approval {
	return o.queue.List()
}

// GetConfig snapshots the current configuration
func (o *Orchestrator) GetConfig() Config {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.config
}

// UpdateConfig applies a partial configuration update
func (o *Orchestrator) UpdateConfig(patch ConfigPatch) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if patch.AutoUpdate != nil {
		o.config.AutoUpdate = *patch.AutoUpdate
	}
	if patch.RequireApproval != nil {
		o.config.RequireApproval = *patch.RequireApproval
	}
	if patch.WatchPatterns != nil {
		o.config.WatchPatterns = patch.WatchPatterns
	}
	if patch.IgnoredPaths != nil {
		o.config.IgnoredPaths = patch.IgnoredPaths
	}
	if patch.DebounceMs != nil {
		o.config.DebounceMs = *patch.DebounceMs
	}
	if patch.StepTimeout != nil {
		o.config.StepTimeout = *patch.StepTimeout
	}
	if patch.ProgressInterval != nil {
		o.config.ProgressInterval = *patch.ProgressInterval
	}
}

// forward copies watcher output onto the intake queue until stopped
func (o *Orchestrator) forward(batches <-chan []types.FileChange, watchErrs <-chan error) {
	defer o.wg.Done()

	for {
		select {
		case <-o.done:
			return
		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			o.recordError()
			o.events.Emit(EventProcessingError, map[string]interface{}{
				"source": "watcher",
				"error":  err.Error(),
			})
			o.log.Warn().Err(err).Msg("watcher error")
		case batch, ok := <-batches:
			if !ok {
				return
			}
			select {
			case o.intake <- batch:
			case <-o.done:
				return
			}
		}
	}
}

// consume is the single consumer draining the intake queue in order
func (o *Orchestrator) consume() {
	defer o.wg.Done()

	for {
		select {
		case <-o.done:
			return
		case batch := <-o.intake:
			o.handleBatch(batch)
		}
	}
}

// handleBatch runs one batch through the pipeline with the unexpected-error
// boundary around it: a panic or returned error increments the error counter
// and emits processing:error, and the consumer keeps running.
func (o *Orchestrator) handleBatch(batch []types.FileChange) {
	defer func() {
		if r := recover(); r != nil {
			o.recordError()
			o.events.Emit(EventProcessingError, map[string]interface{}{
				"error": fmt.Sprintf("panic: %v", r),
			})
			o.log.Error().Interface("panic", r).Msg("batch handling panicked")
		}
	}()

	if err := o.processBatch(context.Background(), batch); err != nil {
		o.recordError()
		o.events.Emit(EventProcessingError, map[string]interface{}{
			"error": err.Error(),
		})
		o.log.Error().Err(err).Msg("batch handling failed")
	}
}

// processBatch is the per-batch state machine: analyze, breaking check,
// documentation routing, refactoring routing, validation.
func (o *Orchestrator) processBatch(ctx context.Context, batch []types.FileChange) error {
	o.events.Emit(EventProcessingStart, map[string]interface{}{"changes": len(batch)})

	config := o.GetConfig()

	result, err := o.analyzeChanges(ctx, config, batch)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	o.appendSuggestions(ctx, result)

	if result.HasBreakingChanges() {
		o.handleBreakingChanges(ctx, config, result)
	}

	o.routeDocumentation(ctx, config, result)
	o.routeRefactoring(ctx, config, result)
	o.validateConsistency(config, result)

	o.mu.Lock()
	o.status.ChangesProcessed += len(batch)
	o.status.LastUpdate = o.deps.Clock.Now()
	o.mu.Unlock()

	o.events.Emit(EventProcessingComplete, map[string]interface{}{
		"changes": len(batch),
		"impact":  string(result.OverallImpact),
	})
	return nil
}

// analyzeChanges invokes the external analyzer under the step timeout and
// refreshes the files-watched counter from its source universe.
func (o *Orchestrator) analyzeChanges(ctx context.Context, config Config, batch []types.FileChange) (*types.AnalysisResult, error) {
	if config.StepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.StepTimeout)
		defer cancel()
	}

	result, err := o.deps.Analyzer.AnalyzeChanges(ctx, batch)
	if err != nil {
		return nil, err
	}

	if o.deps.Sources != nil {
		if sources, srcErr := o.deps.Sources.CollectSources(ctx); srcErr == nil {
			o.mu.Lock()
			o.status.FilesWatched = len(sources)
			o.mu.Unlock()
		}
	}

	return result, nil
}

// appendSuggestions merges the optional provider's proposals into the
// analysis, where routeRefactoring folds them into the plan alongside the
// scanners' findings. Provider failures are log-only.
func (o *Orchestrator) appendSuggestions(ctx context.Context, result *types.AnalysisResult) {
	tasks, err := o.deps.Suggestions.Suggest(ctx, result)
	if err != nil {
		o.log.Warn().Err(err).Msg("suggestion provider failed")
		return
	}
	result.RefactoringTasks = append(result.RefactoringTasks, tasks...)
}

// handleBreakingChanges always reports and notifies; branch creation is a
// delegated side effect gated on auto-update.
func (o *Orchestrator) handleBreakingChanges(ctx context.Context, config Config, result *types.AnalysisResult) {
	breaking := make([]string, 0)
	for _, c := range result.Changes {
		if c.Breaking {
			breaking = append(breaking, c.Path)
		}
	}

	o.events.Emit(EventBreakingChanges, map[string]interface{}{
		"impact": string(result.OverallImpact),
		"files":  breaking,
	})

	message := fmt.Sprintf("%d breaking change(s) detected", len(breaking))
	if len(breaking) == 0 {
		message = "breaking overall impact detected"
	}
	o.events.Emit(EventNotification, map[string]interface{}{"message": message})
	if o.deps.Notifier != nil {
		o.deps.Notifier.Notify("Breaking changes", message)
	}

	if config.AutoUpdate && o.deps.Branches != nil {
		if err := o.deps.Branches.CreateBranch(ctx, message); err != nil {
			o.log.Warn().Err(err).Msg("branch creation failed")
		}
	}
}

// routeDocumentation applies documentation updates directly under
// auto-update, otherwise parks them in the approval queue.
func (o *Orchestrator) routeDocumentation(ctx context.Context, config Config, result *types.AnalysisResult) {
	if o.deps.Docs == nil || len(result.DocumentationUpdates) == 0 {
		return
	}

	if config.AutoUpdate {
		if err := o.deps.Docs.Apply(ctx, result); err != nil {
			o.recordError()
			o.log.Warn().Err(err).Msg("documentation update failed")
		}
		return
	}

	approval := o.queue.Add(ApprovalDocumentation, result, func(actionCtx context.Context) error {
		return o.deps.Docs.Apply(actionCtx, result)
	})
	o.events.Emit(EventApprovalRequired, map[string]interface{}{
		"id":      approval.ID,
		"kind":    string(approval.Kind),
		"updates": len(result.DocumentationUpdates),
	})
}

// routeRefactoring plans over the current sources and either executes the
// plan or parks it behind approval.
func (o *Orchestrator) routeRefactoring(ctx context.Context, config Config, result *types.AnalysisResult) {
	if o.deps.Sources == nil {
		return
	}

	files, err := o.deps.Sources.CollectSources(ctx)
	if err != nil {
		o.recordError()
		o.log.Warn().Err(err).Msg("source collection failed, skipping refactoring")
		return
	}
	graph := o.deps.Sources.ImportGraph(files)

	plan, err := o.deps.Engine.PlanRefactoring(ctx, files, graph, result.RefactoringTasks)
	if err != nil {
		o.recordError()
		o.log.Warn().Err(err).Msg("refactoring planning failed")
		return
	}
	if len(plan.Tasks) == 0 {
		return
	}

	o.events.Emit(EventPlanCreated, map[string]interface{}{
		"tasks": len(plan.Tasks),
		"risk":  string(plan.RiskLevel),
	})

	if config.RequireApproval {
		approval := o.queue.Add(ApprovalRefactoring, plan, func(actionCtx context.Context) error {
			return o.executeRefactoring(actionCtx, plan)
		})
		o.events.Emit(EventRefactoringApprovalRequired, map[string]interface{}{
			"id":    approval.ID,
			"tasks": len(plan.Tasks),
			"risk":  string(plan.RiskLevel),
		})
		return
	}

	if err := o.executeRefactoring(ctx, plan); err != nil {
		o.recordError()
		o.log.Error().Err(err).Msg("refactoring execution failed")
	}
}

// executeRefactoring runs a plan with the fixed-interval progress ticker
// alive for the duration. The ticker is observability only; it carries no
// cancellation or backpressure semantics.
func (o *Orchestrator) executeRefactoring(ctx context.Context, plan *types.RefactoringPlan) error {
	o.events.Emit(EventRefactoringStart, map[string]interface{}{
		"tasks": len(plan.Tasks),
		"risk":  string(plan.RiskLevel),
	})

	interval := o.GetConfig().ProgressInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := o.deps.Clock.NewTicker(interval)
	tickerDone := make(chan struct{})
	go func() {
		for {
			select {
			case <-tickerDone:
				return
			case <-ticker.C():
				o.events.Emit(EventRefactoringProgress, nil)
			}
		}
	}()
	defer func() {
		ticker.Stop()
		close(tickerDone)
	}()

	result, err := o.deps.Engine.ExecuteRefactoring(ctx, plan)
	if err != nil {
		return err
	}

	o.events.Emit(EventRefactoringComplete, map[string]interface{}{
		"success":           result.Success,
		"completed":         len(result.CompletedTasks),
		"failed":            len(result.FailedTasks),
		"tests_run":         result.TestsRun,
		"tests_passed":      result.TestsPassed,
		"rollback_required": result.RollbackRequired,
	})
	return nil
}

// validateConsistency checks the batch's aftermath against the working tree
// and reports violations as non-fatal validation events.
func (o *Orchestrator) validateConsistency(config Config, result *types.AnalysisResult) {
	for _, change := range result.Changes {
		path := filepath.Join(config.ProjectPath, change.Path)
		_, err := os.Stat(path)

		switch change.Kind {
		case types.ChangeDeleted:
			if err == nil {
				o.emitValidationFailure(change.Path, "file reported deleted but still present")
			}
		default:
			if os.IsNotExist(err) {
				o.emitValidationFailure(change.Path, "file reported changed but missing")
			}
		}
	}
}

func (o *Orchestrator) emitValidationFailure(path, reason string) {
	o.events.Emit(EventValidationFailed, map[string]interface{}{
		"path":   path,
		"reason": reason,
	})
	o.log.Warn().Str("path", path).Msg(reason)
}

func (o *Orchestrator) recordError() {
	o.mu.Lock()
	o.status.Errors++
	o.mu.Unlock()
}

// OnTaskStart implements refactor.ExecutionListener
func (o *Orchestrator) OnTaskStart(task types.RefactoringTask) {
	o.events.Emit(EventTaskStart, taskData(task))
}

// OnTaskComplete implements refactor.ExecutionListener
func (o *Orchestrator) OnTaskComplete(task types.RefactoringTask, diff string) {
	data := taskData(task)
	if diff != "" {
		data["diff"] = diff
	}
	o.events.Emit(EventTaskComplete, data)
}

// OnTaskFailed implements refactor.ExecutionListener
func (o *Orchestrator) OnTaskFailed(task types.RefactoringTask, err error) {
	data := taskData(task)
	data["error"] = err.Error()
	o.events.Emit(EventTaskFailed, data)
}

// OnRollback implements refactor.ExecutionListener
func (o *Orchestrator) OnRollback(runID string, restored []string) {
	o.events.Emit(EventRefactoringRollback, map[string]interface{}{
		"run_id":   runID,
		"restored": restored,
	})
}

func taskData(task types.RefactoringTask) map[string]interface{} {
	return map[string]interface{}{
		"target":   task.Target,
		"type":     string(task.Type),
		"priority": string(task.Priority),
	}
}
