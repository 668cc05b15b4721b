package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refactord/refactord/internal/types"
	"github.com/refactord/refactord/pkg/refactor"
)

type stubAnalyzer struct {
	mu     sync.Mutex
	result *types.AnalysisResult
	err    error
	calls  int
}

func (a *stubAnalyzer) AnalyzeChanges(_ context.Context, changes []types.FileChange) (*types.AnalysisResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	if a.result != nil {
		copied := *a.result
		copied.Changes = changes
		return &copied, nil
	}
	return &types.AnalysisResult{Changes: changes, OverallImpact: types.ImpactPatch}, nil
}

func (a *stubAnalyzer) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

type stubSources struct {
	files map[string]string
	graph map[string][]string
	err   error
}

func (s *stubSources) CollectSources(context.Context) (map[string]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.files, nil
}

func (s *stubSources) ImportGraph(map[string]string) map[string][]string {
	return s.graph
}

type stubSuggester struct {
	tasks []types.RefactoringTask
	err   error
}

func (s stubSuggester) Suggest(context.Context, *types.AnalysisResult) ([]types.RefactoringTask, error) {
	return s.tasks, s.err
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(_, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

type recordingDocs struct {
	mu      sync.Mutex
	applied int
	err     error
}

func (d *recordingDocs) Apply(context.Context, *types.AnalysisResult) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.applied++
	return nil
}

func (d *recordingDocs) applyCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.applied
}

type recordingBranches struct {
	mu      sync.Mutex
	reasons []string
}

func (b *recordingBranches) CreateBranch(_ context.Context, reason string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reasons = append(b.reasons, reason)
	return nil
}

func (b *recordingBranches) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.reasons)
}

type passingRunner struct{}

func (passingRunner) Run(context.Context, types.RefactoringTask) (types.TestReport, error) {
	return types.TestReport{Total: 3, Passed: 3}, nil
}

func newTestEngine(t *testing.T, root string) *refactor.Engine {
	t.Helper()
	executor := refactor.NewExecutor(
		refactor.ExecutorConfig{ProjectRoot: root},
		nil,
		passingRunner{},
		nil,
		zerolog.Nop(),
	)
	return refactor.NewEngine(executor, zerolog.Nop())
}

func newTestOrchestrator(t *testing.T, config Config, deps Deps) *Orchestrator {
	t.Helper()
	if deps.Analyzer == nil {
		deps.Analyzer = &stubAnalyzer{}
	}
	if deps.Engine == nil {
		deps.Engine = newTestEngine(t, config.ProjectPath)
	}
	o, err := New(config, deps, zerolog.Nop())
	require.NoError(t, err)
	return o
}

// waitForEvent drains the subscription until the wanted type arrives,
// returning every event seen on the way.
func waitForEvent(t *testing.T, events chan Event, want EventType) []Event {
	t.Helper()
	var seen []Event
	deadline := time.After(5 * time.Second)
	for {
		select {
		case event := <-events:
			seen = append(seen, event)
			if event.Type == want {
				return seen
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s, saw %d events", want, len(seen))
		}
	}
}

func hasEvent(events []Event, want EventType) bool {
	for _, e := range events {
		if e.Type == want {
			return true
		}
	}
	return false
}

// complexSource crosses the complexity threshold so planning yields a task
func complexSource() string {
	var b strings.Builder
	b.WriteString("function busy(x) {\n")
	for i := 0; i < 12; i++ {
		b.WriteString("  if (x) { x--; }\n")
	}
	b.WriteString("  return x;\n}\n")
	return b.String()
}

func TestOrchestrator_StartStopLifecycle(t *testing.T) {
	o := newTestOrchestrator(t, DefaultConfig(t.TempDir()), Deps{})

	batches := make(chan []types.FileChange)
	errs := make(chan error)

	require.NoError(t, o.Start(batches, errs))
	assert.True(t, o.GetStatus().Running)
	assert.ErrorIs(t, o.Start(batches, errs), ErrAlreadyRunning)

	require.NoError(t, o.Stop())
	assert.False(t, o.GetStatus().Running)
	assert.ErrorIs(t, o.Stop(), ErrNotRunning)
	assert.ErrorIs(t, o.ForceAnalysis(context.Background(), "a.js"), ErrNotRunning)
}

func TestOrchestrator_ProcessesBatchesInOrder(t *testing.T) {
	analyzer := &stubAnalyzer{}
	o := newTestOrchestrator(t, DefaultConfig(t.TempDir()), Deps{Analyzer: analyzer})

	events := o.Events().Subscribe()
	defer o.Events().Unsubscribe(events)

	batches := make(chan []types.FileChange, 2)
	require.NoError(t, o.Start(batches, nil))
	defer func() { _ = o.Stop() }()

	batches <- []types.FileChange{{Path: "a.js", Kind: types.ChangeModified}}
	batches <- []types.FileChange{
		{Path: "b.js", Kind: types.ChangeModified},
		{Path: "c.js", Kind: types.ChangeCreated},
	}

	waitForEvent(t, events, EventProcessingComplete)
	waitForEvent(t, events, EventProcessingComplete)

	status := o.GetStatus()
	assert.Equal(t, 3, status.ChangesProcessed)
	assert.Equal(t, 2, analyzer.callCount())
	assert.Equal(t, 0, status.Errors)
	assert.False(t, status.LastUpdate.IsZero())
}

func TestOrchestrator_AnalyzerFailureKeepsConsumerAlive(t *testing.T) {
	analyzer := &stubAnalyzer{err: errors.New("analyzer offline")}
	o := newTestOrchestrator(t, DefaultConfig(t.TempDir()), Deps{Analyzer: analyzer})

	events := o.Events().Subscribe()
	defer o.Events().Unsubscribe(events)

	batches := make(chan []types.FileChange, 2)
	require.NoError(t, o.Start(batches, nil))
	defer func() { _ = o.Stop() }()

	batches <- []types.FileChange{{Path: "a.js", Kind: types.ChangeModified}}
	waitForEvent(t, events, EventProcessingError)

	analyzer.mu.Lock()
	analyzer.err = nil
	analyzer.mu.Unlock()

	batches <- []types.FileChange{{Path: "b.js", Kind: types.ChangeModified}}
	waitForEvent(t, events, EventProcessingComplete)

	status := o.GetStatus()
	assert.Equal(t, 1, status.Errors)
	assert.Equal(t, 2, status.ChangesProcessed)
}

func TestOrchestrator_BreakingChanges(t *testing.T) {
	tests := []struct {
		name         string
		autoUpdate   bool
		wantBranches int
	}{
		{name: "notifies without branching by default", autoUpdate: false, wantBranches: 0},
		{name: "creates branch under auto update", autoUpdate: true, wantBranches: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := &stubAnalyzer{result: &types.AnalysisResult{OverallImpact: types.ImpactBreaking}}
			notifier := &recordingNotifier{}
			branches := &recordingBranches{}

			config := DefaultConfig(t.TempDir())
			config.AutoUpdate = tt.autoUpdate
			o := newTestOrchestrator(t, config, Deps{
				Analyzer: analyzer,
				Notifier: notifier,
				Branches: branches,
			})

			events := o.Events().Subscribe()
			defer o.Events().Unsubscribe(events)

			batches := make(chan []types.FileChange, 1)
			require.NoError(t, o.Start(batches, nil))
			defer func() { _ = o.Stop() }()

			batches <- []types.FileChange{{Path: "api.js", Kind: types.ChangeModified, Breaking: true}}
			seen := waitForEvent(t, events, EventProcessingComplete)

			assert.True(t, hasEvent(seen, EventBreakingChanges))
			assert.True(t, hasEvent(seen, EventNotification))
			assert.Equal(t, 1, notifier.count())
			assert.Equal(t, tt.wantBranches, branches.count())
		})
	}
}

func TestOrchestrator_DocumentationApprovalFlow(t *testing.T) {
	analyzer := &stubAnalyzer{result: &types.AnalysisResult{
		OverallImpact: types.ImpactMinor,
		DocumentationUpdates: []types.DocumentationUpdate{
			{Target: "api.js", Section: "API", Summary: "exported surface changed"},
		},
	}}
	updater := &recordingDocs{}

	o := newTestOrchestrator(t, DefaultConfig(t.TempDir()), Deps{
		Analyzer: analyzer,
		Docs:     updater,
	})

	events := o.Events().Subscribe()
	defer o.Events().Unsubscribe(events)

	batches := make(chan []types.FileChange, 1)
	require.NoError(t, o.Start(batches, nil))
	defer func() { _ = o.Stop() }()

	batches <- []types.FileChange{{Path: "api.js", Kind: types.ChangeModified}}
	seen := waitForEvent(t, events, EventProcessingComplete)

	require.True(t, hasEvent(seen, EventApprovalRequired))
	assert.Equal(t, 0, updater.applyCount())

	pending := o.GetApprovalQueue()
	require.Len(t, pending, 1)
	assert.Equal(t, ApprovalDocumentation, pending[0].Kind)

	// Unknown ids fail without touching the pending entry
	err := o.ApproveUpdate(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, ErrApprovalNotFound)
	assert.Len(t, o.GetApprovalQueue(), 1)

	require.NoError(t, o.ApproveUpdate(context.Background(), pending[0].ID))
	assert.Equal(t, 1, updater.applyCount())
	assert.Empty(t, o.GetApprovalQueue())
}

func TestOrchestrator_RejectDiscardsWithoutApplying(t *testing.T) {
	analyzer := &stubAnalyzer{result: &types.AnalysisResult{
		OverallImpact: types.ImpactMinor,
		DocumentationUpdates: []types.DocumentationUpdate{
			{Target: "util.js", Section: "API", Summary: "exported surface changed"},
		},
	}}
	updater := &recordingDocs{}

	o := newTestOrchestrator(t, DefaultConfig(t.TempDir()), Deps{
		Analyzer: analyzer,
		Docs:     updater,
	})

	events := o.Events().Subscribe()
	defer o.Events().Unsubscribe(events)

	batches := make(chan []types.FileChange, 1)
	require.NoError(t, o.Start(batches, nil))
	defer func() { _ = o.Stop() }()

	batches <- []types.FileChange{{Path: "util.js", Kind: types.ChangeModified}}
	waitForEvent(t, events, EventProcessingComplete)

	pending := o.GetApprovalQueue()
	require.Len(t, pending, 1)

	require.NoError(t, o.RejectUpdate(pending[0].ID))
	assert.Empty(t, o.GetApprovalQueue())
	assert.Equal(t, 0, updater.applyCount())

	assert.ErrorIs(t, o.RejectUpdate(pending[0].ID), ErrApprovalNotFound)
}

func TestOrchestrator_AutoUpdateAppliesDocsDirectly(t *testing.T) {
	analyzer := &stubAnalyzer{result: &types.AnalysisResult{
		OverallImpact: types.ImpactMinor,
		DocumentationUpdates: []types.DocumentationUpdate{
			{Target: "api.js", Section: "API", Summary: "exported surface changed"},
		},
	}}
	updater := &recordingDocs{}

	config := DefaultConfig(t.TempDir())
	config.AutoUpdate = true
	o := newTestOrchestrator(t, config, Deps{Analyzer: analyzer, Docs: updater})

	events := o.Events().Subscribe()
	defer o.Events().Unsubscribe(events)

	batches := make(chan []types.FileChange, 1)
	require.NoError(t, o.Start(batches, nil))
	defer func() { _ = o.Stop() }()

	batches <- []types.FileChange{{Path: "api.js", Kind: types.ChangeModified}}
	seen := waitForEvent(t, events, EventProcessingComplete)

	assert.False(t, hasEvent(seen, EventApprovalRequired))
	assert.Equal(t, 1, updater.applyCount())
	assert.Empty(t, o.GetApprovalQueue())
}

func TestOrchestrator_RefactoringApprovalGate(t *testing.T) {
	root := t.TempDir()
	source := complexSource()
	require.NoError(t, os.WriteFile(filepath.Join(root, "busy.js"), []byte(source), 0o600))

	sources := &stubSources{files: map[string]string{"busy.js": source}}

	config := DefaultConfig(root)
	config.RequireApproval = true
	o := newTestOrchestrator(t, config, Deps{
		Analyzer: &stubAnalyzer{},
		Sources:  sources,
	})

	events := o.Events().Subscribe()
	defer o.Events().Unsubscribe(events)

	batches := make(chan []types.FileChange, 1)
	require.NoError(t, o.Start(batches, nil))
	defer func() { _ = o.Stop() }()

	batches <- []types.FileChange{{Path: "busy.js", Kind: types.ChangeModified}}
	seen := waitForEvent(t, events, EventProcessingComplete)

	assert.True(t, hasEvent(seen, EventPlanCreated))
	require.True(t, hasEvent(seen, EventRefactoringApprovalRequired))
	assert.False(t, hasEvent(seen, EventRefactoringStart))

	pending := o.GetApprovalQueue()
	require.Len(t, pending, 1)
	assert.Equal(t, ApprovalRefactoring, pending[0].Kind)

	require.NoError(t, o.ApproveUpdate(context.Background(), pending[0].ID))
	seen = waitForEvent(t, events, EventRefactoringComplete)
	assert.True(t, hasEvent(seen, EventRefactoringStart))
	assert.True(t, hasEvent(seen, EventTaskStart))
	assert.True(t, hasEvent(seen, EventTaskComplete))
}

func TestOrchestrator_RefactoringWithoutApprovalGate(t *testing.T) {
	root := t.TempDir()
	source := complexSource()
	require.NoError(t, os.WriteFile(filepath.Join(root, "busy.js"), []byte(source), 0o600))

	sources := &stubSources{files: map[string]string{"busy.js": source}}

	config := DefaultConfig(root)
	config.RequireApproval = false
	o := newTestOrchestrator(t, config, Deps{
		Analyzer: &stubAnalyzer{},
		Sources:  sources,
	})

	events := o.Events().Subscribe()
	defer o.Events().Unsubscribe(events)

	batches := make(chan []types.FileChange, 1)
	require.NoError(t, o.Start(batches, nil))
	defer func() { _ = o.Stop() }()

	batches <- []types.FileChange{{Path: "busy.js", Kind: types.ChangeModified}}
	seen := waitForEvent(t, events, EventProcessingComplete)

	assert.True(t, hasEvent(seen, EventPlanCreated))
	assert.True(t, hasEvent(seen, EventRefactoringStart))
	assert.True(t, hasEvent(seen, EventRefactoringComplete))
	assert.False(t, hasEvent(seen, EventRefactoringApprovalRequired))
	assert.Empty(t, o.GetApprovalQueue())
}

// Suggested tasks must land in the plan the batch produces, not just in the
// analysis result.
func TestOrchestrator_SuggestionsReachThePlan(t *testing.T) {
	suggested := types.RefactoringTask{
		Target:              "handler.js",
		Type:                types.TaskRename,
		Priority:            types.PriorityHigh,
		Description:         "rename handler to reflect its responsibilities",
		EstimatedComplexity: 2,
	}

	o := newTestOrchestrator(t, DefaultConfig(t.TempDir()), Deps{
		Analyzer:    &stubAnalyzer{},
		Sources:     &stubSources{files: map[string]string{}},
		Suggestions: stubSuggester{tasks: []types.RefactoringTask{suggested}},
	})

	events := o.Events().Subscribe()
	defer o.Events().Unsubscribe(events)

	batches := make(chan []types.FileChange, 1)
	require.NoError(t, o.Start(batches, nil))
	defer func() { _ = o.Stop() }()

	batches <- []types.FileChange{{Path: "handler.js", Kind: types.ChangeModified}}
	seen := waitForEvent(t, events, EventProcessingComplete)

	// The clean project yields no scanner tasks; the plan exists because of
	// the suggestion alone.
	require.True(t, hasEvent(seen, EventPlanCreated))
	require.True(t, hasEvent(seen, EventRefactoringApprovalRequired))

	pending := o.GetApprovalQueue()
	require.Len(t, pending, 1)
	plan, ok := pending[0].Payload.(*types.RefactoringPlan)
	require.True(t, ok)
	require.Len(t, plan.Tasks, 1)
	assert.Equal(t, suggested, plan.Tasks[0])
}

func TestOrchestrator_SuggestionFailureIsLogOnly(t *testing.T) {
	o := newTestOrchestrator(t, DefaultConfig(t.TempDir()), Deps{
		Analyzer:    &stubAnalyzer{},
		Suggestions: stubSuggester{err: errors.New("suggestion backend offline")},
	})

	events := o.Events().Subscribe()
	defer o.Events().Unsubscribe(events)

	batches := make(chan []types.FileChange, 1)
	require.NoError(t, o.Start(batches, nil))
	defer func() { _ = o.Stop() }()

	batches <- []types.FileChange{{Path: "a.js", Kind: types.ChangeModified}}
	waitForEvent(t, events, EventProcessingComplete)

	assert.Equal(t, 0, o.GetStatus().Errors)
}

func TestOrchestrator_SkipsRefactoringWithoutSources(t *testing.T) {
	o := newTestOrchestrator(t, DefaultConfig(t.TempDir()), Deps{Analyzer: &stubAnalyzer{}})

	events := o.Events().Subscribe()
	defer o.Events().Unsubscribe(events)

	batches := make(chan []types.FileChange, 1)
	require.NoError(t, o.Start(batches, nil))
	defer func() { _ = o.Stop() }()

	batches <- []types.FileChange{{Path: "a.js", Kind: types.ChangeModified}}
	seen := waitForEvent(t, events, EventProcessingComplete)

	assert.False(t, hasEvent(seen, EventPlanCreated))
	assert.False(t, hasEvent(seen, EventRefactoringStart))
}

func TestOrchestrator_ForceAnalysis(t *testing.T) {
	analyzer := &stubAnalyzer{}
	sources := &stubSources{files: map[string]string{
		"a.js": "const a = 1;\n",
		"b.js": "const b = 2;\n",
	}}
	o := newTestOrchestrator(t, DefaultConfig(t.TempDir()), Deps{
		Analyzer: analyzer,
		Sources:  sources,
	})

	events := o.Events().Subscribe()
	defer o.Events().Unsubscribe(events)

	batches := make(chan []types.FileChange)
	require.NoError(t, o.Start(batches, nil))
	defer func() { _ = o.Stop() }()

	require.NoError(t, o.ForceAnalysis(context.Background(), "a.js"))
	waitForEvent(t, events, EventProcessingComplete)
	assert.Equal(t, 1, o.GetStatus().ChangesProcessed)

	// No arguments means every known source file
	require.NoError(t, o.ForceAnalysis(context.Background()))
	waitForEvent(t, events, EventProcessingComplete)
	assert.Equal(t, 3, o.GetStatus().ChangesProcessed)
	assert.Equal(t, 2, o.GetStatus().FilesWatched)
}

func TestOrchestrator_WatcherErrorsAreCounted(t *testing.T) {
	o := newTestOrchestrator(t, DefaultConfig(t.TempDir()), Deps{Analyzer: &stubAnalyzer{}})

	events := o.Events().Subscribe()
	defer o.Events().Unsubscribe(events)

	batches := make(chan []types.FileChange)
	errs := make(chan error, 1)
	require.NoError(t, o.Start(batches, errs))
	defer func() { _ = o.Stop() }()

	errs <- errors.New("watch descriptor lost")
	seen := waitForEvent(t, events, EventProcessingError)
	assert.True(t, hasEvent(seen, EventProcessingError))
	assert.Equal(t, 1, o.GetStatus().Errors)
}

func TestOrchestrator_ValidationFlagsStaleDeletes(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "kept.js"), []byte("const a = 1;\n"), 0o600))

	o := newTestOrchestrator(t, DefaultConfig(root), Deps{Analyzer: &stubAnalyzer{}})

	events := o.Events().Subscribe()
	defer o.Events().Unsubscribe(events)

	batches := make(chan []types.FileChange, 1)
	require.NoError(t, o.Start(batches, nil))
	defer func() { _ = o.Stop() }()

	batches <- []types.FileChange{
		{Path: "kept.js", Kind: types.ChangeDeleted},
		{Path: "gone.js", Kind: types.ChangeModified},
	}
	seen := waitForEvent(t, events, EventProcessingComplete)

	var failures int
	for _, e := range seen {
		if e.Type == EventValidationFailed {
			failures++
		}
	}
	assert.Equal(t, 2, failures)
}

func TestOrchestrator_UpdateConfig(t *testing.T) {
	o := newTestOrchestrator(t, DefaultConfig(t.TempDir()), Deps{})

	auto := true
	debounce := 250
	timeout := 30 * time.Second
	o.UpdateConfig(ConfigPatch{
		AutoUpdate:    &auto,
		DebounceMs:    &debounce,
		StepTimeout:   &timeout,
		WatchPatterns: []string{"src/**/*.ts"},
	})

	config := o.GetConfig()
	assert.True(t, config.AutoUpdate)
	assert.Equal(t, 250, config.DebounceMs)
	assert.Equal(t, 30*time.Second, config.StepTimeout)
	assert.Equal(t, []string{"src/**/*.ts"}, config.WatchPatterns)
	// Untouched fields keep their defaults
	assert.True(t, config.RequireApproval)
}
