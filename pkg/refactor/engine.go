package refactor

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/refactord/refactord/internal/types"
	"github.com/refactord/refactord/pkg/scanner"
)

// Engine composes the issue scanners, the planner and the executor behind
// the two operations the orchestrator drives: plan and execute.
type Engine struct {
	complexity  *scanner.ComplexityScanner
	duplication *scanner.DuplicationDetector
	cycles      *scanner.CycleDetector
	planner     *Planner
	executor    *Executor
	log         zerolog.Logger
}

// NewEngine creates a refactoring engine around the given executor
func NewEngine(executor *Executor, log zerolog.Logger) *Engine {
	return &Engine{
		complexity:  scanner.NewComplexityScanner(),
		duplication: scanner.NewDuplicationDetector(),
		cycles:      scanner.NewCycleDetector(),
		planner:     NewPlanner(),
		executor:    executor,
		log:         log.With().Str("component", "engine").Logger(),
	}
}

// PlanRefactoring scans the given file contents and import graph, folds in
// any externally suggested tasks, and returns a prioritized plan. The plan
// is a value object; callers must not mutate it.
func (e *Engine) PlanRefactoring(ctx context.Context, files map[string]string, graph map[string][]string, suggested []types.RefactoringTask) (*types.RefactoringPlan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	complexityIssues := e.complexity.ScanAll(files)
	duplications := e.scanDuplication(files)
	dependencyIssues := append(e.cycles.Detect(graph), e.cycles.DetectDangling(graph)...)

	plan := e.planner.Plan(complexityIssues, duplications, dependencyIssues, suggested)
	e.log.Info().
		Int("tasks", len(plan.Tasks)).
		Str("risk", string(plan.RiskLevel)).
		Dur("estimated_time", plan.EstimatedTime).
		Msg("refactoring plan created")

	return plan, nil
}

// ExecuteRefactoring runs a previously created plan under a fresh snapshot run
func (e *Engine) ExecuteRefactoring(ctx context.Context, plan *types.RefactoringPlan) (*types.RefactoringResult, error) {
	return e.executor.Execute(ctx, plan)
}

// SetListener forwards a progress listener to the executor
func (e *Engine) SetListener(l ExecutionListener) {
	e.executor.SetListener(l)
}

// scanDuplication compares every ordered file pair once
func (e *Engine) scanDuplication(files map[string]string) []scanner.Duplication {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var found []scanner.Duplication
	for i := 0; i < len(paths); i++ {
		for j := i + 1; j < len(paths); j++ {
			dup := e.duplication.DetectPair(paths[i], splitLines(files[paths[i]]), paths[j], splitLines(files[paths[j]]))
			if len(dup.Blocks) > 0 {
				found = append(found, dup)
			}
		}
	}
	return found
}

// splitLines splits file content for the line-based duplication scan
func splitLines(content string) []string {
	return strings.Split(content, "\n")
}
