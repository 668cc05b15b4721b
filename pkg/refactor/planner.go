// Package refactor contains the refactoring engine: the planner that turns
// scanner findings into a prioritized plan, the snapshot arena and strategy
// registry, and the executor that applies tasks under test-gated rollback.
package refactor

import (
	"fmt"
	"sort"
	"time"

	"github.com/refactord/refactord/internal/types"
	"github.com/refactord/refactord/pkg/scanner"
)

// minutesPerComplexityPoint converts estimated complexity into wall time
const minutesPerComplexityPoint = 10

// rollbackValidationSteps is the fixed checklist attached to every plan
var rollbackValidationSteps = []string{
	"run full test suite",
	"verify build succeeds",
	"check for behavioral regressions",
}

// Planner converts scanner findings into an ordered RefactoringPlan
type Planner struct{}

// NewPlanner creates a planner
func NewPlanner() *Planner {
	return &Planner{}
}

// Plan builds a plan from the three scanners' findings plus any externally
// suggested tasks. Suggested tasks ride the same prioritization, risk and
// time estimation as scanner output; a suggestion duplicating a scanner
// task's target and type is dropped. Tasks are ordered by priority rank
// descending, ties broken by estimated complexity descending.
func (p *Planner) Plan(complexity []scanner.ComplexityIssue, duplications []scanner.Duplication, dependencies []scanner.DependencyIssue, suggested []types.RefactoringTask) *types.RefactoringPlan {
	var tasks []types.RefactoringTask

	for _, issue := range complexity {
		tasks = append(tasks, types.RefactoringTask{
			Target:              issue.File,
			Type:                types.TaskExtract,
			Priority:            issue.Priority,
			Description:         fmt.Sprintf("reduce complexity of %s (score %d): %s", issue.File, issue.Score, issue.Suggestion),
			EstimatedComplexity: complexityEstimate(issue.Score),
		})
	}

	for _, dup := range duplications {
		if len(dup.Blocks) == 0 {
			continue
		}
		lines := 0
		for _, b := range dup.Blocks {
			lines += b.Lines
		}
		tasks = append(tasks, types.RefactoringTask{
			Target:              dup.Files[0],
			Type:                types.TaskExtract,
			Priority:            types.PriorityMedium,
			Description:         fmt.Sprintf("extract %d duplicated lines shared between %s and %s", lines, dup.Files[0], dup.Files[1]),
			EstimatedComplexity: duplicationEstimate(lines),
		})
	}

	for _, issue := range dependencies {
		task := types.RefactoringTask{
			Target:              issue.Files[0],
			Type:                types.TaskExtract,
			Priority:            types.PriorityMedium,
			Description:         issue.Description,
			EstimatedComplexity: 2,
		}
		if issue.Kind == scanner.DependencyCircular {
			task.Type = types.TaskMove
			task.Priority = types.PriorityHigh
			task.EstimatedComplexity = 2 * len(issue.Files)
		}
		tasks = append(tasks, task)
	}

	tasks = mergeSuggested(tasks, suggested)
	tasks = prioritizeTasks(tasks)

	return &types.RefactoringPlan{
		Tasks:         tasks,
		EstimatedTime: estimatedTime(tasks),
		RiskLevel:     assessRisk(tasks),
		RequiredTests: requiredTests(tasks),
		Rollback:      rollbackStrategy(tasks),
	}
}

// mergeSuggested appends suggested tasks, skipping any whose target and type
// a scanner task already covers, plus any without a target. A suggestion
// with no complexity estimate is charged one point so it still counts
// toward time and risk.
func mergeSuggested(tasks, suggested []types.RefactoringTask) []types.RefactoringTask {
	seen := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		seen[t.Target+"|"+string(t.Type)] = true
	}

	for _, s := range suggested {
		if s.Target == "" {
			continue
		}
		key := s.Target + "|" + string(s.Type)
		if seen[key] {
			continue
		}
		seen[key] = true
		if s.EstimatedComplexity < 1 {
			s.EstimatedComplexity = 1
		}
		tasks = append(tasks, s)
	}
	return tasks
}

// prioritizeTasks orders tasks by (priority rank, estimated complexity),
// both descending. The sort is stable so equal tasks keep scan order.
func prioritizeTasks(tasks []types.RefactoringTask) []types.RefactoringTask {
	sorted := append([]types.RefactoringTask{}, tasks...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority.Rank() != sorted[j].Priority.Rank() {
			return sorted[i].Priority.Rank() > sorted[j].Priority.Rank()
		}
		return sorted[i].EstimatedComplexity > sorted[j].EstimatedComplexity
	})
	return sorted
}

// estimatedTime sums task complexity at ten minutes per point
func estimatedTime(tasks []types.RefactoringTask) time.Duration {
	total := 0
	for _, t := range tasks {
		total += t.EstimatedComplexity
	}
	return time.Duration(total*minutesPerComplexityPoint) * time.Minute
}

// assessRisk grades the plan's blast radius from priority counts and total
// complexity: high above 3 high-priority tasks or 50 total points, medium
// above 1 high-priority task or 20 points, low otherwise.
func assessRisk(tasks []types.RefactoringTask) types.RiskLevel {
	highCount := 0
	total := 0
	for _, t := range tasks {
		if t.Priority == types.PriorityHigh {
			highCount++
		}
		total += t.EstimatedComplexity
	}

	switch {
	case highCount > 3 || total > 50:
		return types.RiskHigh
	case highCount > 1 || total > 20:
		return types.RiskMedium
	default:
		return types.RiskLow
	}
}

// requiredTests derives one test requirement per task: integration/critical
// for high-priority tasks, unit/important for the rest.
func requiredTests(tasks []types.RefactoringTask) []types.TestRequirement {
	reqs := make([]types.TestRequirement, 0, len(tasks))
	for _, t := range tasks {
		req := types.TestRequirement{Suite: "unit", Importance: "important", Target: t.Target}
		if t.Priority == types.PriorityHigh {
			req.Suite = "integration"
			req.Importance = "critical"
		}
		reqs = append(reqs, req)
	}
	return reqs
}

// rollbackStrategy labels one snapshot checkpoint per task
func rollbackStrategy(tasks []types.RefactoringTask) types.RollbackStrategy {
	checkpoints := make([]string, 0, len(tasks))
	for i, t := range tasks {
		checkpoints = append(checkpoints, fmt.Sprintf("checkpoint-%d-%s-%s", i+1, t.Type, t.Target))
	}
	return types.RollbackStrategy{
		Method:          "snapshot",
		Checkpoints:     checkpoints,
		ValidationSteps: append([]string{}, rollbackValidationSteps...),
	}
}

// complexityEstimate scales a branch score into complexity points
func complexityEstimate(score int) int {
	estimate := score / 5
	if estimate < 1 {
		estimate = 1
	}
	return estimate
}

// duplicationEstimate scales duplicated line count into complexity points
func duplicationEstimate(lines int) int {
	estimate := lines / 5
	if estimate < 1 {
		estimate = 1
	}
	return estimate
}
