// Package types provides the core data structures shared across refactord:
// file change batches, analysis reports, refactoring tasks, plans and results.
package types

import "time"

// ChangeKind classifies a file system change
type ChangeKind string

const (
	ChangeCreated  ChangeKind = "created"
	ChangeModified ChangeKind = "modified"
	ChangeDeleted  ChangeKind = "deleted"
)

// FileChange represents a single detected edit to a watched file
type FileChange struct {
	Path      string     `json:"path"`
	Kind      ChangeKind `json:"kind"`
	Timestamp time.Time  `json:"timestamp"`
	Breaking  bool       `json:"breaking,omitempty"`
}

// ImpactLevel grades how disruptive a batch of changes is
type ImpactLevel string

const (
	ImpactPatch    ImpactLevel = "patch"
	ImpactMinor    ImpactLevel = "minor"
	ImpactMajor    ImpactLevel = "major"
	ImpactBreaking ImpactLevel = "breaking"
)

// DependencyEdge is a directed import relation between two files
type DependencyEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// DocumentationUpdate describes one documentation artifact to regenerate
type DocumentationUpdate struct {
	Target  string `json:"target"`
	Section string `json:"section"`
	Summary string `json:"summary"`
}

// AnalysisResult is the impact report produced by an Analyzer for one batch
type AnalysisResult struct {
	Changes              []FileChange          `json:"changes"`
	Dependencies         []DependencyEdge      `json:"dependencies"`
	RefactoringTasks     []RefactoringTask     `json:"refactoring_tasks"`
	OverallImpact        ImpactLevel           `json:"overall_impact"`
	DocumentationUpdates []DocumentationUpdate `json:"documentation_updates"`
}

// HasBreakingChanges reports whether the result carries any breaking change,
// either as the overall impact or flagged on an individual file.
func (r *AnalysisResult) HasBreakingChanges() bool {
	if r.OverallImpact == ImpactBreaking {
		return true
	}
	for _, c := range r.Changes {
		if c.Breaking {
			return true
		}
	}
	return false
}

// TaskType identifies the transformation a refactoring task requires
type TaskType string

const (
	TaskExtract  TaskType = "extract"
	TaskRename   TaskType = "rename"
	TaskMove     TaskType = "move"
	TaskOptimize TaskType = "optimize"
	TaskCleanup  TaskType = "cleanup"
)

// Priority ranks how urgently a task should run
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank maps a priority onto an ordinal for sorting, highest first
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// RefactoringTask is a single planned code improvement. Tasks are immutable
// once planned and consumed exactly once by the executor.
type RefactoringTask struct {
	Target              string   `json:"target"`
	Type                TaskType `json:"type"`
	Priority            Priority `json:"priority"`
	Description         string   `json:"description"`
	EstimatedComplexity int      `json:"estimated_complexity"`
}

// TestRequirement names a test suite the plan requires before acceptance
type TestRequirement struct {
	Suite      string `json:"suite"`
	Importance string `json:"importance"`
	Target     string `json:"target"`
}

// RollbackStrategy describes how a failed plan execution is unwound
type RollbackStrategy struct {
	Method          string   `json:"method"`
	Checkpoints     []string `json:"checkpoints"`
	ValidationSteps []string `json:"validation_steps"`
}

// RiskLevel is the coarse blast-radius classification of a plan
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// RefactoringPlan is the ordered, risk-scored output of the planner.
// It is a value object: produced once per planning call, never mutated.
type RefactoringPlan struct {
	Tasks         []RefactoringTask `json:"tasks"`
	EstimatedTime time.Duration     `json:"estimated_time"`
	RiskLevel     RiskLevel         `json:"risk_level"`
	RequiredTests []TestRequirement `json:"required_tests"`
	Rollback      RollbackStrategy  `json:"rollback"`
}

// RefactoringResult reports the outcome of executing a plan.
// Success holds iff FailedTasks is empty; RollbackRequired holds iff more
// tasks failed than completed.
type RefactoringResult struct {
	Success          bool              `json:"success"`
	CompletedTasks   []RefactoringTask `json:"completed_tasks"`
	FailedTasks      []RefactoringTask `json:"failed_tasks"`
	TestsRun         int               `json:"tests_run"`
	TestsPassed      int               `json:"tests_passed"`
	RollbackRequired bool              `json:"rollback_required"`
}

// TestReport is the outcome of one test-runner invocation for a task
type TestReport struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
}

// AllPassed reports whether every executed test passed
func (r TestReport) AllPassed() bool {
	return r.Passed == r.Total
}
