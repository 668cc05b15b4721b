package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrApprovalNotFound is returned for an unknown approval id
var ErrApprovalNotFound = errors.New("approval not found")

// ApprovalStatus tracks an entry through the approval gate
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// ApprovalKind distinguishes what an entry gates
type ApprovalKind string

const (
	ApprovalDocumentation ApprovalKind = "documentation"
	ApprovalRefactoring   ApprovalKind = "refactoring"
)

// Approval is one pending decision in the queue. Payload holds the
// AnalysisResult or RefactoringPlan awaiting the decision.
type Approval struct {
	ID        string         `json:"id"`
	Kind      ApprovalKind   `json:"kind"`
	Payload   interface{}    `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
	Status    ApprovalStatus `json:"status"`
}

// approvalAction is the deferred work replayed on approval
type approvalAction func(ctx context.Context) error

type approvalEntry struct {
	approval Approval
	action   approvalAction
}

// approvalQueue is the in-memory store-and-replay gate. Entries have no
// expiry; they live until resolved or the process exits.
type approvalQueue struct {
	mu      sync.Mutex
	entries map[string]*approvalEntry
}

func newApprovalQueue() *approvalQueue {
	return &approvalQueue{
		entries: make(map[string]*approvalEntry),
	}
}

// Add stores a pending entry and returns it
func (q *approvalQueue) Add(kind ApprovalKind, payload interface{}, action approvalAction) Approval {
	approval := Approval{
		ID:        uuid.NewString(),
		Kind:      kind,
		Payload:   payload,
		Timestamp: time.Now(),
		Status:    ApprovalPending,
	}

	q.mu.Lock()
	q.entries[approval.ID] = &approvalEntry{approval: approval, action: action}
	q.mu.Unlock()

	return approval
}

// Approve removes the entry and replays its stored action. An unknown id
// leaves the table untouched and returns ErrApprovalNotFound.
func (q *approvalQueue) Approve(ctx context.Context, id string) error {
	q.mu.Lock()
	entry, ok := q.entries[id]
	if !ok {
		q.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrApprovalNotFound, id)
	}
	delete(q.entries, id)
	q.mu.Unlock()

	entry.approval.Status = ApprovalApproved
	return entry.action(ctx)
}

// Reject discards the entry without running its action
func (q *approvalQueue) Reject(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.entries[id]; !ok {
		return fmt.Errorf("%w: %s", ErrApprovalNotFound, id)
	}
	delete(q.entries, id)
	return nil
}

// List snapshots the pending entries, oldest first
func (q *approvalQueue) List() []Approval {
	q.mu.Lock()
	defer q.mu.Unlock()

	approvals := make([]Approval, 0, len(q.entries))
	for _, entry := range q.entries {
		approvals = append(approvals, entry.approval)
	}
	sort.Slice(approvals, func(i, j int) bool {
		return approvals[i].Timestamp.Before(approvals[j].Timestamp)
	})
	return approvals
}

// Len reports how many entries are pending
func (q *approvalQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
