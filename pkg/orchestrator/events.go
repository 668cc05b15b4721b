package orchestrator

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventType names an orchestrator lifecycle event
type EventType string

// Lifecycle events emitted for consumers. The stream is append-only
// observability; nothing in the pipeline branches on a consumer's reaction.
const (
	EventStarted                     EventType = "started"
	EventStopped                     EventType = "stopped"
	EventProcessingStart             EventType = "processing:start"
	EventProcessingComplete          EventType = "processing:complete"
	EventProcessingError             EventType = "processing:error"
	EventBreakingChanges             EventType = "breaking:changes"
	EventApprovalRequired            EventType = "approval:required"
	EventRefactoringApprovalRequired EventType = "refactoring:approval:required"
	EventRefactoringStart            EventType = "refactoring:start"
	EventRefactoringProgress         EventType = "refactoring:progress"
	EventRefactoringRollback         EventType = "refactoring:rollback"
	EventRefactoringComplete         EventType = "refactoring:complete"
	EventTaskStart                   EventType = "task:start"
	EventTaskComplete                EventType = "task:complete"
	EventTaskFailed                  EventType = "task:failed"
	EventPlanCreated                 EventType = "plan:created"
	EventNotification                EventType = "notification"
	EventValidationFailed            EventType = "validation:failed"
)

// Event is one entry of the orchestrator's observability stream
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// EventStream fans events out to subscribers. Delivery is best-effort: a
// subscriber that stops draining its channel loses events rather than
// blocking the pipeline.
type EventStream struct {
	mu          sync.Mutex
	subscribers map[chan Event]struct{}
	buffer      int
	log         zerolog.Logger
}

// NewEventStream creates a stream with the given per-subscriber buffer
func NewEventStream(buffer int, log zerolog.Logger) *EventStream {
	if buffer <= 0 {
		buffer = 64
	}
	return &EventStream{
		subscribers: make(map[chan Event]struct{}),
		buffer:      buffer,
		log:         log.With().Str("component", "events").Logger(),
	}
}

// Subscribe registers a consumer and returns its channel
func (s *EventStream) Subscribe() chan Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Event, s.buffer)
	s.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a consumer and closes its channel
func (s *EventStream) Unsubscribe(ch chan Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subscribers[ch]; ok {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// Emit publishes an event to every subscriber without blocking
func (s *EventStream) Emit(eventType EventType, data map[string]interface{}) {
	event := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			s.log.Debug().Str("event", string(eventType)).Msg("subscriber lagging, event dropped")
		}
	}
}

// Close disconnects every subscriber
func (s *EventStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}
