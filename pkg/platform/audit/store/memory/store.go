// Package memory provides an in-memory audit store for tests and for
// running the service without a database.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	id "mirathi/pkg/domain"
	audit "mirathi/pkg/platform/audit"
)

// InMemoryStore keeps events in arrival order.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []audit.Event
	seen   map[uuid.UUID]struct{}
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{seen: make(map[uuid.UUID]struct{})}
}

// Clear drops all stored events. Test helper.
func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
	s.seen = make(map[uuid.UUID]struct{})
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// AppendWithID inserts idempotently: a duplicate event ID is a no-op,
// mirroring the PostgreSQL store's ON CONFLICT DO NOTHING.
func (s *InMemoryStore) AppendWithID(_ context.Context, eventID uuid.UUID, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.seen[eventID]; dup {
		return nil
	}
	s.seen[eventID] = struct{}{}
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListByAssessment(_ context.Context, assessmentID id.AssessmentID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	for _, event := range s.events {
		if event.AssessmentID == assessmentID {
			out = append(out, event)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events...), nil
}

func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit >= len(s.events) {
		return append([]audit.Event{}, s.events...), nil
	}
	return append([]audit.Event{}, s.events[len(s.events)-limit:]...), nil
}
