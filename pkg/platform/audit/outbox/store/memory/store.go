// Package memory provides an in-memory outbox store for tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"mirathi/pkg/platform/audit/outbox"

	"github.com/google/uuid"
)

// Store implements outbox.Store in memory. Entries survive until
// DeleteProcessedBefore removes them, matching the PostgreSQL store.
type Store struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*outbox.Entry
}

func New() *Store {
	return &Store{entries: make(map[uuid.UUID]*outbox.Entry)}
}

func (s *Store) Append(_ context.Context, entry *outbox.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *entry
	s.entries[entry.ID] = &cp
	return nil
}

func (s *Store) FetchUnprocessed(_ context.Context, limit int) ([]*outbox.Entry, error) {
	if limit <= 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []*outbox.Entry
	for _, entry := range s.entries {
		if entry.IsPending() {
			cp := *entry
			pending = append(pending, &cp)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (s *Store) MarkProcessed(_ context.Context, id uuid.UUID, processedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok || !entry.IsPending() {
		return fmt.Errorf("outbox entry not found or already processed: %s", id)
	}
	entry.ProcessedAt = &processedAt
	return nil
}

func (s *Store) CountPending(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, entry := range s.entries {
		if entry.IsPending() {
			count++
		}
	}
	return count, nil
}

func (s *Store) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, entry := range s.entries {
		if entry.ProcessedAt != nil && entry.ProcessedAt.Before(before) {
			delete(s.entries, id)
			deleted++
		}
	}
	return deleted, nil
}
