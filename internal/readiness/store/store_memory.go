package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"mirathi/internal/readiness/models"
	"mirathi/internal/sentinel"
	"mirathi/pkg/domain"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return sentinel.ErrNotFound when the requested assessment does not exist
// - Return sentinel.ErrAlreadyExists when Create collides on assessment ID or estate
// - Return sentinel.ErrVersionConflict when Update carries a stale version
// - Return nil for successful operations
// - Return wrapped errors with context for infrastructure failures

// InMemoryStore keeps assessments in memory for tests and local runs.
// Aggregates are cloned on every read and write so callers never share
// memory with the stored copy.
type InMemoryStore struct {
	mu          sync.RWMutex
	assessments map[domain.AssessmentID]*models.ReadinessAssessment
	byEstate    map[domain.EstateID]domain.AssessmentID
}

// New constructs an empty in-memory assessment store.
func New() *InMemoryStore {
	return &InMemoryStore{
		assessments: make(map[domain.AssessmentID]*models.ReadinessAssessment),
		byEstate:    make(map[domain.EstateID]domain.AssessmentID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, assessment *models.ReadinessAssessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assessments[assessment.ID]; ok {
		return sentinel.ErrAlreadyExists
	}
	if _, ok := s.byEstate[assessment.EstateID]; ok {
		return sentinel.ErrAlreadyExists
	}
	s.assessments[assessment.ID] = assessment.Clone()
	s.byEstate[assessment.EstateID] = assessment.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, assessmentID domain.AssessmentID) (*models.ReadinessAssessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.assessments[assessmentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return stored.Clone(), nil
}

func (s *InMemoryStore) FindByEstate(_ context.Context, estateID domain.EstateID) (*models.ReadinessAssessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	assessmentID, ok := s.byEstate[estateID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	stored, ok := s.assessments[assessmentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return stored.Clone(), nil
}

// Update persists a mutated aggregate guarded by its version. The caller's
// aggregate must carry the version it was loaded with; on success the store
// advances the version on both its copy and the caller's aggregate.
func (s *InMemoryStore) Update(_ context.Context, assessment *models.ReadinessAssessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.assessments[assessment.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.Version != assessment.Version {
		return sentinel.ErrVersionConflict
	}
	assessment.Version++
	s.assessments[assessment.ID] = assessment.Clone()
	return nil
}

// ListSweepDue returns IDs of open assessments holding at least one active
// flag whose auto-resolve deadline is at or before due. Results are ordered
// by ID so repeated sweeps walk assessments in a stable order.
func (s *InMemoryStore) ListSweepDue(_ context.Context, due time.Time, limit int) ([]domain.AssessmentID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []domain.AssessmentID
	for _, assessment := range s.assessments {
		if assessment.IsComplete {
			continue
		}
		if len(assessment.SweepCandidates(due)) == 0 {
			continue
		}
		ids = append(ids, assessment.ID)
	}
	slices.SortFunc(ids, func(a, b domain.AssessmentID) int {
		return strings.Compare(a.String(), b.String())
	})
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}
