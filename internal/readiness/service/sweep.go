package service

import (
	"context"
	"fmt"
	"time"

	"mirathi/internal/readiness/models"
	id "mirathi/pkg/domain"
	"mirathi/pkg/platform/audit"
)

// sweepTrigger labels timeout-driven auto-resolutions in metrics and events.
const sweepTrigger = "timeout"

// SweepDue lists assessments holding at least one active flag whose
// auto-resolve deadline elapsed by due. The sweep worker fans out over the
// result.
func (s *Service) SweepDue(ctx context.Context, due time.Time, limit int) ([]id.AssessmentID, error) {
	ids, err := s.store.ListSweepDue(ctx, due, limit)
	if err != nil {
		return nil, wrapAssessmentErr(err)
	}
	return ids, nil
}

// SweepAutoResolveTimeouts closes every risk flag on the assessment whose
// deadline elapsed by now, with method=timeout and resolvedBy=system.
// Returns the number of flags closed; zero when nothing was due.
func (s *Service) SweepAutoResolveTimeouts(ctx context.Context, assessmentID id.AssessmentID, now time.Time) (int, error) {
	if err := requireAssessmentID(assessmentID); err != nil {
		return 0, err
	}

	var (
		assessment *models.ReadinessAssessment
		events     []models.DomainEvent
		closed     int
	)
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		a, err := s.store.FindByID(txCtx, assessmentID)
		if err != nil {
			return wrapAssessmentErr(err)
		}
		raised, n, err := a.AutoResolveTimedOut(now)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		if err := s.persist(txCtx, a, raised, now); err != nil {
			return err
		}
		s.auditEmitter.emit(txCtx, audit.EventSweepCompleted, audit.Event{
			AssessmentID: a.ID,
			EstateID:     a.EstateID,
			Reason:       fmt.Sprintf("%d risk flags timed out", n),
			ActorID:      "system",
		})
		assessment, events, closed = a, raised, n
		return nil
	})
	if err != nil {
		return 0, err
	}

	if closed > 0 {
		s.recordEventMetrics(events)
		s.incrementAutoResolutions(sweepTrigger, closed)
		s.invalidateCache(ctx, assessment)
	}
	return closed, nil
}
