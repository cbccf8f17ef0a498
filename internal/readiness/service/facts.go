package service

import (
	"context"
	"fmt"

	"mirathi/internal/readiness/models"
	id "mirathi/pkg/domain"
	dErrors "mirathi/pkg/domain-errors"
	"mirathi/pkg/platform/audit"
	"mirathi/pkg/requestcontext"
)

// Inbound facts are observations from other services: a document landed, a
// guardian was appointed, an asset check concluded. Each handler resolves
// every risk flag expecting that fact. Handlers are idempotent; redelivering
// a fact that already resolved its flags matches nothing and changes nothing,
// which is what makes at-least-once delivery safe.
//
// Facts are addressed by estate because the emitting services know estates,
// not assessment IDs.

// HandleAssetVerified closes flags waiting on verification of the given
// asset. Returns the number of flags resolved.
func (s *Service) HandleAssetVerified(ctx context.Context, estateID id.EstateID, entityID string) (int, error) {
	return s.applyFact(ctx, estateID, entityID, models.FactAssetVerified,
		models.RiskUnverifiedAsset, models.RiskAssetOwnershipDispute)
}

// HandleGuardianAppointed closes guardianship flags for the given minor.
func (s *Service) HandleGuardianAppointed(ctx context.Context, estateID id.EstateID, entityID string) (int, error) {
	return s.applyFact(ctx, estateID, entityID, models.FactGuardianAppointed,
		models.RiskMinorWithoutGuardian)
}

// HandleDeathCertificateUploaded closes the death certificate gap.
func (s *Service) HandleDeathCertificateUploaded(ctx context.Context, estateID id.EstateID, entityID string) (int, error) {
	return s.applyFact(ctx, estateID, entityID, models.FactDeathCertificateUploaded,
		models.RiskMissingDeathCertificate)
}

// HandleWillValidated closes flags waiting on the will being produced and
// validated, including standing validity challenges.
func (s *Service) HandleWillValidated(ctx context.Context, estateID id.EstateID, entityID string) (int, error) {
	return s.applyFact(ctx, estateID, entityID, models.FactWillValidated,
		models.RiskMissingWill, models.RiskWillValidityChallenge)
}

// HandleEstateValueUpdated replaces the estate value on the succession
// context, recomputing jurisdiction and everything else derived from it.
func (s *Service) HandleEstateValueUpdated(ctx context.Context, estateID id.EstateID, valueKES int64) error {
	if err := requireEstateID(estateID); err != nil {
		return err
	}
	if valueKES < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "estate value cannot be negative")
	}

	var lastErr error
	for attempt := 0; attempt < s.factRetries; attempt++ {
		lastErr = s.applyEstateValueOnce(ctx, estateID, valueKES)
		if lastErr == nil {
			s.incrementFactEventsProcessed(models.FactEstateValueUpdated, "applied")
			return nil
		}
		if !dErrors.HasCode(lastErr, dErrors.CodeConcurrencyConflict) {
			break
		}
		s.incrementConcurrencyConflicts()
	}
	s.incrementFactEventsProcessed(models.FactEstateValueUpdated, "failed")
	return lastErr
}

func (s *Service) applyEstateValueOnce(ctx context.Context, estateID id.EstateID, valueKES int64) error {
	var events []models.DomainEvent
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		a, err := s.store.FindByEstate(txCtx, estateID)
		if err != nil {
			return wrapAssessmentErr(err)
		}
		if a.IsComplete {
			return nil
		}
		params := a.Context.Params()
		params.EstateValueKES = &valueKES
		newContext, err := models.NewSuccessionContext(params)
		if err != nil {
			return err
		}
		now := requestcontext.Now(txCtx)
		raised, changed, err := a.UpdateContext(newContext, now)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		if err := s.persist(txCtx, a, raised, now); err != nil {
			return err
		}
		s.auditEmitter.emit(txCtx, audit.EventFactApplied, audit.Event{
			AssessmentID: a.ID,
			EstateID:     a.EstateID,
			Decision:     models.FactEstateValueUpdated,
			Reason:       fmt.Sprintf("estate value updated to %d KES", valueKES),
			ActorID:      "system",
		})
		events = raised
		return nil
	})
	if err != nil {
		return err
	}
	s.recordEventMetrics(events)
	return nil
}

// applyFact runs one auto-resolution pass per category, retrying the whole
// fact when a concurrent writer invalidates the loaded version.
func (s *Service) applyFact(ctx context.Context, estateID id.EstateID, entityID, eventType string, categories ...models.RiskCategory) (int, error) {
	if err := requireEstateID(estateID); err != nil {
		return 0, err
	}

	var (
		closed  int
		lastErr error
	)
	for attempt := 0; attempt < s.factRetries; attempt++ {
		closed, lastErr = s.applyFactOnce(ctx, estateID, entityID, eventType, categories)
		if lastErr == nil {
			outcome := "applied"
			if closed == 0 {
				outcome = "no_match"
			}
			s.incrementFactEventsProcessed(eventType, outcome)
			if closed > 0 {
				s.incrementAutoResolutions(eventType, closed)
			}
			return closed, nil
		}
		if !dErrors.HasCode(lastErr, dErrors.CodeConcurrencyConflict) {
			break
		}
		s.incrementConcurrencyConflicts()
	}
	s.incrementFactEventsProcessed(eventType, "failed")
	return 0, lastErr
}

func (s *Service) applyFactOnce(ctx context.Context, estateID id.EstateID, entityID, eventType string, categories []models.RiskCategory) (int, error) {
	var (
		assessment *models.ReadinessAssessment
		events     []models.DomainEvent
		closed     int
	)
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		a, err := s.store.FindByEstate(txCtx, estateID)
		if err != nil {
			return wrapAssessmentErr(err)
		}
		now := requestcontext.Now(txCtx)

		var raised []models.DomainEvent
		total := 0
		for _, category := range categories {
			categoryEvents, n, err := a.AutoResolveRisks(entityID, category, eventType, "system", now)
			if err != nil {
				return err
			}
			raised = append(raised, categoryEvents...)
			total += n
		}
		if total == 0 {
			return nil
		}

		if err := s.persist(txCtx, a, raised, now); err != nil {
			return err
		}
		s.auditEmitter.emit(txCtx, audit.EventFactApplied, audit.Event{
			AssessmentID: a.ID,
			EstateID:     a.EstateID,
			Subject:      entityID,
			Decision:     eventType,
			Reason:       fmt.Sprintf("%d risk flags auto-resolved", total),
			ActorID:      "system",
		})
		assessment, events, closed = a, raised, total
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.recordEventMetrics(events)
	if closed > 0 {
		s.invalidateCache(ctx, assessment)
	}
	return closed, nil
}
