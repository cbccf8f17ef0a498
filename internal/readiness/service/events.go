package service

import (
	"context"
	"encoding/json"
	"time"

	readiness "mirathi/contracts/readiness"
	"mirathi/internal/readiness/models"
	dErrors "mirathi/pkg/domain-errors"
	"mirathi/pkg/platform/audit/outbox"
)

// aggregateType names the aggregate in outbox entries and Kafka headers.
const aggregateType = "readiness_assessment"

// appendOutbox writes one outbox entry per domain event, stamped with the
// aggregate version the events belong to. Called inside the mutation's
// transaction so the events and the state change commit or roll back as one.
func (s *Service) appendOutbox(ctx context.Context, a *models.ReadinessAssessment, events []models.DomainEvent, now time.Time) error {
	if s.outbox == nil {
		return nil
	}
	for _, event := range events {
		payload, err := encodeEventEnvelope(a, event)
		if err != nil {
			return err
		}
		entry := outbox.NewEntry(aggregateType, a.ID.String(), event.EventType(), a.Version, payload, now)
		if err := s.outbox.Append(ctx, entry); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append outbox entry")
		}
	}
	return nil
}

// encodeEventEnvelope maps a domain event onto its versioned contract payload
// and wraps it in the cross-service envelope.
func encodeEventEnvelope(a *models.ReadinessAssessment, event models.DomainEvent) ([]byte, error) {
	payload, occurredAt, err := encodeEventPayload(event)
	if err != nil {
		return nil, err
	}
	envelope := readiness.EventEnvelope{
		ContractVersion: readiness.ContractVersion,
		EventType:       event.EventType(),
		AssessmentID:    a.ID.String(),
		EstateID:        a.EstateID.String(),
		OccurredAt:      occurredAt,
		Payload:         payload,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode event envelope")
	}
	return data, nil
}

func encodeEventPayload(event models.DomainEvent) (json.RawMessage, time.Time, error) {
	var (
		dto        any
		occurredAt time.Time
	)
	switch e := event.(type) {
	case models.AssessmentCreated:
		created := readiness.AssessmentCreatedEvent{
			AssessmentID: e.AssessmentID.String(),
			EstateID:     e.EstateID.String(),
			Score:        e.Score,
			Status:       string(e.Status),
		}
		if e.FamilyID != nil {
			created.FamilyID = e.FamilyID.String()
		}
		dto, occurredAt = created, e.OccurredAt
	case models.RiskFlagDetected:
		dto, occurredAt = readiness.RiskFlagDetectedEvent{
			AssessmentID: e.AssessmentID.String(),
			RiskFlagID:   e.RiskFlagID.String(),
			Category:     string(e.Category),
			Severity:     string(e.Severity),
			Description:  e.Description,
			IsBlocking:   e.IsBlocking,
		}, e.OccurredAt
	case models.RiskFlagResolved:
		dto, occurredAt = readiness.RiskFlagResolvedEvent{
			AssessmentID: e.AssessmentID.String(),
			RiskFlagID:   e.RiskFlagID.String(),
			Category:     string(e.Category),
			Severity:     string(e.Severity),
			Method:       string(e.Method),
			ResolvedBy:   e.ResolvedBy,
		}, e.OccurredAt
	case models.RiskFlagAutoResolved:
		dto, occurredAt = readiness.RiskFlagAutoResolvedEvent{
			AssessmentID: e.AssessmentID.String(),
			RiskFlagID:   e.RiskFlagID.String(),
			Category:     string(e.Category),
			Severity:     string(e.Severity),
			TriggerEvent: e.TriggerEvent,
			EntityID:     e.EntityID,
		}, e.OccurredAt
	case models.ScoreUpdated:
		dto, occurredAt = readiness.ScoreUpdatedEvent{
			AssessmentID:  e.AssessmentID.String(),
			PreviousScore: e.PreviousScore,
			NewScore:      e.NewScore,
		}, e.OccurredAt
	case models.StatusChanged:
		dto, occurredAt = readiness.StatusChangedEvent{
			AssessmentID:   e.AssessmentID.String(),
			PreviousStatus: string(e.PreviousStatus),
			NewStatus:      string(e.NewStatus),
		}, e.OccurredAt
	case models.DocumentGapIdentified:
		dto, occurredAt = readiness.DocumentGapIdentifiedEvent{
			AssessmentID: e.AssessmentID.String(),
			DocumentType: string(e.DocumentType),
			Severity:     string(e.Severity),
			Description:  e.Description,
			IsWaivable:   e.IsWaivable,
		}, e.OccurredAt
	case models.RecommendedStrategyUpdated:
		dto, occurredAt = readiness.RecommendedStrategyUpdatedEvent{
			AssessmentID: e.AssessmentID.String(),
			Strategy:     e.Strategy,
		}, e.OccurredAt
	case models.AssessmentCompleted:
		dto, occurredAt = readiness.AssessmentCompletedEvent{
			AssessmentID: e.AssessmentID.String(),
			EstateID:     e.EstateID.String(),
			FinalScore:   e.FinalScore,
		}, e.OccurredAt
	default:
		return nil, time.Time{}, dErrors.New(dErrors.CodeInternal, "unmapped domain event type: "+event.EventType())
	}

	data, err := json.Marshal(dto)
	if err != nil {
		return nil, time.Time{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode event payload")
	}
	return data, occurredAt, nil
}

// recordEventMetrics walks the events a mutation raised and updates the
// matching counters. Auto-resolutions are counted at their call sites where
// the trigger is known.
func (s *Service) recordEventMetrics(events []models.DomainEvent) {
	if s.metrics == nil {
		return
	}
	for _, event := range events {
		switch e := event.(type) {
		case models.AssessmentCreated:
			s.metrics.IncrementAssessmentsCreated()
			s.metrics.ObserveScore(e.Score)
		case models.RiskFlagDetected:
			s.metrics.IncrementRiskFlagsDetected(string(e.Severity), string(e.Category))
		case models.RiskFlagResolved:
			s.metrics.IncrementRiskFlagsResolved(string(e.Method))
		case models.ScoreUpdated:
			s.metrics.ObserveScore(e.NewScore)
		case models.StatusChanged:
			s.metrics.IncrementStatusTransitions(string(e.PreviousStatus), string(e.NewStatus))
		case models.AssessmentCompleted:
			s.metrics.IncrementAssessmentsCompleted()
		}
	}
}
