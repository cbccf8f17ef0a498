package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"mirathi/contracts/readiness"
	"mirathi/internal/platform/kafka/consumer"
	id "mirathi/pkg/domain"
	audit "mirathi/pkg/platform/audit"

	"github.com/google/uuid"
)

// Appender is the slice of the audit store the handler writes through.
// Implementations must be idempotent on eventID.
type Appender interface {
	AppendWithID(ctx context.Context, eventID uuid.UUID, event audit.Event) error
}

// Handler projects readiness events from Kafka into the audit_events table.
// It implements consumer.Handler for use with the Kafka consumer.
type Handler struct {
	store  Appender
	logger *slog.Logger
}

// NewHandler creates a new readiness event consumer handler.
func NewHandler(store Appender, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:  store,
		logger: logger,
	}
}

// eventSubject carries the payload fields that identify the entity an event
// is about. Fields absent from a given event type unmarshal to zero values.
type eventSubject struct {
	RiskFlagID   string `json:"risk_flag_id"`
	DocumentType string `json:"document_type"`
	ResolvedBy   string `json:"resolved_by"`
}

// Handle processes a single Kafka message containing a readiness event
// envelope. It performs an idempotent insert using the message key (the
// outbox entry ID) as the audit event ID, so outbox redelivery cannot
// duplicate archive rows.
func (h *Handler) Handle(ctx context.Context, msg *consumer.Message) error {
	// Parse event ID from message key
	eventID, err := uuid.Parse(string(msg.Key))
	if err != nil {
		h.logger.Error("failed to parse event ID from message key",
			"key", string(msg.Key),
			"error", err,
		)
		// Return nil to commit the offset - malformed messages should not block processing
		return nil
	}

	var envelope readiness.EventEnvelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		h.logger.Error("failed to unmarshal event envelope",
			"event_id", eventID,
			"error", err,
		)
		return nil
	}

	event := audit.Event{
		Category:  audit.CategoryDomainEvent,
		Timestamp: envelope.OccurredAt,
		Action:    envelope.EventType,
	}

	if envelope.AssessmentID != "" {
		if aid, err := uuid.Parse(envelope.AssessmentID); err == nil {
			event.AssessmentID = id.AssessmentID(aid)
		}
	}
	if envelope.EstateID != "" {
		if eid, err := uuid.Parse(envelope.EstateID); err == nil {
			event.EstateID = id.EstateID(eid)
		}
	}

	// Pull the entity reference out of the payload where the event has one.
	if len(envelope.Payload) > 0 {
		var subject eventSubject
		if err := json.Unmarshal(envelope.Payload, &subject); err == nil {
			switch {
			case subject.RiskFlagID != "":
				event.Subject = subject.RiskFlagID
			case subject.DocumentType != "":
				event.Subject = subject.DocumentType
			}
			event.ActorID = subject.ResolvedBy
		}
	}

	h.logger.Debug("projecting readiness event",
		"event_id", eventID,
		"event_type", envelope.EventType,
		"assessment_id", envelope.AssessmentID,
	)

	// Idempotent insert using the outbox entry ID
	if err := h.store.AppendWithID(ctx, eventID, event); err != nil {
		h.logger.Error("failed to store readiness event",
			"event_id", eventID,
			"event_type", envelope.EventType,
			"error", err,
		)
		// Return error to prevent commit - message will be redelivered
		return fmt.Errorf("store readiness event: %w", err)
	}

	return nil
}
