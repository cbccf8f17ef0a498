package consumer

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"mirathi/internal/platform/kafka/consumer"
	"mirathi/internal/readiness/metrics"
	"mirathi/internal/readiness/models"
	id "mirathi/pkg/domain"
	dErrors "mirathi/pkg/domain-errors"
)

// factEnvelope is the wire shape of a case fact on the facts topic. Producers
// are the estate, guardianship, document, and will services; the payload
// carries event-specific fields.
type factEnvelope struct {
	EventType  string          `json:"event_type"`
	EstateID   string          `json:"estate_id"`
	EntityID   string          `json:"entity_id,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// estateValuePayload is the payload of an EstateValueUpdated fact.
type estateValuePayload struct {
	ValueKES int64 `json:"value_kes"`
}

// FactService is the slice of the readiness service driven by inbound facts.
type FactService interface {
	HandleAssetVerified(ctx context.Context, estateID id.EstateID, entityID string) (int, error)
	HandleGuardianAppointed(ctx context.Context, estateID id.EstateID, entityID string) (int, error)
	HandleDeathCertificateUploaded(ctx context.Context, estateID id.EstateID, entityID string) (int, error)
	HandleWillValidated(ctx context.Context, estateID id.EstateID, entityID string) (int, error)
	HandleEstateValueUpdated(ctx context.Context, estateID id.EstateID, valueKES int64) error
}

// FactHandler applies case facts from Kafka to readiness assessments.
//
// Commit semantics: only transient failures (internal, exhausted concurrency
// retries, timeouts) return an error and block the offset, so the fact is
// redelivered. Everything else commits: malformed envelopes and permanently
// invalid facts cannot be fixed by replay, and facts for estates without an
// assessment are expected traffic on a shared topic. Redelivery is safe
// because fact application is idempotent.
type FactHandler struct {
	service FactService
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewFactHandler builds a handler for the case facts topic.
func NewFactHandler(service FactService, logger *slog.Logger, m *metrics.Metrics) *FactHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FactHandler{service: service, logger: logger, metrics: m}
}

// Handle implements the platform consumer's Handler interface.
// The service records per-fact outcome metrics itself; the handler only
// counts what never reaches the service (malformed envelopes, unknown types).
func (h *FactHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	var env factEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		h.logger.ErrorContext(ctx, "malformed fact envelope, skipping",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
		h.count("unknown", "malformed")
		return nil
	}

	estateID, err := id.ParseEstateID(env.EstateID)
	if err != nil {
		h.logger.ErrorContext(ctx, "fact envelope carries invalid estate id, skipping",
			"event_type", env.EventType,
			"estate_id", env.EstateID,
			"offset", msg.Offset,
			"error", err,
		)
		h.count(env.EventType, "malformed")
		return nil
	}

	closed, err := h.dispatch(ctx, estateID, env)
	if err != nil {
		return h.classify(ctx, env, msg, err)
	}

	h.logger.DebugContext(ctx, "fact applied",
		"event_type", env.EventType,
		"estate_id", estateID,
		"entity_id", env.EntityID,
		"risk_flags_closed", closed,
	)
	return nil
}

// dispatch routes the fact to the matching service method. Unknown event
// types are not an error: the facts topic serves more consumers than this one.
func (h *FactHandler) dispatch(ctx context.Context, estateID id.EstateID, env factEnvelope) (int, error) {
	switch env.EventType {
	case models.FactAssetVerified:
		return h.service.HandleAssetVerified(ctx, estateID, env.EntityID)
	case models.FactGuardianAppointed:
		return h.service.HandleGuardianAppointed(ctx, estateID, env.EntityID)
	case models.FactDeathCertificateUploaded:
		return h.service.HandleDeathCertificateUploaded(ctx, estateID, env.EntityID)
	case models.FactWillValidated:
		return h.service.HandleWillValidated(ctx, estateID, env.EntityID)
	case models.FactEstateValueUpdated:
		var payload estateValuePayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return 0, dErrors.Wrap(err, dErrors.CodeInvalidInput, "malformed estate value payload")
		}
		return 0, h.service.HandleEstateValueUpdated(ctx, estateID, payload.ValueKES)
	default:
		h.logger.DebugContext(ctx, "ignoring unrecognized fact event", "event_type", env.EventType)
		h.count(env.EventType, "skipped")
		return 0, nil
	}
}

// classify decides whether a dispatch error blocks the offset. Transient
// errors propagate for redelivery; permanent ones are logged and committed.
// Dispatched facts are already counted by the service, so no metrics here.
func (h *FactHandler) classify(ctx context.Context, env factEnvelope, msg *consumer.Message, err error) error {
	switch {
	case dErrors.HasCode(err, dErrors.CodeNotFound):
		// No assessment covers this estate yet. Normal on a shared topic.
		h.logger.DebugContext(ctx, "no assessment for estate, skipping fact",
			"event_type", env.EventType,
			"estate_id", env.EstateID,
		)
		return nil
	case dErrors.HasCode(err, dErrors.CodeInvalidInput),
		dErrors.HasCode(err, dErrors.CodeValidation),
		dErrors.HasCode(err, dErrors.CodeBadRequest):
		h.logger.WarnContext(ctx, "permanently invalid fact, skipping",
			"event_type", env.EventType,
			"estate_id", env.EstateID,
			"offset", msg.Offset,
			"error", err,
		)
		return nil
	default:
		return err
	}
}

func (h *FactHandler) count(eventType, outcome string) {
	if h.metrics != nil {
		h.metrics.IncrementFactEventsProcessed(eventType, outcome)
	}
}
