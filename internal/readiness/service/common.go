package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"mirathi/internal/readiness/models"
	"mirathi/internal/sentinel"
	id "mirathi/pkg/domain"
	dErrors "mirathi/pkg/domain-errors"
	"mirathi/pkg/platform/audit"
	"mirathi/pkg/platform/audit/outbox"
	"mirathi/pkg/requestcontext"
)

// Store interfaces define persistence contracts.

// AssessmentStore persists readiness assessments.
// Error Contract:
// - FindByID/FindByEstate return sentinel.ErrNotFound when no assessment exists
// - Create returns sentinel.ErrAlreadyExists on an assessment ID or estate collision
// - Update returns sentinel.ErrVersionConflict when the loaded version is stale
type AssessmentStore interface {
	Create(ctx context.Context, assessment *models.ReadinessAssessment) error
	FindByID(ctx context.Context, assessmentID id.AssessmentID) (*models.ReadinessAssessment, error)
	FindByEstate(ctx context.Context, estateID id.EstateID) (*models.ReadinessAssessment, error)
	Update(ctx context.Context, assessment *models.ReadinessAssessment) error
	ListSweepDue(ctx context.Context, due time.Time, limit int) ([]id.AssessmentID, error)
}

// SnapshotCache accelerates assessment reads. A cache failure is never fatal;
// callers fall back to the store.
// Error Contract:
// - Find/FindByEstate return sentinel.ErrNotFound on a miss
type SnapshotCache interface {
	Find(ctx context.Context, assessmentID id.AssessmentID) (*models.ReadinessAssessment, error)
	FindByEstate(ctx context.Context, estateID id.EstateID) (*models.ReadinessAssessment, error)
	Save(ctx context.Context, assessment *models.ReadinessAssessment) error
	Invalidate(ctx context.Context, assessmentID id.AssessmentID, estateID id.EstateID) error
}

// OutboxAppender records domain events for asynchronous publication. Appends
// issued inside a service transaction must land in that transaction.
type OutboxAppender interface {
	Append(ctx context.Context, entry *outbox.Entry) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// ID validation helpers reduce repetition in service methods.

func requireAssessmentID(assessmentID id.AssessmentID) error {
	if assessmentID.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "assessment ID required")
	}
	return nil
}

func requireEstateID(estateID id.EstateID) error {
	if estateID.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "estate ID required")
	}
	return nil
}

func requireRiskFlagID(riskID id.RiskFlagID) error {
	if riskID.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "risk flag ID required")
	}
	return nil
}

// wrapAssessmentErr translates sentinel errors from store edges into domain
// errors exactly once.
func wrapAssessmentErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "assessment not found")
	case errors.Is(err, sentinel.ErrVersionConflict):
		return dErrors.Wrap(err, dErrors.CodeConcurrencyConflict, "assessment was modified concurrently")
	case errors.Is(err, sentinel.ErrAlreadyExists):
		return dErrors.New(dErrors.CodeConflict, "estate already has a readiness assessment")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "assessment store failure")
}

// auditEmitter handles audit logging and event emission.
type auditEmitter struct {
	logger    *slog.Logger
	publisher AuditPublisher
}

func newAuditEmitter(logger *slog.Logger, publisher AuditPublisher) *auditEmitter {
	return &auditEmitter{logger: logger, publisher: publisher}
}

// emit records one audit event through both sinks: the structured text log
// and the durable audit store. Failures are logged, never propagated; an
// audit outage must not roll back a legal-record mutation that the outbox
// already captured.
func (e *auditEmitter) emit(ctx context.Context, event audit.AuditEvent, record audit.Event) {
	record.Action = string(event)
	record.Category = event.Category()
	if record.Timestamp.IsZero() {
		record.Timestamp = requestcontext.Now(ctx)
	}
	if record.RequestID == "" {
		record.RequestID = requestcontext.RequestID(ctx)
	}
	e.logToText(ctx, record)
	e.emitToAudit(ctx, record)
}

func (e *auditEmitter) logToText(ctx context.Context, record audit.Event) {
	if e.logger == nil {
		return
	}
	args := []any{"event", record.Action, "log_type", "audit"}
	if !record.AssessmentID.IsNil() {
		args = append(args, "assessment_id", record.AssessmentID)
	}
	if !record.EstateID.IsNil() {
		args = append(args, "estate_id", record.EstateID)
	}
	if record.Subject != "" {
		args = append(args, "subject", record.Subject)
	}
	if record.Decision != "" {
		args = append(args, "decision", record.Decision)
	}
	if record.ActorID != "" {
		args = append(args, "actor_id", record.ActorID)
	}
	if record.RequestID != "" {
		args = append(args, "request_id", record.RequestID)
	}
	e.logger.InfoContext(ctx, record.Action, args...)
}

func (e *auditEmitter) emitToAudit(ctx context.Context, record audit.Event) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Emit(ctx, record); err != nil && e.logger != nil {
		e.logger.ErrorContext(ctx, "failed to emit audit event",
			"event", record.Action,
			"error", err,
		)
	}
}
