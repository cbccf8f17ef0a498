package postgres

import (
	"context"
	"database/sql"
	"fmt"

	id "mirathi/pkg/domain"
	audit "mirathi/pkg/platform/audit"

	"github.com/google/uuid"
)

// Store implements audit.Store using PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append inserts an audit event into the audit_events table.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	query := `
		INSERT INTO audit_events (
			id, category, timestamp, assessment_id, estate_id,
			subject, action, decision, reason, actor_id, request_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.db.ExecContext(ctx, query,
		uuid.New(),
		string(event.Category),
		event.Timestamp,
		nullableID(uuid.UUID(event.AssessmentID)),
		nullableID(uuid.UUID(event.EstateID)),
		event.Subject,
		event.Action,
		event.Decision,
		event.Reason,
		event.ActorID,
		event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// AppendWithID inserts an audit event with a specific ID (for idempotent inserts).
func (s *Store) AppendWithID(ctx context.Context, eventID uuid.UUID, event audit.Event) error {
	query := `
		INSERT INTO audit_events (
			id, category, timestamp, assessment_id, estate_id,
			subject, action, decision, reason, actor_id, request_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := s.db.ExecContext(ctx, query,
		eventID,
		string(event.Category),
		event.Timestamp,
		nullableID(uuid.UUID(event.AssessmentID)),
		nullableID(uuid.UUID(event.EstateID)),
		event.Subject,
		event.Action,
		event.Decision,
		event.Reason,
		event.ActorID,
		event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByAssessment returns events for a specific assessment.
func (s *Store) ListByAssessment(ctx context.Context, assessmentID id.AssessmentID) ([]audit.Event, error) {
	query := `
		SELECT category, timestamp, assessment_id, estate_id,
			   subject, action, decision, reason, actor_id, request_id
		FROM audit_events
		WHERE assessment_id = $1
		ORDER BY timestamp DESC
	`

	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(assessmentID))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return s.scanEvents(rows)
}

// ListAll returns all audit events (admin only).
func (s *Store) ListAll(ctx context.Context) ([]audit.Event, error) {
	query := `
		SELECT category, timestamp, assessment_id, estate_id,
			   subject, action, decision, reason, actor_id, request_id
		FROM audit_events
		ORDER BY timestamp DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return s.scanEvents(rows)
}

// ListRecent returns the N most recent events.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	query := `
		SELECT category, timestamp, assessment_id, estate_id,
			   subject, action, decision, reason, actor_id, request_id
		FROM audit_events
		ORDER BY timestamp DESC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return s.scanEvents(rows)
}

// scanEvents scans multiple rows into audit.Event slice.
func (s *Store) scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event

	for rows.Next() {
		var (
			category     string
			event        audit.Event
			assessmentID *uuid.UUID
			estateID     *uuid.UUID
		)

		err := rows.Scan(
			&category,
			&event.Timestamp,
			&assessmentID,
			&estateID,
			&event.Subject,
			&event.Action,
			&event.Decision,
			&event.Reason,
			&event.ActorID,
			&event.RequestID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}

		event.Category = audit.EventCategory(category)
		if assessmentID != nil {
			event.AssessmentID = id.AssessmentID(*assessmentID)
		}
		if estateID != nil {
			event.EstateID = id.EstateID(*estateID)
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}

	return events, nil
}

// nullableID maps the zero UUID to NULL so optional references stay unset.
func nullableID(u uuid.UUID) *uuid.UUID {
	if u == uuid.Nil {
		return nil
	}
	return &u
}
