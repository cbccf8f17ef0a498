package outbox

import (
	"time"

	"github.com/google/uuid"
)

// Entry represents a pending event in the outbox table.
// It follows the transactional outbox pattern for reliable event publishing.
type Entry struct {
	ID               uuid.UUID
	AggregateType    string     // e.g., "readiness_assessment"
	AggregateID      string     // e.g., assessment ID
	AggregateVersion int64      // aggregate version after the mutation that produced the event
	EventType        string     // e.g., "readiness.risk_flag.added"
	Payload          []byte     // JSON-encoded contract DTO
	CreatedAt        time.Time  // When the entry was created
	ProcessedAt      *time.Time // NULL = pending, non-NULL = published to Kafka
}

// IsPending returns true if this entry has not been processed yet.
func (e *Entry) IsPending() bool {
	return e.ProcessedAt == nil
}

// NewEntry creates a new outbox entry with a generated UUID. The caller
// supplies createdAt so every entry written in one transaction shares the
// transaction timestamp.
func NewEntry(aggregateType, aggregateID, eventType string, aggregateVersion int64, payload []byte, createdAt time.Time) *Entry {
	return &Entry{
		ID:               uuid.New(),
		AggregateType:    aggregateType,
		AggregateID:      aggregateID,
		AggregateVersion: aggregateVersion,
		EventType:        eventType,
		Payload:          payload,
		CreatedAt:        createdAt,
	}
}
