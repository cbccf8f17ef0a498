package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"mirathi/contracts/readiness"
	"mirathi/internal/platform/kafka/consumer"
	audit "mirathi/pkg/platform/audit"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

// mockAuditStore is a test double for the audit store.
type mockAuditStore struct {
	events    map[uuid.UUID]audit.Event
	appends   int
	shouldErr bool
}

func newMockAuditStore() *mockAuditStore {
	return &mockAuditStore{events: make(map[uuid.UUID]audit.Event)}
}

func (m *mockAuditStore) AppendWithID(_ context.Context, eventID uuid.UUID, event audit.Event) error {
	if m.shouldErr {
		return errors.New("store error")
	}
	m.appends++
	m.events[eventID] = event
	return nil
}

// ConsumerHandlerSuite tests the Kafka consumer handler.
//
// Justification: The "commit on malformed, block on store error" logic is a
// critical invariant for message processing correctness. These edge cases
// are not observable via E2E tests.
type ConsumerHandlerSuite struct {
	suite.Suite
	store   *mockAuditStore
	handler *Handler
}

func TestConsumerHandlerSuite(t *testing.T) {
	suite.Run(t, new(ConsumerHandlerSuite))
}

func (s *ConsumerHandlerSuite) SetupTest() {
	s.store = newMockAuditStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.handler = NewHandler(s.store, logger)
}

func (s *ConsumerHandlerSuite) envelopeMessage(entryID uuid.UUID, envelope readiness.EventEnvelope) *consumer.Message {
	value, err := json.Marshal(envelope)
	s.Require().NoError(err)
	return &consumer.Message{
		Key:   []byte(entryID.String()),
		Value: value,
	}
}

func (s *ConsumerHandlerSuite) TestMalformedKeyCommitsOffset() {
	// Malformed message key should return nil (commit offset) not block processing
	msg := &consumer.Message{
		Key:   []byte("not-a-valid-uuid"),
		Value: []byte(`{}`),
	}

	err := s.handler.Handle(context.Background(), msg)

	s.NoError(err)
	s.Equal(0, s.store.appends)
}

func (s *ConsumerHandlerSuite) TestMalformedEnvelopeCommitsOffset() {
	msg := &consumer.Message{
		Key:   []byte(uuid.New().String()),
		Value: []byte(`{invalid json`),
	}

	err := s.handler.Handle(context.Background(), msg)

	s.NoError(err)
	s.Equal(0, s.store.appends)
}

func (s *ConsumerHandlerSuite) TestStoreErrorBlocksCommit() {
	s.store.shouldErr = true

	entryID := uuid.New()
	msg := s.envelopeMessage(entryID, readiness.EventEnvelope{
		ContractVersion: readiness.ContractVersion,
		EventType:       "readiness.risk_flag.detected",
		AssessmentID:    uuid.New().String(),
		OccurredAt:      time.Now(),
	})

	err := s.handler.Handle(context.Background(), msg)

	// Store failure must surface so the offset is not committed and the
	// message is redelivered.
	s.Error(err)
}

func (s *ConsumerHandlerSuite) TestProjectsEnvelopeIntoAuditEvent() {
	entryID := uuid.New()
	assessmentID := uuid.New()
	estateID := uuid.New()
	riskFlagID := uuid.New()
	occurredAt := time.Date(2026, 3, 12, 9, 30, 0, 0, time.UTC)

	payload, err := json.Marshal(readiness.RiskFlagResolvedEvent{
		AssessmentID: assessmentID.String(),
		RiskFlagID:   riskFlagID.String(),
		Category:     "documentation",
		Severity:     "high",
		Method:       "document_upload",
		ResolvedBy:   "advocate-kamau",
	})
	s.Require().NoError(err)

	msg := s.envelopeMessage(entryID, readiness.EventEnvelope{
		ContractVersion: readiness.ContractVersion,
		EventType:       "readiness.risk_flag.resolved",
		AssessmentID:    assessmentID.String(),
		EstateID:        estateID.String(),
		OccurredAt:      occurredAt,
		Payload:         payload,
	})

	err = s.handler.Handle(context.Background(), msg)
	s.Require().NoError(err)

	stored, ok := s.store.events[entryID]
	s.Require().True(ok, "event should be stored under the outbox entry ID")
	s.Equal(audit.CategoryDomainEvent, stored.Category)
	s.Equal("readiness.risk_flag.resolved", stored.Action)
	s.Equal(assessmentID.String(), stored.AssessmentID.String())
	s.Equal(estateID.String(), stored.EstateID.String())
	s.Equal(riskFlagID.String(), stored.Subject)
	s.Equal("advocate-kamau", stored.ActorID)
	s.True(stored.Timestamp.Equal(occurredAt))
}

func (s *ConsumerHandlerSuite) TestDocumentGapSubject() {
	entryID := uuid.New()

	payload, err := json.Marshal(readiness.DocumentGapIdentifiedEvent{
		AssessmentID: uuid.New().String(),
		DocumentType: "death_certificate",
		Severity:     "critical",
	})
	s.Require().NoError(err)

	msg := s.envelopeMessage(entryID, readiness.EventEnvelope{
		ContractVersion: readiness.ContractVersion,
		EventType:       "readiness.document_gap.identified",
		AssessmentID:    uuid.New().String(),
		OccurredAt:      time.Now(),
		Payload:         payload,
	})

	err = s.handler.Handle(context.Background(), msg)
	s.Require().NoError(err)

	stored := s.store.events[entryID]
	s.Equal("death_certificate", stored.Subject)
}

func (s *ConsumerHandlerSuite) TestInvalidIDsInEnvelopeLeaveEventUnlinked() {
	entryID := uuid.New()

	msg := s.envelopeMessage(entryID, readiness.EventEnvelope{
		ContractVersion: readiness.ContractVersion,
		EventType:       "readiness.score.updated",
		AssessmentID:    "not-a-uuid",
		EstateID:        "also-not-a-uuid",
		OccurredAt:      time.Now(),
	})

	err := s.handler.Handle(context.Background(), msg)
	s.Require().NoError(err)

	stored := s.store.events[entryID]
	s.True(stored.AssessmentID.IsNil())
	s.True(stored.EstateID.IsNil())
	s.Equal("readiness.score.updated", stored.Action)
}

func (s *ConsumerHandlerSuite) TestRedeliveryIsIdempotentAtStore() {
	entryID := uuid.New()
	msg := s.envelopeMessage(entryID, readiness.EventEnvelope{
		ContractVersion: readiness.ContractVersion,
		EventType:       "readiness.assessment.created",
		AssessmentID:    uuid.New().String(),
		OccurredAt:      time.Now(),
	})

	s.Require().NoError(s.handler.Handle(context.Background(), msg))
	s.Require().NoError(s.handler.Handle(context.Background(), msg))

	// Both deliveries write through; the store keys on the entry ID so the
	// archive still holds a single row.
	s.Len(s.store.events, 1)
}
