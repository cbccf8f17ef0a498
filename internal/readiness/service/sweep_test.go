package service

// Unit tests for the timeout sweep. The scheduling half (ticker, fan-out)
// lives in internal/readiness/workers/sweep; these tests pin the per-
// assessment resolution semantics the worker delegates to.

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	readinesscontracts "mirathi/contracts/readiness"
	"mirathi/internal/readiness/models"
	"mirathi/internal/readiness/service/mocks"
	readinessstore "mirathi/internal/readiness/store"
	id "mirathi/pkg/domain"
	dErrors "mirathi/pkg/domain-errors"
	"mirathi/pkg/platform/audit"
	outboxmemory "mirathi/pkg/platform/audit/outbox/store/memory"
	"mirathi/pkg/platform/audit/publisher"
	auditmemory "mirathi/pkg/platform/audit/store/memory"
)

type SweepSuite struct {
	suite.Suite
	store       *readinessstore.InMemoryStore
	outboxStore *outboxmemory.Store
	auditStore  *auditmemory.InMemoryStore
	service     *Service
}

func (s *SweepSuite) SetupTest() {
	s.store = readinessstore.New()
	s.outboxStore = outboxmemory.New()
	s.auditStore = auditmemory.NewInMemoryStore()
	s.service = New(s.store,
		WithLogger(discardLogger()),
		WithAuditPublisher(publisher.NewPublisher(s.auditStore)),
		WithOutbox(s.outboxStore),
	)
}

func TestSweepSuite(t *testing.T) {
	suite.Run(t, new(SweepSuite))
}

// seedWithCriticalFlag creates an assessment carrying one active critical
// flag. Critical flags auto-resolve 30 days after detection.
func (s *SweepSuite) seedWithCriticalFlag(ctx context.Context) (*models.ReadinessAssessment, *models.RiskFlag) {
	s.T().Helper()
	a, err := s.service.CreateAssessment(ctx, CreateAssessmentCommand{
		EstateID: id.NewEstateID(),
		Context:  statutoryContextParams(),
	})
	require.NoError(s.T(), err)
	flag, err := s.service.AddRiskFlag(ctx, a.ID, riskFlagCommand(s.T(), models.SeverityCritical, models.RiskCourtOrderRequired, "order-1"))
	require.NoError(s.T(), err)
	return a, flag
}

func (s *SweepSuite) sweepRecords(assessmentID id.AssessmentID) []audit.Event {
	s.T().Helper()
	records, err := s.auditStore.ListByAssessment(context.Background(), assessmentID)
	require.NoError(s.T(), err)
	var out []audit.Event
	for _, rec := range records {
		if rec.Action == string(audit.EventSweepCompleted) {
			out = append(out, rec)
		}
	}
	return out
}

// TestSweepDue_ListsAssessmentsPastDeadline verifies candidate selection.
// Invariant: only assessments holding an active flag past its deadline are due; clean assessments never appear.
func (s *SweepSuite) TestSweepDue_ListsAssessmentsPastDeadline() {
	ctx := fixedCtx()
	overdue, _ := s.seedWithCriticalFlag(ctx)
	_, err := s.service.CreateAssessment(ctx, CreateAssessmentCommand{
		EstateID: id.NewEstateID(),
		Context:  statutoryContextParams(),
	})
	require.NoError(s.T(), err)

	due, err := s.service.SweepDue(ctx, fixedNow.Add(31*24*time.Hour), 10)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []id.AssessmentID{overdue.ID}, due)

	due, err = s.service.SweepDue(ctx, fixedNow.Add(24*time.Hour), 10)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), due)

	s.T().Run("store failure maps to CodeInternal", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		mockStore := mocks.NewMockAssessmentStore(ctrl)
		svc := New(mockStore, WithLogger(discardLogger()))
		mockStore.EXPECT().
			ListSweepDue(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, assert.AnError)

		_, err := svc.SweepDue(ctx, fixedNow, 10)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal), "expected CodeInternal for store list failure")
	})
}

// TestSweepAutoResolveTimeouts_ClosesOverdueFlags verifies the timeout
// resolution path end to end through store, audit, and outbox.
// Invariant: expired flags close with method=timeout and resolvedBy=system; the auto-resolved event carries the timeout trigger; a second sweep is a no-op.
func (s *SweepSuite) TestSweepAutoResolveTimeouts_ClosesOverdueFlags() {
	ctx := fixedCtx()
	a, flag := s.seedWithCriticalFlag(ctx)
	after := fixedNow.Add(31 * 24 * time.Hour)

	closed, err := s.service.SweepAutoResolveTimeouts(ctx, a.ID, after)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, closed)

	reloaded, err := s.service.GetAssessment(ctx, a.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 100, reloaded.Score.Score)
	assert.Equal(s.T(), models.StatusReadyToFile, reloaded.Score.Status)

	swept, ok := reloaded.RiskFlag(flag.ID)
	require.True(s.T(), ok)
	assert.Equal(s.T(), models.RiskStatusResolved, swept.Status)
	assert.Equal(s.T(), models.ResolutionTimeout, swept.ResolutionMethod)
	assert.Equal(s.T(), "system", swept.ResolvedBy)
	assert.Equal(s.T(), "auto-resolved after the deadline elapsed", swept.ResolutionNotes)
	require.NotNil(s.T(), swept.ResolvedAt)
	assert.Equal(s.T(), after, *swept.ResolvedAt)

	records := s.sweepRecords(a.ID)
	require.Len(s.T(), records, 1)
	assert.Equal(s.T(), "1 risk flags timed out", records[0].Reason)
	assert.Equal(s.T(), "system", records[0].ActorID)
	assert.Equal(s.T(), audit.CategoryOperations, records[0].Category)

	entries, err := s.outboxStore.FetchUnprocessed(context.Background(), 100)
	require.NoError(s.T(), err)
	var autoResolved *readinesscontracts.RiskFlagAutoResolvedEvent
	for _, entry := range entries {
		if entry.EventType != models.EventTypeRiskFlagAutoResolve {
			continue
		}
		var envelope readinesscontracts.EventEnvelope
		require.NoError(s.T(), json.Unmarshal(entry.Payload, &envelope))
		var payload readinesscontracts.RiskFlagAutoResolvedEvent
		require.NoError(s.T(), json.Unmarshal(envelope.Payload, &payload))
		autoResolved = &payload
	}
	require.NotNil(s.T(), autoResolved, "expected a risk_flag.auto_resolved outbox entry")
	assert.Equal(s.T(), flag.ID.String(), autoResolved.RiskFlagID)
	assert.Equal(s.T(), "auto_resolve_timeout", autoResolved.TriggerEvent)
	assert.Equal(s.T(), string(models.SeverityCritical), autoResolved.Severity)

	closed, err = s.service.SweepAutoResolveTimeouts(ctx, a.ID, after)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 0, closed)
	assert.Len(s.T(), s.sweepRecords(a.ID), 1)
}

// TestSweepAutoResolveTimeouts_BeforeDeadlineNoOp verifies flags inside
// their window survive the sweep untouched.
func (s *SweepSuite) TestSweepAutoResolveTimeouts_BeforeDeadlineNoOp() {
	ctx := fixedCtx()
	a, flag := s.seedWithCriticalFlag(ctx)

	closed, err := s.service.SweepAutoResolveTimeouts(ctx, a.ID, fixedNow.Add(24*time.Hour))
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 0, closed)

	reloaded, err := s.service.GetAssessment(ctx, a.ID)
	require.NoError(s.T(), err)
	current, ok := reloaded.RiskFlag(flag.ID)
	require.True(s.T(), ok)
	assert.Equal(s.T(), models.RiskStatusActive, current.Status)
}

// TestSweepAutoResolveTimeouts_Validation verifies addressing errors.
func (s *SweepSuite) TestSweepAutoResolveTimeouts_Validation() {
	s.T().Run("nil assessment ID returns CodeBadRequest", func(t *testing.T) {
		_, err := s.service.SweepAutoResolveTimeouts(context.Background(), id.AssessmentID{}, fixedNow)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest), "expected CodeBadRequest for nil assessment ID")
	})

	s.T().Run("unknown assessment maps to CodeNotFound", func(t *testing.T) {
		_, err := s.service.SweepAutoResolveTimeouts(context.Background(), id.NewAssessmentID(), fixedNow)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound), "expected CodeNotFound for unknown assessment")
	})
}

// TestSweep_DisputedFlagsSurvive verifies the dispute hold.
// Invariant: a disputed flag is exempt from timeout resolution and keeps its assessment out of the sweep queue.
func (s *SweepSuite) TestSweep_DisputedFlagsSurvive() {
	ctx := fixedCtx()
	a, flag := s.seedWithCriticalFlag(ctx)
	_, err := s.service.DisputeRiskFlag(ctx, a.ID, DisputeRiskCommand{
		RiskFlagID: flag.ID,
		Reason:     "order requirement contested by counsel",
		DisputedBy: "lawyer-1",
	})
	require.NoError(s.T(), err)
	after := fixedNow.Add(31 * 24 * time.Hour)

	due, err := s.service.SweepDue(ctx, after, 10)
	require.NoError(s.T(), err)
	assert.NotContains(s.T(), due, a.ID)

	closed, err := s.service.SweepAutoResolveTimeouts(ctx, a.ID, after)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 0, closed)

	reloaded, err := s.service.GetAssessment(ctx, a.ID)
	require.NoError(s.T(), err)
	disputed, ok := reloaded.RiskFlag(flag.ID)
	require.True(s.T(), ok)
	assert.Equal(s.T(), models.RiskStatusDisputed, disputed.Status)
}
