package service

// Unit tests for the readiness assessment service.
//
// Unit tests here are TERTIARY and exist only to:
// - Enforce invariants
// - Test edge cases unreachable via integration tests
// - Assert error propagation/mapping across boundaries
// - Pin behavior that is invisible through the API (cache, outbox, audit)
//
// Happy-path behavior is tested via:
// - Primary: e2e/features/readiness_flow.feature (Gherkin scenarios)
// - Secondary: internal/readiness/store integration tests (real PostgreSQL)

//go:generate mockgen -source=common.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
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
	"mirathi/internal/sentinel"
	id "mirathi/pkg/domain"
	dErrors "mirathi/pkg/domain-errors"
	"mirathi/pkg/platform/audit"
	outboxmemory "mirathi/pkg/platform/audit/outbox/store/memory"
	"mirathi/pkg/platform/audit/publisher"
	auditmemory "mirathi/pkg/platform/audit/store/memory"
	"mirathi/pkg/requestcontext"
)

var fixedNow = time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC)

// fixedCtx pins the request-scoped clock so scores, deadlines, and audit
// timestamps are deterministic.
func fixedCtx() context.Context {
	return requestcontext.WithTime(context.Background(), fixedNow)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// statutoryContextParams is the simplest valid case: statutory intestate,
// monogamous marriage, no complicating facts. Baseline rules seed it with
// the death certificate gate, the chief's letter, and the marriage
// certificate gap.
func statutoryContextParams() models.SuccessionContextParams {
	return models.SuccessionContextParams{
		Regime:             models.RegimeIntestate,
		MarriageType:       models.MarriageMonogamous,
		Religion:           models.ReligionStatutory,
		ComplexityScore:    2,
		TotalBeneficiaries: 3,
	}
}

// riskFlagCommand builds a valid detection command for one entity.
func riskFlagCommand(t *testing.T, severity models.Severity, category models.RiskCategory, entityID string, resolutionEvents ...string) AddRiskFlagCommand {
	t.Helper()
	source, err := models.NewRiskSource(models.SourceComplianceEngine, entityID, "case_entity", "context_scan", "", fixedNow)
	require.NoError(t, err)
	return AddRiskFlagCommand{
		Severity:                 severity,
		Category:                 category,
		Description:              "verification pending for " + entityID,
		Source:                   source,
		AffectedEntityIDs:        []string{entityID},
		ExpectedResolutionEvents: resolutionEvents,
	}
}

// buildAssessment returns an aggregate in stored shape with no risk flags.
func buildAssessment(t *testing.T, estateID id.EstateID) *models.ReadinessAssessment {
	t.Helper()
	succession, err := models.NewSuccessionContext(statutoryContextParams())
	require.NoError(t, err)
	a, _, err := models.NewReadinessAssessment(estateID, nil, succession, fixedNow)
	require.NoError(t, err)
	return a
}

// addRiskFlag attaches a flag directly to the aggregate, bypassing the
// service, for tests that hand the aggregate to a mocked store.
func addRiskFlag(t *testing.T, a *models.ReadinessAssessment, severity models.Severity, category models.RiskCategory, entityID string, resolutionEvents ...string) *models.RiskFlag {
	t.Helper()
	cmd := riskFlagCommand(t, severity, category, entityID, resolutionEvents...)
	flag, _, err := a.AddRiskFlag(cmd.params(), fixedNow)
	require.NoError(t, err)
	return flag
}

type ServiceSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	mockStore  *mocks.MockAssessmentStore
	service    *Service
	auditStore *auditmemory.InMemoryStore
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockStore = mocks.NewMockAssessmentStore(s.ctrl)
	s.auditStore = auditmemory.NewInMemoryStore()
	s.service = New(
		s.mockStore,
		WithLogger(discardLogger()),
		WithAuditPublisher(publisher.NewPublisher(s.auditStore)),
	)
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

// =============================================================================
// CreateAssessment - Validation & Error Mapping
// =============================================================================

// TestCreateAssessment_ValidationErrors verifies domain error code mapping for invalid input.
// Invariant: invalid commands are rejected before any store access.
// Reason not a feature test: feature tests verify HTTP status codes; this pins the internal code mapping.
func (s *ServiceSuite) TestCreateAssessment_ValidationErrors() {
	s.T().Run("missing estate ID returns CodeValidation", func(t *testing.T) {
		_, err := s.service.CreateAssessment(context.Background(), CreateAssessmentCommand{
			Context: statutoryContextParams(),
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), "expected CodeValidation for missing estate ID")
	})

	s.T().Run("empty family ID pointer returns CodeValidation", func(t *testing.T) {
		empty := id.FamilyID{}
		_, err := s.service.CreateAssessment(context.Background(), CreateAssessmentCommand{
			EstateID: id.NewEstateID(),
			FamilyID: &empty,
			Context:  statutoryContextParams(),
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), "expected CodeValidation for nil family ID")
	})

	s.T().Run("invalid succession context returns CodeInvalidInput", func(t *testing.T) {
		params := statutoryContextParams()
		params.ComplexityScore = 0
		_, err := s.service.CreateAssessment(context.Background(), CreateAssessmentCommand{
			EstateID: id.NewEstateID(),
			Context:  params,
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput), "expected CodeInvalidInput for out-of-range complexity")
	})
}

// TestCreateAssessment_StoreErrorMapping verifies sentinel translation at the store boundary.
// Invariant: one assessment per estate surfaces as CodeConflict; infrastructure failures as CodeInternal.
// Reason not a feature test: feature tests cannot induce store failures.
func (s *ServiceSuite) TestCreateAssessment_StoreErrorMapping() {
	cmd := CreateAssessmentCommand{EstateID: id.NewEstateID(), Context: statutoryContextParams()}

	s.T().Run("duplicate estate maps to CodeConflict", func(t *testing.T) {
		s.mockStore.EXPECT().
			Create(gomock.Any(), gomock.Any()).
			Return(sentinel.ErrAlreadyExists)

		_, err := s.service.CreateAssessment(context.Background(), cmd)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict), "expected CodeConflict for duplicate estate")
	})

	s.T().Run("store failure maps to CodeInternal", func(t *testing.T) {
		s.mockStore.EXPECT().
			Create(gomock.Any(), gomock.Any()).
			Return(assert.AnError)

		_, err := s.service.CreateAssessment(context.Background(), cmd)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal), "expected CodeInternal for store create error")
	})
}

// TestCreateAssessment_BaselineSeeding verifies that SeedBaseline attaches the
// rule catalog in the creating transaction and every raised event lands in the
// outbox wrapped in the contract envelope.
// Invariant: the death certificate gate blocks a fresh case at score 0; outbox entries carry the aggregate version and decode as EventEnvelope.
// Reason not a feature test: the outbox is not observable through the API.
func (s *ServiceSuite) TestCreateAssessment_BaselineSeeding() {
	store := readinessstore.New()
	outboxStore := outboxmemory.New()
	svc := New(store,
		WithLogger(discardLogger()),
		WithAuditPublisher(publisher.NewPublisher(s.auditStore)),
		WithOutbox(outboxStore),
	)

	params := statutoryContextParams()
	params.MinorsInvolved = true

	a, err := svc.CreateAssessment(fixedCtx(), CreateAssessmentCommand{
		EstateID:     id.NewEstateID(),
		Context:      params,
		SeedBaseline: true,
	})
	require.NoError(s.T(), err)

	assert.Equal(s.T(), 0, a.Score.Score)
	assert.Equal(s.T(), models.StatusBlocked, a.Score.Status)
	assert.NotEmpty(s.T(), a.BlockingIssues)
	assert.NotEmpty(s.T(), a.MissingDocuments)

	var categories []models.RiskCategory
	for _, flag := range a.RiskFlags {
		categories = append(categories, flag.Category)
	}
	assert.Contains(s.T(), categories, models.RiskMissingDeathCertificate)
	assert.Contains(s.T(), categories, models.RiskMinorWithoutGuardian)
	assert.Contains(s.T(), categories, models.RiskChiefLetterMissing)
	assert.Contains(s.T(), categories, models.RiskMissingMarriageCertificate)

	entries, err := outboxStore.FetchUnprocessed(context.Background(), 100)
	require.NoError(s.T(), err)
	require.NotEmpty(s.T(), entries)

	var eventTypes []string
	for _, entry := range entries {
		assert.Equal(s.T(), "readiness_assessment", entry.AggregateType)
		assert.Equal(s.T(), a.ID.String(), entry.AggregateID)
		assert.Equal(s.T(), a.Version, entry.AggregateVersion)
		assert.Equal(s.T(), fixedNow, entry.CreatedAt)

		var envelope readinesscontracts.EventEnvelope
		require.NoError(s.T(), json.Unmarshal(entry.Payload, &envelope))
		assert.Equal(s.T(), readinesscontracts.ContractVersion, envelope.ContractVersion)
		assert.Equal(s.T(), entry.EventType, envelope.EventType)
		assert.Equal(s.T(), a.ID.String(), envelope.AssessmentID)
		eventTypes = append(eventTypes, entry.EventType)
	}
	assert.Contains(s.T(), eventTypes, models.EventTypeAssessmentCreated)
	assert.Contains(s.T(), eventTypes, models.EventTypeRiskFlagDetected)
	assert.Contains(s.T(), eventTypes, models.EventTypeStatusChanged)

	records, err := s.auditStore.ListByAssessment(context.Background(), a.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), records, 1)
	assert.Equal(s.T(), string(audit.EventAssessmentCreated), records[0].Action)
	assert.Equal(s.T(), audit.CategoryCompliance, records[0].Category)
	assert.Equal(s.T(), string(models.StatusBlocked), records[0].Decision)
}

// =============================================================================
// GetAssessment - Error Mapping & Cache Behavior
// =============================================================================

// TestGetAssessment_ErrorMapping verifies read-path error translation.
// Invariant: nil IDs never reach the store; sentinel errors map to domain codes exactly once.
// Reason not a feature test: tests internal error wrapping boundary.
func (s *ServiceSuite) TestGetAssessment_ErrorMapping() {
	s.T().Run("nil assessment ID returns CodeBadRequest", func(t *testing.T) {
		_, err := s.service.GetAssessment(context.Background(), id.AssessmentID{})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest), "expected CodeBadRequest for nil ID")
	})

	s.T().Run("absent assessment maps to CodeNotFound", func(t *testing.T) {
		assessmentID := id.NewAssessmentID()
		s.mockStore.EXPECT().
			FindByID(gomock.Any(), assessmentID).
			Return(nil, sentinel.ErrNotFound)

		_, err := s.service.GetAssessment(context.Background(), assessmentID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound), "expected CodeNotFound for absent assessment")
	})

	s.T().Run("store failure maps to CodeInternal", func(t *testing.T) {
		assessmentID := id.NewAssessmentID()
		s.mockStore.EXPECT().
			FindByID(gomock.Any(), assessmentID).
			Return(nil, assert.AnError)

		_, err := s.service.GetAssessment(context.Background(), assessmentID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal), "expected CodeInternal for store read error")
	})
}

// TestGetAssessment_CacheReadThrough verifies the snapshot cache contract.
// Invariant: cache hits skip the store; misses backfill; cache failures degrade to store reads and never surface.
// Reason not a feature test: cache behavior is invisible through the API by design.
func (s *ServiceSuite) TestGetAssessment_CacheReadThrough() {
	mockCache := mocks.NewMockSnapshotCache(s.ctrl)
	svc := New(s.mockStore,
		WithLogger(discardLogger()),
		WithSnapshotCache(mockCache),
	)
	estateID := id.NewEstateID()
	stored := buildAssessment(s.T(), estateID)

	s.T().Run("cache hit skips the store", func(t *testing.T) {
		mockCache.EXPECT().
			Find(gomock.Any(), stored.ID).
			Return(stored, nil)

		got, err := svc.GetAssessment(context.Background(), stored.ID)
		require.NoError(t, err)
		assert.Equal(t, stored.ID, got.ID)
	})

	s.T().Run("cache miss falls back to the store and backfills", func(t *testing.T) {
		mockCache.EXPECT().
			Find(gomock.Any(), stored.ID).
			Return(nil, sentinel.ErrNotFound)
		s.mockStore.EXPECT().
			FindByID(gomock.Any(), stored.ID).
			Return(stored, nil)
		mockCache.EXPECT().
			Save(gomock.Any(), stored).
			Return(nil)

		got, err := svc.GetAssessment(context.Background(), stored.ID)
		require.NoError(t, err)
		assert.Equal(t, stored.ID, got.ID)
	})

	s.T().Run("cache failure degrades to a store read", func(t *testing.T) {
		mockCache.EXPECT().
			Find(gomock.Any(), stored.ID).
			Return(nil, assert.AnError)
		s.mockStore.EXPECT().
			FindByID(gomock.Any(), stored.ID).
			Return(stored, nil)
		mockCache.EXPECT().
			Save(gomock.Any(), stored).
			Return(assert.AnError)

		got, err := svc.GetAssessment(context.Background(), stored.ID)
		require.NoError(t, err)
		assert.Equal(t, stored.ID, got.ID)
	})

	s.T().Run("estate lookup reads through the estate pointer", func(t *testing.T) {
		mockCache.EXPECT().
			FindByEstate(gomock.Any(), estateID).
			Return(stored, nil)

		got, err := svc.GetAssessmentByEstate(context.Background(), estateID)
		require.NoError(t, err)
		assert.Equal(t, stored.ID, got.ID)
	})
}

// =============================================================================
// ListRiskFlags - Filter Validation & Ordering
// =============================================================================

// TestListRiskFlags_FilterAndOrdering verifies filter validation and the
// descending-priority ordering contract.
// Invariant: unknown enum values are rejected; blocking filter excludes resolved flags; ordering puts critical blockers first.
// Reason not a feature test: ordering ties and filter edge cases are cheaper to pin here.
func (s *ServiceSuite) TestListRiskFlags_FilterAndOrdering() {
	s.T().Run("unknown status returns CodeValidation", func(t *testing.T) {
		bad := models.RiskStatus("gone")
		_, err := s.service.ListRiskFlags(context.Background(), id.NewAssessmentID(), RiskFlagFilter{Status: &bad})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), "expected CodeValidation for unknown status")
	})

	estateID := id.NewEstateID()
	a := buildAssessment(s.T(), estateID)
	addRiskFlag(s.T(), a, models.SeverityLow, models.RiskTaxClearancePending, "estate-tax")
	criticalFlag := addRiskFlag(s.T(), a, models.SeverityCritical, models.RiskMissingDeathCertificate, "deceased-1", models.FactDeathCertificateUploaded)
	resolvedFlag := addRiskFlag(s.T(), a, models.SeverityMedium, models.RiskUnverifiedAsset, "asset-9")
	_, err := a.ResolveRiskFlag(resolvedFlag.ID, models.ResolutionManual, "lawyer-1", "", fixedNow)
	require.NoError(s.T(), err)

	s.T().Run("no filter returns all flags by descending priority", func(t *testing.T) {
		s.mockStore.EXPECT().FindByID(gomock.Any(), a.ID).Return(a, nil)

		flags, err := s.service.ListRiskFlags(fixedCtx(), a.ID, RiskFlagFilter{})
		require.NoError(t, err)
		require.Len(t, flags, 3)
		assert.Equal(t, criticalFlag.ID, flags[0].ID)
	})

	s.T().Run("blocking-only narrows to unresolved critical flags", func(t *testing.T) {
		s.mockStore.EXPECT().FindByID(gomock.Any(), a.ID).Return(a, nil)

		flags, err := s.service.ListRiskFlags(fixedCtx(), a.ID, RiskFlagFilter{BlockingOnly: true})
		require.NoError(t, err)
		require.Len(t, flags, 1)
		assert.Equal(t, criticalFlag.ID, flags[0].ID)
	})

	s.T().Run("status filter matches resolved flags", func(t *testing.T) {
		s.mockStore.EXPECT().FindByID(gomock.Any(), a.ID).Return(a, nil)

		status := models.RiskStatusResolved
		flags, err := s.service.ListRiskFlags(fixedCtx(), a.ID, RiskFlagFilter{Status: &status})
		require.NoError(t, err)
		require.Len(t, flags, 1)
		assert.Equal(t, resolvedFlag.ID, flags[0].ID)
	})
}

// =============================================================================
// AddRiskFlag - Validation & Fingerprint Deduplication
// =============================================================================

// TestAddRiskFlag_ValidationErrors verifies command presence checks.
// Invariant: incomplete detection commands never reach the store.
// Reason not a feature test: pins internal code mapping.
func (s *ServiceSuite) TestAddRiskFlag_ValidationErrors() {
	assessmentID := id.NewAssessmentID()

	s.T().Run("missing severity returns CodeValidation", func(t *testing.T) {
		cmd := riskFlagCommand(t, models.SeverityHigh, models.RiskUnverifiedAsset, "asset-1")
		cmd.Severity = ""
		_, err := s.service.AddRiskFlag(context.Background(), assessmentID, cmd)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), "expected CodeValidation for missing severity")
	})

	s.T().Run("whitespace description returns CodeValidation", func(t *testing.T) {
		cmd := riskFlagCommand(t, models.SeverityHigh, models.RiskUnverifiedAsset, "asset-1")
		cmd.Description = "   "
		_, err := s.service.AddRiskFlag(context.Background(), assessmentID, cmd)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), "expected CodeValidation for blank description")
	})

	s.T().Run("unknown severity surfaces the model's CodeInvalidInput", func(t *testing.T) {
		cmd := riskFlagCommand(t, "catastrophic", models.RiskUnverifiedAsset, "asset-1")
		a := buildAssessment(t, id.NewEstateID())
		s.mockStore.EXPECT().FindByID(gomock.Any(), a.ID).Return(a, nil)

		_, err := s.service.AddRiskFlag(context.Background(), a.ID, cmd)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput), "expected CodeInvalidInput for unknown severity")
	})
}

// TestAddRiskFlag_DuplicateFingerprint verifies the deduplication invariant.
// Invariant: an unresolved flag with the same fingerprint rejects the add and leaves nothing persisted.
// Reason not a feature test: fingerprinting is internal; the API only sees the 422.
func (s *ServiceSuite) TestAddRiskFlag_DuplicateFingerprint() {
	a := buildAssessment(s.T(), id.NewEstateID())
	cmd := riskFlagCommand(s.T(), models.SeverityHigh, models.RiskUnverifiedAsset, "asset-1", models.FactAssetVerified)
	_, _, err := a.AddRiskFlag(cmd.params(), fixedNow)
	require.NoError(s.T(), err)

	s.mockStore.EXPECT().FindByID(gomock.Any(), a.ID).Return(a, nil)
	// No Update expectation: a save would fail the controller.

	_, err = s.service.AddRiskFlag(context.Background(), a.ID, cmd)
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeInvariantViolation), "expected CodeInvariantViolation for duplicate fingerprint")
}

// =============================================================================
// ResolveRiskFlag - Validation, Lifecycle & Concurrency
// =============================================================================

// TestResolveRiskFlag_ValidationErrors verifies command presence checks.
// Invariant: resolution requires the flag ID, a method, and an actor.
// Reason not a feature test: pins internal code mapping.
func (s *ServiceSuite) TestResolveRiskFlag_ValidationErrors() {
	assessmentID := id.NewAssessmentID()

	s.T().Run("nil risk flag ID returns CodeBadRequest", func(t *testing.T) {
		_, err := s.service.ResolveRiskFlag(context.Background(), assessmentID, ResolveRiskCommand{
			Method:     models.ResolutionManual,
			ResolvedBy: "lawyer-1",
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest), "expected CodeBadRequest for nil risk flag ID")
	})

	s.T().Run("missing method returns CodeValidation", func(t *testing.T) {
		_, err := s.service.ResolveRiskFlag(context.Background(), assessmentID, ResolveRiskCommand{
			RiskFlagID: id.NewRiskFlagID(),
			ResolvedBy: "lawyer-1",
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), "expected CodeValidation for missing method")
	})

	s.T().Run("missing resolved_by returns CodeValidation", func(t *testing.T) {
		_, err := s.service.ResolveRiskFlag(context.Background(), assessmentID, ResolveRiskCommand{
			RiskFlagID: id.NewRiskFlagID(),
			Method:     models.ResolutionManual,
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), "expected CodeValidation for missing resolved_by")
	})
}

// TestResolveRiskFlag_LifecycleErrors verifies lifecycle edges that leave the
// aggregate untouched.
// Invariant: absent flags are CodeNotFound; double resolution is CodeInvariantViolation; neither persists anything.
// Reason not a feature test: distinguishing 404 from 422 at this boundary is the contract handlers rely on.
func (s *ServiceSuite) TestResolveRiskFlag_LifecycleErrors() {
	s.T().Run("absent flag returns CodeNotFound", func(t *testing.T) {
		a := buildAssessment(t, id.NewEstateID())
		s.mockStore.EXPECT().FindByID(gomock.Any(), a.ID).Return(a, nil)

		_, err := s.service.ResolveRiskFlag(context.Background(), a.ID, ResolveRiskCommand{
			RiskFlagID: id.NewRiskFlagID(),
			Method:     models.ResolutionManual,
			ResolvedBy: "lawyer-1",
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound), "expected CodeNotFound for absent flag")
	})

	s.T().Run("double resolution returns CodeInvariantViolation", func(t *testing.T) {
		a := buildAssessment(t, id.NewEstateID())
		flag := addRiskFlag(t, a, models.SeverityHigh, models.RiskUnverifiedAsset, "asset-1")
		_, err := a.ResolveRiskFlag(flag.ID, models.ResolutionManual, "lawyer-1", "", fixedNow)
		require.NoError(t, err)
		s.mockStore.EXPECT().FindByID(gomock.Any(), a.ID).Return(a, nil)

		_, err = s.service.ResolveRiskFlag(context.Background(), a.ID, ResolveRiskCommand{
			RiskFlagID: flag.ID,
			Method:     models.ResolutionManual,
			ResolvedBy: "lawyer-2",
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation), "expected CodeInvariantViolation for double resolution")
	})

	s.T().Run("stale version maps to CodeConcurrencyConflict", func(t *testing.T) {
		a := buildAssessment(t, id.NewEstateID())
		flag := addRiskFlag(t, a, models.SeverityHigh, models.RiskUnverifiedAsset, "asset-1")
		s.mockStore.EXPECT().FindByID(gomock.Any(), a.ID).Return(a, nil)
		s.mockStore.EXPECT().Update(gomock.Any(), gomock.Any()).Return(sentinel.ErrVersionConflict)

		_, err := s.service.ResolveRiskFlag(context.Background(), a.ID, ResolveRiskCommand{
			RiskFlagID: flag.ID,
			Method:     models.ResolutionManual,
			ResolvedBy: "lawyer-1",
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConcurrencyConflict), "expected CodeConcurrencyConflict for stale version")
	})
}

// =============================================================================
// Reopen & Dispute - Lifecycle Edges
// =============================================================================

// TestReopenRiskFlag_OnlyResolvedFlagsReopen pins the lifecycle edge.
// Invariant: reopening an active flag is an invariant violation, not a no-op.
func (s *ServiceSuite) TestReopenRiskFlag_OnlyResolvedFlagsReopen() {
	a := buildAssessment(s.T(), id.NewEstateID())
	flag := addRiskFlag(s.T(), a, models.SeverityHigh, models.RiskUnverifiedAsset, "asset-1")
	s.mockStore.EXPECT().FindByID(gomock.Any(), a.ID).Return(a, nil)

	_, err := s.service.ReopenRiskFlag(context.Background(), a.ID, ReopenRiskCommand{
		RiskFlagID: flag.ID,
		Reason:     "resolution evidence was withdrawn",
	})
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeInvariantViolation), "expected CodeInvariantViolation for reopening an active flag")
}

// TestDisputeRiskFlag_RequiresReason pins the presence check.
func (s *ServiceSuite) TestDisputeRiskFlag_RequiresReason() {
	_, err := s.service.DisputeRiskFlag(context.Background(), id.NewAssessmentID(), DisputeRiskCommand{
		RiskFlagID: id.NewRiskFlagID(),
	})
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeValidation), "expected CodeValidation for missing dispute reason")
}

// =============================================================================
// UpdateRiskSeverity - No-op Detection
// =============================================================================

// TestUpdateRiskSeverity_UnchangedSeverityIsNoOp verifies no-op short-circuiting.
// Invariant: an unchanged severity must not save, append outbox entries, or emit audit records.
// Reason not a feature test: a no-op and a saved rewrite look identical through the API.
func (s *ServiceSuite) TestUpdateRiskSeverity_UnchangedSeverityIsNoOp() {
	a := buildAssessment(s.T(), id.NewEstateID())
	flag := addRiskFlag(s.T(), a, models.SeverityHigh, models.RiskUnverifiedAsset, "asset-1")

	s.mockStore.EXPECT().FindByID(gomock.Any(), a.ID).Return(a, nil)
	// No Update expectation: a save would fail the controller.

	got, err := s.service.UpdateRiskSeverity(context.Background(), a.ID, UpdateSeverityCommand{
		RiskFlagID: flag.ID,
		Severity:   models.SeverityHigh,
	})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), a.ID, got.ID)

	records, err := s.auditStore.ListByAssessment(context.Background(), a.ID)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), records)
}

// TestUpdateRiskSeverity_ResolvedFlagStillReclassifies verifies that a
// severity change on a resolved flag persists and audits even though the
// score does not move.
// Invariant: resolved flags stay reclassifiable; the change is saved despite raising no change events.
// Reason not a feature test: the distinction is only observable at the store boundary.
func (s *ServiceSuite) TestUpdateRiskSeverity_ResolvedFlagStillReclassifies() {
	a := buildAssessment(s.T(), id.NewEstateID())
	flag := addRiskFlag(s.T(), a, models.SeverityHigh, models.RiskUnverifiedAsset, "asset-1")
	_, err := a.ResolveRiskFlag(flag.ID, models.ResolutionManual, "lawyer-1", "title deed verified", fixedNow)
	require.NoError(s.T(), err)

	s.mockStore.EXPECT().FindByID(gomock.Any(), a.ID).Return(a, nil)
	s.mockStore.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)

	_, err = s.service.UpdateRiskSeverity(context.Background(), a.ID, UpdateSeverityCommand{
		RiskFlagID: flag.ID,
		Severity:   models.SeverityMedium,
		Reason:     "impact reassessed after resolution",
	})
	require.NoError(s.T(), err)

	records, err := s.auditStore.ListByAssessment(context.Background(), a.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), records, 1)
	assert.Equal(s.T(), string(audit.EventRiskSeverityUpdated), records[0].Action)
	assert.Equal(s.T(), string(models.SeverityMedium), records[0].Decision)
}

// =============================================================================
// UpdateContext - No-op Detection & Derivations
// =============================================================================

// TestUpdateContext_EqualContextIsNoOp verifies value-equality short-circuiting.
// Invariant: a value-equal context must not save or audit.
func (s *ServiceSuite) TestUpdateContext_EqualContextIsNoOp() {
	a := buildAssessment(s.T(), id.NewEstateID())
	s.mockStore.EXPECT().FindByID(gomock.Any(), a.ID).Return(a, nil)

	got, err := s.service.UpdateContext(context.Background(), a.ID, UpdateContextCommand{
		Context: statutoryContextParams(),
	})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), a.ID, got.ID)

	records, err := s.auditStore.ListByAssessment(context.Background(), a.ID)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), records)
}

// TestUpdateContext_RecomputesDerivations verifies the derivation chain
// through a real store.
// Invariant: a regime change reroutes jurisdiction and is audited as a compliance event.
func (s *ServiceSuite) TestUpdateContext_RecomputesDerivations() {
	store := readinessstore.New()
	svc := New(store,
		WithLogger(discardLogger()),
		WithAuditPublisher(publisher.NewPublisher(s.auditStore)),
	)
	ctx := fixedCtx()
	created, err := svc.CreateAssessment(ctx, CreateAssessmentCommand{
		EstateID: id.NewEstateID(),
		Context:  statutoryContextParams(),
	})
	require.NoError(s.T(), err)

	islamic := statutoryContextParams()
	islamic.Religion = models.ReligionIslamic

	updated, err := svc.UpdateContext(ctx, created.ID, UpdateContextCommand{Context: islamic})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.ReligionIslamic, updated.Context.Religion)
	assert.Equal(s.T(), models.CourtKadhis, updated.Context.CourtJurisdiction())

	records, err := s.auditStore.ListByAssessment(context.Background(), created.ID)
	require.NoError(s.T(), err)
	var contextUpdates int
	for _, rec := range records {
		if rec.Action == string(audit.EventContextUpdated) {
			contextUpdates++
			assert.Equal(s.T(), audit.CategoryCompliance, rec.Category)
		}
	}
	assert.Equal(s.T(), 1, contextUpdates)
}

// =============================================================================
// MarkComplete - Terminal Transition
// =============================================================================

// TestMarkComplete_BlockedByScoreGate verifies the filing gate.
// Invariant: a blocked case can never be completed.
func (s *ServiceSuite) TestMarkComplete_BlockedByScoreGate() {
	a := buildAssessment(s.T(), id.NewEstateID())
	addRiskFlag(s.T(), a, models.SeverityCritical, models.RiskMissingDeathCertificate, "deceased-1", models.FactDeathCertificateUploaded)
	s.mockStore.EXPECT().FindByID(gomock.Any(), a.ID).Return(a, nil)

	_, err := s.service.MarkComplete(context.Background(), a.ID)
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeInvariantViolation), "expected CodeInvariantViolation while the gate blocks filing")
}

// TestMarkComplete_TerminalTransition verifies completion freezes the
// aggregate.
// Invariant: completion is audited once, records the final score, and rejects every further mutation.
func (s *ServiceSuite) TestMarkComplete_TerminalTransition() {
	store := readinessstore.New()
	svc := New(store,
		WithLogger(discardLogger()),
		WithAuditPublisher(publisher.NewPublisher(s.auditStore)),
	)
	ctx := fixedCtx()
	created, err := svc.CreateAssessment(ctx, CreateAssessmentCommand{
		EstateID: id.NewEstateID(),
		Context:  statutoryContextParams(),
	})
	require.NoError(s.T(), err)

	completed, err := svc.MarkComplete(ctx, created.ID)
	require.NoError(s.T(), err)
	assert.True(s.T(), completed.IsComplete)
	require.NotNil(s.T(), completed.CompletedAt)
	assert.Equal(s.T(), fixedNow, *completed.CompletedAt)

	_, err = svc.MarkComplete(ctx, created.ID)
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeInvariantViolation), "expected CodeInvariantViolation for repeated completion")

	_, err = svc.AddRiskFlag(ctx, created.ID, riskFlagCommand(s.T(), models.SeverityLow, models.RiskTaxClearancePending, "estate-tax"))
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeInvariantViolation), "expected CodeInvariantViolation for mutating a completed assessment")

	records, err := s.auditStore.ListByAssessment(context.Background(), created.ID)
	require.NoError(s.T(), err)
	var completions []audit.Event
	for _, rec := range records {
		if rec.Action == string(audit.EventAssessmentCompleted) {
			completions = append(completions, rec)
		}
	}
	require.Len(s.T(), completions, 1)
	assert.Equal(s.T(), "final score 100", completions[0].Reason)
}

// =============================================================================
// Audit Trail - Request Scope
// =============================================================================

// TestAuditTrail_CarriesRequestScope verifies audit records inherit the
// request ID and request time from context.
// Reason not a feature test: the audit store is not exposed through the API.
func (s *ServiceSuite) TestAuditTrail_CarriesRequestScope() {
	store := readinessstore.New()
	svc := New(store,
		WithLogger(discardLogger()),
		WithAuditPublisher(publisher.NewPublisher(s.auditStore)),
	)
	ctx := requestcontext.WithRequestID(fixedCtx(), "req-7f3a")

	a, err := svc.CreateAssessment(ctx, CreateAssessmentCommand{
		EstateID: id.NewEstateID(),
		Context:  statutoryContextParams(),
	})
	require.NoError(s.T(), err)

	records, err := s.auditStore.ListByAssessment(context.Background(), a.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), records, 1)
	assert.Equal(s.T(), "req-7f3a", records[0].RequestID)
	assert.Equal(s.T(), fixedNow, records[0].Timestamp)
	assert.Equal(s.T(), a.EstateID, records[0].EstateID)
}
