//go:build integration

package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"mirathi/internal/readiness/models"
	"mirathi/internal/readiness/store"
	"mirathi/internal/sentinel"
	"mirathi/pkg/domain"
	"mirathi/pkg/testutil"
	"mirathi/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	now      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "risk_flags", "assessments")
	s.Require().NoError(err)
	s.now = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
}

func (s *PostgresStoreSuite) addRisk(a *models.ReadinessAssessment, entity string, severity models.Severity) *models.RiskFlag {
	risk, _, err := a.AddRiskFlag(testutil.NewTestRiskParams(entity, severity, s.now), s.now)
	s.Require().NoError(err)
	return risk
}

// TestRoundTrip verifies an aggregate survives Create and both lookups intact.
func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()

	assessment := testutil.NewTestAssessment(domain.NewEstateID(), s.now)
	s.addRisk(assessment, "asset-1", models.SeverityHigh)
	risk := s.addRisk(assessment, "asset-2", models.SeverityMedium)
	_, err := assessment.ResolveRiskFlag(risk.ID, models.ResolutionManual, "advocate-1", "confirmed with registry", s.now.Add(time.Hour))
	s.Require().NoError(err)

	s.Require().NoError(s.store.Create(ctx, assessment))

	byID, err := s.store.FindByID(ctx, assessment.ID)
	s.Require().NoError(err)
	s.Equal(assessment.ToState(), byID.ToState(), "aggregate must deserialize exactly as stored")

	byEstate, err := s.store.FindByEstate(ctx, assessment.EstateID)
	s.Require().NoError(err)
	s.Equal(assessment.ID, byEstate.ID)

	_, err = s.store.FindByID(ctx, domain.NewAssessmentID())
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindByEstate(ctx, domain.NewEstateID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// TestCreateConflicts verifies the one-assessment-per-estate constraint.
func (s *PostgresStoreSuite) TestCreateConflicts() {
	ctx := context.Background()

	assessment := testutil.NewTestAssessment(domain.NewEstateID(), s.now)
	s.Require().NoError(s.store.Create(ctx, assessment))

	s.ErrorIs(s.store.Create(ctx, assessment), sentinel.ErrAlreadyExists)

	sameEstate := testutil.NewTestAssessment(assessment.EstateID, s.now)
	s.ErrorIs(s.store.Create(ctx, sameEstate), sentinel.ErrAlreadyExists)
}

// TestUpdateVersionGuard verifies stale writers lose and callers see the bump.
func (s *PostgresStoreSuite) TestUpdateVersionGuard() {
	ctx := context.Background()

	assessment := testutil.NewTestAssessment(domain.NewEstateID(), s.now)
	s.Require().NoError(s.store.Create(ctx, assessment))

	first, err := s.store.FindByID(ctx, assessment.ID)
	s.Require().NoError(err)
	second, err := s.store.FindByID(ctx, assessment.ID)
	s.Require().NoError(err)

	s.addRisk(first, "asset-1", models.SeverityLow)
	s.Require().NoError(s.store.Update(ctx, first))
	s.EqualValues(2, first.Version)

	s.addRisk(second, "asset-2", models.SeverityLow)
	s.ErrorIs(s.store.Update(ctx, second), sentinel.ErrVersionConflict)
	s.EqualValues(1, second.Version, "losing writer keeps its stale version")

	reloaded, err := s.store.FindByID(ctx, assessment.ID)
	s.Require().NoError(err)
	s.EqualValues(2, reloaded.Version)
	s.Len(reloaded.RiskFlags, 1)

	orphan := testutil.NewTestAssessment(domain.NewEstateID(), s.now)
	s.ErrorIs(s.store.Update(ctx, orphan), sentinel.ErrNotFound)
}

// TestConcurrentUpdates verifies exactly one writer wins per version.
func (s *PostgresStoreSuite) TestConcurrentUpdates() {
	ctx := context.Background()

	assessment := testutil.NewTestAssessment(domain.NewEstateID(), s.now)
	s.Require().NoError(s.store.Create(ctx, assessment))

	base, err := s.store.FindByID(ctx, assessment.ID)
	s.Require().NoError(err)

	result := testutil.RunConcurrent(10, func(idx int) error {
		attempt := base.Clone()
		_, _, err := attempt.AddRiskFlag(testutil.NewTestRiskParams(
			fmt.Sprintf("asset-%d", idx), models.SeverityLow, s.now), s.now)
		if err != nil {
			return err
		}
		return s.store.Update(ctx, attempt)
	})

	s.Equal(int32(1), result.Successes, "exactly one update should win")
	s.Equal(int32(9), result.VersionConflicts, "all others should see a version conflict")

	reloaded, err := s.store.FindByID(ctx, assessment.ID)
	s.Require().NoError(err)
	s.EqualValues(2, reloaded.Version)
	s.Len(reloaded.RiskFlags, 1)
}

// TestListSweepDue verifies the deadline projection drives the sweep query.
func (s *PostgresStoreSuite) TestListSweepDue() {
	ctx := context.Background()

	// High severity carries a 60-day auto-resolve window.
	due := testutil.NewTestAssessment(domain.NewEstateID(), s.now)
	s.addRisk(due, "asset-1", models.SeverityHigh)
	s.Require().NoError(s.store.Create(ctx, due))

	alsoDue := testutil.NewTestAssessment(domain.NewEstateID(), s.now)
	s.addRisk(alsoDue, "asset-2", models.SeverityHigh)
	s.Require().NoError(s.store.Create(ctx, alsoDue))

	clean := testutil.NewTestAssessment(domain.NewEstateID(), s.now)
	s.Require().NoError(s.store.Create(ctx, clean))

	// A single high flag scores exactly 80, so the assessment can complete
	// while still holding an active flag with a pending deadline.
	completed := testutil.NewTestAssessment(domain.NewEstateID(), s.now)
	s.addRisk(completed, "asset-3", models.SeverityHigh)
	_, err := completed.MarkComplete(s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(ctx, completed))

	ids, err := s.store.ListSweepDue(ctx, s.now, 0)
	s.Require().NoError(err)
	s.Empty(ids, "nothing is due before any deadline passes")

	later := s.now.Add(61 * 24 * time.Hour)
	ids, err = s.store.ListSweepDue(ctx, later, 0)
	s.Require().NoError(err)
	s.ElementsMatch([]domain.AssessmentID{due.ID, alsoDue.ID}, ids)

	limited, err := s.store.ListSweepDue(ctx, later, 1)
	s.Require().NoError(err)
	s.Len(limited, 1)

	// Resolving the flag updates the projection and removes the candidate.
	loaded, err := s.store.FindByID(ctx, due.ID)
	s.Require().NoError(err)
	_, _, err = loaded.AutoResolveRisks("asset-1", models.RiskUnverifiedAsset, models.FactAssetVerified, "system", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Update(ctx, loaded))

	ids, err = s.store.ListSweepDue(ctx, later, 0)
	s.Require().NoError(err)
	s.ElementsMatch([]domain.AssessmentID{alsoDue.ID}, ids)
}

// TestUpdateBoundToTransaction verifies the tx-bound store participates in
// the caller's transaction.
func (s *PostgresStoreSuite) TestUpdateBoundToTransaction() {
	ctx := context.Background()

	assessment := testutil.NewTestAssessment(domain.NewEstateID(), s.now)
	s.Require().NoError(s.store.Create(ctx, assessment))

	tx, err := s.postgres.DB.BeginTx(ctx, nil)
	s.Require().NoError(err)

	txStore := store.NewPostgresTx(tx)
	loaded, err := txStore.FindByID(ctx, assessment.ID)
	s.Require().NoError(err)
	s.addRisk(loaded, "asset-1", models.SeverityMedium)
	s.Require().NoError(txStore.Update(ctx, loaded))

	// Rolled back work must leave no trace.
	s.Require().NoError(tx.Rollback())

	reloaded, err := s.store.FindByID(ctx, assessment.ID)
	s.Require().NoError(err)
	s.EqualValues(1, reloaded.Version)
	s.Empty(reloaded.RiskFlags)
}
