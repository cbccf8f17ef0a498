package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"mirathi/pkg/domain"
)

// BaselineRulesSuite tests the canonical rule catalog a new case is seeded
// with.
type BaselineRulesSuite struct {
	suite.Suite

	now      time.Time
	estateID domain.EstateID
}

func TestBaselineRulesSuite(t *testing.T) {
	suite.Run(t, new(BaselineRulesSuite))
}

func (s *BaselineRulesSuite) SetupTest() {
	s.now = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	s.estateID = domain.NewEstateID()
}

func (s *BaselineRulesSuite) contextWith(modify func(*SuccessionContextParams)) SuccessionContext {
	p := SuccessionContextParams{
		Regime:             RegimeIntestate,
		MarriageType:       MarriageSingle,
		Religion:           ReligionStatutory,
		ComplexityScore:    2,
		TotalBeneficiaries: 3,
	}
	if modify != nil {
		modify(&p)
	}
	ctx, err := NewSuccessionContext(p)
	s.Require().NoError(err)
	return ctx
}

func (s *BaselineRulesSuite) categories(ctx SuccessionContext) map[RiskCategory]RiskFlagParams {
	out := make(map[RiskCategory]RiskFlagParams)
	for _, p := range BaselineRisks(s.estateID, ctx, s.now) {
		out[p.Category] = p
	}
	return out
}

func (s *BaselineRulesSuite) TestCatalogByContext() {
	s.Run("every case starts with the death certificate rule", func() {
		cats := s.categories(s.contextWith(nil))
		p, ok := cats[RiskMissingDeathCertificate]
		s.Require().True(ok)
		s.Equal(SeverityCritical, p.Severity)
		s.Require().NotNil(p.DocumentGap)
		s.Equal(DocumentDeathCertificate, p.DocumentGap.Type)
		s.Contains(p.ExpectedResolutionEvents, FactDeathCertificateUploaded)
	})

	s.Run("testate cases demand the original will", func() {
		cats := s.categories(s.contextWith(func(p *SuccessionContextParams) {
			p.Regime = RegimeTestate
		}))
		p, ok := cats[RiskMissingWill]
		s.Require().True(ok)
		s.Equal(SeverityCritical, p.Severity)
		s.Contains(p.ExpectedResolutionEvents, FactWillValidated)
		s.NotContains(cats, RiskChiefLetterMissing, "chief letters belong to intestate cases")
	})

	s.Run("intestate cases want a chief's letter, not a will", func() {
		cats := s.categories(s.contextWith(nil))
		s.Contains(cats, RiskChiefLetterMissing)
		s.NotContains(cats, RiskMissingWill)
		s.True(cats[RiskChiefLetterMissing].DocumentGap.IsWaivable)
	})

	s.Run("minors trigger the guardianship rule", func() {
		cats := s.categories(s.contextWith(func(p *SuccessionContextParams) {
			p.MinorsInvolved = true
		}))
		p, ok := cats[RiskMinorWithoutGuardian]
		s.Require().True(ok)
		s.Equal(SeverityHigh, p.Severity)
		s.Contains(p.ExpectedResolutionEvents, FactGuardianAppointed)
	})

	s.Run("polygamous households displace the marriage certificate rule", func() {
		cats := s.categories(s.contextWith(func(p *SuccessionContextParams) {
			p.MarriageType = MarriagePolygamous
		}))
		s.Contains(cats, RiskPolygamousHouseholdUnsettled)
		s.NotContains(cats, RiskMissingMarriageCertificate)
	})

	s.Run("islamic polygamous estates skip both marriage rules", func() {
		cats := s.categories(s.contextWith(func(p *SuccessionContextParams) {
			p.MarriageType = MarriagePolygamous
			p.Religion = ReligionIslamic
		}))
		s.NotContains(cats, RiskPolygamousHouseholdUnsettled)
		s.NotContains(cats, RiskMissingMarriageCertificate)
	})

	s.Run("monogamous marriages need the certificate", func() {
		cats := s.categories(s.contextWith(func(p *SuccessionContextParams) {
			p.MarriageType = MarriageMonogamous
		}))
		s.Contains(cats, RiskMissingMarriageCertificate)
	})

	s.Run("insolvency is high, never blocking", func() {
		cats := s.categories(s.contextWith(func(p *SuccessionContextParams) {
			p.EstateInsolvent = true
		}))
		p, ok := cats[RiskEstateDebtExceedsAssets]
		s.Require().True(ok)
		s.Equal(SeverityHigh, p.Severity, "an insolvent estate must stay fileable once administered")
	})

	s.Run("tax clearance keys off the estate value", func() {
		small := int64(4_000_000)
		cats := s.categories(s.contextWith(func(p *SuccessionContextParams) {
			p.EstateValueKES = &small
		}))
		s.NotContains(cats, RiskTaxClearancePending)

		large := int64(6_000_000)
		cats = s.categories(s.contextWith(func(p *SuccessionContextParams) {
			p.EstateValueKES = &large
		}))
		s.Contains(cats, RiskTaxClearancePending)
	})

	s.Run("business, foreign, and disputed assets each add a rule", func() {
		cats := s.categories(s.contextWith(func(p *SuccessionContextParams) {
			p.BusinessAssets = true
			p.ForeignAssets = true
			p.DisputedAssets = true
		}))
		s.Contains(cats, RiskBusinessValuationPending)
		s.Contains(cats, RiskForeignAssetCompliance)
		s.Contains(cats, RiskAssetOwnershipDispute)
		s.Contains(cats[RiskAssetOwnershipDispute].ExpectedResolutionEvents, FactAssetVerified)
	})
}

func (s *BaselineRulesSuite) TestCatalogSeedsCleanly() {
	value := int64(80_000_000)
	ctx := s.contextWith(func(p *SuccessionContextParams) {
		p.Regime = RegimePartiallyIntestate
		p.MarriageType = MarriagePolygamous
		p.MinorsInvolved = true
		p.EstateInsolvent = true
		p.BusinessAssets = true
		p.ForeignAssets = true
		p.DisputedAssets = true
		p.ComplexityScore = 9
		p.TotalBeneficiaries = 12
		p.EstateValueKES = &value
	})

	a, _, err := NewReadinessAssessment(s.estateID, nil, ctx, s.now)
	s.Require().NoError(err)

	params := BaselineRisks(s.estateID, ctx, s.now)
	s.Len(params, 9, "the kitchen-sink context fires every compatible rule")

	for _, p := range params {
		_, _, err := a.AddRiskFlag(p, s.now)
		s.Require().NoError(err, "rule %s must seed without a fingerprint collision", p.DetectionRuleID)
	}

	s.Equal(StatusBlocked, a.Score.Status, "the death certificate rule blocks every fresh case")
	s.NoError(a.CheckInvariants())

	sources := make(map[string]struct{})
	for _, risk := range a.RiskFlags {
		s.Equal(SourceComplianceEngine, risk.Source.SourceType)
		s.Equal(s.estateID.String(), risk.Source.SourceEntityID)
		s.Equal("baseline_context_scan", risk.Source.DetectionMethod)
		sources[risk.Fingerprint()] = struct{}{}
	}
	s.Len(sources, len(params), "every rule carries a distinct fingerprint")
}

func (s *BaselineRulesSuite) TestCatalogIsDeterministic() {
	ctx := s.contextWith(func(p *SuccessionContextParams) {
		p.MinorsInvolved = true
		p.BusinessAssets = true
	})

	first := BaselineRisks(s.estateID, ctx, s.now)
	second := BaselineRisks(s.estateID, ctx, s.now)
	s.Equal(first, second)
}
