package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// StrategySuite tests the generated filing strategy text.
type StrategySuite struct {
	suite.Suite

	now time.Time
}

func TestStrategySuite(t *testing.T) {
	suite.Run(t, new(StrategySuite))
}

func (s *StrategySuite) SetupTest() {
	s.now = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
}

func (s *StrategySuite) ctx(modify func(*SuccessionContextParams)) SuccessionContext {
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

func (s *StrategySuite) TestGrantText() {
	cases := []struct {
		regime SuccessionRegime
		want   string
	}{
		{RegimeTestate, "grant of probate"},
		{RegimeIntestate, "letters of administration intestate"},
		{RegimePartiallyIntestate, "letters of administration with the will annexed"},
	}
	for _, tc := range cases {
		ctx := s.ctx(func(p *SuccessionContextParams) { p.Regime = tc.regime })
		text := BuildStrategy(ctx, CalculateScore(SeverityCounts{}, s.now), nil, nil)
		s.Contains(text, tc.want)
	}

	customary := s.ctx(func(p *SuccessionContextParams) {
		p.Regime = RegimeCustomary
		p.Religion = ReligionAfricanCustomary
	})
	text := BuildStrategy(customary, CalculateScore(SeverityCounts{}, s.now), nil, nil)
	s.Contains(text, "confirmation of customary succession")
	s.Contains(text, "customary tribunal")
}

func (s *StrategySuite) TestStatusLeads() {
	ctx := s.ctx(nil)

	blockedRisk, err := NewRiskFlag(RiskFlagParams{
		Severity:    SeverityCritical,
		Category:    RiskMissingDeathCertificate,
		Description: "No death certificate is on record",
		Source: RiskSource{
			SourceType:      SourceComplianceEngine,
			DetectionMethod: "baseline_context_scan",
			DetectedAt:      s.now,
		},
	}, s.now)
	s.Require().NoError(err)

	s.Run("blocked leads with the blockers", func() {
		score := CalculateScore(SeverityCounts{Critical: 1}, s.now)
		text := BuildStrategy(ctx, score, []*RiskFlag{blockedRisk}, []*RiskFlag{blockedRisk})
		s.Contains(text, "Filing is blocked by 1 critical issue(s)")
		s.Contains(text, string(RiskMissingDeathCertificate))
	})

	s.Run("ready states the score and any leftovers", func() {
		score := CalculateScore(SeverityCounts{Low: 2}, s.now)
		text := BuildStrategy(ctx, score, nil, nil)
		s.Contains(text, "ready to file at 90/100")
		s.Contains(text, "2 minor issue(s) remain")
	})

	s.Run("in progress lists the top risks", func() {
		score := CalculateScore(SeverityCounts{High: 2}, s.now)
		text := BuildStrategy(ctx, score, nil, []*RiskFlag{blockedRisk})
		s.Contains(text, "Readiness is 60/100")
		s.Contains(text, "No death certificate is on record")
	})
}

func (s *StrategySuite) TestCounselLines() {
	score := CalculateScore(SeverityCounts{}, s.now)

	s.Run("islamic estates fall outside the act", func() {
		ctx := s.ctx(func(p *SuccessionContextParams) { p.Religion = ReligionIslamic })
		text := BuildStrategy(ctx, score, nil, nil)
		s.Contains(text, "Kadhi's Court")
		s.Contains(text, "Islamic law")
	})

	s.Run("urgent cases say so", func() {
		ctx := s.ctx(func(p *SuccessionContextParams) {
			p.MinorsInvolved = true
			p.EstateInsolvent = true
		})
		text := BuildStrategy(ctx, score, nil, nil)
		s.Contains(text, "Treat this case as urgent.")
		s.Contains(text, "guardianship arrangements")
		s.Contains(text, "Insolvency Act")
	})

	s.Run("identical inputs produce identical text", func() {
		ctx := s.ctx(func(p *SuccessionContextParams) { p.ForeignAssets = true })
		s.Equal(
			BuildStrategy(ctx, score, nil, nil),
			BuildStrategy(ctx, score, nil, nil),
		)
	})
}
