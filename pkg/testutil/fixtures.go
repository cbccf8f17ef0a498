package testutil

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"mirathi/internal/readiness/models"
	"mirathi/pkg/domain"
)

// TestIDs provides convenient pre-generated IDs for tests.
// Use these for deterministic test data.
var TestIDs = struct {
	EstateID1     domain.EstateID
	EstateID2     domain.EstateID
	FamilyID1     domain.FamilyID
	AssessmentID1 domain.AssessmentID
}{
	EstateID1:     domain.EstateID(uuid.MustParse("e0000000-0000-0000-0000-000000000001")),
	EstateID2:     domain.EstateID(uuid.MustParse("e0000000-0000-0000-0000-000000000002")),
	FamilyID1:     domain.FamilyID(uuid.MustParse("fa000000-0000-0000-0000-000000000001")),
	AssessmentID1: domain.AssessmentID(uuid.MustParse("a0000000-0000-0000-0000-000000000001")),
}

// ContextBuilder provides a fluent interface for building succession contexts.
type ContextBuilder struct {
	params models.SuccessionContextParams
}

// NewContextBuilder creates a ContextBuilder with sensible defaults:
// an intestate monogamous statutory case of modest complexity.
func NewContextBuilder() *ContextBuilder {
	return &ContextBuilder{
		params: models.SuccessionContextParams{
			Regime:             models.RegimeIntestate,
			MarriageType:       models.MarriageMonogamous,
			Religion:           models.ReligionStatutory,
			ComplexityScore:    2,
			TotalBeneficiaries: 3,
		},
	}
}

func (b *ContextBuilder) WithRegime(regime models.SuccessionRegime) *ContextBuilder {
	b.params.Regime = regime
	return b
}

func (b *ContextBuilder) WithMarriageType(marriageType models.MarriageType) *ContextBuilder {
	b.params.MarriageType = marriageType
	return b
}

func (b *ContextBuilder) WithReligion(religion models.Religion) *ContextBuilder {
	b.params.Religion = religion
	return b
}

func (b *ContextBuilder) WithMinors() *ContextBuilder {
	b.params.MinorsInvolved = true
	return b
}

func (b *ContextBuilder) WithDisputedAssets() *ContextBuilder {
	b.params.DisputedAssets = true
	return b
}

func (b *ContextBuilder) WithInsolventEstate() *ContextBuilder {
	b.params.EstateInsolvent = true
	return b
}

func (b *ContextBuilder) WithBusinessAssets() *ContextBuilder {
	b.params.BusinessAssets = true
	return b
}

func (b *ContextBuilder) WithForeignAssets() *ContextBuilder {
	b.params.ForeignAssets = true
	return b
}

func (b *ContextBuilder) WithComplexity(score int) *ContextBuilder {
	b.params.ComplexityScore = score
	return b
}

func (b *ContextBuilder) WithBeneficiaries(count int) *ContextBuilder {
	b.params.TotalBeneficiaries = count
	return b
}

func (b *ContextBuilder) WithEstateValueKES(value int64) *ContextBuilder {
	b.params.EstateValueKES = &value
	return b
}

// Build constructs the context, panicking on invalid parameters. For tests only.
func (b *ContextBuilder) Build() models.SuccessionContext {
	ctx, err := models.NewSuccessionContext(b.params)
	if err != nil {
		panic(fmt.Sprintf("ContextBuilder.Build: %v", err))
	}
	return ctx
}

// RiskParamsBuilder provides a fluent interface for building risk flag params.
type RiskParamsBuilder struct {
	params models.RiskFlagParams
}

// NewRiskParamsBuilder creates a RiskParamsBuilder describing an unverified
// asset detected by a title search, resolvable by an asset verification fact.
func NewRiskParamsBuilder(entity string, detectedAt time.Time) *RiskParamsBuilder {
	return &RiskParamsBuilder{
		params: models.RiskFlagParams{
			Severity:    models.SeverityHigh,
			Category:    models.RiskUnverifiedAsset,
			Description: "Asset " + entity + " has no verified title",
			Source: models.RiskSource{
				SourceType:       models.SourceEstateService,
				SourceEntityID:   entity,
				SourceEntityType: "asset",
				DetectionMethod:  "title_search",
				DetectedAt:       detectedAt,
			},
			AffectedEntityIDs:        []string{entity},
			ExpectedResolutionEvents: []string{models.FactAssetVerified},
			DetectionRuleID:          "estate.title_check",
		},
	}
}

func (b *RiskParamsBuilder) WithSeverity(severity models.Severity) *RiskParamsBuilder {
	b.params.Severity = severity
	return b
}

func (b *RiskParamsBuilder) WithCategory(category models.RiskCategory) *RiskParamsBuilder {
	b.params.Category = category
	return b
}

func (b *RiskParamsBuilder) WithDescription(description string) *RiskParamsBuilder {
	b.params.Description = description
	return b
}

func (b *RiskParamsBuilder) WithSource(source models.RiskSource) *RiskParamsBuilder {
	b.params.Source = source
	return b
}

func (b *RiskParamsBuilder) WithDocumentGap(gap models.DocumentGap) *RiskParamsBuilder {
	b.params.DocumentGap = &gap
	return b
}

func (b *RiskParamsBuilder) WithResolutionEvents(events ...string) *RiskParamsBuilder {
	b.params.ExpectedResolutionEvents = events
	return b
}

func (b *RiskParamsBuilder) WithRuleID(ruleID string) *RiskParamsBuilder {
	b.params.DetectionRuleID = ruleID
	return b
}

func (b *RiskParamsBuilder) Build() models.RiskFlagParams {
	return b.params
}

// Quick helper functions for simple test cases

// NewTestAssessment creates a clean assessment for the given estate.
// Panics on invalid input. For tests only.
func NewTestAssessment(estateID domain.EstateID, now time.Time) *models.ReadinessAssessment {
	a, _, err := models.NewReadinessAssessment(estateID, nil, NewContextBuilder().Build(), now)
	if err != nil {
		panic(fmt.Sprintf("NewTestAssessment: %v", err))
	}
	return a
}

// NewTestRiskParams creates risk flag params for the given entity and severity.
func NewTestRiskParams(entity string, severity models.Severity, detectedAt time.Time) models.RiskFlagParams {
	return NewRiskParamsBuilder(entity, detectedAt).WithSeverity(severity).Build()
}
