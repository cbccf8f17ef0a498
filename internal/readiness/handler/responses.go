package handler

import (
	"time"

	"mirathi/internal/readiness/models"
)

// HTTP Response DTOs. Derived fields (score, status, jurisdiction, priority)
// are always serialized from the aggregate, never echoed from the request.

type ScoreResponse struct {
	Score            int            `json:"score"`
	Status           string         `json:"status"`
	UnresolvedCounts CountsResponse `json:"unresolved_counts"`
	CalculatedAt     time.Time      `json:"calculated_at"`
}

type CountsResponse struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

type ContextResponse struct {
	Regime             string   `json:"regime"`
	MarriageType       string   `json:"marriage_type"`
	Religion           string   `json:"religion"`
	MinorsInvolved     bool     `json:"minors_involved"`
	DisputedAssets     bool     `json:"disputed_assets"`
	EstateInsolvent    bool     `json:"estate_insolvent"`
	BusinessAssets     bool     `json:"business_assets"`
	ForeignAssets      bool     `json:"foreign_assets"`
	CharitableBequest  bool     `json:"charitable_bequest"`
	DisabledDependants bool     `json:"disabled_dependants"`
	ComplexityScore    int      `json:"complexity_score"`
	TotalBeneficiaries int      `json:"total_beneficiaries"`
	EstateValueKES     *int64   `json:"estate_value_kes,omitempty"`
	CourtJurisdiction  string   `json:"court_jurisdiction"`
	CasePriority       string   `json:"case_priority"`
	ApplicableRegimes  []string `json:"applicable_regimes"`
}

type RiskSourceResponse struct {
	SourceType      string    `json:"source_type"`
	EntityID        string    `json:"entity_id,omitempty"`
	EntityType      string    `json:"entity_type,omitempty"`
	DetectionMethod string    `json:"detection_method"`
	LegalBasis      string    `json:"legal_basis,omitempty"`
	DetectedAt      time.Time `json:"detected_at"`
}

type DocumentGapResponse struct {
	Type                  string   `json:"type"`
	Severity              string   `json:"severity"`
	Description           string   `json:"description"`
	LegalBasis            string   `json:"legal_basis,omitempty"`
	ObtainingInstructions string   `json:"obtaining_instructions,omitempty"`
	EstimatedTimeDays     int      `json:"estimated_time_days"`
	AlternativeOptions    []string `json:"alternative_options,omitempty"`
	IsWaivable            bool     `json:"is_waivable"`
}

type RiskFlagResponse struct {
	ID          string             `json:"id"`
	Severity    string             `json:"severity"`
	Category    string             `json:"category"`
	Description string             `json:"description"`
	Source      RiskSourceResponse `json:"source"`
	LegalBasis  string             `json:"legal_basis,omitempty"`

	MitigationSteps      []string             `json:"mitigation_steps,omitempty"`
	DocumentGap          *DocumentGapResponse `json:"document_gap,omitempty"`
	AffectedEntityIDs    []string             `json:"affected_entity_ids,omitempty"`
	AffectedAggregateIDs []string             `json:"affected_aggregate_ids,omitempty"`

	Status           string     `json:"status"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy       string     `json:"resolved_by,omitempty"`
	ResolutionMethod string     `json:"resolution_method,omitempty"`
	ResolutionNotes  string     `json:"resolution_notes,omitempty"`

	DisputedBy     string `json:"disputed_by,omitempty"`
	DisputeReason  string `json:"dispute_reason,omitempty"`
	SupersededByID string `json:"superseded_by_id,omitempty"`

	ExpectedResolutionEvents []string   `json:"expected_resolution_events,omitempty"`
	AutoResolveDeadline      *time.Time `json:"auto_resolve_deadline,omitempty"`

	IsBlocking      bool   `json:"is_blocking"`
	ImpactScore     int    `json:"impact_score"`
	DetectionRuleID string `json:"detection_rule_id,omitempty"`

	CreatedAt      time.Time  `json:"created_at"`
	LastReviewedAt *time.Time `json:"last_reviewed_at,omitempty"`
	ReviewCount    int        `json:"review_count,omitempty"`
}

type RiskFlagListResponse struct {
	RiskFlags []*RiskFlagResponse `json:"risk_flags"`
	Count     int                 `json:"count"`
}

type AssessmentResponse struct {
	ID                  string                `json:"id"`
	EstateID            string                `json:"estate_id"`
	FamilyID            string                `json:"family_id,omitempty"`
	Context             ContextResponse       `json:"context"`
	Score               ScoreResponse         `json:"score"`
	RiskFlags           []*RiskFlagResponse   `json:"risk_flags"`
	MissingDocuments    []DocumentGapResponse `json:"missing_documents"`
	BlockingIssues      []string              `json:"blocking_issues"`
	RecommendedStrategy string                `json:"recommended_strategy,omitempty"`
	LastAssessedAt      time.Time             `json:"last_assessed_at"`
	IsComplete          bool                  `json:"is_complete"`
	CompletedAt         *time.Time            `json:"completed_at,omitempty"`
	Version             int64                 `json:"version"`
	CreatedAt           time.Time             `json:"created_at"`
	UpdatedAt           time.Time             `json:"updated_at"`
}

// Response mapping functions - convert domain objects to HTTP DTOs

func toAssessmentResponse(a *models.ReadinessAssessment) *AssessmentResponse {
	flags := make([]*RiskFlagResponse, len(a.RiskFlags))
	for i, f := range a.RiskFlags {
		flags[i] = toRiskFlagResponse(f)
	}
	gaps := make([]DocumentGapResponse, len(a.MissingDocuments))
	for i, g := range a.MissingDocuments {
		gaps[i] = toDocumentGapResponse(g)
	}

	resp := &AssessmentResponse{
		ID:                  a.ID.String(),
		EstateID:            a.EstateID.String(),
		Context:             toContextResponse(a.Context),
		Score:               toScoreResponse(a.Score),
		RiskFlags:           flags,
		MissingDocuments:    gaps,
		BlockingIssues:      a.BlockingIssues,
		RecommendedStrategy: a.RecommendedStrategy,
		LastAssessedAt:      a.LastAssessedAt,
		IsComplete:          a.IsComplete,
		CompletedAt:         a.CompletedAt,
		Version:             a.Version,
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           a.UpdatedAt,
	}
	if a.FamilyID != nil {
		resp.FamilyID = a.FamilyID.String()
	}
	return resp
}

func toScoreResponse(s models.ReadinessScore) ScoreResponse {
	return ScoreResponse{
		Score:  s.Score,
		Status: string(s.Status),
		UnresolvedCounts: CountsResponse{
			Critical: s.Counts.Critical,
			High:     s.Counts.High,
			Medium:   s.Counts.Medium,
			Low:      s.Counts.Low,
		},
		CalculatedAt: s.CalculatedAt,
	}
}

func toContextResponse(c models.SuccessionContext) ContextResponse {
	regimes := c.ApplicableRegimes()
	statutes := make([]string, len(regimes))
	for i, r := range regimes {
		statutes[i] = string(r)
	}
	return ContextResponse{
		Regime:             string(c.Regime),
		MarriageType:       string(c.MarriageType),
		Religion:           string(c.Religion),
		MinorsInvolved:     c.MinorsInvolved,
		DisputedAssets:     c.DisputedAssets,
		EstateInsolvent:    c.EstateInsolvent,
		BusinessAssets:     c.BusinessAssets,
		ForeignAssets:      c.ForeignAssets,
		CharitableBequest:  c.CharitableBequest,
		DisabledDependants: c.DisabledDependants,
		ComplexityScore:    c.ComplexityScore,
		TotalBeneficiaries: c.TotalBeneficiaries,
		EstateValueKES:     c.EstateValueKES,
		CourtJurisdiction:  string(c.CourtJurisdiction()),
		CasePriority:       string(c.CasePriority()),
		ApplicableRegimes:  statutes,
	}
}

func toRiskFlagResponse(f *models.RiskFlag) *RiskFlagResponse {
	resp := &RiskFlagResponse{
		ID:          f.ID.String(),
		Severity:    string(f.Severity),
		Category:    string(f.Category),
		Description: f.Description,
		Source: RiskSourceResponse{
			SourceType:      string(f.Source.SourceType),
			EntityID:        f.Source.SourceEntityID,
			EntityType:      f.Source.SourceEntityType,
			DetectionMethod: f.Source.DetectionMethod,
			LegalBasis:      f.Source.LegalBasis,
			DetectedAt:      f.Source.DetectedAt,
		},
		LegalBasis:               f.LegalBasis,
		MitigationSteps:          f.MitigationSteps,
		AffectedEntityIDs:        f.AffectedEntityIDs,
		AffectedAggregateIDs:     f.AffectedAggregateIDs,
		Status:                   string(f.Status),
		ResolvedAt:               f.ResolvedAt,
		ResolvedBy:               f.ResolvedBy,
		ResolutionMethod:         string(f.ResolutionMethod),
		ResolutionNotes:          f.ResolutionNotes,
		DisputedBy:               f.DisputedBy,
		DisputeReason:            f.DisputeReason,
		ExpectedResolutionEvents: f.ExpectedResolutionEvents,
		AutoResolveDeadline:      f.AutoResolveDeadline,
		IsBlocking:               f.IsBlocking,
		ImpactScore:              f.ImpactScore,
		DetectionRuleID:          f.DetectionRuleID,
		CreatedAt:                f.CreatedAt,
		LastReviewedAt:           f.LastReviewedAt,
		ReviewCount:              f.ReviewCount,
	}
	if f.DocumentGap != nil {
		gap := toDocumentGapResponse(*f.DocumentGap)
		resp.DocumentGap = &gap
	}
	if f.SupersededByID != nil {
		resp.SupersededByID = f.SupersededByID.String()
	}
	return resp
}

func toRiskFlagListResponse(flags []*models.RiskFlag) *RiskFlagListResponse {
	out := make([]*RiskFlagResponse, len(flags))
	for i, f := range flags {
		out[i] = toRiskFlagResponse(f)
	}
	return &RiskFlagListResponse{RiskFlags: out, Count: len(out)}
}

func toDocumentGapResponse(g models.DocumentGap) DocumentGapResponse {
	return DocumentGapResponse{
		Type:                  string(g.Type),
		Severity:              string(g.Severity),
		Description:           g.Description,
		LegalBasis:            g.LegalBasis,
		ObtainingInstructions: g.ObtainingInstructions,
		EstimatedTimeDays:     g.EstimatedTimeDays,
		AlternativeOptions:    g.AlternativeOptions,
		IsWaivable:            g.IsWaivable,
	}
}
