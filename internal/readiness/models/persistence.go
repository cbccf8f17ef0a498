package models

import (
	"slices"
	"time"

	"mirathi/pkg/domain"
	dErrors "mirathi/pkg/domain-errors"
)

// Persistable state types. These are the only serialization contract the
// domain exposes: stores and caches round-trip aggregates exclusively
// through ToState/FromState, never by reaching into live structs. The JSON
// tags serve the Postgres JSONB columns and the Redis snapshot cache alike.

// RiskSourceState is the persisted form of RiskSource.
type RiskSourceState struct {
	SourceType       string    `json:"source_type"`
	SourceEntityID   string    `json:"source_entity_id,omitempty"`
	SourceEntityType string    `json:"source_entity_type,omitempty"`
	DetectionMethod  string    `json:"detection_method"`
	LegalBasis       string    `json:"legal_basis,omitempty"`
	DetectedAt       time.Time `json:"detected_at"`
}

// DocumentGapState is the persisted form of DocumentGap.
type DocumentGapState struct {
	Type                  string   `json:"type"`
	Severity              string   `json:"severity"`
	Description           string   `json:"description"`
	LegalBasis            string   `json:"legal_basis,omitempty"`
	ObtainingInstructions string   `json:"obtaining_instructions,omitempty"`
	EstimatedTimeDays     int      `json:"estimated_time_days"`
	AlternativeOptions    []string `json:"alternative_options,omitempty"`
	IsWaivable            bool     `json:"is_waivable"`
}

// SuccessionContextState is the persisted form of SuccessionContext.
type SuccessionContextState struct {
	Regime             string `json:"regime"`
	MarriageType       string `json:"marriage_type"`
	Religion           string `json:"religion"`
	MinorsInvolved     bool   `json:"minors_involved"`
	DisputedAssets     bool   `json:"disputed_assets"`
	EstateInsolvent    bool   `json:"estate_insolvent"`
	BusinessAssets     bool   `json:"business_assets"`
	ForeignAssets      bool   `json:"foreign_assets"`
	CharitableBequest  bool   `json:"charitable_bequest"`
	DisabledDependants bool   `json:"disabled_dependants"`
	ComplexityScore    int    `json:"complexity_score"`
	TotalBeneficiaries int    `json:"total_beneficiaries"`
	EstateValueKES     *int64 `json:"estate_value_kes,omitempty"`
}

// ScoreState is the persisted form of ReadinessScore.
type ScoreState struct {
	Score         int       `json:"score"`
	Status        string    `json:"status"`
	CriticalCount int       `json:"critical_count"`
	HighCount     int       `json:"high_count"`
	MediumCount   int       `json:"medium_count"`
	LowCount      int       `json:"low_count"`
	CalculatedAt  time.Time `json:"calculated_at"`
}

// RiskFlagState is the persisted form of RiskFlag.
type RiskFlagState struct {
	ID          string `json:"id"`
	Severity    string `json:"severity"`
	Category    string `json:"category"`
	Description string `json:"description"`

	Source     RiskSourceState `json:"source"`
	LegalBasis string          `json:"legal_basis,omitempty"`

	MitigationSteps      []string          `json:"mitigation_steps,omitempty"`
	DocumentGap          *DocumentGapState `json:"document_gap,omitempty"`
	AffectedEntityIDs    []string          `json:"affected_entity_ids,omitempty"`
	AffectedAggregateIDs []string          `json:"affected_aggregate_ids,omitempty"`

	Status           string     `json:"status"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy       string     `json:"resolved_by,omitempty"`
	ResolutionMethod string     `json:"resolution_method,omitempty"`
	ResolutionNotes  string     `json:"resolution_notes,omitempty"`

	DisputedBy     string  `json:"disputed_by,omitempty"`
	DisputeReason  string  `json:"dispute_reason,omitempty"`
	SupersededByID *string `json:"superseded_by_id,omitempty"`

	ExpectedResolutionEvents []string   `json:"expected_resolution_events,omitempty"`
	AutoResolveDeadline      *time.Time `json:"auto_resolve_deadline,omitempty"`

	IsBlocking      bool   `json:"is_blocking"`
	ImpactScore     int    `json:"impact_score"`
	DetectionRuleID string `json:"detection_rule_id,omitempty"`

	CreatedAt      time.Time  `json:"created_at"`
	LastReviewedAt *time.Time `json:"last_reviewed_at,omitempty"`
	ReviewCount    int        `json:"review_count"`
	ReviewNotes    []string   `json:"review_notes,omitempty"`
}

// AssessmentState is the persisted form of ReadinessAssessment.
type AssessmentState struct {
	ID       string  `json:"id"`
	EstateID string  `json:"estate_id"`
	FamilyID *string `json:"family_id,omitempty"`

	Context SuccessionContextState `json:"context"`
	Score   ScoreState             `json:"score"`

	RiskFlags           []RiskFlagState    `json:"risk_flags"`
	MissingDocuments    []DocumentGapState `json:"missing_documents,omitempty"`
	BlockingIssues      []string           `json:"blocking_issues,omitempty"`
	RecommendedStrategy string             `json:"recommended_strategy"`

	LastAssessedAt      time.Time  `json:"last_assessed_at"`
	IsComplete          bool       `json:"is_complete"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
	TotalRecalculations int        `json:"total_recalculations"`

	Version int64 `json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToState converts the aggregate into its persistable form. All slices are
// fresh copies; the state shares no memory with the live aggregate.
func (a *ReadinessAssessment) ToState() AssessmentState {
	st := AssessmentState{
		ID:                  a.ID.String(),
		EstateID:            a.EstateID.String(),
		Context:             a.Context.toState(),
		Score:               a.Score.toState(),
		RiskFlags:           make([]RiskFlagState, len(a.RiskFlags)),
		BlockingIssues:      slices.Clone(a.BlockingIssues),
		RecommendedStrategy: a.RecommendedStrategy,
		LastAssessedAt:      a.LastAssessedAt,
		IsComplete:          a.IsComplete,
		CompletedAt:         cloneTimePtr(a.CompletedAt),
		TotalRecalculations: a.TotalRecalculations,
		Version:             a.Version,
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           a.UpdatedAt,
	}
	if a.FamilyID != nil {
		s := a.FamilyID.String()
		st.FamilyID = &s
	}
	for i, risk := range a.RiskFlags {
		st.RiskFlags[i] = risk.toState()
	}
	if len(a.MissingDocuments) > 0 {
		st.MissingDocuments = make([]DocumentGapState, len(a.MissingDocuments))
		for i, gap := range a.MissingDocuments {
			st.MissingDocuments[i] = gap.toState()
		}
	}
	return st
}

// AssessmentFromState rebuilds the aggregate from persisted state. It
// refuses to reconstruct an aggregate from malformed or inconsistent data:
// a load-time failure here surfaces as an internal error, never a guess.
func AssessmentFromState(st AssessmentState) (*ReadinessAssessment, error) {
	id, err := domain.ParseAssessmentID(st.ID)
	if err != nil {
		return nil, corruptState("assessment ID", err)
	}
	estateID, err := domain.ParseEstateID(st.EstateID)
	if err != nil {
		return nil, corruptState("estate ID", err)
	}

	a := &ReadinessAssessment{
		ID:                  id,
		EstateID:            estateID,
		RecommendedStrategy: st.RecommendedStrategy,
		BlockingIssues:      slices.Clone(st.BlockingIssues),
		LastAssessedAt:      st.LastAssessedAt,
		IsComplete:          st.IsComplete,
		CompletedAt:         cloneTimePtr(st.CompletedAt),
		TotalRecalculations: st.TotalRecalculations,
		Version:             st.Version,
		CreatedAt:           st.CreatedAt,
		UpdatedAt:           st.UpdatedAt,
	}
	if st.FamilyID != nil {
		familyID, err := domain.ParseFamilyID(*st.FamilyID)
		if err != nil {
			return nil, corruptState("family ID", err)
		}
		a.FamilyID = &familyID
	}

	a.Context, err = contextFromState(st.Context)
	if err != nil {
		return nil, corruptState("succession context", err)
	}
	a.Score, err = scoreFromState(st.Score)
	if err != nil {
		return nil, corruptState("readiness score", err)
	}

	a.RiskFlags = make([]*RiskFlag, len(st.RiskFlags))
	for i, rst := range st.RiskFlags {
		risk, err := riskFlagFromState(rst)
		if err != nil {
			return nil, corruptState("risk flag "+rst.ID, err)
		}
		a.RiskFlags[i] = risk
	}

	if len(st.MissingDocuments) > 0 {
		a.MissingDocuments = make([]DocumentGap, len(st.MissingDocuments))
		for i, gst := range st.MissingDocuments {
			gap, err := documentGapFromState(gst)
			if err != nil {
				return nil, corruptState("missing document", err)
			}
			a.MissingDocuments[i] = gap
		}
	}

	if st.Version < 1 {
		return nil, dErrors.New(dErrors.CodeInternal, "corrupt assessment state: version must be positive")
	}
	if err := a.CheckInvariants(); err != nil {
		return nil, dErrors.New(dErrors.CodeInternal, "corrupt assessment state: "+err.Error())
	}
	return a, nil
}

func corruptState(what string, err error) error {
	return dErrors.New(dErrors.CodeInternal, "corrupt assessment state: invalid "+what+": "+err.Error())
}

func (c SuccessionContext) toState() SuccessionContextState {
	st := SuccessionContextState{
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
	}
	if c.EstateValueKES != nil {
		v := *c.EstateValueKES
		st.EstateValueKES = &v
	}
	return st
}

func contextFromState(st SuccessionContextState) (SuccessionContext, error) {
	return NewSuccessionContext(SuccessionContextParams{
		Regime:             SuccessionRegime(st.Regime),
		MarriageType:       MarriageType(st.MarriageType),
		Religion:           Religion(st.Religion),
		MinorsInvolved:     st.MinorsInvolved,
		DisputedAssets:     st.DisputedAssets,
		EstateInsolvent:    st.EstateInsolvent,
		BusinessAssets:     st.BusinessAssets,
		ForeignAssets:      st.ForeignAssets,
		CharitableBequest:  st.CharitableBequest,
		DisabledDependants: st.DisabledDependants,
		ComplexityScore:    st.ComplexityScore,
		TotalBeneficiaries: st.TotalBeneficiaries,
		EstateValueKES:     st.EstateValueKES,
	})
}

func (s ReadinessScore) toState() ScoreState {
	return ScoreState{
		Score:         s.Score,
		Status:        string(s.Status),
		CriticalCount: s.Counts.Critical,
		HighCount:     s.Counts.High,
		MediumCount:   s.Counts.Medium,
		LowCount:      s.Counts.Low,
		CalculatedAt:  s.CalculatedAt,
	}
}

func scoreFromState(st ScoreState) (ReadinessScore, error) {
	status := ReadinessStatus(st.Status)
	if !status.IsValid() {
		return ReadinessScore{}, dErrors.New(dErrors.CodeInvalidInput, "unknown readiness status: "+st.Status)
	}
	if st.Score < 0 || st.Score > 100 {
		return ReadinessScore{}, dErrors.New(dErrors.CodeInvalidInput, "score outside 0-100")
	}
	if st.CriticalCount < 0 || st.HighCount < 0 || st.MediumCount < 0 || st.LowCount < 0 {
		return ReadinessScore{}, dErrors.New(dErrors.CodeInvalidInput, "negative severity count")
	}
	return ReadinessScore{
		Score:  st.Score,
		Status: status,
		Counts: SeverityCounts{
			Critical: st.CriticalCount,
			High:     st.HighCount,
			Medium:   st.MediumCount,
			Low:      st.LowCount,
		},
		CalculatedAt: st.CalculatedAt,
	}, nil
}

func (g DocumentGap) toState() DocumentGapState {
	return DocumentGapState{
		Type:                  string(g.Type),
		Severity:              string(g.Severity),
		Description:           g.Description,
		LegalBasis:            g.LegalBasis,
		ObtainingInstructions: g.ObtainingInstructions,
		EstimatedTimeDays:     g.EstimatedTimeDays,
		AlternativeOptions:    slices.Clone(g.AlternativeOptions),
		IsWaivable:            g.IsWaivable,
	}
}

func documentGapFromState(st DocumentGapState) (DocumentGap, error) {
	return NewDocumentGap(
		DocumentType(st.Type),
		Severity(st.Severity),
		st.Description,
		st.LegalBasis,
		st.ObtainingInstructions,
		st.EstimatedTimeDays,
		st.AlternativeOptions,
		st.IsWaivable,
	)
}

func (s RiskSource) toState() RiskSourceState {
	return RiskSourceState{
		SourceType:       string(s.SourceType),
		SourceEntityID:   s.SourceEntityID,
		SourceEntityType: s.SourceEntityType,
		DetectionMethod:  s.DetectionMethod,
		LegalBasis:       s.LegalBasis,
		DetectedAt:       s.DetectedAt,
	}
}

func riskSourceFromState(st RiskSourceState) (RiskSource, error) {
	return NewRiskSource(
		SourceType(st.SourceType),
		st.SourceEntityID,
		st.SourceEntityType,
		st.DetectionMethod,
		st.LegalBasis,
		st.DetectedAt,
	)
}

func (r *RiskFlag) toState() RiskFlagState {
	st := RiskFlagState{
		ID:                       r.ID.String(),
		Severity:                 string(r.Severity),
		Category:                 string(r.Category),
		Description:              r.Description,
		Source:                   r.Source.toState(),
		LegalBasis:               r.LegalBasis,
		MitigationSteps:          slices.Clone(r.MitigationSteps),
		AffectedEntityIDs:        slices.Clone(r.AffectedEntityIDs),
		AffectedAggregateIDs:     slices.Clone(r.AffectedAggregateIDs),
		Status:                   string(r.Status),
		ResolvedAt:               cloneTimePtr(r.ResolvedAt),
		ResolvedBy:               r.ResolvedBy,
		ResolutionMethod:         string(r.ResolutionMethod),
		ResolutionNotes:          r.ResolutionNotes,
		DisputedBy:               r.DisputedBy,
		DisputeReason:            r.DisputeReason,
		ExpectedResolutionEvents: slices.Clone(r.ExpectedResolutionEvents),
		AutoResolveDeadline:      cloneTimePtr(r.AutoResolveDeadline),
		IsBlocking:               r.IsBlocking,
		ImpactScore:              r.ImpactScore,
		DetectionRuleID:          r.DetectionRuleID,
		CreatedAt:                r.CreatedAt,
		LastReviewedAt:           cloneTimePtr(r.LastReviewedAt),
		ReviewCount:              r.ReviewCount,
		ReviewNotes:              slices.Clone(r.ReviewNotes),
	}
	if r.DocumentGap != nil {
		gap := r.DocumentGap.toState()
		st.DocumentGap = &gap
	}
	if r.SupersededByID != nil {
		s := r.SupersededByID.String()
		st.SupersededByID = &s
	}
	return st
}

func riskFlagFromState(st RiskFlagState) (*RiskFlag, error) {
	id, err := domain.ParseRiskFlagID(st.ID)
	if err != nil {
		return nil, err
	}
	severity := Severity(st.Severity)
	if !severity.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown risk severity: "+st.Severity)
	}
	category := RiskCategory(st.Category)
	if !category.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown risk category: "+st.Category)
	}
	status := RiskStatus(st.Status)
	if !status.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown risk status: "+st.Status)
	}
	if st.Description == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "risk description cannot be empty")
	}
	if st.ImpactScore < 1 || st.ImpactScore > 10 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "impact score must be between 1 and 10")
	}
	source, err := riskSourceFromState(st.Source)
	if err != nil {
		return nil, err
	}

	r := &RiskFlag{
		ID:                       id,
		Severity:                 severity,
		Category:                 category,
		Description:              st.Description,
		Source:                   source,
		LegalBasis:               st.LegalBasis,
		MitigationSteps:          slices.Clone(st.MitigationSteps),
		AffectedEntityIDs:        slices.Clone(st.AffectedEntityIDs),
		AffectedAggregateIDs:     slices.Clone(st.AffectedAggregateIDs),
		Status:                   status,
		ResolvedAt:               cloneTimePtr(st.ResolvedAt),
		ResolvedBy:               st.ResolvedBy,
		ResolutionNotes:          st.ResolutionNotes,
		DisputedBy:               st.DisputedBy,
		DisputeReason:            st.DisputeReason,
		ExpectedResolutionEvents: slices.Clone(st.ExpectedResolutionEvents),
		AutoResolveDeadline:      cloneTimePtr(st.AutoResolveDeadline),
		IsBlocking:               st.IsBlocking,
		ImpactScore:              st.ImpactScore,
		DetectionRuleID:          st.DetectionRuleID,
		CreatedAt:                st.CreatedAt,
		LastReviewedAt:           cloneTimePtr(st.LastReviewedAt),
		ReviewCount:              st.ReviewCount,
		ReviewNotes:              slices.Clone(st.ReviewNotes),
	}

	if st.DocumentGap != nil {
		gap, err := documentGapFromState(*st.DocumentGap)
		if err != nil {
			return nil, err
		}
		r.DocumentGap = &gap
	}
	if st.SupersededByID != nil {
		supersededBy, err := domain.ParseRiskFlagID(*st.SupersededByID)
		if err != nil {
			return nil, err
		}
		r.SupersededByID = &supersededBy
	}

	if st.ResolutionMethod != "" {
		method := ResolutionMethod(st.ResolutionMethod)
		if !method.IsValid() {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown resolution method: "+st.ResolutionMethod)
		}
		r.ResolutionMethod = method
	}
	if status == RiskStatusResolved {
		if r.ResolvedAt == nil || r.ResolutionMethod == "" {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "resolved risk flag is missing its resolution record")
		}
	}
	if r.IsBlocking != (severity == SeverityCritical) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "blocking flag diverges from severity")
	}
	return r, nil
}
