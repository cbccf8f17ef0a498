package handler

import (
	"strings"
	"time"

	"mirathi/internal/readiness/models"
	"mirathi/internal/readiness/service"
	id "mirathi/pkg/domain"
	dErrors "mirathi/pkg/domain-errors"
	strutil "mirathi/pkg/platform/strings"
	"mirathi/pkg/platform/validation"
)

// HTTP Request DTOs - contain JSON tags for API serialization.
// These are converted to service commands before processing. Presence and
// size checks run here; enum membership and pairing invariants stay with
// the model constructors.

// SuccessionContextPayload carries the legal facts of a case over the wire.
// Shared between create and context-update requests.
type SuccessionContextPayload struct {
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

func (p *SuccessionContextPayload) normalize() {
	p.Regime = strings.ToLower(strings.TrimSpace(p.Regime))
	p.MarriageType = strings.ToLower(strings.TrimSpace(p.MarriageType))
	p.Religion = strings.ToLower(strings.TrimSpace(p.Religion))
}

func (p *SuccessionContextPayload) toParams() models.SuccessionContextParams {
	return models.SuccessionContextParams{
		Regime:             models.SuccessionRegime(p.Regime),
		MarriageType:       models.MarriageType(p.MarriageType),
		Religion:           models.Religion(p.Religion),
		MinorsInvolved:     p.MinorsInvolved,
		DisputedAssets:     p.DisputedAssets,
		EstateInsolvent:    p.EstateInsolvent,
		BusinessAssets:     p.BusinessAssets,
		ForeignAssets:      p.ForeignAssets,
		CharitableBequest:  p.CharitableBequest,
		DisabledDependants: p.DisabledDependants,
		ComplexityScore:    p.ComplexityScore,
		TotalBeneficiaries: p.TotalBeneficiaries,
		EstateValueKES:     p.EstateValueKES,
	}
}

type CreateAssessmentRequest struct {
	EstateID     string                   `json:"estate_id"`
	FamilyID     string                   `json:"family_id,omitempty"`
	Context      SuccessionContextPayload `json:"context"`
	SeedBaseline bool                     `json:"seed_baseline"`
}

func (r *CreateAssessmentRequest) Normalize() {
	if r == nil {
		return
	}
	r.EstateID = strings.TrimSpace(r.EstateID)
	r.FamilyID = strings.TrimSpace(r.FamilyID)
	r.Context.normalize()
}

func (r *CreateAssessmentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.EstateID == "" {
		return dErrors.New(dErrors.CodeValidation, "estate_id is required")
	}
	return nil
}

// ToCommand converts the HTTP request to a service command.
// Returns an error if the estate or family ID is invalid.
func (r *CreateAssessmentRequest) ToCommand() (service.CreateAssessmentCommand, error) {
	estateID, err := id.ParseEstateID(r.EstateID)
	if err != nil {
		return service.CreateAssessmentCommand{}, dErrors.New(dErrors.CodeBadRequest, "invalid estate id")
	}

	cmd := service.CreateAssessmentCommand{
		EstateID:     estateID,
		Context:      r.Context.toParams(),
		SeedBaseline: r.SeedBaseline,
	}
	if r.FamilyID != "" {
		familyID, err := id.ParseFamilyID(r.FamilyID)
		if err != nil {
			return service.CreateAssessmentCommand{}, dErrors.New(dErrors.CodeBadRequest, "invalid family id")
		}
		cmd.FamilyID = &familyID
	}
	return cmd, nil
}

// RiskSourcePayload identifies what detected the risk. The detected_at
// timestamp is optional and defaults to the request time.
type RiskSourcePayload struct {
	SourceType      string     `json:"source_type"`
	EntityID        string     `json:"entity_id,omitempty"`
	EntityType      string     `json:"entity_type,omitempty"`
	DetectionMethod string     `json:"detection_method"`
	LegalBasis      string     `json:"legal_basis,omitempty"`
	DetectedAt      *time.Time `json:"detected_at,omitempty"`
}

type DocumentGapPayload struct {
	Type                  string   `json:"type"`
	Severity              string   `json:"severity"`
	Description           string   `json:"description"`
	LegalBasis            string   `json:"legal_basis,omitempty"`
	ObtainingInstructions string   `json:"obtaining_instructions,omitempty"`
	EstimatedTimeDays     int      `json:"estimated_time_days"`
	AlternativeOptions    []string `json:"alternative_options,omitempty"`
	IsWaivable            bool     `json:"is_waivable"`
}

type AddRiskFlagRequest struct {
	Severity                 string              `json:"severity"`
	Category                 string              `json:"category"`
	Description              string              `json:"description"`
	Source                   RiskSourcePayload   `json:"source"`
	LegalBasis               string              `json:"legal_basis,omitempty"`
	MitigationSteps          []string            `json:"mitigation_steps,omitempty"`
	DocumentGap              *DocumentGapPayload `json:"document_gap,omitempty"`
	AffectedEntityIDs        []string            `json:"affected_entity_ids,omitempty"`
	AffectedAggregateIDs     []string            `json:"affected_aggregate_ids,omitempty"`
	ExpectedResolutionEvents []string            `json:"expected_resolution_events,omitempty"`
	ImpactScore              int                 `json:"impact_score,omitempty"`
	DetectionRuleID          string              `json:"detection_rule_id,omitempty"`
}

// Normalize trims input and deduplicates collections for stable validation
// and fingerprinting.
func (r *AddRiskFlagRequest) Normalize() {
	if r == nil {
		return
	}
	r.Severity = strings.ToLower(strings.TrimSpace(r.Severity))
	r.Category = strings.ToLower(strings.TrimSpace(r.Category))
	r.Description = strings.TrimSpace(r.Description)
	r.LegalBasis = strings.TrimSpace(r.LegalBasis)
	r.DetectionRuleID = strings.TrimSpace(r.DetectionRuleID)
	r.Source.SourceType = strings.ToLower(strings.TrimSpace(r.Source.SourceType))
	r.Source.EntityID = strings.TrimSpace(r.Source.EntityID)
	r.Source.EntityType = strings.TrimSpace(r.Source.EntityType)
	r.Source.DetectionMethod = strings.TrimSpace(r.Source.DetectionMethod)
	r.Source.LegalBasis = strings.TrimSpace(r.Source.LegalBasis)
	r.MitigationSteps = strutil.DedupeAndTrim(r.MitigationSteps)
	r.AffectedEntityIDs = strutil.DedupeAndTrim(r.AffectedEntityIDs)
	r.AffectedAggregateIDs = strutil.DedupeAndTrim(r.AffectedAggregateIDs)
	r.ExpectedResolutionEvents = strutil.DedupeAndTrim(r.ExpectedResolutionEvents)
}

// Validate validates the add risk flag request following strict validation order.
func (r *AddRiskFlagRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}

	// Phase 1: Size validation (fail fast on oversized input)
	if err := validation.CheckStringLength("description", r.Description, validation.MaxDescriptionLength); err != nil {
		return err
	}
	if err := validation.CheckStringLength("legal basis", r.LegalBasis, validation.MaxLegalBasisLength); err != nil {
		return err
	}
	if err := validation.CheckSliceCount("mitigation steps", len(r.MitigationSteps), validation.MaxMitigationSteps); err != nil {
		return err
	}
	if err := validation.CheckSliceCount("affected entities", len(r.AffectedEntityIDs), validation.MaxAffectedEntities); err != nil {
		return err
	}
	if err := validation.CheckSliceCount("affected aggregates", len(r.AffectedAggregateIDs), validation.MaxAffectedEntities); err != nil {
		return err
	}
	if err := validation.CheckSliceCount("resolution events", len(r.ExpectedResolutionEvents), validation.MaxResolutionEvents); err != nil {
		return err
	}
	if err := validation.CheckEachStringLength("entity id", r.AffectedEntityIDs, validation.MaxEntityIDLength); err != nil {
		return err
	}
	if err := validation.CheckEachStringLength("aggregate id", r.AffectedAggregateIDs, validation.MaxEntityIDLength); err != nil {
		return err
	}

	// Phase 2: Required fields
	if r.Severity == "" {
		return dErrors.New(dErrors.CodeValidation, "severity is required")
	}
	if r.Category == "" {
		return dErrors.New(dErrors.CodeValidation, "category is required")
	}
	if r.Description == "" {
		return dErrors.New(dErrors.CodeValidation, "description is required")
	}
	if r.Source.SourceType == "" {
		return dErrors.New(dErrors.CodeValidation, "source.source_type is required")
	}
	if r.Source.DetectionMethod == "" {
		return dErrors.New(dErrors.CodeValidation, "source.detection_method is required")
	}
	return nil
}

// ToCommand converts the HTTP request to a service command. The source and
// document gap go through their model constructors so enum and pairing
// violations fail here, before the service runs.
func (r *AddRiskFlagRequest) ToCommand(now time.Time) (service.AddRiskFlagCommand, error) {
	detectedAt := now
	if r.Source.DetectedAt != nil {
		detectedAt = *r.Source.DetectedAt
	}
	source, err := models.NewRiskSource(
		models.SourceType(r.Source.SourceType),
		r.Source.EntityID,
		r.Source.EntityType,
		r.Source.DetectionMethod,
		r.Source.LegalBasis,
		detectedAt,
	)
	if err != nil {
		return service.AddRiskFlagCommand{}, err
	}

	cmd := service.AddRiskFlagCommand{
		Severity:                 models.Severity(r.Severity),
		Category:                 models.RiskCategory(r.Category),
		Description:              r.Description,
		Source:                   source,
		LegalBasis:               r.LegalBasis,
		MitigationSteps:          r.MitigationSteps,
		AffectedEntityIDs:        r.AffectedEntityIDs,
		AffectedAggregateIDs:     r.AffectedAggregateIDs,
		ExpectedResolutionEvents: r.ExpectedResolutionEvents,
		ImpactScore:              r.ImpactScore,
		DetectionRuleID:          r.DetectionRuleID,
	}
	if r.DocumentGap != nil {
		gap, err := models.NewDocumentGap(
			models.DocumentType(r.DocumentGap.Type),
			models.Severity(r.DocumentGap.Severity),
			r.DocumentGap.Description,
			r.DocumentGap.LegalBasis,
			r.DocumentGap.ObtainingInstructions,
			r.DocumentGap.EstimatedTimeDays,
			r.DocumentGap.AlternativeOptions,
			r.DocumentGap.IsWaivable,
		)
		if err != nil {
			return service.AddRiskFlagCommand{}, err
		}
		cmd.DocumentGap = &gap
	}
	return cmd, nil
}

type ResolveRiskRequest struct {
	Method     string `json:"method"`
	ResolvedBy string `json:"resolved_by"`
	Notes      string `json:"notes,omitempty"`
}

func (r *ResolveRiskRequest) Normalize() {
	if r == nil {
		return
	}
	r.Method = strings.ToLower(strings.TrimSpace(r.Method))
	r.ResolvedBy = strings.TrimSpace(r.ResolvedBy)
	r.Notes = strings.TrimSpace(r.Notes)
}

func (r *ResolveRiskRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if err := validation.CheckStringLength("resolved_by", r.ResolvedBy, validation.MaxActorLength); err != nil {
		return err
	}
	if err := validation.CheckStringLength("notes", r.Notes, validation.MaxNotesLength); err != nil {
		return err
	}
	if r.Method == "" {
		return dErrors.New(dErrors.CodeValidation, "method is required")
	}
	if r.ResolvedBy == "" {
		return dErrors.New(dErrors.CodeValidation, "resolved_by is required")
	}
	return nil
}

func (r *ResolveRiskRequest) ToCommand(riskID id.RiskFlagID) service.ResolveRiskCommand {
	return service.ResolveRiskCommand{
		RiskFlagID: riskID,
		Method:     models.ResolutionMethod(r.Method),
		ResolvedBy: r.ResolvedBy,
		Notes:      r.Notes,
	}
}

type ReopenRiskRequest struct {
	Reason string `json:"reason"`
}

func (r *ReopenRiskRequest) Normalize() {
	if r == nil {
		return
	}
	r.Reason = strings.TrimSpace(r.Reason)
}

func (r *ReopenRiskRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if err := validation.CheckStringLength("reason", r.Reason, validation.MaxNotesLength); err != nil {
		return err
	}
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	return nil
}

func (r *ReopenRiskRequest) ToCommand(riskID id.RiskFlagID) service.ReopenRiskCommand {
	return service.ReopenRiskCommand{RiskFlagID: riskID, Reason: r.Reason}
}

type DisputeRiskRequest struct {
	Reason     string `json:"reason"`
	DisputedBy string `json:"disputed_by"`
}

func (r *DisputeRiskRequest) Normalize() {
	if r == nil {
		return
	}
	r.Reason = strings.TrimSpace(r.Reason)
	r.DisputedBy = strings.TrimSpace(r.DisputedBy)
}

func (r *DisputeRiskRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if err := validation.CheckStringLength("reason", r.Reason, validation.MaxNotesLength); err != nil {
		return err
	}
	if err := validation.CheckStringLength("disputed_by", r.DisputedBy, validation.MaxActorLength); err != nil {
		return err
	}
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	return nil
}

func (r *DisputeRiskRequest) ToCommand(riskID id.RiskFlagID) service.DisputeRiskCommand {
	return service.DisputeRiskCommand{RiskFlagID: riskID, Reason: r.Reason, DisputedBy: r.DisputedBy}
}

type UpdateSeverityRequest struct {
	Severity string `json:"severity"`
	Reason   string `json:"reason,omitempty"`
}

func (r *UpdateSeverityRequest) Normalize() {
	if r == nil {
		return
	}
	r.Severity = strings.ToLower(strings.TrimSpace(r.Severity))
	r.Reason = strings.TrimSpace(r.Reason)
}

func (r *UpdateSeverityRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if err := validation.CheckStringLength("reason", r.Reason, validation.MaxNotesLength); err != nil {
		return err
	}
	if r.Severity == "" {
		return dErrors.New(dErrors.CodeValidation, "severity is required")
	}
	return nil
}

func (r *UpdateSeverityRequest) ToCommand(riskID id.RiskFlagID) service.UpdateSeverityCommand {
	return service.UpdateSeverityCommand{
		RiskFlagID: riskID,
		Severity:   models.Severity(r.Severity),
		Reason:     r.Reason,
	}
}

type UpdateContextRequest struct {
	Context SuccessionContextPayload `json:"context"`
}

func (r *UpdateContextRequest) Normalize() {
	if r == nil {
		return
	}
	r.Context.normalize()
}

func (r *UpdateContextRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Context.Regime == "" {
		return dErrors.New(dErrors.CodeValidation, "context.regime is required")
	}
	return nil
}

func (r *UpdateContextRequest) ToCommand() service.UpdateContextCommand {
	return service.UpdateContextCommand{Context: r.Context.toParams()}
}
