package service

import (
	"strings"

	"mirathi/internal/readiness/models"
	id "mirathi/pkg/domain"
	dErrors "mirathi/pkg/domain-errors"
)

// Commands carry validated input for assessment mutations. Presence checks
// live here; deep domain rules (enum membership, pairing invariants) stay
// with the model constructors so they cannot drift.

// CreateAssessmentCommand opens a readiness assessment for an estate.
type CreateAssessmentCommand struct {
	EstateID id.EstateID
	FamilyID *id.FamilyID
	Context  models.SuccessionContextParams
	// SeedBaseline runs the canonical compliance rules against the context
	// and attaches the resulting risk flags at creation time.
	SeedBaseline bool
}

func (c *CreateAssessmentCommand) Validate() error {
	if c.EstateID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "estate_id is required")
	}
	if c.FamilyID != nil && c.FamilyID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "family_id cannot be empty when provided")
	}
	return nil
}

// AddRiskFlagCommand detects a new risk on an assessment.
type AddRiskFlagCommand struct {
	Severity                 models.Severity
	Category                 models.RiskCategory
	Description              string
	Source                   models.RiskSource
	LegalBasis               string
	MitigationSteps          []string
	DocumentGap              *models.DocumentGap
	AffectedEntityIDs        []string
	AffectedAggregateIDs     []string
	ExpectedResolutionEvents []string
	ImpactScore              int
	DetectionRuleID          string
}

func (c *AddRiskFlagCommand) Normalize() {
	c.Description = strings.TrimSpace(c.Description)
	c.LegalBasis = strings.TrimSpace(c.LegalBasis)
	c.DetectionRuleID = strings.TrimSpace(c.DetectionRuleID)
}

func (c *AddRiskFlagCommand) Validate() error {
	if c.Severity == "" {
		return dErrors.New(dErrors.CodeValidation, "severity is required")
	}
	if c.Category == "" {
		return dErrors.New(dErrors.CodeValidation, "category is required")
	}
	if c.Description == "" {
		return dErrors.New(dErrors.CodeValidation, "description is required")
	}
	return nil
}

func (c *AddRiskFlagCommand) params() models.RiskFlagParams {
	return models.RiskFlagParams{
		Severity:                 c.Severity,
		Category:                 c.Category,
		Description:              c.Description,
		Source:                   c.Source,
		LegalBasis:               c.LegalBasis,
		MitigationSteps:          c.MitigationSteps,
		DocumentGap:              c.DocumentGap,
		AffectedEntityIDs:        c.AffectedEntityIDs,
		AffectedAggregateIDs:     c.AffectedAggregateIDs,
		ExpectedResolutionEvents: c.ExpectedResolutionEvents,
		ImpactScore:              c.ImpactScore,
		DetectionRuleID:          c.DetectionRuleID,
	}
}

// ResolveRiskCommand closes a risk flag by human or process decision.
type ResolveRiskCommand struct {
	RiskFlagID id.RiskFlagID
	Method     models.ResolutionMethod
	ResolvedBy string
	Notes      string
}

func (c *ResolveRiskCommand) Normalize() {
	c.ResolvedBy = strings.TrimSpace(c.ResolvedBy)
	c.Notes = strings.TrimSpace(c.Notes)
}

func (c *ResolveRiskCommand) Validate() error {
	if err := requireRiskFlagID(c.RiskFlagID); err != nil {
		return err
	}
	if c.Method == "" {
		return dErrors.New(dErrors.CodeValidation, "resolution method is required")
	}
	if c.ResolvedBy == "" {
		return dErrors.New(dErrors.CodeValidation, "resolved_by is required")
	}
	return nil
}

// ReopenRiskCommand returns a resolved risk flag to active.
type ReopenRiskCommand struct {
	RiskFlagID id.RiskFlagID
	Reason     string
}

func (c *ReopenRiskCommand) Normalize() {
	c.Reason = strings.TrimSpace(c.Reason)
}

func (c *ReopenRiskCommand) Validate() error {
	if err := requireRiskFlagID(c.RiskFlagID); err != nil {
		return err
	}
	if c.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	return nil
}

// DisputeRiskCommand contests an active risk flag.
type DisputeRiskCommand struct {
	RiskFlagID id.RiskFlagID
	Reason     string
	DisputedBy string
}

func (c *DisputeRiskCommand) Normalize() {
	c.Reason = strings.TrimSpace(c.Reason)
	c.DisputedBy = strings.TrimSpace(c.DisputedBy)
}

func (c *DisputeRiskCommand) Validate() error {
	if err := requireRiskFlagID(c.RiskFlagID); err != nil {
		return err
	}
	if c.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	return nil
}

// UpdateSeverityCommand reclassifies a risk flag's severity.
type UpdateSeverityCommand struct {
	RiskFlagID id.RiskFlagID
	Severity   models.Severity
	Reason     string
}

func (c *UpdateSeverityCommand) Normalize() {
	c.Reason = strings.TrimSpace(c.Reason)
}

func (c *UpdateSeverityCommand) Validate() error {
	if err := requireRiskFlagID(c.RiskFlagID); err != nil {
		return err
	}
	if c.Severity == "" {
		return dErrors.New(dErrors.CodeValidation, "severity is required")
	}
	return nil
}

// UpdateContextCommand replaces the succession context on an assessment.
type UpdateContextCommand struct {
	Context models.SuccessionContextParams
}

// RiskFlagFilter narrows a risk flag listing. Nil fields match everything.
type RiskFlagFilter struct {
	Status       *models.RiskStatus
	Category     *models.RiskCategory
	Severity     *models.Severity
	BlockingOnly bool
}

func (f *RiskFlagFilter) Validate() error {
	if f.Status != nil && !f.Status.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unknown risk status: "+string(*f.Status))
	}
	if f.Category != nil && !f.Category.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unknown risk category: "+string(*f.Category))
	}
	if f.Severity != nil && !f.Severity.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unknown risk severity: "+string(*f.Severity))
	}
	return nil
}

func (f *RiskFlagFilter) matches(flag *models.RiskFlag) bool {
	if f.Status != nil && flag.Status != *f.Status {
		return false
	}
	if f.Category != nil && flag.Category != *f.Category {
		return false
	}
	if f.Severity != nil && flag.Severity != *f.Severity {
		return false
	}
	if f.BlockingOnly && !flag.CurrentlyBlocking() {
		return false
	}
	return true
}
