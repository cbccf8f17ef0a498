package models

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"mirathi/pkg/domain"
	dErrors "mirathi/pkg/domain-errors"
	strutil "mirathi/pkg/platform/strings"
)

// RiskFlag is one concrete compliance problem standing between a case and a
// filing. It is owned by a ReadinessAssessment and mutated only through the
// aggregate. Risk flags are never physically deleted; closed flags stay on
// the assessment as the audit trail.
type RiskFlag struct {
	ID          domain.RiskFlagID
	Severity    Severity
	Category    RiskCategory
	Description string
	Source      RiskSource
	LegalBasis  string

	MitigationSteps      []string
	DocumentGap          *DocumentGap
	AffectedEntityIDs    []string
	AffectedAggregateIDs []string

	Status           RiskStatus
	ResolvedAt       *time.Time
	ResolvedBy       string
	ResolutionMethod ResolutionMethod
	ResolutionNotes  string

	DisputedBy     string
	DisputeReason  string
	SupersededByID *domain.RiskFlagID

	ExpectedResolutionEvents []string
	AutoResolveDeadline      *time.Time

	IsBlocking      bool
	ImpactScore     int
	DetectionRuleID string

	CreatedAt      time.Time
	LastReviewedAt *time.Time
	ReviewCount    int
	ReviewNotes    []string
}

// RiskFlagParams carries the raw attributes for detecting a new risk flag.
type RiskFlagParams struct {
	Severity                 Severity
	Category                 RiskCategory
	Description              string
	Source                   RiskSource
	LegalBasis               string
	MitigationSteps          []string
	DocumentGap              *DocumentGap
	AffectedEntityIDs        []string
	AffectedAggregateIDs     []string
	ExpectedResolutionEvents []string
	// ImpactScore ranks business impact 1-10; zero derives a default from
	// severity.
	ImpactScore     int
	DetectionRuleID string
}

// NewRiskFlag validates params and builds an active risk flag with a
// severity-derived auto-resolve deadline.
func NewRiskFlag(p RiskFlagParams, now time.Time) (*RiskFlag, error) {
	if !p.Severity.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown risk severity: "+string(p.Severity))
	}
	if !p.Category.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown risk category: "+string(p.Category))
	}
	if p.Description == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "risk description cannot be empty")
	}
	if p.Source.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "risk flag must carry a detection source")
	}
	impact := p.ImpactScore
	if impact == 0 {
		impact = defaultImpactScore(p.Severity)
	}
	if impact < 1 || impact > 10 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "impact score must be between 1 and 10")
	}

	affected := strutil.DedupeAndTrim(p.AffectedEntityIDs)
	slices.Sort(affected)
	aggregates := strutil.DedupeAndTrim(p.AffectedAggregateIDs)
	slices.Sort(aggregates)

	deadline := now.Add(p.Severity.AutoResolveWindow())

	return &RiskFlag{
		ID:                       domain.NewRiskFlagID(),
		Severity:                 p.Severity,
		Category:                 p.Category,
		Description:              p.Description,
		Source:                   p.Source,
		LegalBasis:               p.LegalBasis,
		MitigationSteps:          strutil.DedupeAndTrim(p.MitigationSteps),
		DocumentGap:              cloneGapPtr(p.DocumentGap),
		AffectedEntityIDs:        affected,
		AffectedAggregateIDs:     aggregates,
		Status:                   RiskStatusActive,
		ExpectedResolutionEvents: strutil.DedupeAndTrim(p.ExpectedResolutionEvents),
		AutoResolveDeadline:      &deadline,
		IsBlocking:               p.Severity == SeverityCritical,
		ImpactScore:              impact,
		DetectionRuleID:          p.DetectionRuleID,
		CreatedAt:                now,
	}, nil
}

func defaultImpactScore(s Severity) int {
	switch s {
	case SeverityCritical:
		return 9
	case SeverityHigh:
		return 7
	case SeverityMedium:
		return 5
	}
	return 3
}

// Fingerprint is the deduplication key: the same rule firing on the same
// entities through the same source is the same finding.
func (r *RiskFlag) Fingerprint() string {
	return fmt.Sprintf("%s:%s:%s:%s", r.Category, r.DetectionRuleID, r.Source.Fingerprint(), strings.Join(r.AffectedEntityIDs, ","))
}

// Unresolved reports whether the flag still counts against the score.
func (r *RiskFlag) Unresolved() bool {
	return r.Status.Unresolved()
}

// CurrentlyBlocking reports whether the flag blocks filing right now.
func (r *RiskFlag) CurrentlyBlocking() bool {
	return r.IsBlocking && r.Unresolved()
}

// Resolve closes the flag. Fails on an already-resolved flag so callers can
// distinguish double resolution, and on superseded or expired flags, which
// are closed for normal flows.
func (r *RiskFlag) Resolve(method ResolutionMethod, resolvedBy, notes string, now time.Time) error {
	if r.Status == RiskStatusResolved {
		return dErrors.New(dErrors.CodeInvariantViolation, "risk flag is already resolved")
	}
	if r.Status == RiskStatusSuperseded || r.Status == RiskStatusExpired {
		return dErrors.New(dErrors.CodeInvariantViolation, "risk flag is closed and cannot be resolved")
	}
	if !method.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown resolution method: "+string(method))
	}
	if resolvedBy == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "resolved-by cannot be empty")
	}

	r.Status = RiskStatusResolved
	r.ResolvedAt = &now
	r.ResolvedBy = resolvedBy
	r.ResolutionMethod = method
	r.ResolutionNotes = notes
	r.AutoResolveDeadline = nil
	r.markReviewed(now)
	return nil
}

// Reopen returns a resolved flag to active with a fresh severity-derived
// deadline. Only resolved flags can be reopened.
func (r *RiskFlag) Reopen(reason string, now time.Time) error {
	if r.Status != RiskStatusResolved {
		return dErrors.New(dErrors.CodeInvariantViolation, "only resolved risk flags can be reopened")
	}
	if reason == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "reopen reason cannot be empty")
	}

	r.Status = RiskStatusActive
	r.ResolvedAt = nil
	r.ResolvedBy = ""
	r.ResolutionMethod = ""
	r.ResolutionNotes = ""
	deadline := now.Add(r.Severity.AutoResolveWindow())
	r.AutoResolveDeadline = &deadline
	r.appendReviewNote(now, "reopened: "+reason)
	r.markReviewed(now)
	return nil
}

// Dispute marks an active flag as contested. The flag keeps counting against
// the score until the dispute is settled one way or the other.
func (r *RiskFlag) Dispute(reason, disputedBy string, now time.Time) error {
	if r.Status != RiskStatusActive {
		return dErrors.New(dErrors.CodeInvariantViolation, "only active risk flags can be disputed")
	}
	if reason == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "dispute reason cannot be empty")
	}

	r.Status = RiskStatusDisputed
	r.DisputeReason = reason
	r.DisputedBy = disputedBy
	r.appendReviewNote(now, "disputed: "+reason)
	r.markReviewed(now)
	return nil
}

// Supersede closes an active flag in favor of a newer one.
func (r *RiskFlag) Supersede(byID domain.RiskFlagID, now time.Time) error {
	if r.Status != RiskStatusActive {
		return dErrors.New(dErrors.CodeInvariantViolation, "only active risk flags can be superseded")
	}
	if byID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "superseding risk flag ID cannot be nil")
	}

	r.Status = RiskStatusSuperseded
	r.SupersededByID = &byID
	r.AutoResolveDeadline = nil
	r.appendReviewNote(now, "superseded by "+byID.String())
	r.markReviewed(now)
	return nil
}

// Expire closes an active flag whose underlying concern lapsed, for example
// a limitation period running out.
func (r *RiskFlag) Expire(reason string, now time.Time) error {
	if r.Status != RiskStatusActive {
		return dErrors.New(dErrors.CodeInvariantViolation, "only active risk flags can expire")
	}

	r.Status = RiskStatusExpired
	r.AutoResolveDeadline = nil
	if reason != "" {
		r.appendReviewNote(now, "expired: "+reason)
	}
	r.markReviewed(now)
	return nil
}

// UpdateSeverity reclassifies the flag. No-op when the severity is unchanged.
// Superseded and expired flags stay mutable for severity re-evaluation even
// though their lifecycle is over. Returns whether anything changed.
func (r *RiskFlag) UpdateSeverity(newSeverity Severity, reason string, now time.Time) (bool, error) {
	if !newSeverity.IsValid() {
		return false, dErrors.New(dErrors.CodeInvalidInput, "unknown risk severity: "+string(newSeverity))
	}
	if newSeverity == r.Severity {
		return false, nil
	}

	note := fmt.Sprintf("severity %s -> %s", r.Severity, newSeverity)
	if reason != "" {
		note += ": " + reason
	}

	r.Severity = newSeverity
	r.IsBlocking = newSeverity == SeverityCritical
	if r.Status == RiskStatusActive || r.Status == RiskStatusDisputed {
		deadline := now.Add(newSeverity.AutoResolveWindow())
		r.AutoResolveDeadline = &deadline
	}
	r.appendReviewNote(now, note)
	r.markReviewed(now)
	return true, nil
}

// ShouldAutoResolve reports whether the timeout sweep may close this flag.
func (r *RiskFlag) ShouldAutoResolve(now time.Time) bool {
	return r.Status == RiskStatusActive &&
		r.AutoResolveDeadline != nil &&
		!now.Before(*r.AutoResolveDeadline)
}

// MatchesResolutionEvent reports whether an external fact about entityID can
// auto-resolve this flag. Already-closed flags never match, which is what
// makes at-least-once event delivery safe.
func (r *RiskFlag) MatchesResolutionEvent(entityID string, category RiskCategory, eventType string) bool {
	if !r.Unresolved() {
		return false
	}
	if r.Category != category {
		return false
	}
	if !slices.Contains(r.AffectedEntityIDs, entityID) {
		return false
	}
	return slices.Contains(r.ExpectedResolutionEvents, eventType)
}

// PriorityScore orders flags for display: severity dominates, then open
// status, blocking effect, age beyond 30 days (capped), and business impact.
// Display ordering only; correctness never depends on it.
func (r *RiskFlag) PriorityScore(now time.Time) int {
	score := r.Severity.PriorityWeight() * 10
	if r.Status == RiskStatusActive {
		score += 20
	}
	if r.CurrentlyBlocking() {
		score += 30
	}
	ageDays := int(now.Sub(r.CreatedAt).Hours() / 24)
	agePoints := ageDays - 30
	if agePoints < 0 {
		agePoints = 0
	}
	if agePoints > 20 {
		agePoints = 20
	}
	return score + agePoints + r.ImpactScore
}

func (r *RiskFlag) markReviewed(now time.Time) {
	r.LastReviewedAt = &now
	r.ReviewCount++
}

func (r *RiskFlag) appendReviewNote(now time.Time, note string) {
	r.ReviewNotes = append(r.ReviewNotes, now.UTC().Format("2006-01-02")+" "+note)
}

// clone returns a structurally independent copy. Deep clones avoid the
// serialize-then-parse trap of dropping non-JSON-safe fields.
func (r *RiskFlag) clone() *RiskFlag {
	out := *r
	out.MitigationSteps = slices.Clone(r.MitigationSteps)
	out.AffectedEntityIDs = slices.Clone(r.AffectedEntityIDs)
	out.AffectedAggregateIDs = slices.Clone(r.AffectedAggregateIDs)
	out.ExpectedResolutionEvents = slices.Clone(r.ExpectedResolutionEvents)
	out.ReviewNotes = slices.Clone(r.ReviewNotes)
	out.DocumentGap = cloneGapPtr(r.DocumentGap)
	out.ResolvedAt = cloneTimePtr(r.ResolvedAt)
	out.AutoResolveDeadline = cloneTimePtr(r.AutoResolveDeadline)
	out.LastReviewedAt = cloneTimePtr(r.LastReviewedAt)
	if r.SupersededByID != nil {
		id := *r.SupersededByID
		out.SupersededByID = &id
	}
	return &out
}

func cloneGapPtr(g *DocumentGap) *DocumentGap {
	if g == nil {
		return nil
	}
	out := g.clone()
	return &out
}

func cloneTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	out := *t
	return &out
}
