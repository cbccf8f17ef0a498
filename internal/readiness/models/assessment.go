// Package models implements the filing-readiness domain for succession
// cases: the assessment aggregate, its risk flags, the gate-then-weight
// scoring engine, jurisdiction and priority derivations, and the domain
// events the aggregate raises. Everything here is pure and synchronous;
// persistence and transport live elsewhere.
package models

import (
	"slices"
	"time"

	"mirathi/pkg/domain"
	dErrors "mirathi/pkg/domain-errors"
)

// topRiskCount bounds how many open risks feed the strategy text.
const topRiskCount = 3

// ReadinessAssessment is the aggregate root. It owns the risk collection,
// keeps score, documents, blocking issues, and strategy consistent across
// every mutation, and raises the domain events describing what changed.
//
// Single writer per instance: methods are synchronous transformations with
// no internal locking. Concurrent writers to the same assessment are
// serialized by the persistence layer using Version as the optimistic
// concurrency token.
type ReadinessAssessment struct {
	ID       domain.AssessmentID
	EstateID domain.EstateID
	FamilyID *domain.FamilyID

	Context SuccessionContext
	Score   ReadinessScore

	RiskFlags           []*RiskFlag
	MissingDocuments    []DocumentGap
	BlockingIssues      []string
	RecommendedStrategy string

	LastAssessedAt      time.Time
	IsComplete          bool
	CompletedAt         *time.Time
	TotalRecalculations int

	// Version is advanced by the store on every successful save. A save
	// against a stale version must fail, never silently overwrite.
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// recalcOutcome summarizes what one recalculation changed. It drives which
// change events a mutation raises.
type recalcOutcome struct {
	PreviousScore   int
	NewScore        int
	PreviousStatus  ReadinessStatus
	NewStatus       ReadinessStatus
	NewDocumentGaps []DocumentGap
	StrategyChanged bool
}

// NewReadinessAssessment creates an assessment for an estate. With no risks
// yet, the initial score is a clean 100.
func NewReadinessAssessment(estateID domain.EstateID, familyID *domain.FamilyID, ctx SuccessionContext, now time.Time) (*ReadinessAssessment, []DomainEvent, error) {
	if estateID.IsNil() {
		return nil, nil, dErrors.New(dErrors.CodeInvalidInput, "estate ID cannot be nil")
	}
	if familyID != nil && familyID.IsNil() {
		return nil, nil, dErrors.New(dErrors.CodeInvalidInput, "family ID cannot be nil when provided")
	}
	if err := ctx.validate(); err != nil {
		return nil, nil, err
	}

	a := &ReadinessAssessment{
		ID:        domain.NewAssessmentID(),
		EstateID:  estateID,
		FamilyID:  familyID,
		Context:   ctx.clone(),
		Version:   1,
		CreatedAt: now,
	}
	a.recalculate(now)

	created := AssessmentCreated{
		AssessmentID: a.ID,
		EstateID:     a.EstateID,
		FamilyID:     a.FamilyID,
		Score:        a.Score.Score,
		Status:       a.Score.Status,
		OccurredAt:   now,
	}
	return a, []DomainEvent{created}, nil
}

// AddRiskFlag detects a new risk on the assessment. Rejects a duplicate of
// an unresolved flag with the same fingerprint, so the same rule firing
// twice from the same source cannot inflate the risk list.
func (a *ReadinessAssessment) AddRiskFlag(p RiskFlagParams, now time.Time) (*RiskFlag, []DomainEvent, error) {
	if err := a.ensureMutable(); err != nil {
		return nil, nil, err
	}

	risk, err := NewRiskFlag(p, now)
	if err != nil {
		return nil, nil, err
	}

	fp := risk.Fingerprint()
	for _, existing := range a.RiskFlags {
		if existing.Unresolved() && existing.Fingerprint() == fp {
			return nil, nil, dErrors.New(dErrors.CodeInvariantViolation, "an unresolved risk flag with the same fingerprint already exists")
		}
	}

	a.RiskFlags = append(a.RiskFlags, risk)
	rec := a.recalculate(now)

	events := []DomainEvent{RiskFlagDetected{
		AssessmentID: a.ID,
		RiskFlagID:   risk.ID,
		Category:     risk.Category,
		Severity:     risk.Severity,
		Description:  risk.Description,
		IsBlocking:   risk.IsBlocking,
		OccurredAt:   now,
	}}
	return risk, append(events, a.changeEvents(rec, now)...), nil
}

// ResolveRiskFlag closes one flag by ID. Absent flags are a distinct
// not-found condition; resolving an already-resolved flag is an invariant
// violation, and the failed call leaves the score untouched.
func (a *ReadinessAssessment) ResolveRiskFlag(riskID domain.RiskFlagID, method ResolutionMethod, resolvedBy, notes string, now time.Time) ([]DomainEvent, error) {
	if err := a.ensureMutable(); err != nil {
		return nil, err
	}

	risk, ok := a.findRisk(riskID)
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "risk flag not found on this assessment")
	}
	if err := risk.Resolve(method, resolvedBy, notes, now); err != nil {
		return nil, err
	}
	rec := a.recalculate(now)

	events := []DomainEvent{RiskFlagResolved{
		AssessmentID: a.ID,
		RiskFlagID:   risk.ID,
		Category:     risk.Category,
		Severity:     risk.Severity,
		Method:       method,
		ResolvedBy:   resolvedBy,
		OccurredAt:   now,
	}}
	return append(events, a.changeEvents(rec, now)...), nil
}

// AutoResolveRisks closes every unresolved flag matching the external fact
// (entityID, category, eventType). Zero matches is a no-op: no recalculation,
// no events. That makes redelivery of the same fact safe.
//
// Completed assessments ignore external facts rather than erroring; facts
// are observations, not commands, and may arrive long after completion.
func (a *ReadinessAssessment) AutoResolveRisks(entityID string, category RiskCategory, eventType, resolvedBy string, now time.Time) ([]DomainEvent, int, error) {
	if !category.IsValid() {
		return nil, 0, dErrors.New(dErrors.CodeInvalidInput, "unknown risk category: "+string(category))
	}
	if entityID == "" || eventType == "" {
		return nil, 0, dErrors.New(dErrors.CodeInvalidInput, "entity ID and event type cannot be empty")
	}
	if a.IsComplete {
		return nil, 0, nil
	}
	if resolvedBy == "" {
		resolvedBy = "system"
	}

	var matched []*RiskFlag
	for _, risk := range a.RiskFlags {
		if risk.MatchesResolutionEvent(entityID, category, eventType) {
			matched = append(matched, risk)
		}
	}
	if len(matched) == 0 {
		return nil, 0, nil
	}

	var events []DomainEvent
	for _, risk := range matched {
		if err := risk.Resolve(ResolutionExternalEvent, resolvedBy, "auto-resolved by event "+eventType, now); err != nil {
			return nil, 0, err
		}
		events = append(events, RiskFlagAutoResolved{
			AssessmentID: a.ID,
			RiskFlagID:   risk.ID,
			Category:     risk.Category,
			Severity:     risk.Severity,
			TriggerEvent: eventType,
			EntityID:     entityID,
			OccurredAt:   now,
		})
	}

	rec := a.recalculate(now)
	return append(events, a.changeEvents(rec, now)...), len(matched), nil
}

// AutoResolveTimedOut closes every active flag whose auto-resolve deadline
// has elapsed. Called by the periodic sweep, never by the aggregate itself.
func (a *ReadinessAssessment) AutoResolveTimedOut(now time.Time) ([]DomainEvent, int, error) {
	if a.IsComplete {
		return nil, 0, nil
	}

	var matched []*RiskFlag
	for _, risk := range a.RiskFlags {
		if risk.ShouldAutoResolve(now) {
			matched = append(matched, risk)
		}
	}
	if len(matched) == 0 {
		return nil, 0, nil
	}

	var events []DomainEvent
	for _, risk := range matched {
		if err := risk.Resolve(ResolutionTimeout, "system", "auto-resolved after the deadline elapsed", now); err != nil {
			return nil, 0, err
		}
		events = append(events, RiskFlagAutoResolved{
			AssessmentID: a.ID,
			RiskFlagID:   risk.ID,
			Category:     risk.Category,
			Severity:     risk.Severity,
			TriggerEvent: "auto_resolve_timeout",
			OccurredAt:   now,
		})
	}

	rec := a.recalculate(now)
	return append(events, a.changeEvents(rec, now)...), len(matched), nil
}

// ReopenRiskFlag returns a resolved flag to active. The score recomputes to
// account for the flag counting again.
func (a *ReadinessAssessment) ReopenRiskFlag(riskID domain.RiskFlagID, reason string, now time.Time) ([]DomainEvent, error) {
	if err := a.ensureMutable(); err != nil {
		return nil, err
	}

	risk, ok := a.findRisk(riskID)
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "risk flag not found on this assessment")
	}
	if err := risk.Reopen(reason, now); err != nil {
		return nil, err
	}

	rec := a.recalculate(now)
	return a.changeEvents(rec, now), nil
}

// DisputeRiskFlag marks a flag as contested. The flag keeps counting against
// the score, so this usually raises no change events.
func (a *ReadinessAssessment) DisputeRiskFlag(riskID domain.RiskFlagID, reason, disputedBy string, now time.Time) ([]DomainEvent, error) {
	if err := a.ensureMutable(); err != nil {
		return nil, err
	}

	risk, ok := a.findRisk(riskID)
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "risk flag not found on this assessment")
	}
	if err := risk.Dispute(reason, disputedBy, now); err != nil {
		return nil, err
	}

	rec := a.recalculate(now)
	return a.changeEvents(rec, now), nil
}

// UpdateRiskSeverity reclassifies one flag. A no-op severity is not a
// mutation: no recalculation, no events.
func (a *ReadinessAssessment) UpdateRiskSeverity(riskID domain.RiskFlagID, newSeverity Severity, reason string, now time.Time) ([]DomainEvent, error) {
	if err := a.ensureMutable(); err != nil {
		return nil, err
	}

	risk, ok := a.findRisk(riskID)
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "risk flag not found on this assessment")
	}
	changed, err := risk.UpdateSeverity(newSeverity, reason, now)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, nil
	}

	rec := a.recalculate(now)
	return a.changeEvents(rec, now), nil
}

// UpdateContext replaces the case's legal lens. A value-equal context is a
// no-op; otherwise everything derived recomputes. Returns whether the
// context actually changed.
func (a *ReadinessAssessment) UpdateContext(newContext SuccessionContext, now time.Time) ([]DomainEvent, bool, error) {
	if err := a.ensureMutable(); err != nil {
		return nil, false, err
	}
	if err := newContext.validate(); err != nil {
		return nil, false, err
	}
	if a.Context.Equal(newContext) {
		return nil, false, nil
	}

	a.Context = newContext.clone()
	rec := a.recalculate(now)
	return a.changeEvents(rec, now), true, nil
}

// MarkComplete is the terminal transition, allowed only once the case is
// ready to file.
func (a *ReadinessAssessment) MarkComplete(now time.Time) ([]DomainEvent, error) {
	if a.IsComplete {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "assessment is already complete")
	}
	if !a.Score.CanFile() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "assessment cannot be completed until the case is ready to file")
	}

	a.IsComplete = true
	a.CompletedAt = &now
	a.UpdatedAt = now

	return []DomainEvent{AssessmentCompleted{
		AssessmentID: a.ID,
		EstateID:     a.EstateID,
		FinalScore:   a.Score.Score,
		OccurredAt:   now,
	}}, nil
}

// SweepCandidates lists the flags the timeout sweep would close at now.
func (a *ReadinessAssessment) SweepCandidates(now time.Time) []*RiskFlag {
	var out []*RiskFlag
	for _, risk := range a.RiskFlags {
		if risk.ShouldAutoResolve(now) {
			out = append(out, risk)
		}
	}
	return out
}

// UnresolvedRiskFlags returns the flags still counting against the score,
// in detection order.
func (a *ReadinessAssessment) UnresolvedRiskFlags() []*RiskFlag {
	var out []*RiskFlag
	for _, risk := range a.RiskFlags {
		if risk.Unresolved() {
			out = append(out, risk)
		}
	}
	return out
}

// RiskFlag returns the flag with the given ID.
func (a *ReadinessAssessment) RiskFlag(riskID domain.RiskFlagID) (*RiskFlag, bool) {
	return a.findRisk(riskID)
}

// CheckInvariants recomputes everything derivable and compares it with the
// cached copies. Run after every mutation before persisting, and on every
// load: an aggregate that fails its own invariants must never be saved or
// returned.
func (a *ReadinessAssessment) CheckInvariants() error {
	recomputed := CalculateScore(a.severityCounts(), a.Score.CalculatedAt)
	if recomputed.Score != a.Score.Score || recomputed.Status != a.Score.Status {
		return dErrors.New(dErrors.CodeInvariantViolation, "cached readiness score diverges from recomputed score")
	}

	seenFingerprints := make(map[string]struct{}, len(a.RiskFlags))
	seenIDs := make(map[domain.RiskFlagID]struct{}, len(a.RiskFlags))
	for _, risk := range a.RiskFlags {
		if _, dup := seenIDs[risk.ID]; dup {
			return dErrors.New(dErrors.CodeInvariantViolation, "duplicate risk flag ID "+risk.ID.String())
		}
		seenIDs[risk.ID] = struct{}{}

		if risk.Source.IsZero() {
			return dErrors.New(dErrors.CodeInvariantViolation, "risk flag "+risk.ID.String()+" has no detection source")
		}
		if !risk.Unresolved() {
			continue
		}
		fp := risk.Fingerprint()
		if _, dup := seenFingerprints[fp]; dup {
			return dErrors.New(dErrors.CodeInvariantViolation, "two unresolved risk flags share fingerprint "+fp)
		}
		seenFingerprints[fp] = struct{}{}
	}

	if a.IsComplete && !a.Score.CanFile() {
		return dErrors.New(dErrors.CodeInvariantViolation, "assessment is complete but the case is not ready to file")
	}
	return nil
}

// Clone returns a structurally independent deep copy. Used by the in-memory
// store so callers can never mutate stored state through shared pointers.
func (a *ReadinessAssessment) Clone() *ReadinessAssessment {
	out := *a
	out.Context = a.Context.clone()
	if a.FamilyID != nil {
		id := *a.FamilyID
		out.FamilyID = &id
	}
	out.RiskFlags = make([]*RiskFlag, len(a.RiskFlags))
	for i, risk := range a.RiskFlags {
		out.RiskFlags[i] = risk.clone()
	}
	out.MissingDocuments = make([]DocumentGap, len(a.MissingDocuments))
	for i, gap := range a.MissingDocuments {
		out.MissingDocuments[i] = gap.clone()
	}
	out.BlockingIssues = slices.Clone(a.BlockingIssues)
	out.CompletedAt = cloneTimePtr(a.CompletedAt)
	return &out
}

func (a *ReadinessAssessment) ensureMutable() error {
	if a.IsComplete {
		return dErrors.New(dErrors.CodeInvariantViolation, "assessment is complete and can no longer be modified")
	}
	return nil
}

func (a *ReadinessAssessment) findRisk(riskID domain.RiskFlagID) (*RiskFlag, bool) {
	for _, risk := range a.RiskFlags {
		if risk.ID == riskID {
			return risk, true
		}
	}
	return nil, false
}

func (a *ReadinessAssessment) severityCounts() SeverityCounts {
	var counts SeverityCounts
	for _, risk := range a.RiskFlags {
		if !risk.Unresolved() {
			continue
		}
		switch risk.Severity {
		case SeverityCritical:
			counts.Critical++
		case SeverityHigh:
			counts.High++
		case SeverityMedium:
			counts.Medium++
		case SeverityLow:
			counts.Low++
		}
	}
	return counts
}

// recalculate is the shared pipeline behind every mutation: severity counts,
// score, deduped missing documents, blocking issues, strategy text, and the
// assessment bookkeeping fields.
func (a *ReadinessAssessment) recalculate(now time.Time) recalcOutcome {
	previous := a.Score
	previousDocTypes := make(map[DocumentType]struct{}, len(a.MissingDocuments))
	for _, gap := range a.MissingDocuments {
		previousDocTypes[gap.Type] = struct{}{}
	}
	previousStrategy := a.RecommendedStrategy

	a.Score = CalculateScore(a.severityCounts(), now)
	a.MissingDocuments = a.collectMissingDocuments()
	blocking := a.blockingRisks()
	a.BlockingIssues = describeBlockingIssues(blocking)
	a.RecommendedStrategy = BuildStrategy(a.Context, a.Score, blocking, a.topPriorityRisks(now))

	a.TotalRecalculations++
	a.LastAssessedAt = now
	a.UpdatedAt = now

	var newGaps []DocumentGap
	for _, gap := range a.MissingDocuments {
		if _, existed := previousDocTypes[gap.Type]; !existed {
			newGaps = append(newGaps, gap)
		}
	}

	return recalcOutcome{
		PreviousScore:   previous.Score,
		NewScore:        a.Score.Score,
		PreviousStatus:  previous.Status,
		NewStatus:       a.Score.Status,
		NewDocumentGaps: newGaps,
		StrategyChanged: a.RecommendedStrategy != previousStrategy,
	}
}

// collectMissingDocuments gathers unresolved flags' document gaps, deduped
// by document type in detection order.
func (a *ReadinessAssessment) collectMissingDocuments() []DocumentGap {
	seen := make(map[DocumentType]struct{})
	var out []DocumentGap
	for _, risk := range a.RiskFlags {
		if !risk.Unresolved() || risk.DocumentGap == nil {
			continue
		}
		if _, dup := seen[risk.DocumentGap.Type]; dup {
			continue
		}
		seen[risk.DocumentGap.Type] = struct{}{}
		out = append(out, risk.DocumentGap.clone())
	}
	return out
}

func (a *ReadinessAssessment) blockingRisks() []*RiskFlag {
	var out []*RiskFlag
	for _, risk := range a.RiskFlags {
		if risk.CurrentlyBlocking() {
			out = append(out, risk)
		}
	}
	return out
}

func describeBlockingIssues(blocking []*RiskFlag) []string {
	if len(blocking) == 0 {
		return nil
	}
	out := make([]string, 0, len(blocking))
	for _, risk := range blocking {
		out = append(out, string(risk.Category)+": "+risk.Description)
	}
	return out
}

// topPriorityRisks returns up to topRiskCount unresolved flags by descending
// priority score. Stable so equal scores keep detection order.
func (a *ReadinessAssessment) topPriorityRisks(now time.Time) []*RiskFlag {
	open := a.UnresolvedRiskFlags()
	slices.SortStableFunc(open, func(x, y *RiskFlag) int {
		return y.PriorityScore(now) - x.PriorityScore(now)
	})
	if len(open) > topRiskCount {
		open = open[:topRiskCount]
	}
	return open
}

// changeEvents turns a recalculation outcome into the events describing it.
func (a *ReadinessAssessment) changeEvents(rec recalcOutcome, now time.Time) []DomainEvent {
	var events []DomainEvent
	if rec.NewScore != rec.PreviousScore {
		events = append(events, ScoreUpdated{
			AssessmentID:  a.ID,
			PreviousScore: rec.PreviousScore,
			NewScore:      rec.NewScore,
			OccurredAt:    now,
		})
	}
	if rec.NewStatus != rec.PreviousStatus {
		events = append(events, StatusChanged{
			AssessmentID:   a.ID,
			PreviousStatus: rec.PreviousStatus,
			NewStatus:      rec.NewStatus,
			OccurredAt:     now,
		})
	}
	for _, gap := range rec.NewDocumentGaps {
		events = append(events, DocumentGapIdentified{
			AssessmentID: a.ID,
			DocumentType: gap.Type,
			Severity:     gap.Severity,
			Description:  gap.Description,
			IsWaivable:   gap.IsWaivable,
			OccurredAt:   now,
		})
	}
	if rec.StrategyChanged {
		events = append(events, RecommendedStrategyUpdated{
			AssessmentID: a.ID,
			Strategy:     a.RecommendedStrategy,
			OccurredAt:   now,
		})
	}
	return events
}
