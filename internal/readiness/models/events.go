package models

import (
	"time"

	"mirathi/pkg/domain"
)

// Event type names as they appear on the wire and in the outbox.
const (
	EventTypeAssessmentCreated   = "readiness.assessment.created"
	EventTypeRiskFlagDetected    = "readiness.risk_flag.detected"
	EventTypeRiskFlagResolved    = "readiness.risk_flag.resolved"
	EventTypeRiskFlagAutoResolve = "readiness.risk_flag.auto_resolved"
	EventTypeScoreUpdated        = "readiness.score.updated"
	EventTypeStatusChanged       = "readiness.status.changed"
	EventTypeDocumentGapFound    = "readiness.document_gap.identified"
	EventTypeStrategyUpdated     = "readiness.strategy.updated"
	EventTypeAssessmentCompleted = "readiness.assessment.completed"
)

// DomainEvent is implemented by every event the aggregate raises. Events are
// additive audit records: the aggregate never replays them to rebuild state.
type DomainEvent interface {
	EventType() string
}

// AssessmentCreated is raised once when an estate gets its assessment.
type AssessmentCreated struct {
	AssessmentID domain.AssessmentID
	EstateID     domain.EstateID
	FamilyID     *domain.FamilyID
	Score        int
	Status       ReadinessStatus
	OccurredAt   time.Time
}

func (AssessmentCreated) EventType() string { return EventTypeAssessmentCreated }

// RiskFlagDetected is raised for every risk flag added to an assessment.
type RiskFlagDetected struct {
	AssessmentID domain.AssessmentID
	RiskFlagID   domain.RiskFlagID
	Category     RiskCategory
	Severity     Severity
	Description  string
	IsBlocking   bool
	OccurredAt   time.Time
}

func (RiskFlagDetected) EventType() string { return EventTypeRiskFlagDetected }

// RiskFlagResolved is raised when a flag is closed by a person or process.
type RiskFlagResolved struct {
	AssessmentID domain.AssessmentID
	RiskFlagID   domain.RiskFlagID
	Category     RiskCategory
	Severity     Severity
	Method       ResolutionMethod
	ResolvedBy   string
	OccurredAt   time.Time
}

func (RiskFlagResolved) EventType() string { return EventTypeRiskFlagResolved }

// RiskFlagAutoResolved is raised when an external fact or the timeout sweep
// closes a flag without human action.
type RiskFlagAutoResolved struct {
	AssessmentID domain.AssessmentID
	RiskFlagID   domain.RiskFlagID
	Category     RiskCategory
	Severity     Severity
	TriggerEvent string
	EntityID     string
	OccurredAt   time.Time
}

func (RiskFlagAutoResolved) EventType() string { return EventTypeRiskFlagAutoResolve }

// ScoreUpdated is raised whenever a recalculation lands on a new score.
type ScoreUpdated struct {
	AssessmentID  domain.AssessmentID
	PreviousScore int
	NewScore      int
	OccurredAt    time.Time
}

func (ScoreUpdated) EventType() string { return EventTypeScoreUpdated }

// StatusChanged is raised whenever a recalculation crosses a status boundary.
type StatusChanged struct {
	AssessmentID   domain.AssessmentID
	PreviousStatus ReadinessStatus
	NewStatus      ReadinessStatus
	OccurredAt     time.Time
}

func (StatusChanged) EventType() string { return EventTypeStatusChanged }

// DocumentGapIdentified is raised when a recalculation introduces a missing
// document type not previously on the assessment.
type DocumentGapIdentified struct {
	AssessmentID domain.AssessmentID
	DocumentType DocumentType
	Severity     Severity
	Description  string
	IsWaivable   bool
	OccurredAt   time.Time
}

func (DocumentGapIdentified) EventType() string { return EventTypeDocumentGapFound }

// RecommendedStrategyUpdated is raised when the generated filing strategy
// text changes.
type RecommendedStrategyUpdated struct {
	AssessmentID domain.AssessmentID
	Strategy     string
	OccurredAt   time.Time
}

func (RecommendedStrategyUpdated) EventType() string { return EventTypeStrategyUpdated }

// AssessmentCompleted is raised once on the terminal transition.
type AssessmentCompleted struct {
	AssessmentID domain.AssessmentID
	EstateID     domain.EstateID
	FinalScore   int
	OccurredAt   time.Time
}

func (AssessmentCompleted) EventType() string { return EventTypeAssessmentCompleted }
