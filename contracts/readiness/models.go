// Package readiness hosts the stable DTOs for readiness events published on
// the event stream. Keep these versioned independently from internal
// assessment schemas or persistence models.
package readiness

import (
	"encoding/json"
	"time"
)

// ContractVersion identifies the contract schema version for compatibility checks.
// Bump on breaking changes to the shapes below; consumers can pin or roll forward.
const ContractVersion = "v0.1.0"

// EventEnvelope wraps every readiness event on the wire. Payload holds the
// event-specific DTO; EventType says which one.
type EventEnvelope struct {
	ContractVersion string          `json:"contract_version"`
	EventType       string          `json:"event_type"`
	AssessmentID    string          `json:"assessment_id"`
	EstateID        string          `json:"estate_id,omitempty"`
	OccurredAt      time.Time       `json:"occurred_at"`
	Payload         json.RawMessage `json:"payload"`
}

// AssessmentCreatedEvent announces a new assessment for an estate.
type AssessmentCreatedEvent struct {
	AssessmentID string `json:"assessment_id"`
	EstateID     string `json:"estate_id"`
	FamilyID     string `json:"family_id,omitempty"`
	Score        int    `json:"score"`
	Status       string `json:"status"`
}

// RiskFlagDetectedEvent announces a new risk flag on an assessment.
type RiskFlagDetectedEvent struct {
	AssessmentID string `json:"assessment_id"`
	RiskFlagID   string `json:"risk_flag_id"`
	Category     string `json:"category"`
	Severity     string `json:"severity"`
	Description  string `json:"description"`
	IsBlocking   bool   `json:"is_blocking"`
}

// RiskFlagResolvedEvent announces a flag closed by a person or process.
type RiskFlagResolvedEvent struct {
	AssessmentID string `json:"assessment_id"`
	RiskFlagID   string `json:"risk_flag_id"`
	Category     string `json:"category"`
	Severity     string `json:"severity"`
	Method       string `json:"method"`
	ResolvedBy   string `json:"resolved_by"`
}

// RiskFlagAutoResolvedEvent announces a flag closed by an external fact or
// the timeout sweep.
type RiskFlagAutoResolvedEvent struct {
	AssessmentID string `json:"assessment_id"`
	RiskFlagID   string `json:"risk_flag_id"`
	Category     string `json:"category"`
	Severity     string `json:"severity"`
	TriggerEvent string `json:"trigger_event"`
	EntityID     string `json:"entity_id,omitempty"`
}

// ScoreUpdatedEvent announces a recalculation landing on a new score.
type ScoreUpdatedEvent struct {
	AssessmentID  string `json:"assessment_id"`
	PreviousScore int    `json:"previous_score"`
	NewScore      int    `json:"new_score"`
}

// StatusChangedEvent announces a recalculation crossing a status boundary.
type StatusChangedEvent struct {
	AssessmentID   string `json:"assessment_id"`
	PreviousStatus string `json:"previous_status"`
	NewStatus      string `json:"new_status"`
}

// DocumentGapIdentifiedEvent announces a newly missing document type.
type DocumentGapIdentifiedEvent struct {
	AssessmentID string `json:"assessment_id"`
	DocumentType string `json:"document_type"`
	Severity     string `json:"severity"`
	Description  string `json:"description"`
	IsWaivable   bool   `json:"is_waivable"`
}

// RecommendedStrategyUpdatedEvent announces new filing strategy text.
type RecommendedStrategyUpdatedEvent struct {
	AssessmentID string `json:"assessment_id"`
	Strategy     string `json:"strategy"`
}

// AssessmentCompletedEvent announces the terminal transition.
type AssessmentCompletedEvent struct {
	AssessmentID string `json:"assessment_id"`
	EstateID     string `json:"estate_id"`
	FinalScore   int    `json:"final_score"`
}
