package audit

import (
	"time"

	id "mirathi/pkg/domain"
)

// Event is emitted from domain logic to capture key actions on an
// assessment. Keep it transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category     EventCategory
	Timestamp    time.Time
	AssessmentID id.AssessmentID
	EstateID     id.EstateID
	// Subject names what the action concerned: a risk flag ID, an external
	// entity ID, or a document type.
	Subject   string
	Action    string
	Decision  string
	Reason    string
	ActorID   string
	RequestID string
}

// EventCategory groups audit events by how they are retained and reviewed.
type EventCategory string

const (
	// CategoryCompliance marks events that change the legal record of a
	// filing. These are the rows an auditor or court registrar asks for.
	CategoryCompliance EventCategory = "compliance"
	// CategoryOperations marks routine machinery: fact ingestion, sweeps.
	CategoryOperations EventCategory = "operations"
	// CategoryDomainEvent marks rows projected from the published event
	// stream by the archiving consumer.
	CategoryDomainEvent EventCategory = "domain_event"
)

type AuditEvent string

const (
	EventAssessmentCreated   AuditEvent = "assessment_created"
	EventAssessmentCompleted AuditEvent = "assessment_completed"
	EventRiskFlagAdded       AuditEvent = "risk_flag_added"
	EventRiskFlagResolved    AuditEvent = "risk_flag_resolved"
	EventRiskFlagReopened    AuditEvent = "risk_flag_reopened"
	EventRiskFlagDisputed    AuditEvent = "risk_flag_disputed"
	EventRiskSeverityUpdated AuditEvent = "risk_severity_updated"
	EventContextUpdated      AuditEvent = "context_updated"
	EventFactApplied         AuditEvent = "fact_applied"
	EventSweepCompleted      AuditEvent = "sweep_completed"
)

// complianceEvents change what a court or auditor would see on the case
// record. Everything else is operational.
var complianceEvents = map[AuditEvent]struct{}{
	EventAssessmentCreated:   {},
	EventAssessmentCompleted: {},
	EventRiskFlagAdded:       {},
	EventRiskFlagResolved:    {},
	EventRiskFlagReopened:    {},
	EventRiskFlagDisputed:    {},
	EventRiskSeverityUpdated: {},
	EventContextUpdated:      {},
}

// Category maps an event to its retention category. Unknown events default
// to CategoryOperations so a miscategorized event is treated as low-priority
// rather than silently promoted to the compliance trail.
func (e AuditEvent) Category() EventCategory {
	if _, ok := complianceEvents[e]; ok {
		return CategoryCompliance
	}
	return CategoryOperations
}
