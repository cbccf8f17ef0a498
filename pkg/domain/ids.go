// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "mirathi/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing EstateID where AssessmentID is expected.
type (
	AssessmentID uuid.UUID
	EstateID     uuid.UUID
	FamilyID     uuid.UUID
	RiskFlagID   uuid.UUID
	EntityID     uuid.UUID
)

// NewAssessmentID generates a fresh random assessment identifier.
func NewAssessmentID() AssessmentID { return AssessmentID(uuid.New()) }

// NewEstateID generates a fresh random estate identifier.
func NewEstateID() EstateID { return EstateID(uuid.New()) }

// NewFamilyID generates a fresh random family identifier.
func NewFamilyID() FamilyID { return FamilyID(uuid.New()) }

// NewRiskFlagID generates a fresh random risk flag identifier.
func NewRiskFlagID() RiskFlagID { return RiskFlagID(uuid.New()) }

// Parse functions - use at trust boundaries (handlers, API inputs, consumed messages).

func ParseAssessmentID(s string) (AssessmentID, error) {
	id, err := parseUUID(s, "assessment ID")
	return AssessmentID(id), err
}

func ParseEstateID(s string) (EstateID, error) {
	id, err := parseUUID(s, "estate ID")
	return EstateID(id), err
}

func ParseFamilyID(s string) (FamilyID, error) {
	id, err := parseUUID(s, "family ID")
	return FamilyID(id), err
}

func ParseRiskFlagID(s string) (RiskFlagID, error) {
	id, err := parseUUID(s, "risk flag ID")
	return RiskFlagID(id), err
}

func ParseEntityID(s string) (EntityID, error) {
	id, err := parseUUID(s, "entity ID")
	return EntityID(id), err
}

// String methods - for logging and debugging.

func (id AssessmentID) String() string { return uuid.UUID(id).String() }
func (id EstateID) String() string     { return uuid.UUID(id).String() }
func (id FamilyID) String() string     { return uuid.UUID(id).String() }
func (id RiskFlagID) String() string   { return uuid.UUID(id).String() }
func (id EntityID) String() string     { return uuid.UUID(id).String() }

// IsNil checks - used for service-layer validation.

func (id AssessmentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id EstateID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id FamilyID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id RiskFlagID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id EntityID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }

// parseUUID is the shared validation logic.
// Note: Nil UUIDs are allowed here. Use IsNil() at the service layer for
// business validation, which allows store lookups to return proper
// "not found" errors for consistency.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	return id, nil
}
