package models

import (
	"fmt"
	"time"

	dErrors "mirathi/pkg/domain-errors"
)

// RiskSource records which system or rule detected a risk, when, and why.
// It is immutable once constructed and feeds both deduplication (via
// Fingerprint) and event-driven auto-resolution.
type RiskSource struct {
	SourceType       SourceType
	SourceEntityID   string
	SourceEntityType string
	DetectionMethod  string
	LegalBasis       string
	DetectedAt       time.Time
}

// NewRiskSource validates and builds a risk source. The entity ID and entity
// type are an optional pair: if one is present, both must be.
func NewRiskSource(sourceType SourceType, entityID, entityType, detectionMethod, legalBasis string, detectedAt time.Time) (RiskSource, error) {
	if !sourceType.IsValid() {
		return RiskSource{}, dErrors.New(dErrors.CodeInvalidInput, "unknown risk source type: "+string(sourceType))
	}
	if detectionMethod == "" {
		return RiskSource{}, dErrors.New(dErrors.CodeInvalidInput, "risk source detection method cannot be empty")
	}
	if (entityID == "") != (entityType == "") {
		return RiskSource{}, dErrors.New(dErrors.CodeInvariantViolation, "risk source entity ID and entity type must be set together")
	}
	if detectedAt.IsZero() {
		return RiskSource{}, dErrors.New(dErrors.CodeInvalidInput, "risk source detection time cannot be zero")
	}
	return RiskSource{
		SourceType:       sourceType,
		SourceEntityID:   entityID,
		SourceEntityType: entityType,
		DetectionMethod:  detectionMethod,
		LegalBasis:       legalBasis,
		DetectedAt:       detectedAt,
	}, nil
}

// IsZero reports whether the source was never constructed. Every risk flag
// must carry a non-zero source.
func (s RiskSource) IsZero() bool {
	return s.SourceType == "" && s.DetectionMethod == ""
}

// Fingerprint identifies the detection channel for deduplication. Two
// detections from the same system, entity, and method are the same finding.
func (s RiskSource) Fingerprint() string {
	return fmt.Sprintf("%s:%s:%s:%s", s.SourceType, s.SourceEntityType, s.SourceEntityID, s.DetectionMethod)
}
