package models

import (
	"slices"

	dErrors "mirathi/pkg/domain-errors"
	strutil "mirathi/pkg/platform/strings"
)

// DocumentGap describes one missing or invalid document standing between the
// case and a filing. Immutable once constructed.
type DocumentGap struct {
	Type                  DocumentType
	Severity              Severity
	Description           string
	LegalBasis            string
	ObtainingInstructions string
	EstimatedTimeDays     int
	AlternativeOptions    []string
	IsWaivable            bool
}

// NewDocumentGap validates and builds a document gap. A critical gap can
// never be waivable: the court will not accept the filing without it.
func NewDocumentGap(docType DocumentType, severity Severity, description, legalBasis, instructions string, estimatedTimeDays int, alternatives []string, waivable bool) (DocumentGap, error) {
	if !docType.IsValid() {
		return DocumentGap{}, dErrors.New(dErrors.CodeInvalidInput, "unknown document type: "+string(docType))
	}
	if !severity.IsValid() {
		return DocumentGap{}, dErrors.New(dErrors.CodeInvalidInput, "unknown document gap severity: "+string(severity))
	}
	if description == "" {
		return DocumentGap{}, dErrors.New(dErrors.CodeInvalidInput, "document gap description cannot be empty")
	}
	if estimatedTimeDays < 0 {
		return DocumentGap{}, dErrors.New(dErrors.CodeInvalidInput, "document gap estimated time cannot be negative")
	}
	if severity == SeverityCritical && waivable {
		return DocumentGap{}, dErrors.New(dErrors.CodeInvariantViolation, "critical document gaps cannot be waivable")
	}
	return DocumentGap{
		Type:                  docType,
		Severity:              severity,
		Description:           description,
		LegalBasis:            legalBasis,
		ObtainingInstructions: instructions,
		EstimatedTimeDays:     estimatedTimeDays,
		AlternativeOptions:    strutil.DedupeAndTrim(alternatives),
		IsWaivable:            waivable,
	}, nil
}

// clone returns a structurally independent copy.
func (g DocumentGap) clone() DocumentGap {
	out := g
	out.AlternativeOptions = slices.Clone(g.AlternativeOptions)
	return out
}
