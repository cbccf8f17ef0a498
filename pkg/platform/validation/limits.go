package validation

import (
	"fmt"

	dErrors "mirathi/pkg/domain-errors"
)

// HTTP body limits
const (
	// MaxBodySize is the maximum allowed request body size (64 KB).
	// Sufficient for JSON APIs while preventing memory exhaustion attacks.
	MaxBodySize = 64 * 1024
)

// Slice element count limits
const (
	// MaxMitigationSteps is the maximum number of mitigation steps per risk flag.
	MaxMitigationSteps = 20

	// MaxAffectedEntities is the maximum number of affected entity references per risk flag.
	MaxAffectedEntities = 50

	// MaxResolutionEvents is the maximum number of expected resolution events per risk flag.
	MaxResolutionEvents = 10
)

// String element length limits
const (
	// MaxDescriptionLength is the maximum length of a risk flag description.
	MaxDescriptionLength = 2000

	// MaxEntityIDLength is the maximum length of an entity reference.
	MaxEntityIDLength = 100

	// MaxActorLength is the maximum length of an actor identifier.
	MaxActorLength = 255

	// MaxNotesLength is the maximum length of resolution notes, dispute reasons,
	// and similar free-text fields.
	MaxNotesLength = 2000

	// MaxLegalBasisLength is the maximum length of a statute citation.
	MaxLegalBasisLength = 500
)

// CheckSliceCount validates that a slice does not exceed the maximum count.
func CheckSliceCount(fieldName string, count, max int) error {
	if count > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("too many %s: max %d allowed", fieldName, max))
	}
	return nil
}

// CheckStringLength validates that a string does not exceed the maximum length.
func CheckStringLength(fieldName, value string, max int) error {
	if len(value) > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
	}
	return nil
}

// CheckEachStringLength validates that each string in a slice does not exceed the maximum length.
func CheckEachStringLength(fieldName string, values []string, max int) error {
	for _, v := range values {
		if len(v) > max {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
		}
	}
	return nil
}
