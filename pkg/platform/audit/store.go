package audit

import (
	"context"

	id "mirathi/pkg/domain"
)

// Store persists audit events. Implementations must be safe for concurrent
// use; Append is called from the async publisher's worker goroutine.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByAssessment(ctx context.Context, assessmentID id.AssessmentID) ([]Event, error)
	ListAll(ctx context.Context) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
