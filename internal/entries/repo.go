package entries

import (
	"context"

	"receiving-backend/internal/mapping"
)

// Patch is a partial update applied to an entry. Nil fields are left
// untouched; slice fields use nil for "unchanged" (an empty non-nil slice
// overwrites).
type Patch struct {
	Status               *Status
	ProjectID            *string
	Mappings             []mapping.FieldMapping
	Reviewed             *bool
	NeedsAttention       *bool
	Fingerprint          *string
	CommittedMovementIDs []string
}

// ListFilter narrows List results. Statuses filters on the stored status;
// derived-status filtering happens in the service.
type ListFilter struct {
	Statuses []Status
	Limit    int
	Offset   int
}

// Store persists pending entries.
//
// Update is a compare-and-set on the stored status: the patch applies only if
// the entry still has expectedStatus, otherwise ErrConcurrentModification is
// returned (ErrNotFound if the entry does not exist). This is the sole
// concurrency primitive of the pipeline; every state transition rides on it.
type Store interface {
	Create(ctx context.Context, entry Entry) error
	Get(ctx context.Context, id string) (Entry, error)
	Update(ctx context.Context, id string, patch Patch, expectedStatus Status) (Entry, error)
	List(ctx context.Context, filter ListFilter) ([]Entry, error)
}
