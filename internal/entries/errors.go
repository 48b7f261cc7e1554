package entries

import "errors"

var (
	// ErrNotFound means no pending entry matches the id.
	ErrNotFound = errors.New("entry not found")
	// ErrEntryNotReady means Confirm was called before the entry reached a
	// committable state (project missing, unmapped lines, review pending,
	// or wrong lifecycle status).
	ErrEntryNotReady = errors.New("entry not ready to confirm")
	// ErrInvalidTransition means the requested operation is not allowed
	// from the entry's current status.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrInvalidProject means the referenced project does not exist or is
	// inactive.
	ErrInvalidProject = errors.New("invalid project")
	// ErrInvalidLocation means the referenced location does not exist or is
	// inactive.
	ErrInvalidLocation = errors.New("invalid location")
	// ErrInvalidPartNumber means a mapping update referenced a part number
	// that does not exist or is inactive.
	ErrInvalidPartNumber = errors.New("invalid part number")
	// ErrMappingCountMismatch means a mapping update did not cover every
	// extracted line item exactly once.
	ErrMappingCountMismatch = errors.New("mapping count does not match item count")
	// ErrConcurrentModification means another request changed the entry
	// between read and write. The caller should re-read and retry.
	ErrConcurrentModification = errors.New("entry modified concurrently")
	// ErrLedgerWriteFailed means the commit exhausted its ledger write
	// budget. The entry stays in PROCESSING and is retried asynchronously.
	ErrLedgerWriteFailed = errors.New("ledger write failed")
)
