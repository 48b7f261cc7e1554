package entries

import (
	"time"

	"receiving-backend/internal/extraction"
	"receiving-backend/internal/mapping"
)

// Entry is a goods receipt waiting to be committed to the inventory ledger.
// Extracted document fields and items are immutable after creation; operators
// only change the project assignment, the mappings and the review flag.
type Entry struct {
	ID             string
	DocumentNumber string
	DocumentSeries string
	SupplierName   string
	IssueDate      *time.Time
	UploadedAt     time.Time

	Status     Status
	ProjectID  *string
	LocationID string
	StorageKey string

	Items      []extraction.LineItem
	Mappings   []mapping.FieldMapping
	Confidence extraction.ConfidenceScore

	Reviewed       bool
	NeedsAttention bool

	Fingerprint          *string
	CommittedMovementIDs []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DocumentRef identifies the source document in the inventory ledger. It is
// the dedup anchor for committed movements.
func (e *Entry) DocumentRef() string {
	if e.DocumentSeries == "" {
		return e.DocumentNumber
	}
	return e.DocumentNumber + "/" + e.DocumentSeries
}

// EffectiveStatus derives the operator-facing status. A stored
// PENDING_CONFIRMATION entry presents as PENDING_APPROVAL while any line is
// unmapped or while a non-low-risk extraction has not been reviewed.
func (e *Entry) EffectiveStatus() Status {
	if e.Status != StatusPendingConfirmation {
		return e.Status
	}
	if mapping.AnyUnresolved(e.Mappings) {
		return StatusPendingApproval
	}
	if e.Confidence.RiskLevel != extraction.RiskLow && !e.Reviewed {
		return StatusPendingApproval
	}
	return StatusPendingConfirmation
}

// ReviewRequired reports whether the entry needs operator scrutiny before it
// can be confirmed.
func (e *Entry) ReviewRequired() bool {
	return e.Confidence.RiskLevel != extraction.RiskLow || mapping.AnyUnresolved(e.Mappings)
}

// ReadyToCommit reports whether Confirm may start a commit: project assigned,
// every line mapped, and any required review done.
func (e *Entry) ReadyToCommit() bool {
	return e.EffectiveStatus() == StatusPendingConfirmation &&
		e.ProjectID != nil && *e.ProjectID != ""
}
