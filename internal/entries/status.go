package entries

import (
	"fmt"
	"strings"
)

// Status is the stored lifecycle state of a pending entry.
//
// PENDING_APPROVAL is never stored: it is derived from the entry's mappings,
// risk level and review flag at read time. See EffectiveStatus.
type Status string

const (
	StatusPendingProject      Status = "PENDING_PROJECT"
	StatusPendingApproval     Status = "PENDING_APPROVAL"
	StatusPendingConfirmation Status = "PENDING_CONFIRMATION"
	StatusProcessing          Status = "PROCESSING"
	StatusCompleted           Status = "COMPLETED"
	StatusRejected            Status = "REJECTED"
	StatusCancelled           Status = "CANCELLED"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// ParseStatus accepts canonical status names plus the legacy read aliases
// PENDING (for PENDING_CONFIRMATION) and CONFIRMED (for COMPLETED).
func ParseStatus(raw string) (Status, error) {
	switch Status(strings.ToUpper(strings.TrimSpace(raw))) {
	case StatusPendingProject:
		return StatusPendingProject, nil
	case StatusPendingApproval:
		return StatusPendingApproval, nil
	case StatusPendingConfirmation, Status("PENDING"):
		return StatusPendingConfirmation, nil
	case StatusProcessing:
		return StatusProcessing, nil
	case StatusCompleted, Status("CONFIRMED"):
		return StatusCompleted, nil
	case StatusRejected:
		return StatusRejected, nil
	case StatusCancelled:
		return StatusCancelled, nil
	}
	return "", fmt.Errorf("unknown status %q", raw)
}
