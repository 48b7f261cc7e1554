// Package ledger is the append-only inventory movement log. Movements are
// deduplicated by (document_ref, line_index) so commit retries never double
// count stock.
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// MovementTypeEntry marks stock entering a location from a received document.
const MovementTypeEntry = "ENTRY"

// Movement is one inventory ledger line.
type Movement struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	PartNumberID string          `json:"partNumberId"`
	Quantity     decimal.Decimal `json:"quantity"`
	LocationID   string          `json:"locationId"`
	ProjectID    string          `json:"projectId"`
	DocumentRef  string          `json:"documentRef"`
	LineIndex    int             `json:"lineIndex"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Ledger appends movements. AppendMovement is idempotent on
// (DocumentRef, LineIndex): re-appending an existing line returns the id of
// the original movement without writing a duplicate.
type Ledger interface {
	AppendMovement(ctx context.Context, mv Movement) (string, error)
}
