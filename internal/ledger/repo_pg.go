package ledger

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// PGLedger implements Ledger using Postgres. Dedup rides on the unique
// (document_ref, line_index) index: conflicting inserts write nothing and the
// follow-up select returns the original movement id.
type PGLedger struct {
	DB *sql.DB
}

func (l *PGLedger) AppendMovement(ctx context.Context, mv Movement) (string, error) {
	const insert = `
INSERT INTO inventory_movements (
	id, movement_type, part_number_id, quantity, location_id, project_id,
	document_ref, line_index, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (document_ref, line_index) DO NOTHING`

	id := uuid.NewString()
	res, err := l.DB.ExecContext(ctx, insert,
		id,
		mv.Type,
		mv.PartNumberID,
		mv.Quantity,
		mv.LocationID,
		mv.ProjectID,
		mv.DocumentRef,
		mv.LineIndex,
		time.Now().UTC(),
	)
	if err != nil {
		return "", err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return id, nil
	}

	const lookup = `SELECT id FROM inventory_movements WHERE document_ref = $1 AND line_index = $2`
	var existing string
	if err := l.DB.QueryRowContext(ctx, lookup, mv.DocumentRef, mv.LineIndex).Scan(&existing); err != nil {
		return "", err
	}
	return existing, nil
}

var _ Ledger = (*PGLedger)(nil)
