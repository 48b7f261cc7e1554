package entries

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PGStore implements Store using Postgres.
type PGStore struct {
	DB *sql.DB
}

const entryColumns = `
id, document_number, document_series, supplier_name, issue_date, uploaded_at,
status, project_id, location_id, storage_key, items, mappings, confidence,
reviewed, needs_attention, fingerprint, committed_movement_ids, created_at, updated_at`

func (s *PGStore) Create(ctx context.Context, entry Entry) error {
	const query = `
INSERT INTO pending_entries (
	id, document_number, document_series, supplier_name, issue_date, uploaded_at,
	status, project_id, location_id, storage_key, items, mappings, confidence,
	reviewed, needs_attention, fingerprint, committed_movement_ids, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	items, err := json.Marshal(entry.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	mappings, err := json.Marshal(entry.Mappings)
	if err != nil {
		return fmt.Errorf("marshal mappings: %w", err)
	}
	confidence, err := json.Marshal(entry.Confidence)
	if err != nil {
		return fmt.Errorf("marshal confidence: %w", err)
	}
	movementIDs, err := json.Marshal(movementIDsOrEmpty(entry.CommittedMovementIDs))
	if err != nil {
		return fmt.Errorf("marshal movement ids: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.DB.ExecContext(ctx, query,
		entry.ID,
		entry.DocumentNumber,
		entry.DocumentSeries,
		entry.SupplierName,
		entry.IssueDate,
		entry.UploadedAt,
		entry.Status,
		entry.ProjectID,
		entry.LocationID,
		entry.StorageKey,
		items,
		mappings,
		confidence,
		entry.Reviewed,
		entry.NeedsAttention,
		fingerprintOrEmpty(entry.Fingerprint),
		movementIDs,
		now,
		now,
	)
	return err
}

func (s *PGStore) Get(ctx context.Context, id string) (Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM pending_entries WHERE id = $1`
	entry, err := scanEntry(s.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return entry, err
}

// Update applies the patch only if the stored status still matches
// expectedStatus. A zero-row update is disambiguated with a follow-up read:
// missing row means ErrNotFound, a surviving row means another writer won the
// race.
func (s *PGStore) Update(ctx context.Context, id string, patch Patch, expectedStatus Status) (Entry, error) {
	sets := []string{"updated_at = now()"}
	args := []any{id, expectedStatus}
	next := 3

	add := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, next))
		args = append(args, value)
		next++
	}

	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.ProjectID != nil {
		add("project_id", *patch.ProjectID)
	}
	if patch.Mappings != nil {
		payload, err := json.Marshal(patch.Mappings)
		if err != nil {
			return Entry{}, fmt.Errorf("marshal mappings: %w", err)
		}
		add("mappings", payload)
	}
	if patch.Reviewed != nil {
		add("reviewed", *patch.Reviewed)
	}
	if patch.NeedsAttention != nil {
		add("needs_attention", *patch.NeedsAttention)
	}
	if patch.Fingerprint != nil {
		add("fingerprint", *patch.Fingerprint)
	}
	if patch.CommittedMovementIDs != nil {
		payload, err := json.Marshal(patch.CommittedMovementIDs)
		if err != nil {
			return Entry{}, fmt.Errorf("marshal movement ids: %w", err)
		}
		add("committed_movement_ids", payload)
	}

	query := `UPDATE pending_entries SET ` + strings.Join(sets, ", ") +
		` WHERE id = $1 AND status = $2 RETURNING ` + entryColumns

	entry, err := scanEntry(s.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := s.Get(ctx, id); errors.Is(getErr, ErrNotFound) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, ErrConcurrentModification
	}
	return entry, err
}

func (s *PGStore) List(ctx context.Context, filter ListFilter) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM pending_entries`
	var args []any

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
			args = append(args, st)
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY uploaded_at DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, len(args)+1)
		args = append(args, filter.Offset)
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		entry       Entry
		issueDate   sql.NullTime
		rawStatus   string
		projectID   sql.NullString
		items       []byte
		mappings    []byte
		confidence  []byte
		fingerprint string
		movementIDs []byte
	)
	err := row.Scan(
		&entry.ID,
		&entry.DocumentNumber,
		&entry.DocumentSeries,
		&entry.SupplierName,
		&issueDate,
		&entry.UploadedAt,
		&rawStatus,
		&projectID,
		&entry.LocationID,
		&entry.StorageKey,
		&items,
		&mappings,
		&confidence,
		&entry.Reviewed,
		&entry.NeedsAttention,
		&fingerprint,
		&movementIDs,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		return Entry{}, err
	}

	// Rows written before status normalization may carry the PENDING or
	// CONFIRMED aliases; fold them into the canonical names.
	entry.Status, err = ParseStatus(rawStatus)
	if err != nil {
		return Entry{}, fmt.Errorf("scan status: %w", err)
	}

	if issueDate.Valid {
		t := issueDate.Time
		entry.IssueDate = &t
	}
	if projectID.Valid {
		entry.ProjectID = &projectID.String
	}
	if fingerprint != "" {
		entry.Fingerprint = &fingerprint
	}
	if err := json.Unmarshal(items, &entry.Items); err != nil {
		return Entry{}, fmt.Errorf("unmarshal items: %w", err)
	}
	if err := json.Unmarshal(mappings, &entry.Mappings); err != nil {
		return Entry{}, fmt.Errorf("unmarshal mappings: %w", err)
	}
	if err := json.Unmarshal(confidence, &entry.Confidence); err != nil {
		return Entry{}, fmt.Errorf("unmarshal confidence: %w", err)
	}
	if err := json.Unmarshal(movementIDs, &entry.CommittedMovementIDs); err != nil {
		return Entry{}, fmt.Errorf("unmarshal movement ids: %w", err)
	}
	return entry, nil
}

func fingerprintOrEmpty(fp *string) string {
	if fp == nil {
		return ""
	}
	return *fp
}

func movementIDsOrEmpty(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

var _ Store = (*PGStore)(nil)
