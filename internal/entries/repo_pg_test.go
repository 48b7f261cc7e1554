package entries

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func entryRows() *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "document_number", "document_series", "supplier_name", "issue_date", "uploaded_at",
		"status", "project_id", "location_id", "storage_key", "items", "mappings", "confidence",
		"reviewed", "needs_attention", "fingerprint", "committed_movement_ids", "created_at", "updated_at",
	}).AddRow(
		"entry-1", "1234", "1", "Acme Ltda", nil, now,
		string(StatusPendingConfirmation), nil, "loc-1", "store/key", []byte(`[]`), []byte(`[]`), []byte(`{}`),
		false, false, "", []byte(`[]`), now, now,
	)
}

func TestPGStoreGetNormalizesLegacyStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "document_number", "document_series", "supplier_name", "issue_date", "uploaded_at",
		"status", "project_id", "location_id", "storage_key", "items", "mappings", "confidence",
		"reviewed", "needs_attention", "fingerprint", "committed_movement_ids", "created_at", "updated_at",
	}).AddRow(
		"entry-1", "1234", "1", "Acme Ltda", nil, now,
		"PENDING", nil, "loc-1", "store/key", []byte(`[]`), []byte(`[]`), []byte(`{}`),
		false, false, "", []byte(`[]`), now, now,
	)
	mock.ExpectQuery(`SELECT (.+) FROM pending_entries WHERE id`).
		WillReturnRows(rows)

	store := &PGStore{DB: db}
	entry, err := store.Get(context.Background(), "entry-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if entry.Status != StatusPendingConfirmation {
		t.Fatalf("legacy PENDING row must read as PENDING_CONFIRMATION, got %s", entry.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGStoreUpdateAppliesPatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`UPDATE pending_entries SET`).
		WillReturnRows(entryRows())

	store := &PGStore{DB: db}
	status := StatusProcessing
	entry, err := store.Update(context.Background(), "entry-1", Patch{Status: &status}, StatusPendingConfirmation)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if entry.ID != "entry-1" {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGStoreUpdateConcurrentModification(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	// CAS misses because the stored status moved on, but the row exists.
	mock.ExpectQuery(`UPDATE pending_entries SET`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT (.+) FROM pending_entries WHERE id`).
		WillReturnRows(entryRows())

	store := &PGStore{DB: db}
	status := StatusProcessing
	_, err = store.Update(context.Background(), "entry-1", Patch{Status: &status}, StatusPendingProject)
	if !errors.Is(err, ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGStoreUpdateNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`UPDATE pending_entries SET`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT (.+) FROM pending_entries WHERE id`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	store := &PGStore{DB: db}
	status := StatusCancelled
	_, err = store.Update(context.Background(), "missing", Patch{Status: &status}, StatusPendingConfirmation)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
