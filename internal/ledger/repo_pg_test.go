package ledger

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
)

func TestPGLedgerAppendNewMovement(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`INSERT INTO inventory_movements`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	l := &PGLedger{DB: db}
	id, err := l.AppendMovement(context.Background(), Movement{
		Type:         MovementTypeEntry,
		PartNumberID: "pn-1",
		Quantity:     decimal.NewFromInt(3),
		LocationID:   "loc-1",
		DocumentRef:  "1234/1",
		LineIndex:    0,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if id == "" {
		t.Fatal("expected a movement id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGLedgerAppendConflictReturnsExistingID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`INSERT INTO inventory_movements`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT id FROM inventory_movements`).
		WithArgs("1234/1", 0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("mv-existing"))

	l := &PGLedger{DB: db}
	id, err := l.AppendMovement(context.Background(), Movement{
		Type:        MovementTypeEntry,
		Quantity:    decimal.NewFromInt(3),
		DocumentRef: "1234/1",
		LineIndex:   0,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if id != "mv-existing" {
		t.Fatalf("conflict must return the original id, got %s", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
