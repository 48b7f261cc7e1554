package entries

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"receiving-backend/internal/extraction"
	"receiving-backend/internal/ledger"
	"receiving-backend/internal/mapping"
)

type flakyLedger struct {
	inner    ledger.Ledger
	failures int
	calls    int
}

func (f *flakyLedger) AppendMovement(ctx context.Context, mv ledger.Movement) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", errors.New("ledger unavailable")
	}
	return f.inner.AppendMovement(ctx, mv)
}

type fakeEnqueuer struct {
	entryIDs []string
}

func (f *fakeEnqueuer) EnqueueRetry(ctx context.Context, entryID string) error {
	f.entryIDs = append(f.entryIDs, entryID)
	return nil
}

func committableEntry(id string) Entry {
	project := "proj-1"
	pn1 := "pn-1"
	pn2 := "pn-2"
	return Entry{
		ID:             id,
		DocumentNumber: "1234",
		DocumentSeries: "1",
		SupplierName:   "Acme Ltda",
		UploadedAt:     time.Now().UTC(),
		Status:         StatusPendingConfirmation,
		ProjectID:      &project,
		LocationID:     "loc-1",
		Items: []extraction.LineItem{
			{ProductCode: "BR-100", Quantity: decimal.NewFromInt(5), UnitOfMeasure: "UN", UnitValue: decimal.NewFromInt(10)},
			{ProductCode: "SC-200", Quantity: decimal.NewFromInt(2), UnitOfMeasure: "UN", UnitValue: decimal.NewFromInt(3)},
		},
		Mappings: []mapping.FieldMapping{
			{ItemIndex: 0, PartNumberID: &pn1, Confidence: 1.0},
			{ItemIndex: 1, PartNumberID: &pn2, Confidence: 1.0},
		},
		Confidence: extraction.ConfidenceScore{Overall: 0.95, RiskLevel: extraction.RiskLow},
	}
}

func TestCommitterConfirmHappyPath(t *testing.T) {
	store := NewMemoryStore()
	lg := ledger.NewMemoryLedger()
	if err := store.Create(context.Background(), committableEntry("entry-1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	c := NewCommitter(store, lg, nil, 3)
	result, err := c.Confirm(context.Background(), "entry-1")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if result.AlreadyCommitted {
		t.Fatal("first confirm must not report AlreadyCommitted")
	}
	if len(result.MovementIDs) != 2 {
		t.Fatalf("expected 2 movements, got %d", len(result.MovementIDs))
	}
	if result.Fingerprint == "" {
		t.Fatal("expected a fingerprint")
	}

	entry, err := store.Get(context.Background(), "entry-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if entry.Status != StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", entry.Status)
	}
	if len(entry.CommittedMovementIDs) != 2 {
		t.Fatalf("movement ids not persisted: %+v", entry.CommittedMovementIDs)
	}
}

func TestCommitterConfirmIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	lg := ledger.NewMemoryLedger()
	if err := store.Create(context.Background(), committableEntry("entry-1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	c := NewCommitter(store, lg, nil, 3)
	first, err := c.Confirm(context.Background(), "entry-1")
	if err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	second, err := c.Confirm(context.Background(), "entry-1")
	if err != nil {
		t.Fatalf("second confirm: %v", err)
	}
	if !second.AlreadyCommitted {
		t.Fatal("second confirm must report AlreadyCommitted")
	}
	if len(second.MovementIDs) != len(first.MovementIDs) {
		t.Fatalf("movement ids diverged: %v vs %v", first.MovementIDs, second.MovementIDs)
	}
	if len(lg.Movements()) != 2 {
		t.Fatalf("ledger must hold exactly 2 movements, got %d", len(lg.Movements()))
	}
}

func TestCommitterConfirmRejectsUnreadyEntry(t *testing.T) {
	store := NewMemoryStore()
	entry := committableEntry("entry-1")
	entry.ProjectID = nil
	entry.Status = StatusPendingProject
	if err := store.Create(context.Background(), entry); err != nil {
		t.Fatalf("create: %v", err)
	}

	c := NewCommitter(store, ledger.NewMemoryLedger(), nil, 3)
	_, err := c.Confirm(context.Background(), "entry-1")
	if !errors.Is(err, ErrEntryNotReady) {
		t.Fatalf("expected ErrEntryNotReady, got %v", err)
	}
}

func TestCommitterConfirmRejectsUnresolvedMapping(t *testing.T) {
	store := NewMemoryStore()
	entry := committableEntry("entry-1")
	entry.Mappings[1].PartNumberID = nil
	if err := store.Create(context.Background(), entry); err != nil {
		t.Fatalf("create: %v", err)
	}

	c := NewCommitter(store, ledger.NewMemoryLedger(), nil, 3)
	_, err := c.Confirm(context.Background(), "entry-1")
	if !errors.Is(err, ErrEntryNotReady) {
		t.Fatalf("expected ErrEntryNotReady, got %v", err)
	}
}

func TestCommitterLedgerOutageLeavesProcessingAndRecovers(t *testing.T) {
	store := NewMemoryStore()
	inner := ledger.NewMemoryLedger()
	// Enough failures to exhaust all three write passes.
	flaky := &flakyLedger{inner: inner, failures: 100}
	enqueuer := &fakeEnqueuer{}
	if err := store.Create(context.Background(), committableEntry("entry-1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	c := NewCommitter(store, flaky, enqueuer, 3)
	_, err := c.Confirm(context.Background(), "entry-1")
	if !errors.Is(err, ErrLedgerWriteFailed) {
		t.Fatalf("expected ErrLedgerWriteFailed, got %v", err)
	}

	entry, err := store.Get(context.Background(), "entry-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if entry.Status != StatusProcessing {
		t.Fatalf("entry must stay PROCESSING after ledger outage, got %s", entry.Status)
	}
	if !entry.NeedsAttention {
		t.Fatal("entry must be flagged for attention")
	}
	if len(enqueuer.entryIDs) != 1 || enqueuer.entryIDs[0] != "entry-1" {
		t.Fatalf("retry must be enqueued once, got %v", enqueuer.entryIDs)
	}

	// Ledger recovers; the retry resumes from PROCESSING.
	flaky.failures = 0
	result, err := c.Confirm(context.Background(), "entry-1")
	if err != nil {
		t.Fatalf("retry confirm: %v", err)
	}
	if len(result.MovementIDs) != 2 {
		t.Fatalf("expected 2 movements after recovery, got %d", len(result.MovementIDs))
	}

	entry, err = store.Get(context.Background(), "entry-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if entry.Status != StatusCompleted {
		t.Fatalf("expected COMPLETED after retry, got %s", entry.Status)
	}
	if entry.NeedsAttention {
		t.Fatal("attention flag must clear on successful commit")
	}
}

func TestCommitterPartialPassDoesNotDuplicate(t *testing.T) {
	store := NewMemoryStore()
	inner := ledger.NewMemoryLedger()
	if err := store.Create(context.Background(), committableEntry("entry-1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	// First append succeeds, second fails, the next pass replays both lines.
	failing := &secondCallFails{inner: inner}
	c := NewCommitter(store, failing, nil, 3)
	result, err := c.Confirm(context.Background(), "entry-1")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if len(result.MovementIDs) != 2 {
		t.Fatalf("expected 2 movements, got %d", len(result.MovementIDs))
	}
	if len(inner.Movements()) != 2 {
		t.Fatalf("replayed pass must not duplicate lines, got %d movements", len(inner.Movements()))
	}
}

// rivalStore lets another actor slip in between a caller's initial read and
// its first CAS by running beforeCAS on the first Get.
type rivalStore struct {
	Store
	beforeCAS func()
	gets      int
}

func (s *rivalStore) Get(ctx context.Context, id string) (Entry, error) {
	entry, err := s.Store.Get(ctx, id)
	s.gets++
	if s.gets == 1 && s.beforeCAS != nil {
		s.beforeCAS()
	}
	return entry, err
}

func TestCommitterConcurrentConfirmLoserGetsSharedResult(t *testing.T) {
	store := NewMemoryStore()
	lg := ledger.NewMemoryLedger()
	if err := store.Create(context.Background(), committableEntry("entry-1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	winner := NewCommitter(store, lg, nil, 3)
	var winnerResult CommitResult
	raced := &rivalStore{Store: store, beforeCAS: func() {
		var err error
		winnerResult, err = winner.Confirm(context.Background(), "entry-1")
		if err != nil {
			t.Fatalf("winner confirm: %v", err)
		}
	}}

	loser := NewCommitter(raced, lg, nil, 3)
	result, err := loser.Confirm(context.Background(), "entry-1")
	if err != nil {
		t.Fatalf("loser confirm: %v", err)
	}
	if !result.AlreadyCommitted {
		t.Fatal("loser must report AlreadyCommitted")
	}
	if len(result.MovementIDs) != len(winnerResult.MovementIDs) {
		t.Fatalf("results diverged: %v vs %v", winnerResult.MovementIDs, result.MovementIDs)
	}
	if result.Fingerprint != winnerResult.Fingerprint {
		t.Fatalf("fingerprints diverged: %q vs %q", winnerResult.Fingerprint, result.Fingerprint)
	}
	if len(lg.Movements()) != 2 {
		t.Fatalf("ledger must hold exactly 2 movements, got %d", len(lg.Movements()))
	}
}

func TestCommitterConcurrentConfirmResumesInFlightCommit(t *testing.T) {
	store := NewMemoryStore()
	lg := ledger.NewMemoryLedger()
	entry := committableEntry("entry-1")
	if err := store.Create(context.Background(), entry); err != nil {
		t.Fatalf("create: %v", err)
	}

	// The rival claims the entry but stalls before writing the ledger.
	raced := &rivalStore{Store: store, beforeCAS: func() {
		processing := StatusProcessing
		fp := commitFingerprint(entry)
		if _, err := store.Update(context.Background(), "entry-1", Patch{
			Status:      &processing,
			Mappings:    entry.Mappings,
			Fingerprint: &fp,
		}, StatusPendingConfirmation); err != nil {
			t.Fatalf("rival claim: %v", err)
		}
	}}

	c := NewCommitter(raced, lg, nil, 3)
	result, err := c.Confirm(context.Background(), "entry-1")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if len(result.MovementIDs) != 2 {
		t.Fatalf("expected 2 movements, got %d", len(result.MovementIDs))
	}
	if len(lg.Movements()) != 2 {
		t.Fatalf("ledger must hold exactly 2 movements, got %d", len(lg.Movements()))
	}

	final, err := store.Get(context.Background(), "entry-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if final.Status != StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", final.Status)
	}
}

type secondCallFails struct {
	inner ledger.Ledger
	calls int
}

func (f *secondCallFails) AppendMovement(ctx context.Context, mv ledger.Movement) (string, error) {
	f.calls++
	if f.calls == 2 {
		return "", errors.New("ledger hiccup")
	}
	return f.inner.AppendMovement(ctx, mv)
}
