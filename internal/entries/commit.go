package entries

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"receiving-backend/internal/ledger"
	"receiving-backend/internal/shared/metrics"
	"receiving-backend/internal/shared/telemetry"
)

// RetryEnqueuer schedules an asynchronous commit retry for an entry whose
// ledger writes exhausted the in-request budget.
type RetryEnqueuer interface {
	EnqueueRetry(ctx context.Context, entryID string) error
}

// CommitResult reports the outcome of a confirm request.
type CommitResult struct {
	EntryID          string
	Fingerprint      string
	MovementIDs      []string
	AlreadyCommitted bool
}

// Committer drives the confirm path: it freezes the entry's mapping
// configuration behind a fingerprint, writes one ledger movement per line and
// completes the entry. Every step is safe to replay; the ledger's
// per-line dedup and the store's status CAS make the whole commit idempotent.
type Committer struct {
	store       Store
	ledger      ledger.Ledger
	retries     RetryEnqueuer
	maxAttempts int
}

// NewCommitter builds a Committer. retries may be nil when no retry queue is
// configured; maxAttempts falls back to 3 when not positive.
func NewCommitter(store Store, lg ledger.Ledger, retries RetryEnqueuer, maxAttempts int) *Committer {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Committer{store: store, ledger: lg, retries: retries, maxAttempts: maxAttempts}
}

// Confirm commits the entry to the inventory ledger. Calling it again after a
// successful commit returns the original result with AlreadyCommitted set.
// Calling it on a PROCESSING entry resumes the interrupted commit.
func (c *Committer) Confirm(ctx context.Context, entryID string) (CommitResult, error) {
	started := time.Now()

	entry, err := c.store.Get(ctx, entryID)
	if err != nil {
		return CommitResult{}, err
	}

	if len(entry.CommittedMovementIDs) > 0 {
		return committedResult(entry), nil
	}

	switch entry.Status {
	case StatusProcessing:
		// Resuming an interrupted commit. Mappings are already frozen.
	case StatusPendingConfirmation:
		if !entry.ReadyToCommit() {
			return CommitResult{}, ErrEntryNotReady
		}
		fp := commitFingerprint(entry)
		processing := StatusProcessing
		entry, err = c.store.Update(ctx, entry.ID, Patch{
			Status:      &processing,
			Mappings:    entry.Mappings,
			Fingerprint: &fp,
		}, StatusPendingConfirmation)
		if err != nil {
			if !errors.Is(err, ErrConcurrentModification) {
				return CommitResult{}, err
			}
			// Another confirmer claimed the entry between our read and the
			// CAS. Re-read and follow its commit; the ledger dedup keeps
			// the replay from duplicating movements.
			entry, err = c.store.Get(ctx, entryID)
			if err != nil {
				return CommitResult{}, err
			}
			if len(entry.CommittedMovementIDs) > 0 {
				return committedResult(entry), nil
			}
			if entry.Status != StatusProcessing {
				return CommitResult{}, ErrConcurrentModification
			}
		}
	default:
		return CommitResult{}, ErrEntryNotReady
	}

	movementIDs, err := c.writeMovements(ctx, entry)
	if err != nil {
		metrics.IncCommitFailed()
		needsAttention := true
		if _, patchErr := c.store.Update(ctx, entry.ID, Patch{NeedsAttention: &needsAttention}, StatusProcessing); patchErr != nil {
			telemetry.Error("mark entry needs attention", map[string]any{
				"entry_id": entry.ID,
				"error":    patchErr.Error(),
			})
		}
		if c.retries != nil {
			if enqErr := c.retries.EnqueueRetry(ctx, entry.ID); enqErr != nil {
				telemetry.Error("enqueue commit retry", map[string]any{
					"entry_id": entry.ID,
					"error":    enqErr.Error(),
				})
			}
		}
		return CommitResult{}, fmt.Errorf("%w: %v", ErrLedgerWriteFailed, err)
	}

	completed := StatusCompleted
	needsAttention := false
	updated, err := c.store.Update(ctx, entry.ID, Patch{
		Status:               &completed,
		NeedsAttention:       &needsAttention,
		CommittedMovementIDs: movementIDs,
	}, StatusProcessing)
	if err != nil {
		if errors.Is(err, ErrConcurrentModification) {
			// Another confirmer may have finished the same commit.
			if current, getErr := c.store.Get(ctx, entry.ID); getErr == nil && current.Status == StatusCompleted {
				return committedResult(current), nil
			}
		}
		return CommitResult{}, err
	}

	metrics.IncEntryCommitted()
	metrics.ObserveCommitDurationMs(float64(time.Since(started).Milliseconds()))
	telemetry.Info("entry committed", map[string]any{
		"entry_id":     updated.ID,
		"document_ref": updated.DocumentRef(),
		"movements":    len(movementIDs),
	})

	return CommitResult{
		EntryID:     updated.ID,
		Fingerprint: fingerprintOrEmpty(updated.Fingerprint),
		MovementIDs: movementIDs,
	}, nil
}

// writeMovements appends one movement per line item, retrying full passes up
// to the attempt budget. Replays are absorbed by the ledger's dedup, so a
// pass that failed halfway can safely start over.
func (c *Committer) writeMovements(ctx context.Context, entry Entry) ([]string, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		ids, err := c.writePass(ctx, entry)
		if err == nil {
			return ids, nil
		}
		lastErr = err
		telemetry.Error("ledger write pass failed", map[string]any{
			"entry_id": entry.ID,
			"attempt":  attempt,
			"error":    err.Error(),
		})
	}
	return nil, lastErr
}

func (c *Committer) writePass(ctx context.Context, entry Entry) ([]string, error) {
	projectID := ""
	if entry.ProjectID != nil {
		projectID = *entry.ProjectID
	}

	ids := make([]string, 0, len(entry.Items))
	for i, item := range entry.Items {
		if i >= len(entry.Mappings) || !entry.Mappings[i].Resolved() {
			return nil, fmt.Errorf("line %d has no part number mapping", i)
		}
		id, err := c.ledger.AppendMovement(ctx, ledger.Movement{
			Type:         ledger.MovementTypeEntry,
			PartNumberID: *entry.Mappings[i].PartNumberID,
			Quantity:     item.Quantity,
			LocationID:   entry.LocationID,
			ProjectID:    projectID,
			DocumentRef:  entry.DocumentRef(),
			LineIndex:    i,
		})
		if err != nil {
			return nil, fmt.Errorf("append line %d: %w", i, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func committedResult(entry Entry) CommitResult {
	return CommitResult{
		EntryID:          entry.ID,
		Fingerprint:      fingerprintOrEmpty(entry.Fingerprint),
		MovementIDs:      entry.CommittedMovementIDs,
		AlreadyCommitted: true,
	}
}

// commitFingerprint hashes the entry id plus its mapping configuration. Two
// confirms of the same entry with the same mappings share a fingerprint.
func commitFingerprint(entry Entry) string {
	payload, _ := json.Marshal(entry.Mappings)
	sum := sha256.Sum256(append([]byte(entry.ID+"|"), payload...))
	return hex.EncodeToString(sum[:])
}
