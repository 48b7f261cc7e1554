package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RetryScheduler enqueues commit retry jobs for entries whose ledger writes
// failed in-request.
type RetryScheduler struct {
	Client Client
}

// EnqueueRetry schedules one retry job for the entry.
func (r *RetryScheduler) EnqueueRetry(ctx context.Context, entryID string) error {
	return r.Client.Send(ctx, Message{
		EntryID:    entryID,
		RequestID:  uuid.NewString(),
		EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
		Version:    1,
	})
}
