package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"receiving-backend/internal/bootstrap"
	"receiving-backend/internal/entries"
	"receiving-backend/internal/queue"
)

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{BodyLen: 0, BodySHA: ""}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

// ErrMissingEntryID indicates a message missing the entry id.
type ErrMissingEntryID struct {
	Meta      MessageMeta
	RequestID string
}

func (e ErrMissingEntryID) Error() string { return "missing entry id" }

// ErrUnrecoverable indicates the retry job can never succeed and the message
// should be dropped instead of redelivered.
type ErrUnrecoverable struct {
	EntryID   string
	RequestID string
	Err       error
}

func (e ErrUnrecoverable) Error() string {
	if e.Err == nil {
		return "unrecoverable retry job"
	}
	return "unrecoverable retry job: " + e.Err.Error()
}

// ErrProcess indicates a transient commit failure; the message should be
// redelivered.
type ErrProcess struct {
	EntryID   string
	RequestID string
	Err       error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process commit retry"
	}
	return "process commit retry: " + e.Err.Error()
}

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if strings.TrimSpace(msg.EntryID) == "" {
		return msg, meta, ErrMissingEntryID{Meta: meta, RequestID: msg.RequestID}
	}
	return msg, meta, nil
}

// HandleMessage parses a retry job and re-invokes the idempotent confirm.
//
// Classification drives redelivery: entries that vanished or can never commit
// produce ErrUnrecoverable (drop the message); a ledger that is still down
// produces ErrProcess (leave the message for redelivery).
func HandleMessage(ctx context.Context, app *bootstrap.App, body string) error {
	if app == nil || app.Committer == nil {
		return errors.New("commit coordinator not configured")
	}

	msg, _, err := ParseMessage(body)
	if err != nil {
		return err
	}

	_, err = app.Committer.Confirm(ctx, msg.EntryID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, entries.ErrNotFound), errors.Is(err, entries.ErrEntryNotReady):
		return ErrUnrecoverable{EntryID: msg.EntryID, RequestID: msg.RequestID, Err: err}
	default:
		return ErrProcess{EntryID: msg.EntryID, RequestID: msg.RequestID, Err: err}
	}
}
