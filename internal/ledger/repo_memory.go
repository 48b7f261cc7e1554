package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLedger is an in-memory ledger for local development and tests.
type MemoryLedger struct {
	mu        sync.Mutex
	movements map[string]Movement
	byLine    map[string]string
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		movements: make(map[string]Movement),
		byLine:    make(map[string]string),
	}
}

func (l *MemoryLedger) AppendMovement(ctx context.Context, mv Movement) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := lineKey(mv.DocumentRef, mv.LineIndex)
	if id, ok := l.byLine[key]; ok {
		return id, nil
	}

	mv.ID = uuid.NewString()
	mv.CreatedAt = time.Now().UTC()
	l.movements[mv.ID] = mv
	l.byLine[key] = mv.ID
	return mv.ID, nil
}

// Movements returns all recorded movements. Test helper.
func (l *MemoryLedger) Movements() []Movement {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Movement, 0, len(l.movements))
	for _, mv := range l.movements {
		out = append(out, mv)
	}
	return out
}

func lineKey(documentRef string, lineIndex int) string {
	return fmt.Sprintf("%s#%d", documentRef, lineIndex)
}

var _ Ledger = (*MemoryLedger)(nil)
