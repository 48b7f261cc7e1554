package entries

import (
	"context"
	"sort"
	"sync"
	"time"

	"receiving-backend/internal/extraction"
	"receiving-backend/internal/mapping"
)

// MemoryStore is an in-memory Store for local development and tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Create(ctx context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.UpdatedAt = now
	s.entries[entry.ID] = entry
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return cloneEntry(entry), nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, patch Patch, expectedStatus Status) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	if entry.Status != expectedStatus {
		return Entry{}, ErrConcurrentModification
	}

	if patch.Status != nil {
		entry.Status = *patch.Status
	}
	if patch.ProjectID != nil {
		entry.ProjectID = patch.ProjectID
	}
	if patch.Mappings != nil {
		entry.Mappings = append([]mapping.FieldMapping(nil), patch.Mappings...)
	}
	if patch.Reviewed != nil {
		entry.Reviewed = *patch.Reviewed
	}
	if patch.NeedsAttention != nil {
		entry.NeedsAttention = *patch.NeedsAttention
	}
	if patch.Fingerprint != nil {
		entry.Fingerprint = patch.Fingerprint
	}
	if patch.CommittedMovementIDs != nil {
		entry.CommittedMovementIDs = append([]string(nil), patch.CommittedMovementIDs...)
	}
	entry.UpdatedAt = time.Now().UTC()

	s.entries[id] = entry
	return cloneEntry(entry), nil
}

func (s *MemoryStore) List(ctx context.Context, filter ListFilter) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[Status]bool, len(filter.Statuses))
	for _, st := range filter.Statuses {
		wanted[st] = true
	}

	var out []Entry
	for _, entry := range s.entries {
		if len(wanted) > 0 && !wanted[entry.Status] {
			continue
		}
		out = append(out, cloneEntry(entry))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func cloneEntry(entry Entry) Entry {
	if entry.Items != nil {
		entry.Items = append([]extraction.LineItem(nil), entry.Items...)
	}
	if entry.Mappings != nil {
		entry.Mappings = append([]mapping.FieldMapping(nil), entry.Mappings...)
	}
	if entry.CommittedMovementIDs != nil {
		entry.CommittedMovementIDs = append([]string(nil), entry.CommittedMovementIDs...)
	}
	return entry
}

var _ Store = (*MemoryStore)(nil)
