package catalog

import (
	"context"
	"sort"
	"sync"
)

// MemoryLookup is an in-memory catalog used for local development and tests.
type MemoryLookup struct {
	mu        sync.RWMutex
	projects  map[string]Project
	locations map[string]Location
	parts     map[string]PartNumber
}

func NewMemoryLookup() *MemoryLookup {
	return &MemoryLookup{
		projects:  make(map[string]Project),
		locations: make(map[string]Location),
		parts:     make(map[string]PartNumber),
	}
}

func (m *MemoryLookup) PutProject(p Project) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = p
}

func (m *MemoryLookup) PutLocation(l Location) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[l.ID] = l
}

func (m *MemoryLookup) PutPartNumber(p PartNumber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parts[p.ID] = p
}

func (m *MemoryLookup) ActiveProjects(ctx context.Context) ([]Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Project, 0, len(m.projects))
	for _, p := range m.projects {
		if p.Active {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MemoryLookup) ActiveLocations(ctx context.Context) ([]Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Location, 0, len(m.locations))
	for _, l := range m.locations {
		if l.Active {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *MemoryLookup) FindProject(ctx context.Context, id string) (*Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok || !p.Active {
		return nil, nil
	}
	return &p, nil
}

func (m *MemoryLookup) FindLocation(ctx context.Context, id string) (*Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.locations[id]
	if !ok || !l.Active {
		return nil, nil
	}
	return &l, nil
}

func (m *MemoryLookup) PartNumbers(ctx context.Context) ([]PartNumber, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]PartNumber, 0, len(m.parts))
	for _, p := range m.parts {
		if p.Active {
			out = append(out, p)
		}
	}
	// Stable order so repeated snapshots resolve duplicate codes the same way.
	sort.Slice(out, func(i, j int) bool {
		if out[i].Code != out[j].Code {
			return out[i].Code < out[j].Code
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

var _ Lookup = (*MemoryLookup)(nil)
