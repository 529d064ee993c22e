package projections

import (
	"encoding/json"
	"sort"

	"example.com/backstage/services/orchestrator/domain"
	"example.com/backstage/services/orchestrator/eventstore"
)

// MemoryProjection indexes memory entries by key. Deleted and expired
// entries are flagged but kept for audit, never removed from the map.
type MemoryProjection struct {
	base
	entries map[string]*domain.MemoryState
}

// NewMemoryProjection creates a memory index projection
func NewMemoryProjection(store eventstore.EventStore) *MemoryProjection {
	p := &MemoryProjection{
		entries: make(map[string]*domain.MemoryState),
	}
	p.base = base{
		name:  "memory-index",
		store: store,
		apply: p.applyEvent,
		clear: func() { p.entries = make(map[string]*domain.MemoryState) },
	}
	return p
}

func (p *MemoryProjection) applyEvent(event domain.Event) {
	if event.AggregateType != domain.AggregateMemory {
		return
	}

	entry, ok := p.entries[event.AggregateID]
	if !ok {
		entry = &domain.MemoryState{Key: event.AggregateID}
		p.entries[event.AggregateID] = entry
	}

	switch event.Type {
	case domain.MemoryStored:
		var payload domain.MemoryStoredPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return
		}
		entry.Namespace = payload.Namespace
		entry.Size = payload.Size
		entry.Deleted = false
		entry.StoredAt = event.Timestamp

	case domain.MemoryRetrieved:
		entry.AccessCount++
		entry.LastAccessAt = event.Timestamp

	case domain.MemoryDeleted, domain.MemoryExpired:
		entry.Deleted = true
	}
}

// GetEntry returns one memory entry
func (p *MemoryProjection) GetEntry(key string) (domain.MemoryState, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entry, ok := p.entries[key]
	if !ok {
		return domain.MemoryState{}, false
	}
	return *entry, true
}

// ListByNamespace returns all live entries in a namespace, ordered by
// key. An empty namespace returns every live entry.
func (p *MemoryProjection) ListByNamespace(namespace string) []domain.MemoryState {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entries := make([]domain.MemoryState, 0)
	for _, entry := range p.entries {
		if entry.Deleted {
			continue
		}
		if namespace != "" && entry.Namespace != namespace {
			continue
		}
		entries = append(entries, *entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}

// MostAccessed returns the n most retrieved live entries
func (p *MemoryProjection) MostAccessed(n int) []domain.MemoryState {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entries := make([]domain.MemoryState, 0, len(p.entries))
	for _, entry := range p.entries {
		if entry.Deleted {
			continue
		}
		entries = append(entries, *entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].AccessCount == entries[j].AccessCount {
			return entries[i].Key < entries[j].Key
		}
		return entries[i].AccessCount > entries[j].AccessCount
	})

	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// TotalSizeByNamespace returns the summed size of live entries per
// namespace
func (p *MemoryProjection) TotalSizeByNamespace() map[string]int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	sizes := make(map[string]int64)
	for _, entry := range p.entries {
		if entry.Deleted {
			continue
		}
		sizes[entry.Namespace] += entry.Size
	}
	return sizes
}
