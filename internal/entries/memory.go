package entries

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// MemoryStore keeps entries in memory. Used by tests and dry runs.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Add(_ context.Context, e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e.UniqueID != "" {
		for _, existing := range m.entries {
			if existing.Domain == e.Domain && existing.UniqueID == e.UniqueID {
				return ErrAlreadyConfigured
			}
		}
	}
	prepare(e)
	m.entries = append(m.entries, cloneEntry(*e))
	return nil
}

func (m *MemoryStore) Get(_ context.Context, entryID string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.entries {
		if e.EntryID == entryID {
			c := cloneEntry(e)
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) List(_ context.Context, domain string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Entry
	for _, e := range m.entries {
		if domain == "" || e.Domain == domain {
			out = append(out, cloneEntry(e))
		}
	}
	slices.SortFunc(out, func(a, b Entry) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.EntryID, b.EntryID)
	})
	return out, nil
}

func (m *MemoryStore) FindByUniqueID(_ context.Context, domain, uniqueID string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.entries {
		if e.Domain == domain && e.UniqueID == uniqueID {
			c := cloneEntry(e)
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) Remove(_ context.Context, entryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, e := range m.entries {
		if e.EntryID == entryID {
			m.entries = slices.Delete(m.entries, i, i+1)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) Close() error { return nil }
