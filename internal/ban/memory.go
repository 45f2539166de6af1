package ban

import (
	"slices"
	"sync"
	"time"
)

// MemoryStore keeps bans for the lifetime of the process.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry

	Now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{Now: time.Now}
}

func (m *MemoryStore) IsBanned(id Identity) bool {
	now := m.Now()
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.entries {
		if !e.Expired(now) && e.Matches(id) {
			return true
		}
	}
	return false
}

func (m *MemoryStore) RecordBan(id Identity, reason string, duration time.Duration) error {
	e := Entry{
		Prefix:   HostPrefix(id.Addr),
		Name:     id.Name,
		Hash:     id.Hash,
		Reason:   reason,
		Start:    m.Now(),
		Duration: duration,
	}
	m.mu.Lock()
	m.entries = append(m.entries, e)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Entries() ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.entries), nil
}

func (m *MemoryStore) SetEntries(entries []Entry) error {
	m.mu.Lock()
	m.entries = slices.Clone(entries)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Prune(now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	before := len(m.entries)
	m.entries = slices.DeleteFunc(m.entries, func(e Entry) bool { return e.Expired(now) })
	return before - len(m.entries), nil
}
