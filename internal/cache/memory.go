package cache

import (
	"sort"
	"sync"
	"time"
)

// memoryStore is the process-wide key -> entry table.
type memoryStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

func newMemoryStore() *memoryStore {
	return &memoryStore{entries: make(map[string]*entry)}
}

func (m *memoryStore) Get(key string) (*entry, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	return e, ok
}

func (m *memoryStore) GetOrCreate(key string, now time.Time) *entry {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if ok {
		return e
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[key]; ok {
		return e
	}
	e = newEntry(key, now)
	m.entries[key] = e
	return e
}

// Match returns the entries selected by keyOrPrefix, ordered by key.
func (m *memoryStore) Match(keyOrPrefix string) []*entry {
	m.mu.RLock()
	matched := make([]*entry, 0, 4)
	for key, e := range m.entries {
		if MatchKey(key, keyOrPrefix) {
			matched = append(matched, e)
		}
	}
	m.mu.RUnlock()
	sort.Slice(matched, func(i, j int) bool { return matched[i].key < matched[j].key })
	return matched
}

// DeleteIf removes every entry for which evict returns true. evict runs
// with the entry locked, so a removed entry is flagged before any other
// goroutine can observe it again.
func (m *memoryStore) DeleteIf(evict func(e *entry) bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for key, e := range m.entries {
		e.mu.Lock()
		if evict(e) {
			e.removed = true
			delete(m.entries, key)
			removed++
		}
		e.mu.Unlock()
	}
	return removed
}

func (m *memoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *memoryStore) Clear() {
	m.mu.Lock()
	for key, e := range m.entries {
		e.mu.Lock()
		e.removed = true
		e.mu.Unlock()
		delete(m.entries, key)
	}
	m.mu.Unlock()
}
