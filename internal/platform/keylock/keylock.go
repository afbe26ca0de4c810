// Package keylock provides per-key mutual exclusion.
package keylock

import "sync"

// Map serializes work per key. Entries are reference counted and dropped when
// the last holder unlocks, so the map only holds keys in use.
type Map struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// New creates an empty lock map.
func New() *Map {
	return &Map{locks: make(map[string]*entry)}
}

// Lock blocks until key is free and returns the matching unlock func.
func (m *Map) Lock(key string) (unlock func()) {
	m.mu.Lock()
	e, ok := m.locks[key]
	if !ok {
		e = &entry{}
		m.locks[key] = e
	}
	e.refs++
	m.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		m.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(m.locks, key)
		}
		m.mu.Unlock()
	}
}

// Active returns how many keys are currently locked or waited on.
func (m *Map) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
