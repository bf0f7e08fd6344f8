package exam

import "sync"

// lockTable hands out one mutex per key so operations on the same attempt
// serialize while operations on different attempts proceed independently.
// Entries are refcounted and dropped once the last holder releases.
type lockTable struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{entries: map[string]*lockEntry{}}
}

func (t *lockTable) lock(key string) *lockEntry {
	t.mu.Lock()
	e, ok := t.entries[key]
	if !ok {
		e = &lockEntry{}
		t.entries[key] = e
	}
	e.refs++
	t.mu.Unlock()

	e.mu.Lock()
	return e
}

func (t *lockTable) unlock(key string, e *lockEntry) {
	e.mu.Unlock()

	t.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(t.entries, key)
	}
	t.mu.Unlock()
}
