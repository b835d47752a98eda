package flatcms

import "sync"

// keyedMutex serializes mutating operations per (type, id) key, so a
// read-merge-write update never interleaves with another writer of the
// same record.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*lockEntry)}
}

// lock acquires the mutex for key and returns its release function.
// Entries are reference-counted so the map does not grow without bound.
func (km *keyedMutex) lock(key string) (unlock func()) {
	km.mu.Lock()
	e := km.locks[key]
	if e == nil {
		e = &lockEntry{}
		km.locks[key] = e
	}
	e.refs++
	km.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		km.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(km.locks, key)
		}
		km.mu.Unlock()
	}
}
