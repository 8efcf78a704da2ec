package services

import "sync"

// recordLocks serializes workflow operations per NDA record so a Complete
// call, a webhook delivery, and a poll for the same record never interleave
// writes. Operations on different records run in parallel.
//
// Entries are kept for the life of the process; the active-record space is
// small enough that this does not need eviction.
type recordLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newRecordLocks() *recordLocks {
	return &recordLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for one record id and returns its unlock function
func (l *recordLocks) Lock(id string) func() {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
