// Package entrylock serializes in-process mutations of the same word entry.
// Services take the entry's lock before the read-modify-write transaction
// that changes it.
package entrylock

import (
	"bytes"
	"slices"
	"sync"

	"github.com/google/uuid"
)

type entry struct {
	mu   sync.Mutex
	refs int
}

// Locker hands out one mutex per entry id. Mutexes are reference counted
// and dropped once no goroutine holds or waits for them. The zero value is
// ready to use.
type Locker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*entry
}

// New returns an empty Locker.
func New() *Locker {
	return &Locker{}
}

// Lock blocks until id is free and returns the function that releases it.
func (l *Locker) Lock(id uuid.UUID) (unlock func()) {
	e := l.acquire(id)
	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			l.release(id)
		})
	}
}

// LockAll locks every distinct id in ascending order so that two callers
// locking overlapping sets cannot deadlock.
func (l *Locker) LockAll(ids ...uuid.UUID) (unlock func()) {
	sorted := slices.Clone(ids)
	slices.SortFunc(sorted, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	sorted = slices.Compact(sorted)

	unlocks := make([]func(), 0, len(sorted))
	for _, id := range sorted {
		unlocks = append(unlocks, l.Lock(id))
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for i := len(unlocks) - 1; i >= 0; i-- {
				unlocks[i]()
			}
		})
	}
}

// Len returns the number of ids currently held or waited for.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func (l *Locker) acquire(id uuid.UUID) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.locks == nil {
		l.locks = make(map[uuid.UUID]*entry)
	}
	e, ok := l.locks[id]
	if !ok {
		e = &entry{}
		l.locks[id] = e
	}
	e.refs++
	return e
}

func (l *Locker) release(id uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.locks[id]
	e.refs--
	if e.refs == 0 {
		delete(l.locks, id)
	}
}
