package service

import (
	"sync"

	"github.com/google/uuid"
)

// ChannelLocks serialises writers per key. Entries are dropped once no
// goroutine holds or waits for them.
type ChannelLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func NewChannelLocks() *ChannelLocks {
	return &ChannelLocks{locks: make(map[uuid.UUID]*refLock)}
}

// Lock blocks until key is free and returns its unlock function.
func (l *ChannelLocks) Lock(key uuid.UUID) func() {
	l.mu.Lock()
	lk, ok := l.locks[key]
	if !ok {
		lk = &refLock{}
		l.locks[key] = lk
	}
	lk.refs++
	l.mu.Unlock()

	lk.Lock()

	return func() {
		lk.Unlock()

		l.mu.Lock()
		lk.refs--
		if lk.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

func (l *ChannelLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
