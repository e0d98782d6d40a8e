package pipeline

import "sync"

// sessionLocks serializes observation processing per session. Two concurrent
// observations on the same session would produce undefined archetype
// evolution, so turns queue behind a per-session mutex.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sessionLock)}
}

// acquire blocks until the session's lock is held and returns the release
// function. Lock entries are reference-counted so idle sessions do not leak.
func (sl *sessionLocks) acquire(sessionID string) func() {
	sl.mu.Lock()
	lock, ok := sl.locks[sessionID]
	if !ok {
		lock = &sessionLock{}
		sl.locks[sessionID] = lock
	}
	lock.refs++
	sl.mu.Unlock()

	lock.mu.Lock()

	return func() {
		lock.mu.Unlock()

		sl.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(sl.locks, sessionID)
		}
		sl.mu.Unlock()
	}
}
