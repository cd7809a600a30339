package conversation

import (
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// entry pairs a state record with its turn lock and activity stamp.
type entry struct {
	mu         sync.Mutex
	state      *State
	lastActive time.Time
}

// Store keeps live conversation records in memory, one per session, and
// serializes turns for the same session behind a per-session lock.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*entry
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*entry),
	}
}

// NewSessionID mints a fresh session identifier.
func NewSessionID() string {
	id, err := gonanoid.New()
	if err != nil {
		// nanoid only fails when the system entropy source is broken
		return time.Now().UTC().Format("20060102150405.000000000")
	}
	return "sess_" + id
}

// Acquire returns the state record for a session, creating it on first use,
// and locks it for the duration of the turn. The caller must invoke the
// returned release function once the turn completes.
func (st *Store) Acquire(sessionID, domain string) (*State, func()) {
	st.mu.Lock()
	e, ok := st.sessions[sessionID]
	if !ok {
		e = &entry{state: NewState(sessionID, domain)}
		st.sessions[sessionID] = e
	}
	st.mu.Unlock()

	e.mu.Lock()
	e.lastActive = time.Now()
	return e.state, e.mu.Unlock
}

// Peek returns a read-only snapshot of a session's state, or false when the
// session does not exist.
func (st *Store) Peek(sessionID string) (State, bool) {
	st.mu.Lock()
	e, ok := st.sessions[sessionID]
	st.mu.Unlock()
	if !ok {
		return State{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Snapshot(), true
}

// Delete removes a session from the store.
func (st *Store) Delete(sessionID string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, sessionID)
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep drops sessions idle for longer than maxIdle and returns how many
// were removed. Sessions currently mid-turn are skipped.
func (st *Store) Sweep(maxIdle time.Duration) int {
	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	cutoff := time.Now().Add(-maxIdle)
	for id, e := range st.sessions {
		if !e.mu.TryLock() {
			continue
		}
		idle := e.lastActive.Before(cutoff)
		e.mu.Unlock()

		if idle {
			delete(st.sessions, id)
			removed++
		}
	}

	return removed
}
