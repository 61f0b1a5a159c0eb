// Package lock implements the Lock Manager: a single readers-writer lock
// arbitrating exclusive ownership of {running, startup, candidate} across
// sessions, per spec §4.4.
package lock

import (
	"context"
	"fmt"
	"sync"
)

// Datastore is the closed set of lockable datastores.
type Datastore string

const (
	Running   Datastore = "running"
	Startup   Datastore = "startup"
	Candidate Datastore = "candidate"
)

// Backend is the subset of the datastore contract the Lock Manager drives:
// the actual backend-side lock/unlock calls step 3 of the acquire and
// release protocols delegate to.
type Backend interface {
	LockDatastore(ctx context.Context, ds Datastore, sessionID uint32) error
	UnlockDatastore(ctx context.Context, ds Datastore, sessionID uint32) error
}

// ErrorTag mirrors the NETCONF error-tags the Lock Manager can produce, so
// pkg/netconf can map them straight onto RPCError without re-deriving which
// tag applies.
type ErrorTag string

const (
	ErrTagLockDenied      ErrorTag = "lock-denied"
	ErrTagOperationFailed ErrorTag = "operation-failed"
)

// Error is a Lock Manager failure: the NETCONF error-tag it maps to, and
// (for lock-denied) the session-id of the current owner — 0 when the lock
// is held outside this server (a backend lock failure with no local owner
// record).
type Error struct {
	Tag     ErrorTag
	OwnerID uint32
}

func (e *Error) Error() string {
	if e.Tag == ErrTagLockDenied {
		return fmt.Sprintf("lock-denied: held by session %d", e.OwnerID)
	}
	return string(e.Tag)
}

// Manager holds the process-wide lock table: one optional owning session per
// datastore, exactly as the glossary's "Lock table" describes it. It is
// constructed once at startup and passed by reference; it is never
// replicated per-goroutine, per spec §9's "Global lock table" note.
type Manager struct {
	mu      sync.RWMutex
	owner   map[Datastore]uint32 // present key => locked; value 0 is a valid session id for owner-unknown backend locks but never stored here
	backend Backend
}

// New constructs a Manager backed by backend.
func New(backend Backend) *Manager {
	return &Manager{
		owner:   make(map[Datastore]uint32),
		backend: backend,
	}
}

// Acquire runs the four-step acquire protocol of spec §4.4 for datastore ds
// on behalf of session sessionID.
func (m *Manager) Acquire(ctx context.Context, ds Datastore, sessionID uint32) error {
	// Step 1: read-lock, fail fast if already owned.
	m.mu.RLock()
	owner, locked := m.owner[ds]
	m.mu.RUnlock()
	if locked {
		return &Error{Tag: ErrTagLockDenied, OwnerID: owner}
	}

	// Step 2: write-lock, re-check (it may have changed between unlock and relock).
	m.mu.Lock()
	defer m.mu.Unlock()

	owner, locked = m.owner[ds]
	if locked {
		return &Error{Tag: ErrTagLockDenied, OwnerID: owner}
	}

	// Step 3: ask the backing datastore to lock.
	if err := m.backend.LockDatastore(ctx, ds, sessionID); err != nil {
		return &Error{Tag: ErrTagLockDenied, OwnerID: 0}
	}

	// Step 4: record ownership.
	m.owner[ds] = sessionID
	return nil
}

// Release runs the three-step release protocol of spec §4.4 for datastore ds
// on behalf of session sessionID.
func (m *Manager) Release(ctx context.Context, ds Datastore, sessionID uint32) error {
	// Step 1: read-lock, fail if nothing to release.
	m.mu.RLock()
	owner, locked := m.owner[ds]
	m.mu.RUnlock()
	if !locked {
		return &Error{Tag: ErrTagOperationFailed}
	}

	// Step 2: ownership check.
	if owner != sessionID {
		return &Error{Tag: ErrTagLockDenied, OwnerID: owner}
	}

	// Step 3: write-lock, unlock the backend, clear the entry.
	m.mu.Lock()
	defer m.mu.Unlock()

	owner, locked = m.owner[ds]
	if !locked {
		return &Error{Tag: ErrTagOperationFailed}
	}
	if owner != sessionID {
		return &Error{Tag: ErrTagLockDenied, OwnerID: owner}
	}

	if err := m.backend.UnlockDatastore(ctx, ds, sessionID); err != nil {
		return &Error{Tag: ErrTagLockDenied, OwnerID: owner}
	}
	delete(m.owner, ds)
	return nil
}

// Teardown clears every lock table entry owned by sessionID, under the
// write lock, per spec §4.4's session-teardown rule, asking the backend to
// unlock each one it finds — mirroring the teacher's closeSession, which
// walks the departing session's tracked locks and releases each through the
// datastore. Backend errors are not surfaced: the session is gone either
// way, and a stuck backend lock is the backend's own expiry problem.
func (m *Manager) Teardown(ctx context.Context, sessionID uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ds, owner := range m.owner {
		if owner == sessionID {
			_ = m.backend.UnlockDatastore(ctx, ds, sessionID)
			delete(m.owner, ds)
		}
	}
}

// Owner reports the current owner of ds, if locked.
func (m *Manager) Owner(ds Datastore) (sessionID uint32, locked bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	owner, ok := m.owner[ds]
	return owner, ok
}
