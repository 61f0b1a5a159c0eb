package lock

import (
	"context"
	"sync"
	"testing"
)

type fakeBackend struct {
	mu       sync.Mutex
	failLock bool
	locked   map[Datastore]uint32
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{locked: make(map[Datastore]uint32)}
}

func (b *fakeBackend) LockDatastore(ctx context.Context, ds Datastore, sessionID uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failLock {
		return &Error{Tag: ErrTagLockDenied}
	}
	b.locked[ds] = sessionID
	return nil
}

func (b *fakeBackend) UnlockDatastore(ctx context.Context, ds Datastore, sessionID uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.locked, ds)
	return nil
}

// Scenario 1: lock contention between two sessions, then release and retry.
func TestLockContention(t *testing.T) {
	ctx := context.Background()
	m := New(newFakeBackend())

	const s1, s2 uint32 = 1, 2

	if err := m.Acquire(ctx, Running, s1); err != nil {
		t.Fatalf("S1 acquire: unexpected error %v", err)
	}

	err := m.Acquire(ctx, Running, s2)
	if err == nil {
		t.Fatal("S2 acquire: expected lock-denied, got nil")
	}
	lockErr, ok := err.(*Error)
	if !ok || lockErr.Tag != ErrTagLockDenied {
		t.Fatalf("S2 acquire: got %v, want lock-denied", err)
	}
	if lockErr.OwnerID != s1 {
		t.Errorf("S2 acquire: owner id %d, want %d", lockErr.OwnerID, s1)
	}

	if err := m.Release(ctx, Running, s1); err != nil {
		t.Fatalf("S1 release: unexpected error %v", err)
	}

	if err := m.Acquire(ctx, Running, s2); err != nil {
		t.Fatalf("S2 retry acquire: unexpected error %v", err)
	}
}

func TestReleaseWrongOwner(t *testing.T) {
	ctx := context.Background()
	m := New(newFakeBackend())

	if err := m.Acquire(ctx, Running, 1); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	err := m.Release(ctx, Running, 2)
	if err == nil {
		t.Fatal("expected lock-denied releasing another session's lock")
	}
	if err.(*Error).Tag != ErrTagLockDenied {
		t.Errorf("got tag %v, want lock-denied", err.(*Error).Tag)
	}
}

func TestReleaseNotLocked(t *testing.T) {
	ctx := context.Background()
	m := New(newFakeBackend())

	err := m.Release(ctx, Running, 1)
	if err == nil {
		t.Fatal("expected operation-failed releasing an unlocked datastore")
	}
	if err.(*Error).Tag != ErrTagOperationFailed {
		t.Errorf("got tag %v, want operation-failed", err.(*Error).Tag)
	}
}

func TestTeardownClearsOwnedLocksOnly(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	m := New(backend)

	if err := m.Acquire(ctx, Running, 1); err != nil {
		t.Fatalf("acquire running: %v", err)
	}
	if err := m.Acquire(ctx, Startup, 2); err != nil {
		t.Fatalf("acquire startup: %v", err)
	}

	m.Teardown(ctx, 1)

	if _, locked := m.Owner(Running); locked {
		t.Error("running should be unlocked after session 1's teardown")
	}
	if owner, locked := m.Owner(Startup); !locked || owner != 2 {
		t.Error("startup should remain locked by session 2")
	}
}

// Single-session round trip leaves the lock table identical to its initial
// state, per the §8 invariant.
func TestLockEditUnlockRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := New(newFakeBackend())

	if err := m.Acquire(ctx, Running, 7); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	// ... edit-config would happen here against the datastore directly ...
	if err := m.Release(ctx, Running, 7); err != nil {
		t.Fatalf("release: %v", err)
	}

	if _, locked := m.Owner(Running); locked {
		t.Error("lock table should be empty after the round trip")
	}
}

// Mutual-exclusion invariant under concurrent acquire attempts: exactly one
// of N concurrent Acquire calls for the same datastore succeeds.
func TestMutualExclusionUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	m := New(newFakeBackend())

	const n = 50
	var wg sync.WaitGroup
	var successes int
	var mu sync.Mutex

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(sessionID uint32) {
			defer wg.Done()
			if err := m.Acquire(ctx, Running, sessionID); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}(uint32(i + 1))
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("got %d successful acquires, want exactly 1", successes)
	}
}
