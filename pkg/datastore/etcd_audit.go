package datastore

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/ncagentd/ncagentd/pkg/lock"
)

// auditEvent is a single lock lifecycle record, keyed by a ULID so entries
// sort lexicographically by creation time without a separate timestamp
// index — the correlation key the etcd backend was chosen to exercise.
type auditEvent struct {
	Datastore string    `json:"datastore"`
	SessionID uint32    `json:"session_id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// logLockEvent best-effort records a lock acquire/release to the audit
// trail; a failure here never fails the RPC the lock call is servicing.
func (ds *etcdDatastore) logLockEvent(ctx context.Context, target lock.Datastore, sessionID uint32, action string) {
	event := auditEvent{
		Datastore: string(target),
		SessionID: sessionID,
		Action:    action,
		Timestamp: time.Now(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	key := ds.key("audit", newULID())
	_, _ = ds.client.Put(ctx, key, string(payload))
}

func newULID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
