package datastore

import (
	"context"
	"encoding/json"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/ncagentd/ncagentd/pkg/lock"
)

// lockTTL bounds how long an etcd lease backing a datastore lock survives a
// crashed or partitioned session before the lock is reclaimable — the same
// lease-based expiry the teacher's original lock table used, now scoped
// per-datastore instead of one global row.
const lockTTL = 30 * time.Minute

type lockRecord struct {
	SessionID uint32 `json:"session_id"`
}

func (ds *etcdDatastore) lockKey(target lock.Datastore) string {
	return ds.key("locks", string(target))
}

// LockDatastore performs the etcd-side step 3 of pkg/lock.Manager's acquire
// protocol: a lease-backed key created only if absent, via a single
// transaction so two racing backend calls can't both believe they won.
func (ds *etcdDatastore) LockDatastore(ctx context.Context, target lock.Datastore, sessionID uint32) error {
	ctx, cancel := ds.withTimeout(ctx)
	defer cancel()

	lease, err := ds.client.Grant(ctx, int64(lockTTL.Seconds()))
	if err != nil {
		return NewError(ErrCodeInternal, "failed to grant lock lease", err)
	}

	recJSON, err := json.Marshal(lockRecord{SessionID: sessionID})
	if err != nil {
		return NewError(ErrCodeInternal, "failed to encode lock record", err)
	}

	key := ds.lockKey(target)
	txnResp, err := ds.client.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(key), "=", 0)).
		Then(clientv3.OpPut(key, string(recJSON), clientv3.WithLease(lease.ID))).
		Commit()
	if err != nil {
		return NewError(ErrCodeInternal, "failed to acquire lock", err)
	}
	if !txnResp.Succeeded {
		ds.client.Revoke(ctx, lease.ID)
		return NewError(ErrCodeInternal, string(target)+" already locked", nil)
	}

	ds.logLockEvent(ctx, target, sessionID, "lock_acquire")
	return nil
}

// UnlockDatastore deletes the lock key only if it is still owned by
// sessionID, guarding against a stale caller racing a lease expiry and a
// fresh acquisition by a different session.
func (ds *etcdDatastore) UnlockDatastore(ctx context.Context, target lock.Datastore, sessionID uint32) error {
	ctx, cancel := ds.withTimeout(ctx)
	defer cancel()

	key := ds.lockKey(target)
	resp, err := ds.client.Get(ctx, key)
	if err != nil {
		return NewError(ErrCodeInternal, "failed to check lock", err)
	}
	if len(resp.Kvs) == 0 {
		return nil // nothing to release, idempotent
	}
	var rec lockRecord
	if err := json.Unmarshal(resp.Kvs[0].Value, &rec); err != nil {
		return NewError(ErrCodeInternal, "failed to decode lock record", err)
	}
	if rec.SessionID != sessionID {
		return NewError(ErrCodeInternal, string(target)+" is locked by another session", nil)
	}

	if _, err := ds.client.Delete(ctx, key); err != nil {
		return NewError(ErrCodeInternal, "failed to release lock", err)
	}

	ds.logLockEvent(ctx, target, sessionID, "lock_release")
	return nil
}
