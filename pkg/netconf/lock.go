package netconf

import (
	"context"
	"encoding/xml"

	"github.com/ncagentd/ncagentd/pkg/lock"
)

// LockRequest is the decoded <lock> operation body.
type LockRequest struct {
	XMLName xml.Name `xml:"lock"`
	Target  Target   `xml:"target"`
}

// UnlockRequest is the decoded <unlock> operation body.
type UnlockRequest struct {
	XMLName xml.Name `xml:"unlock"`
	Target  Target   `xml:"target"`
}

func (s *Server) handleLock(ctx context.Context, sess *Session, rpc *RPC) []byte {
	var req LockRequest
	if err := rpc.UnmarshalOperation(&req); err != nil {
		return MarshalErrorReply(rpc.MessageID, err.(*RPCError))
	}
	target, rerr := req.Target.GetDatastore("lock")
	if rerr != nil {
		return MarshalErrorReply(rpc.MessageID, rerr)
	}
	lds, rerr := toLockDatastore(target, "lock")
	if rerr != nil {
		return MarshalErrorReply(rpc.MessageID, rerr)
	}
	if err := s.locks.Acquire(ctx, lds, sess.NumericID); err != nil {
		return MarshalErrorReply(rpc.MessageID, mapLockErr(err, "lock", string(target)))
	}
	return MarshalOKReply(rpc.MessageID)
}

func (s *Server) handleUnlock(ctx context.Context, sess *Session, rpc *RPC) []byte {
	var req UnlockRequest
	if err := rpc.UnmarshalOperation(&req); err != nil {
		return MarshalErrorReply(rpc.MessageID, err.(*RPCError))
	}
	target, rerr := req.Target.GetDatastore("unlock")
	if rerr != nil {
		return MarshalErrorReply(rpc.MessageID, rerr)
	}
	lds, rerr := toLockDatastore(target, "unlock")
	if rerr != nil {
		return MarshalErrorReply(rpc.MessageID, rerr)
	}
	if err := s.locks.Release(ctx, lds, sess.NumericID); err != nil {
		return MarshalErrorReply(rpc.MessageID, mapLockErr(err, "unlock", string(target)))
	}
	return MarshalOKReply(rpc.MessageID)
}

// mapLockErr translates a *lock.Error (spec §4.4) onto the RPCError the
// lock/unlock RPCs themselves surface; the Lock Manager only ever returns
// lock-denied or operation-failed, both already tagged with the owner.
func mapLockErr(err error, rpcName, target string) *RPCError {
	lerr, ok := err.(*lock.Error)
	if !ok {
		return ErrDatastoreError(err.Error())
	}
	switch lerr.Tag {
	case lock.ErrTagLockDenied:
		if rpcName == "lock" {
			return ErrLockDeniedForLock(target, lerr.OwnerID)
		}
		return ErrLockDeniedForUnlock(target, lerr.OwnerID)
	default:
		return NewRPCError(ErrorTypeProtocol, ErrorTagOperationFailed, target+" is not locked").
			WithPath("/rpc/" + rpcName + "/target")
	}
}
