package netconf

import (
	"context"
	"encoding/xml"

	"github.com/ncagentd/ncagentd/pkg/datastore"
)

// EditConfigRequest is the decoded <edit-config> operation body. test-option
// is deliberately not decoded: per spec §4.5 the error-option is ignored and
// behavior is always rollback-on-error, regardless of which test-option
// value (or its common misspelling) a client sends.
type EditConfigRequest struct {
	XMLName          xml.Name          `xml:"edit-config"`
	Target           Target            `xml:"target"`
	DefaultOperation *DefaultOperation `xml:"default-operation"`
	Config           configBody        `xml:"config"`
}

type configBody struct {
	Content []byte `xml:",innerxml"`
}

func (s *Server) handleEditConfig(ctx context.Context, sess *Session, rpc *RPC) []byte {
	var req EditConfigRequest
	if err := rpc.UnmarshalOperation(&req); err != nil {
		return MarshalErrorReply(rpc.MessageID, err.(*RPCError))
	}

	target, rerr := req.Target.GetDatastore("edit-config")
	if rerr != nil {
		return MarshalErrorReply(rpc.MessageID, rerr)
	}
	// Only running is writable in this build (spec §9's open-question
	// decision: candidate and startup are rejected as an unsupported target
	// rather than treated as a distinct writable datastore).
	if target != DatastoreRunning {
		return MarshalErrorReply(rpc.MessageID, ErrInvalidTarget("edit-config", string(target)))
	}

	defOp := DefaultOpMerge
	if req.DefaultOperation != nil {
		defOp = *req.DefaultOperation
	}

	w := newEditWalker(s.ds, datastore.Running, s.reg, defOp)
	if rerr := w.Run(ctx, req.Config.Content); rerr != nil {
		return MarshalErrorReply(rpc.MessageID, rerr)
	}
	return MarshalOKReply(rpc.MessageID)
}
