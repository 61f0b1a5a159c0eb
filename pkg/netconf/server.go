package netconf

import (
	"context"

	"github.com/ncagentd/ncagentd/pkg/datastore"
	"github.com/ncagentd/ncagentd/pkg/lock"
	"github.com/ncagentd/ncagentd/pkg/logger"
	"github.com/ncagentd/ncagentd/pkg/schema"
)

// Server is the RPC Executors component (spec §4.5): it owns the schema
// registry, datastore backend, lock manager, and session table, and
// dispatches each parsed <rpc> to the handler for get/get-config/lock/
// unlock/edit-config, grounded in the teacher's server.go dispatch shape.
type Server struct {
	ds       datastore.Datastore
	reg      *schema.Registry
	locks    *lock.Manager
	sessions *SessionManager
	log      *logger.Logger

	defaultWithDefaults WithDefaultsMode
}

// NewServer constructs a Server. defaultWithDefaults is the server
// capability default applied when a get/get-config RPC carries no
// with-defaults leaf of its own (spec §4.5).
func NewServer(ds datastore.Datastore, reg *schema.Registry, locks *lock.Manager, sessions *SessionManager, log *logger.Logger, defaultWithDefaults WithDefaultsMode) *Server {
	if defaultWithDefaults == "" {
		defaultWithDefaults = WDExplicit
	}
	return &Server{
		ds:                  ds,
		reg:                 reg,
		locks:               locks,
		sessions:            sessions,
		log:                 log,
		defaultWithDefaults: defaultWithDefaults,
	}
}

// HandleRPC dispatches a parsed <rpc> to its handler and always returns a
// well-formed <rpc-reply> byte sequence: errors inside the core are mapped
// to NETCONF structured errors rather than propagated, per spec §7.
func (s *Server) HandleRPC(ctx context.Context, sess *Session, rpc *RPC) []byte {
	if s.log != nil {
		s.log.Debug("handling rpc", "operation", rpc.GetOperationName(), "session", sess.NumericID, "message_id", rpc.MessageID)
	}
	switch rpc.GetOperationName() {
	case "get":
		return s.handleGet(ctx, sess, rpc)
	case "get-config":
		return s.handleGetConfig(ctx, sess, rpc)
	case "lock":
		return s.handleLock(ctx, sess, rpc)
	case "unlock":
		return s.handleUnlock(ctx, sess, rpc)
	case "edit-config":
		return s.handleEditConfig(ctx, sess, rpc)
	default:
		return MarshalErrorReply(rpc.MessageID, ErrUnknownRPC(rpc.GetOperationName()))
	}
}

// toLockDatastore narrows the full Datastore enum to the three lockable
// datastores the Lock Manager arbitrates, per spec §3's lock table.
func toLockDatastore(ds Datastore, rpcName string) (lock.Datastore, *RPCError) {
	switch ds {
	case DatastoreRunning:
		return lock.Running, nil
	case DatastoreStartup:
		return lock.Startup, nil
	case DatastoreCandidate:
		return lock.Candidate, nil
	default:
		return "", ErrInvalidTarget(rpcName, string(ds))
	}
}

// toBackendDatastore narrows the full Datastore enum to the three the
// datastore backend contract (spec §6) actually stores items for.
func toBackendDatastore(ds Datastore, rpcName string) (datastore.Datastore_, *RPCError) {
	switch ds {
	case DatastoreRunning:
		return datastore.Running, nil
	case DatastoreStartup:
		return datastore.Startup, nil
	case DatastoreCandidate:
		return datastore.Candidate, nil
	default:
		return "", ErrInvalidTarget(rpcName, string(ds))
	}
}
