package netconf

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ncagentd/ncagentd/pkg/lock"
	"github.com/ncagentd/ncagentd/pkg/logger"
)

// sessionIDCounter generates the RFC 6241 integer session-id, distinct from
// the UUID used as the map key internally.
var sessionIDCounter uint32

// Session is a NETCONF session: the RPC execution core does not own a
// transport (that is a concern of whatever embeds it — SSH, a test harness,
// anything that can deliver framed <rpc> elements), so a Session here
// carries only what the Lock Manager and error reporting need.
type Session struct {
	ID        string // UUID v4, internal identifier
	NumericID uint32 // RFC 6241 session-id
	CreatedAt time.Time
}

// SessionManager tracks live sessions so teardown can release every lock a
// departing session held, per spec §4.4's session-teardown rule.
type SessionManager struct {
	mu             sync.RWMutex
	sessions       map[string]*Session
	numericIDIndex map[uint32]*Session
	locks          *lock.Manager
	log            *logger.Logger
}

// NewSessionManager constructs a SessionManager whose teardown drives locks.
func NewSessionManager(locks *lock.Manager, log *logger.Logger) *SessionManager {
	return &SessionManager{
		sessions:       make(map[string]*Session),
		numericIDIndex: make(map[uint32]*Session),
		locks:          locks,
		log:            log,
	}
}

// Create registers a new session and returns it.
func (sm *SessionManager) Create() *Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	s := &Session{
		ID:        uuid.New().String(),
		NumericID: atomic.AddUint32(&sessionIDCounter, 1),
		CreatedAt: time.Now(),
	}
	sm.sessions[s.ID] = s
	sm.numericIDIndex[s.NumericID] = s
	if sm.log != nil {
		sm.log.Info("session created", "id", s.ID, "numeric_id", s.NumericID)
	}
	return s
}

// Get retrieves a session by its UUID.
func (sm *SessionManager) Get(id string) (*Session, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	s, ok := sm.sessions[id]
	return s, ok
}

// GetByNumericID retrieves a session by its RFC 6241 session-id.
func (sm *SessionManager) GetByNumericID(numericID uint32) (*Session, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	s, ok := sm.numericIDIndex[numericID]
	return s, ok
}

// Close removes the session and releases every lock it held.
func (sm *SessionManager) Close(ctx context.Context, id string) {
	sm.mu.Lock()
	s, ok := sm.sessions[id]
	if ok {
		delete(sm.sessions, id)
		delete(sm.numericIDIndex, s.NumericID)
	}
	sm.mu.Unlock()
	if !ok {
		return
	}
	sm.locks.Teardown(ctx, s.NumericID)
	if sm.log != nil {
		sm.log.Info("session closed", "id", s.ID, "numeric_id", s.NumericID)
	}
}

// Count reports the number of live sessions.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}
