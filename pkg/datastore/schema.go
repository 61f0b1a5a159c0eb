// Package datastore defines the backend contract the RPC Executors and Lock
// Manager drive (spec §6) and provides two implementations: a single-node
// SQLite backend and a distributed etcd backend.
package datastore

import (
	"context"
	"time"

	"github.com/ncagentd/ncagentd/pkg/lock"
	"github.com/ncagentd/ncagentd/pkg/value"
)

// Datastore_ is the closed set of datastore identities a backend call can
// target. Named with a trailing underscore because "Datastore" already
// names this package's main interface.
type Datastore_ string

const (
	Running   Datastore_ = "running"
	Startup   Datastore_ = "startup"
	Candidate Datastore_ = "candidate"
)

// Item is a single stored value at an absolute XPath.
type Item struct {
	XPath string
	Value value.Value
}

// ItemIter streams items from a GetItemsIter query without materializing
// the whole result set, for the RPC Executors' descendant expansion
// queries ("{xpath}//*") that may return large subtrees.
type ItemIter interface {
	Next() bool
	Item() Item
	Err() error
	Close() error
}

// SetFlags controls SetItem's create-vs-merge semantics (spec §4.5 step 4:
// create is strict, merge/replace are not).
type SetFlags struct {
	Strict bool // true: fail with data-exists if the item already exists
}

// DeleteFlags controls DeleteItem's delete-vs-remove semantics (spec §4.5
// step 4: delete is strict, remove is not).
type DeleteFlags struct {
	Strict bool // true: fail with data-missing if the item does not exist
}

// Datastore is the backend contract of spec §6.
type Datastore interface {
	GetItems(ctx context.Context, ds Datastore_, xpath string) ([]Item, error)
	GetItemsIter(ctx context.Context, ds Datastore_, xpath string) (ItemIter, error)
	SetItem(ctx context.Context, ds Datastore_, xpath string, v value.Value, flags SetFlags) error
	DeleteItem(ctx context.Context, ds Datastore_, xpath string, flags DeleteFlags) error
	LockDatastore(ctx context.Context, ds lock.Datastore, sessionID uint32) error
	UnlockDatastore(ctx context.Context, ds lock.Datastore, sessionID uint32) error
	SessionRefresh(ctx context.Context, ds Datastore_) error
	Close() error
}

// ErrorCode is the backend status-code enumeration of spec §6.
type ErrorCode string

const (
	ErrCodeUnknownModel ErrorCode = "unknown-model"
	ErrCodeNotFound     ErrorCode = "not-found"
	ErrCodeUnauthorized ErrorCode = "unauthorized"
	ErrCodeDataExists   ErrorCode = "data-exists"
	ErrCodeDataMissing  ErrorCode = "data-missing"
	ErrCodeInternal     ErrorCode = "internal"
)

// Error is a structured backend failure — the same shape the teacher's
// original datastore error used, retargeted at this package's item/XPath
// error codes.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError constructs a backend Error.
func NewError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// BackendType selects which Datastore implementation NewDatastore builds.
type BackendType string

const (
	BackendSQLite BackendType = "sqlite"
	BackendEtcd   BackendType = "etcd"
)

// Config configures datastore initialization, trimmed from the teacher's
// Config to what the item-model backends need.
type Config struct {
	Backend BackendType

	SQLitePath string

	EtcdEndpoints []string
	EtcdPrefix    string
	EtcdTimeout   time.Duration
	EtcdUsername  string
	EtcdPassword  string
	EtcdTLS       *TLSConfig
}

// TLSConfig configures etcd client TLS, unchanged from the teacher.
type TLSConfig struct {
	CertFile string
	KeyFile  string
	CAFile   string
}
