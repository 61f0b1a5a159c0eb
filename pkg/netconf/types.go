package netconf

import "encoding/xml"

const netconfNamespace = "urn:ietf:params:xml:ns:netconf:base:1.0"
const withDefaultsNamespace = "urn:ietf:params:xml:ns:yang:ietf-netconf-with-defaults"

// RPC represents an incoming NETCONF <rpc> envelope: the operation itself is
// left as raw inner XML so each handler can unmarshal it into its own
// request shape, per the teacher's ParseRPC/UnmarshalOperation split.
type RPC struct {
	XMLName   xml.Name `xml:"urn:ietf:params:xml:ns:netconf:base:1.0 rpc"`
	MessageID string   `xml:"message-id,attr"`
	Operation xml.Name `xml:",any"`
	Content   []byte   `xml:",innerxml"`
}

func (r *RPC) GetOperationName() string { return r.Operation.Local }

// Datastore is the closed enumeration of spec §3: running, startup,
// candidate, url, config (inline), error.
type Datastore string

const (
	DatastoreRunning   Datastore = "running"
	DatastoreStartup   Datastore = "startup"
	DatastoreCandidate Datastore = "candidate"
	DatastoreURL       Datastore = "url"
	DatastoreConfig    Datastore = "config"
	DatastoreError     Datastore = "error"
)

// Source represents <source> in get-config.
type Source struct {
	Running   *struct{} `xml:"running"`
	Startup   *struct{} `xml:"startup"`
	Candidate *struct{} `xml:"candidate"`
}

func (s *Source) GetDatastore() (Datastore, *RPCError) {
	switch {
	case s == nil:
		return "", ErrMissingElement("get-config", "source")
	case s.Running != nil:
		return DatastoreRunning, nil
	case s.Startup != nil:
		return DatastoreStartup, nil
	case s.Candidate != nil:
		return DatastoreCandidate, nil
	default:
		return "", ErrMissingElement("get-config", "source")
	}
}

// Target represents <target> in edit-config/lock/unlock.
type Target struct {
	Running   *struct{} `xml:"running"`
	Startup   *struct{} `xml:"startup"`
	Candidate *struct{} `xml:"candidate"`
}

func (t *Target) GetDatastore(rpcName string) (Datastore, *RPCError) {
	switch {
	case t == nil:
		return "", ErrMissingElement(rpcName, "target")
	case t.Running != nil:
		return DatastoreRunning, nil
	case t.Startup != nil:
		return DatastoreStartup, nil
	case t.Candidate != nil:
		return DatastoreCandidate, nil
	default:
		return "", ErrMissingElement(rpcName, "target")
	}
}

// Filter represents the optional <filter> child of get/get-config.
type Filter struct {
	Type    string `xml:"type,attr"`
	Select  string `xml:"select,attr"`
	Content []byte `xml:",innerxml"`
}

// EditOp is the closed set of per-node edit operations, spec §3.
type EditOp string

const (
	OpNone    EditOp = "none"
	OpMerge   EditOp = "merge"
	OpReplace EditOp = "replace"
	OpCreate  EditOp = "create"
	OpDelete  EditOp = "delete"
	OpRemove  EditOp = "remove"
)

// DefaultOperation is the closed set {merge, replace, none}, default merge.
type DefaultOperation string

const (
	DefaultOpMerge   DefaultOperation = "merge"
	DefaultOpReplace DefaultOperation = "replace"
	DefaultOpNone    DefaultOperation = "none"
)

// TestOption is {test-then-set, set, test-only}, default test-then-set.
// The error-option is ignored entirely per spec §4.5: semantics are always
// rollback-on-error, so it is never decoded.
type TestOption string

const (
	TestThenSet TestOption = "test-then-set"
	TestSet     TestOption = "set"
	TestOnly    TestOption = "test-only"
)

// WithDefaultsMode is the ietf-netconf-with-defaults leaf's closed set.
type WithDefaultsMode string

const (
	WDReportAll       WithDefaultsMode = "report-all"
	WDReportAllTagged WithDefaultsMode = "report-all-tagged"
	WDTrim            WithDefaultsMode = "trim"
	WDExplicit        WithDefaultsMode = "explicit"
)
