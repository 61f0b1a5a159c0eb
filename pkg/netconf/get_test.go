package netconf

import (
	"context"
	"encoding/xml"
	"strings"
	"testing"

	"github.com/ncagentd/ncagentd/pkg/datastore"
	"github.com/ncagentd/ncagentd/pkg/lock"
	"github.com/ncagentd/ncagentd/pkg/schema"
	"github.com/ncagentd/ncagentd/pkg/value"
)

func schemaRegistryForGetTests(t *testing.T) (*schema.Registry, error) {
	t.Helper()
	return schema.LoadDefault()
}

func xmlName(local string) xml.Name { return xml.Name{Local: local} }

func contains(s, substr string) bool { return strings.Contains(s, substr) }

// readFakeDatastore is a minimal in-memory Datastore good enough to drive
// get/get-config: it answers GetItems by exact-match lookup keyed on query
// shape, enough to exercise runRead's containment-plus-descendant loop and
// its per-query unknown-model skip.
type readFakeDatastore struct {
	topLevel map[string][]datastore.Item // query -> items ("/sys:*")
	descend  map[string][]datastore.Item // query -> items ("{xpath}//*")
}

func newReadFakeDatastore() *readFakeDatastore {
	return &readFakeDatastore{
		topLevel: make(map[string][]datastore.Item),
		descend:  make(map[string][]datastore.Item),
	}
}

func (f *readFakeDatastore) GetItems(ctx context.Context, ds datastore.Datastore_, xpath string) ([]datastore.Item, error) {
	if items, ok := f.topLevel[xpath]; ok {
		return items, nil
	}
	if items, ok := f.descend[xpath]; ok {
		return items, nil
	}
	return nil, datastore.NewError(datastore.ErrCodeNotFound, "no data at "+xpath, nil)
}

func (f *readFakeDatastore) GetItemsIter(ctx context.Context, ds datastore.Datastore_, xpath string) (datastore.ItemIter, error) {
	return nil, nil
}

func (f *readFakeDatastore) SetItem(ctx context.Context, ds datastore.Datastore_, xpath string, v value.Value, flags datastore.SetFlags) error {
	return nil
}

func (f *readFakeDatastore) DeleteItem(ctx context.Context, ds datastore.Datastore_, xpath string, flags datastore.DeleteFlags) error {
	return nil
}

func (f *readFakeDatastore) LockDatastore(ctx context.Context, ds lock.Datastore, sessionID uint32) error {
	return nil
}

func (f *readFakeDatastore) UnlockDatastore(ctx context.Context, ds lock.Datastore, sessionID uint32) error {
	return nil
}

func (f *readFakeDatastore) SessionRefresh(ctx context.Context, ds datastore.Datastore_) error {
	return nil
}

func (f *readFakeDatastore) Close() error { return nil }

// TestGetNoFilterSkipsRPCOnlyModule is spec.md scenario 6: a filterless get
// against a registry with one data-bearing module and one rpc-only module
// issues exactly one top-level query (for the data-bearing module) and
// never touches the rpc-only one.
func TestGetNoFilterSkipsRPCOnlyModule(t *testing.T) {
	reg, err := schemaRegistryForGetTests(t)
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}

	ds := newReadFakeDatastore()
	ds.topLevel["/sys:*"] = []datastore.Item{
		{XPath: "/sys:system/hostname", Value: value.Value{Kind: value.KindString, Str: "router1"}},
	}
	ds.descend["/sys:system/hostname//*"] = nil

	srv := NewServer(ds, reg, lock.New(ds), NewSessionManager(lock.New(ds), nil), nil, WDExplicit)

	rpc := &RPC{MessageID: "1", Operation: xmlName("get")}
	reply := srv.HandleRPC(context.Background(), &Session{NumericID: 1}, rpc)

	got := string(reply)
	if !contains(got, "<hostname>router1</hostname>") {
		t.Fatalf("expected hostname in reply, got %s", got)
	}
	if contains(got, "maint:") {
		t.Fatalf("expected no maintenance module content, got %s", got)
	}
}

// TestGetConfigSourceRequired verifies get-config without a <source> element
// fails with missing-element rather than silently defaulting a datastore.
func TestGetConfigSourceRequired(t *testing.T) {
	reg, err := schemaRegistryForGetTests(t)
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}
	ds := newReadFakeDatastore()
	srv := NewServer(ds, reg, lock.New(ds), NewSessionManager(lock.New(ds), nil), nil, WDExplicit)

	rpc := &RPC{MessageID: "2", Operation: xmlName("get-config")}
	reply := srv.HandleRPC(context.Background(), &Session{NumericID: 1}, rpc)

	got := string(reply)
	if !contains(got, "missing-element") {
		t.Fatalf("expected missing-element error, got %s", got)
	}
}
