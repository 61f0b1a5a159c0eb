package netconf

import (
	"context"
	"testing"

	"github.com/ncagentd/ncagentd/pkg/datastore"
	"github.com/ncagentd/ncagentd/pkg/lock"
	"github.com/ncagentd/ncagentd/pkg/schema"
	"github.com/ncagentd/ncagentd/pkg/value"
)

// testKeyedYANG defines a two-key list, matching spec.md's own "k1,k2"
// concrete scenario verbatim, to exercise list-key buffering precisely.
const testKeyedYANG = `
module testmod {
  namespace "urn:ex:testmod";
  prefix "ex";

  container items {
    list item {
      key "k1 k2";

      leaf k1 { type string; }
      leaf k2 { type string; }
      leaf v { type uint32; }
    }
  }

  leaf x {
    type uint32;
  }
}
`

func loadTestRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	r, err := schema.Load(map[string]string{"testmod.yang": testKeyedYANG}, []string{"testmod"})
	if err != nil {
		t.Fatalf("schema.Load: %v", err)
	}
	return r
}

// fakeCall records one SetItem/DeleteItem invocation seen by fakeDatastore.
type fakeCall struct {
	op     string // "set" or "delete"
	xpath  string
	strict bool
	value  value.Value
}

// fakeDatastore is a minimal in-memory Datastore good enough to drive
// editWalker: it records every mutating call and enforces create/delete
// strictness against a small existing-item set, without any of the
// concurrency or persistence concerns the real backends handle.
type fakeDatastore struct {
	existing map[string]bool
	calls    []fakeCall
}

func newFakeDatastore(existing ...string) *fakeDatastore {
	ex := make(map[string]bool, len(existing))
	for _, x := range existing {
		ex[x] = true
	}
	return &fakeDatastore{existing: ex}
}

func (f *fakeDatastore) GetItems(ctx context.Context, ds datastore.Datastore_, xpath string) ([]datastore.Item, error) {
	return nil, nil
}

func (f *fakeDatastore) GetItemsIter(ctx context.Context, ds datastore.Datastore_, xpath string) (datastore.ItemIter, error) {
	return nil, nil
}

func (f *fakeDatastore) SetItem(ctx context.Context, ds datastore.Datastore_, xpath string, v value.Value, flags datastore.SetFlags) error {
	if flags.Strict && f.existing[xpath] {
		return datastore.NewError(datastore.ErrCodeDataExists, "already exists", nil)
	}
	f.existing[xpath] = true
	f.calls = append(f.calls, fakeCall{op: "set", xpath: xpath, strict: flags.Strict, value: v})
	return nil
}

func (f *fakeDatastore) DeleteItem(ctx context.Context, ds datastore.Datastore_, xpath string, flags datastore.DeleteFlags) error {
	if flags.Strict && !f.existing[xpath] {
		return datastore.NewError(datastore.ErrCodeDataMissing, "does not exist", nil)
	}
	delete(f.existing, xpath)
	f.calls = append(f.calls, fakeCall{op: "delete", xpath: xpath, strict: flags.Strict})
	return nil
}

func (f *fakeDatastore) LockDatastore(ctx context.Context, ds lock.Datastore, sessionID uint32) error {
	return nil
}

func (f *fakeDatastore) UnlockDatastore(ctx context.Context, ds lock.Datastore, sessionID uint32) error {
	return nil
}

func (f *fakeDatastore) SessionRefresh(ctx context.Context, ds datastore.Datastore_) error { return nil }

func (f *fakeDatastore) Close() error { return nil }

// TestEditCreateStrictDataExists is spec.md scenario 4: a strict create
// succeeds once, and an identical second create fails with data-exists at
// the offending path.
func TestEditCreateStrictDataExists(t *testing.T) {
	reg := loadTestRegistry(t)
	ds := newFakeDatastore()

	const configXML = `<x xmlns="urn:ex:testmod" xmlns:nc="urn:ietf:params:xml:ns:netconf:base:1.0" nc:operation="create">1</x>`

	w := newEditWalker(ds, datastore.Running, reg, DefaultOpMerge)
	if err := w.Run(context.Background(), []byte(configXML)); err != nil {
		t.Fatalf("first create: unexpected error %+v", err)
	}
	if len(ds.calls) != 1 || ds.calls[0].xpath != "/ex:x" || !ds.calls[0].strict {
		t.Fatalf("expected one strict set at /ex:x, got %+v", ds.calls)
	}

	w2 := newEditWalker(ds, datastore.Running, reg, DefaultOpMerge)
	err := w2.Run(context.Background(), []byte(configXML))
	if err == nil {
		t.Fatal("expected data-exists error on second create, got nil")
	}
	if err.ErrorTag != ErrorTagDataExists {
		t.Fatalf("got error-tag %q, want data-exists", err.ErrorTag)
	}
	if err.ErrorPath != "/ex:x" {
		t.Fatalf("got error-path %q, want /ex:x", err.ErrorPath)
	}
}

// TestEditListKeyBuffering is spec.md scenario 5: no set call is emitted for
// a list instance (or anything nested under it) before both of its keys are
// known, and exactly one set call reaches the backend, at the fully-keyed
// path.
func TestEditListKeyBuffering(t *testing.T) {
	reg := loadTestRegistry(t)
	ds := newFakeDatastore()

	const configXML = `<items xmlns="urn:ex:testmod"><item><k1>a</k1><k2>b</k2><v>1</v></item></items>`

	w := newEditWalker(ds, datastore.Running, reg, DefaultOpMerge)
	if err := w.Run(context.Background(), []byte(configXML)); err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}

	if len(ds.calls) != 1 {
		t.Fatalf("expected exactly one set call, got %d: %+v", len(ds.calls), ds.calls)
	}
	want := "/ex:items/item[k1='a'][k2='b']/v"
	if ds.calls[0].xpath != want {
		t.Fatalf("got xpath %q, want %q", ds.calls[0].xpath, want)
	}
	if ds.calls[0].value.Str != "1" {
		t.Fatalf("got value %+v, want Str=1", ds.calls[0].value)
	}
}

// TestEditMergeDefault runs an edit with default-operation replace and no
// nc:operation attributes anywhere, and checks that the one visited
// mutation dispatches the way merge does: a single non-strict set.
func TestEditMergeDefault(t *testing.T) {
	reg := loadTestRegistry(t)
	ds := newFakeDatastore()

	const configXML = `<x xmlns="urn:ex:testmod">5</x>`

	w := newEditWalker(ds, datastore.Running, reg, DefaultOpReplace)
	if err := w.Run(context.Background(), []byte(configXML)); err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
	if len(ds.calls) != 1 || ds.calls[0].strict {
		t.Fatalf("expected one non-strict set (replace maps like merge), got %+v", ds.calls)
	}
}

// TestEditEmptyConfigNoOp verifies an empty <config/> performs no backend
// calls at all, per spec.md §4.5.
func TestEditEmptyConfigNoOp(t *testing.T) {
	reg := loadTestRegistry(t)
	ds := newFakeDatastore()

	w := newEditWalker(ds, datastore.Running, reg, DefaultOpMerge)
	if err := w.Run(context.Background(), []byte("  ")); err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
	if len(ds.calls) != 0 {
		t.Fatalf("expected no calls for an empty config, got %+v", ds.calls)
	}
}
