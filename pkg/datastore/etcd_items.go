package datastore

import (
	"context"
	"encoding/json"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/ncagentd/ncagentd/pkg/value"
)

// itemsPrefix returns the etcd key prefix under which every item of dsName
// is stored; individual item keys append the item's own xpath.
func (ds *etcdDatastore) itemsPrefix(dsName Datastore_) string {
	return ds.key("items", string(dsName)) + "/"
}

func (ds *etcdDatastore) itemKey(dsName Datastore_, xpath string) string {
	return ds.itemsPrefix(dsName) + xpath
}

// GetItems lists every item under dsName and filters in Go against xpath's
// query shape, same rationale as the SQLite backend (see xpath_match.go).
func (ds *etcdDatastore) GetItems(ctx context.Context, dsName Datastore_, xpath string) ([]Item, error) {
	ctx, cancel := ds.withTimeout(ctx)
	defer cancel()

	resp, err := ds.client.Get(ctx, ds.itemsPrefix(dsName), clientv3.WithPrefix())
	if err != nil {
		return nil, NewError(ErrCodeInternal, "failed to list items", err)
	}

	q := parseQuery(xpath)
	prefix := ds.itemsPrefix(dsName)
	var out []Item
	for _, kv := range resp.Kvs {
		x := string(kv.Key)[len(prefix):]
		if !q.matches(x) {
			continue
		}
		var rec record
		if err := json.Unmarshal(kv.Value, &rec); err != nil {
			return nil, NewError(ErrCodeInternal, "failed to decode item record", err)
		}
		out = append(out, Item{XPath: x, Value: rec.toValue(x)})
	}
	return out, nil
}

// GetItemsIter wraps a pre-fetched GetItems slice, same as the SQLite
// backend's iterator.
func (ds *etcdDatastore) GetItemsIter(ctx context.Context, dsName Datastore_, xpath string) (ItemIter, error) {
	items, err := ds.GetItems(ctx, dsName, xpath)
	if err != nil {
		return nil, err
	}
	return &sliceIter{items: items, pos: -1}, nil
}

func (ds *etcdDatastore) SetItem(ctx context.Context, dsName Datastore_, xpath string, v value.Value, flags SetFlags) error {
	ctx, cancel := ds.withTimeout(ctx)
	defer cancel()

	key := ds.itemKey(dsName, xpath)

	if flags.Strict {
		resp, err := ds.client.Get(ctx, key)
		if err != nil {
			return NewError(ErrCodeInternal, "failed to check existing item", err)
		}
		if len(resp.Kvs) > 0 {
			return NewError(ErrCodeDataExists, xpath, nil)
		}
	}

	recJSON, err := json.Marshal(toRecord(v))
	if err != nil {
		return NewError(ErrCodeInternal, "failed to encode item record", err)
	}
	if _, err := ds.client.Put(ctx, key, string(recJSON)); err != nil {
		return NewError(ErrCodeInternal, "failed to set item", err)
	}
	return nil
}

func (ds *etcdDatastore) DeleteItem(ctx context.Context, dsName Datastore_, xpath string, flags DeleteFlags) error {
	ctx, cancel := ds.withTimeout(ctx)
	defer cancel()

	key := ds.itemKey(dsName, xpath)
	resp, err := ds.client.Delete(ctx, key)
	if err != nil {
		return NewError(ErrCodeInternal, "failed to delete item", err)
	}
	if resp.Deleted == 0 && flags.Strict {
		return NewError(ErrCodeDataMissing, xpath, nil)
	}
	return nil
}

// SessionRefresh is a no-op: every Get above reads etcd's current revision
// directly, so there is no cached snapshot for this backend to refresh.
func (ds *etcdDatastore) SessionRefresh(ctx context.Context, dsName Datastore_) error {
	return nil
}
