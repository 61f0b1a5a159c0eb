// Package datastore's SQLite backend stores every item as a row keyed by
// (datastore, xpath), grounded in the teacher's sqlite.go connection-setup
// idiom (WAL, immediate tx locking, bounded connection pool) but restructured
// from a single config-text blob around the item model spec §6 requires.
package datastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/ncagentd/ncagentd/pkg/lock"
	"github.com/ncagentd/ncagentd/pkg/value"
)

// sqliteDatastore implements the Datastore interface using SQLite.
type sqliteDatastore struct {
	db        *sql.DB
	dbPath    string
	closeOnce sync.Once
}

// NewSQLiteDatastore creates a new SQLite-backed datastore.
func NewSQLiteDatastore(cfg *Config) (Datastore, error) {
	if cfg.Backend != BackendSQLite {
		return nil, fmt.Errorf("invalid backend type: %s (expected %s)", cfg.Backend, BackendSQLite)
	}

	dbPath := cfg.SQLitePath
	if dbPath == "" {
		dbPath = "/var/lib/ncagentd/items.db"
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// _txlock=immediate: write transactions acquire RESERVED immediately,
	// avoiding lock-upgrade races; read-only transactions stay DEFERRED.
	dsn := dbPath + "?_txlock=immediate"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &sqliteDatastore{db: db, dbPath: dbPath}, nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS items (
	datastore TEXT NOT NULL,
	xpath     TEXT NOT NULL,
	record    TEXT NOT NULL,
	PRIMARY KEY (datastore, xpath)
);
CREATE TABLE IF NOT EXISTS datastore_locks (
	datastore  TEXT PRIMARY KEY,
	session_id INTEGER NOT NULL,
	acquired_at TIMESTAMP NOT NULL
);
`

// Close closes the datastore connection. Idempotent.
func (ds *sqliteDatastore) Close() error {
	var closeErr error
	ds.closeOnce.Do(func() {
		closeErr = ds.db.Close()
	})
	return closeErr
}

func (ds *sqliteDatastore) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := ds.db.BeginTx(ctx, nil)
	if err != nil {
		return NewError(ErrCodeInternal, "failed to begin transaction", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return NewError(ErrCodeInternal, "failed to commit transaction", err)
	}
	return nil
}

// GetItems fetches every row for ds and filters it in Go against xpath's
// query shape (exact / top-level-wildcard / descendant) — see xpath_match.go
// for why this backend doesn't run a general XPath evaluator.
func (ds *sqliteDatastore) GetItems(ctx context.Context, dsName Datastore_, xpath string) ([]Item, error) {
	rows, err := ds.db.QueryContext(ctx, `SELECT xpath, record FROM items WHERE datastore = ?`, string(dsName))
	if err != nil {
		return nil, NewError(ErrCodeInternal, "failed to query items", err)
	}
	defer rows.Close()

	q := parseQuery(xpath)
	var out []Item
	for rows.Next() {
		var x, recJSON string
		if err := rows.Scan(&x, &recJSON); err != nil {
			return nil, NewError(ErrCodeInternal, "failed to scan item row", err)
		}
		if !q.matches(x) {
			continue
		}
		var rec record
		if err := json.Unmarshal([]byte(recJSON), &rec); err != nil {
			return nil, NewError(ErrCodeInternal, "failed to decode item record", err)
		}
		out = append(out, Item{XPath: x, Value: rec.toValue(x)})
	}
	if err := rows.Err(); err != nil {
		return nil, NewError(ErrCodeInternal, "failed to iterate item rows", err)
	}
	return out, nil
}

// GetItemsIter wraps a pre-fetched GetItems slice: the RPC Executors' //*
// descendant queries don't run against result sets large enough to need true
// server-side streaming for this backend.
func (ds *sqliteDatastore) GetItemsIter(ctx context.Context, dsName Datastore_, xpath string) (ItemIter, error) {
	items, err := ds.GetItems(ctx, dsName, xpath)
	if err != nil {
		return nil, err
	}
	return &sliceIter{items: items, pos: -1}, nil
}

// SetItem upserts the item at xpath. flags.Strict rejects an existing row
// with data-exists, matching the edit-config "create" dispatch rule.
func (ds *sqliteDatastore) SetItem(ctx context.Context, dsName Datastore_, xpath string, v value.Value, flags SetFlags) error {
	return ds.withTx(ctx, func(tx *sql.Tx) error {
		var exists bool
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM items WHERE datastore = ? AND xpath = ?`, string(dsName), xpath).Scan(new(int))
		if err == nil {
			exists = true
		} else if err != sql.ErrNoRows {
			return NewError(ErrCodeInternal, "failed to check existing item", err)
		}

		if exists && flags.Strict {
			return NewError(ErrCodeDataExists, xpath, nil)
		}

		recJSON, err := json.Marshal(toRecord(v))
		if err != nil {
			return NewError(ErrCodeInternal, "failed to encode item record", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO items (datastore, xpath, record) VALUES (?, ?, ?)
			ON CONFLICT(datastore, xpath) DO UPDATE SET record = excluded.record
		`, string(dsName), xpath, string(recJSON))
		if err != nil {
			return NewError(ErrCodeInternal, "failed to set item", err)
		}
		return nil
	})
}

// DeleteItem removes the item at xpath. flags.Strict requires the row to
// already exist, matching the edit-config "delete" dispatch rule.
func (ds *sqliteDatastore) DeleteItem(ctx context.Context, dsName Datastore_, xpath string, flags DeleteFlags) error {
	return ds.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM items WHERE datastore = ? AND xpath = ?`, string(dsName), xpath)
		if err != nil {
			return NewError(ErrCodeInternal, "failed to delete item", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return NewError(ErrCodeInternal, "failed to check delete result", err)
		}
		if n == 0 && flags.Strict {
			return NewError(ErrCodeDataMissing, xpath, nil)
		}
		return nil
	})
}

// LockDatastore and UnlockDatastore are the backend-side step 3 of
// pkg/lock.Manager's acquire/release protocol: a durable row recording which
// session holds ds, so a server restart doesn't silently forget a lock the
// in-process Manager has already lost track of.
func (ds *sqliteDatastore) LockDatastore(ctx context.Context, target lock.Datastore, sessionID uint32) error {
	return ds.withTx(ctx, func(tx *sql.Tx) error {
		var existing int64
		err := tx.QueryRowContext(ctx, `SELECT session_id FROM datastore_locks WHERE datastore = ?`, string(target)).Scan(&existing)
		if err == nil {
			return NewError(ErrCodeInternal, fmt.Sprintf("%s already locked by session %d", target, existing), nil)
		}
		if err != sql.ErrNoRows {
			return NewError(ErrCodeInternal, "failed to check existing lock", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO datastore_locks (datastore, session_id, acquired_at) VALUES (?, ?, ?)
		`, string(target), sessionID, time.Now())
		if err != nil {
			return NewError(ErrCodeInternal, "failed to record lock", err)
		}
		return nil
	})
}

func (ds *sqliteDatastore) UnlockDatastore(ctx context.Context, target lock.Datastore, sessionID uint32) error {
	return ds.withTx(ctx, func(tx *sql.Tx) error {
		var owner int64
		err := tx.QueryRowContext(ctx, `SELECT session_id FROM datastore_locks WHERE datastore = ?`, string(target)).Scan(&owner)
		if err == sql.ErrNoRows {
			return nil // nothing to release, idempotent
		}
		if err != nil {
			return NewError(ErrCodeInternal, "failed to check lock owner", err)
		}
		if uint32(owner) != sessionID {
			return NewError(ErrCodeInternal, fmt.Sprintf("%s is locked by another session", target), nil)
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM datastore_locks WHERE datastore = ?`, string(target))
		if err != nil {
			return NewError(ErrCodeInternal, "failed to release lock", err)
		}
		return nil
	})
}

// SessionRefresh is a no-op for SQLite: WAL readers always observe the
// latest committed state and this backend never holds a transaction open
// across calls, so there is no stale snapshot to refresh away.
func (ds *sqliteDatastore) SessionRefresh(ctx context.Context, dsName Datastore_) error {
	return nil
}

// sliceIter adapts a pre-fetched []Item to the ItemIter streaming contract.
type sliceIter struct {
	items []Item
	pos   int
}

func (it *sliceIter) Next() bool {
	it.pos++
	return it.pos < len(it.items)
}

func (it *sliceIter) Item() Item { return it.items[it.pos] }
func (it *sliceIter) Err() error { return nil }
func (it *sliceIter) Close() error { return nil }
