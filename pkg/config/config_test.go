package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadStrictRejectsUnknownField(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ncagentd.yaml")
	const yaml = `
listen: "0.0.0.0:830"
datstore:
  backend: sqlite
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path, nil); err == nil {
		t.Fatal("expected an error for the misspelled 'datstore' field, got nil")
	}
}

func TestLoadValid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ncagentd.yaml")
	const yaml = `
listen: "0.0.0.0:830"
datastore:
  backend: sqlite
  sqlite-path: /var/lib/ncagentd/running.db
default-with-defaults: trim
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != "0.0.0.0:830" {
		t.Fatalf("got listen %q", cfg.Listen)
	}
	if cfg.Datastore.SQLitePath != "/var/lib/ncagentd/running.db" {
		t.Fatalf("got sqlite-path %q", cfg.Datastore.SQLitePath)
	}
	if cfg.DefaultWithDefaults != "trim" {
		t.Fatalf("got default-with-defaults %q", cfg.DefaultWithDefaults)
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := Default()
	cfg.Datastore.Backend = "mongo"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected an error for an unknown backend, got nil")
	}
}
