// Package config loads the agent's YAML configuration file: which
// datastore backend to run against and the server-wide with-defaults mode,
// grounded on the teacher's strict-YAML loader idiom.
package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ncagentd/ncagentd/pkg/datastore"
	"github.com/ncagentd/ncagentd/pkg/logger"
	"github.com/ncagentd/ncagentd/pkg/netconf"
)

// Config is the agent's top-level YAML configuration.
type Config struct {
	Listen string `yaml:"listen"`

	Datastore DatastoreConfig `yaml:"datastore"`

	DefaultWithDefaults netconf.WithDefaultsMode `yaml:"default-with-defaults"`
}

// DatastoreConfig selects and parameterizes the backend (spec §6).
type DatastoreConfig struct {
	Backend string `yaml:"backend"` // "sqlite" or "etcd"

	SQLitePath string `yaml:"sqlite-path"`

	EtcdEndpoints []string   `yaml:"etcd-endpoints"`
	EtcdPrefix    string     `yaml:"etcd-prefix"`
	EtcdTimeout   string     `yaml:"etcd-timeout"`
	EtcdUsername  string     `yaml:"etcd-username"`
	EtcdPassword  string     `yaml:"etcd-password"`
	EtcdTLS       *TLSConfig `yaml:"etcd-tls"`
}

// TLSConfig mirrors datastore.TLSConfig in YAML-decodable form.
type TLSConfig struct {
	CertFile string `yaml:"cert-file"`
	KeyFile  string `yaml:"key-file"`
	CAFile   string `yaml:"ca-file"`
}

// Default returns the configuration the agent runs with when no file is
// given: a single-file SQLite store at ncagentd.db (relative to the working
// directory) and explicit with-defaults, matching RFC 6243's own default mode.
func Default() *Config {
	return &Config{
		Listen: "127.0.0.1:8300",
		Datastore: DatastoreConfig{
			Backend:    "sqlite",
			SQLitePath: "ncagentd.db",
		},
		DefaultWithDefaults: netconf.WDExplicit,
	}
}

// Load reads and strictly decodes the YAML configuration at path: unknown
// fields are rejected outright rather than silently ignored, the same
// typo-detection the teacher's hardware loader performs.
func Load(path string, log *logger.Logger) (*Config, error) {
	if log != nil {
		log.Debug("loading agent configuration", slog.String("path", path))
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration %s: %w", path, err)
	}

	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration %s: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", path, err)
	}

	if log != nil {
		log.Info("agent configuration loaded",
			slog.String("backend", cfg.Datastore.Backend),
			slog.String("listen", cfg.Listen),
		)
	}
	return cfg, nil
}

// Validate checks the configuration for internal consistency beyond what
// YAML decoding alone can catch.
func Validate(cfg *Config) error {
	switch cfg.Datastore.Backend {
	case "sqlite":
		if cfg.Datastore.SQLitePath == "" {
			return fmt.Errorf("datastore.sqlite-path is required for the sqlite backend")
		}
	case "etcd":
		if len(cfg.Datastore.EtcdEndpoints) == 0 {
			return fmt.Errorf("datastore.etcd-endpoints is required for the etcd backend")
		}
	default:
		return fmt.Errorf("unknown datastore backend: %q (want sqlite or etcd)", cfg.Datastore.Backend)
	}

	switch cfg.DefaultWithDefaults {
	case "", netconf.WDReportAll, netconf.WDReportAllTagged, netconf.WDTrim, netconf.WDExplicit:
	default:
		return fmt.Errorf("unknown default-with-defaults mode: %q", cfg.DefaultWithDefaults)
	}
	return nil
}

// ToDatastoreConfig converts the YAML-decoded DatastoreConfig into the
// datastore.Config factory.NewDatastore expects.
func (c *Config) ToDatastoreConfig() (*datastore.Config, error) {
	out := datastore.Config{
		Backend:       datastore.BackendType(c.Datastore.Backend),
		SQLitePath:    c.Datastore.SQLitePath,
		EtcdEndpoints: c.Datastore.EtcdEndpoints,
		EtcdPrefix:    c.Datastore.EtcdPrefix,
		EtcdUsername:  c.Datastore.EtcdUsername,
		EtcdPassword:  c.Datastore.EtcdPassword,
	}
	if c.Datastore.EtcdTimeout != "" {
		d, err := time.ParseDuration(c.Datastore.EtcdTimeout)
		if err != nil {
			return nil, fmt.Errorf("datastore.etcd-timeout: %w", err)
		}
		out.EtcdTimeout = d
	}
	if c.Datastore.EtcdTLS != nil {
		out.EtcdTLS = &datastore.TLSConfig{
			CertFile: c.Datastore.EtcdTLS.CertFile,
			KeyFile:  c.Datastore.EtcdTLS.KeyFile,
			CAFile:   c.Datastore.EtcdTLS.CAFile,
		}
	}
	return &out, nil
}
