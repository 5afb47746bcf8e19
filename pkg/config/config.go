// Package config holds engine-level configuration: which store backend
// to run, which isolation level to validate transactions under, how
// often to sweep for garbage, and how many flow workers to run. This is
// not a CLI surface or a network-facing config document — just the
// typed options pkg/engine.New needs, modeled on the teacher's
// cmd/warren/apply.go use of gopkg.in/yaml.v3 to unmarshal a structured
// document and then apply defaults the way apply.go defaults
// APIVersion.
package config

import (
	"io"
	"time"

	"github.com/reifydb/reifydb/pkg/log"
	"github.com/reifydb/reifydb/pkg/txn"
	"gopkg.in/yaml.v3"
)

// Backend selects pkg/store's backend implementation.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendBolt   Backend = "bolt"
	// BackendTiered composes an in-memory hot tier backed by a bolt
	// warm tier, migrating keys whose last write is far enough behind
	// the current version out of memory on a background sweep.
	BackendTiered Backend = "tiered"
)

// Config is the engine's full set of process-level options.
type Config struct {
	Backend  Backend `yaml:"backend"`
	BoltPath string  `yaml:"boltPath"`

	// TieredAgeVersions and TieredSweepInterval configure BackendTiered's
	// migration policy and sweep cadence; ignored for other backends.
	TieredAgeVersions   uint64        `yaml:"tieredAgeVersions"`
	TieredSweepInterval time.Duration `yaml:"tieredSweepInterval"`

	Isolation string `yaml:"isolation"` // "optimistic" or "serializable"

	// GCInterval is how often the engine sweeps CDC events whose version
	// is below every registered consumer's checkpoint. Spec section 9's
	// "GC cadence ... implementation-defined" decision.
	GCInterval time.Duration `yaml:"gcInterval"`

	// FlowWorkers is the flow dispatcher's fixed worker pool size.
	FlowWorkers int `yaml:"flowWorkers"`
	// FlowInterval is how often each flow worker reconciles its
	// partition of registered consumers.
	FlowInterval time.Duration `yaml:"flowInterval"`

	LogLevel      log.Level `yaml:"logLevel"`
	LogJSONOutput bool      `yaml:"logJSONOutput"`
}

// Default returns the configuration the teacher's reconciler/dispatcher
// defaults are grounded on: a 10-second GC tick (pkg/reconciler's
// interval), a single flow worker reconciling every second, optimistic
// isolation, and an in-memory store suited to tests and short-lived
// processes.
func Default() Config {
	return Config{
		Backend:             BackendMemory,
		TieredAgeVersions:   1000,
		TieredSweepInterval: 10 * time.Second,
		Isolation:           "optimistic",
		GCInterval:          10 * time.Second,
		FlowWorkers:         1,
		FlowInterval:        time.Second,
		LogLevel:            log.InfoLevel,
	}
}

// Load unmarshals a YAML configuration document from r and applies
// Default's values to any field the document left zero.
func Load(r io.Reader) (Config, error) {
	cfg := Default()
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, err
	}
	if len(data) == 0 {
		return cfg, nil
	}

	var doc Config
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Config{}, err
	}

	if doc.Backend != "" {
		cfg.Backend = doc.Backend
	}
	if doc.BoltPath != "" {
		cfg.BoltPath = doc.BoltPath
	}
	if doc.TieredAgeVersions > 0 {
		cfg.TieredAgeVersions = doc.TieredAgeVersions
	}
	if doc.TieredSweepInterval > 0 {
		cfg.TieredSweepInterval = doc.TieredSweepInterval
	}
	if doc.Isolation != "" {
		cfg.Isolation = doc.Isolation
	}
	if doc.GCInterval > 0 {
		cfg.GCInterval = doc.GCInterval
	}
	if doc.FlowWorkers > 0 {
		cfg.FlowWorkers = doc.FlowWorkers
	}
	if doc.FlowInterval > 0 {
		cfg.FlowInterval = doc.FlowInterval
	}
	if doc.LogLevel != "" {
		cfg.LogLevel = doc.LogLevel
	}
	if doc.LogJSONOutput {
		cfg.LogJSONOutput = doc.LogJSONOutput
	}
	return cfg, nil
}

// TxnIsolation translates the configured isolation name into
// txn.Isolation, defaulting to Optimistic for an unrecognized value.
func (c Config) TxnIsolation() txn.Isolation {
	if c.Isolation == "serializable" {
		return txn.Serializable
	}
	return txn.Optimistic
}
