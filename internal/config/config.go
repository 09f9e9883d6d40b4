// Package config holds the process-wide settings consulted by blobs, registers
// and the copy dispatcher.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"sync/atomic"
)

// Config is the process-wide configuration.
type Config struct {
	// SizeOfOneDataID is the byte stride of one data-id slot in a blob header.
	SizeOfOneDataID int `json:"size_of_one_data_id"`

	// CopyParallelism bounds how many blob copies a register runs at once.
	CopyParallelism int `json:"copy_parallelism"`

	// Staging controls the bounce buffers used for cross-device copies.
	Staging StagingConfig `json:"staging"`

	// LogLevel is a logrus level name ("debug", "info", ...).
	LogLevel string `json:"log_level"`
}

// StagingConfig configures the staging buffer pool.
type StagingConfig struct {
	MaxPooledPerClass int `json:"max_pooled_per_class"` // Buffers kept per size class.
}

// DefaultConfig returns defaults suitable for a single host process.
func DefaultConfig() *Config {
	return &Config{
		SizeOfOneDataID: 64,
		CopyParallelism: runtime.NumCPU(),
		Staging: StagingConfig{
			MaxPooledPerClass: 100,
		},
		LogLevel: "info",
	}
}

// Validate checks the configuration for values that cannot be honoured.
func (c *Config) Validate() error {
	if c.SizeOfOneDataID <= 0 {
		return fmt.Errorf("size_of_one_data_id must be > 0, got %d", c.SizeOfOneDataID)
	}
	if c.CopyParallelism <= 0 {
		return fmt.Errorf("copy_parallelism must be > 0, got %d", c.CopyParallelism)
	}
	if c.Staging.MaxPooledPerClass < 0 {
		return fmt.Errorf("staging.max_pooled_per_class must be >= 0, got %d", c.Staging.MaxPooledPerClass)
	}
	return nil
}

// Load reads a JSON config file. Fields missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	//nolint:gosec // G304: config path is supplied by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

var global atomic.Pointer[Config]

func init() {
	global.Store(DefaultConfig())
}

// Global returns the process-wide configuration. Callers must not modify it.
func Global() *Config {
	return global.Load()
}

// SetGlobal replaces the process-wide configuration and returns the previous one.
// It is meant to be called during process setup, before blobs are built.
func SetGlobal(cfg *Config) *Config {
	if cfg == nil {
		panic("config: SetGlobal with nil config")
	}
	return global.Swap(cfg)
}
