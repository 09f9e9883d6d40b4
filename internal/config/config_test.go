package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 64, cfg.SizeOfOneDataID)
	assert.Positive(t, cfg.CopyParallelism)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero data id", func(c *Config) { c.SizeOfOneDataID = 0 }},
		{"zero parallelism", func(c *Config) { c.CopyParallelism = 0 }},
		{"negative pool", func(c *Config) { c.Staging.MaxPooledPerClass = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"size_of_one_data_id": 16}`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.SizeOfOneDataID)
	assert.Equal(t, DefaultConfig().CopyParallelism, cfg.CopyParallelism)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"size_of_one_data_id": -4}`), 0o600))
	_, err = Load(bad)
	assert.Error(t, err)

	garbage := filepath.Join(t.TempDir(), "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte(`{`), 0o600))
	_, err = Load(garbage)
	assert.Error(t, err)
}

func TestSetGlobal(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SizeOfOneDataID = 8

	prev := SetGlobal(cfg)
	defer SetGlobal(prev)

	assert.Equal(t, 8, Global().SizeOfOneDataID)
	assert.Panics(t, func() { SetGlobal(nil) })
}
