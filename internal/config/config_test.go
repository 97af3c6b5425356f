package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novasql-core/pkg/replacer"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "novacore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_ParsesValues(t *testing.T) {
	path := writeConfig(t, `
buffer:
  capacity: 128
  strategy: mru
storage:
  dir: /tmp/novacore-data
  page_size: 4096
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 128, cfg.Buffer.Capacity)
	require.Equal(t, "mru", cfg.Buffer.Strategy)
	require.Equal(t, "/tmp/novacore-data", cfg.Storage.Dir)
	require.Equal(t, replacer.MRU, cfg.Policy())
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, "storage:\n  dir: /tmp/x\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, DefaultBufferCapacity, cfg.Buffer.Capacity)
	require.Equal(t, replacer.LRU, cfg.Policy())
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestEngineConfig_PolicyDefaultsOnUnknownStrategy(t *testing.T) {
	cfg := &EngineConfig{}
	cfg.Buffer.Strategy = "bogus"
	require.Equal(t, replacer.LRU, cfg.Policy())
}
