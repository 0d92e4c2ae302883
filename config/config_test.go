package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qtally/cbits"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "qtally.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, 2000, cfg.Shots)
	assert.Equal(t, int64(100), cfg.Seed)
	assert.Equal(t, "local_simulator", cfg.Backend)
	assert.Equal(t, filepath.Dir(path), cfg.SetupDir)
	assert.Equal(t, cbits.LittleEndian, cfg.Order())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "bit_order: little")
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qtally.yaml")
	require.NoError(t, os.WriteFile(path, []byte("shots: 512\nbit_order: big-endian\nlog:\n  level: debug\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 512, cfg.Shots)
	assert.Equal(t, cbits.BigEndian, cfg.Order())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Pretty)
	assert.True(t, cfg.Memory)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qtally.yaml")
	require.NoError(t, os.WriteFile(path, []byte("shots: 512\n"), 0644))
	t.Setenv("QTALLY_SHOTS", "64")
	t.Setenv("QTALLY_BACKEND", "fake_backend")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Shots)
	assert.Equal(t, "fake_backend", cfg.Backend)
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"bad order":  "bit_order: sideways\n",
		"bad shots":  "shots: 0\n",
		"bad yaml":   "shots: [\n",
		"no backend": "backend: \"\"\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
