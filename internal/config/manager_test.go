package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerReloadsOnFileChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "akropol.toml")
	require.NoError(t, os.WriteFile(path, []byte("[voice]\nthreshold_bytes = 1000\n"), 0644))

	m, err := NewManager(path)
	require.NoError(t, err)
	defer m.Stop()
	assert.Equal(t, 1000, m.Get().Voice.ThresholdBytes)

	reloaded := make(chan *Config, 1)
	m.OnReload(func(cfg *Config) { reloaded <- cfg })

	require.NoError(t, os.WriteFile(path, []byte("[voice]\nthreshold_bytes = 2000\n"), 0644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, 2000, cfg.Voice.ThresholdBytes)
	case <-time.After(5 * time.Second):
		t.Fatal("reload callback not invoked")
	}
	assert.Equal(t, 2000, m.Get().Voice.ThresholdBytes)
}

func TestManagerKeepsPreviousConfigOnParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "akropol.toml")
	require.NoError(t, os.WriteFile(path, []byte("[voice]\nthreshold_bytes = 1000\n"), 0644))

	m, err := NewManager(path)
	require.NoError(t, err)
	defer m.Stop()

	require.NoError(t, os.WriteFile(path, []byte("[voice"), 0644))

	// give the watcher time to pick up the broken write
	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, 1000, m.Get().Voice.ThresholdBytes)
}
