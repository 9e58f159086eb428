package viper

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serverSection struct {
	Addr     string        `mapstructure:"addr"`
	PongWait time.Duration `mapstructure:"pongWait"`
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("server:\n  addr: :9000\n  pongWait: 5s\n"), 0o600))

	c := New()
	c.SetDefault("server.addr", ":8080")
	c.SetDefault("broker.mode", "match")
	require.NoError(t, c.LoadFile(yamlPath))

	var server serverSection
	require.NoError(t, c.UnmarshalKey("server", &server))
	assert.Equal(t, ":9000", server.Addr)
	assert.Equal(t, 5*time.Second, server.PongWait)
	assert.True(t, c.IsSet("broker.mode"))
	assert.False(t, c.IsSet("broker.includeSender"))

	jsonPath := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"server":{"addr":":7000"}}`), 0o600))
	require.NoError(t, c.LoadFile(jsonPath))
	var all struct {
		Server serverSection `mapstructure:"server"`
	}
	require.NoError(t, c.Unmarshal(&all))
	assert.Equal(t, ":7000", all.Server.Addr)
}

func TestLoadMissingFile(t *testing.T) {
	assert.Error(t, New().LoadFile(filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestLoadFileIfExists(t *testing.T) {
	c := New()
	loaded, err := c.LoadFileIfExists(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.False(t, loaded)

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("broker:\n  mode: broadcast\n"), 0o600))
	loaded, err = c.LoadFileIfExists(path)
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.True(t, c.IsSet("broker.mode"))
}

func TestZeroValue(t *testing.T) {
	var c Config
	assert.False(t, c.IsSet("a"))
	var dst map[string]any
	assert.NoError(t, c.Unmarshal(&dst))
	c.SetDefault("a", 1)
	assert.True(t, c.IsSet("a"))
}
