package application

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/pairchat-go/internal/broker"
	"github.com/lk2023060901/pairchat-go/internal/network/connector"
	"github.com/lk2023060901/pairchat-go/internal/protocol"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// chdir stands in for testing.T.Chdir (Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestLoadConfigDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", "")
	t.Setenv("PAIRCHAT_MODE", "")
	t.Setenv("PAIRCHAT_LOG_LEVEL", "")
	t.Setenv("PAIRCHAT_CONFIG_FILE_PATH", "")

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "/", cfg.Server.Path)
	assert.Equal(t, "/metrics", cfg.Server.MetricsPath)
	assert.Equal(t, string(broker.ModeMatch), cfg.Broker.Mode)
	assert.True(t, cfg.Broker.IncludeSender)
	assert.Equal(t, 60*time.Second, cfg.Session.PongWait)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("PAIRCHAT_MODE", "")
	t.Setenv("PAIRCHAT_LOG_LEVEL", "")
	path := writeConfig(t, `
server:
  addr: 127.0.0.1:9000
  maxConnections: 8
  allowedOrigins: ["https://example.com"]
session:
  pongWait: 5s
broker:
  mode: broadcast
  includeSender: false
log:
  level: debug
`)

	cfg, err := LoadConfig([]string{"--config", path})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 8, cfg.Server.MaxConnections)
	assert.Equal(t, []string{"https://example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 5*time.Second, cfg.Session.PongWait)
	assert.Equal(t, "debug", cfg.Log.Level)

	b := broker.New(cfg.BrokerOptions()...)
	assert.Equal(t, broker.ModeBroadcast, b.Mode())

	t.Setenv("PORT", "9100")
	t.Setenv("PAIRCHAT_MODE", "match")
	t.Setenv("PAIRCHAT_LOG_LEVEL", "warn")
	cfg, err = LoadConfig([]string{"--config=" + path})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9100", cfg.Server.Addr)
	assert.Equal(t, "match", cfg.Broker.Mode)
	assert.Equal(t, "warn", cfg.Log.Level)

	acfg := cfg.AcceptorConfig()
	assert.Equal(t, 8, acfg.MaxConnections)
	assert.Equal(t, 5*time.Second, acfg.PongWait)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig([]string{"--config"})
	assert.Error(t, err)

	_, err = LoadConfig([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)

	t.Setenv("PAIRCHAT_MODE", "telepathy")
	_, err = LoadConfig([]string{"--config", writeConfig(t, "server:\n  addr: :0\n")})
	assert.Error(t, err)
}

func TestConfigFromEnvPath(t *testing.T) {
	t.Setenv("PAIRCHAT_CONFIG_FILE_PATH", writeConfig(t, "broker:\n  mode: broadcast\n"))
	cfg, err := LoadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, "broadcast", cfg.Broker.Mode)
}

func TestApplicationServe(t *testing.T) {
	t.Setenv("PORT", "")
	path := writeConfig(t, `
server:
  addr: 127.0.0.1:0
  path: /ws
log:
  level: error
`)
	app := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, app.Setup(ctx, []string{"--config", path}))

	done := make(chan error, 1)
	go func() { done <- app.Serve(ctx) }()

	base := "http://" + app.Addr().String()
	get := func(p string) string {
		resp, err := http.Get(base + p)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode, p)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return string(body)
	}

	assert.Equal(t, "ok", get("/healthz"))
	assert.Contains(t, get("/version"), Version)

	conn, err := connector.NewWSConnector(connector.Config{}).
		Dial(ctx, "ws://"+app.Addr().String()+"/ws", nil, nil)
	require.NoError(t, err)
	msg, err := protocol.Tagged(&protocol.PingRequest{})
	require.NoError(t, err)
	require.NoError(t, conn.Send(msg))
	select {
	case f := <-conn.Recv():
		var reply map[string]any
		require.NoError(t, conn.Decode(f, &reply))
		assert.Equal(t, "pong", reply["type"])
	case <-time.After(3 * time.Second):
		t.Fatal("no pong")
	}

	assert.Contains(t, get("/metrics"), "pairchat_connections")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return")
	}

	// 关闭后客户端连接被断开。
	select {
	case _, ok := <-conn.Recv():
		assert.False(t, ok)
	case <-time.After(3 * time.Second):
		t.Fatal("client connection not closed")
	}
}
