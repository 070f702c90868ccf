package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("CONFIG_PATH", path)
}

func TestLoadConfig_Defaults(t *testing.T) {
	writeConfig(t, `
http:
  addr: ":8080"
auth:
  publicKeyPath: /etc/chat/jwt.pub
`)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTP.Addr)
	require.Equal(t, "chat-service", cfg.Logging.Service)
	require.Equal(t, "dev", cfg.Logging.Env)
	require.Equal(t, "std", cfg.Logging.Backend)
	require.Empty(t, cfg.Postgres.DSN)

	require.Equal(t, 30*time.Second, cfg.Auth.ClockSkewOr(30*time.Second))
	require.Equal(t, 15*time.Second, cfg.WS.PingIntervalOr(15*time.Second))
}

func TestLoadConfig_Durations(t *testing.T) {
	writeConfig(t, `
http:
  addr: ":8080"
auth:
  publicKeyPath: /etc/chat/jwt.pub
  clockSkew: 5s
ws:
  pingInterval: 20s
  typingTTL: 7s
`)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 5*time.Second, cfg.Auth.ClockSkewOr(30*time.Second))
	require.Equal(t, 20*time.Second, cfg.WS.PingIntervalOr(15*time.Second))
	require.Equal(t, 7*time.Second, cfg.WS.TypingTTLOr(10*time.Second))
}

func TestLoadConfig_MissingRequired(t *testing.T) {
	writeConfig(t, `
auth:
  publicKeyPath: /etc/chat/jwt.pub
`)
	_, err := LoadConfig()
	require.ErrorContains(t, err, "http.addr")

	writeConfig(t, `
http:
  addr: ":8080"
`)
	_, err = LoadConfig()
	require.ErrorContains(t, err, "auth.publicKeyPath")
}
