package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
server:
  - key: secret
`))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Servers[0].Address)
	assert.Equal(t, "1205", cfg.Servers[0].Port)
	assert.Equal(t, "127.0.0.1", cfg.Redir.Address)
	assert.Equal(t, "1081", cfg.Redir.Port)
	assert.Equal(t, defaultPoolSize, cfg.PoolSize)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigFull(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
redir:
  address: 0.0.0.0
  port: "1090"
server:
  - address: 203.0.113.9
    port: "1205"
    key: first
  - address: 203.0.113.10
    port: "1206"
    key: second
pool_size: 8
log_level: debug
`))
	require.NoError(t, err)

	require.Len(t, cfg.Servers, 2)
	assert.Equal(t, "203.0.113.10", cfg.Servers[1].Address)
	assert.Equal(t, "1090", cfg.Redir.Port)
	assert.Equal(t, 8, cfg.PoolSize)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfigMissingServers(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
redir:
  address: 127.0.0.1
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server")
}

func TestLoadConfigMissingKey(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
server:
  - address: 203.0.113.9
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key")
}

func TestLoadConfigKeyTruncated(t *testing.T) {
	long := strings.Repeat("k", 300)
	cfg, err := LoadConfig(writeConfig(t, "server:\n  - key: "+long+"\n"))
	require.NoError(t, err)

	assert.Len(t, cfg.Servers[0].Key, maxKeyLen)
	assert.Equal(t, long[:maxKeyLen], cfg.Servers[0].Key)
}

func TestLoadConfigBadPort(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
server:
  - key: secret
    port: "70000"
`))
	assert.Error(t, err)
}

func TestLoadConfigBadLogLevel(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
server:
  - key: secret
log_level: loud
`))
	assert.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
