package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arbor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
log_format: json
definitions: ./defs
cache:
  backend: redis
  address: redis:6379
  db: 2
  ttl: 2h
  pii_identifiers: ['^ssn$']
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "./defs", cfg.Definitions)
	assert.Equal(t, ":8080", cfg.HTTPAddr, "unset keys keep their default")
	assert.Equal(t, BackendRedis, cfg.Cache.Backend)
	assert.Equal(t, "redis:6379", cfg.Cache.Address)
	assert.Equal(t, 2, cfg.Cache.DB)
	assert.Equal(t, 2*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, []string{"^ssn$"}, cfg.Cache.PIIIdentifiers)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "cache:\n  backend: memory\n")
	t.Setenv("ARBOR_CACHE_BACKEND", "sqlite")
	t.Setenv("ARBOR_CACHE_PATH", "results.db")
	t.Setenv("ARBOR_CACHE_TTL", "90m")
	t.Setenv("ARBOR_HTTP_ADDR", "127.0.0.1:9000")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Cache.Backend)
	assert.Equal(t, "results.db", cfg.Cache.Path)
	assert.Equal(t, 90*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTPAddr)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
		want    string
	}{
		{name: "malformed", content: "log_level: [", want: "failed to parse"},
		{name: "backend", content: "cache:\n  backend: etcd\n", want: "invalid cache.backend"},
		{name: "level", content: "log_level: loud\n", want: "invalid log level"},
		{name: "format", content: "log_format: xml\n", want: "invalid log_format"},
		{name: "loader", content: "loader: git\n", want: "invalid loader"},
		{name: "ttl", content: "cache:\n  ttl: -1s\n", want: "cache.ttl"},
		{name: "key not hex", content: "cache:\n  encryption_key: zz\n", want: "not hex"},
		{name: "short key", content: "cache:\n  encryption_key: abcd\n", want: "32 bytes"},
		{name: "env ttl", env: map[string]string{"ARBOR_CACHE_TTL": "soon"}, want: "ARBOR_CACHE_TTL"},
		{name: "env db", env: map[string]string{"ARBOR_CACHE_DB": "one"}, want: "ARBOR_CACHE_DB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCacheConfig_Key(t *testing.T) {
	c := CacheConfig{}
	key, err := c.Key()
	require.NoError(t, err)
	assert.Nil(t, key)

	c.EncryptionKey = strings.Repeat("ab", 32)
	key, err = c.Key()
	require.NoError(t, err)
	assert.Len(t, key, 32)
}
