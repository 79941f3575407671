package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", "")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.Timeout.Read)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "inventario.db", cfg.Database.DSN)
	assert.Equal(t, 3*time.Second, cfg.Database.QueryTimeout)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, 30, cfg.RateLimit.Limit)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
}

func TestLoadMissingFilesAreIgnored(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "config.yaml"), filepath.Join(dir, ".env"))
	require.NoError(t, err)
}

func TestLoadPrecedence(t *testing.T) {
	yamlFile := writeFile(t, "config.yaml", `
server:
  port: 9000
database:
  driver: memory
cache:
  enabled: false
log:
  level: debug
`)
	envFile := writeFile(t, ".env", "INVENTORY_SERVER_PORT=9100\nINVENTORY_LOG_LEVEL=warn\nUNRELATED=1\n")
	t.Setenv("INVENTORY_SERVER_PORT", "9200")
	t.Setenv("INVENTORY_RATELIMIT_WINDOW", "30s")

	cfg, err := Load(yamlFile, envFile)
	require.NoError(t, err)

	assert.Equal(t, 9200, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"INVENTORY_DATABASE_DRIVER": "oracle"}},
		{"postgres without url", map[string]string{
			"INVENTORY_DATABASE_DRIVER": "postgres",
			"INVENTORY_DATABASE_DSN":    "host=localhost dbname=inventario",
		}},
		{"sqlite without file", map[string]string{"INVENTORY_DATABASE_DSN": " "}},
		{"metrics without token", map[string]string{"INVENTORY_METRICS_ENABLED": "true"}},
		{"bad log level", map[string]string{"INVENTORY_LOG_LEVEL": "loud"}},
		{"negative rate limit", map[string]string{"INVENTORY_RATELIMIT_LIMIT": "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("", "")
			require.Error(t, err)
		})
	}
}

func TestStringMasksCredentials(t *testing.T) {
	t.Setenv("INVENTORY_DATABASE_DRIVER", "postgres")
	t.Setenv("INVENTORY_DATABASE_DSN", "postgres://user:password@db:5432/inventario")

	cfg, err := Load("", "")
	require.NoError(t, err)

	s := cfg.String()
	assert.Contains(t, s, "****@db:5432/inventario")
	assert.NotContains(t, s, "password")
}

func TestKeyTransformer(t *testing.T) {
	assert.Equal(t, "server.timeout.readheader", keyTransformer("INVENTORY_SERVER_TIMEOUT_READHEADER"))
	assert.Equal(t, "database.dsn", keyTransformer("inventory_database_dsn"))
}
