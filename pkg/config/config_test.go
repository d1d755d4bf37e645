package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.Equal(t, "memory", cfg.Documents.Type)
	assert.Equal(t, "openai", cfg.Analysis.Provider)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 24, cfg.Auth.TokenExpiration)
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"server": {"port": 9090},
		"storage": {"type": "postgres", "postgres": {"host": "db.internal", "password": "hunter2"}},
		"analysis": {"provider": "anthropic", "model": "claude-sonnet-4-20250514"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host, "unset fields keep their defaults")
	assert.Equal(t, "postgres", cfg.Storage.Type)
	assert.Equal(t, "db.internal", cfg.Storage.Postgres.Host)
	assert.Equal(t, "anthropic", cfg.Analysis.Provider)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadConfigInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ARCHLENS_PORT", "7070")
	t.Setenv("ARCHLENS_STORAGE_TYPE", "dynamodb")
	t.Setenv("ARCHLENS_LLM_API_KEY", "sk-test")
	t.Setenv("ARCHLENS_JWT_SECRET", "env-secret")
	t.Setenv("ARCHLENS_TOKEN_EXPIRATION", "not-a-number")

	cfg := FromEnv()

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "dynamodb", cfg.Storage.Type)
	assert.Equal(t, "sk-test", cfg.Analysis.APIKey)
	assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 24, cfg.Auth.TokenExpiration, "unparsable integers keep the default")
}

func TestSaveAndReloadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := DefaultConfig()
	cfg.Server.Port = 4242
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 4242, loaded.Server.Port)
}

func TestPostgresConnectionString(t *testing.T) {
	pg := PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		Database: "archlens",
		User:     "archlens",
		Password: "secret",
		SSLMode:  "disable",
	}

	assert.Equal(t, "host=localhost port=5432 dbname=archlens user=archlens password=secret sslmode=disable", pg.ConnectionString())
}

func TestPostgresConnectionStringDefaults(t *testing.T) {
	pg := PostgresConfig{
		Host:     "db.internal",
		Database: "archlens",
		User:     "archlens",
		Password: "secret",
	}

	assert.Equal(t, "host=db.internal port=5432 dbname=archlens user=archlens password=secret sslmode=disable", pg.ConnectionString())
}
