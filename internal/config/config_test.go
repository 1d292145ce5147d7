package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")
	path := writeConfig(t, `
database:
  url: postgres://localhost/meno
auth:
  jwt_secret: abc
stories:
  sweep_interval: 1m
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres://localhost/meno", cfg.Database.DSN)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, time.Minute, cfg.Stories.SweepInterval)
	assert.Equal(t, "/media/images", cfg.Media.URLPrefix)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/meno")
	t.Setenv("JWT_SECRET", "from-env")
	path := writeConfig(t, "server:\n  port: 9000\n")
	t.Setenv("MENO_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "postgres://env/meno", cfg.Database.DSN)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
}

func TestLoadErrors(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "server: [not a map"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "database:\n  url: x\n"))
	assert.ErrorContains(t, err, "jwt_secret")
}
