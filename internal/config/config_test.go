package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_FillsDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  host: db
  name: reid
  user: reid
  password: secret
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.Equal(t, 20, cfg.DB.MaxConns)
	assert.Equal(t, 3, cfg.ReID.StableThreshold)
	assert.Equal(t, 0.5, cfg.ReID.FaceSimilarityThreshold)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_ExplicitValuesOverrideDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
reid:
  stable_threshold: 7
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 7, cfg.ReID.StableThreshold)
}

func TestLoad_MissingFileErrors(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
`)
	t.Setenv("REID_SERVER_PORT", "7777")
	t.Setenv("REID_STABLE_THRESHOLD", "9")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, 9, cfg.ReID.StableThreshold)
}

func TestDBConfig_DSN(t *testing.T) {
	d := DBConfig{Host: "db", Port: 5432, Name: "reid", User: "u", Password: "p"}
	assert.Equal(t, "postgres://u:p@db:5432/reid?sslmode=disable", d.DSN())
}
