package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osreport/internal/api"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("API_TOKEN", "")

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.API.URL)
	assert.Empty(t, cfg.API.Token)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "osreport.log", cfg.Log.File)
	assert.Equal(t, time.Second, cfg.Refresh.ReloadDelay)
	assert.Equal(t, ":8080", cfg.Demo.Addr)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "osreport.yaml", `
api:
  url: https://inventory.example.com
  token: from-file
  timeout: 5s
log:
  level: debug
refresh:
  reload_delay: 250ms
`)
	t.Setenv("OSREPORT_API_URL", "https://override.example.com")
	t.Setenv("API_TOKEN", "")

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, "https://override.example.com", cfg.API.URL)
	assert.Equal(t, "from-file", cfg.API.Token)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 250*time.Millisecond, cfg.Refresh.ReloadDelay)
}

func TestLoad_APITokenEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("API_TOKEN", "legacy")

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, "legacy", cfg.API.Token)
	assert.Equal(t, "legacy", cfg.Demo.Token)
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))

	path := writeFile(t, dir, ".env", "OSREPORT_TEST_DOTENV=yes\n")
	t.Setenv("OSREPORT_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("OSREPORT_TEST_DOTENV"))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "yes", os.Getenv("OSREPORT_TEST_DOTENV"))
}

func TestTokenChanged(t *testing.T) {
	v := New()
	v.Set("api.token", "new")
	creds := api.NewCredentials("old")

	tokenChanged(v, creds, nil, fsnotify.Event{Name: "osreport.yaml", Op: fsnotify.Chmod})
	assert.Equal(t, "old", creds.Token())

	tokenChanged(v, creds, nil, fsnotify.Event{Name: "osreport.yaml", Op: fsnotify.Write})
	assert.Equal(t, "new", creds.Token())
}
