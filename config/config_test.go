package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fleetrun.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoader_Load(t *testing.T) {
	path := writeConfig(t, `
user: ops
port: 2222
keyFile: /home/ops/.ssh/id_ed25519
connectTimeoutSeconds: 5
execTimeoutSeconds: 120
logDir: /var/log/fleetrun
`)

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "ops", cfg.User)
	assert.Equal(t, 2222, cfg.Port)
	assert.Equal(t, "/home/ops/.ssh/id_ed25519", cfg.KeyFile)
	assert.Equal(t, 5*time.Second, cfg.ConnectTimeout())
	assert.Equal(t, 120*time.Second, cfg.ExecTimeout())
	assert.Equal(t, "/var/log/fleetrun", cfg.LogDir)
}

func TestLoader_DefaultsApplied(t *testing.T) {
	path := writeConfig(t, "user: ops\n")

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 22, cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout())
	assert.Equal(t, 60*time.Second, cfg.ExecTimeout())
}

func TestLoader_MissingFile(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "absent.yaml")).Load()
	assert.Error(t, err)
}

func TestLoader_EmptyFile(t *testing.T) {
	path := writeConfig(t, "")
	_, err := NewLoader(path).Load()
	assert.Error(t, err)
}

func TestLoader_InvalidPort(t *testing.T) {
	path := writeConfig(t, "port: 70000\n")
	_, err := NewLoader(path).Load()
	assert.Error(t, err)
}

func TestLoader_BadYAML(t *testing.T) {
	path := writeConfig(t, "user: [unterminated\n")
	_, err := NewLoader(path).Load()
	assert.Error(t, err)
}

func TestLoadOrDefault_NoPath(t *testing.T) {
	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, 22, cfg.Port)
	assert.Equal(t, "", cfg.User)
}
