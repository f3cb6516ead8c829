package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stackd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
workspaces:
  container_dir: /srv/stacks
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/stacks", cfg.Workspaces.ContainerDir)
	assert.Equal(t, "terraform", cfg.Workspaces.Binary)
	assert.Equal(t, "INFO", cfg.Service.LogLevel)
	assert.Equal(t, "127.0.0.1:8787", cfg.API.Listen)
	assert.False(t, cfg.API.Enabled)
}

func TestLoadFullConfig(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
service:
  name: stackd-test
  log_level: DEBUG
workspaces:
  container_dir: /srv/stacks
  binary: /usr/local/bin/tofu
api:
  enabled: true
  listen: 0.0.0.0:9000
  api_key: secret
history:
  path: /srv/stackd.db
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "stackd-test", cfg.Service.Name)
	assert.Equal(t, "/usr/local/bin/tofu", cfg.Workspaces.Binary)
	assert.True(t, cfg.API.Enabled)
	assert.Equal(t, "0.0.0.0:9000", cfg.API.Listen)
	assert.Equal(t, "/srv/stackd.db", cfg.History.Path)
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing container dir",
			mutate:  func(c *Config) { c.Workspaces.ContainerDir = "" },
			wantErr: "container_dir",
		},
		{
			name:    "missing binary",
			mutate:  func(c *Config) { c.Workspaces.Binary = " " },
			wantErr: "binary",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Service.LogLevel = "TRACE" },
			wantErr: "log_level",
		},
		{
			name: "api enabled without key",
			mutate: func(c *Config) {
				c.API.Enabled = true
				c.API.APIKey = ""
			},
			wantErr: "api_key",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
