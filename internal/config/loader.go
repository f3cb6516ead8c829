package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default returns the baseline configuration applied under a loaded file.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:     "stackd",
			LogLevel: "INFO",
		},
		Workspaces: WorkspacesConfig{
			ContainerDir: "/var/lib/stackd/workspaces",
			Binary:       "terraform",
		},
		API: APIConfig{
			Enabled: false,
			Listen:  "127.0.0.1:8787",
		},
		History: HistoryConfig{
			Path: "/var/lib/stackd/stackd.db",
		},
	}
}

// Load reads the YAML config at path over the defaults and validates the
// result.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

// Validate checks required fields and value shapes.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Workspaces.ContainerDir) == "" {
		return fmt.Errorf("workspaces.container_dir is required")
	}
	if strings.TrimSpace(c.Workspaces.Binary) == "" {
		return fmt.Errorf("workspaces.binary is required")
	}

	switch strings.ToUpper(c.Service.LogLevel) {
	case "", "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("service.log_level %q is not one of DEBUG, INFO, WARN, ERROR", c.Service.LogLevel)
	}

	if c.API.Enabled {
		if strings.TrimSpace(c.API.Listen) == "" {
			return fmt.Errorf("api.listen is required when api.enabled is true")
		}
		if strings.TrimSpace(c.API.APIKey) == "" {
			return fmt.Errorf("api.api_key is required when api.enabled is true")
		}
	}
	return nil
}
