// Package config loads and validates the stackd configuration file.
package config

// Config represents the complete stackd configuration.
type Config struct {
	Service    ServiceConfig    `yaml:"service"`
	Workspaces WorkspacesConfig `yaml:"workspaces"`
	API        APIConfig        `yaml:"api,omitempty"`
	History    HistoryConfig    `yaml:"history,omitempty"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name     string `yaml:"name"`
	LogLevel string `yaml:"log_level"`
}

// WorkspacesConfig defines where workspaces live and which binary drives
// them.
type WorkspacesConfig struct {
	ContainerDir string `yaml:"container_dir"`
	Binary       string `yaml:"binary"`
}

// APIConfig defines HTTP API server settings.
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	// APIKey is the bearer token protecting mutating and query endpoints.
	APIKey string `yaml:"api_key"`
}

// HistoryConfig defines the operation audit log location. An empty path
// disables history recording.
type HistoryConfig struct {
	Path string `yaml:"path"`
}
