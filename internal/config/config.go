// Package config loads cuentas.yaml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// FileName is the default config file name.
const FileName = "cuentas.yaml"

// Environment variables that override the file.
const (
	EnvDatabasePath = "DATABASE_PATH"
	EnvPort         = "APP_PORT"
)

// Config represents the top-level cuentas.yaml configuration.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Server     ServerConfig     `yaml:"server"`
	Import     ImportConfig     `yaml:"import"`
	Similarity SimilarityConfig `yaml:"similarity"`
	Log        LogConfig        `yaml:"log"`
}

// DatabaseConfig locates the SQLite file.
type DatabaseConfig struct {
	Path string `yaml:"path"` // relative paths resolve against the config file's directory
}

// ServerConfig is the HTTP listen address.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// ImportConfig limits statement uploads.
type ImportConfig struct {
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

// SimilarityConfig holds the default score threshold.
type SimilarityConfig struct {
	Threshold float64 `yaml:"threshold"`
}

// LogConfig selects log level and output format (console or json).
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config with the built-in defaults.
func Default() *Config {
	return &Config{
		Database:   DatabaseConfig{Path: "movimientos.db"},
		Server:     ServerConfig{Host: "127.0.0.1", Port: 8000},
		Import:     ImportConfig{MaxUploadBytes: 10 << 20},
		Similarity: SimilarityConfig{Threshold: 0.8},
		Log:        LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads a cuentas.yaml file from disk. Keys missing from the file keep
// their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// ApplyEnv overrides the database path and port from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if p := getenv(EnvDatabasePath); p != "" {
		c.Database.Path = p
	}
	if p := getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("invalid %s %q", EnvPort, p)
		}
		c.Server.Port = port
	}
	return nil
}

// DatabasePath returns the database file path, resolving a relative path
// against baseDir.
func (c *Config) DatabasePath(baseDir string) string {
	if filepath.IsAbs(c.Database.Path) {
		return c.Database.Path
	}
	return filepath.Join(baseDir, c.Database.Path)
}

// Addr returns the host:port the server listens on.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}
