// Package config loads application configuration from
// ~/.multisearch/config.yaml with environment variable overrides
// (prefix MULTISEARCH). A default config file is written on first run.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	Suggest SuggestConfig `mapstructure:"suggest" yaml:"suggest"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	// Port is the listen port (default: 3000). Overridable via
	// MULTISEARCH_SERVER_PORT or the --port flag.
	Port int `mapstructure:"port" yaml:"port"`

	// DataDir holds the history store file (default: ~/.multisearch/data).
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`

	// PublicDir, when non-empty, is served as static files at /.
	PublicDir string `mapstructure:"public_dir" yaml:"public_dir"`

	// ShutdownTimeoutSec bounds graceful shutdown (default: 5).
	ShutdownTimeoutSec int `mapstructure:"shutdown_timeout_sec" yaml:"shutdown_timeout_sec"`
}

// StoreConfig controls history persistence.
type StoreConfig struct {
	// FlushDelayMS is the debounce window before a store write (default: 150).
	FlushDelayMS int `mapstructure:"flush_delay_ms" yaml:"flush_delay_ms"`
}

// SuggestConfig controls the upstream suggestion calls.
type SuggestConfig struct {
	// TimeoutMS bounds each outbound provider call (default: 1500).
	TimeoutMS int `mapstructure:"timeout_ms" yaml:"timeout_ms"`
}

// LoggingConfig controls zerolog output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error (default: info).
	Level string `mapstructure:"level" yaml:"level"`

	// File, when non-empty, receives log output instead of stderr.
	File string `mapstructure:"file" yaml:"file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               3000,
			DataDir:            "~/.multisearch/data",
			ShutdownTimeoutSec: 5,
		},
		Store: StoreConfig{
			FlushDelayMS: 150,
		},
		Suggest: SuggestConfig{
			TimeoutMS: 1500,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the default location
// (~/.multisearch/config.yaml), creating it with defaults if missing.
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home directory: %w", err)
	}
	return LoadFromPath(filepath.Join(homeDir, ".multisearch", "config.yaml"))
}

// LoadFromPath reads configuration from a specific file path and merges with
// environment variables. If the file doesn't exist it is created with
// default values.
func LoadFromPath(path string) (*Config, error) {
	path = expandPath(path)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeConfigFile(path, Default()); err != nil {
			return nil, fmt.Errorf("write default config: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Example override: MULTISEARCH_SERVER_PORT=8080
	v.SetEnvPrefix("MULTISEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyDefaults()
	cfg.Server.DataDir = expandPath(cfg.Server.DataDir)
	cfg.Logging.File = expandPath(cfg.Logging.File)

	return &cfg, nil
}

// applyDefaults fills in zero values so a sparse config file still works.
func (c *Config) applyDefaults() {
	d := Default()
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.DataDir == "" {
		c.Server.DataDir = d.Server.DataDir
	}
	if c.Server.ShutdownTimeoutSec == 0 {
		c.Server.ShutdownTimeoutSec = d.Server.ShutdownTimeoutSec
	}
	if c.Store.FlushDelayMS == 0 {
		c.Store.FlushDelayMS = d.Store.FlushDelayMS
	}
	if c.Suggest.TimeoutMS == 0 {
		c.Suggest.TimeoutMS = d.Suggest.TimeoutMS
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
}

// StorePath returns the location of the history store file.
func (c *Config) StorePath() string {
	return filepath.Join(c.Server.DataDir, "history.json")
}

func writeConfigFile(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// expandPath expands ~ to the user's home directory in a path string.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
