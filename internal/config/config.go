// Package config provides the chain indexer's YAML configuration: node RPC
// endpoint, store backend, and follower/supervisor tuning.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// RPCConfig holds connection settings for the node RPC client.
type RPCConfig struct {
	// URL is the node's JSON-RPC endpoint.
	URL string `yaml:"url"`

	// TimeoutSeconds bounds each RPC call.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// StoreConfig holds the storage backend selection.
type StoreConfig struct {
	// Driver selects the SQL engine: "sqlite" or "postgres".
	Driver string `yaml:"driver"`

	// DataDir is the directory holding the SQLite database file.
	DataDir string `yaml:"data_dir"`

	// DSN is the Postgres connection string, used only when Driver is "postgres".
	DSN string `yaml:"dsn"`
}

// FollowerConfig holds the chain follower's scheduling parameters.
type FollowerConfig struct {
	// PollIntervalSeconds is the delay before retrying when no next block exists.
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`

	// KeepNum is the number of blocks retained below tip before pruning eligibility.
	KeepNum uint64 `yaml:"keep_num"`

	// PruneInterval is the append-triggered prune cadence, in block-number units.
	PruneInterval uint64 `yaml:"prune_interval"`
}

// SupervisorConfig holds the liveness watchdog's tick interval.
type SupervisorConfig struct {
	// LivenessCheckIntervalSeconds is the supervisor's tick period.
	LivenessCheckIntervalSeconds int `yaml:"liveness_check_interval_seconds"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the log level (debug, info, warn, error).
	Level string `yaml:"level"`
}

// Config holds all configuration for chainindexd.
type Config struct {
	RPC        RPCConfig        `yaml:"rpc"`
	Store      StoreConfig      `yaml:"store"`
	Follower   FollowerConfig   `yaml:"follower"`
	Supervisor SupervisorConfig `yaml:"supervisor"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// DefaultConfig returns a Config with the defaults named in the follower's
// external-interface contract.
func DefaultConfig() *Config {
	return &Config{
		RPC: RPCConfig{
			URL:            "http://127.0.0.1:8114",
			TimeoutSeconds: 10,
		},
		Store: StoreConfig{
			Driver:  "sqlite",
			DataDir: "~/.chainindex",
		},
		Follower: FollowerConfig{
			PollIntervalSeconds: 2,
			KeepNum:             10000,
			PruneInterval:       2000,
		},
		Supervisor: SupervisorConfig{
			LivenessCheckIntervalSeconds: 5,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// ConfigFileName is the default config file name.
const ConfigFileName = "config.yaml"

// LoadConfig loads configuration from a YAML file under dataDir. If the
// file doesn't exist, it creates one with default values.
func LoadConfig(dataDir string) (*Config, error) {
	expandedDir := expandPath(dataDir)
	configPath := filepath.Join(expandedDir, ConfigFileName)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.Store.DataDir = dataDir

		if err := cfg.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# chainindexd configuration\n# Generated automatically on first run\n\n")
	data = append(header, data...)

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ConfigPath returns the full path to the config file for the given data directory.
func ConfigPath(dataDir string) string {
	return filepath.Join(expandPath(dataDir), ConfigFileName)
}

func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[1:])
	}
	return path
}
