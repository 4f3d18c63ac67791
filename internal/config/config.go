package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.chatflow/config.toml.
type Config struct {
	Greeting       string `toml:"greeting"`
	ReplyDelayMs   int    `toml:"reply_delay_ms"`
	PersistDelayMs int    `toml:"persist_delay_ms"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ReplyDelayMs:   1500,
		PersistDelayMs: 100,
	}
}

// ReplyDelay returns the simulated assistant latency.
func (c *Config) ReplyDelay() time.Duration {
	return time.Duration(c.ReplyDelayMs) * time.Millisecond
}

// PersistDelay returns the delay before a post-send history write.
func (c *Config) PersistDelay() time.Duration {
	return time.Duration(c.PersistDelayMs) * time.Millisecond
}

// Load reads config from the given path. Returns zero config and error if file missing.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
