package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configEnv      = "NOVELCTL_CONFIG"
	configFileName = ".novelctl.yaml"
	defaultServer  = "http://localhost:8080"
)

// Config is persisted between invocations. The token is the bearer JWT
// issued by login.
type Config struct {
	Server        string        `yaml:"server"`
	Username      string        `yaml:"username,omitempty"`
	Token         string        `yaml:"token,omitempty"`
	TokenExpires  time.Time     `yaml:"token_expires,omitempty"`
	Timeout       time.Duration `yaml:"timeout,omitempty"`
	AutosaveDelay time.Duration `yaml:"autosave_delay,omitempty"`
}

func defaultConfig() Config {
	return Config{
		Server:        defaultServer,
		Timeout:       30 * time.Second,
		AutosaveDelay: 2 * time.Second,
	}
}

// configPath resolves the config file: explicit flag, then NOVELCTL_CONFIG,
// then the home directory.
func configPath(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if env := os.Getenv(configEnv); env != "" {
		return env, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, configFileName), nil
}

// loadConfig reads path. A missing file yields the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Server == "" {
		cfg.Server = defaultServer
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.AutosaveDelay <= 0 {
		cfg.AutosaveDelay = 2 * time.Second
	}
	return cfg, nil
}

// saveConfig writes cfg with owner-only permissions since it holds a token.
func saveConfig(path string, cfg Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c Config) loggedIn() bool {
	if c.Token == "" {
		return false
	}
	return c.TokenExpires.IsZero() || time.Now().Before(c.TokenExpires)
}
