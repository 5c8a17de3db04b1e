// Package config loads the reload channel settings.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/omochice/toy-hot-reload/internal/client"
)

const (
	// DefaultAddr is the fixed liveness server address.
	DefaultAddr = ":8000"

	// DefaultAssetsDir is read in live assets mode.
	DefaultAssetsDir = "internal/assets/static"

	DefaultLogLevel = "info"
)

// Config holds settings for both binaries.
type Config struct {
	Server   ServerConfig `yaml:"server"`
	Client   ClientConfig `yaml:"client"`
	LogLevel string       `yaml:"log_level"`
}

// ServerConfig configures the liveness server.
type ServerConfig struct {
	Addr       string `yaml:"addr"`
	LiveAssets bool   `yaml:"live_assets"`
	AssetsDir  string `yaml:"assets_dir"`
}

// ClientConfig configures the terminal liveness client.
type ClientConfig struct {
	URL         string        `yaml:"url"`
	ReloadDelay time.Duration `yaml:"reload_delay"`
	Exec        string        `yaml:"exec"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:      DefaultAddr,
			AssetsDir: DefaultAssetsDir,
		},
		Client: ClientConfig{
			URL:         client.DefaultURL,
			ReloadDelay: client.DefaultReloadDelay,
		},
		LogLevel: DefaultLogLevel,
	}
}

// Load reads the YAML file at path over the defaults.
// An empty path yields Default().
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
// Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("config: server.addr is empty")
	}
	u, err := url.Parse(c.Client.URL)
	if err != nil {
		return fmt.Errorf("config: client.url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("config: client.url scheme %q, want ws or wss", u.Scheme)
	}
	if c.Client.ReloadDelay < 0 {
		return fmt.Errorf("config: client.reload_delay %s is negative", c.Client.ReloadDelay)
	}
	return nil
}
