// Package config loads the spark-prompt configuration from config.yaml in the
// data directory, with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// FileName is the configuration file inside the data directory
	FileName = "config.yaml"

	EnvDir    = "SPARK_PROMPT_DIR"
	EnvLocale = "SPARK_PROMPT_LOCALE"
	EnvDebug  = "SPARK_PROMPT_DEBUG"

	DefaultAssetCacheSize = 64
	DefaultAssetTimeout   = 15 * time.Second
	DefaultServerAddr     = "127.0.0.1:8080"
)

// ProviderConfig configures the image generation provider
type ProviderConfig struct {
	Name      string        `yaml:"name,omitempty"`
	Endpoint  string        `yaml:"endpoint,omitempty"`
	APIKey    string        `yaml:"api_key,omitempty"`
	APIKeyEnv string        `yaml:"api_key_env,omitempty"`
	Model     string        `yaml:"model,omitempty"`
	Size      string        `yaml:"size,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty"`
}

// Key returns the API key, reading APIKeyEnv when no literal key is set
func (p ProviderConfig) Key() string {
	if p.APIKey != "" {
		return p.APIKey
	}
	if p.APIKeyEnv != "" {
		return os.Getenv(p.APIKeyEnv)
	}
	return ""
}

// Configured reports whether a provider endpoint is set
func (p ProviderConfig) Configured() bool {
	return p.Endpoint != ""
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// Pack records a bank pack imported into the library
type Pack struct {
	Name       string    `yaml:"name"`
	Source     string    `yaml:"source"`
	Keys       []string  `yaml:"keys,omitempty"`
	ImportTime time.Time `yaml:"import_time"`
}

// Config is the resolved configuration
type Config struct {
	Locale         string         `yaml:"locale,omitempty"`
	Debug          bool           `yaml:"debug,omitempty"`
	AssetCacheSize int            `yaml:"asset_cache_size,omitempty"`
	AssetTimeout   time.Duration  `yaml:"asset_timeout,omitempty"`
	Provider       ProviderConfig `yaml:"provider,omitempty"`
	Server         ServerConfig   `yaml:"server,omitempty"`
	Packs          []Pack         `yaml:"packs,omitempty"`

	dataDir string
}

// DataDir returns the library root
func (c *Config) DataDir() string {
	return c.dataDir
}

// Path returns the location of config.yaml
func (c *Config) Path() string {
	return filepath.Join(c.dataDir, FileName)
}

// ResolveDataDir picks the library root: explicit dir, then SPARK_PROMPT_DIR,
// then ~/.spark-prompt.
func ResolveDataDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	if env := os.Getenv(EnvDir); env != "" {
		return env, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".spark-prompt"), nil
}

// Load reads config.yaml from the data directory. A missing file yields the
// defaults. Environment overrides are applied last.
func Load(dir string) (*Config, error) {
	dataDir, err := ResolveDataDir(dir)
	if err != nil {
		return nil, err
	}

	cfg := &Config{dataDir: dataDir}

	data, err := os.ReadFile(cfg.Path())
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", cfg.Path(), err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read %s: %w", cfg.Path(), err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvLocale); v != "" {
		c.Locale = v
	}
	if v := os.Getenv(EnvDebug); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", EnvDebug, v, err)
		}
		c.Debug = debug
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.AssetCacheSize <= 0 {
		c.AssetCacheSize = DefaultAssetCacheSize
	}
	if c.AssetTimeout <= 0 {
		c.AssetTimeout = DefaultAssetTimeout
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if c.Provider.Timeout <= 0 {
		c.Provider.Timeout = 2 * time.Minute
	}
}

// Save writes the configuration to config.yaml
func (c *Config) Save() error {
	if err := os.MkdirAll(c.dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	return os.WriteFile(c.Path(), data, 0644)
}

// RecordPack adds or replaces the record of an imported bank pack
func (c *Config) RecordPack(pack Pack) {
	if pack.ImportTime.IsZero() {
		pack.ImportTime = time.Now()
	}
	for i, p := range c.Packs {
		if p.Name == pack.Name {
			c.Packs[i] = pack
			return
		}
	}
	c.Packs = append(c.Packs, pack)
}

// GetPack returns the record of an imported pack
func (c *Config) GetPack(name string) (Pack, bool) {
	for _, p := range c.Packs {
		if p.Name == name {
			return p, true
		}
	}
	return Pack{}, false
}
