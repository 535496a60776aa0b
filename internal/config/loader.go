package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ModelConfig declares one model stack: upstream endpoint plus sampling
// identity. Alias defaults to Name and is the cache partition key.
type ModelConfig struct {
	Name        string  `json:"name" yaml:"name" toml:"name"`
	Alias       string  `json:"alias" yaml:"alias" toml:"alias"`
	Temperature float64 `json:"temperature" yaml:"temperature" toml:"temperature"`
	MaxBatch    int     `json:"max_batch" yaml:"max_batch" toml:"max_batch"`

	// Preset selects a known endpoint (fireworks, 302ai, closeai, xmcp)
	// whose API key comes from that preset's environment variable.
	// BaseURL/APIKeyEnv configure an arbitrary OpenAI-compatible endpoint
	// instead. In replication mode neither is required.
	Preset    string `json:"preset" yaml:"preset" toml:"preset"`
	BaseURL   string `json:"base_url" yaml:"base_url" toml:"base_url"`
	APIKeyEnv string `json:"api_key_env" yaml:"api_key_env" toml:"api_key_env"`
}

// CORSConfig enables cross-origin access for browser clients. Disabled by
// default; when disabled no CORS middleware is installed.
type CORSConfig struct {
	Enabled        bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" toml:"allowed_origins"`
	AllowedMethods []string `json:"allowed_methods" yaml:"allowed_methods" toml:"allowed_methods"`
	AllowedHeaders []string `json:"allowed_headers" yaml:"allowed_headers" toml:"allowed_headers"`
}

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by defaults in main.
type Config struct {
	Addr      string `json:"addr" yaml:"addr" toml:"addr"`
	CacheRoot string `json:"cache_root" yaml:"cache_root" toml:"cache_root"`
	// LogLevel: debug|info|warn|error (zerolog names).
	LogLevel string     `json:"log_level" yaml:"log_level" toml:"log_level"`
	CORS     CORSConfig `json:"cors" yaml:"cors" toml:"cors"`
	// Backend selects the cache store: "disk" (default) or "sqlite".
	Backend    string `json:"backend" yaml:"backend" toml:"backend"`
	SQLitePath string `json:"sqlite_path" yaml:"sqlite_path" toml:"sqlite_path"`
	// Replication serves only recorded samples and never queries upstream.
	Replication bool `json:"replication" yaml:"replication" toml:"replication"`
	// DefaultModel is the id used when a request omits the model.
	DefaultModel string        `json:"default_model" yaml:"default_model" toml:"default_model"`
	Models       []ModelConfig `json:"models" yaml:"models" toml:"models"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// ApplyDefaults fills unspecified fields.
func (c Config) ApplyDefaults() Config {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.CacheRoot == "" {
		c.CacheRoot = "~/.cache/sampled"
	}
	if c.Backend == "" {
		c.Backend = "disk"
	}
	if c.SQLitePath == "" {
		c.SQLitePath = filepath.Join(c.CacheRoot, "samples.db")
	}
	if c.DefaultModel == "" && len(c.Models) > 0 {
		id := c.Models[0].Alias
		if id == "" {
			id = c.Models[0].Name
		}
		c.DefaultModel = id
	}
	return c
}

// Validate rejects configurations that cannot produce a working stack.
func (c Config) Validate() error {
	if c.Backend != "disk" && c.Backend != "sqlite" {
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if len(c.Models) == 0 {
		return fmt.Errorf("no models configured")
	}
	seen := make(map[string]bool, len(c.Models))
	for _, m := range c.Models {
		if m.Name == "" {
			return fmt.Errorf("model with empty name")
		}
		id := m.Alias
		if id == "" {
			id = m.Name
		}
		if seen[id] {
			return fmt.Errorf("duplicate model id %q", id)
		}
		seen[id] = true
		if !c.Replication && m.Preset == "" && m.BaseURL == "" {
			return fmt.Errorf("model %q: preset or base_url required outside replication mode", id)
		}
	}
	return nil
}
