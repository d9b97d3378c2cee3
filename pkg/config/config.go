// Package config loads the emenda tool configuration from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/coolbeans/emenda/pkg/emenda"
)

// Config holds all emenda configuration.
type Config struct {
	// Parlamentares configures the legislator directory.
	Parlamentares ParlamentaresConfig `yaml:"parlamentares"`

	// Store configures amendment persistence.
	Store StoreConfig `yaml:"store"`

	// Sessao configures editing sessions.
	Sessao SessaoConfig `yaml:"sessao"`

	Logging LoggingConfig `yaml:"logging"`
}

// ParlamentaresConfig configures the legislator directory client.
type ParlamentaresConfig struct {
	URL       string `yaml:"url"`
	Timeout   string `yaml:"timeout"`
	Intervalo string `yaml:"intervalo"` // minimum interval between requests
	TTL       string `yaml:"ttl"`       // how long a fetched list is reused
}

// StoreConfig configures the SQLite store.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// SessaoConfig configures editing sessions.
type SessaoConfig struct {
	Modo            string `yaml:"modo"`
	LimiteHistorico int    `yaml:"limite_historico"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Debug  bool   `yaml:"debug"`
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Parlamentares: ParlamentaresConfig{
			URL:       "https://emendas-api.herokuapp.com/parlamentares",
			Timeout:   "30s",
			Intervalo: "500ms",
			TTL:       "12h",
		},
		Store: StoreConfig{
			Path: "emendas.db",
		},
		Sessao: SessaoConfig{
			Modo:            string(emenda.ModoEmenda),
			LimiteHistorico: 100,
		},
		Logging: LoggingConfig{
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if url := os.Getenv("EMENDA_PARLAMENTARES_URL"); url != "" {
		c.Parlamentares.URL = url
	}
	if path := os.Getenv("EMENDA_DB"); path != "" {
		c.Store.Path = path
	}
	if os.Getenv("EMENDA_DEBUG") != "" {
		c.Logging.Debug = true
	}
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if _, err := emenda.ParseModoEdicao(c.Sessao.Modo); err != nil {
		return fmt.Errorf("invalid sessao.modo: %w", err)
	}
	for name, value := range map[string]string{
		"parlamentares.timeout":   c.Parlamentares.Timeout,
		"parlamentares.intervalo": c.Parlamentares.Intervalo,
		"parlamentares.ttl":       c.Parlamentares.TTL,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, value, err)
		}
	}
	if c.Logging.Format != "" && c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("invalid logging.format %q (valid: json, console)", c.Logging.Format)
	}
	return nil
}

// GetTimeout returns the directory request timeout.
func (c *Config) GetTimeout() time.Duration {
	return duration(c.Parlamentares.Timeout, 30*time.Second)
}

// GetIntervalo returns the minimum interval between directory requests.
func (c *Config) GetIntervalo() time.Duration {
	return duration(c.Parlamentares.Intervalo, 500*time.Millisecond)
}

// GetTTL returns how long the legislator list is cached.
func (c *Config) GetTTL() time.Duration {
	return duration(c.Parlamentares.TTL, 12*time.Hour)
}

func duration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
