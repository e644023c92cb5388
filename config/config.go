package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete papertrade configuration
type Config struct {
	Server ServerConfig `json:"server" yaml:"server"`
	Store  StoreConfig  `json:"store" yaml:"store"`
	Market MarketConfig `json:"market" yaml:"market"`
}

// ServerConfig contains HTTP server parameters
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// StoreConfig contains ledger store parameters
type StoreConfig struct {
	Path string `json:"path" yaml:"path"`
}

// MarketConfig contains market-data client parameters
type MarketConfig struct {
	BaseURL      string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	QuoteTimeout string `json:"quote_timeout,omitempty" yaml:"quote_timeout,omitempty"` // e.g., "10s", "1m"
}

// ParseQuoteTimeout converts the quote timeout string to time.Duration
func (m MarketConfig) ParseQuoteTimeout() (time.Duration, error) {
	if m.QuoteTimeout == "" {
		return 0, nil
	}
	return time.ParseDuration(m.QuoteTimeout)
}

// LoadFromFile loads configuration from a file (JSON or YAML based on extension)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	// Determine format by extension
	if (len(path) > 5 && path[len(path)-5:] == ".yaml") || (len(path) > 4 && path[len(path)-4:] == ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	if c.Market.QuoteTimeout != "" {
		d, err := c.Market.ParseQuoteTimeout()
		if err != nil {
			return fmt.Errorf("market.quote_timeout: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("market.quote_timeout must be positive")
		}
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8000",
		},
		Store: StoreConfig{
			Path: "./papertrade.db",
		},
		Market: MarketConfig{
			QuoteTimeout: "10s",
		},
	}
}
