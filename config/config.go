package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultHoldingAddress is the custody identity used when the config file
// does not name one. Deposits locked by the agreement engine are held here.
const DefaultHoldingAddress = "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"

type Config struct {
	RPCAddress         string  `toml:"RPCAddress"`
	DataDir            string  `toml:"DataDir"`
	Environment        string  `toml:"Environment"`
	HoldingAddress     string  `toml:"HoldingAddress"`
	EventHistory       int     `toml:"EventHistory"`
	RateLimitPerMinute float64 `toml:"RateLimitPerMinute"`
	RateLimitBurst     int     `toml:"RateLimitBurst"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if _, err := cfg.Holding(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = ":7540"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./pactd-data"
	}
	if strings.TrimSpace(cfg.HoldingAddress) == "" {
		cfg.HoldingAddress = DefaultHoldingAddress
	}
	if cfg.EventHistory <= 0 {
		cfg.EventHistory = 1024
	}
	if cfg.RateLimitPerMinute <= 0 {
		cfg.RateLimitPerMinute = 600
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 20
	}
}

// Holding decodes the configured holding-account address.
func (c *Config) Holding() ([20]byte, error) {
	return ParseAddress(c.HoldingAddress)
}

// ParseAddress decodes a 0x-prefixed 20-byte hex identity.
func ParseAddress(raw string) ([20]byte, error) {
	var out [20]byte
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "0x")
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return out, fmt.Errorf("config: invalid address %q: %w", raw, err)
	}
	if len(decoded) != len(out) {
		return out, fmt.Errorf("config: address must be %d bytes, got %d", len(out), len(decoded))
	}
	copy(out[:], decoded)
	return out, nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
