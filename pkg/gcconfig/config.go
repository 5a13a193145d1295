// Package gcconfig persists the cache-size setting at
// <cacheRoot>/config.json, the only piece of on-disk configuration this
// codebase owns directly; everything else (API URL, token, verbosity)
// flows through the CLI layer's viper binding.
package gcconfig

import (
	"encoding/json"
	"os"
)

// DefaultMaxCacheSize is applied when config.json is absent.
const DefaultMaxCacheSize = "1GB"

// Config is the persisted shape of config.json.
type Config struct {
	MaxCacheSize string `json:"maxCacheSize"`
}

// Load reads path, returning DefaultMaxCacheSize when the file is absent.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{MaxCacheSize: DefaultMaxCacheSize}, nil
		}
		return Config{}, err
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, err
	}
	if cfg.MaxCacheSize == "" {
		cfg.MaxCacheSize = DefaultMaxCacheSize
	}
	return cfg, nil
}

// Save persists cfg to path.
func Save(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
