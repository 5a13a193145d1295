package gcconfig

import (
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileUsesDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.MaxCacheSize != DefaultMaxCacheSize {
		t.Errorf("MaxCacheSize = %q, want %q", cfg.MaxCacheSize, DefaultMaxCacheSize)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := Save(path, Config{MaxCacheSize: "500MB"}); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.MaxCacheSize != "500MB" {
		t.Errorf("MaxCacheSize = %q, want 500MB", cfg.MaxCacheSize)
	}
}
