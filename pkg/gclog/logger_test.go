package gclog

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestNew_CreatesLogFile(t *testing.T) {
	dir := t.TempDir()

	logger, err := New(dir, slog.LevelInfo)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	logger.Info("build started", "commit", "abc123")

	logPath := filepath.Join(dir, "logs", "gitcache.log")
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("expected log file at %s: %v", logPath, err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty log file")
	}
}

func TestLevelFromVerbose(t *testing.T) {
	if LevelFromVerbose(true) != slog.LevelDebug {
		t.Fatalf("expected debug level when verbose")
	}
	if LevelFromVerbose(false) != slog.LevelInfo {
		t.Fatalf("expected info level when not verbose")
	}
}
