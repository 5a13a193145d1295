// Package gclog provides structured JSON logging for the cache pipeline.
//
// This package uses Go's standard library log/slog to write structured
// log entries to a file under the cache root, without any console output.
// Logs land at {cacheRoot}/logs/gitcache.log in JSON, one entry per line.
//
// Example usage:
//
//	logger, err := gclog.New("/home/user/.gitcache", slog.LevelInfo)
//	if err != nil {
//	    return fmt.Errorf("failed to create logger: %w", err)
//	}
//	logger.Info("tarball built", "commit", commit, "platform", platform)
package gclog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// New creates a structured JSON logger that writes to
// {cacheRoot}/logs/gitcache.log.
//
// The logger:
//   - Writes JSON formatted log entries (one per line)
//   - Creates the logs directory if it doesn't exist (permissions: 0755)
//   - Opens/creates the log file in append mode (permissions: 0644)
//   - Uses the specified level as minimum logging level
//   - Writes to file only (no console output)
func New(cacheRoot string, level slog.Level) (*slog.Logger, error) {
	logsDir := filepath.Join(cacheRoot, "logs")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	logFilePath := filepath.Join(logsDir, "gitcache.log")
	logFile, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	handler := slog.NewJSONHandler(logFile, &slog.HandlerOptions{
		Level: level,
	})

	return slog.New(handler), nil
}

// LevelFromVerbose maps the GITCACHE_VERBOSE env convention to a slog level:
// "true" enables debug-level logging, anything else defaults to info.
func LevelFromVerbose(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
