// Package logging installs the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/javanhut/RavenDrop/config"
)

// LevelEnv overrides the configured level when set.
const LevelEnv = "RAVENDROP_LOG_LEVEL"

// Init builds a logger from cfg, installs it with slog.SetDefault and
// returns a function that closes the sink.
func Init(cfg config.LogConfig) (func() error, error) {
	logger, closeFn, err := New(cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return closeFn, nil
}

// New is Init without installing the logger.
func New(cfg config.LogConfig) (*slog.Logger, func() error, error) {
	level := cfg.Level
	if env := os.Getenv(LevelEnv); env != "" {
		level = env
	}
	w, closeFn, err := resolveWriter(cfg)
	if err != nil {
		return nil, nil, err
	}
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With(slog.String("app", "ravendrop")), closeFn, nil
}

func parseLevel(value string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func resolveWriter(cfg config.LogConfig) (io.Writer, func() error, error) {
	nop := func() error { return nil }
	switch strings.ToLower(cfg.Sink) {
	case "none":
		return io.Discard, nop, nil
	case "", "stderr":
		return os.Stderr, nop, nil
	case "file":
		path := strings.TrimSpace(cfg.File)
		if path == "" {
			path = filepath.Join(config.Dir(), "ravendrop.log")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, nil, fmt.Errorf("logging: %w", err)
		}
		rot := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    positive(cfg.MaxSizeMB, 10),
			MaxBackups: positive(cfg.MaxBackups, 3),
			MaxAge:     positive(cfg.MaxAgeDays, 14),
			Compress:   cfg.Compress,
		}
		return rot, rot.Close, nil
	default:
		return nil, nil, fmt.Errorf("logging: unknown sink %q", cfg.Sink)
	}
}

func positive(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
