// Package logging builds the process logger for each environment.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dgallion1/quizzer/internal/config"
)

// FileName is the log file written under LOG_DIR in production.
const FileName = "app.log"

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns the logger for cfg and a closer for any file it opened.
// Development logs text to stderr. Production logs JSON to stderr and to a
// rotated file. Test logs text at warn and above.
func New(cfg config.Config) (*slog.Logger, io.Closer) {
	return newLogger(cfg, os.Stderr)
}

func newLogger(cfg config.Config, stderr io.Writer) (*slog.Logger, io.Closer) {
	level := ParseLevel(cfg.LogLevel)

	switch cfg.Environment {
	case config.EnvProduction:
		rotator := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.LogDir, FileName),
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAgeDays,
			Compress:   cfg.LogCompress,
		}
		h := slog.NewJSONHandler(io.MultiWriter(stderr, rotator), &slog.HandlerOptions{Level: level})
		return slog.New(h), rotator
	case config.EnvTest:
		h := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn})
		return slog.New(h), nopCloser{}
	default:
		h := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})
		return slog.New(h), nopCloser{}
	}
}

// ParseLevel maps debug, info, warn/warning and error to slog levels.
// Anything else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "critical":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
