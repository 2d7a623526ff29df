// Package logger holds the process-wide structured logger. CLI commands and
// the daemon log to separate rotated files under <configDir>/logs.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	Logger *log.Logger

	rotator *lumberjack.Logger
)

const (
	FormatText   = "text"
	FormatJSON   = "json"
	FormatLogfmt = "logfmt"
)

type Config struct {
	Debug     bool
	ConfigDir string
	// FileName defaults to chime.log.
	FileName string
	// Level overrides the default level ("warn", or "debug" with Debug set).
	Level string
	// Stderr tees output to stderr regardless of Debug.
	Stderr bool
	// Format is text, json or logfmt. Empty means text.
	Format string

	// Rotation limits; zero values fall back to 10 MB, 3 backups, 28 days.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// ParseFormat maps a format name onto a charm log formatter.
func ParseFormat(name string) (log.Formatter, error) {
	switch name {
	case "", FormatText:
		return log.TextFormatter, nil
	case FormatJSON:
		return log.JSONFormatter, nil
	case FormatLogfmt:
		return log.LogfmtFormatter, nil
	default:
		return log.TextFormatter, fmt.Errorf("unknown log format %q (expected text, json or logfmt)", name)
	}
}

// Init replaces the global logger. A previous log file is closed first.
func Init(cfg Config) error {
	level := log.WarnLevel
	if cfg.Debug {
		level = log.DebugLevel
	}
	if cfg.Level != "" {
		parsed, err := log.ParseLevel(cfg.Level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}
	formatter, err := ParseFormat(cfg.Format)
	if err != nil {
		return err
	}

	logDir := filepath.Join(cfg.ConfigDir, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return err
	}
	name := cfg.FileName
	if name == "" {
		name = "chime.log"
	}

	if err := Close(); err != nil {
		return err
	}
	rotator = &lumberjack.Logger{
		Filename:   filepath.Join(logDir, name),
		MaxSize:    orDefault(cfg.MaxSizeMB, 10),
		MaxBackups: orDefault(cfg.MaxBackups, 3),
		MaxAge:     orDefault(cfg.MaxAgeDays, 28),
		Compress:   true,
	}

	var writer io.Writer = rotator
	if cfg.Debug || cfg.Stderr {
		writer = io.MultiWriter(os.Stderr, rotator)
	}

	Logger = log.NewWithOptions(writer, log.Options{
		ReportCaller:    cfg.Debug,
		ReportTimestamp: true,
		Level:           level,
		Prefix:          "chime",
		Formatter:       formatter,
	})
	return nil
}

// Path returns the current log file, or "" before Init.
func Path() string {
	if rotator == nil {
		return ""
	}
	return rotator.Filename
}

// Close flushes and closes the log file. Logging afterwards is a no-op.
func Close() error {
	if rotator == nil {
		return nil
	}
	err := rotator.Close()
	rotator = nil
	Logger = nil
	return err
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func Debug(msg string, keyvals ...any) {
	if Logger != nil {
		Logger.Debug(msg, keyvals...)
	}
}

func Info(msg string, keyvals ...any) {
	if Logger != nil {
		Logger.Info(msg, keyvals...)
	}
}

func Warn(msg string, keyvals ...any) {
	if Logger != nil {
		Logger.Warn(msg, keyvals...)
	}
}

func Error(msg string, keyvals ...any) {
	if Logger != nil {
		Logger.Error(msg, keyvals...)
	}
}

// Fatal logs and exits 1 even when no logger is set.
func Fatal(msg string, keyvals ...any) {
	if Logger != nil {
		Logger.Fatal(msg, keyvals...)
	}
	os.Exit(1)
}
