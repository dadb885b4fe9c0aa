// Package observability wires logging, Prometheus metrics and OpenTelemetry
// tracing for the bucketwalk CLI and server.
package observability

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CLILogger is the process-wide logger for command code. Library packages
// take an injected logger instead.
var CLILogger = zap.NewNop()

// LogConfig selects level and encoding.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string
	// Format is "console" or "json".
	Format string
}

// InitCLILogger builds a console logger on stderr and installs it as
// CLILogger. verbose forces debug level.
func InitCLILogger(name string, verbose bool) *zap.Logger {
	level := "info"
	if verbose {
		level = "debug"
	}
	logger, err := NewLogger(LogConfig{Level: level, Format: "console"})
	if err != nil {
		logger = zap.NewNop()
	}
	CLILogger = logger.Named(name)
	return CLILogger
}

// NewLogger builds a logger writing to stderr.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	switch strings.ToLower(cfg.Format) {
	case "", "console", "text":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	case "json", "structured":
		enc = zapcore.NewJSONEncoder(encCfg)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), level)
	return zap.New(core), nil
}

// ParseLevel maps a level name to a zap level. Empty means info.
func ParseLevel(s string) (zapcore.Level, error) {
	if strings.TrimSpace(s) == "" {
		return zapcore.InfoLevel, nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return level, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}
