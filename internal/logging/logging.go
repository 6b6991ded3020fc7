// Package logging builds the process-wide zap logger from the configured
// level, including the whisper/haunt/spooky/scream/poltergeist/silence
// aliases carried over from the original source this was ported from.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ParseLevel maps a (case-insensitive) configured level string, including
// its spooky aliases, to a zapcore.Level.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "whisper":
		// zap has no trace level; debug is the finest level it exposes,
		// same approximation Caddy makes for modules that want sub-debug
		// verbosity.
		return zapcore.DebugLevel, nil
	case "debug", "haunt":
		return zapcore.DebugLevel, nil
	case "info", "spooky":
		return zapcore.InfoLevel, nil
	case "warn", "scream":
		return zapcore.WarnLevel, nil
	case "error", "poltergeist":
		return zapcore.ErrorLevel, nil
	case "off", "silence":
		// zap has no "off" level; the caller should use a no-op core
		// instead (see New below).
		return zapcore.FatalLevel + 1, nil
	default:
		return 0, fmt.Errorf("unrecognized log level %q", level)
	}
}

// New builds a *zap.Logger writing JSON to stderr at the given level, in the
// same style the teacher (caddyserver/caddy) uses zap throughout: structured
// fields, no global logger mutation beyond what the caller explicitly
// requests.
func New(level string) (*zap.Logger, error) {
	parsed, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(level, "off") || strings.EqualFold(level, "silence") {
		return zap.NewNop(), nil
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parsed)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
