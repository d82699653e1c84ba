// Package logging sets up the process-wide zerolog configuration: level
// parsing, console or JSON output, optional file duplication, and component
// sub-loggers.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds the root logger. Pretty output goes through the console writer;
// otherwise lines are JSON. When file is non-empty, output is duplicated to
// it. The returned closer releases the log file, if any.
func New(level, file string, pretty bool) (zerolog.Logger, func() error, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, nil, err
	}

	var console io.Writer = os.Stderr
	if pretty {
		console = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}

	closer := func() error { return nil }
	out := console
	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return zerolog.Logger{}, nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Logger{}, nil, fmt.Errorf("open log file: %w", err)
		}
		closer = f.Close
		out = zerolog.MultiLevelWriter(console, f)
	}

	log := zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	return log, closer, nil
}

// ParseLevel maps a config level string to a zerolog level. Empty means info.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return zerolog.InfoLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// Component tags a sub-logger with the component name, the convention every
// package uses for its own logger.
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
