// Package logger configures structured logging for reconciliation runs.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	formatJSON   = "json"
	formatPretty = "pretty"
)

// Attribute keys shared by every component so log lines can be joined on them.
const (
	KeyRun       = "run_id"
	KeyScope     = "scope"
	KeyPartition = "partition"
	KeySequence  = "sequence"
	KeyTitleID   = "title_id"
	KeyError     = "error"
)

// Logger wraps slog.Logger with pipeline-specific helpers.
type Logger struct {
	*slog.Logger
}

// Config holds logger configuration.
type Config struct {
	Writer      io.Writer
	Format      string
	Environment string
	Level       slog.Level
	AddSource   bool
}

// New creates a logger. Production defaults to JSON, everything else to the
// colored pretty format.
func New(cfg Config) *Logger {
	if cfg.Writer == nil {
		cfg.Writer = os.Stderr
	}

	if cfg.Format == "" {
		if cfg.Environment == "production" {
			cfg.Format = formatJSON
		} else {
			cfg.Format = formatPretty
		}
	}

	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.SourceKey {
				if source, ok := a.Value.Any().(*slog.Source); ok {
					source.File = filepath.Base(source.File)
				}
			}
			return a
		},
	}

	var handler slog.Handler
	if cfg.Format == formatJSON {
		handler = slog.NewJSONHandler(cfg.Writer, opts)
	} else {
		handler = NewPrettyHandler(cfg.Writer, opts)
	}

	return &Logger{Logger: slog.New(handler)}
}

// Discard returns a logger that drops every record. Used by tests.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ParseLevel converts a string to slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRun tags every record with the reconciliation run id.
func (l *Logger) WithRun(runID string) *Logger {
	return &Logger{Logger: l.With(slog.String(KeyRun, runID))}
}

// WithError adds an error attribute to the logger.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Logger: l.With(Err(err))}
}

// Scope returns the attribute for an imputation scope.
func Scope(scope string) slog.Attr {
	return slog.String(KeyScope, scope)
}

// Partition returns the attribute for a store partition key.
func Partition(key string) slog.Attr {
	return slog.String(KeyPartition, key)
}

// TitleID returns the attribute for a title identifier.
func TitleID(id int64) slog.Attr {
	return slog.Int64(KeyTitleID, id)
}

// Err returns the attribute for an error; nil errors render as "<nil>".
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "<nil>")
	}
	return slog.String(KeyError, err.Error())
}
