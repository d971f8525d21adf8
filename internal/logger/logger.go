// Package logger is the structured logger shared by the runner, the probe
// executor and the provisioning gateway.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options describes logger configuration supplied at creation time.
type Options struct {
	Level         string
	HumanReadable bool
	// NoColor disables ANSI colors in human readable output.
	NoColor bool
	// Writer defaults to stderr so reports written to stdout stay parseable.
	Writer io.Writer
}

// Logger wraps zerolog. A nil *Logger discards everything.
type Logger struct {
	base zerolog.Logger
}

// New creates a configured Logger instance based on Options.
func New(opts Options) (*Logger, error) {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}

	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, err
		}
		level = parsed
	}

	var output io.Writer = writer
	if opts.HumanReadable {
		output = zerolog.ConsoleWriter{
			Out:        writer,
			NoColor:    opts.NoColor,
			TimeFormat: time.RFC3339,
		}
	}

	return &Logger{base: zerolog.New(output).Level(level).With().Timestamp().Logger()}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{base: zerolog.Nop()}
}

func (l *Logger) derive(ctx zerolog.Context) *Logger {
	return &Logger{base: ctx.Logger()}
}

// WithFields returns a derived logger that always writes the supplied fields.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	if l == nil {
		return nil
	}
	builder := l.base.With()
	for key, value := range fields {
		builder = builder.Interface(key, value)
	}
	return l.derive(builder)
}

// ForSuite scopes the logger to one suite run.
func (l *Logger) ForSuite(suite, runID string) *Logger {
	if l == nil {
		return nil
	}
	return l.derive(l.base.With().Str("suite", suite).Str("run_id", runID))
}

// ForHost scopes the logger to one target host.
func (l *Logger) ForHost(host string) *Logger {
	if l == nil {
		return nil
	}
	return l.derive(l.base.With().Str("host", host))
}

// ForExpectation scopes the logger to one expectation of a suite.
func (l *Logger) ForExpectation(index int, description string) *Logger {
	if l == nil {
		return nil
	}
	return l.derive(l.base.With().Int("index", index).Str("expectation", description))
}

// Info writes an informational log entry.
func (l *Logger) Info(msg string) {
	if l == nil {
		return
	}
	l.base.Info().Msg(msg)
}

// Debug writes a debug-level log entry if enabled.
func (l *Logger) Debug(msg string) {
	if l == nil {
		return
	}
	l.base.Debug().Msg(msg)
}

// Warn writes a warning level log entry.
func (l *Logger) Warn(msg string) {
	if l == nil {
		return
	}
	l.base.Warn().Msg(msg)
}

// Error writes an error log entry including the supplied error context.
func (l *Logger) Error(err error, msg string) {
	if l == nil {
		return
	}
	event := l.base.Error()
	if err != nil {
		event = event.Err(err)
	}
	event.Msg(msg)
}
