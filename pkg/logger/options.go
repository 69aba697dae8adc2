package logger

import (
	"io"
	"log/slog"
	"os"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

type options struct {
	writer io.Writer
	format string
	level  *slog.LevelVar
	source bool
	exit   func(int)
}

func defaultOptions() *options {
	return &options{writer: os.Stdout, format: FormatText, source: true, exit: os.Exit}
}

// Option configures a logger.
type Option func(*options)

// WithWriter sets the output destination.
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.writer = w
		}
	}
}

// WithFormat selects text or json output.
func WithFormat(format string) Option {
	return func(o *options) { o.format = format }
}

// WithLevel sets a fixed minimum level.
func WithLevel(level slog.Level) Option {
	return func(o *options) {
		lv := &slog.LevelVar{}
		lv.Set(level)
		o.level = lv
	}
}

// WithSource toggles the source field on every entry.
func WithSource(enabled bool) Option {
	return func(o *options) { o.source = enabled }
}

// WithExit replaces os.Exit for Fatal.
func WithExit(fn func(int)) Option {
	return func(o *options) {
		if fn != nil {
			o.exit = fn
		}
	}
}

func withLevelVar(lv *slog.LevelVar) Option {
	return func(o *options) { o.level = lv }
}
