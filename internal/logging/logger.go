package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"anitag/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level       string
	Format      string
	File        string
	MaxSizeMB   int
	MaxBackups  int
	RunID       string
	Development bool
	// Console overrides stdout; tests point it at a buffer.
	Console io.Writer
}

// New constructs a slog logger using the provided options. A configured log
// file stays open for the life of the process; use Open to close it.
func New(opts Options) (*slog.Logger, error) {
	logger, _, err := Open(opts)
	return logger, err
}

// Open is New that also returns the closer of the log file sink. The closer
// is a no-op when opts.File is empty.
func Open(opts Options) (*slog.Logger, io.Closer, error) {
	level := parseLevel(opts.Level)
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)

	writer, closer, err := openWriter(opts)
	if err != nil {
		return nil, nil, err
	}

	addSource := opts.Development || level <= slog.LevelDebug

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "console"
	}

	var handler slog.Handler
	switch format {
	case "json":
		handler = newJSONHandler(writer, levelVar, addSource)
	case "console":
		handler = newPrettyHandler(writer, levelVar, addSource)
	default:
		_ = closer.Close()
		return nil, nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	return slog.New(newRunIDHandler(handler, opts.RunID)), closer, nil
}

// NewFromConfig creates a logger using application config defaults.
func NewFromConfig(cfg *config.Config, runID string) (*slog.Logger, error) {
	logger, _, err := OpenFromConfig(cfg, runID)
	return logger, err
}

// OpenFromConfig is NewFromConfig that also returns the log file closer.
func OpenFromConfig(cfg *config.Config, runID string) (*slog.Logger, io.Closer, error) {
	if cfg == nil {
		return Open(Options{Level: "info", Format: "console", RunID: runID})
	}
	return Open(Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		RunID:      runID,
	})
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openWriter returns stdout, optionally teed into a size-rotated log file.
// Only one rotating writer may own a file, so callers keep one per process.
func openWriter(opts Options) (io.Writer, io.Closer, error) {
	var console io.Writer = os.Stdout
	if opts.Console != nil {
		console = opts.Console
	}
	path := strings.TrimSpace(opts.File)
	if path == "" {
		return console, nopCloser{}, nil
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("ensure log directory: %w", err)
		}
	}
	rotating := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    max(opts.MaxSizeMB, 1),
		MaxBackups: opts.MaxBackups,
		LocalTime:  true,
	}
	return io.MultiWriter(console, rotating), rotating, nil
}

func newJSONHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	opts := slog.HandlerOptions{
		Level:     lvl,
		AddSource: addSource,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				attr.Key = "ts"
				if attr.Value.Kind() == slog.KindTime {
					attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339))
				}
			case slog.LevelKey:
				attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
			case slog.SourceKey:
				if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
					attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
				}
			}
			return attr
		},
	}
	return slog.NewJSONHandler(w, &opts)
}
