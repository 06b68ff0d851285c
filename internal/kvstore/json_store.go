package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"anitag/internal/fileutil"
	"anitag/internal/logging"
)

// JSONStore persists entries as a single JSON object keyed by entry key.
type JSONStore[V any] struct {
	memory[V]
	path   string
	logger *slog.Logger
}

// OpenJSON loads the file at path. A missing or empty file yields an empty
// store; an undecodable one yields ErrCorrupt. An empty path produces a store
// that never touches disk.
func OpenJSON[V any](path string, logger *slog.Logger) (*JSONStore[V], error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &JSONStore[V]{
		memory: memory[V]{entries: make(map[string]V)},
		path:   path,
		logger: logging.NewComponentLogger(logger, "kvstore"),
	}
	if path == "" {
		return s, nil
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file.
func (s *JSONStore[V]) Path() string {
	return s.path
}

func (s *JSONStore[V]) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read cache file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var entries map[string]V
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}
	if entries != nil {
		s.entries = entries
	}

	s.logger.Debug("loaded cache",
		logging.Int("entry_count", len(s.entries)),
		logging.String("path", s.path))
	return nil
}

// Flush rewrites the whole file when entries changed since the last flush.
func (s *JSONStore[V]) Flush(context.Context) error {
	entries, version, dirty := s.snapshot()
	if s.path == "" {
		s.markFlushed(version)
		return nil
	}
	if !dirty {
		return nil
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	if err := fileutil.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write cache %s: %w", s.path, err)
	}

	s.markFlushed(version)
	s.logger.Debug("flushed cache",
		logging.Int("entry_count", len(entries)),
		logging.String("path", s.path))
	return nil
}

// Close is a no-op; unflushed changes are discarded.
func (s *JSONStore[V]) Close() error { return nil }
