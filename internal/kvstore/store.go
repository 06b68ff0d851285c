package kvstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
)

// ErrCorrupt is returned when a persisted cache cannot be decoded.
var ErrCorrupt = errors.New("cache is corrupt")

// Store is a persistent string-keyed map.
type Store[V any] interface {
	Get(key string) (V, bool)
	Put(key string, value V)
	Delete(key string) bool
	Keys() []string
	Len() int
	Clear()
	Flush(ctx context.Context) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Open returns a store for the named backend. For the JSON backend path is
// the file; for SQLite it is the database and table names the key space.
func Open[V any](ctx context.Context, backend, path, table string, logger *slog.Logger) (Store[V], error) {
	switch backend {
	case BackendJSON, "":
		store, err := OpenJSON[V](path, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case BackendSQLite:
		store, err := OpenSQLite[V](ctx, path, table, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("kvstore: unsupported backend %q", backend)
	}
}

// memory holds the in-memory copy shared by every backend. version counts
// mutations; flushed is the version last persisted.
type memory[V any] struct {
	mu      sync.RWMutex
	entries map[string]V
	version uint64
	flushed uint64
}

func (m *memory[V]) Get(key string) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.entries[key]
	return value, ok
}

func (m *memory[V]) Put(key string, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	m.version++
}

func (m *memory[V]) Delete(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; !ok {
		return false
	}
	delete(m.entries, key)
	m.version++
	return true
}

// Keys returns every key in ascending order.
func (m *memory[V]) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.entries))
}

func (m *memory[V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *memory[V]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) == 0 {
		return
	}
	m.entries = make(map[string]V)
	m.version++
}

// snapshot copies the entries for flushing. It returns the version the copy
// reflects and whether that version is not yet persisted.
func (m *memory[V]) snapshot() (map[string]V, uint64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.entries), m.version, m.version != m.flushed
}

// markFlushed records version as persisted. Mutations made after the
// snapshot keep the store dirty.
func (m *memory[V]) markFlushed(version uint64) {
	m.mu.Lock()
	if version > m.flushed {
		m.flushed = version
	}
	m.mu.Unlock()
}

// MemoryStore is a Store that never persists.
type MemoryStore[V any] struct {
	memory[V]
}

// NewMemory returns an empty in-memory store.
func NewMemory[V any]() *MemoryStore[V] {
	return &MemoryStore[V]{memory: memory[V]{entries: make(map[string]V)}}
}

// Flush is a no-op.
func (s *MemoryStore[V]) Flush(context.Context) error {
	_, version, _ := s.snapshot()
	s.markFlushed(version)
	return nil
}

// Close is a no-op.
func (s *MemoryStore[V]) Close() error { return nil }
