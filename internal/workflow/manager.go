package workflow

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"anitag/internal/config"
	"anitag/internal/logging"
	"anitag/internal/selftest"
	"anitag/internal/tagging"
)

// ErrLocked is returned when another batch holds the cache lock.
var ErrLocked = errors.New("another anitag instance is already running")

// Manager runs tagging batches over the configured library.
type Manager struct {
	cfg      *config.Config
	fs       afero.Fs
	resolver Resolver
	titles   Flusher
	writer   tagging.Writer
	reader   tagging.Reader
	covers   CoverSource
	reverse  selftest.ReverseLookup
	logger   *slog.Logger
	newRunID func() string
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithFs replaces the filesystem the library is scanned on.
func WithFs(fs afero.Fs) ManagerOption {
	return func(m *Manager) {
		if fs != nil {
			m.fs = fs
		}
	}
}

// WithTitleStore sets the store flushed once the batch finishes.
func WithTitleStore(store Flusher) ManagerOption {
	return func(m *Manager) { m.titles = store }
}

// WithTags replaces the tag writer and reader.
func WithTags(writer tagging.Writer, reader tagging.Reader) ManagerOption {
	return func(m *Manager) {
		if writer != nil {
			m.writer = writer
		}
		if reader != nil {
			m.reader = reader
		}
	}
}

// WithCovers enables cover art. Without it files are tagged without a
// picture.
func WithCovers(covers CoverSource) ManagerOption {
	return func(m *Manager) { m.covers = covers }
}

// WithReverseLookup sets the song lookup used by self-test batches.
func WithReverseLookup(reverse selftest.ReverseLookup) ManagerOption {
	return func(m *Manager) { m.reverse = reverse }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithRunIDs overrides run id generation.
func WithRunIDs(next func() string) ManagerOption {
	return func(m *Manager) {
		if next != nil {
			m.newRunID = next
		}
	}
}

// NewManager constructs a manager around resolver. Tags default to ID3 on
// the host filesystem.
func NewManager(cfg *config.Config, resolver Resolver, opts ...ManagerOption) *Manager {
	m := &Manager{
		cfg:      cfg,
		fs:       afero.NewOsFs(),
		resolver: resolver,
		writer:   tagging.ID3{},
		reader:   tagging.ID3{},
		logger:   logging.NewNop(),
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.NewComponentLogger(m.logger, "workflow")
	return m
}

// Lock is the advisory lock held for the duration of a batch.
type Lock struct {
	file *flock.Flock
}

// AcquireLock takes the lock at path without blocking. ErrLocked is returned
// when it is already held.
func AcquireLock(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	file := flock.New(path)
	ok, err := file.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return &Lock{file: file}, nil
}

// Release drops the lock.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Unlock()
}
