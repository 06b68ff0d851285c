package kvstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	_ "modernc.org/sqlite"

	"anitag/internal/logging"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// SQLiteStore persists entries as JSON values in one table of a SQLite file.
type SQLiteStore[V any] struct {
	memory[V]
	db     *sql.DB
	table  string
	logger *slog.Logger
}

// OpenSQLite opens the database at path, creates table if needed, and loads
// every row.
func OpenSQLite[V any](ctx context.Context, path, table string, logger *slog.Logger) (*SQLiteStore[V], error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("kvstore: invalid table name %q", table)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	s := &SQLiteStore[V]{
		memory: memory[V]{entries: make(map[string]V)},
		db:     db,
		table:  table,
		logger: logging.NewComponentLogger(logger, "kvstore"),
	}
	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`, table)
	if err := retryOnBusy(ctx, func() error {
		_, err := db.ExecContext(ctx, schema)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create table %s: %w", table, err)
	}
	if err := s.load(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore[V]) load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT key, value FROM %s", s.table))
	if err != nil {
		return fmt.Errorf("query %s: %w", s.table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return fmt.Errorf("scan %s: %w", s.table, err)
		}
		var value V
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			return fmt.Errorf("%w: %s key %q: %v", ErrCorrupt, s.table, key, err)
		}
		s.entries[key] = value
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate %s: %w", s.table, err)
	}
	s.logger.Debug("loaded cache",
		logging.Int("entry_count", len(s.entries)),
		logging.String("table", s.table))
	return nil
}

// Flush replaces the table contents with the in-memory entries in one
// transaction.
func (s *SQLiteStore[V]) Flush(ctx context.Context) error {
	entries, version, dirty := s.snapshot()
	if !dirty {
		return nil
	}
	encoded := make(map[string]string, len(entries))
	for key, value := range entries {
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshal %s key %q: %w", s.table, key, err)
		}
		encoded[key] = string(data)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback() //nolint:errcheck
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", s.table)); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (key, value, updated_at) VALUES (?, ?, ?)", s.table))
		if err != nil {
			return err
		}
		defer stmt.Close()
		for key, value := range encoded {
			if _, err := stmt.ExecContext(ctx, key, value, now); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("flush %s: %w", s.table, err)
	}
	s.markFlushed(version)
	s.logger.Debug("flushed cache",
		logging.Int("entry_count", len(encoded)),
		logging.String("table", s.table))
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore[V]) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// retryOnBusy reruns op with exponential backoff while SQLite reports the
// database as locked. Other errors return immediately.
func retryOnBusy(ctx context.Context, op func() error) error {
	return retry.Do(
		op,
		retry.Context(ctx),
		retry.Attempts(busyRetryAttempts),
		retry.Delay(busyRetryInitialBackoff),
		retry.MaxDelay(busyRetryMaxBackoff),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isSQLiteBusy),
	)
}
