package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	LibraryDir string `toml:"library_dir"`
	CacheDir   string `toml:"cache_dir"`
	LogDir     string `toml:"log_dir"`
	StatsDir   string `toml:"stats_dir"`
}

// Catalog configures the anime catalog search API.
type Catalog struct {
	BaseURL        string `toml:"base_url"`
	CooldownMS     int    `toml:"cooldown_ms"`
	MinIntervalMS  int    `toml:"min_interval_ms"`
	CandidateLimit int    `toml:"candidate_limit"`
}

// Encyclopedia configures the encyclopedia API and its local title snapshot.
type Encyclopedia struct {
	APIURL       string `toml:"api_url"`
	SnapshotPath string `toml:"snapshot_path"`
	BatchSize    int    `toml:"batch_size"`
	CooldownMS   int    `toml:"cooldown_ms"`
	// MaxMatches caps the snapshot matches fetched per title; 0 keeps all.
	MaxMatches int `toml:"max_matches"`
}

// SongDB configures the song database API.
type SongDB struct {
	BaseURL        string   `toml:"base_url"`
	CooldownMS     int      `toml:"cooldown_ms"`
	DubArtists     []string `toml:"dub_artists"`
	DubArtistsPath string   `toml:"dub_artists_path"`
}

// Network holds settings shared by every HTTP client.
type Network struct {
	TimeoutSeconds int    `toml:"timeout_seconds"`
	RetryAttempts  int    `toml:"retry_attempts"`
	UserAgent      string `toml:"user_agent"`
}

// Cache selects the storage backend for the title and encyclopedia caches.
type Cache struct {
	Backend string `toml:"backend"`
}

// Tagging controls which files are tagged and whether covers are embedded.
type Tagging struct {
	Extensions      []string `toml:"extensions"`
	WriteCovers     bool     `toml:"write_covers"`
	CoverCooldownMS int      `toml:"cover_cooldown_ms"`
}

// SelfTest toggles the self-test mode that checks resolutions against
// existing tags instead of writing new ones.
type SelfTest struct {
	Enabled bool `toml:"enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format     string `toml:"format"`
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// Config encapsulates all configuration values for anitag.
//
// Configuration sections by subsystem:
//   - Paths: library, cache, log, and stats directories
//   - Catalog, Encyclopedia, SongDB: the three metadata sources
//   - Network: timeouts, retries, and user agent
//   - Cache: title/encyclopedia cache backend
//   - Tagging: file extensions and cover embedding
//   - SelfTest: verification mode
//   - Logging: log format, level, and file rotation
type Config struct {
	Paths        Paths        `toml:"paths"`
	Catalog      Catalog      `toml:"catalog"`
	Encyclopedia Encyclopedia `toml:"encyclopedia"`
	SongDB       SongDB       `toml:"songdb"`
	Network      Network      `toml:"network"`
	Cache        Cache        `toml:"cache"`
	Tagging      Tagging      `toml:"tagging"`
	SelfTest     SelfTest     `toml:"selftest"`
	Logging      Logging      `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("anitag.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the cache, stats, and log directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.CacheDir, c.CoverDir(), c.Paths.StatsDir, c.Paths.LogDir}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CoverDir is where downloaded cover images are stored.
func (c *Config) CoverDir() string {
	return filepath.Join(c.Paths.CacheDir, "covers")
}

// LockPath is the advisory lock held for the duration of a batch.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.CacheDir, "anitag.lock")
}

// TitleCachePath returns the title cache location for the configured backend.
func (c *Config) TitleCachePath() string {
	if c.Cache.Backend == CacheBackendSQLite {
		return filepath.Join(c.Paths.CacheDir, "anitag.db")
	}
	return filepath.Join(c.Paths.CacheDir, "cache.json")
}

// EncyclopediaCachePath returns the encyclopedia detail cache location.
func (c *Config) EncyclopediaCachePath() string {
	if c.Cache.Backend == CacheBackendSQLite {
		return filepath.Join(c.Paths.CacheDir, "anitag.db")
	}
	return filepath.Join(c.Paths.CacheDir, "annFullInfoCache.json")
}

// StatsPath is where the self-test report of the last run is written.
func (c *Config) StatsPath() string {
	return filepath.Join(c.Paths.StatsDir, "statsFromLastRun.json")
}

// HTTPTimeout returns the per-request timeout.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.Network.TimeoutSeconds) * time.Second
}

func millis(value int) time.Duration {
	return time.Duration(value) * time.Millisecond
}

// CatalogCooldown is the fixed delay after each catalog call.
func (c *Config) CatalogCooldown() time.Duration { return millis(c.Catalog.CooldownMS) }

// CatalogMinInterval is the token bucket interval for catalog calls.
func (c *Config) CatalogMinInterval() time.Duration { return millis(c.Catalog.MinIntervalMS) }

// EncyclopediaCooldown is the fixed delay after each encyclopedia batch.
func (c *Config) EncyclopediaCooldown() time.Duration { return millis(c.Encyclopedia.CooldownMS) }

// SongDBCooldown is the fixed delay after each song database call.
func (c *Config) SongDBCooldown() time.Duration { return millis(c.SongDB.CooldownMS) }

// CoverCooldown is the fixed delay after each cover download.
func (c *Config) CoverCooldown() time.Duration { return millis(c.Tagging.CoverCooldownMS) }

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
