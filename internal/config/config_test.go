package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"anitag/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if cfg.Paths.LibraryDir != filepath.Join(tempHome, "anisongs") {
		t.Fatalf("unexpected library dir: %q", cfg.Paths.LibraryDir)
	}
	wantCache := filepath.Join(tempHome, ".cache", "anitag")
	if cfg.Paths.CacheDir != wantCache {
		t.Fatalf("unexpected cache dir: got %q want %q", cfg.Paths.CacheDir, wantCache)
	}
	if cfg.Encyclopedia.SnapshotPath != filepath.Join(wantCache, "reports.xml") {
		t.Fatalf("unexpected snapshot path: %q", cfg.Encyclopedia.SnapshotPath)
	}
	if cfg.SongDB.DubArtistsPath != filepath.Join(wantCache, "dubSongBlacklist.json") {
		t.Fatalf("unexpected dub artists path: %q", cfg.SongDB.DubArtistsPath)
	}
	if cfg.TitleCachePath() != filepath.Join(wantCache, "cache.json") {
		t.Fatalf("unexpected title cache path: %q", cfg.TitleCachePath())
	}
	if cfg.Catalog.CandidateLimit != 3 {
		t.Fatalf("unexpected candidate limit: %d", cfg.Catalog.CandidateLimit)
	}
	if cfg.Network.RetryAttempts != 1 {
		t.Fatalf("expected single attempt by default, got %d", cfg.Network.RetryAttempts)
	}
	if cfg.SongDBCooldown().Seconds() != 3 {
		t.Fatalf("unexpected song db cooldown: %v", cfg.SongDBCooldown())
	}
}

func TestLoadCustomConfigFile(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `
[paths]
library_dir = "~/music"
cache_dir = "/tmp/anitag-cache"

[cache]
backend = "SQLite"

[tagging]
extensions = ["MP3", ".mp3", "flac"]

[songdb]
dub_artists = [" Studio Dub ", ""]

[logging]
file = "run.log"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Paths.LibraryDir != filepath.Join(tempHome, "music") {
		t.Fatalf("unexpected library dir: %q", cfg.Paths.LibraryDir)
	}
	if cfg.Cache.Backend != config.CacheBackendSQLite {
		t.Fatalf("unexpected backend: %q", cfg.Cache.Backend)
	}
	if cfg.TitleCachePath() != filepath.Join("/tmp/anitag-cache", "anitag.db") {
		t.Fatalf("unexpected sqlite path: %q", cfg.TitleCachePath())
	}
	if strings.Join(cfg.Tagging.Extensions, ",") != ".mp3,.flac" {
		t.Fatalf("unexpected extensions: %v", cfg.Tagging.Extensions)
	}
	if len(cfg.SongDB.DubArtists) != 1 || cfg.SongDB.DubArtists[0] != "Studio Dub" {
		t.Fatalf("unexpected dub artists: %v", cfg.SongDB.DubArtists)
	}
	if cfg.Logging.File != filepath.Join(cfg.Paths.LogDir, "run.log") {
		t.Fatalf("unexpected log file: %q", cfg.Logging.File)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	library := t.TempDir()
	cache := t.TempDir()
	t.Setenv("ANITAG_LIBRARY_DIR", library)
	t.Setenv("ANITAG_CACHE_DIR", cache)

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.LibraryDir != library || cfg.Paths.CacheDir != cache {
		t.Fatalf("env overrides not applied: %+v", cfg.Paths)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"batch too large", func(c *config.Config) { c.Encyclopedia.BatchSize = 51 }},
		{"zero candidates", func(c *config.Config) { c.Catalog.CandidateLimit = 0 }},
		{"bad backend", func(c *config.Config) { c.Cache.Backend = "redis" }},
		{"bad url", func(c *config.Config) { c.SongDB.BaseURL = "ftp://example.com" }},
		{"zero attempts", func(c *config.Config) { c.Network.RetryAttempts = 0 }},
		{"negative cooldown", func(c *config.Config) { c.Catalog.CooldownMS = -1 }},
		{"bad log level", func(c *config.Config) { c.Logging.Level = "trace" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Paths.LibraryDir = "/music"
			cfg.Paths.CacheDir = "/cache"
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCreateSampleParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var cfg config.Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	if cfg.Catalog.CandidateLimit != 3 || cfg.Encyclopedia.BatchSize != 50 {
		t.Fatalf("unexpected sample values: %+v", cfg)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	cfg := config.Default()
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if !strings.Contains(string(data), "[songdb]") {
		t.Fatalf("expected songdb section, got %s", data)
	}
}
