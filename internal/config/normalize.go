package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

func (c *Config) normalize() error {
	c.applyEnvironment()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeSources(); err != nil {
		return err
	}
	c.normalizeTagging()
	if err := c.normalizeLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) applyEnvironment() {
	if value, ok := os.LookupEnv(environmentLibraryOverride); ok && strings.TrimSpace(value) != "" {
		c.Paths.LibraryDir = value
	}
	if value, ok := os.LookupEnv(environmentCacheOverride); ok && strings.TrimSpace(value) != "" {
		c.Paths.CacheDir = value
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LibraryDir, err = expandPath(strings.TrimSpace(c.Paths.LibraryDir)); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if c.Paths.CacheDir, err = expandPath(strings.TrimSpace(c.Paths.CacheDir)); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.StatsDir, err = expandPath(strings.TrimSpace(c.Paths.StatsDir)); err != nil {
		return fmt.Errorf("paths.stats_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSources() error {
	c.Catalog.BaseURL = strings.TrimRight(strings.TrimSpace(c.Catalog.BaseURL), "/")
	c.Encyclopedia.APIURL = strings.TrimSpace(c.Encyclopedia.APIURL)
	c.SongDB.BaseURL = strings.TrimRight(strings.TrimSpace(c.SongDB.BaseURL), "/")
	c.Network.UserAgent = strings.TrimSpace(c.Network.UserAgent)
	if c.Network.UserAgent == "" {
		c.Network.UserAgent = defaultUserAgent
	}
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheBackendJSON
	}

	var err error
	if strings.TrimSpace(c.Encyclopedia.SnapshotPath) == "" {
		c.Encyclopedia.SnapshotPath = filepath.Join(c.Paths.CacheDir, defaultSnapshotFile)
	}
	if c.Encyclopedia.SnapshotPath, err = expandPath(c.Encyclopedia.SnapshotPath); err != nil {
		return fmt.Errorf("encyclopedia.snapshot_path: %w", err)
	}
	if strings.TrimSpace(c.SongDB.DubArtistsPath) == "" {
		c.SongDB.DubArtistsPath = filepath.Join(c.Paths.CacheDir, defaultDubArtistsFile)
	}
	if c.SongDB.DubArtistsPath, err = expandPath(c.SongDB.DubArtistsPath); err != nil {
		return fmt.Errorf("songdb.dub_artists_path: %w", err)
	}

	artists := make([]string, 0, len(c.SongDB.DubArtists))
	for _, artist := range c.SongDB.DubArtists {
		if trimmed := strings.TrimSpace(artist); trimmed != "" {
			artists = append(artists, trimmed)
		}
	}
	c.SongDB.DubArtists = artists
	return nil
}

func (c *Config) normalizeTagging() {
	exts := make([]string, 0, len(c.Tagging.Extensions))
	for _, ext := range c.Tagging.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if !slices.Contains(exts, ext) {
			exts = append(exts, ext)
		}
	}
	if len(exts) == 0 {
		exts = []string{defaultTaggingExtension}
	}
	c.Tagging.Extensions = exts
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	file := strings.TrimSpace(c.Logging.File)
	if file == "" {
		return nil
	}
	if !filepath.IsAbs(file) && !strings.HasPrefix(file, "~") {
		file = filepath.Join(c.Paths.LogDir, file)
	}
	var err error
	if c.Logging.File, err = expandPath(file); err != nil {
		return fmt.Errorf("logging.file: %w", err)
	}
	return nil
}
