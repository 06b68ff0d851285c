package config

const (
	defaultConfigPath = "~/.config/anitag/config.toml"

	defaultLibraryDir = "~/anisongs"
	defaultCacheDir   = "~/.cache/anitag"
	defaultLogDir     = "~/.local/share/anitag/logs"
	defaultStatsDir   = "~/.local/share/anitag/stats"

	defaultCatalogBaseURL      = "https://api.jikan.moe/v4"
	defaultEncyclopediaAPIURL  = "https://cdn.animenewsnetwork.com/encyclopedia/api.xml"
	defaultSongDBBaseURL       = "https://anisongdb.com/api"
	defaultUserAgent           = "anitag/1.0"
	defaultSnapshotFile        = "reports.xml"
	defaultDubArtistsFile      = "dubSongBlacklist.json"
	defaultLogFile             = "anitag.log"
	defaultCandidateLimit      = 3
	defaultEncyclopediaBatch   = 50
	maxEncyclopediaBatch       = 50
	defaultCatalogCooldownMS   = 1000
	defaultEncyclopediaCoolMS  = 2000
	defaultSongDBCooldownMS    = 3000
	defaultCoverCooldownMS     = 3000
	defaultTimeoutSeconds      = 30
	defaultRetryAttempts       = 1
	defaultLogMaxSizeMB        = 10
	defaultLogMaxBackups       = 3
	defaultTaggingExtension    = ".mp3"
	environmentLibraryOverride = "ANITAG_LIBRARY_DIR"
	environmentCacheOverride   = "ANITAG_CACHE_DIR"
)

// Cache backends.
const (
	CacheBackendJSON   = "json"
	CacheBackendSQLite = "sqlite"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: defaultLibraryDir,
			CacheDir:   defaultCacheDir,
			LogDir:     defaultLogDir,
			StatsDir:   defaultStatsDir,
		},
		Catalog: Catalog{
			BaseURL:        defaultCatalogBaseURL,
			CooldownMS:     defaultCatalogCooldownMS,
			MinIntervalMS:  defaultCatalogCooldownMS,
			CandidateLimit: defaultCandidateLimit,
		},
		Encyclopedia: Encyclopedia{
			APIURL:     defaultEncyclopediaAPIURL,
			BatchSize:  defaultEncyclopediaBatch,
			CooldownMS: defaultEncyclopediaCoolMS,
		},
		SongDB: SongDB{
			BaseURL:    defaultSongDBBaseURL,
			CooldownMS: defaultSongDBCooldownMS,
		},
		Network: Network{
			TimeoutSeconds: defaultTimeoutSeconds,
			RetryAttempts:  defaultRetryAttempts,
			UserAgent:      defaultUserAgent,
		},
		Cache: Cache{
			Backend: CacheBackendJSON,
		},
		Tagging: Tagging{
			Extensions:      []string{defaultTaggingExtension},
			WriteCovers:     true,
			CoverCooldownMS: defaultCoverCooldownMS,
		},
		Logging: Logging{
			Format:     "console",
			Level:      "info",
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
		},
	}
}
