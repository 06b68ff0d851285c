package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"anitag/internal/anime"
	"anitag/internal/artwork"
	"anitag/internal/config"
	"anitag/internal/identification"
	"anitag/internal/identification/catalog"
	"anitag/internal/identification/encyclopedia"
	"anitag/internal/identification/songdb"
	"anitag/internal/kvstore"
	"anitag/internal/logging"
	"anitag/internal/pacer"
)

// Store table names used with the SQLite backend.
const (
	TitleTable        = "titles"
	EncyclopediaTable = "encyclopedia"
)

// OpenTitleStore opens the title cache on its own, for inspection without
// the snapshot and network clients.
func OpenTitleStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (kvstore.Store[anime.ResolvedAnime], error) {
	store, err := kvstore.Open[anime.ResolvedAnime](ctx, cfg.Cache.Backend, cfg.TitleCachePath(), TitleTable, logger)
	if err != nil {
		return nil, fmt.Errorf("open title cache: %w", err)
	}
	return store, nil
}

// Services holds the configured clients and stores for one process.
type Services struct {
	Engine *identification.Engine
	Songs  *songdb.Resolver
	Covers *artwork.Fetcher
	Titles kvstore.Store[anime.ResolvedAnime]

	encyclopediaCache kvstore.Store[anime.EncyclopediaEntry]
}

// OpenServices opens the caches, loads the encyclopedia snapshot and builds
// the three resolvers with the pacing configured for each service. A missing
// snapshot or a corrupt cache is returned as an error.
func OpenServices(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Services, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	snapshot, err := encyclopedia.LoadSnapshot(cfg.Encyclopedia.SnapshotPath)
	if err != nil {
		return nil, err
	}
	logger.Debug("encyclopedia snapshot loaded",
		logging.String("path", cfg.Encyclopedia.SnapshotPath),
		logging.Int("items", snapshot.Len()))

	deny, err := songdb.LoadDenylist(cfg.SongDB.DubArtistsPath, cfg.SongDB.DubArtists)
	if err != nil {
		return nil, err
	}

	titles, err := OpenTitleStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	annCache, err := kvstore.Open[anime.EncyclopediaEntry](ctx, cfg.Cache.Backend, cfg.EncyclopediaCachePath(), EncyclopediaTable, logger)
	if err != nil {
		_ = titles.Close()
		return nil, fmt.Errorf("open encyclopedia cache: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout()}
	paced := func(name string, cooldown, interval time.Duration) *pacer.Pacer {
		return pacer.New(name, pacer.Policy{
			Cooldown:    cooldown,
			MinInterval: interval,
			Attempts:    cfg.Network.RetryAttempts,
		}, pacer.WithLogger(logger))
	}

	catalogClient, err := catalog.New(cfg.Catalog.BaseURL,
		catalog.WithHTTPClient(httpClient), catalog.WithUserAgent(cfg.Network.UserAgent))
	if err != nil {
		return nil, closeAll(err, titles, annCache)
	}
	annClient, err := encyclopedia.New(cfg.Encyclopedia.APIURL,
		encyclopedia.WithHTTPClient(httpClient), encyclopedia.WithUserAgent(cfg.Network.UserAgent))
	if err != nil {
		return nil, closeAll(err, titles, annCache)
	}
	songClient, err := songdb.New(cfg.SongDB.BaseURL,
		songdb.WithHTTPClient(httpClient), songdb.WithUserAgent(cfg.Network.UserAgent))
	if err != nil {
		return nil, closeAll(err, titles, annCache)
	}

	songs := songdb.NewResolver(songClient, deny,
		songdb.WithPacer(paced("songdb", cfg.SongDBCooldown(), 0)),
		songdb.WithLogger(logger))
	engine := identification.NewEngine(
		catalog.NewResolver(catalogClient,
			catalog.WithPacer(paced("catalog", cfg.CatalogCooldown(), cfg.CatalogMinInterval())),
			catalog.WithLimit(cfg.Catalog.CandidateLimit),
			catalog.WithLogger(logger)),
		encyclopedia.NewResolver(annClient, snapshot, annCache,
			encyclopedia.WithPacer(paced("encyclopedia", cfg.EncyclopediaCooldown(), 0)),
			encyclopedia.WithBatchSize(cfg.Encyclopedia.BatchSize),
			encyclopedia.WithMaxMatches(cfg.Encyclopedia.MaxMatches),
			encyclopedia.WithLogger(logger)),
		songs,
		identification.WithTitleCache(titles),
		identification.WithLogger(logger),
	)

	services := &Services{
		Engine:            engine,
		Songs:             songs,
		Titles:            titles,
		encyclopediaCache: annCache,
	}
	if cfg.Tagging.WriteCovers {
		covers, err := artwork.New(cfg.CoverDir(),
			artwork.WithHTTPClient(httpClient),
			artwork.WithUserAgent(cfg.Network.UserAgent),
			artwork.WithPacer(paced("covers", cfg.CoverCooldown(), 0)),
			artwork.WithLogger(logger))
		if err != nil {
			return nil, closeAll(err, titles, annCache)
		}
		services.Covers = covers
	}
	return services, nil
}

// Manager builds a batch manager over the services.
func (s *Services) Manager(cfg *config.Config, logger *slog.Logger, opts ...ManagerOption) *Manager {
	base := []ManagerOption{
		WithTitleStore(s.Titles),
		WithReverseLookup(s.Songs),
		WithLogger(logger),
	}
	if s.Covers != nil {
		base = append(base, WithCovers(s.Covers))
	}
	return NewManager(cfg, s.Engine, append(base, opts...)...)
}

// Close flushes and closes both caches.
func (s *Services) Close() error {
	if s == nil {
		return nil
	}
	ctx := context.Background()
	var errs []error
	for _, store := range []interface {
		Flush(context.Context) error
		Close() error
	}{s.Titles, s.encyclopediaCache} {
		if store == nil {
			continue
		}
		if err := store.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
		if err := store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func closeAll(err error, closers ...interface{ Close() error }) error {
	errs := []error{err}
	for _, closer := range closers {
		errs = append(errs, closer.Close())
	}
	return errors.Join(errs...)
}
