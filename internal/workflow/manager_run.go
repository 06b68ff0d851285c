package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"anitag/internal/anime"
	"anitag/internal/identification"
	"anitag/internal/library"
	"anitag/internal/logging"
	"anitag/internal/selftest"
	"anitag/internal/tagging"
)

// Run executes one batch. The title store is flushed even when ctx is
// cancelled part way through.
func (m *Manager) Run(ctx context.Context, opts RunOptions) (Summary, error) {
	lock, err := AcquireLock(m.cfg.LockPath())
	if err != nil {
		return Summary{}, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			m.logger.Warn("release lock failed", logging.Error(err))
		}
	}()

	started := time.Now()
	summary := Summary{RunID: m.newRunID()}
	logger := logging.WithRunID(m.logger, summary.RunID)
	logger.Info("batch started",
		logging.String("library_dir", m.cfg.Paths.LibraryDir),
		logging.Bool("selftest", opts.SelfTest))

	listing, err := library.Scan(ctx, m.fs, m.cfg.Paths.LibraryDir, m.cfg.Tagging.Extensions)
	if err != nil {
		return summary, err
	}
	summary.Scanned = len(listing.Tracks) + len(listing.Unparseable)
	for _, path := range listing.Unparseable {
		m.recordFailure(logger, &summary, path, StageParse, "filename does not match <title> <OP|ED|IN><n>", nil)
	}

	requirements := library.Requirements(listing.Tracks)
	library.Order(listing.Tracks)

	var checker *selftest.Checker
	if opts.SelfTest {
		checker = selftest.NewChecker(m.reader, m.reverse, logger)
	}

	var runErr error
	for _, track := range listing.Tracks {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if err := m.processTrack(ctx, logger, track, requirements.For(track.Title), checker, &summary); err != nil {
			runErr = err
			break
		}
	}

	if m.titles != nil {
		if err := m.titles.Flush(context.WithoutCancel(ctx)); err != nil {
			runErr = errors.Join(runErr, fmt.Errorf("flush title cache: %w", err))
		}
	}
	if checker != nil {
		report := checker.Report()
		summary.SelfTest = &report
		if err := selftest.Write(m.cfg.StatsPath(), report); err != nil {
			runErr = errors.Join(runErr, err)
		}
	}

	summary.Duration = time.Since(started)
	logger.Info("batch finished",
		logging.Int("scanned", summary.Scanned),
		logging.Int("tagged", summary.Tagged),
		logging.Int("verified", summary.Verified),
		logging.Int("failed", summary.Failed()),
		logging.Int("cache_hits", summary.CacheHits),
		logging.Int("fallbacks", summary.Fallbacks),
		logging.Duration("duration", summary.Duration))
	return summary, runErr
}

// processTrack handles one file. The returned error is non-nil only when
// ctx is done.
func (m *Manager) processTrack(ctx context.Context, logger *slog.Logger, track library.Track, req anime.TrackRequirement, checker *selftest.Checker, summary *Summary) error {
	logger = logger.With(logging.String(logging.FieldFile, filepath.Base(track.Path)))

	result, err := m.resolver.Resolve(ctx, track.Title, req)
	if err != nil {
		return err
	}
	switch result.Source {
	case identification.SourceCache:
		summary.CacheHits++
	case identification.SourceFallback:
		summary.Fallbacks++
	}
	if !result.Resolved() {
		if checker != nil {
			checker.NoMatch(track.Path)
		}
		m.recordFailure(logger, summary, track.Path, StageResolve, "no anime matched "+track.Title, result.Err())
		return nil
	}
	record := *result.Anime

	if checker != nil {
		ok, err := checker.Check(ctx, track.Path, record.CrossRefID)
		if err != nil {
			return err
		}
		if ok {
			summary.Verified++
		} else {
			summary.fail(track.Path, StageVerify, "tags not confirmed by reverse lookup")
		}
		return nil
	}

	song, ok := record.Music.Track(track.Type, track.Number)
	if !ok {
		m.recordFailure(logger, summary, track.Path, StageSelect,
			fmt.Sprintf("%s has no %s", record.Title, track.Label()), nil)
		return nil
	}

	coverPath, err := m.cover(ctx, logger, record)
	if err != nil {
		return err
	}
	meta := tagging.MetadataFor(record, song, track.Type, coverPath)
	if err := m.writer.Write(track.Path, meta); err != nil {
		m.recordFailure(logger, summary, track.Path, StageTag, "tag write failed", err)
		return nil
	}
	summary.Tagged++
	logger.Info("file tagged",
		logging.String("anime_title", record.Title),
		logging.String("track", track.Label()),
		logging.String("song", song.Title),
		logging.String("artist", song.Artist))
	return nil
}

// cover returns the local cover path, or "" when covers are disabled or the
// download failed. The error is non-nil only when ctx is done.
func (m *Manager) cover(ctx context.Context, logger *slog.Logger, record anime.ResolvedAnime) (string, error) {
	if m.covers == nil || record.Image == "" {
		return "", nil
	}
	path, err := m.covers.Ensure(ctx, record.MalID, record.Image)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		logging.WarnWithContext(logger, "cover download failed", "cover_download_failed",
			logging.Int("mal_id", record.MalID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check network access to the image host"),
			logging.String(logging.FieldImpact, "file tagged without cover art"))
		return "", nil
	}
	return path, nil
}
