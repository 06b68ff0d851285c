package workflow

import (
	"context"
	"log/slog"
	"path/filepath"

	"anitag/internal/library"
	"anitag/internal/logging"
)

var failureHints = map[string]string{
	StageParse:   "rename the file to <title> <OP|ED|IN><n>.mp3 or run normalize",
	StageResolve: "check the title spelling against MyAnimeList",
	StageSelect:  "the song database lists fewer tracks of this type",
	StageTag:     "check the file is writable and a valid mp3",
}

func (m *Manager) recordFailure(logger *slog.Logger, summary *Summary, path, stage, reason string, err error) {
	summary.fail(path, stage, reason)
	attrs := []logging.Attr{
		logging.String(logging.FieldFile, filepath.Base(path)),
		logging.String("stage", stage),
		logging.String("reason", reason),
		logging.String(logging.FieldErrorHint, failureHints[stage]),
		logging.String(logging.FieldImpact, "file left untagged"),
	}
	if err != nil {
		attrs = append(attrs, logging.Error(err))
	}
	logging.WarnWithContext(logger, "file skipped", "file_"+stage+"_failed", attrs...)
}

// Normalize renames library files into the parseable form. It holds the
// same lock as Run.
func (m *Manager) Normalize(ctx context.Context, dryRun bool) (library.NormalizeReport, error) {
	lock, err := AcquireLock(m.cfg.LockPath())
	if err != nil {
		return library.NormalizeReport{}, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			m.logger.Warn("release lock failed", logging.Error(err))
		}
	}()

	normalizer := library.NewNormalizer(m.fs, m.cfg.Paths.LibraryDir,
		library.WithDryRun(dryRun),
		library.WithNormalizerLogger(m.logger))
	return normalizer.Run(ctx)
}
