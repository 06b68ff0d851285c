package workflow

import (
	"context"
	"time"

	"anitag/internal/anime"
	"anitag/internal/identification"
	"anitag/internal/selftest"
)

// Stages a file can fail in.
const (
	StageParse   = "parse"
	StageResolve = "resolve"
	StageSelect  = "select"
	StageCover   = "cover"
	StageTag     = "tag"
	StageVerify  = "verify"
)

// Resolver turns a filename title into a resolved anime.
// *identification.Engine satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, title string, req anime.TrackRequirement) (identification.Result, error)
}

// CoverSource returns a local path for an anime's cover image.
// *artwork.Fetcher satisfies it.
type CoverSource interface {
	Ensure(ctx context.Context, malID int, imageURL string) (string, error)
}

// Flusher persists pending cache writes.
type Flusher interface {
	Flush(ctx context.Context) error
}

// RunOptions selects the batch mode.
type RunOptions struct {
	// SelfTest verifies existing tags instead of writing new ones.
	SelfTest bool
}

// FileFailure is one file the batch could not finish.
type FileFailure struct {
	Path   string
	Stage  string
	Reason string
}

// Summary describes one batch.
type Summary struct {
	RunID     string
	Scanned   int
	Tagged    int
	Verified  int
	CacheHits int
	Fallbacks int
	Failures  []FileFailure
	// SelfTest is set when the batch ran in self-test mode.
	SelfTest *selftest.Report
	Duration time.Duration
}

// Failed returns the number of files that did not complete.
func (s Summary) Failed() int {
	return len(s.Failures)
}

func (s *Summary) fail(path, stage, reason string) {
	s.Failures = append(s.Failures, FileFailure{Path: path, Stage: stage, Reason: reason})
}

// FailuresIn returns the failures recorded for stage.
func (s Summary) FailuresIn(stage string) []FileFailure {
	var out []FileFailure
	for _, failure := range s.Failures {
		if failure.Stage == stage {
			out = append(out, failure)
		}
	}
	return out
}
