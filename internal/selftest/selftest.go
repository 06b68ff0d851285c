package selftest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"

	"anitag/internal/fileutil"
	"anitag/internal/logging"
	"anitag/internal/tagging"
)

// Failure reasons.
const (
	ReasonMismatch   = "mismatch"
	ReasonNoTags     = "no readable tags"
	ReasonLookup     = "reverse lookup failed"
	ReasonUnresolved = "unresolved"
)

// Failure is one file whose resolution could not be confirmed.
type Failure struct {
	Filename   string `json:"filename"`
	ExpectedID int    `json:"annID,omitempty"`
	FoundIDs   []int  `json:"anisongDBannID"`
	Reason     string `json:"reason"`
}

// Report is the per-run summary written to the stats file.
type Report struct {
	Successes   int       `json:"successes"`
	Failures    int       `json:"failures"`
	HitRate     float64   `json:"hitRate"`
	FailureList []Failure `json:"failureList"`
}

// ReverseLookup finds the cross-reference IDs of songs by artist and title.
type ReverseLookup interface {
	Reverse(ctx context.Context, artist, songName string) ([]int, error)
}

// Checker verifies files and accumulates the report.
type Checker struct {
	tags      tagging.Reader
	songs     ReverseLookup
	logger    *slog.Logger
	successes int
	failures  []Failure
}

// NewChecker builds a Checker.
func NewChecker(tags tagging.Reader, songs ReverseLookup, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Checker{
		tags:   tags,
		songs:  songs,
		logger: logging.NewComponentLogger(logger, "selftest"),
	}
}

// Check confirms that the tags of the file at path belong to the anime
// with cross-reference ID expected. The error is non-nil only when ctx is
// done; every other problem is recorded as a failure.
func (c *Checker) Check(ctx context.Context, path string, expected int) (bool, error) {
	name := filepath.Base(path)
	existing, err := c.tags.Read(path)
	if err != nil || !existing.Complete() {
		c.fail(Failure{Filename: name, ExpectedID: expected, Reason: ReasonNoTags}, err)
		return false, nil
	}

	found, err := c.songs.Reverse(ctx, existing.Artist, existing.Title)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		c.fail(Failure{Filename: name, ExpectedID: expected, Reason: ReasonLookup}, err)
		return false, nil
	}
	if slices.Contains(found, expected) {
		c.successes++
		return true, nil
	}
	c.fail(Failure{Filename: name, ExpectedID: expected, FoundIDs: found, Reason: ReasonMismatch}, nil)
	return false, nil
}

// NoMatch records a file that could not be resolved at all.
func (c *Checker) NoMatch(path string) {
	c.fail(Failure{Filename: filepath.Base(path), Reason: ReasonUnresolved}, nil)
}

func (c *Checker) fail(failure Failure, err error) {
	if failure.FoundIDs == nil {
		failure.FoundIDs = []int{}
	}
	c.failures = append(c.failures, failure)
	attrs := []logging.Attr{
		logging.String(logging.FieldFile, failure.Filename),
		logging.String("reason", failure.Reason),
		logging.Int("expected_ann_id", failure.ExpectedID),
	}
	if err != nil {
		attrs = append(attrs, logging.Error(err))
	}
	c.logger.Info("self-test failure", logging.Args(attrs...)...)
}

// Report returns the summary so far. HitRate is 0 when nothing was checked.
func (c *Checker) Report() Report {
	report := Report{
		Successes:   c.successes,
		Failures:    len(c.failures),
		FailureList: slices.Clone(c.failures),
	}
	if report.FailureList == nil {
		report.FailureList = []Failure{}
	}
	if total := report.Successes + report.Failures; total > 0 {
		report.HitRate = float64(report.Successes) / float64(total)
	}
	return report
}

// Write stores the report as JSON at path, replacing any previous run.
func Write(path string, report Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal self-test report: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write self-test report: %w", err)
	}
	return nil
}
