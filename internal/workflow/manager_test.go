package workflow_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/spf13/afero"

	"anitag/internal/anime"
	"anitag/internal/config"
	"anitag/internal/identification"
	"anitag/internal/selftest"
	"anitag/internal/tagging"
	"anitag/internal/workflow"
)

type fakeResolver struct {
	records map[string]anime.ResolvedAnime
	titles  []string
	reqs    map[string]anime.TrackRequirement
	seen    map[string]bool
	onCall  func()
}

func (f *fakeResolver) Resolve(_ context.Context, title string, req anime.TrackRequirement) (identification.Result, error) {
	f.titles = append(f.titles, title)
	if f.onCall != nil {
		f.onCall()
	}
	if f.reqs == nil {
		f.reqs = make(map[string]anime.TrackRequirement)
	}
	f.reqs[title] = req
	record, ok := f.records[title]
	if !ok {
		return identification.Result{Title: title, State: identification.StateUnresolved}, nil
	}
	source := identification.SourceCatalog
	if f.seen[title] {
		source = identification.SourceCache
	}
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	f.seen[title] = true
	return identification.Result{Title: title, State: identification.StateResolved, Source: source, Anime: &record}, nil
}

type fakeTags struct {
	written  map[string]tagging.Metadata
	failOn   string
	existing map[string]tagging.Existing
}

func (f *fakeTags) Write(path string, meta tagging.Metadata) error {
	if path == f.failOn {
		return errors.New("read-only file")
	}
	if f.written == nil {
		f.written = make(map[string]tagging.Metadata)
	}
	f.written[path] = meta
	return nil
}

func (f *fakeTags) Read(path string) (tagging.Existing, error) {
	existing, ok := f.existing[path]
	if !ok {
		return tagging.Existing{}, errors.New("no tags")
	}
	return existing, nil
}

type fakeCovers struct {
	calls int
	err   error
}

func (f *fakeCovers) Ensure(_ context.Context, malID int, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return filepath.Join("/covers", "16498.jpg"), nil
}

type fakeFlusher struct{ flushes int }

func (f *fakeFlusher) Flush(context.Context) error {
	f.flushes++
	return nil
}

type fakeReverse struct{ ids map[string][]int }

func (f fakeReverse) Reverse(_ context.Context, _ string, song string) ([]int, error) {
	return f.ids[song], nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	base := t.TempDir()
	cfg.Paths.LibraryDir = "/library"
	cfg.Paths.CacheDir = filepath.Join(base, "cache")
	cfg.Paths.StatsDir = filepath.Join(base, "stats")
	return &cfg
}

func newLibrary(t *testing.T, names ...string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, name := range names {
		if err := afero.WriteFile(fs, filepath.Join("/library", name), []byte("ID3"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return fs
}

func attackOnTitan() anime.ResolvedAnime {
	return anime.ResolvedAnime{
		MalID:      16498,
		CrossRefID: 14536,
		Title:      "Shingeki no Kyojin",
		Genres:     []string{"Anisong", "Action"},
		Image:      "https://cdn.example/16498.jpg",
		Year:       2013,
		Music: anime.Soundtrack{
			Opening: []anime.SongEntry{
				{Title: "Guren no Yumiya", Artist: "Linked Horizon", Number: 1},
				{Title: "Jiyuu no Tsubasa", Artist: "Linked Horizon", Number: 2},
			},
			Ending: []anime.SongEntry{
				{Title: "Utsukushiki Zankoku na Sekai", Artist: "Yoko Hikasa", Number: 1},
			},
		},
	}
}

func TestRunTagsFilesAndRecordsFailures(t *testing.T) {
	cfg := testConfig(t)
	fs := newLibrary(t,
		"Attack on Titan OP1.mp3",
		"Attack on Titan OP2.mp3",
		"Attack on Titan ED3.mp3",
		"Unknown Show OP1.mp3",
		"bad.mp3",
		"notes.txt",
	)
	resolver := &fakeResolver{records: map[string]anime.ResolvedAnime{"Attack on Titan": attackOnTitan()}}
	tags := &fakeTags{}
	covers := &fakeCovers{}
	titles := &fakeFlusher{}

	manager := workflow.NewManager(cfg, resolver,
		workflow.WithFs(fs),
		workflow.WithTags(tags, tags),
		workflow.WithCovers(covers),
		workflow.WithTitleStore(titles),
		workflow.WithRunIDs(func() string { return "run-1" }),
	)
	summary, err := manager.Run(context.Background(), workflow.RunOptions{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if summary.RunID != "run-1" || summary.Scanned != 5 || summary.Tagged != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.CacheHits != 2 {
		t.Fatalf("expected the second and third Attack on Titan files to hit the cache, got %d", summary.CacheHits)
	}
	for stage, want := range map[string]int{
		workflow.StageParse:   1,
		workflow.StageResolve: 1,
		workflow.StageSelect:  1,
	} {
		if got := len(summary.FailuresIn(stage)); got != want {
			t.Fatalf("expected %d %s failures, got %d (%+v)", want, stage, got, summary.Failures)
		}
	}
	if summary.Failed() != 3 {
		t.Fatalf("expected 3 failures, got %d", summary.Failed())
	}

	if got := resolver.reqs["Attack on Titan"]; got != (anime.TrackRequirement{Opening: 2, Ending: 3}) {
		t.Fatalf("unexpected requirement %+v", got)
	}
	wantOrder := []string{"Attack on Titan", "Attack on Titan", "Attack on Titan", "Unknown Show"}
	if !slices.Equal(resolver.titles, wantOrder) {
		t.Fatalf("unexpected resolve order %v", resolver.titles)
	}

	meta, ok := tags.written["/library/Attack on Titan OP2.mp3"]
	if !ok {
		t.Fatalf("OP2 not tagged: %v", tags.written)
	}
	if meta.Title != "Jiyuu no Tsubasa" || meta.Album != "Shingeki no Kyojin" || meta.TrackNumber != 2 {
		t.Fatalf("unexpected metadata %+v", meta)
	}
	if !slices.Equal(meta.Genres, []string{"Anisong", "Action", "Opening"}) {
		t.Fatalf("unexpected genres %v", meta.Genres)
	}
	if meta.CoverPath == "" {
		t.Fatal("expected cover path")
	}
	if titles.flushes != 1 {
		t.Fatalf("expected one flush, got %d", titles.flushes)
	}
	if _, err := os.Stat(cfg.StatsPath()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("tag run should not write a self-test report: %v", err)
	}
}

func TestRunTagsWithoutCoverWhenDownloadFails(t *testing.T) {
	cfg := testConfig(t)
	fs := newLibrary(t, "Attack on Titan OP1.mp3")
	resolver := &fakeResolver{records: map[string]anime.ResolvedAnime{"Attack on Titan": attackOnTitan()}}
	tags := &fakeTags{}
	covers := &fakeCovers{err: errors.New("404")}

	manager := workflow.NewManager(cfg, resolver, workflow.WithFs(fs), workflow.WithTags(tags, tags), workflow.WithCovers(covers))
	summary, err := manager.Run(context.Background(), workflow.RunOptions{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Tagged != 1 || summary.Failed() != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if meta := tags.written["/library/Attack on Titan OP1.mp3"]; meta.CoverPath != "" {
		t.Fatalf("expected no cover, got %q", meta.CoverPath)
	}
}

func TestRunTagWriteFailureDoesNotAbortBatch(t *testing.T) {
	cfg := testConfig(t)
	fs := newLibrary(t, "Attack on Titan OP1.mp3", "Attack on Titan OP2.mp3")
	resolver := &fakeResolver{records: map[string]anime.ResolvedAnime{"Attack on Titan": attackOnTitan()}}
	tags := &fakeTags{failOn: "/library/Attack on Titan OP2.mp3"}

	manager := workflow.NewManager(cfg, resolver, workflow.WithFs(fs), workflow.WithTags(tags, tags))
	summary, err := manager.Run(context.Background(), workflow.RunOptions{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Tagged != 1 || len(summary.FailuresIn(workflow.StageTag)) != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestRunSelfTestWritesReport(t *testing.T) {
	cfg := testConfig(t)
	fs := newLibrary(t, "Attack on Titan OP1.mp3", "Attack on Titan OP2.mp3", "Unknown Show ED1.mp3")
	resolver := &fakeResolver{records: map[string]anime.ResolvedAnime{"Attack on Titan": attackOnTitan()}}
	tags := &fakeTags{existing: map[string]tagging.Existing{
		"/library/Attack on Titan OP1.mp3": {Artist: "Linked Horizon", Title: "Guren no Yumiya"},
		"/library/Attack on Titan OP2.mp3": {Artist: "Linked Horizon", Title: "Jiyuu no Tsubasa"},
	}}
	reverse := fakeReverse{ids: map[string][]int{
		"Guren no Yumiya":  {14536},
		"Jiyuu no Tsubasa": {9999},
	}}

	manager := workflow.NewManager(cfg, resolver,
		workflow.WithFs(fs),
		workflow.WithTags(tags, tags),
		workflow.WithReverseLookup(reverse),
	)
	summary, err := manager.Run(context.Background(), workflow.RunOptions{SelfTest: true})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(tags.written) != 0 {
		t.Fatalf("self-test must not write tags: %v", tags.written)
	}
	if summary.Verified != 1 || summary.SelfTest == nil {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.SelfTest.Successes != 1 || summary.SelfTest.Failures != 2 {
		t.Fatalf("unexpected report %+v", summary.SelfTest)
	}

	data, err := os.ReadFile(cfg.StatsPath())
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var report selftest.Report
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Successes != 1 || len(report.FailureList) != 2 {
		t.Fatalf("unexpected stored report %+v", report)
	}
}

func TestRunRefusesWhenLocked(t *testing.T) {
	cfg := testConfig(t)
	lock, err := workflow.AcquireLock(cfg.LockPath())
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	t.Cleanup(func() { _ = lock.Release() })

	manager := workflow.NewManager(cfg, &fakeResolver{}, workflow.WithFs(newLibrary(t)))
	if _, err := manager.Run(context.Background(), workflow.RunOptions{}); !errors.Is(err, workflow.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestRunCancelledStillFlushes(t *testing.T) {
	cfg := testConfig(t)
	fs := newLibrary(t, "Attack on Titan OP1.mp3", "Bleach OP1.mp3")
	titles := &fakeFlusher{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	resolver := &fakeResolver{onCall: cancel}

	manager := workflow.NewManager(cfg, resolver, workflow.WithFs(fs), workflow.WithTitleStore(titles))
	if _, err := manager.Run(ctx, workflow.RunOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(resolver.titles) != 1 {
		t.Fatalf("expected the batch to stop after one file, resolved %v", resolver.titles)
	}
	if titles.flushes != 1 {
		t.Fatalf("expected flush after cancellation, got %d", titles.flushes)
	}
}

func TestNormalizeRenamesUnderLock(t *testing.T) {
	cfg := testConfig(t)
	fs := newLibrary(t, "Attack-on-Titan-NCBD1080 OP1.mp3")

	manager := workflow.NewManager(cfg, &fakeResolver{}, workflow.WithFs(fs))
	report, err := manager.Normalize(context.Background(), false)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if len(report.Renamed) != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if ok, _ := afero.Exists(fs, "/library/Attack on Titan OP1.mp3"); !ok {
		t.Fatalf("renamed file missing; report %+v", report)
	}
}
