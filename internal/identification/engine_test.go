package identification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"anitag/internal/anime"
	"anitag/internal/kvstore"
)

type fakeCatalog struct {
	candidates []anime.Candidate
	err        error
	calls      int
}

func (f *fakeCatalog) Candidates(context.Context, string) ([]anime.Candidate, error) {
	f.calls++
	out := make([]anime.Candidate, len(f.candidates))
	copy(out, f.candidates)
	return out, f.err
}

type fakeEncyclopedia struct {
	ids   map[int]int
	err   error
	calls int
}

func (f *fakeEncyclopedia) ResolveCrossRef(_ context.Context, c anime.Candidate) (int, bool, error) {
	f.calls++
	if f.err != nil {
		return 0, false, f.err
	}
	id, ok := f.ids[c.MalID]
	return id, ok, nil
}

type fakeSongs struct {
	byID       map[int]*anime.Soundtrack
	byTitle    *anime.Soundtrack
	idErr      error
	idCalls    []int
	titleCalls []anime.Candidate
}

func (f *fakeSongs) ByCrossRef(_ context.Context, id int) (*anime.Soundtrack, error) {
	f.idCalls = append(f.idCalls, id)
	if f.idErr != nil {
		return nil, f.idErr
	}
	return f.byID[id], nil
}

func (f *fakeSongs) ByTitle(_ context.Context, _ string, anchor anime.Candidate, _ anime.TrackRequirement) (*anime.Soundtrack, error) {
	f.titleCalls = append(f.titleCalls, anchor)
	return f.byTitle, nil
}

func soundtrack(openings, endings int) *anime.Soundtrack {
	music := &anime.Soundtrack{}
	for i := 1; i <= openings; i++ {
		music.Add(anime.Opening, anime.SongEntry{Title: "op", Artist: "artist", Number: i})
	}
	for i := 1; i <= endings; i++ {
		music.Add(anime.Ending, anime.SongEntry{Title: "ed", Artist: "artist", Number: i})
	}
	return music
}

func attackOnTitan() anime.Candidate {
	aired := time.Date(2013, time.April, 7, 0, 0, 0, 0, time.UTC)
	return anime.Candidate{
		MalID:        16498,
		Title:        "Shingeki no Kyojin",
		EnglishTitle: "Attack on Titan",
		Type:         "TV",
		Year:         2013,
		Season:       "spring",
		Airdate:      anime.DateRange{From: &aired},
		Genres:       []string{"Anisong", "Action"},
		Status:       anime.StatusFinished,
	}
}

func TestResolveBackfillsCrossRefAndSelectsTrack(t *testing.T) {
	catalog := &fakeCatalog{candidates: []anime.Candidate{attackOnTitan()}}
	encyclopedia := &fakeEncyclopedia{ids: map[int]int{16498: 14536}}
	songs := &fakeSongs{byID: map[int]*anime.Soundtrack{14536: soundtrack(1, 1)}}
	engine := NewEngine(catalog, encyclopedia, songs)

	result, err := engine.Resolve(context.Background(), "Attack on Titan", anime.TrackRequirement{Opening: 1})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if !result.Resolved() || result.Source != SourceCatalog {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Anime.CrossRefID != 14536 || result.Anime.MalID != 16498 {
		t.Fatalf("unexpected identity %+v", result.Anime)
	}
	song, ok := result.Anime.Music.Track(anime.Opening, 1)
	if !ok || song.Number != 1 {
		t.Fatalf("expected opening 1, got %+v (ok=%v)", song, ok)
	}
	want := []State{StateSearchingCatalog, StateValidatingCandidate, StateResolved}
	if len(result.Transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", result.Transitions, want)
	}
	for i := range want {
		if result.Transitions[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", result.Transitions, want)
		}
	}
}

func TestResolveSkipsCandidateFailingRequirement(t *testing.T) {
	first := attackOnTitan()
	first.CrossRefID = 1
	second := attackOnTitan()
	second.MalID = 2
	second.CrossRefID = 2
	catalog := &fakeCatalog{candidates: []anime.Candidate{first, second}}
	songs := &fakeSongs{byID: map[int]*anime.Soundtrack{1: soundtrack(1, 0), 2: soundtrack(2, 0)}}
	encyclopedia := &fakeEncyclopedia{}
	engine := NewEngine(catalog, encyclopedia, songs)

	result, err := engine.Resolve(context.Background(), "Attack on Titan", anime.TrackRequirement{Opening: 2})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if !result.Resolved() || result.Anime.MalID != 2 {
		t.Fatalf("expected second candidate, got %+v", result)
	}
	if len(result.Rejections) != 1 || result.Rejections[0].Reason != reasonTooFewTracks {
		t.Fatalf("unexpected rejections %+v", result.Rejections)
	}
	if encyclopedia.calls != 0 {
		t.Fatal("candidates with a cross-reference id must not be backfilled")
	}
}

func TestResolveInsertCountIgnoredForCandidates(t *testing.T) {
	candidate := attackOnTitan()
	candidate.CrossRefID = 1
	engine := NewEngine(&fakeCatalog{candidates: []anime.Candidate{candidate}}, &fakeEncyclopedia{},
		&fakeSongs{byID: map[int]*anime.Soundtrack{1: soundtrack(1, 1)}})

	result, err := engine.Resolve(context.Background(), "Attack on Titan", anime.TrackRequirement{Opening: 1, Insert: 3})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if result.Source != SourceCatalog {
		t.Fatalf("expected catalog source, got %+v", result)
	}
}

func TestResolveFallbackUsesFirstCandidateAsAnchor(t *testing.T) {
	var candidates []anime.Candidate
	for i := 1; i <= 3; i++ {
		c := attackOnTitan()
		c.MalID = i
		c.CrossRefID = 100 + i
		candidates = append(candidates, c)
	}
	songs := &fakeSongs{
		byID:    map[int]*anime.Soundtrack{101: soundtrack(1, 1), 102: soundtrack(1, 1), 103: soundtrack(1, 1)},
		byTitle: soundtrack(2, 1),
	}
	engine := NewEngine(&fakeCatalog{candidates: candidates}, &fakeEncyclopedia{}, songs)

	result, err := engine.Resolve(context.Background(), "Attack on Titan", anime.TrackRequirement{Opening: 2})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if result.State != StateResolved || result.Source != SourceFallback {
		t.Fatalf("expected fallback resolution, got %+v", result)
	}
	if len(songs.titleCalls) != 1 || songs.titleCalls[0].MalID != 1 {
		t.Fatalf("expected first candidate as anchor, got %+v", songs.titleCalls)
	}
	if result.Anime.MalID != 1 || len(result.Anime.Music.Opening) != 2 {
		t.Fatalf("unexpected record %+v", result.Anime)
	}
	if len(result.Rejections) != 3 {
		t.Fatalf("expected three rejections, got %d", len(result.Rejections))
	}
	if result.Transitions[len(result.Transitions)-2] != StateFallbackSearch {
		t.Fatalf("expected fallback transition, got %v", result.Transitions)
	}
}

func TestResolveUnresolvedIsNotCached(t *testing.T) {
	c := attackOnTitan()
	c.CrossRefID = 1
	songs := &fakeSongs{byID: map[int]*anime.Soundtrack{}}
	engine := NewEngine(&fakeCatalog{candidates: []anime.Candidate{c}}, &fakeEncyclopedia{}, songs)

	result, err := engine.Resolve(context.Background(), "Nothing", anime.TrackRequirement{})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if result.State != StateUnresolved || !errors.Is(result.Err(), ErrUnresolved) {
		t.Fatalf("expected unresolved, got %+v", result)
	}
	if engine.Cache().Len() != 0 {
		t.Fatal("unresolved titles must not be cached")
	}
}

func TestResolveTreatsServiceErrorsAsNoMatch(t *testing.T) {
	engine := NewEngine(&fakeCatalog{err: errors.New("catalog down")}, &fakeEncyclopedia{}, &fakeSongs{})
	result, err := engine.Resolve(context.Background(), "Anything", anime.TrackRequirement{})
	if err != nil {
		t.Fatalf("service failures must not surface as errors: %v", err)
	}
	if result.State != StateUnresolved {
		t.Fatalf("expected unresolved, got %+v", result)
	}

	c := attackOnTitan()
	engine = NewEngine(&fakeCatalog{candidates: []anime.Candidate{c}}, &fakeEncyclopedia{err: errors.New("ann down")},
		&fakeSongs{idErr: errors.New("songdb down")})
	result, err = engine.Resolve(context.Background(), "Anything", anime.TrackRequirement{})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if result.State != StateUnresolved || result.Rejections[0].Reason != reasonCrossRefFailed {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestResolveStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	engine := NewEngine(&fakeCatalog{err: context.Canceled}, &fakeEncyclopedia{}, &fakeSongs{})
	if _, err := engine.Resolve(ctx, "Anything", anime.TrackRequirement{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}

func TestResolveIsIdempotentThroughCache(t *testing.T) {
	catalog := &fakeCatalog{candidates: []anime.Candidate{attackOnTitan()}}
	encyclopedia := &fakeEncyclopedia{ids: map[int]int{16498: 14536}}
	songs := &fakeSongs{byID: map[int]*anime.Soundtrack{14536: soundtrack(1, 1)}}
	cache := kvstore.NewMemory[anime.ResolvedAnime]()
	engine := NewEngine(catalog, encyclopedia, songs, WithTitleCache(cache))

	first, err := engine.Resolve(context.Background(), "Attack on Titan", anime.TrackRequirement{Opening: 1})
	if err != nil {
		t.Fatalf("first Resolve returned error: %v", err)
	}
	calls := catalog.calls + encyclopedia.calls + len(songs.idCalls) + len(songs.titleCalls)

	second, err := engine.Resolve(context.Background(), "Attack on Titan", anime.TrackRequirement{Opening: 1})
	if err != nil {
		t.Fatalf("second Resolve returned error: %v", err)
	}
	if second.Source != SourceCache {
		t.Fatalf("expected cache hit, got %s", second.Source)
	}
	if after := catalog.calls + encyclopedia.calls + len(songs.idCalls) + len(songs.titleCalls); after != calls {
		t.Fatalf("cache hit made %d extra calls", after-calls)
	}

	a, err := json.Marshal(first.Anime)
	if err != nil {
		t.Fatalf("marshal first: %v", err)
	}
	b, err := json.Marshal(second.Anime)
	if err != nil {
		t.Fatalf("marshal second: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("records differ:\n%s\n%s", a, b)
	}
}
