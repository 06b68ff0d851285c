package identification

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"anitag/internal/anime"
	"anitag/internal/kvstore"
	"anitag/internal/logging"
)

// ErrUnresolved is returned by Must-style callers when a title could not be
// matched. Resolve itself reports this through Result.State.
var ErrUnresolved = errors.New("title unresolved")

// CatalogResolver returns ranked catalog candidates for a title.
type CatalogResolver interface {
	Candidates(ctx context.Context, title string) ([]anime.Candidate, error)
}

// CrossRefResolver backfills a missing cross-reference ID.
type CrossRefResolver interface {
	ResolveCrossRef(ctx context.Context, candidate anime.Candidate) (int, bool, error)
}

// SoundtrackResolver looks up soundtracks in the song database.
type SoundtrackResolver interface {
	ByCrossRef(ctx context.Context, id int) (*anime.Soundtrack, error)
	ByTitle(ctx context.Context, title string, anchor anime.Candidate, req anime.TrackRequirement) (*anime.Soundtrack, error)
}

// Result is the outcome of one Resolve call.
type Result struct {
	Title       string
	State       State
	Source      Source
	Anime       *anime.ResolvedAnime
	Transitions []State
	Rejections  []Rejection
}

// Resolved reports whether a record was produced.
func (r Result) Resolved() bool {
	return r.State == StateResolved && r.Anime != nil
}

// Err returns ErrUnresolved for unresolved results and nil otherwise.
func (r Result) Err() error {
	if r.Resolved() {
		return nil
	}
	return ErrUnresolved
}

// Engine reconciles the catalog, encyclopedia and song database into one
// resolved anime per filename-derived title.
type Engine struct {
	catalog      CatalogResolver
	encyclopedia CrossRefResolver
	songs        SoundtrackResolver
	cache        kvstore.Store[anime.ResolvedAnime]
	logger       *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTitleCache sets the store that maps titles to resolved records.
func WithTitleCache(cache kvstore.Store[anime.ResolvedAnime]) EngineOption {
	return func(e *Engine) {
		if cache != nil {
			e.cache = cache
		}
	}
}

// NewEngine wires the three resolvers. Without WithTitleCache an in-memory
// cache is used.
func NewEngine(catalog CatalogResolver, encyclopedia CrossRefResolver, songs SoundtrackResolver, opts ...EngineOption) *Engine {
	e := &Engine{
		catalog:      catalog,
		encyclopedia: encyclopedia,
		songs:        songs,
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cache == nil {
		e.cache = kvstore.NewMemory[anime.ResolvedAnime]()
	}
	e.logger = logging.NewComponentLogger(e.logger, "engine")
	return e
}

// Cache returns the title cache.
func (e *Engine) Cache() kvstore.Store[anime.ResolvedAnime] {
	return e.cache
}

// run carries the state of one Resolve call.
type run struct {
	ctx    context.Context
	title  string
	req    anime.TrackRequirement
	logger *slog.Logger
	result Result
}

func (r *run) enter(state State) {
	r.result.State = state
	r.result.Transitions = append(r.result.Transitions, state)
}

func (r *run) reject(candidate anime.Candidate, reason string) {
	r.result.Rejections = append(r.result.Rejections, Rejection{MalID: candidate.MalID, Title: candidate.Title, Reason: reason})
	logging.Decision(r.logger, "catalog candidate rejected",
		"candidate_validation", "rejected", reason,
		logging.Int("mal_id", candidate.MalID),
		logging.String("candidate_title", candidate.Title),
		logging.Int("ann_id", candidate.CrossRefID))
}

// Resolve matches title to one anime and its soundtrack. A cached record is
// returned without any network call. External-service failures are logged
// and treated as no-match for the affected step, so the returned error is
// only non-nil when ctx is done. Unresolved titles are not cached.
func (e *Engine) Resolve(ctx context.Context, title string, req anime.TrackRequirement) (Result, error) {
	title = strings.TrimSpace(title)
	r := &run{
		ctx:    ctx,
		title:  title,
		req:    req,
		logger: e.logger.With(logging.String(logging.FieldTitle, title)),
		result: Result{Title: title},
	}

	if cached, ok := e.cache.Get(title); ok {
		r.enter(StateResolved)
		r.result.Source = SourceCache
		r.result.Anime = &cached
		r.logger.Debug("title cache hit", logging.Int("mal_id", cached.MalID))
		return r.result, nil
	}

	r.enter(StateSearchingCatalog)
	candidates, err := e.catalog.Candidates(ctx, title)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return r.result, ctxErr
		}
		logging.WarnWithContext(r.logger, "catalog search failed", "catalog_search_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check network access to the catalog API"),
			logging.String(logging.FieldImpact, "title left unresolved"))
		candidates = nil
	}
	if len(candidates) == 0 {
		r.enter(StateUnresolved)
		r.logger.Info("catalog returned no candidates")
		return r.result, nil
	}

	r.enter(StateValidatingCandidate)
	for i := range candidates {
		music, err := e.validate(r, &candidates[i])
		if err != nil {
			return r.result, err
		}
		if music == nil {
			continue
		}
		return e.accept(r, candidates[i], *music, SourceCatalog), nil
	}

	r.enter(StateFallbackSearch)
	reference := candidates[0]
	logging.Decision(r.logger, "no candidate validated; searching song database by title",
		"resolution_fallback", "entered", "every catalog candidate rejected",
		logging.Int("reference_mal_id", reference.MalID),
		logging.String("reference_title", reference.Title),
		logging.Int("candidates", len(candidates)))

	music, err := e.songs.ByTitle(ctx, title, reference, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return r.result, ctxErr
		}
		logging.WarnWithContext(r.logger, "song database title search failed", "songdb_title_search_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check network access to the song database"),
			logging.String(logging.FieldImpact, "title left unresolved"))
		music = nil
	}
	if music == nil {
		r.enter(StateUnresolved)
		r.logger.Info("title unresolved", logging.Int("rejections", len(r.result.Rejections)))
		return r.result, nil
	}
	return e.accept(r, reference, *music, SourceFallback), nil
}

// validate backfills the candidate's cross-reference ID when needed and
// returns its soundtrack when it meets the opening and ending requirement.
// A nil soundtrack means the candidate was rejected.
func (e *Engine) validate(r *run, candidate *anime.Candidate) (*anime.Soundtrack, error) {
	if !candidate.HasCrossRef() {
		id, ok, err := e.encyclopedia.ResolveCrossRef(r.ctx, *candidate)
		switch {
		case err != nil:
			if ctxErr := r.ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logging.WarnWithContext(r.logger, "cross-reference backfill failed", "crossref_backfill_failed",
				logging.Int("mal_id", candidate.MalID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the encyclopedia API and snapshot"),
				logging.String(logging.FieldImpact, "candidate skipped"))
			r.reject(*candidate, reasonCrossRefFailed)
			return nil, nil
		case !ok:
			r.reject(*candidate, reasonNoCrossRef)
			return nil, nil
		}
		candidate.CrossRefID = id
	}

	music, err := e.songs.ByCrossRef(r.ctx, candidate.CrossRefID)
	if err != nil {
		if ctxErr := r.ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logging.WarnWithContext(r.logger, "song database lookup failed", "songdb_lookup_failed",
			logging.Int("ann_id", candidate.CrossRefID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check network access to the song database"),
			logging.String(logging.FieldImpact, "candidate skipped"))
		r.reject(*candidate, reasonLookupFailed)
		return nil, nil
	}
	if music == nil {
		r.reject(*candidate, reasonNoSoundtrack)
		return nil, nil
	}
	if !r.req.ThemesSatisfiedBy(music) {
		r.reject(*candidate, reasonTooFewTracks)
		return nil, nil
	}
	return music, nil
}

func (e *Engine) accept(r *run, candidate anime.Candidate, music anime.Soundtrack, source Source) Result {
	resolved := anime.Finalize(candidate, music)
	e.cache.Put(r.title, resolved)

	r.enter(StateResolved)
	r.result.Source = source
	r.result.Anime = &resolved
	logging.Decision(r.logger, "title resolved",
		"resolution", "accepted", string(source),
		logging.Int("mal_id", resolved.MalID),
		logging.Int("ann_id", resolved.CrossRefID),
		logging.String("anime_title", resolved.Title),
		logging.Int("openings", len(music.Opening)),
		logging.Int("endings", len(music.Ending)),
		logging.Int("inserts", len(music.Insert)))
	return r.result
}
