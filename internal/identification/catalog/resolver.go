package catalog

import (
	"cmp"
	"context"
	"log/slog"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"anitag/internal/anime"
	"anitag/internal/logging"
	"anitag/internal/pacer"
	"anitag/internal/textutil"
)

// DefaultCandidateLimit is the number of ranked candidates returned.
const DefaultCandidateLimit = 3

// noAliasScore ranks candidates without any usable alias below every real
// Jaccard score.
const noAliasScore = -1.0

// crossRefProviders are the names the catalog uses for the encyclopedia site.
var crossRefProviders = []string{"ANN", "AnimeNewsNetwork", "Anime News Network"}

// aliasTypes are the title kinds matched against the query.
var aliasTypes = []string{"English", "Synonym", "Default"}

// Resolver ranks catalog hits against a title.
type Resolver struct {
	client Searcher
	pacer  *pacer.Pacer
	limit  int
	logger *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithPacer spaces catalog calls according to p.
func WithPacer(p *pacer.Pacer) ResolverOption {
	return func(r *Resolver) {
		if p != nil {
			r.pacer = p
		}
	}
}

// WithLimit overrides the number of returned candidates.
func WithLimit(limit int) ResolverOption {
	return func(r *Resolver) {
		if limit > 0 {
			r.limit = limit
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver builds a Resolver around client.
func NewResolver(client Searcher, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		client: client,
		pacer:  pacer.Unpaced("catalog"),
		limit:  DefaultCandidateLimit,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "catalog")
	return r
}

// Candidates searches the catalog for title and returns the best ranked
// candidates, each with its cross-reference ID when the catalog lists one.
// An empty result with a nil error means nothing matched.
func (r *Resolver) Candidates(ctx context.Context, title string) ([]anime.Candidate, error) {
	var hits []Anime
	err := r.pacer.Do(ctx, func(ctx context.Context) error {
		var searchErr error
		hits, searchErr = r.client.SearchAnime(ctx, title)
		return searchErr
	})
	if err != nil {
		return nil, err
	}

	candidates := make([]anime.Candidate, 0, len(hits))
	for _, hit := range hits {
		candidates = append(candidates, ToCandidate(hit))
	}
	ranked := Rank(title, candidates)
	if len(ranked) > r.limit {
		ranked = ranked[:r.limit]
	}

	r.logger.Debug("catalog candidates ranked",
		logging.String(logging.FieldTitle, title),
		logging.Int("hits", len(hits)),
		logging.Int("candidates", len(ranked)))

	for i := range ranked {
		r.attachCrossRef(ctx, &ranked[i])
	}
	return ranked, nil
}

// attachCrossRef fills CrossRefID from the external links. Failures leave
// the ID unset for the encyclopedia backfill.
func (r *Resolver) attachCrossRef(ctx context.Context, candidate *anime.Candidate) {
	var links []ExternalLink
	err := r.pacer.Do(ctx, func(ctx context.Context) error {
		var linkErr error
		links, linkErr = r.client.ExternalLinks(ctx, candidate.MalID)
		return linkErr
	})
	if err != nil {
		logging.WarnWithContext(r.logger, "catalog external links unavailable", "catalog_links_failed",
			logging.Int("mal_id", candidate.MalID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the encyclopedia snapshot will be searched instead"),
			logging.String(logging.FieldImpact, "cross-reference id resolved by title"))
		return
	}
	if id, ok := CrossRefFromLinks(links); ok {
		candidate.CrossRefID = id
	}
}

// CrossRefFromLinks extracts the encyclopedia ID from the first external
// link whose provider is the encyclopedia site.
func CrossRefFromLinks(links []ExternalLink) (int, bool) {
	for _, link := range links {
		if !slices.Contains(crossRefProviders, link.Name) {
			continue
		}
		parsed, err := url.Parse(link.URL)
		if err != nil {
			return 0, false
		}
		id, err := strconv.Atoi(parsed.Query().Get("id"))
		if err != nil || id <= 0 {
			return 0, false
		}
		return id, true
	}
	return 0, false
}

// ToCandidate maps a raw hit onto the shared candidate record.
func ToCandidate(hit Anime) anime.Candidate {
	from := parseAirdate(hit.Aired.From)
	year := 0
	switch {
	case hit.Year != nil:
		year = *hit.Year
	case from != nil:
		year = from.Year()
	}

	genres := make([]string, 0, 1+len(hit.Genres)+len(hit.ExplicitGenres)+len(hit.Themes))
	genres = append(genres, "Anisong")
	for _, group := range [][]Named{hit.Genres, hit.ExplicitGenres, hit.Themes} {
		for _, genre := range group {
			genres = append(genres, genre.Name)
		}
	}

	var aliases []string
	for _, title := range hit.Titles {
		if slices.Contains(aliasTypes, title.Type) {
			aliases = append(aliases, title.Title)
		}
	}

	return anime.Candidate{
		MalID:         hit.MalID,
		Title:         hit.Title,
		EnglishTitle:  hit.TitleEnglish,
		JapaneseTitle: hit.TitleJapanese,
		Type:          hit.Type,
		Year:          year,
		Season:        hit.Season,
		Airdate:       anime.DateRange{From: from, To: parseAirdate(hit.Aired.To)},
		Genres:        genres,
		Aliases:       aliases,
		Image:         hit.Images.JPG.ImageURL,
		Status:        hit.Status,
	}
}

func parseAirdate(value *string) *time.Time {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(*value))
	if err != nil {
		return nil
	}
	parsed = parsed.UTC()
	return &parsed
}

type scored struct {
	candidate anime.Candidate
	jaccard   float64
	distance  int
}

// Rank drops candidates that are neither airing nor finished and orders the
// rest by best alias Jaccard score (descending), then edit distance of that
// alias to the query, then title length.
func Rank(query string, candidates []anime.Candidate) []anime.Candidate {
	lowered := strings.ToLower(query)
	queryTokens := textutil.SanitizedTokens(query)

	scoredCandidates := make([]scored, 0, len(candidates))
	for _, candidate := range candidates {
		if !candidate.Listed() {
			continue
		}
		jaccard, distance := bestAlias(lowered, queryTokens, candidate.Aliases)
		scoredCandidates = append(scoredCandidates, scored{candidate: candidate, jaccard: jaccard, distance: distance})
	}

	slices.SortStableFunc(scoredCandidates, func(a, b scored) int {
		if a.jaccard != b.jaccard {
			return cmp.Compare(b.jaccard, a.jaccard)
		}
		if a.distance != b.distance {
			return cmp.Compare(a.distance, b.distance)
		}
		return cmp.Compare(utf8.RuneCountInString(a.candidate.Title), utf8.RuneCountInString(b.candidate.Title))
	})

	ranked := make([]anime.Candidate, len(scoredCandidates))
	for i, s := range scoredCandidates {
		ranked[i] = s.candidate
	}
	return ranked
}

// bestAlias returns the highest Jaccard score over all aliases together with
// the edit distance of the alias that achieved it. Equal scores keep the
// smaller distance.
func bestAlias(loweredQuery string, queryTokens []string, aliases []string) (float64, int) {
	bestJaccard := noAliasScore
	bestDistance := textutil.UnknownDistance
	for _, alias := range aliases {
		distance := textutil.EditDistance(loweredQuery, strings.ToLower(alias))
		jaccard := textutil.Jaccard(queryTokens, textutil.SanitizedTokens(alias))
		if jaccard > bestJaccard || (jaccard == bestJaccard && distance < bestDistance) {
			bestJaccard = jaccard
			bestDistance = distance
		}
	}
	return bestJaccard, bestDistance
}
