package songdb

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"anitag/internal/anime"
	"anitag/internal/logging"
	"anitag/internal/pacer"
	"anitag/internal/textutil"
)

// Resolver turns song database rows into soundtracks.
type Resolver struct {
	client Searcher
	deny   *Denylist
	pacer  *pacer.Pacer
	logger *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithPacer spaces song database calls according to p.
func WithPacer(p *pacer.Pacer) ResolverOption {
	return func(r *Resolver) {
		if p != nil {
			r.pacer = p
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

// NewResolver builds a Resolver. A nil denylist excludes nothing.
func NewResolver(client Searcher, deny *Denylist, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		client: client,
		deny:   deny,
		pacer:  pacer.Unpaced("songdb"),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "songdb")
	return r
}

func (r *Resolver) search(ctx context.Context, req Request) ([]Row, error) {
	var rows []Row
	err := r.pacer.Do(ctx, func(ctx context.Context) error {
		var searchErr error
		rows, searchErr = r.client.Search(ctx, req)
		return searchErr
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ByCrossRef returns the soundtrack of the anime with encyclopedia ID id.
// The ID is searched in every filter; rows belonging to other IDs are
// discarded. A nil soundtrack means the database does not list the anime.
func (r *Resolver) ByCrossRef(ctx context.Context, id int) (*anime.Soundtrack, error) {
	key := strconv.Itoa(id)
	rows, err := r.search(ctx, NewRequest(key, key, key, false))
	if err != nil {
		return nil, fmt.Errorf("songdb lookup for ann id %d: %w", id, err)
	}
	group, ok := Find(GroupRows(rows, r.deny), id)
	if !ok {
		r.logger.Debug("songdb has no rows for ann id",
			logging.Int("ann_id", id),
			logging.Int("rows", len(rows)))
		return nil, nil
	}
	return &group.Music, nil
}

// ByTitle searches by anime name, dropping trailing words until the database
// returns rows. The groups are ranked against anchor's English and default
// titles and the best one meeting req is returned. A nil soundtrack means no
// group qualified.
func (r *Resolver) ByTitle(ctx context.Context, title string, anchor anime.Candidate, req anime.TrackRequirement) (*anime.Soundtrack, error) {
	words := textutil.SplitTitle(textutil.SanitizeEnglishTitle(title))
	var rows []Row
	for len(rows) == 0 && len(words) > 0 {
		query := strings.Join(words, " ")
		found, err := r.search(ctx, NewRequest(query, "", "", false))
		if err != nil {
			return nil, fmt.Errorf("songdb title search %q: %w", query, err)
		}
		rows = found
		words = words[:len(words)-1]
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ranked := RankGroups(GroupRows(rows, r.deny), anchor)
	for _, candidate := range ranked {
		if !req.SatisfiedBy(&candidate.Group.Music) {
			continue
		}
		logging.Decision(r.logger, "soundtrack chosen by title search",
			"songdb_title_fallback", "accepted", "closest name meeting track requirement",
			logging.String("query", title),
			logging.Int("ann_id", candidate.Group.CrossRefID),
			logging.Int("groups", len(ranked)))
		music := candidate.Group.Music
		return &music, nil
	}
	r.logger.Info("no title search group meets track requirement",
		logging.String("query", title),
		logging.Int("groups", len(ranked)),
		logging.Int("required_openings", req.Opening),
		logging.Int("required_endings", req.Ending),
		logging.Int("required_inserts", req.Insert))
	return nil, nil
}

// RankedGroup is a group with its name distances to the anchor titles.
type RankedGroup struct {
	Group        Group
	EnglishDist  int
	JapaneseDist int
}

// RankGroups orders groups by English name distance to anchor's English
// title. When the English distances tie, or either is unknown, the
// Japanese name distance to anchor's default title decides.
func RankGroups(groups []Group, anchor anime.Candidate) []RankedGroup {
	ranked := make([]RankedGroup, 0, len(groups))
	for _, g := range groups {
		rg := RankedGroup{Group: g, EnglishDist: textutil.UnknownDistance, JapaneseDist: textutil.UnknownDistance}
		if g.Music.EnglishName != "" && anchor.EnglishTitle != "" {
			rg.EnglishDist = textutil.EditDistance(textutil.SanitizedKey(g.Music.EnglishName), textutil.SanitizedKey(anchor.EnglishTitle))
		}
		if g.Music.JapaneseName != "" {
			rg.JapaneseDist = textutil.EditDistance(textutil.SanitizedKey(g.Music.JapaneseName), textutil.SanitizedKey(anchor.Title))
		}
		ranked = append(ranked, rg)
	}
	slices.SortStableFunc(ranked, func(a, b RankedGroup) int {
		if a.EnglishDist == b.EnglishDist || a.EnglishDist == textutil.UnknownDistance || b.EnglishDist == textutil.UnknownDistance {
			return cmp.Compare(a.JapaneseDist, b.JapaneseDist)
		}
		return cmp.Compare(a.EnglishDist, b.EnglishDist)
	})
	return ranked
}

// Reverse looks up songs matching both artist and song name and returns the
// distinct encyclopedia IDs they belong to.
func (r *Resolver) Reverse(ctx context.Context, artist, songName string) ([]int, error) {
	rows, err := r.search(ctx, NewRequest("", artist, songName, true))
	if err != nil {
		return nil, fmt.Errorf("songdb reverse lookup: %w", err)
	}
	var ids []int
	for _, row := range rows {
		if !slices.Contains(ids, row.AnnID) {
			ids = append(ids, row.AnnID)
		}
	}
	return ids, nil
}
