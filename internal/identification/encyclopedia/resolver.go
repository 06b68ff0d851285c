package encyclopedia

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"anitag/internal/anime"
	"anitag/internal/kvstore"
	"anitag/internal/logging"
	"anitag/internal/pacer"
)

// MaxBatchSize is the largest number of IDs the API accepts per request.
const MaxBatchSize = 50

// Resolver looks up encyclopedia entries and resolves cross-reference IDs.
type Resolver struct {
	client     Fetcher
	index      TitleIndex
	cache      kvstore.Store[anime.EncyclopediaEntry]
	pacer      *pacer.Pacer
	batchSize  int
	maxMatches int
	logger     *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithPacer spaces batch requests according to p.
func WithPacer(p *pacer.Pacer) ResolverOption {
	return func(r *Resolver) {
		if p != nil {
			r.pacer = p
		}
	}
}

// WithBatchSize lowers the number of IDs fetched per request.
func WithBatchSize(size int) ResolverOption {
	return func(r *Resolver) {
		if size > 0 && size <= MaxBatchSize {
			r.batchSize = size
		}
	}
}

// WithMaxMatches caps how many snapshot matches are fetched per title.
// Zero keeps every match.
func WithMaxMatches(limit int) ResolverOption {
	return func(r *Resolver) {
		if limit >= 0 {
			r.maxMatches = limit
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

// NewResolver builds a Resolver. cache holds entries keyed by decimal ID and
// is never invalidated.
func NewResolver(client Fetcher, index TitleIndex, cache kvstore.Store[anime.EncyclopediaEntry], opts ...ResolverOption) *Resolver {
	r := &Resolver{
		client:    client,
		index:     index,
		cache:     cache,
		pacer:     pacer.Unpaced("encyclopedia"),
		batchSize: MaxBatchSize,
		logger:    logging.NewNop(),
	}
	if r.cache == nil {
		r.cache = kvstore.NewMemory[anime.EncyclopediaEntry]()
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "encyclopedia")
	return r
}

func cacheKey(id int) string {
	return strconv.Itoa(id)
}

// Entries returns the entries for ids in the same order, fetching uncached
// IDs in batches. IDs the API does not know are omitted and remembered as
// missing. The cache is flushed after every batch.
func (r *Resolver) Entries(ctx context.Context, ids []int) ([]anime.EncyclopediaEntry, error) {
	var missing []int
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := r.cache.Get(cacheKey(id)); !ok {
			missing = append(missing, id)
		}
	}

	for start := 0; start < len(missing); start += r.batchSize {
		batch := missing[start:min(start+r.batchSize, len(missing))]
		if err := r.fetchBatch(ctx, batch); err != nil {
			return nil, err
		}
	}

	entries := make([]anime.EncyclopediaEntry, 0, len(ids))
	for _, id := range ids {
		if entry, ok := r.cache.Get(cacheKey(id)); ok && !entry.Missing {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (r *Resolver) fetchBatch(ctx context.Context, batch []int) error {
	var records []Anime
	err := r.pacer.Do(ctx, func(ctx context.Context) error {
		var fetchErr error
		records, fetchErr = r.client.FetchAnime(ctx, batch)
		return fetchErr
	})
	if err != nil {
		return fmt.Errorf("fetch encyclopedia batch of %d: %w", len(batch), err)
	}
	received := make(map[int]struct{}, len(records))
	for _, record := range records {
		entry := ToEntry(record)
		r.cache.Put(cacheKey(entry.CrossRefID), entry)
		received[entry.CrossRefID] = struct{}{}
	}
	missing := 0
	for _, id := range batch {
		if _, ok := received[id]; !ok {
			r.cache.Put(cacheKey(id), anime.EncyclopediaEntry{CrossRefID: id, Missing: true})
			missing++
		}
	}
	r.logger.Debug("encyclopedia batch fetched",
		logging.Int("requested", len(batch)),
		logging.Int("received", len(records)),
		logging.Int("missing", missing))
	if err := r.cache.Flush(ctx); err != nil {
		return fmt.Errorf("flush encyclopedia cache: %w", err)
	}
	return nil
}

// ResolveCrossRef searches the snapshot with the candidate's English,
// default, and Japanese titles in turn and returns the ID of the best
// re-ranked entry for the first title that yields any entry.
func (r *Resolver) ResolveCrossRef(ctx context.Context, candidate anime.Candidate) (int, bool, error) {
	for _, title := range candidate.SearchTitles() {
		items := r.index.Search(title)
		if r.maxMatches > 0 && len(items) > r.maxMatches {
			items = items[:r.maxMatches]
		}
		if len(items) == 0 {
			continue
		}
		ids := make([]int, len(items))
		for i, item := range items {
			ids[i] = item.ID
		}

		entries, err := r.Entries(ctx, ids)
		if err != nil {
			return 0, false, err
		}
		ranked := Rerank(entries, candidate.Airdate.From, candidate.Type, title)
		if len(ranked) == 0 {
			continue
		}

		best := ranked[0]
		logging.Decision(r.logger, "cross-reference resolved from snapshot",
			"encyclopedia_backfill", "accepted", "best re-ranked entry",
			logging.Int("mal_id", candidate.MalID),
			logging.String("search_title", title),
			logging.Int("ann_id", best.Entry.CrossRefID),
			logging.String("ann_name", best.Entry.Name),
			logging.String("score", strconv.FormatFloat(best.Score, 'f', 2, 64)),
			logging.Int("entries", len(ranked)))
		return best.Entry.CrossRefID, true, nil
	}
	return 0, false, nil
}
