package songdb

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"anitag/internal/anime"
)

// Group is the soundtrack assembled for one encyclopedia ID.
type Group struct {
	CrossRefID int
	Music      anime.Soundtrack
}

// GroupRows folds rows into one soundtrack per encyclopedia ID, in order of
// first appearance. Songs whose artist is denylisted are skipped but their
// anime still gets a (possibly empty) group. The first non-empty anime names
// seen for an ID are kept. Each sequence is ordered by track number.
func GroupRows(rows []Row, deny *Denylist) []Group {
	var groups []Group
	index := make(map[int]int)
	for _, row := range rows {
		i, ok := index[row.AnnID]
		if !ok {
			i = len(groups)
			index[row.AnnID] = i
			groups = append(groups, Group{CrossRefID: row.AnnID})
		}
		music := &groups[i].Music
		if music.EnglishName == "" {
			music.EnglishName = row.AnimeENName
		}
		if music.JapaneseName == "" {
			music.JapaneseName = row.AnimeJPName
		}
		if deny.Excludes(row.SongArtist) {
			continue
		}
		kind, number, ok := parseSongType(row.SongType)
		if !ok {
			continue
		}
		if number <= 0 {
			number = music.Count(kind) + 1
		}
		music.Add(kind, anime.SongEntry{
			Title:     row.SongName,
			Artist:    row.SongArtist,
			Number:    number,
			AudioLink: row.Audio,
		})
	}

	for i := range groups {
		music := &groups[i].Music
		for _, seq := range [][]anime.SongEntry{music.Opening, music.Ending, music.Insert} {
			slices.SortStableFunc(seq, func(a, b anime.SongEntry) int {
				return cmp.Compare(a.Number, b.Number)
			})
		}
	}
	return groups
}

// Find returns the group for id.
func Find(groups []Group, id int) (Group, bool) {
	for _, g := range groups {
		if g.CrossRefID == id {
			return g, true
		}
	}
	return Group{}, false
}

// parseSongType reads labels like "Opening 2" or "Insert Song". The number is
// 0 when the last word is not numeric.
func parseSongType(label string) (anime.TrackType, int, bool) {
	words := strings.Fields(label)
	if len(words) == 0 {
		return "", 0, false
	}
	kind, ok := anime.ParseTrackType(words[0])
	if !ok {
		return "", 0, false
	}
	number, err := strconv.Atoi(words[len(words)-1])
	if err != nil {
		number = 0
	}
	return kind, number, true
}
