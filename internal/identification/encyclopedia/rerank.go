package encyclopedia

import (
	"math"
	"slices"
	"time"

	"anitag/internal/anime"
	"anitag/internal/textutil"
)

// proximityWindowDays is the air-date distance at which a score turns
// negative.
const proximityWindowDays = 100.0

// Ranked is an encyclopedia entry scored against a catalog candidate.
type Ranked struct {
	Entry    anime.EncyclopediaEntry
	DaysDiff float64
	Score    float64
}

// Score rates how well entry matches a candidate aired on airdate with the
// given type, looked up under title.
//
// The score is (100 - daysDiff) / editDistance(title, name). A type mismatch
// halves a positive score and doubles a negative one. An exact name match
// divides by zero: -Inf is then promoted to +Inf so exact names always lead,
// and the 0/0 case is treated the same way. A nil airdate counts as the Unix
// epoch.
func Score(entry anime.EncyclopediaEntry, airdate *time.Time, expectedType, title string) Ranked {
	reference := time.Unix(0, 0).UTC()
	if airdate != nil {
		reference = *airdate
	}
	days := math.Abs(float64(reference.Sub(entry.Vintage))) / float64(24*time.Hour)
	score := (proximityWindowDays - days) / float64(textutil.EditDistance(title, entry.Name))

	if entry.Type != expectedType {
		if score > 0 {
			score /= 2
		} else {
			score *= 2
		}
	}
	if math.IsInf(score, -1) || math.IsNaN(score) {
		score = math.Inf(1)
	}
	return Ranked{Entry: entry, DaysDiff: days, Score: score}
}

// Rerank scores every entry and orders them best first. Equal scores are
// broken by ascending edit distance between the entry name and title.
func Rerank(entries []anime.EncyclopediaEntry, airdate *time.Time, expectedType, title string) []Ranked {
	ranked := make([]Ranked, 0, len(entries))
	for _, entry := range entries {
		ranked = append(ranked, Score(entry, airdate, expectedType, title))
	}
	slices.SortStableFunc(ranked, func(a, b Ranked) int {
		return textutil.CompareDescending(a.Score, b.Score, a.Entry.Name, b.Entry.Name, title)
	})
	return ranked
}
