package textutil

import (
	"cmp"
	"math"

	"github.com/hbollon/go-edlib"
)

// UnknownDistance marks a distance that could not be computed because one
// side of the comparison is missing. It sorts after every real distance.
const UnknownDistance = math.MaxInt

// EditDistance returns the Levenshtein distance between a and b counted in runes.
func EditDistance(a, b string) int {
	if a == b {
		return 0
	}
	return edlib.LevenshteinDistance(a, b)
}

// intersection counts the tokens of a that also appear somewhere in b.
// Duplicates in a are counted once per occurrence.
func intersection(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(b))
	for _, token := range b {
		set[token] = struct{}{}
	}
	count := 0
	for _, token := range a {
		if _, ok := set[token]; ok {
			count++
		}
	}
	return count
}

// Jaccard returns |A∩B| / (|A| + |B| - |A∩B|). Two empty lists score 0.
func Jaccard(a, b []string) float64 {
	inter := intersection(a, b)
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Dice returns the Sørensen–Dice coefficient 2|A∩B| / (|A| + |B|).
func Dice(a, b []string) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 0
	}
	return 2 * float64(intersection(a, b)) / float64(total)
}

// Overlap returns the overlap coefficient |A∩B| / min(|A|, |B|).
func Overlap(a, b []string) float64 {
	smaller := min(len(a), len(b))
	if smaller == 0 {
		return 0
	}
	return float64(intersection(a, b)) / float64(smaller)
}

// CompareDescending orders two items by key, highest first. Equal keys fall
// back to the ascending edit distance between each item's tie string and ref.
// The result follows the slices.SortFunc convention.
func CompareDescending(aKey, bKey float64, aTie, bTie, ref string) int {
	if aKey == bKey {
		return cmp.Compare(EditDistance(aTie, ref), EditDistance(bTie, ref))
	}
	return cmp.Compare(bKey, aKey)
}
