package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	englishTitlePattern  = regexp.MustCompile(`[^a-zA-Z0-9 ]`)
	japaneseTitlePattern = regexp.MustCompile(`[^a-zA-Z0-9 \x{3000}-\x{303F}\x{3040}-\x{309F}\x{30A0}-\x{30FF}\x{FF00}-\x{FFEF}\x{4E00}-\x{9FAF}\x{2605}-\x{2606}\x{2190}-\x{2195}\x{203B}]`)
)

// SanitizeEnglishTitle replaces every rune outside [A-Za-z0-9 ] with a space.
// Token boundaries are preserved; callers split and drop empty tokens.
func SanitizeEnglishTitle(title string) string {
	return englishTitlePattern.ReplaceAllString(title, " ")
}

// SanitizeJapaneseTitle is SanitizeEnglishTitle extended with the kana, kanji,
// CJK punctuation and fullwidth ranges.
func SanitizeJapaneseTitle(title string) string {
	return japaneseTitlePattern.ReplaceAllString(title, " ")
}

// SplitTitle splits on single spaces and drops empty tokens.
func SplitTitle(title string) []string {
	parts := strings.Split(title, " ")
	out := parts[:0]
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// CleanTitle folds a title into lowercase ASCII tokens joined by single
// spaces. Accented letters are decomposed first so "Pokémon" becomes "pokemon".
func CleanTitle(title string) string {
	folded, _, err := transform.String(accentFolder(), title)
	if err != nil {
		folded = title
	}
	return strings.Join(SplitTitle(strings.ToLower(SanitizeEnglishTitle(folded))), " ")
}

// accentFolder decomposes runes and drops the combining marks. Transformers
// carry state, so each call gets a fresh chain.
func accentFolder() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// SanitizedTokens lowercases the English-sanitized title and returns its tokens.
func SanitizedTokens(title string) []string {
	return SplitTitle(strings.ToLower(SanitizeEnglishTitle(title)))
}

// SanitizedKey is SanitizedTokens joined back with single spaces.
func SanitizedKey(title string) string {
	return strings.Join(SanitizedTokens(title), " ")
}
