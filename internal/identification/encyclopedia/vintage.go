package encyclopedia

import (
	"strconv"
	"strings"
	"time"

	"anitag/internal/anime"
)

var (
	// UnresolvedVintageNoInfo is assigned to records that carry no info
	// elements at all.
	UnresolvedVintageNoInfo = time.Date(2099, time.December, 31, 0, 0, 0, 0, time.UTC)
	// UnresolvedVintage is assigned when vintage text is missing or cannot
	// be parsed.
	UnresolvedVintage = time.Date(2035, time.December, 31, 0, 0, 0, 0, time.UTC)
)

// monthOnlyDay is the synthesized day for "YYYY-MM" vintages.
const monthOnlyDay = 25

// ParseVintage converts vintage text into a date. Accepted shapes are
// "YYYY-MM-DD", "YYYY-MM-DD" followed by annotations or a "to YYYY-MM-DD"
// range, "YYYY-MM" (day 25), and "YYYY" (January 1st). Anything else yields
// UnresolvedVintage.
func ParseVintage(text string) time.Time {
	text = strings.TrimSpace(text)
	if text == "" {
		return UnresolvedVintage
	}
	// The leading date is everything before the first space; ranges and
	// annotations follow it.
	head := text
	if i := strings.IndexAny(head, " \t"); i >= 0 {
		head = head[:i]
	}

	parts := strings.Split(head, "-")
	numbers := make([]int, 0, 3)
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return UnresolvedVintage
		}
		numbers = append(numbers, n)
	}

	switch len(numbers) {
	case 1:
		return makeDate(numbers[0], 1, 1)
	case 2:
		return makeDate(numbers[0], numbers[1], monthOnlyDay)
	case 3:
		return makeDate(numbers[0], numbers[1], numbers[2])
	default:
		return UnresolvedVintage
	}
}

func makeDate(year, month, day int) time.Time {
	if year < 1900 || year > 2200 || month < 1 || month > 12 || day < 1 || day > 31 {
		return UnresolvedVintage
	}
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if date.Day() != day {
		return UnresolvedVintage
	}
	return date
}

// isJapaneseAirdate reports whether a vintage line describes the Japanese
// release: either it has no parenthetical annotation or it names Japan.
func isJapaneseAirdate(text string) bool {
	if !strings.Contains(text, "(") {
		return true
	}
	for _, marker := range []string{"(Japan)", "(Japan TV)", "TV Premiere", "Japan - TV"} {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// chooseVintage picks the vintage line to parse. A single line is used as
// is; otherwise the first Japanese release wins.
func chooseVintage(lines []string) (string, bool) {
	if len(lines) == 1 {
		return lines[0], true
	}
	for _, line := range lines {
		if isJapaneseAirdate(line) {
			return line, true
		}
	}
	return "", false
}

// NormalizeType maps the encyclopedia's type labels onto the catalog's.
func NormalizeType(value string) string {
	switch value {
	case "movie":
		return "Movie"
	case "OAV":
		return "OVA"
	default:
		return value
	}
}

// ToEntry converts an API record into an encyclopedia entry.
func ToEntry(record Anime) anime.EncyclopediaEntry {
	entry := anime.EncyclopediaEntry{
		CrossRefID: record.ID,
		Name:       record.Name,
		Type:       NormalizeType(record.Type),
	}
	if len(record.Info) == 0 {
		entry.Vintage = UnresolvedVintageNoInfo
		return entry
	}

	var vintages []string
	for _, info := range record.Info {
		value := strings.TrimSpace(info.Value)
		switch {
		case info.Type == "Alternative title" && info.Lang == "JA":
			entry.JapaneseName = value
		case info.Type == "Vintage":
			vintages = append(vintages, value)
		}
	}

	entry.Vintage = UnresolvedVintage
	if line, ok := chooseVintage(vintages); ok {
		entry.Vintage = ParseVintage(line)
	}
	return entry
}
