package encyclopedia

import (
	"testing"
	"time"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestParseVintage(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"2013-04-07", date(2013, time.April, 7)},
		{"2013-04-07 (Japan)", date(2013, time.April, 7)},
		{"2013-04-07 to 2013-09-28", date(2013, time.April, 7)},
		{"2013-04-07 to 2013-09-28 (Japan-TV)", date(2013, time.April, 7)},
		{"2016-04", date(2016, time.April, 25)},
		{"1998", date(1998, time.January, 1)},
		{"", UnresolvedVintage},
		{"sometime in spring", UnresolvedVintage},
		{"2013-02-30", UnresolvedVintage},
		{"2013-13-01", UnresolvedVintage},
		{"2013-04-07-01", UnresolvedVintage},
	}
	for _, tt := range tests {
		if got := ParseVintage(tt.input); !got.Equal(tt.want) {
			t.Errorf("ParseVintage(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestSentinelsAreDistinct(t *testing.T) {
	if UnresolvedVintage.Equal(UnresolvedVintageNoInfo) {
		t.Fatal("sentinels must stay distinct")
	}
	if UnresolvedVintage.Year() != 2035 || UnresolvedVintageNoInfo.Year() != 2099 {
		t.Fatalf("unexpected sentinel years %d/%d", UnresolvedVintage.Year(), UnresolvedVintageNoInfo.Year())
	}
}

func TestToEntryPrefersJapaneseVintage(t *testing.T) {
	record := Anime{
		ID:   14536,
		Name: "Attack on Titan",
		Type: "TV",
		Info: []Info{
			{Type: "Main title", Lang: "EN", Value: "Attack on Titan"},
			{Type: "Alternative title", Lang: "JA", Value: "進撃の巨人"},
			{Type: "Vintage", Value: "2014-04-12 (United States)"},
			{Type: "Vintage", Value: "2013-04-07 to 2013-09-28 (Japan TV)"},
		},
	}
	entry := ToEntry(record)
	if entry.JapaneseName != "進撃の巨人" {
		t.Fatalf("unexpected japanese name %q", entry.JapaneseName)
	}
	if !entry.Vintage.Equal(date(2013, time.April, 7)) {
		t.Fatalf("unexpected vintage %v", entry.Vintage)
	}
}

func TestToEntrySingleVintageUsedAsIs(t *testing.T) {
	entry := ToEntry(Anime{ID: 1, Name: "X", Type: "movie", Info: []Info{{Type: "Vintage", Value: "2001-07-20 (United States)"}}})
	if !entry.Vintage.Equal(date(2001, time.July, 20)) {
		t.Fatalf("unexpected vintage %v", entry.Vintage)
	}
	if entry.Type != "Movie" {
		t.Fatalf("expected normalized type, got %q", entry.Type)
	}
}

func TestToEntrySentinels(t *testing.T) {
	noInfo := ToEntry(Anime{ID: 1, Name: "X", Type: "OAV"})
	if !noInfo.Vintage.Equal(UnresolvedVintageNoInfo) {
		t.Fatalf("expected no-info sentinel, got %v", noInfo.Vintage)
	}
	if noInfo.Type != "OVA" {
		t.Fatalf("expected OVA, got %q", noInfo.Type)
	}

	noVintage := ToEntry(Anime{ID: 2, Name: "Y", Info: []Info{{Type: "Genres", Value: "drama"}}})
	if !noVintage.Vintage.Equal(UnresolvedVintage) {
		t.Fatalf("expected unresolved sentinel, got %v", noVintage.Vintage)
	}

	foreignOnly := ToEntry(Anime{ID: 3, Name: "Z", Info: []Info{
		{Type: "Vintage", Value: "2010-01-01 (France)"},
		{Type: "Vintage", Value: "2011-01-01 (Germany)"},
	}})
	if !foreignOnly.Vintage.Equal(UnresolvedVintage) {
		t.Fatalf("expected unresolved sentinel, got %v", foreignOnly.Vintage)
	}
}
