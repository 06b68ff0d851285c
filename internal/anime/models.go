package anime

import (
	"slices"
	"time"
)

// Catalog statuses that survive candidate filtering.
const (
	StatusAiring   = "Currently Airing"
	StatusFinished = "Finished Airing"
)

// DateRange is an air-date interval. Either bound may be unknown.
type DateRange struct {
	From *time.Time `json:"from"`
	To   *time.Time `json:"to"`
}

// Candidate is one catalog search hit.
type Candidate struct {
	MalID         int       `json:"malID"`
	Title         string    `json:"title"`
	EnglishTitle  string    `json:"englishTitle,omitempty"`
	JapaneseTitle string    `json:"japaneseTitle,omitempty"`
	Type          string    `json:"type"`
	Year          int       `json:"year"`
	Season        string    `json:"season"`
	Airdate       DateRange `json:"airdate"`
	Genres        []string  `json:"genres"`
	Aliases       []string  `json:"allTitles"`
	Image         string    `json:"image"`
	Status        string    `json:"status"`
	// CrossRefID is the encyclopedia identifier; 0 means unknown.
	CrossRefID int `json:"annID,omitempty"`
}

// HasCrossRef reports whether the candidate carries an encyclopedia ID.
func (c Candidate) HasCrossRef() bool {
	return c.CrossRefID > 0
}

// Listed reports whether the status is airing or finished.
func (c Candidate) Listed() bool {
	return c.Status == StatusAiring || c.Status == StatusFinished
}

// SearchTitles returns the English, default and Japanese titles in that
// order, skipping empty ones.
func (c Candidate) SearchTitles() []string {
	titles := make([]string, 0, 3)
	for _, title := range []string{c.EnglishTitle, c.Title, c.JapaneseTitle} {
		if title != "" {
			titles = append(titles, title)
		}
	}
	return titles
}

// EncyclopediaEntry is one encyclopedia record.
type EncyclopediaEntry struct {
	CrossRefID   int       `json:"annID"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	JapaneseName string    `json:"japaneseName,omitempty"`
	Vintage      time.Time `json:"vintage"`
	// Missing marks an ID the encyclopedia answered without a record, so it
	// is not requested again.
	Missing bool `json:"missing,omitempty"`
}

// SongEntry is a single track of a soundtrack.
type SongEntry struct {
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	Number    int    `json:"number"`
	AudioLink string `json:"audioLink,omitempty"`
}

// Soundtrack is the per-anime set of opening, ending and insert songs.
type Soundtrack struct {
	Opening      []SongEntry `json:"opening"`
	Ending       []SongEntry `json:"ending"`
	Insert       []SongEntry `json:"insert"`
	EnglishName  string      `json:"englishName,omitempty"`
	JapaneseName string      `json:"japaneseName,omitempty"`
}

// Songs returns the sequence for t.
func (s *Soundtrack) Songs(t TrackType) []SongEntry {
	if s == nil {
		return nil
	}
	switch t {
	case Opening:
		return s.Opening
	case Ending:
		return s.Ending
	case Insert:
		return s.Insert
	default:
		return nil
	}
}

// Count returns the number of songs of type t.
func (s *Soundtrack) Count(t TrackType) int {
	return len(s.Songs(t))
}

// Add appends a song to the sequence for t. Unknown types are ignored.
func (s *Soundtrack) Add(t TrackType, song SongEntry) {
	switch t {
	case Opening:
		s.Opening = append(s.Opening, song)
	case Ending:
		s.Ending = append(s.Ending, song)
	case Insert:
		s.Insert = append(s.Insert, song)
	}
}

// Track returns the song of type t whose number equals number.
func (s *Soundtrack) Track(t TrackType, number int) (SongEntry, bool) {
	for _, song := range s.Songs(t) {
		if song.Number == number {
			return song, true
		}
	}
	return SongEntry{}, false
}

// Empty reports whether no songs are listed at all.
func (s *Soundtrack) Empty() bool {
	return s == nil || len(s.Opening)+len(s.Ending)+len(s.Insert) == 0
}

// ResolvedAnime is the record stored in the title cache.
type ResolvedAnime struct {
	Airdate    DateRange  `json:"airdate"`
	CrossRefID int        `json:"annID"`
	Genres     []string   `json:"genres"`
	Image      string     `json:"image"`
	MalID      int        `json:"malID"`
	Music      Soundtrack `json:"music"`
	Season     string     `json:"season"`
	Title      string     `json:"title"`
	Type       string     `json:"type"`
	Year       int        `json:"year"`
}

// Finalize combines a candidate's metadata with the soundtrack chosen for it.
func Finalize(c Candidate, music Soundtrack) ResolvedAnime {
	return ResolvedAnime{
		Airdate:    c.Airdate,
		CrossRefID: c.CrossRefID,
		Genres:     slices.Clone(c.Genres),
		Image:      c.Image,
		MalID:      c.MalID,
		Music:      music,
		Season:     c.Season,
		Title:      c.Title,
		Type:       c.Type,
		Year:       c.Year,
	}
}
