package anime

import "strings"

// TrackType identifies which soundtrack sequence a song belongs to.
type TrackType string

const (
	Opening TrackType = "opening"
	Ending  TrackType = "ending"
	Insert  TrackType = "insert"
)

// TrackTypes lists every track type in soundtrack order.
var TrackTypes = []TrackType{Opening, Ending, Insert}

// ParseTrackType accepts the long names used by the song database
// ("Opening", "ending") and the short filename codes ("OP", "ED", "IN").
func ParseTrackType(value string) (TrackType, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "opening", "op":
		return Opening, true
	case "ending", "ed":
		return Ending, true
	case "insert", "in":
		return Insert, true
	default:
		return "", false
	}
}

// Code returns the two-letter filename code.
func (t TrackType) Code() string {
	switch t {
	case Opening:
		return "OP"
	case Ending:
		return "ED"
	case Insert:
		return "IN"
	default:
		return ""
	}
}

// Label returns the capitalized name written into genre tags.
func (t TrackType) Label() string {
	switch t {
	case Opening:
		return "Opening"
	case Ending:
		return "Ending"
	case Insert:
		return "Insert"
	default:
		return string(t)
	}
}

// TrackRequirement holds the highest track number observed on disk for each
// track type of one title.
type TrackRequirement struct {
	Opening int `json:"opening"`
	Ending  int `json:"ending"`
	Insert  int `json:"insert"`
}

// Get returns the requirement for a single type.
func (r TrackRequirement) Get(t TrackType) int {
	switch t {
	case Opening:
		return r.Opening
	case Ending:
		return r.Ending
	case Insert:
		return r.Insert
	default:
		return 0
	}
}

// Observe raises the requirement for t to number when number is larger.
func (r *TrackRequirement) Observe(t TrackType, number int) {
	switch t {
	case Opening:
		r.Opening = max(r.Opening, number)
	case Ending:
		r.Ending = max(r.Ending, number)
	case Insert:
		r.Insert = max(r.Insert, number)
	}
}

// ThemesSatisfiedBy reports whether the soundtrack lists at least as many
// openings and endings as required. Insert songs are not checked; catalog
// candidates are validated with this looser bar.
func (r TrackRequirement) ThemesSatisfiedBy(s *Soundtrack) bool {
	if s == nil {
		return false
	}
	return len(s.Opening) >= r.Opening && len(s.Ending) >= r.Ending
}

// SatisfiedBy is ThemesSatisfiedBy extended to insert songs.
func (r TrackRequirement) SatisfiedBy(s *Soundtrack) bool {
	return r.ThemesSatisfiedBy(s) && len(s.Insert) >= r.Insert
}

// Requirements maps filename-derived titles to their TrackRequirement.
type Requirements map[string]TrackRequirement

// Observe folds one parsed filename into the map.
func (m Requirements) Observe(title string, t TrackType, number int) {
	req := m[title]
	req.Observe(t, number)
	m[title] = req
}

// For returns the requirement recorded for title, or the zero requirement.
func (m Requirements) For(title string) TrackRequirement {
	return m[title]
}
