package songdb

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
)

// Denylist holds artist credits that only appear on English dubs.
type Denylist struct {
	artists []string
}

// NewDenylist builds a denylist from artist names. Blank and repeated names
// are dropped.
func NewDenylist(artists ...string) *Denylist {
	d := &Denylist{}
	for _, artist := range artists {
		artist = strings.TrimSpace(artist)
		if artist == "" || slices.Contains(d.artists, artist) {
			continue
		}
		d.artists = append(d.artists, artist)
	}
	return d
}

// LoadDenylist merges extra with the JSON array of names stored at path.
// A missing file contributes nothing.
func LoadDenylist(path string, extra []string) (*Denylist, error) {
	names := slices.Clone(extra)
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read dub artist list: %w", err)
		case len(strings.TrimSpace(string(data))) > 0:
			var fromFile []string
			if err := json.Unmarshal(data, &fromFile); err != nil {
				return nil, fmt.Errorf("parse dub artist list %s: %w", path, err)
			}
			names = append(names, fromFile...)
		}
	}
	return NewDenylist(names...), nil
}

// Excludes reports whether the credit contains any denylisted artist.
func (d *Denylist) Excludes(credit string) bool {
	if d == nil {
		return false
	}
	for _, artist := range d.artists {
		if strings.Contains(credit, artist) {
			return true
		}
	}
	return false
}

// Len returns the number of denylisted artists.
func (d *Denylist) Len() int {
	if d == nil {
		return 0
	}
	return len(d.artists)
}
