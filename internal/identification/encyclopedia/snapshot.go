package encyclopedia

import (
	"cmp"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"unicode/utf8"

	"anitag/internal/textutil"
)

// ErrSnapshotUnavailable is returned when the local snapshot cannot be read.
var ErrSnapshotUnavailable = errors.New("encyclopedia snapshot unavailable")

// minimumTokenShare is the fraction of query tokens a snapshot name must
// contain to be kept.
const minimumTokenShare = 0.3

// SnapshotItem is one <item> of the reports.xml export.
type SnapshotItem struct {
	ID      int    `xml:"id"`
	Type    string `xml:"type"`
	Name    string `xml:"name"`
	Vintage string `xml:"vintage"`

	clean string
}

type report struct {
	XMLName xml.Name       `xml:"report"`
	Items   []SnapshotItem `xml:"item"`
}

// TitleIndex finds encyclopedia IDs by title.
type TitleIndex interface {
	Search(title string) []SnapshotItem
}

// Snapshot is the in-memory title index built from reports.xml.
type Snapshot struct {
	items []SnapshotItem
}

var _ TitleIndex = (*Snapshot)(nil)

// LoadSnapshot reads and indexes the export at path.
func LoadSnapshot(path string) (*Snapshot, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotUnavailable, err)
	}
	defer file.Close()
	snapshot, err := ParseSnapshot(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSnapshotUnavailable, path, err)
	}
	return snapshot, nil
}

// ParseSnapshot decodes a reports.xml document.
func ParseSnapshot(r io.Reader) (*Snapshot, error) {
	var doc report
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return NewSnapshot(doc.Items), nil
}

// NewSnapshot indexes items.
func NewSnapshot(items []SnapshotItem) *Snapshot {
	indexed := make([]SnapshotItem, len(items))
	for i, item := range items {
		item.Name = strings.TrimSpace(item.Name)
		item.clean = textutil.CleanTitle(item.Name)
		indexed[i] = item
	}
	return &Snapshot{items: indexed}
}

// Len returns the number of indexed items.
func (s *Snapshot) Len() int {
	return len(s.items)
}

type snapshotMatch struct {
	item     SnapshotItem
	score    int
	distance int
}

// Search returns the snapshot items whose cleaned name contains enough of
// the title's tokens. Case-preserved tokens are tried first; cleaned tokens
// only when the first pass finds nothing. Tokens of a single rune are
// ignored. Results are ordered by matched token count, then by edit distance
// to the title.
func (s *Snapshot) Search(title string) []SnapshotItem {
	words := textutil.SplitTitle(title)
	reference := strings.Join(words, " ")
	granularities := [][]string{
		longTokens(words),
		longTokens(textutil.SplitTitle(textutil.CleanTitle(title))),
	}

	for _, tokens := range granularities {
		if len(tokens) == 0 {
			continue
		}
		matches := s.match(tokens, reference)
		if len(matches) == 0 {
			continue
		}
		out := make([]SnapshotItem, len(matches))
		for i, m := range matches {
			out[i] = m.item
		}
		return out
	}
	return nil
}

func (s *Snapshot) match(tokens []string, reference string) []snapshotMatch {
	var matches []snapshotMatch
	for _, item := range s.items {
		score := 0
		for _, token := range tokens {
			if strings.Contains(item.clean, token) {
				score++
			}
		}
		if score == 0 || float64(score)/float64(len(tokens)) < minimumTokenShare {
			continue
		}
		matches = append(matches, snapshotMatch{
			item:     item,
			score:    score,
			distance: textutil.EditDistance(reference, item.clean),
		})
	}
	slices.SortStableFunc(matches, func(a, b snapshotMatch) int {
		if a.score != b.score {
			return cmp.Compare(b.score, a.score)
		}
		return cmp.Compare(a.distance, b.distance)
	})
	return matches
}

func longTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if utf8.RuneCountInString(token) > 1 {
			out = append(out, token)
		}
	}
	return out
}
