package library

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"anitag/internal/anime"
)

// DefaultExtensions lists the audio extensions scanned by default.
var DefaultExtensions = []string{".mp3"}

// Listing is the result of a scan.
type Listing struct {
	Tracks      []Track
	Unparseable []string
}

// Scan lists the audio files under root whose extension is in extensions
// (case-insensitive) and parses their names. Files that do not parse are
// returned in Unparseable rather than failing the scan.
func Scan(ctx context.Context, fs afero.Fs, root string, extensions []string) (Listing, error) {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	var listing Listing
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if info.IsDir() || !hasExtension(path, extensions) {
			return nil
		}
		track, parseErr := ParseName(path)
		if parseErr != nil {
			if errors.Is(parseErr, ErrUnparseable) {
				listing.Unparseable = append(listing.Unparseable, path)
				return nil
			}
			return parseErr
		}
		listing.Tracks = append(listing.Tracks, track)
		return nil
	})
	if err != nil {
		return Listing{}, fmt.Errorf("scan library %s: %w", root, err)
	}
	return listing, nil
}

func hasExtension(path string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range extensions {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}

// Requirements records, per title, the highest track number seen for each
// track type.
func Requirements(tracks []Track) anime.Requirements {
	reqs := make(anime.Requirements)
	for _, track := range tracks {
		reqs.Observe(track.Title, track.Type, track.Number)
	}
	return reqs
}

// Order sorts tracks by title and, within a title, by descending track
// number so the file with the highest number resolves the title first.
// Titles compare with English collation.
func Order(tracks []Track) {
	collator := collate.New(language.English)
	slices.SortStableFunc(tracks, func(a, b Track) int {
		if a.Title != b.Title {
			if c := collator.CompareString(a.Title, b.Title); c != 0 {
				return c
			}
			return cmp.Compare(a.Title, b.Title)
		}
		return cmp.Compare(b.Number, a.Number)
	})
}
