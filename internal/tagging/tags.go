// Package tagging writes and reads the ID3v2 tags of tagged audio files.
package tagging

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/gabriel-vasile/mimetype"

	"anitag/internal/anime"
)

// GenreSeparator joins the genre list into the single genre frame.
const GenreSeparator = ";"

const (
	// fallbackCoverMIME is used when the cover bytes are not a known image.
	fallbackCoverMIME = "image/jpeg"
	coverDescription  = "MAL Art"
	trackNumberFrame  = "Track number/Position in set"
)

// Metadata is everything written to one file.
type Metadata struct {
	Album       string
	Genres      []string
	Title       string
	Artist      string
	TrackNumber int
	Year        int
	CoverPath   string
}

// Existing holds the tags read back from a file.
type Existing struct {
	Artist string
	Title  string
	Album  string
}

// Complete reports whether artist and title are both present.
func (e Existing) Complete() bool {
	return strings.TrimSpace(e.Artist) != "" && strings.TrimSpace(e.Title) != ""
}

// Writer writes tags to a file.
type Writer interface {
	Write(path string, meta Metadata) error
}

// Reader reads existing tags from a file.
type Reader interface {
	Read(path string) (Existing, error)
}

// ID3 implements Writer and Reader with ID3v2.4 tags.
type ID3 struct{}

var (
	_ Writer = ID3{}
	_ Reader = ID3{}
)

// MetadataFor builds the tag set for one song of a resolved anime. The track
// type label is appended to the anime's genres.
func MetadataFor(record anime.ResolvedAnime, song anime.SongEntry, kind anime.TrackType, coverPath string) Metadata {
	genres := slices.Clone(record.Genres)
	genres = append(genres, kind.Label())
	return Metadata{
		Album:       record.Title,
		Genres:      genres,
		Title:       song.Title,
		Artist:      song.Artist,
		TrackNumber: song.Number,
		Year:        record.Year,
		CoverPath:   coverPath,
	}
}

// Write replaces every existing frame of the file with meta. A missing
// cover file is skipped; the text frames are still written.
func (ID3) Write(path string, meta Metadata) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("open tags %s: %w", path, err)
	}
	defer tag.Close()

	tag.DeleteAllFrames()
	tag.SetVersion(4)
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)

	tag.SetAlbum(meta.Album)
	tag.SetGenre(strings.Join(meta.Genres, GenreSeparator))
	tag.SetTitle(meta.Title)
	tag.SetArtist(meta.Artist)
	if meta.TrackNumber > 0 {
		tag.AddTextFrame(tag.CommonID(trackNumberFrame), tag.DefaultEncoding(), strconv.Itoa(meta.TrackNumber))
	}
	if meta.Year > 0 {
		tag.SetYear(strconv.Itoa(meta.Year))
	}

	if meta.CoverPath != "" {
		picture, err := os.ReadFile(meta.CoverPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return fmt.Errorf("read cover %s: %w", meta.CoverPath, err)
		default:
			tag.AddAttachedPicture(id3v2.PictureFrame{
				Encoding:    id3v2.EncodingUTF8,
				MimeType:    coverMIME(picture),
				PictureType: id3v2.PTFrontCover,
				Description: coverDescription,
				Picture:     picture,
			})
		}
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("save tags %s: %w", path, err)
	}
	return nil
}

// coverMIME sniffs the picture format; the catalog serves JPEG, PNG and
// WebP covers under the same URL shape.
func coverMIME(picture []byte) string {
	detected := mimetype.Detect(picture)
	if !strings.HasPrefix(detected.String(), "image/") {
		return fallbackCoverMIME
	}
	return detected.String()
}

// Read returns the artist, title and album frames of the file.
func (ID3) Read(path string) (Existing, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return Existing{}, fmt.Errorf("open tags %s: %w", path, err)
	}
	defer tag.Close()
	return Existing{
		Artist: tag.Artist(),
		Title:  tag.Title(),
		Album:  tag.Album(),
	}, nil
}
