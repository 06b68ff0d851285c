package library

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"anitag/internal/anime"
)

// ErrUnparseable marks filenames that do not end in a track code.
var ErrUnparseable = errors.New("filename is not a recognised track name")

var (
	// trackNamePattern is the loose shape a track filename must contain.
	trackNamePattern = regexp.MustCompile(`[A-Za-z0-9 !?"'%&$#º+-]+ (OP|ED|IN)(\d+)?`)
	trackCodePattern = regexp.MustCompile(`^(OP|ED|IN)(\d+)?$`)
)

// Track is a parsed audio file.
type Track struct {
	Path   string
	Title  string
	Type   anime.TrackType
	Number int
}

// Label renders the track the way it appears in filenames, e.g. "OP2".
func (t Track) Label() string {
	return t.Type.Code() + strconv.Itoa(t.Number)
}

// baseName strips directories written with either separator.
func baseName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		return name[i+1:]
	}
	return name
}

// ParseName reads the anime title, track type and track number from a
// filename such as "Attack on Titan OP2.mp3". A missing number means 1.
func ParseName(name string) (Track, error) {
	base := baseName(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if !trackNamePattern.MatchString(stem) {
		return Track{}, fmt.Errorf("%w: %q", ErrUnparseable, base)
	}
	i := strings.LastIndex(stem, " ")
	if i <= 0 {
		return Track{}, fmt.Errorf("%w: %q", ErrUnparseable, base)
	}
	title, code := strings.TrimSpace(stem[:i]), stem[i+1:]
	match := trackCodePattern.FindStringSubmatch(code)
	if match == nil || title == "" {
		return Track{}, fmt.Errorf("%w: %q", ErrUnparseable, base)
	}
	kind, ok := anime.ParseTrackType(match[1])
	if !ok {
		return Track{}, fmt.Errorf("%w: %q", ErrUnparseable, base)
	}
	number := 1
	if match[2] != "" {
		n, err := strconv.Atoi(match[2])
		if err != nil {
			return Track{}, fmt.Errorf("%w: %q: %v", ErrUnparseable, base, err)
		}
		number = n
	}
	return Track{Path: name, Title: title, Type: kind, Number: number}, nil
}
