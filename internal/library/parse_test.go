package library

import (
	"errors"
	"testing"

	"anitag/internal/anime"
)

func TestParseName(t *testing.T) {
	tests := []struct {
		name   string
		title  string
		kind   anime.TrackType
		number int
	}{
		{"Attack on Titan OP1.mp3", "Attack on Titan", anime.Opening, 1},
		{"Attack on Titan OP.mp3", "Attack on Titan", anime.Opening, 1},
		{"music/shows/Attack on Titan ED12.mp3", "Attack on Titan", anime.Ending, 12},
		{`C:\anisongs\Re Zero 2nd Season IN3.mp3`, "Re Zero 2nd Season", anime.Insert, 3},
		{"Re:Zero OP2.mp3", "Re:Zero", anime.Opening, 2},
		{"Mob Psycho 100 II ED1.flac", "Mob Psycho 100 II", anime.Ending, 1},
	}
	for _, tt := range tests {
		got, err := ParseName(tt.name)
		if err != nil {
			t.Errorf("ParseName(%q) returned error: %v", tt.name, err)
			continue
		}
		if got.Title != tt.title || got.Type != tt.kind || got.Number != tt.number {
			t.Errorf("ParseName(%q) = %+v", tt.name, got)
		}
		if got.Path != tt.name {
			t.Errorf("ParseName(%q) path = %q", tt.name, got.Path)
		}
	}
}

func TestParseNameRejects(t *testing.T) {
	for _, name := range []string{
		"desktop.ini",
		"OP1.mp3",
		"Attack on Titan.mp3",
		"Attack on Titan OPx.mp3",
		"Attack on Titan OP1 (TV size).mp3",
		"進撃の巨人 OP1.mp3",
	} {
		if _, err := ParseName(name); !errors.Is(err, ErrUnparseable) {
			t.Errorf("ParseName(%q) error = %v, want ErrUnparseable", name, err)
		}
	}
}

func TestTrackLabel(t *testing.T) {
	track := Track{Type: anime.Ending, Number: 3}
	if got := track.Label(); got != "ED3" {
		t.Fatalf("Label() = %q", got)
	}
}
