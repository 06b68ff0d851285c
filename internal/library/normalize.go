package library

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"github.com/spf13/afero"

	"anitag/internal/logging"
)

const (
	rawReleaseTag = "-NCBD1080"
	ignoredFile   = "desktop.ini"
)

var camelJoin = regexp.MustCompile(`[a-z][A-Z]`)

// seasonMarkers trigger the season rewrite.
var seasonMarkers = []string{"S2", "S3", "S4", "S5", "S6", "S7"}

func seasonLabel(n int) string {
	switch n {
	case 2:
		return "2nd Season"
	case 3:
		return "3rd Season"
	default:
		return strconv.Itoa(n) + "th Season"
	}
}

func splitCamel(name string) string {
	return camelJoin.ReplaceAllStringFunc(name, func(m string) string {
		return m[:1] + " " + m[1:]
	})
}

// transliterate folds non-ASCII runes into ASCII so the parser accepts the
// name. "º" is left alone because filenames may legitimately use it.
func transliterate(name string) string {
	ascii := true
	for _, r := range name {
		if r > unicode.MaxASCII && r != 'º' {
			ascii = false
			break
		}
	}
	if ascii {
		return name
	}
	var b strings.Builder
	for _, r := range name {
		if r <= unicode.MaxASCII || r == 'º' {
			b.WriteRune(r)
			continue
		}
		b.WriteString(unidecode.Unidecode(string(r)))
	}
	return b.String()
}

// NormalizeName rewrites a raw release filename into the "<Title> OPn.mp3"
// shape. Release names first lose the "-NCBD1080" tag, dashes and camelCase
// joins; season shorthands S2..S10 then become "2nd Season" and so on, with
// "#" turned into spaces.
func NormalizeName(name string) string {
	if name == ignoredFile {
		return name
	}
	name = transliterate(name)
	if trackNamePattern.MatchString(name) {
		name = strings.Replace(name, rawReleaseTag, "", 1)
		name = strings.ReplaceAll(name, "-", " ")
		name = splitCamel(name)
	}
	return normalizeSeason(name)
}

func normalizeSeason(name string) string {
	marked := false
	for _, marker := range seasonMarkers {
		if strings.Contains(name, marker) {
			marked = true
			break
		}
	}
	if !marked {
		return name
	}
	for n := 2; n <= 10; n++ {
		name = strings.Replace(name, "S"+strconv.Itoa(n), seasonLabel(n), 1)
	}
	name = strings.ReplaceAll(name, "#", " ")
	return splitCamel(name)
}

// Rename is one applied (or planned) filename change.
type Rename struct {
	From string
	To   string
}

// NormalizeReport summarizes a normalizer pass.
type NormalizeReport struct {
	Renamed   []Rename
	Conflicts []Rename
	Scanned   int
}

// Normalizer renames files under a root directory.
type Normalizer struct {
	fs     afero.Fs
	root   string
	dryRun bool
	logger *slog.Logger
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithDryRun reports renames without applying them.
func WithDryRun(dry bool) NormalizerOption {
	return func(n *Normalizer) { n.dryRun = dry }
}

// WithNormalizerLogger attaches a logger.
func WithNormalizerLogger(logger *slog.Logger) NormalizerOption {
	return func(n *Normalizer) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// NewNormalizer builds a Normalizer over root on fs.
func NewNormalizer(fs afero.Fs, root string, opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{fs: fs, root: root, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(n)
	}
	n.logger = logging.NewComponentLogger(n.logger, "normalizer")
	return n
}

// Run renames every file under the root whose normalized name differs.
// Existing files are never overwritten; such renames are reported as
// conflicts.
func (n *Normalizer) Run(ctx context.Context) (NormalizeReport, error) {
	var report NormalizeReport
	var paths []string
	err := afero.Walk(n.fs, n.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !info.IsDir() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("walk library: %w", err)
	}

	for _, path := range paths {
		report.Scanned++
		dir, base := filepath.Split(path)
		target := NormalizeName(base)
		if target == base {
			continue
		}
		change := Rename{From: path, To: filepath.Join(dir, target)}
		exists, err := afero.Exists(n.fs, change.To)
		if err != nil {
			return report, fmt.Errorf("stat %s: %w", change.To, err)
		}
		if exists {
			logging.WarnWithContext(n.logger, "normalized name already taken", "normalize_conflict",
				logging.String("from", change.From),
				logging.String("to", change.To),
				logging.String(logging.FieldErrorHint, "remove or rename the duplicate by hand"),
				logging.String(logging.FieldImpact, "file left under its original name"))
			report.Conflicts = append(report.Conflicts, change)
			continue
		}
		if !n.dryRun {
			if err := n.fs.Rename(change.From, change.To); err != nil {
				return report, fmt.Errorf("rename %s: %w", change.From, err)
			}
		}
		n.logger.Info("file renamed",
			logging.String("from", base),
			logging.String("to", target),
			logging.Bool("dry_run", n.dryRun))
		report.Renamed = append(report.Renamed, change)
	}
	return report, nil
}
