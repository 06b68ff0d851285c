// Package artwork downloads cover images into a directory keyed by catalog
// ID so each anime's cover is fetched once.
package artwork

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"anitag/internal/fileutil"
	"anitag/internal/logging"
	"anitag/internal/pacer"
)

// Fetcher stores covers under dir as <malID>.jpg.
type Fetcher struct {
	dir        string
	userAgent  string
	httpClient *http.Client
	pacer      *pacer.Pacer
	logger     *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.httpClient = client
		}
	}
}

// WithUserAgent sets the User-Agent header sent with each download.
func WithUserAgent(agent string) Option {
	return func(f *Fetcher) {
		f.userAgent = strings.TrimSpace(agent)
	}
}

// WithPacer spaces downloads according to p.
func WithPacer(p *pacer.Pacer) Option {
	return func(f *Fetcher) {
		if p != nil {
			f.pacer = p
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// New creates a Fetcher writing into dir.
func New(dir string, opts ...Option) (*Fetcher, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("cover directory required")
	}
	f := &Fetcher{
		dir:        dir,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		pacer:      pacer.Unpaced("covers"),
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = logging.NewComponentLogger(f.logger, "artwork")
	return f, nil
}

// Path returns where the cover for malID is stored.
func (f *Fetcher) Path(malID int) string {
	return filepath.Join(f.dir, strconv.Itoa(malID)+".jpg")
}

// Ensure returns the cover path for malID, downloading imageURL first when
// the file is not present yet.
func (f *Fetcher) Ensure(ctx context.Context, malID int, imageURL string) (string, error) {
	path := f.Path(malID)
	if fileutil.Exists(path) {
		return path, nil
	}
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return "", fmt.Errorf("no cover url for mal id %d", malID)
	}

	var result fileutil.StreamResult
	err := f.pacer.Do(ctx, func(ctx context.Context) error {
		var downloadErr error
		result, downloadErr = f.download(ctx, imageURL, path)
		return downloadErr
	})
	if err != nil {
		return "", fmt.Errorf("download cover for mal id %d: %w", malID, err)
	}
	f.logger.Debug("cover downloaded",
		logging.Int("mal_id", malID),
		logging.Int64("bytes", result.Bytes),
		logging.String("sha256", result.SHA256),
		logging.String("path", path))
	return path, nil
}

func (f *Fetcher) download(ctx context.Context, imageURL, path string) (fileutil.StreamResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return fileutil.StreamResult{}, fmt.Errorf("build request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	requestStart := time.Now()
	resp, err := f.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return fileutil.StreamResult{}, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fileutil.StreamResult{}, &pacer.StatusError{Service: "cover download", Code: resp.StatusCode, Latency: latency}
	}
	return fileutil.WriteStreamAtomic(path, resp.Body, 0o644)
}
