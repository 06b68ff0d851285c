package songdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"anitag/internal/pacer"
)

// TextFilter matches anime or song names.
type TextFilter struct {
	Search       string `json:"search"`
	PartialMatch bool   `json:"partial_match"`
}

// ArtistFilter matches credited artists.
type ArtistFilter struct {
	Search           string `json:"search"`
	PartialMatch     bool   `json:"partial_match"`
	GroupGranularity int    `json:"group_granularity"`
	MaxOtherArtist   int    `json:"max_other_artist"`
}

// Request is the body of a search_request call.
type Request struct {
	AnimeFilter     *TextFilter   `json:"anime_search_filter,omitempty"`
	ArtistFilter    *ArtistFilter `json:"artist_search_filter,omitempty"`
	SongNameFilter  *TextFilter   `json:"song_name_search_filter,omitempty"`
	AndLogic        bool          `json:"and_logic"`
	IgnoreDuplicate bool          `json:"ignore_duplicate"`
	OpeningFilter   bool          `json:"opening_filter"`
	EndingFilter    bool          `json:"ending_filter"`
	InsertFilter    bool          `json:"insert_filter"`
}

// NewRequest builds a request over every track type. Empty arguments leave
// the matching filter out.
func NewRequest(animeName, artist, songName string, andLogic bool) Request {
	req := Request{
		AndLogic:      andLogic,
		OpeningFilter: true,
		EndingFilter:  true,
		InsertFilter:  true,
	}
	if animeName != "" {
		req.AnimeFilter = &TextFilter{Search: animeName, PartialMatch: true}
	}
	if artist != "" {
		req.ArtistFilter = &ArtistFilter{Search: artist, MaxOtherArtist: 99}
	}
	if songName != "" {
		req.SongNameFilter = &TextFilter{Search: songName}
	}
	return req
}

// Row is one song returned by the search endpoint.
type Row struct {
	AnnID       int    `json:"annId"`
	AnimeENName string `json:"animeENName"`
	AnimeJPName string `json:"animeJPName"`
	SongType    string `json:"songType"`
	SongName    string `json:"songName"`
	SongArtist  string `json:"songArtist"`
	Audio       string `json:"audio"`
}

// Searcher runs song database searches.
type Searcher interface {
	Search(ctx context.Context, req Request) ([]Row, error)
}

// Client provides access to the song database API.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

var _ Searcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithUserAgent sets the User-Agent header sent with each request.
func WithUserAgent(agent string) Option {
	return func(c *Client) {
		c.userAgent = strings.TrimSpace(agent)
	}
}

// New creates a song database client.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("songdb base url required")
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Search posts req to the search endpoint.
func (c *Client) Search(ctx context.Context, search Request) ([]Row, error) {
	body, err := json.Marshal(search)
	if err != nil {
		return nil, fmt.Errorf("encode songdb request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search_request", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &pacer.StatusError{Service: "songdb search", Code: resp.StatusCode, Latency: latency}
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode songdb response: %w", err)
	}
	return decodeRows(raw)
}

// decodeRows accepts either an array of rows or a single row object.
func decodeRows(raw json.RawMessage) ([]Row, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '{' {
		var row Row
		if err := json.Unmarshal(trimmed, &row); err != nil {
			return nil, fmt.Errorf("decode songdb row: %w", err)
		}
		return []Row{row}, nil
	}
	var rows []Row
	if err := json.Unmarshal(trimmed, &rows); err != nil {
		return nil, fmt.Errorf("decode songdb rows: %w", err)
	}
	return rows, nil
}
