package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"anitag/internal/pacer"
)

// Named is a genre, explicit genre or theme entry.
type Named struct {
	MalID int    `json:"mal_id"`
	Name  string `json:"name"`
}

// Title is one entry of the catalog's title list.
type Title struct {
	Type  string `json:"type"`
	Title string `json:"title"`
}

// Aired holds the raw air-date bounds.
type Aired struct {
	From *string `json:"from"`
	To   *string `json:"to"`
}

// Anime is a single search hit.
type Anime struct {
	MalID  int `json:"mal_id"`
	Images struct {
		JPG struct {
			ImageURL string `json:"image_url"`
		} `json:"jpg"`
	} `json:"images"`
	Title          string  `json:"title"`
	TitleEnglish   string  `json:"title_english"`
	TitleJapanese  string  `json:"title_japanese"`
	Titles         []Title `json:"titles"`
	Type           string  `json:"type"`
	Year           *int    `json:"year"`
	Season         string  `json:"season"`
	Status         string  `json:"status"`
	Aired          Aired   `json:"aired"`
	Genres         []Named `json:"genres"`
	ExplicitGenres []Named `json:"explicit_genres"`
	Themes         []Named `json:"themes"`
}

// ExternalLink is one entry of an anime's external links.
type ExternalLink struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type searchResponse struct {
	Data []Anime `json:"data"`
}

type fullResponse struct {
	Data struct {
		MalID    int            `json:"mal_id"`
		External []ExternalLink `json:"external"`
	} `json:"data"`
}

// Searcher defines the catalog operations used by the resolver.
type Searcher interface {
	SearchAnime(ctx context.Context, query string) ([]Anime, error)
	ExternalLinks(ctx context.Context, malID int) ([]ExternalLink, error)
}

// Client provides access to the catalog API.
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

// New creates a catalog client.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("catalog base url required")
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

// SearchAnime runs a free-text anime search.
func (c *Client) SearchAnime(ctx context.Context, query string) ([]Anime, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	endpoint, err := url.Parse(c.baseURL + "/anime")
	if err != nil {
		return nil, fmt.Errorf("parse catalog url: %w", err)
	}
	params := url.Values{}
	params.Set("q", query)
	endpoint.RawQuery = params.Encode()

	var payload searchResponse
	if err := c.get(ctx, endpoint.String(), "catalog search", &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

// ExternalLinks fetches the full record of an anime and returns its
// external links.
func (c *Client) ExternalLinks(ctx context.Context, malID int) ([]ExternalLink, error) {
	if malID <= 0 {
		return nil, errors.New("mal id must be positive")
	}
	endpoint := fmt.Sprintf("%s/anime/%d/full", c.baseURL, malID)

	var payload fullResponse
	if err := c.get(ctx, endpoint, "catalog anime details", &payload); err != nil {
		return nil, err
	}
	return payload.Data.External, nil
}

func (c *Client) get(ctx context.Context, endpoint, operation string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &pacer.StatusError{Service: operation, Code: resp.StatusCode, Latency: latency}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}
