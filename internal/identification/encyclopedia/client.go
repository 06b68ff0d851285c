package encyclopedia

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"anitag/internal/pacer"
)

// Info is one <info> element of an anime record.
type Info struct {
	Type  string `xml:"type,attr"`
	Lang  string `xml:"lang,attr"`
	Value string `xml:",chardata"`
}

// Anime is one <anime> element of an API response.
type Anime struct {
	ID   int    `xml:"id,attr"`
	Name string `xml:"name,attr"`
	Type string `xml:"type,attr"`
	Info []Info `xml:"info"`
}

type response struct {
	XMLName xml.Name `xml:"ann"`
	Anime   []Anime  `xml:"anime"`
}

// Fetcher retrieves detail records for a set of IDs in one request.
type Fetcher interface {
	FetchAnime(ctx context.Context, ids []int) ([]Anime, error)
}

// Client provides access to the encyclopedia XML API.
type Client struct {
	apiURL     string
	userAgent  string
	httpClient *http.Client
}

var _ Fetcher = (*Client)(nil)

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

// New creates an encyclopedia client. apiURL is the full api.xml endpoint.
func New(apiURL string, opts ...Option) (*Client, error) {
	apiURL = strings.TrimSpace(apiURL)
	if apiURL == "" {
		return nil, errors.New("encyclopedia api url required")
	}
	client := &Client{
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// FetchAnime requests the detail records of ids. IDs unknown to the API are
// silently absent from the result.
func (c *Client) FetchAnime(ctx context.Context, ids []int) ([]Anime, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	endpoint, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("parse encyclopedia url: %w", err)
	}
	params := endpoint.Query()
	for _, id := range ids {
		params.Add("anime", strconv.Itoa(id))
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
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
		return nil, &pacer.StatusError{Service: "encyclopedia", Code: resp.StatusCode, Latency: latency}
	}

	var payload response
	if err := xml.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode encyclopedia response: %w", err)
	}
	return payload.Anime, nil
}
