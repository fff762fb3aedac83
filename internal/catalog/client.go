// Package catalog is a rate-limited client for the remote music catalog.
// Albums resolve by catalog id, by UPC, or by free-text title search; the
// id path expands track listings.
package catalog

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hoerspielapp/hoerspiel-server/internal/ratelimit"
)

const (
	defaultRPS     = 5.0
	defaultBurst   = 10
	defaultTimeout = 10 * time.Second

	storefront = "de"
)

// Client is a rate-limited catalog API client.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithRateLimit sets the outbound request rate.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) { c.limiter = ratelimit.New(rps, burst) }
}

// New creates a new catalog client against the given API base URL.
func New(baseURL string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: defaultTimeout,
		},
		limiter: ratelimit.New(defaultRPS, defaultBurst),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LookupAlbum retrieves an album by catalog id with its track listing.
func (c *Client) LookupAlbum(ctx context.Context, catalogID string) (*Album, error) {
	if catalogID == "" {
		return nil, wrapError("lookupAlbum", catalogID, ErrBadRequest)
	}

	query := url.Values{}
	query.Set("include", "tracks")

	path := fmt.Sprintf("/v1/catalog/%s/albums/%s", storefront, catalogID)
	body, err := c.doRequest(ctx, "albums", path, query)
	if err != nil {
		return nil, wrapError("lookupAlbum", catalogID, err)
	}

	var resp rawAlbumResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, wrapError("lookupAlbum", catalogID, fmt.Errorf("parse response: %w", err))
	}
	if len(resp.Data) == 0 {
		return nil, wrapError("lookupAlbum", catalogID, ErrNotFound)
	}

	return rawAlbumToAlbum(&resp.Data[0]), nil
}

// LookupByUPC retrieves an album by its UPC, with tracks expanded.
func (c *Client) LookupByUPC(ctx context.Context, upc string) (*Album, error) {
	if upc == "" {
		return nil, wrapError("lookupByUPC", upc, ErrBadRequest)
	}

	query := url.Values{}
	query.Set("filter[upc]", upc)
	query.Set("include", "tracks")

	path := fmt.Sprintf("/v1/catalog/%s/albums", storefront)
	body, err := c.doRequest(ctx, "albums", path, query)
	if err != nil {
		return nil, wrapError("lookupByUPC", upc, err)
	}

	var resp rawAlbumResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, wrapError("lookupByUPC", upc, fmt.Errorf("parse response: %w", err))
	}
	if len(resp.Data) == 0 {
		return nil, wrapError("lookupByUPC", upc, ErrNotFound)
	}

	return rawAlbumToAlbum(&resp.Data[0]), nil
}

// SearchAlbums finds candidate albums matching a free-text term.
func (c *Client) SearchAlbums(ctx context.Context, term string) ([]*Album, error) {
	if term == "" {
		return nil, wrapError("search", term, ErrBadRequest)
	}

	query := url.Values{}
	query.Set("term", term)
	query.Set("types", "albums")
	query.Set("limit", "10")

	path := fmt.Sprintf("/v1/catalog/%s/search", storefront)
	body, err := c.doRequest(ctx, "search", path, query)
	if err != nil {
		return nil, wrapError("search", term, err)
	}

	var resp rawSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, wrapError("search", term, fmt.Errorf("parse response: %w", err))
	}

	albums := make([]*Album, 0, len(resp.Results.Albums.Data))
	for i := range resp.Results.Albums.Data {
		albums = append(albums, rawAlbumToAlbum(&resp.Results.Albums.Data[i]))
	}
	return albums, nil
}

// ArtistAlbums lists albums for an artist id.
func (c *Client) ArtistAlbums(ctx context.Context, artistID string) ([]*Album, error) {
	if artistID == "" {
		return nil, wrapError("artistAlbums", artistID, ErrBadRequest)
	}

	path := fmt.Sprintf("/v1/catalog/%s/artists/%s/albums", storefront, artistID)
	body, err := c.doRequest(ctx, "albums", path, nil)
	if err != nil {
		return nil, wrapError("artistAlbums", artistID, err)
	}

	var resp rawAlbumResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, wrapError("artistAlbums", artistID, fmt.Errorf("parse response: %w", err))
	}

	albums := make([]*Album, 0, len(resp.Data))
	for i := range resp.Data {
		albums = append(albums, rawAlbumToAlbum(&resp.Data[i]))
	}
	return albums, nil
}

// FetchArtwork downloads raw artwork bytes from a fully resolved URL.
// The caller owns decoding and caching.
func (c *Client) FetchArtwork(ctx context.Context, artworkURL string) ([]byte, error) {
	if artworkURL == "" {
		return nil, wrapError("fetchArtwork", "", ErrBadRequest)
	}

	if err := c.limiter.Wait(ctx, "artwork"); err != nil {
		return nil, wrapError("fetchArtwork", artworkURL, fmt.Errorf("rate limit wait: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, artworkURL, nil)
	if err != nil {
		return nil, wrapError("fetchArtwork", artworkURL, fmt.Errorf("create request: %w", err))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, wrapError("fetchArtwork", artworkURL, fmt.Errorf("execute request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, wrapError("fetchArtwork", artworkURL, statusError(resp.StatusCode, nil))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrapError("fetchArtwork", artworkURL, fmt.Errorf("read response: %w", err))
	}
	return data, nil
}

// doRequest executes an HTTP request with rate limiting.
func (c *Client) doRequest(ctx context.Context, limitKey, path string, query url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx, limitKey); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Hoerspiel/1.0")

	if c.logger != nil {
		c.logger.Debug("catalog request", "path", path)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, body)
	}
	return body, nil
}

// statusError maps an HTTP status to a sentinel error.
func statusError(status int, body []byte) error {
	switch status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusBadRequest:
		return ErrBadRequest
	default:
		if status >= 500 {
			return ErrServer
		}
		return fmt.Errorf("unexpected status %d: %s", status, string(body))
	}
}
