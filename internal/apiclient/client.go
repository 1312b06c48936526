// Package apiclient is a typed client for the songmatch JSON API.
package apiclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ewilliams-labs/songmatch/internal/catalog"
	"github.com/ewilliams-labs/songmatch/internal/core/domain"
	"github.com/ewilliams-labs/songmatch/internal/core/ports"
	"github.com/ewilliams-labs/songmatch/internal/core/services"
	"github.com/ewilliams-labs/songmatch/internal/validation"
	"github.com/ewilliams-labs/songmatch/internal/worker"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Message string                  `json:"error"`
	Code    string                  `json:"code"`
	Details []validation.FieldError `json:"details"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api: %d: %s", e.Status, e.Message)
}

// StatusOf returns the HTTP status carried by err, or 0 when err is not an
// API error.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the API at baseURL. Outgoing requests carry
// trace context.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// NewWithHTTPClient is used by tests to point at an httptest server.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: hc}
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("apiclient: encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("apiclient: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("apiclient: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if err := json.Unmarshal(raw, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(raw))
			if apiErr.Message == "" {
				apiErr.Message = http.StatusText(resp.StatusCode)
			}
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("apiclient: decode %s response: %w", path, err)
	}
	return nil
}

func intParam(q url.Values, name string, v int) {
	if v > 0 {
		q.Set(name, strconv.Itoa(v))
	}
}

// Ready reports whether the API has a catalog loaded.
func (c *Client) Ready(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/ready", nil, nil, nil)
}

func (c *Client) Catalog(ctx context.Context) (catalog.Info, error) {
	var info catalog.Info
	err := c.do(ctx, http.MethodGet, "/api/v1/catalog", nil, nil, &info)
	return info, err
}

// StartImport queues an import of source; empty means the server default.
func (c *Client) StartImport(ctx context.Context, source string) (worker.Job, error) {
	var job worker.Job
	err := c.do(ctx, http.MethodPost, "/api/v1/catalog/import", nil, map[string]string{"source": source}, &job)
	return job, err
}

func (c *Client) ImportStatus(ctx context.Context, id string) (worker.Job, error) {
	var job worker.Job
	err := c.do(ctx, http.MethodGet, "/api/v1/catalog/import/"+url.PathEscape(id), nil, nil, &job)
	return job, err
}

func (c *Client) Search(ctx context.Context, query string, limit int) ([]domain.Song, error) {
	q := url.Values{"q": {query}}
	intParam(q, "limit", limit)
	var out struct {
		Songs []domain.Song `json:"songs"`
	}
	err := c.do(ctx, http.MethodGet, "/api/v1/songs/search", q, nil, &out)
	return out.Songs, err
}

func (c *Client) Lookup(ctx context.Context, title, artist string) (domain.Song, error) {
	var song domain.Song
	err := c.do(ctx, http.MethodGet, "/api/v1/songs/lookup", url.Values{"title": {title}, "artist": {artist}}, nil, &song)
	return song, err
}

func (c *Client) SongSpotify(ctx context.Context, index int) (ports.TrackInfo, error) {
	var info ports.TrackInfo
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/songs/%d/spotify", index), nil, nil, &info)
	return info, err
}

func (c *Client) RecommendBySong(ctx context.Context, title, artist string, n int) (services.SongRecommendations, error) {
	q := url.Values{"title": {title}}
	if artist != "" {
		q.Set("artist", artist)
	}
	intParam(q, "n", n)
	var out services.SongRecommendations
	err := c.do(ctx, http.MethodGet, "/api/v1/recommendations/song", q, nil, &out)
	return out, err
}

func (c *Client) RecommendByFeatures(ctx context.Context, features map[string]float64, n int) (services.FeatureRecommendations, error) {
	body := struct {
		Features map[string]float64 `json:"features"`
		N        int                `json:"n,omitempty"`
	}{Features: features, N: n}
	var out services.FeatureRecommendations
	err := c.do(ctx, http.MethodPost, "/api/v1/recommendations/features", nil, body, &out)
	return out, err
}

func (c *Client) RecommendByDescription(ctx context.Context, message string, n int) (services.DescribedRecommendations, error) {
	body := struct {
		Message string `json:"message"`
		N       int    `json:"n,omitempty"`
	}{Message: message, N: n}
	var out services.DescribedRecommendations
	err := c.do(ctx, http.MethodPost, "/api/v1/recommendations/describe", nil, body, &out)
	return out, err
}

// PlaylistRequest mirrors the create-playlist body; zero values take the
// server defaults.
type PlaylistRequest struct {
	Seed      string  `json:"seed"`
	Length    int     `json:"length,omitempty"`
	Diversity float64 `json:"diversity,omitempty"`
	Name      string  `json:"name,omitempty"`
}

func (c *Client) CreatePlaylist(ctx context.Context, req PlaylistRequest) (domain.Playlist, error) {
	var p domain.Playlist
	err := c.do(ctx, http.MethodPost, "/api/v1/playlists", nil, req, &p)
	return p, err
}

func (c *Client) Playlist(ctx context.Context, id string) (domain.Playlist, error) {
	var p domain.Playlist
	err := c.do(ctx, http.MethodGet, "/api/v1/playlists/"+url.PathEscape(id), nil, nil, &p)
	return p, err
}

func (c *Client) PlaylistAnalysis(ctx context.Context, id string) (domain.AudioFeatures, error) {
	var f domain.AudioFeatures
	err := c.do(ctx, http.MethodGet, "/api/v1/playlists/"+url.PathEscape(id)+"/analysis", nil, nil, &f)
	return f, err
}

func (c *Client) Overview(ctx context.Context) (catalog.Overview, error) {
	var ov catalog.Overview
	err := c.do(ctx, http.MethodGet, "/api/v1/explore/overview", nil, nil, &ov)
	return ov, err
}

func (c *Client) FeatureStats(ctx context.Context) ([]catalog.FeatureSummary, error) {
	var stats []catalog.FeatureSummary
	err := c.do(ctx, http.MethodGet, "/api/v1/explore/stats", nil, nil, &stats)
	return stats, err
}

func (c *Client) Correlations(ctx context.Context) (catalog.Correlations, error) {
	var corr catalog.Correlations
	err := c.do(ctx, http.MethodGet, "/api/v1/explore/correlations", nil, nil, &corr)
	return corr, err
}

func (c *Client) Histogram(ctx context.Context, feature string, bins int) (catalog.Histogram, error) {
	q := url.Values{}
	intParam(q, "bins", bins)
	var h catalog.Histogram
	err := c.do(ctx, http.MethodGet, "/api/v1/explore/features/"+url.PathEscape(feature)+"/histogram", q, nil, &h)
	return h, err
}

func (c *Client) TopSongs(ctx context.Context, feature string, n int) ([]domain.Song, error) {
	q := url.Values{}
	intParam(q, "n", n)
	var out struct {
		Songs []domain.Song `json:"songs"`
	}
	err := c.do(ctx, http.MethodGet, "/api/v1/explore/features/"+url.PathEscape(feature)+"/top", q, nil, &out)
	return out.Songs, err
}
