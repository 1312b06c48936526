// Package spotify looks up catalog songs on the Spotify Web API for cover
// art, previews and links.
package spotify

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/ewilliams-labs/songmatch/internal/breaker"
	"github.com/ewilliams-labs/songmatch/internal/core/ports"
)

const (
	DefaultBaseURL  = "https://api.spotify.com/v1"
	DefaultTokenURL = "https://accounts.spotify.com/api/token"
)

// Client is an HTTP client for the Spotify adapter.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	maxRetries  int
	baseBackoff time.Duration
	cb          *gobreaker.CircuitBreaker[ports.TrackInfo]
}

var _ ports.SpotifyProvider = (*Client)(nil)

type Option func(*Client)

// WithRetry overrides the attempt count and the first backoff step.
func WithRetry(maxRetries int, backoff time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.baseBackoff = backoff
	}
}

// NewClient constructs a client around an already authorized http.Client.
func NewClient(httpClient *http.Client, baseURL string, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		httpClient:  httpClient,
		baseURL:     strings.TrimRight(baseURL, "/"),
		maxRetries:  defaultAttempts,
		baseBackoff: defaultBackoff,
		cb:          breaker.New[ports.TrackInfo](breaker.DefaultConfig("spotify-api")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Credentials configure the client credentials flow.
type Credentials struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
}

// NewClientWithCredentials returns a client whose requests carry an app
// token refreshed through the client credentials grant.
func NewClientWithCredentials(ctx context.Context, creds Credentials, baseURL string, opts ...Option) *Client {
	tokenURL := creds.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	cc := clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     tokenURL,
	}
	httpClient := cc.Client(ctx)
	httpClient.Timeout = 10 * time.Second
	return NewClient(httpClient, baseURL, opts...)
}
