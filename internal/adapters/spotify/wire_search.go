package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"

	"github.com/ewilliams-labs/songmatch/internal/core/domain"
	"github.com/ewilliams-labs/songmatch/internal/core/ports"
	"github.com/ewilliams-labs/songmatch/internal/fuzzy"
	"github.com/ewilliams-labs/songmatch/internal/logging"
)

const searchLimit = 5

// GetTrackByMetadata searches Spotify for the best match of a title and
// artist. A no-confident-match result does not count against the breaker.
func (c *Client) GetTrackByMetadata(ctx context.Context, title string, artist string) (ports.TrackInfo, error) {
	var noMatch error
	info, err := c.cb.Execute(func() (ports.TrackInfo, error) {
		info, err := c.searchTrack(ctx, title, artist)
		if errors.Is(err, ports.ErrNoConfidentMatch) {
			noMatch = err
			return ports.TrackInfo{}, nil
		}
		return info, err
	})
	if noMatch != nil {
		return ports.TrackInfo{}, noMatch
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ports.TrackInfo{}, fmt.Errorf("spotify adapter: %w: %v", domain.ErrEnrichmentUnavailable, err)
	}
	return info, err
}

func (c *Client) searchTrack(ctx context.Context, title string, artist string) (ports.TrackInfo, error) {
	searchURL, err := url.Parse(fmt.Sprintf("%s/search", c.baseURL))
	if err != nil {
		return ports.TrackInfo{}, fmt.Errorf("spotify adapter: invalid search url: %w", err)
	}

	queryTitle := fuzzy.FallbackIfEmpty(fuzzy.Normalize(title), title)
	queryArtist := fuzzy.FallbackIfEmpty(fuzzy.Normalize(artist), artist)

	query := searchURL.Query()
	query.Set("q", fmt.Sprintf("track:%s artist:%s", queryTitle, queryArtist))
	query.Set("type", "track")
	query.Set("limit", fmt.Sprint(searchLimit))
	searchURL.RawQuery = query.Encode()

	logging.Debug().Str("url", searchURL.String()).Msg("spotify search request")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL.String(), nil)
	if err != nil {
		return ports.TrackInfo{}, fmt.Errorf("spotify adapter: failed to create search request: %w", err)
	}

	resp, err := c.send(req)
	if err != nil {
		return ports.TrackInfo{}, fmt.Errorf("spotify adapter: search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ports.TrackInfo{}, fmt.Errorf("spotify adapter: search status %d", resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return ports.TrackInfo{}, fmt.Errorf("spotify adapter: search decode error: %w", err)
	}

	items := body.Tracks.Items
	if len(items) > searchLimit {
		items = items[:searchLimit]
	}
	bestScore := 0.0
	bestIndex := -1
	for i, candidate := range items {
		score, ok := candidateScore(title, artist, candidate)
		logging.Debug().
			Str("candidate_artist", joinArtistNames(candidate)).
			Str("candidate_title", candidate.Name).
			Float64("score", score).
			Bool("accepted", ok).
			Msg("spotify match candidate")
		if ok && score > bestScore {
			bestScore = score
			bestIndex = i
		}
	}

	if bestIndex == -1 {
		return ports.TrackInfo{}, fmt.Errorf("spotify adapter: %w", ports.NoConfidentMatchError{Title: title, Artist: artist})
	}

	best := items[bestIndex]
	return ports.TrackInfo{
		SpotifyID:   best.ID,
		Title:       best.Name,
		Artist:      joinArtistNames(best),
		Album:       best.Album.Name,
		CoverURL:    best.coverURL(),
		PreviewURL:  best.PreviewURL,
		ExternalURL: best.ExternalURLs.Spotify,
		MatchScore:  bestScore,
	}, nil
}
