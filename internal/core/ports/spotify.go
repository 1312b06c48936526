package ports

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoConfidentMatch indicates search results did not meet the confidence threshold.
var ErrNoConfidentMatch = errors.New("no confident match")

// NoConfidentMatchError provides context for a failed track match.
type NoConfidentMatchError struct {
	Title  string
	Artist string
}

func (e NoConfidentMatchError) Error() string {
	if e.Title == "" && e.Artist == "" {
		return ErrNoConfidentMatch.Error()
	}
	return fmt.Sprintf("no confident match found for title %q artist %q", e.Title, e.Artist)
}

func (e NoConfidentMatchError) Is(target error) bool {
	return target == ErrNoConfidentMatch
}

// TrackInfo is what Spotify knows about a catalog song.
type TrackInfo struct {
	SpotifyID   string  `json:"spotify_id"`
	Title       string  `json:"title"`
	Artist      string  `json:"artist"`
	Album       string  `json:"album,omitempty"`
	CoverURL    string  `json:"cover_url,omitempty"`
	PreviewURL  string  `json:"preview_url,omitempty"`
	ExternalURL string  `json:"external_url,omitempty"`
	MatchScore  float64 `json:"match_score"`
}

type SpotifyProvider interface {
	GetTrackByMetadata(ctx context.Context, title, artist string) (TrackInfo, error)
}
