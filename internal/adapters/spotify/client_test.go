package spotify_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ewilliams-labs/songmatch/internal/adapters/spotify"
	"github.com/ewilliams-labs/songmatch/internal/core/ports"
)

const searchBody = `{
  "tracks": {
    "items": [
      {
        "id": "wrong",
        "name": "Shape of You - Acoustic Cover",
        "artists": [{"name": "Somebody Else"}],
        "album": {"name": "Covers", "images": []}
      },
      {
        "id": "7qiZfU4dY1lWllzX7mPBI3",
        "name": "Shape of You",
        "artists": [{"name": "Ed Sheeran"}],
        "album": {
          "name": "Divide",
          "images": [
            {"url": "https://i.scdn.co/small.jpg", "width": 64, "height": 64},
            {"url": "https://i.scdn.co/large.jpg", "width": 640, "height": 640}
          ]
        },
        "preview_url": "https://p.scdn.co/preview.mp3",
        "external_urls": {"spotify": "https://open.spotify.com/track/7qiZfU4dY1lWllzX7mPBI3"}
      }
    ]
  }
}`

func TestGetTrackByMetadata(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		artist      string
		status      int
		body        string
		wantID      string
		wantNoMatch bool
		wantErr     bool
	}{
		{
			name:   "picks the confident match",
			title:  "Shape of You",
			artist: "Ed Sheeran",
			status: http.StatusOK,
			body:   searchBody,
			wantID: "7qiZfU4dY1lWllzX7mPBI3",
		},
		{
			name:        "no confident match",
			title:       "Completely Different",
			artist:      "Nobody",
			status:      http.StatusOK,
			body:        searchBody,
			wantNoMatch: true,
		},
		{
			name:        "empty results",
			title:       "Shape of You",
			artist:      "Ed Sheeran",
			status:      http.StatusOK,
			body:        `{"tracks":{"items":[]}}`,
			wantNoMatch: true,
		},
		{
			name:    "upstream client error",
			title:   "Shape of You",
			artist:  "Ed Sheeran",
			status:  http.StatusBadRequest,
			body:    `{}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotQuery string
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/search" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				gotQuery = r.URL.Query().Get("q")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			client := spotify.NewClient(ts.Client(), ts.URL, spotify.WithRetry(1, time.Millisecond))
			info, err := client.GetTrackByMetadata(context.Background(), tt.title, tt.artist)

			if !strings.Contains(gotQuery, "track:") || !strings.Contains(gotQuery, "artist:") {
				t.Fatalf("unexpected search query %q", gotQuery)
			}
			switch {
			case tt.wantNoMatch:
				if !errors.Is(err, ports.ErrNoConfidentMatch) {
					t.Fatalf("expected ErrNoConfidentMatch, got %v", err)
				}
				return
			case tt.wantErr:
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if info.SpotifyID != tt.wantID {
				t.Fatalf("spotify id: got %q, want %q", info.SpotifyID, tt.wantID)
			}
			if info.CoverURL != "https://i.scdn.co/large.jpg" {
				t.Fatalf("cover url: got %q", info.CoverURL)
			}
			if info.PreviewURL == "" || info.ExternalURL == "" {
				t.Fatalf("expected preview and external urls, got %+v", info)
			}
			if info.MatchScore < 0.8 {
				t.Fatalf("match score too low: %v", info.MatchScore)
			}
		})
	}
}

func TestGetTrackByMetadata_UsesClientCredentialsToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"abc123","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/v1/search", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer abc123" {
			t.Errorf("authorization header = %q", got)
		}
		_, _ = w.Write([]byte(searchBody))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	client := spotify.NewClientWithCredentials(context.Background(), spotify.Credentials{
		ClientID:     "id",
		ClientSecret: "secret",
		TokenURL:     ts.URL + "/token",
	}, ts.URL+"/v1")

	info, err := client.GetTrackByMetadata(context.Background(), "Shape of You", "Ed Sheeran")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Album != "Divide" {
		t.Fatalf("album = %q", info.Album)
	}
}
