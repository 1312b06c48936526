package spotify

import "strings"

type spotifyImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type spotifyTrack struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Name   string         `json:"name"`
		Images []spotifyImage `json:"images"`
	} `json:"album"`
	PreviewURL   string `json:"preview_url"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
}

type searchResponse struct {
	Tracks struct {
		Items []spotifyTrack `json:"items"`
	} `json:"tracks"`
}

func joinArtistNames(track spotifyTrack) string {
	parts := make([]string, 0, len(track.Artists))
	for _, a := range track.Artists {
		parts = append(parts, a.Name)
	}
	return strings.Join(parts, " ")
}

// coverURL picks the largest album image.
func (t spotifyTrack) coverURL() string {
	best := -1
	for i, img := range t.Album.Images {
		if best == -1 || img.Width > t.Album.Images[best].Width {
			best = i
		}
	}
	if best == -1 {
		return ""
	}
	return t.Album.Images[best].URL
}
