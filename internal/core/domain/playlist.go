package domain

import (
	"errors"
	"time"
)

var ErrDuplicateSong = errors.New("domain: duplicate song")

// PlaylistTrack is a song placed in a playlist along with how it got there.
type PlaylistTrack struct {
	Song   Song    `json:"song"`
	Score  float64 `json:"score"`
	IsSeed bool    `json:"is_seed"`
}

type Playlist struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Seed      string          `json:"seed"`
	Diversity float64         `json:"diversity"`
	CreatedAt time.Time       `json:"created_at"`
	Tracks    []PlaylistTrack `json:"tracks"`
}

func NewPlaylist(id, name string) (*Playlist, error) {
	if id == "" || name == "" {
		return nil, ErrInvalidArgument
	}
	return &Playlist{
		ID:     id,
		Name:   name,
		Tracks: []PlaylistTrack{},
	}, nil
}

// AddTrack appends a track while preventing the same recording from
// appearing twice. Songs are matched by catalog id when both carry one,
// otherwise by title and artist.
func (p *Playlist) AddTrack(t PlaylistTrack) error {
	for _, ex := range p.Tracks {
		if ex.Song.ID != "" && t.Song.ID != "" {
			if ex.Song.ID == t.Song.ID {
				return ErrDuplicateSong
			}
			continue
		}
		if ex.Song.SameRecording(t.Song) {
			return ErrDuplicateSong
		}
	}
	p.Tracks = append(p.Tracks, t)
	return nil
}

// Songs returns the playlist's songs in order.
func (p Playlist) Songs() []Song {
	out := make([]Song, len(p.Tracks))
	for i, t := range p.Tracks {
		out[i] = t.Song
	}
	return out
}

// Analyze returns the mean audio features across the playlist.
func (p Playlist) Analyze() AudioFeatures {
	if len(p.Tracks) == 0 {
		return AudioFeatures{}
	}
	sums := make([]float64, FeatureCount)
	for _, t := range p.Tracks {
		for i, v := range t.Song.Features.Values() {
			sums[i] += v
		}
	}
	n := float64(len(p.Tracks))
	for i := range sums {
		sums[i] /= n
	}
	return FeaturesFromValues(sums)
}
