package ports

import (
	"context"

	"github.com/ewilliams-labs/songmatch/internal/core/domain"
)

// SongRepository persists the imported catalog.
type SongRepository interface {
	// ReplaceSongs swaps the stored catalog for songs in one transaction.
	ReplaceSongs(ctx context.Context, source string, songs []domain.Song, warnings []domain.LoadWarning) error
	ListSongs(ctx context.Context) ([]domain.Song, error)
	CatalogMeta(ctx context.Context) (CatalogMeta, error)
}

// CatalogMeta describes the stored catalog.
type CatalogMeta struct {
	Source   string
	Count    int
	Warnings []domain.LoadWarning
}

type PlaylistRepository interface {
	GetByID(ctx context.Context, id string) (domain.Playlist, error)
	Save(ctx context.Context, p domain.Playlist) error
	GetPlaylistAudioFeatures(ctx context.Context, playlistID string) (domain.AudioFeatures, error)
}
