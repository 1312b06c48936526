package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ewilliams-labs/songmatch/internal/core/domain"
)

// GetByID loads a playlist with its tracks in order.
func (a *Adapter) GetByID(ctx context.Context, id string) (domain.Playlist, error) {
	var p domain.Playlist
	var created sql.NullTime
	row := a.db.QueryRowContext(ctx, "SELECT id, name, seed, diversity, created_at FROM playlists WHERE id = ?", id)
	if err := row.Scan(&p.ID, &p.Name, &p.Seed, &p.Diversity, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Playlist{}, domain.ErrNotFound
		}
		return domain.Playlist{}, fmt.Errorf("failed to load playlist: %w", err)
	}
	p.CreatedAt = created.Time
	p.Tracks = []domain.PlaylistTrack{}

	rows, err := a.db.QueryContext(ctx, `
		SELECT song_index, song_id, title, artist, album, genre, year, popularity,
			IFNULL(acousticness, 0), IFNULL(danceability, 0), IFNULL(energy, 0),
			IFNULL(instrumentalness, 0), IFNULL(liveness, 0), IFNULL(loudness, 0),
			IFNULL(speechiness, 0), IFNULL(tempo, 0), IFNULL(valence, 0),
			IFNULL(score, 0), is_seed
		FROM playlist_tracks
		WHERE playlist_id = ?
		ORDER BY position ASC
	`, p.ID)
	if err != nil {
		return domain.Playlist{}, fmt.Errorf("failed to load playlist tracks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t domain.PlaylistTrack
		var songID, album, genre sql.NullString
		var year, popularity sql.NullInt64
		f := &t.Song.Features
		if err := rows.Scan(
			&t.Song.Index, &songID, &t.Song.Title, &t.Song.Artist, &album, &genre, &year, &popularity,
			&f.Acousticness, &f.Danceability, &f.Energy,
			&f.Instrumentalness, &f.Liveness, &f.Loudness,
			&f.Speechiness, &f.Tempo, &f.Valence,
			&t.Score, &t.IsSeed,
		); err != nil {
			return domain.Playlist{}, fmt.Errorf("failed to scan playlist track: %w", err)
		}
		t.Song.ID, t.Song.Album, t.Song.Genre = songID.String, album.String, genre.String
		t.Song.Year, t.Song.Popularity = int(year.Int64), int(popularity.Int64)
		p.Tracks = append(p.Tracks, t)
	}
	if err := rows.Err(); err != nil {
		return domain.Playlist{}, fmt.Errorf("failed to iterate playlist tracks: %w", err)
	}

	return p, nil
}

// GetPlaylistAudioFeatures averages the stored features of a playlist's tracks.
func (a *Adapter) GetPlaylistAudioFeatures(ctx context.Context, playlistID string) (domain.AudioFeatures, error) {
	var id string
	if err := a.db.QueryRowContext(ctx, "SELECT id FROM playlists WHERE id = ?", playlistID).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.AudioFeatures{}, domain.ErrNotFound
		}
		return domain.AudioFeatures{}, fmt.Errorf("failed to load playlist: %w", err)
	}

	var f domain.AudioFeatures
	if err := a.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(AVG(acousticness), 0),
			COALESCE(AVG(danceability), 0),
			COALESCE(AVG(energy), 0),
			COALESCE(AVG(instrumentalness), 0),
			COALESCE(AVG(liveness), 0),
			COALESCE(AVG(loudness), 0),
			COALESCE(AVG(speechiness), 0),
			COALESCE(AVG(tempo), 0),
			COALESCE(AVG(valence), 0)
		FROM playlist_tracks
		WHERE playlist_id = ?
	`, playlistID).Scan(
		&f.Acousticness, &f.Danceability, &f.Energy,
		&f.Instrumentalness, &f.Liveness, &f.Loudness,
		&f.Speechiness, &f.Tempo, &f.Valence,
	); err != nil {
		return domain.AudioFeatures{}, fmt.Errorf("failed to load playlist audio features: %w", err)
	}

	return f, nil
}

// Save upserts the playlist and replaces its track list.
func (a *Adapter) Save(ctx context.Context, p domain.Playlist) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO playlists (id, name, seed, diversity, created_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name,
			seed=excluded.seed,
			diversity=excluded.diversity;
	`, p.ID, p.Name, p.Seed, p.Diversity, p.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("failed to save playlist metadata: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM playlist_tracks WHERE playlist_id = ?", p.ID); err != nil {
		return fmt.Errorf("failed to clear old tracks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO playlist_tracks (
			playlist_id, position, song_index, song_id, title, artist, album, genre, year, popularity,
			acousticness, danceability, energy, instrumentalness, liveness,
			loudness, speechiness, tempo, valence, score, is_seed
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare track insert: %w", err)
	}
	defer stmt.Close()

	for pos, t := range p.Tracks {
		s, f := t.Song, t.Song.Features
		if _, err := stmt.ExecContext(ctx,
			p.ID, pos, s.Index, s.ID, s.Title, s.Artist, s.Album, s.Genre, s.Year, s.Popularity,
			f.Acousticness, f.Danceability, f.Energy, f.Instrumentalness, f.Liveness,
			f.Loudness, f.Speechiness, f.Tempo, f.Valence, t.Score, t.IsSeed,
		); err != nil {
			return fmt.Errorf("failed to save track %q: %w", s.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("transaction commit failed: %w", err)
	}
	return nil
}
