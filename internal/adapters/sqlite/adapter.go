// Package sqlite provides a SQLite-backed implementation of the repository ports.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3" // Import the driver anonymously

	"github.com/ewilliams-labs/songmatch/internal/core/domain"
	"github.com/ewilliams-labs/songmatch/internal/core/ports"
)

// Adapter implements the song and playlist repositories for SQLite
type Adapter struct {
	db *sql.DB
}

var (
	_ ports.SongRepository     = (*Adapter)(nil)
	_ ports.PlaylistRepository = (*Adapter)(nil)
)

// NewAdapter creates a connection and runs the schema migration
func NewAdapter(storagePath string) (*Adapter, error) {
	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	if storagePath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	adapter := &Adapter{db: db}
	if err := adapter.migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return adapter, nil
}

// Close ensures the DB connection is closed gracefully
func (a *Adapter) Close() error {
	return a.db.Close()
}

// Ping reports whether the database is reachable.
func (a *Adapter) Ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

const songColumns = `song_id, title, artist, album, genre, year, popularity,
	acousticness, danceability, energy, instrumentalness, liveness,
	loudness, speechiness, tempo, valence`

// ReplaceSongs swaps the whole catalog in one transaction.
func (a *Adapter) ReplaceSongs(ctx context.Context, source string, songs []domain.Song, warnings []domain.LoadWarning) error {
	if warnings == nil {
		warnings = []domain.LoadWarning{}
	}
	warningsJSON, err := json.Marshal(warnings)
	if err != nil {
		return fmt.Errorf("failed to encode load warnings: %w", err)
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM songs"); err != nil {
		return fmt.Errorf("failed to clear songs: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO songs (idx, `+songColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare song insert: %w", err)
	}
	defer stmt.Close()

	for i, s := range songs {
		f := s.Features
		if _, err := stmt.ExecContext(ctx,
			i, s.ID, s.Title, s.Artist, s.Album, s.Genre, s.Year, s.Popularity,
			f.Acousticness, f.Danceability, f.Energy, f.Instrumentalness, f.Liveness,
			f.Loudness, f.Speechiness, f.Tempo, f.Valence,
		); err != nil {
			return fmt.Errorf("failed to save song %d: %w", i, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO catalog_meta (id, source, warnings, updated_at) VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source=excluded.source,
			warnings=excluded.warnings,
			updated_at=excluded.updated_at;
	`, source, string(warningsJSON), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save catalog metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("transaction commit failed: %w", err)
	}
	return nil
}

// ListSongs returns the stored catalog in row order.
func (a *Adapter) ListSongs(ctx context.Context) ([]domain.Song, error) {
	rows, err := a.db.QueryContext(ctx, "SELECT idx, "+songColumns+" FROM songs ORDER BY idx ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to load songs: %w", err)
	}
	defer rows.Close()

	songs := []domain.Song{}
	for rows.Next() {
		var s domain.Song
		var id, album, genre sql.NullString
		var year, popularity sql.NullInt64
		f := &s.Features
		if err := rows.Scan(
			&s.Index, &id, &s.Title, &s.Artist, &album, &genre, &year, &popularity,
			&f.Acousticness, &f.Danceability, &f.Energy, &f.Instrumentalness, &f.Liveness,
			&f.Loudness, &f.Speechiness, &f.Tempo, &f.Valence,
		); err != nil {
			return nil, fmt.Errorf("failed to scan song: %w", err)
		}
		s.ID, s.Album, s.Genre = id.String, album.String, genre.String
		s.Year, s.Popularity = int(year.Int64), int(popularity.Int64)
		songs = append(songs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate songs: %w", err)
	}
	return songs, nil
}

// CatalogMeta returns the stored catalog's source and load warnings.
func (a *Adapter) CatalogMeta(ctx context.Context) (ports.CatalogMeta, error) {
	var meta ports.CatalogMeta
	if err := a.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM songs").Scan(&meta.Count); err != nil {
		return ports.CatalogMeta{}, fmt.Errorf("failed to count songs: %w", err)
	}

	var warnings string
	err := a.db.QueryRowContext(ctx, "SELECT source, warnings FROM catalog_meta WHERE id = 1").Scan(&meta.Source, &warnings)
	if errors.Is(err, sql.ErrNoRows) {
		meta.Warnings = []domain.LoadWarning{}
		return meta, nil
	}
	if err != nil {
		return ports.CatalogMeta{}, fmt.Errorf("failed to load catalog metadata: %w", err)
	}
	if err := json.Unmarshal([]byte(warnings), &meta.Warnings); err != nil {
		return ports.CatalogMeta{}, fmt.Errorf("failed to decode load warnings: %w", err)
	}
	return meta, nil
}

func (a *Adapter) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS songs (
		idx INTEGER PRIMARY KEY,
		song_id TEXT,
		title TEXT NOT NULL,
		artist TEXT NOT NULL,
		album TEXT,
		genre TEXT,
		year INTEGER,
		popularity INTEGER,
		acousticness REAL NOT NULL,
		danceability REAL NOT NULL,
		energy REAL NOT NULL,
		instrumentalness REAL NOT NULL,
		liveness REAL NOT NULL,
		loudness REAL NOT NULL,
		speechiness REAL NOT NULL,
		tempo REAL NOT NULL,
		valence REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS catalog_meta (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		source TEXT NOT NULL,
		warnings TEXT NOT NULL DEFAULT '[]',
		updated_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS playlists (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS playlist_tracks (
		playlist_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		song_index INTEGER NOT NULL,
		song_id TEXT,
		title TEXT NOT NULL,
		artist TEXT NOT NULL,
		album TEXT,
		genre TEXT,
		year INTEGER,
		popularity INTEGER,
		acousticness REAL,
		danceability REAL,
		energy REAL,
		instrumentalness REAL,
		liveness REAL,
		loudness REAL,
		speechiness REAL,
		tempo REAL,
		valence REAL,
		score REAL,
		is_seed INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (playlist_id, position),
		FOREIGN KEY(playlist_id) REFERENCES playlists(id) ON DELETE CASCADE
	);
	`
	if _, err := a.db.Exec(query); err != nil {
		return err
	}

	// columns added after the first release
	for _, stmt := range []string{
		"ALTER TABLE playlists ADD COLUMN seed TEXT NOT NULL DEFAULT ''",
		"ALTER TABLE playlists ADD COLUMN diversity REAL NOT NULL DEFAULT 0",
	} {
		if _, err := a.db.Exec(stmt); err != nil && !isDuplicateColumnError(err) {
			return err
		}
	}

	return nil
}

func isDuplicateColumnError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "duplicate column") || strings.Contains(err.Error(), "already exists"))
}
