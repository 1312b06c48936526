package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ewilliams-labs/songmatch/internal/core/domain"
	"github.com/ewilliams-labs/songmatch/internal/logging"
	"github.com/ewilliams-labs/songmatch/internal/metrics"
	"github.com/ewilliams-labs/songmatch/internal/tracing"
)

const (
	DefaultPlaylistLength    = 10
	MinPlaylistLength        = 5
	MaxPlaylistLength        = 25
	DefaultPlaylistDiversity = 0.5
	MinPlaylistDiversity     = 0.1
	MaxPlaylistDiversity     = 1.0

	// below this diversity a playlist is simply the closest matches
	focusedDiversity = 0.3
)

// PlaylistRequest asks for a playlist grown from a seed song. Zero Length
// and Diversity take the defaults.
type PlaylistRequest struct {
	Seed      string
	Length    int
	Diversity float64
	Name      string
}

// GeneratePlaylist builds and stores a playlist around the first song
// matching req.Seed. The seed is always the first track. The rest are the
// closest matches, or with more diversity a core of close matches plus a
// random sample from the wider candidate pool.
func (r *Recommender) GeneratePlaylist(ctx context.Context, req PlaylistRequest) (domain.Playlist, error) {
	cat, err := r.catalog()
	if err != nil {
		return domain.Playlist{}, err
	}
	if req.Length == 0 {
		req.Length = DefaultPlaylistLength
	}
	if req.Diversity == 0 {
		req.Diversity = DefaultPlaylistDiversity
	}
	if req.Length < MinPlaylistLength || req.Length > MaxPlaylistLength {
		return domain.Playlist{}, fmt.Errorf("service: %w: length must be between %d and %d", domain.ErrInvalidArgument, MinPlaylistLength, MaxPlaylistLength)
	}
	if req.Diversity < MinPlaylistDiversity || req.Diversity > MaxPlaylistDiversity {
		return domain.Playlist{}, fmt.Errorf("service: %w: diversity must be between %.1f and %.1f", domain.ErrInvalidArgument, MinPlaylistDiversity, MaxPlaylistDiversity)
	}
	if strings.TrimSpace(req.Seed) == "" {
		return domain.Playlist{}, fmt.Errorf("service: %w: seed is required", domain.ErrInvalidArgument)
	}

	ctx, span := tracing.StartSpan(ctx, "recommender.GeneratePlaylist",
		attribute.String("playlist.seed", req.Seed),
		attribute.Int("playlist.length", req.Length),
		attribute.Float64("playlist.diversity", req.Diversity))
	defer span.End()

	hits := cat.Search(req.Seed, 1)
	if len(hits) == 0 {
		return domain.Playlist{}, fmt.Errorf("service: %w: no song matches %q", domain.ErrSongNotFound, req.Seed)
	}
	seed := hits[0]

	start := time.Now()
	pool := min(r.opts.MaxPlaylistPool, 3*req.Length)
	candidates, err := cat.Similar(ctx, seed, pool)
	if err != nil {
		return domain.Playlist{}, fmt.Errorf("service: playlist candidates: %w", err)
	}
	picks := r.pickTracks(candidates, req.Length-1, req.Diversity)
	metrics.ObserveRecommendation("playlist", time.Since(start))

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = fmt.Sprintf("%s Radio", seed.Title)
	}
	p, err := domain.NewPlaylist(uuid.NewString(), name)
	if err != nil {
		return domain.Playlist{}, fmt.Errorf("service: new playlist: %w", err)
	}
	p.Seed = req.Seed
	p.Diversity = req.Diversity
	p.CreatedAt = time.Now().UTC()

	if err := p.AddTrack(domain.PlaylistTrack{Song: seed, Score: 1, IsSeed: true}); err != nil {
		return domain.Playlist{}, fmt.Errorf("service: add seed: %w", err)
	}
	for _, rec := range picks {
		err := p.AddTrack(domain.PlaylistTrack{Song: rec.Song, Score: rec.Score})
		if errors.Is(err, domain.ErrDuplicateSong) {
			continue
		}
		if err != nil {
			return domain.Playlist{}, fmt.Errorf("service: add track: %w", err)
		}
	}

	if err := r.deps.Playlists.Save(ctx, *p); err != nil {
		return domain.Playlist{}, fmt.Errorf("service: save playlist: %w", err)
	}
	logging.Info().Str("playlist_id", p.ID).Str("seed", seed.Title).Int("tracks", len(p.Tracks)).Msg("playlist generated")
	return *p, nil
}

// pickTracks chooses want tracks from candidates, which are ordered best first.
func (r *Recommender) pickTracks(candidates []domain.Recommendation, want int, diversity float64) []domain.Recommendation {
	if diversity < focusedDiversity {
		return candidates[:min(want, len(candidates))]
	}

	length := want + 1
	top := max(2, int((1-diversity)*float64(length)))
	top = min(top, want, len(candidates))
	picks := append([]domain.Recommendation(nil), candidates[:top]...)

	rest := candidates[top:]
	k := min(want-top, len(rest))
	if k <= 0 {
		return picks
	}
	r.rngMu.Lock()
	perm := r.rng.Perm(len(rest))
	r.rngMu.Unlock()
	for _, i := range perm[:k] {
		picks = append(picks, rest[i])
	}
	return picks
}

func (r *Recommender) GetPlaylist(ctx context.Context, id string) (domain.Playlist, error) {
	p, err := r.deps.Playlists.GetByID(ctx, id)
	if err != nil {
		return domain.Playlist{}, fmt.Errorf("service: load playlist: %w", err)
	}
	return p, nil
}

// PlaylistAnalysis returns the mean audio features of a stored playlist.
func (r *Recommender) PlaylistAnalysis(ctx context.Context, id string) (domain.AudioFeatures, error) {
	f, err := r.deps.Playlists.GetPlaylistAudioFeatures(ctx, id)
	if err != nil {
		return domain.AudioFeatures{}, fmt.Errorf("service: analyze playlist: %w", err)
	}
	return f, nil
}
