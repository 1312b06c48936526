package services

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ewilliams-labs/songmatch/internal/core/domain"
	"github.com/ewilliams-labs/songmatch/internal/core/ports"
	"github.com/ewilliams-labs/songmatch/internal/metrics"
	"github.com/ewilliams-labs/songmatch/internal/tracing"
)

// EnrichSong looks up the song at index on Spotify. Matches are cached
// per catalog version; misses are not.
func (r *Recommender) EnrichSong(ctx context.Context, index int) (ports.TrackInfo, error) {
	if r.deps.Spotify == nil {
		return ports.TrackInfo{}, domain.ErrEnrichmentUnavailable
	}
	cat, err := r.catalog()
	if err != nil {
		return ports.TrackInfo{}, err
	}
	song, err := cat.Song(index)
	if err != nil {
		return ports.TrackInfo{}, err
	}

	ctx, span := tracing.StartSpan(ctx, "recommender.EnrichSong", attribute.Int("song.index", index))
	defer span.End()

	key := cacheKey(cat.Version(), "spotify", index)
	var info ports.TrackInfo
	if r.cacheGet(ctx, key, &info) {
		return info, nil
	}

	info, err = r.deps.Spotify.GetTrackByMetadata(ctx, song.Title, song.Artist)
	switch {
	case errors.Is(err, ports.ErrNoConfidentMatch):
		metrics.EnrichmentRequests.WithLabelValues("no_match").Inc()
		return ports.TrackInfo{}, err
	case err != nil:
		metrics.EnrichmentRequests.WithLabelValues("error").Inc()
		return ports.TrackInfo{}, fmt.Errorf("service: enrich song %d: %w", index, err)
	}
	metrics.EnrichmentRequests.WithLabelValues("matched").Inc()
	r.cacheSet(ctx, key, info)
	return info, nil
}
