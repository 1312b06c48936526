package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ewilliams-labs/songmatch/internal/core/domain"
	"github.com/ewilliams-labs/songmatch/internal/logging"
	"github.com/ewilliams-labs/songmatch/internal/metrics"
	"github.com/ewilliams-labs/songmatch/internal/tracing"
)

// neutralFeature fills features a caller leaves unset.
const neutralFeature = 0.5

// SongRecommendations are the songs most similar to Seed.
type SongRecommendations struct {
	Seed    domain.Song             `json:"seed"`
	Results []domain.Recommendation `json:"results"`
}

// FeatureRecommendations are the songs nearest a target feature vector.
type FeatureRecommendations struct {
	Target  domain.AudioFeatures    `json:"target"`
	Results []domain.Recommendation `json:"results"`
}

// DescribedRecommendations pair the interpreted intent with its results.
type DescribedRecommendations struct {
	Intent  domain.IntentObject     `json:"intent"`
	Target  domain.AudioFeatures    `json:"target"`
	Results []domain.Recommendation `json:"results"`
}

// Search matches query against "title artist". An empty query yields no songs.
func (r *Recommender) Search(query string, limit int) ([]domain.Song, error) {
	cat, err := r.catalog()
	if err != nil {
		return nil, err
	}
	return cat.Search(query, limit), nil
}

func (r *Recommender) SongByNameAndArtist(title, artist string) (domain.Song, error) {
	cat, err := r.catalog()
	if err != nil {
		return domain.Song{}, err
	}
	if strings.TrimSpace(title) == "" {
		return domain.Song{}, fmt.Errorf("service: %w: title is required", domain.ErrInvalidArgument)
	}
	return cat.Lookup(title, artist)
}

func (r *Recommender) Song(index int) (domain.Song, error) {
	cat, err := r.catalog()
	if err != nil {
		return domain.Song{}, err
	}
	return cat.Song(index)
}

// SongFeatures returns the normalized features of the song at index, by name.
func (r *Recommender) SongFeatures(index int) (map[string]float64, error) {
	s, err := r.Song(index)
	if err != nil {
		return nil, err
	}
	return s.Features.Map(), nil
}

// RecommendBySong ranks the catalog against the song titled title. The
// artist narrows the seed when it matches; otherwise the first song with
// that title is used.
func (r *Recommender) RecommendBySong(ctx context.Context, title, artist string, n int) (SongRecommendations, error) {
	cat, err := r.catalog()
	if err != nil {
		return SongRecommendations{}, err
	}
	if strings.TrimSpace(title) == "" {
		return SongRecommendations{}, fmt.Errorf("service: %w: title is required", domain.ErrInvalidArgument)
	}
	n = r.clampN(n, r.opts.DefaultResults)

	ctx, span := tracing.StartSpan(ctx, "recommender.RecommendBySong",
		attribute.String("song.title", title), attribute.Int("results.requested", n))
	defer span.End()

	key := cacheKey(cat.Version(), "song", strings.ToLower(strings.TrimSpace(title)), strings.ToLower(strings.TrimSpace(artist)), n)
	var out SongRecommendations
	if r.cacheGet(ctx, key, &out) {
		return out, nil
	}

	seed, err := cat.ResolveSeed(title, artist)
	if err != nil {
		return SongRecommendations{}, err
	}
	start := time.Now()
	results, err := cat.Similar(ctx, seed, n)
	if err != nil {
		return SongRecommendations{}, fmt.Errorf("service: recommend by song: %w", err)
	}
	metrics.ObserveRecommendation("song", time.Since(start))

	out = SongRecommendations{Seed: seed, Results: results}
	r.cacheSet(ctx, key, out)
	return out, nil
}

// RecommendByFeatures ranks the catalog against a partial feature map.
// Unset features default to the middle of the scale.
func (r *Recommender) RecommendByFeatures(ctx context.Context, features map[string]float64, n int) (FeatureRecommendations, error) {
	cat, err := r.catalog()
	if err != nil {
		return FeatureRecommendations{}, err
	}
	target, err := targetFeatures(features)
	if err != nil {
		return FeatureRecommendations{}, err
	}
	n = r.clampN(n, r.opts.FeatureResults)

	ctx, span := tracing.StartSpan(ctx, "recommender.RecommendByFeatures", attribute.Int("results.requested", n))
	defer span.End()

	key := cacheKey(cat.Version(), "features", target.Values(), n)
	var out FeatureRecommendations
	if r.cacheGet(ctx, key, &out) {
		return out, nil
	}

	start := time.Now()
	results, err := cat.Nearest(ctx, target, n)
	if err != nil {
		return FeatureRecommendations{}, fmt.Errorf("service: recommend by features: %w", err)
	}
	metrics.ObserveRecommendation("features", time.Since(start))

	out = FeatureRecommendations{Target: target, Results: results}
	r.cacheSet(ctx, key, out)
	return out, nil
}

// RecommendByDescription interprets message with the intent compiler and
// recommends songs near the resulting feature targets.
func (r *Recommender) RecommendByDescription(ctx context.Context, message string, n int) (DescribedRecommendations, error) {
	if r.deps.Intent == nil {
		return DescribedRecommendations{}, domain.ErrIntentUnavailable
	}
	cat, err := r.catalog()
	if err != nil {
		return DescribedRecommendations{}, err
	}
	if strings.TrimSpace(message) == "" {
		return DescribedRecommendations{}, fmt.Errorf("service: %w: message is required", domain.ErrInvalidArgument)
	}
	n = r.clampN(n, r.opts.FeatureResults)

	ctx, span := tracing.StartSpan(ctx, "recommender.RecommendByDescription")
	defer span.End()

	intent, err := r.deps.Intent.AnalyzeIntent(ctx, message)
	if err != nil {
		return DescribedRecommendations{}, fmt.Errorf("service: analyze intent: %w", err)
	}
	target, err := targetFeatures(intent.FeatureTargets())
	if err != nil {
		return DescribedRecommendations{}, err
	}

	start := time.Now()
	results, err := cat.Nearest(ctx, target, n)
	if err != nil {
		return DescribedRecommendations{}, fmt.Errorf("service: recommend by description: %w", err)
	}
	metrics.ObserveRecommendation("description", time.Since(start))

	logging.Debug().Str("intent", intent.IntentType).Int("constraints", len(intent.VibeConstraints)).Msg("description interpreted")
	return DescribedRecommendations{Intent: intent, Target: target, Results: results}, nil
}

func targetFeatures(features map[string]float64) (domain.AudioFeatures, error) {
	var target domain.AudioFeatures
	for _, name := range domain.FeatureNames {
		target.Set(name, neutralFeature)
	}
	for name, v := range features {
		if !domain.IsFeature(name) {
			return domain.AudioFeatures{}, fmt.Errorf("service: %w: %q", domain.ErrUnknownFeature, name)
		}
		if v < 0 || v > 1 {
			return domain.AudioFeatures{}, fmt.Errorf("service: %w: %s must be between 0 and 1, got %v", domain.ErrInvalidArgument, name, v)
		}
		target.Set(name, v)
	}
	return target, nil
}

func cacheKey(version, kind string, parts ...any) string {
	return fmt.Sprintf("%s:%s:%v", version, kind, parts)
}

func (r *Recommender) cacheGet(ctx context.Context, key string, dst any) bool {
	if r.deps.Cache == nil {
		return false
	}
	raw, ok := r.deps.Cache.Get(ctx, key)
	if ok {
		if err := json.Unmarshal(raw, dst); err != nil {
			logging.Warn().Err(err).Str("key", key).Msg("discarding undecodable cache entry")
			ok = false
		}
	}
	metrics.RecordCacheLookup(ok)
	return ok
}

func (r *Recommender) cacheSet(ctx context.Context, key string, v any) {
	if r.deps.Cache == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("cache encode failed")
		return
	}
	r.deps.Cache.Set(ctx, key, raw)
}
