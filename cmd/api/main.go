package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ewilliams-labs/songmatch/internal/adapters/cache"
	"github.com/ewilliams-labs/songmatch/internal/adapters/dataset"
	"github.com/ewilliams-labs/songmatch/internal/adapters/ollama"
	"github.com/ewilliams-labs/songmatch/internal/adapters/rest"
	"github.com/ewilliams-labs/songmatch/internal/adapters/spotify"
	"github.com/ewilliams-labs/songmatch/internal/adapters/sqlite"
	"github.com/ewilliams-labs/songmatch/internal/config"
	"github.com/ewilliams-labs/songmatch/internal/core/ports"
	"github.com/ewilliams-labs/songmatch/internal/core/services"
	"github.com/ewilliams-labs/songmatch/internal/logging"
	"github.com/ewilliams-labs/songmatch/internal/supervisor"
	"github.com/ewilliams-labs/songmatch/internal/tracing"
	"github.com/ewilliams-labs/songmatch/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Caller: cfg.Logging.Caller})

	tp, err := tracing.NewProvider(tracing.Config{
		ServiceName:  cfg.Tracing.ServiceName,
		Enabled:      cfg.Tracing.Enabled,
		OTLPEndpoint: cfg.Tracing.Endpoint,
		SamplingRate: cfg.Tracing.SamplingRate,
		InsecureMode: cfg.Tracing.Insecure,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize tracing")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logging.Warn().Err(err).Msg("tracer shutdown failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// -- Storage
	db, err := sqlite.NewAdapter(cfg.Storage.SQLitePath)
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.Storage.SQLitePath).Msg("failed to initialize database")
	}
	defer db.Close()

	deps := services.Deps{
		Songs:     db,
		Playlists: db,
		Sources: dataset.Resolver{
			Dir: cfg.Dataset.Dir,
			S3: dataset.S3Config{
				Region:          cfg.Dataset.S3Region,
				Endpoint:        cfg.Dataset.S3Endpoint,
				AccessKeyID:     cfg.Dataset.S3AccessKeyID,
				SecretAccessKey: cfg.Dataset.S3SecretAccessKey,
			},
		},
		Cache: newCache(ctx, cfg.Cache),
	}

	// -- Optional integrations
	if cfg.Spotify.Enabled() {
		deps.Spotify = spotify.NewClientWithCredentials(ctx, spotify.Credentials{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			TokenURL:     cfg.Spotify.TokenURL,
		}, cfg.Spotify.BaseURL, spotify.WithRetry(cfg.Spotify.MaxRetries, cfg.Spotify.RetryBackoff))
		logging.Info().Msg("spotify enrichment enabled")
	} else {
		logging.Info().Msg("spotify credentials not set, enrichment disabled")
	}
	if cfg.Ollama.Enabled {
		deps.Intent = ollama.NewClient(cfg.Ollama.Host, cfg.Ollama.Model, cfg.Ollama.Timeout)
		logging.Info().Str("host", cfg.Ollama.Host).Str("model", cfg.Ollama.Model).Msg("intent compiler enabled")
	}

	svc := services.NewRecommender(deps, services.Options{
		DefaultSource:   cfg.Dataset.Source,
		MaxDatasetBytes: cfg.Dataset.MaxBytes,
		BatchSize:       cfg.Recommend.BatchSize,
		DefaultResults:  cfg.Recommend.DefaultResults,
		FeatureResults:  cfg.Recommend.FeatureResults,
		MaxResults:      cfg.Recommend.MaxResults,
		MaxPlaylistPool: cfg.Recommend.MaxPlaylistPool,
		RandomSeed:      cfg.Recommend.RandomSeed,
	})

	if cfg.Dataset.ImportOnStart {
		if err := svc.LoadCatalog(ctx); err != nil {
			// the API still starts; /ready stays 503 until an import succeeds
			logging.Error().Err(err).Str("source", cfg.Dataset.Source).Msg("initial catalog load failed")
		}
	}

	pool := worker.NewPool(svc, cfg.Worker.Count, cfg.Worker.QueueSize)
	handler := rest.NewHandler(svc, pool, rest.Config{
		CORSOrigins:       cfg.Server.CORSOrigins,
		RateLimitRequests: cfg.Server.RateLimitRequests,
		RateLimitWindow:   cfg.Server.RateLimitWindow,
		ServiceName:       cfg.Tracing.ServiceName,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	sup := supervisor.New("songmatch-api", supervisor.Config{ShutdownTimeout: cfg.Server.ShutdownTimeout})
	sup.Add(pool)
	sup.Add(supervisor.NewHTTPService("api-http", srv, cfg.Server.ShutdownTimeout))

	logging.Info().Str("addr", cfg.Server.Addr).Msg("songmatch API listening")
	if err := sup.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("supervisor stopped")
	}
	logging.Info().Msg("songmatch API stopped")
}

// newCache returns nil when caching is off or the backend is unreachable;
// the recommender works uncached.
func newCache(ctx context.Context, cfg config.CacheConfig) ports.ResultCache {
	switch cfg.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		rc := cache.NewRedis(client, cfg.TTL)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := rc.Ping(pingCtx); err != nil {
			logging.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, caching disabled")
			return nil
		}
		return rc
	case "none":
		return nil
	default:
		return cache.NewMemory(cfg.Capacity, cfg.TTL)
	}
}
