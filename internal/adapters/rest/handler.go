// Package rest exposes the recommender as a JSON API.
package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ewilliams-labs/songmatch/internal/core/services"
	"github.com/ewilliams-labs/songmatch/internal/logging"
	"github.com/ewilliams-labs/songmatch/internal/metrics"
	"github.com/ewilliams-labs/songmatch/internal/worker"
)

// Config holds HTTP-level settings. A zero RateLimitRequests disables
// rate limiting.
type Config struct {
	CORSOrigins       []string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	ServiceName       string
}

// Handler manages the HTTP interface for our application.
type Handler struct {
	svc    *services.Recommender
	jobs   *worker.Pool
	cfg    Config
	router chi.Router
	root   http.Handler
}

// NewHandler initializes the HTTP adapter and sets up routes.
func NewHandler(svc *services.Recommender, jobs *worker.Pool, cfg Config) *Handler {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "songmatch-api"
	}
	h := &Handler{
		svc:    svc,
		jobs:   jobs,
		cfg:    cfg,
		router: chi.NewRouter(),
	}
	h.routes()
	h.root = otelhttp.NewHandler(h.router, cfg.ServiceName,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
	return h
}

// ServeHTTP satisfies the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.root.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	r := h.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	origins := h.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Location"},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeErrorWithCode(w, http.StatusNotFound, "route not found", errCodeNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeErrorWithCode(w, http.StatusMethodNotAllowed, "method not allowed", errCodeMethodNotAllowed)
	})

	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if h.cfg.RateLimitRequests > 0 {
			r.Use(httprate.Limit(h.cfg.RateLimitRequests, h.cfg.RateLimitWindow,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
					writeErrorWithCode(w, http.StatusTooManyRequests, "rate limit exceeded", errCodeRateLimited)
				}),
			))
		}

		r.Get("/catalog", h.GetCatalog)
		r.Post("/catalog/import", h.StartImport)
		r.Get("/catalog/import/{id}", h.GetImport)

		r.Route("/songs", func(r chi.Router) {
			r.Get("/search", h.SearchSongs)
			r.Get("/lookup", h.LookupSong)
			r.Get("/{index}/features", h.GetSongFeatures)
			r.Get("/{index}/spotify", h.GetSongSpotify)
		})

		r.Route("/recommendations", func(r chi.Router) {
			r.Get("/song", h.RecommendBySong)
			r.Post("/features", h.RecommendByFeatures)
			r.Post("/describe", h.RecommendByDescription)
		})

		r.Route("/playlists", func(r chi.Router) {
			r.Post("/", h.CreatePlaylist)
			r.Get("/{id}", h.GetPlaylist)
			r.Get("/{id}/analysis", h.GetPlaylistAnalysis)
		})

		r.Route("/explore", func(r chi.Router) {
			r.Get("/overview", h.GetOverview)
			r.Get("/stats", h.GetFeatureStats)
			r.Get("/correlations", h.GetCorrelations)
			r.Get("/features/{name}/histogram", h.GetHistogram)
			r.Get("/features/{name}/top", h.GetTopSongs)
		})
	})
}

// HealthCheck is a simple endpoint to verify the API is running.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadyCheck reports 503 until a catalog has been loaded.
func (h *Handler) ReadyCheck(w http.ResponseWriter, _ *http.Request) {
	info, err := h.svc.CatalogInfo()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready", "songs": info.Songs, "version": info.Version})
}
