// Package metrics exposes Prometheus collectors for the recommender.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "songmatch_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "songmatch_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	RecommendationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "songmatch_recommendation_duration_seconds",
			Help:    "Time spent ranking the catalog, by request kind",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"kind"}, // "song", "features", "description", "playlist"
	)

	CatalogSongs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "songmatch_catalog_songs",
			Help: "Number of songs in the active catalog",
		},
	)

	CatalogLoadWarnings = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "songmatch_catalog_load_warnings",
			Help: "Rows skipped or repaired while loading the active catalog",
		},
	)

	ImportJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "songmatch_import_jobs_total",
			Help: "Dataset import jobs by final status",
		},
		[]string{"status"},
	)

	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "songmatch_cache_hits_total",
			Help: "Result cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "songmatch_cache_misses_total",
			Help: "Result cache misses",
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "songmatch_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	EnrichmentRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "songmatch_enrichment_requests_total",
			Help: "Spotify enrichment lookups by outcome",
		},
		[]string{"outcome"},
	)
)

// RecordAPIRequest records one served request.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveRecommendation records ranking latency for one kind of request.
func ObserveRecommendation(kind string, duration time.Duration) {
	RecommendationDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func RecordCacheLookup(hit bool) {
	if hit {
		CacheHits.Inc()
		return
	}
	CacheMisses.Inc()
}

// SetCatalog publishes the size of a freshly activated catalog.
func SetCatalog(songs, warnings int) {
	CatalogSongs.Set(float64(songs))
	CatalogLoadWarnings.Set(float64(warnings))
}

// Middleware records request counts and latency labelled by chi route
// pattern, so path parameters do not explode cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RecordAPIRequest(r.Method, route, status, time.Since(start))
	})
}
