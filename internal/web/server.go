// Package web serves the server-rendered pages. Every page reads from the
// JSON API through apiclient.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ewilliams-labs/songmatch/internal/apiclient"
	"github.com/ewilliams-labs/songmatch/internal/core/domain"
	"github.com/ewilliams-labs/songmatch/internal/logging"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"home", "recommendations", "features", "playlist", "explore"}

type Options struct {
	ExampleSongs []string
	// ReadyTimeout bounds the API probe made by /ready.
	ReadyTimeout time.Duration
}

type Server struct {
	api    *apiclient.Client
	opts   Options
	pages  map[string]*template.Template
	router chi.Router
}

// NewServer parses the embedded templates and builds the router.
func NewServer(api *apiclient.Client, opts Options) (*Server, error) {
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = 5 * time.Second
	}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("web: parse %s template: %w", name, err)
		}
		pages[name] = t
	}
	s := &Server{api: api, opts: opts, pages: pages, router: chi.NewRouter()}
	s.routes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)
	r.Get("/ready", s.ready)

	r.Get("/", s.home)
	r.Get("/recommendations", s.recommendations)
	r.Get("/recommendations/features", s.features)
	r.Get("/recommendations/playlist", s.playlist)
	r.Post("/recommendations/playlist", s.createPlaylist)
	r.Get("/explore", s.explore)
}

// page is what every template receives.
type page struct {
	Title      string
	Active     string
	Warnings   []domain.LoadWarning
	CatalogErr string
	Error      string
	Data       any
}

// newPage fills the catalog banner fields shared by all pages.
func (s *Server) newPage(ctx context.Context, active, title string) page {
	p := page{Title: title, Active: active}
	info, err := s.api.Catalog(ctx)
	if err != nil {
		p.CatalogErr = userMessage(err)
		return p
	}
	p.Warnings = info.Warnings
	return p
}

func (s *Server) render(w http.ResponseWriter, name string, status int, p page) {
	t, ok := s.pages[name]
	if !ok {
		http.Error(w, "unknown page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := t.ExecuteTemplate(w, "layout.html", p); err != nil {
		logging.Error().Err(err).Str("page", name).Msg("failed to render page")
	}
}

// userMessage turns an API or transport error into something fit for the
// page.
func userMessage(err error) string {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		if len(apiErr.Details) > 0 {
			return apiErr.Details[0].Message
		}
		switch apiErr.Code {
		case "CATALOG_NOT_LOADED":
			return "The song catalog has not been loaded yet."
		case "SONG_NOT_FOUND":
			return "No song matched that title."
		case "NOT_CONFIGURED":
			return "This feature is not configured on the server."
		}
		return apiErr.Message
	}
	return "The recommendation service is unreachable."
}

// errorStatus picks the page status for an API error.
func errorStatus(err error) int {
	if st := apiclient.StatusOf(err); st >= 400 && st < 500 {
		return st
	}
	return http.StatusBadGateway
}
