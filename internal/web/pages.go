package web

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ewilliams-labs/songmatch/internal/apiclient"
	"github.com/ewilliams-labs/songmatch/internal/catalog"
	"github.com/ewilliams-labs/songmatch/internal/core/domain"
	"github.com/ewilliams-labs/songmatch/internal/core/services"
)

const (
	searchLimit      = 20
	defaultResults   = 10
	defaultFeature   = "energy"
	defaultHistoBins = 10
)

type homeData struct {
	Query    string
	Results  []domain.Song
	Examples []string
}

type recommendationsData struct {
	Title  string
	Artist string
	N      int
	Recs   *services.SongRecommendations
}

type featuresData struct {
	Values map[string]float64
	N      int
	Recs   *services.FeatureRecommendations
}

type playlistData struct {
	Seed      string
	Length    int
	Diversity float64
	Name      string
	Playlist  *domain.Playlist
	Analysis  *domain.AudioFeatures
}

type exploreData struct {
	Feature      string
	Overview     catalog.Overview
	Stats        []catalog.FeatureSummary
	Correlations catalog.Correlations
	Histogram    catalog.Histogram
	MaxBin       int
	Top          []domain.Song
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok","service":"songmatch-web"}`))
}

// ready reports whether the API answers and has a catalog.
func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.opts.ReadyTimeout)
	defer cancel()
	w.Header().Set("Content-Type", "application/json")
	if err := s.api.Ready(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"not_ready"}`))
		return
	}
	_, _ = w.Write([]byte(`{"status":"ready","api":"connected"}`))
}

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	p := s.newPage(r.Context(), "home", "Find songs")
	data := homeData{Query: strings.TrimSpace(r.URL.Query().Get("q")), Examples: s.opts.ExampleSongs}
	status := http.StatusOK
	if data.Query != "" && p.CatalogErr == "" {
		songs, err := s.api.Search(r.Context(), data.Query, searchLimit)
		if err != nil {
			p.Error, status = userMessage(err), errorStatus(err)
		}
		data.Results = songs
	}
	p.Data = data
	s.render(w, "home", status, p)
}

func (s *Server) recommendations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := s.newPage(r.Context(), "recommendations", "Similar songs")
	data := recommendationsData{
		Title:  strings.TrimSpace(q.Get("title")),
		Artist: strings.TrimSpace(q.Get("artist")),
		N:      formInt(q, "n", defaultResults),
	}
	status := http.StatusOK
	if data.Title != "" && p.CatalogErr == "" {
		recs, err := s.api.RecommendBySong(r.Context(), data.Title, data.Artist, data.N)
		if err != nil {
			p.Error, status = userMessage(err), errorStatus(err)
		} else {
			data.Recs = &recs
		}
	}
	p.Data = data
	s.render(w, "recommendations", status, p)
}

// features renders the slider form. Any feature value in the query runs a
// recommendation; missing sliders sit at 0.5.
func (s *Server) features(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := s.newPage(r.Context(), "features", "By audio features")
	data := featuresData{Values: make(map[string]float64, domain.FeatureCount), N: formInt(q, "n", defaultResults)}

	submitted := false
	for _, name := range domain.FeatureNames {
		data.Values[name] = 0.5
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		submitted = true
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			data.Values[name] = v
		}
	}

	status := http.StatusOK
	if submitted && p.CatalogErr == "" {
		recs, err := s.api.RecommendByFeatures(r.Context(), data.Values, data.N)
		if err != nil {
			p.Error, status = userMessage(err), errorStatus(err)
		} else {
			data.Recs = &recs
		}
	}
	p.Data = data
	s.render(w, "features", status, p)
}

// playlist shows the generator form, or a stored playlist when id is set.
func (s *Server) playlist(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := s.newPage(r.Context(), "playlist", "Playlist generator")
	data := playlistData{Length: 10, Diversity: 0.5}
	status := http.StatusOK
	if id := q.Get("id"); id != "" {
		pl, err := s.api.Playlist(r.Context(), id)
		if err != nil {
			p.Error, status = userMessage(err), errorStatus(err)
		} else {
			data.Playlist = &pl
			data.Seed, data.Diversity, data.Length = pl.Seed, pl.Diversity, len(pl.Tracks)
			if a, err := s.api.PlaylistAnalysis(r.Context(), id); err == nil {
				data.Analysis = &a
			}
		}
	}
	p.Data = data
	s.render(w, "playlist", status, p)
}

func (s *Server) createPlaylist(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	req := apiclient.PlaylistRequest{
		Seed:   strings.TrimSpace(r.PostForm.Get("seed")),
		Length: formInt(r.PostForm, "length", 0),
		Name:   strings.TrimSpace(r.PostForm.Get("name")),
	}
	if v, err := strconv.ParseFloat(r.PostForm.Get("diversity"), 64); err == nil {
		req.Diversity = v
	}

	pl, err := s.api.CreatePlaylist(r.Context(), req)
	if err != nil {
		p := s.newPage(r.Context(), "playlist", "Playlist generator")
		p.Error = userMessage(err)
		p.Data = playlistData{Seed: req.Seed, Length: req.Length, Diversity: req.Diversity, Name: req.Name}
		s.render(w, "playlist", errorStatus(err), p)
		return
	}
	http.Redirect(w, r, "/recommendations/playlist?id="+url.QueryEscape(pl.ID), http.StatusSeeOther)
}

func (s *Server) explore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := s.newPage(ctx, "explore", "Explore the catalog")
	data := exploreData{Feature: r.URL.Query().Get("feature")}
	if !domain.IsFeature(data.Feature) {
		data.Feature = defaultFeature
	}
	if p.CatalogErr != "" {
		p.Data = data
		s.render(w, "explore", http.StatusOK, p)
		return
	}

	steps := []func() error{
		func() (err error) { data.Overview, err = s.api.Overview(ctx); return },
		func() (err error) { data.Stats, err = s.api.FeatureStats(ctx); return },
		func() (err error) { data.Correlations, err = s.api.Correlations(ctx); return },
		func() (err error) { data.Histogram, err = s.api.Histogram(ctx, data.Feature, defaultHistoBins); return },
		func() (err error) { data.Top, err = s.api.TopSongs(ctx, data.Feature, defaultResults); return },
	}
	var err error
	for _, step := range steps {
		if err = step(); err != nil {
			break
		}
	}
	status := http.StatusOK
	if err != nil {
		p.Error, status = userMessage(err), errorStatus(err)
	}
	for _, b := range data.Histogram.Bins {
		data.MaxBin = max(data.MaxBin, b.Count)
	}
	p.Data = data
	s.render(w, "explore", status, p)
}

func formInt(v url.Values, name string, def int) int {
	n, err := strconv.Atoi(v.Get(name))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
