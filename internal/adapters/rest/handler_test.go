package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ewilliams-labs/songmatch/internal/adapters/sqlite"
	"github.com/ewilliams-labs/songmatch/internal/core/domain"
	"github.com/ewilliams-labs/songmatch/internal/core/ports"
	"github.com/ewilliams-labs/songmatch/internal/core/services"
	"github.com/ewilliams-labs/songmatch/internal/worker"
)

const testDataset = "track_id,artists,album_name,track_name,popularity,danceability,energy,loudness,speechiness,acousticness,instrumentalness,liveness,valence,tempo,track_genre\n" +
	"s1,Ed Sheeran,Divide,Shape of You,90,0.83,0.65,-3.2,0.08,0.58,0,0.09,0.93,96,pop\n" +
	"s2,Michael Jackson,Thriller,Billie Jean,88,0.92,0.65,-4.0,0.04,0.02,0.02,0.04,0.85,117,pop\n" +
	"s3,Queen,A Night at the Opera,Bohemian Rhapsody,85,0.41,0.40,-9.9,0.05,0.27,0,0.30,0.22,72,rock\n" +
	"s4,Billie Eilish,When We All Fall Asleep,Bad Guy,87,0.70,0.43,-10.9,0.37,0.33,0.13,0.10,0.56,135,pop\n" +
	"s5,Tones and I,The Kids Are Coming,Dance Monkey,86,0.82,0.59,-6.4,0.09,0.69,0,0.15,0.54,98,pop\n" +
	"s6,Adele,21,Someone Like You,84,0.56,0.33,-8.3,0.03,0.89,0,0.10,0.29,135,soul\n" +
	"s7,Daft Punk,Discovery,One More Time,80,0.61,0.70,-8.6,0.13,0.02,0,0.33,0.48,123,electronic\n" +
	"s8,Metallica,Metallica,Enter Sandman,82,0.58,0.83,-6.0,0.04,0.00,0.01,0.06,0.56,123,metal\n" +
	"s9,Norah Jones,Come Away with Me,Don't Know Why,75,0.62,0.22,-11.5,0.03,0.92,0.01,0.11,0.31,88,jazz\n" +
	"s10,Pharrell Williams,G I R L,Happy,83,0.65,0.82,-4.7,0.18,0.22,0,0.09,0.96,160,pop\n" +
	"s11,Queen,News of the World,We Will Rock You,81,0.69,0.50,-7.2,0.12,0.68,0,0.26,0.47,81,rock\n" +
	"s12,The Weeknd,After Hours,Blinding Lights,92,0.51,0.73,-5.9,0.06,0.00,0,0.09,0.33,171,pop\n"

// --- Mocks ---

type stringSource struct{ name, body string }

func (s stringSource) Name() string { return s.name }
func (s stringSource) Open(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(s.body)), nil
}

type mapResolver map[string]string

func (m mapResolver) Resolve(location string) (ports.DatasetSource, error) {
	body, ok := m[location]
	if !ok {
		return nil, domain.ErrInvalidArgument
	}
	return stringSource{name: location, body: body}, nil
}

type mockIntent struct {
	intent domain.IntentObject
	err    error
}

func (m mockIntent) AnalyzeIntent(context.Context, string) (domain.IntentObject, error) {
	return m.intent, m.err
}

type mockSpotify struct {
	info ports.TrackInfo
	err  error
}

func (m mockSpotify) GetTrackByMetadata(_ context.Context, title, artist string) (ports.TrackInfo, error) {
	if m.err != nil {
		return ports.TrackInfo{}, m.err
	}
	info := m.info
	info.Title, info.Artist = title, artist
	return info, nil
}

type testEnv struct {
	svc  *services.Recommender
	pool *worker.Pool
	h    *Handler
}

// newTestEnv builds a real recommender over an in-memory database. The
// catalog is loaded unless load is false.
func newTestEnv(t *testing.T, deps services.Deps, cfg Config, load bool) testEnv {
	t.Helper()
	repo, err := sqlite.NewAdapter(":memory:")
	if err != nil {
		t.Fatalf("sqlite adapter: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	deps.Songs = repo
	deps.Playlists = repo
	deps.Sources = mapResolver{"songs.csv": testDataset, "empty.csv": "track_name,artists\n"}

	svc := services.NewRecommender(deps, services.Options{DefaultSource: "songs.csv", RandomSeed: 42})
	if load {
		if err := svc.LoadCatalog(context.Background()); err != nil {
			t.Fatalf("load catalog: %v", err)
		}
	}
	pool := worker.NewPool(svc, 1, 1)
	return testEnv{svc: svc, pool: pool, h: NewHandler(svc, pool, cfg)}
}

func (e testEnv) do(method, target string, body any) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	return rec
}

func assertResponse(t *testing.T, rec *httptest.ResponseRecorder, status int, substr string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected status %d, got %d, body: %s", status, rec.Code, strings.TrimSpace(rec.Body.String()))
	}
	if substr != "" && !strings.Contains(rec.Body.String(), substr) {
		t.Fatalf("expected body to contain %q, got %q", substr, rec.Body.String())
	}
}

// --- Tests ---

func TestHandler_HealthAndReady(t *testing.T) {
	env := newTestEnv(t, services.Deps{}, Config{}, false)

	assertResponse(t, env.do(http.MethodGet, "/health", nil), http.StatusOK, `"status":"ok"`)
	assertResponse(t, env.do(http.MethodGet, "/ready", nil), http.StatusServiceUnavailable, `"code":"CATALOG_NOT_LOADED"`)

	if err := env.svc.LoadCatalog(context.Background()); err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	assertResponse(t, env.do(http.MethodGet, "/ready", nil), http.StatusOK, `"songs":12`)
}

func TestHandler_NotLoadedReturns503(t *testing.T) {
	env := newTestEnv(t, services.Deps{}, Config{}, false)
	paths := []string{
		"/api/v1/catalog",
		"/api/v1/songs/search?q=queen",
		"/api/v1/recommendations/song?title=Happy",
		"/api/v1/explore/overview",
	}
	for _, p := range paths {
		t.Run(p, func(t *testing.T) {
			assertResponse(t, env.do(http.MethodGet, p, nil), http.StatusServiceUnavailable, "CATALOG_NOT_LOADED")
		})
	}
}

func TestHandler_RoutingErrors(t *testing.T) {
	env := newTestEnv(t, services.Deps{}, Config{}, true)
	assertResponse(t, env.do(http.MethodGet, "/api/v1/nope", nil), http.StatusNotFound, `"code":"NOT_FOUND"`)
	assertResponse(t, env.do(http.MethodDelete, "/api/v1/catalog", nil), http.StatusMethodNotAllowed, `"code":"METHOD_NOT_ALLOWED"`)
}

func TestHandler_SearchAndLookup(t *testing.T) {
	env := newTestEnv(t, services.Deps{}, Config{}, true)

	tests := []struct {
		name           string
		target         string
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "Success: search by artist",
			target:         "/api/v1/songs/search?q=queen&limit=5",
			expectedStatus: http.StatusOK,
			expectedBody:   "Bohemian Rhapsody",
		},
		{
			name:           "Bad Request: limit not a number",
			target:         "/api/v1/songs/search?q=queen&limit=abc",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"code":"VALIDATION_ERROR"`,
		},
		{
			name:           "Bad Request: limit too large",
			target:         "/api/v1/songs/search?q=queen&limit=1000",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"field":"limit"`,
		},
		{
			name:           "Success: lookup",
			target:         "/api/v1/songs/lookup?title=Shape+of+You&artist=Ed+Sheeran",
			expectedStatus: http.StatusOK,
			expectedBody:   `"title":"Shape of You"`,
		},
		{
			name:           "Bad Request: lookup without artist",
			target:         "/api/v1/songs/lookup?title=Happy",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "artist is required",
		},
		{
			name:           "Not Found: lookup unknown song",
			target:         "/api/v1/songs/lookup?title=Nothing+Here&artist=Nobody",
			expectedStatus: http.StatusNotFound,
			expectedBody:   `"code":"SONG_NOT_FOUND"`,
		},
		{
			name:           "Success: features by index",
			target:         "/api/v1/songs/0/features",
			expectedStatus: http.StatusOK,
			expectedBody:   `"danceability"`,
		},
		{
			name:           "Bad Request: non numeric index",
			target:         "/api/v1/songs/first/features",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "index must be an integer",
		},
		{
			name:           "Not Found: index out of range",
			target:         "/api/v1/songs/999/features",
			expectedStatus: http.StatusNotFound,
			expectedBody:   `"code":"SONG_NOT_FOUND"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertResponse(t, env.do(http.MethodGet, tt.target, nil), tt.expectedStatus, tt.expectedBody)
		})
	}
}

func TestHandler_RecommendBySong(t *testing.T) {
	env := newTestEnv(t, services.Deps{}, Config{}, true)

	rec := env.do(http.MethodGet, "/api/v1/recommendations/song?title=Shape+of+You&artist=Ed+Sheeran&n=3", nil)
	assertResponse(t, rec, http.StatusOK, "")

	var got services.SongRecommendations
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Seed.Title != "Shape of You" {
		t.Fatalf("unexpected seed %+v", got.Seed)
	}
	if len(got.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got.Results))
	}
	for i := 1; i < len(got.Results); i++ {
		if got.Results[i].Score > got.Results[i-1].Score {
			t.Fatalf("results not sorted by score: %+v", got.Results)
		}
	}

	assertResponse(t, env.do(http.MethodGet, "/api/v1/recommendations/song?artist=Queen", nil), http.StatusBadRequest, "title is required")
	assertResponse(t, env.do(http.MethodGet, "/api/v1/recommendations/song?title=Unheard+Of+Tune", nil), http.StatusNotFound, "SONG_NOT_FOUND")
}

func TestHandler_RecommendByFeatures(t *testing.T) {
	env := newTestEnv(t, services.Deps{}, Config{}, true)

	tests := []struct {
		name           string
		body           any
		rawBody        string
		contentType    string
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "Success: partial features",
			body:           map[string]any{"features": map[string]float64{"energy": 0.9, "valence": 0.9}, "n": 2},
			expectedStatus: http.StatusOK,
			expectedBody:   `"results"`,
		},
		{
			name:           "Bad Request: unknown feature",
			body:           map[string]any{"features": map[string]float64{"bpm": 0.5}},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"code":"VALIDATION_ERROR"`,
		},
		{
			name:           "Bad Request: value out of range",
			body:           map[string]any{"features": map[string]float64{"energy": 1.5}},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"code":"VALIDATION_ERROR"`,
		},
		{
			name:           "Bad Request: unknown field",
			rawBody:        `{"features":{},"extra":true}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "invalid request body",
		},
		{
			name:           "Bad Request: malformed json",
			rawBody:        `{invalid-json`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "invalid request body",
		},
		{
			name:           "Unsupported Media Type: form body",
			rawBody:        "energy=0.5",
			contentType:    "application/x-www-form-urlencoded",
			expectedStatus: http.StatusUnsupportedMediaType,
			expectedBody:   `"code":"UNSUPPORTED_MEDIA_TYPE"`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			body := []byte(tc.rawBody)
			if tc.body != nil {
				body, _ = json.Marshal(tc.body)
			}
			req := httptest.NewRequest(http.MethodPost, "/api/v1/recommendations/features", bytes.NewReader(body))
			ct := tc.contentType
			if ct == "" {
				ct = "application/json; charset=utf-8"
			}
			req.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()
			env.h.ServeHTTP(rec, req)
			assertResponse(t, rec, tc.expectedStatus, tc.expectedBody)
		})
	}
}

func TestHandler_RecommendByDescription(t *testing.T) {
	intent := domain.IntentObject{
		IntentType:      "vibe",
		VibeConstraints: map[string]domain.VibeConstraint{"energy": {Target: domain.Float64(0.9)}},
	}

	tests := []struct {
		name           string
		deps           services.Deps
		body           any
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "Not Implemented: no intent compiler",
			deps:           services.Deps{},
			body:           map[string]string{"message": "loud and fast"},
			expectedStatus: http.StatusNotImplemented,
			expectedBody:   `"code":"NOT_CONFIGURED"`,
		},
		{
			name:           "Success: compiled intent",
			deps:           services.Deps{Intent: mockIntent{intent: intent}},
			body:           map[string]string{"message": "loud and fast"},
			expectedStatus: http.StatusOK,
			expectedBody:   `"intent_type":"vibe"`,
		},
		{
			name:           "Bad Request: empty message",
			deps:           services.Deps{Intent: mockIntent{intent: intent}},
			body:           map[string]string{"message": ""},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "message is required",
		},
		{
			name:           "Service Unavailable: upstream down",
			deps:           services.Deps{Intent: mockIntent{err: domain.ErrIntentUnavailable}},
			body:           map[string]string{"message": "sad songs"},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `"code":"UPSTREAM_UNAVAILABLE"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.deps, Config{}, true)
			assertResponse(t, env.do(http.MethodPost, "/api/v1/recommendations/describe", tt.body), tt.expectedStatus, tt.expectedBody)
		})
	}
}

func TestHandler_GetSongSpotify(t *testing.T) {
	tests := []struct {
		name           string
		deps           services.Deps
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "Not Implemented: no credentials",
			expectedStatus: http.StatusNotImplemented,
			expectedBody:   `"code":"NOT_CONFIGURED"`,
		},
		{
			name:           "Success: match found",
			deps:           services.Deps{Spotify: mockSpotify{info: ports.TrackInfo{SpotifyID: "sp1", MatchScore: 0.95}}},
			expectedStatus: http.StatusOK,
			expectedBody:   `"spotify_id":"sp1"`,
		},
		{
			name:           "Unprocessable: no confident match",
			deps:           services.Deps{Spotify: mockSpotify{err: &ports.NoConfidentMatchError{Title: "Shape of You"}}},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `"code":"NO_CONFIDENT_MATCH"`,
		},
		{
			name:           "Service Unavailable: breaker open",
			deps:           services.Deps{Spotify: mockSpotify{err: domain.ErrEnrichmentUnavailable}},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `"code":"UPSTREAM_UNAVAILABLE"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.deps, Config{}, true)
			assertResponse(t, env.do(http.MethodGet, "/api/v1/songs/0/spotify", nil), tt.expectedStatus, tt.expectedBody)
		})
	}
}

func TestHandler_Playlists(t *testing.T) {
	env := newTestEnv(t, services.Deps{}, Config{}, true)

	rec := env.do(http.MethodPost, "/api/v1/playlists", map[string]any{"seed": "Happy", "length": 6, "diversity": 0.5})
	assertResponse(t, rec, http.StatusCreated, `"name":"Happy Radio"`)

	var created domain.Playlist
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode playlist: %v", err)
	}
	if loc := rec.Header().Get("Location"); loc != "/api/v1/playlists/"+created.ID {
		t.Fatalf("unexpected Location %q", loc)
	}
	if len(created.Tracks) != 6 || !created.Tracks[0].IsSeed {
		t.Fatalf("unexpected tracks: %+v", created.Tracks)
	}

	assertResponse(t, env.do(http.MethodGet, "/api/v1/playlists/"+created.ID, nil), http.StatusOK, `"id":"`+created.ID+`"`)
	assertResponse(t, env.do(http.MethodGet, "/api/v1/playlists/"+created.ID+"/analysis", nil), http.StatusOK, `"energy"`)
	assertResponse(t, env.do(http.MethodGet, "/api/v1/playlists/missing", nil), http.StatusNotFound, `"code":"NOT_FOUND"`)

	bad := []struct {
		name string
		body map[string]any
		want string
	}{
		{"missing seed", map[string]any{"length": 10}, "seed is required"},
		{"length too short", map[string]any{"seed": "Happy", "length": 2}, `"field":"length"`},
		{"diversity too high", map[string]any{"seed": "Happy", "diversity": 2}, `"field":"diversity"`},
	}
	for _, tc := range bad {
		t.Run(tc.name, func(t *testing.T) {
			assertResponse(t, env.do(http.MethodPost, "/api/v1/playlists", tc.body), http.StatusBadRequest, tc.want)
		})
	}
}

func TestHandler_Explore(t *testing.T) {
	env := newTestEnv(t, services.Deps{}, Config{}, true)

	assertResponse(t, env.do(http.MethodGet, "/api/v1/explore/overview", nil), http.StatusOK, `"songs":12`)
	assertResponse(t, env.do(http.MethodGet, "/api/v1/explore/stats", nil), http.StatusOK, `"tempo"`)
	assertResponse(t, env.do(http.MethodGet, "/api/v1/explore/correlations", nil), http.StatusOK, `"energy"`)
	assertResponse(t, env.do(http.MethodGet, "/api/v1/explore/features/energy/histogram?bins=5", nil), http.StatusOK, `"feature":"energy"`)
	assertResponse(t, env.do(http.MethodGet, "/api/v1/explore/features/energy/top?n=2", nil), http.StatusOK, "Enter Sandman")
	assertResponse(t, env.do(http.MethodGet, "/api/v1/explore/features/bpm/top", nil), http.StatusBadRequest, `"code":"UNKNOWN_FEATURE"`)
	assertResponse(t, env.do(http.MethodGet, "/api/v1/explore/features/energy/histogram?bins=-1", nil), http.StatusBadRequest, `"field":"bins"`)
}

func TestHandler_Import(t *testing.T) {
	env := newTestEnv(t, services.Deps{}, Config{}, false)

	rec := env.do(http.MethodPost, "/api/v1/catalog/import", map[string]string{"source": "songs.csv"})
	assertResponse(t, rec, http.StatusAccepted, `"status":"queued"`)

	var job worker.Job
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatalf("decode job: %v", err)
	}
	if loc := rec.Header().Get("Location"); loc != "/api/v1/catalog/import/"+job.ID {
		t.Fatalf("unexpected Location %q", loc)
	}

	// the queue holds a single job and nothing is draining it yet
	assertResponse(t, env.do(http.MethodPost, "/api/v1/catalog/import", nil), http.StatusServiceUnavailable, `"code":"QUEUE_FULL"`)
	assertResponse(t, env.do(http.MethodGet, "/api/v1/catalog/import/unknown", nil), http.StatusNotFound, `"code":"NOT_FOUND"`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = env.pool.Serve(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		rec = env.do(http.MethodGet, "/api/v1/catalog/import/"+job.ID, nil)
		if strings.Contains(rec.Body.String(), `"status":"succeeded"`) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("import did not finish: %s", rec.Body.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
	assertResponse(t, env.do(http.MethodGet, "/api/v1/catalog", nil), http.StatusOK, `"songs":12`)
}

func TestHandler_RateLimit(t *testing.T) {
	env := newTestEnv(t, services.Deps{}, Config{RateLimitRequests: 1, RateLimitWindow: time.Minute}, true)

	assertResponse(t, env.do(http.MethodGet, "/api/v1/catalog", nil), http.StatusOK, "")
	assertResponse(t, env.do(http.MethodGet, "/api/v1/catalog", nil), http.StatusTooManyRequests, `"code":"RATE_LIMITED"`)
	// health checks sit outside the limited group
	assertResponse(t, env.do(http.MethodGet, "/health", nil), http.StatusOK, "")
}
