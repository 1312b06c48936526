package services

import (
	"context"
	"errors"
	"testing"

	"github.com/ewilliams-labs/songmatch/internal/core/domain"
)

func TestRecommender_GeneratePlaylist(t *testing.T) {
	tests := []struct {
		name      string
		req       PlaylistRequest
		wantLen   int
		wantErr   error
		wantFirst string
	}{
		{
			name:      "focused playlist takes the closest matches",
			req:       PlaylistRequest{Seed: "shape of you", Length: 5, Diversity: 0.1},
			wantLen:   5,
			wantFirst: "s1",
		},
		{
			name:      "diverse playlist mixes random picks",
			req:       PlaylistRequest{Seed: "Bohemian", Length: 8, Diversity: 0.9},
			wantLen:   8,
			wantFirst: "s3",
		},
		{
			name:      "defaults apply and are capped by the catalog",
			req:       PlaylistRequest{Seed: "Happy"},
			wantLen:   10,
			wantFirst: "s11",
		},
		{
			name:    "length out of range",
			req:     PlaylistRequest{Seed: "Happy", Length: 30},
			wantErr: domain.ErrInvalidArgument,
		},
		{
			name:    "diversity out of range",
			req:     PlaylistRequest{Seed: "Happy", Diversity: 0.05},
			wantErr: domain.ErrInvalidArgument,
		},
		{
			name:    "blank seed",
			req:     PlaylistRequest{Seed: " "},
			wantErr: domain.ErrInvalidArgument,
		},
		{
			name:    "unknown seed",
			req:     PlaylistRequest{Seed: "zzzzzzzz qqqqqq"},
			wantErr: domain.ErrSongNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := loaded(t, Deps{})
			p, err := r.GeneratePlaylist(context.Background(), tc.req)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("generate: %v", err)
			}
			if len(p.Tracks) != tc.wantLen {
				t.Fatalf("expected %d tracks, got %d", tc.wantLen, len(p.Tracks))
			}
			if !p.Tracks[0].IsSeed || p.Tracks[0].Song.ID != tc.wantFirst {
				t.Fatalf("first track should be the seed %s, got %+v", tc.wantFirst, p.Tracks[0])
			}
			seen := map[string]bool{}
			for i, tr := range p.Tracks {
				if i > 0 && tr.IsSeed {
					t.Fatalf("only the first track may be the seed")
				}
				if seen[tr.Song.ID] {
					t.Fatalf("duplicate track %s", tr.Song.ID)
				}
				seen[tr.Song.ID] = true
			}

			stored, err := r.GetPlaylist(context.Background(), p.ID)
			if err != nil {
				t.Fatalf("get stored playlist: %v", err)
			}
			if stored.Name != p.Name || len(stored.Tracks) != len(p.Tracks) {
				t.Fatalf("stored playlist mismatch: %+v", stored)
			}
		})
	}
}

func TestRecommender_FocusedPlaylistMatchesRecommendations(t *testing.T) {
	r := loaded(t, Deps{})
	p, err := r.GeneratePlaylist(context.Background(), PlaylistRequest{Seed: "Billie Jean", Length: 6, Diversity: 0.2})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	recs, err := r.RecommendBySong(context.Background(), "Billie Jean", "", 5)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	for i, rec := range recs.Results {
		if p.Tracks[i+1].Song.ID != rec.Song.ID {
			t.Fatalf("track %d: got %s, want %s", i+1, p.Tracks[i+1].Song.ID, rec.Song.ID)
		}
	}
}

func TestRecommender_PlaylistAnalysis(t *testing.T) {
	r := loaded(t, Deps{})
	p, err := r.GeneratePlaylist(context.Background(), PlaylistRequest{Seed: "Dance Monkey", Length: 5, Diversity: 0.1})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	got, err := r.PlaylistAnalysis(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("analysis: %v", err)
	}
	want := p.Analyze()
	for i, v := range got.Values() {
		if diff := v - want.Values()[i]; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("feature %s: got %v, want %v", domain.FeatureNames[i], v, want.Values()[i])
		}
	}

	if _, err := r.PlaylistAnalysis(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := r.GetPlaylist(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPickTracks(t *testing.T) {
	candidates := make([]domain.Recommendation, 20)
	for i := range candidates {
		candidates[i] = domain.Recommendation{Song: domain.Song{Index: i}, Score: 1 - float64(i)/100}
	}
	r := NewRecommender(Deps{}, Options{RandomSeed: 1})

	focused := r.pickTracks(candidates, 9, 0.2)
	for i, p := range focused {
		if p.Song.Index != i {
			t.Fatalf("focused pick %d is %d", i, p.Song.Index)
		}
	}

	// length 10, diversity 0.6: top = max(2, int(0.4*10)) = 4
	mixed := r.pickTracks(candidates, 9, 0.6)
	if len(mixed) != 9 {
		t.Fatalf("expected 9 picks, got %d", len(mixed))
	}
	for i := 0; i < 4; i++ {
		if mixed[i].Song.Index != i {
			t.Fatalf("top pick %d is %d", i, mixed[i].Song.Index)
		}
	}
	for _, p := range mixed[4:] {
		if p.Song.Index < 4 {
			t.Fatalf("random pick %d overlaps the top picks", p.Song.Index)
		}
	}

	// diversity 1.0 still keeps two anchors
	if wide := r.pickTracks(candidates, 9, 1.0); wide[0].Song.Index != 0 || wide[1].Song.Index != 1 {
		t.Fatalf("expected two anchor picks, got %+v", wide[:2])
	}

	if few := r.pickTracks(candidates[:3], 9, 0.5); len(few) != 3 {
		t.Fatalf("expected all 3 candidates, got %d", len(few))
	}
}
