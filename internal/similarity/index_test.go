package similarity

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"
)

func TestIndex_TopK(t *testing.T) {
	rows := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
		{0.5, 0.5, 0},
		{0, 0, 1},
	}

	tests := []struct {
		name      string
		query     []float32
		k         int
		exclude   func(int) bool
		wantOrder []int
	}{
		{
			name:      "orders by similarity",
			query:     []float32{1, 0, 0},
			k:         3,
			wantOrder: []int{0, 1, 3},
		},
		{
			name:      "excluded rows never appear",
			query:     []float32{1, 0, 0},
			k:         3,
			exclude:   func(i int) bool { return i == 0 },
			wantOrder: []int{1, 3, 2},
		},
		{
			name:      "k larger than eligible rows",
			query:     []float32{0, 0, 1},
			k:         10,
			exclude:   func(i int) bool { return i%2 == 1 },
			wantOrder: []int{4, 0, 2},
		},
		{
			name:      "zero query scores everything equally",
			query:     []float32{0, 0, 0},
			k:         2,
			wantOrder: []int{0, 1},
		},
		{
			name:      "non-positive k",
			query:     []float32{1, 0, 0},
			k:         0,
			wantOrder: []int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := NewIndex(rows, 2)
			if err != nil {
				t.Fatalf("new index: %v", err)
			}
			got, err := idx.TopK(context.Background(), tt.query, tt.k, Options{Exclude: tt.exclude})
			if err != nil {
				t.Fatalf("top k: %v", err)
			}
			order := make([]int, len(got))
			for i, m := range got {
				order[i] = m.Index
			}
			if !reflect.DeepEqual(order, tt.wantOrder) {
				t.Fatalf("order: got %v, want %v", order, tt.wantOrder)
			}
		})
	}
}

func TestIndex_ScoresMatchCosine(t *testing.T) {
	rows := [][]float32{{0.2, 0.4, 0.6}, {0.9, 0.1, 0.3}}
	idx, err := NewIndex(rows, 0)
	if err != nil {
		t.Fatalf("new index: %v", err)
	}
	query := []float32{0.3, 0.3, 0.3}
	got, err := idx.TopK(context.Background(), query, 2, Options{})
	if err != nil {
		t.Fatalf("top k: %v", err)
	}
	for _, m := range got {
		want := cosine(query, rows[m.Index])
		if math.Abs(m.Score-want) > 1e-5 {
			t.Fatalf("row %d: score %v, want %v", m.Index, m.Score, want)
		}
	}
}

func TestIndex_BatchSizeDoesNotChangeResult(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	rows := make([][]float32, 2500)
	for i := range rows {
		rows[i] = []float32{rng.Float32(), rng.Float32(), rng.Float32(), rng.Float32()}
	}
	query := []float32{0.7, 0.2, 0.9, 0.1}

	var reference []Match
	for _, batch := range []int{1, 7, 1000, 5000} {
		idx, err := NewIndex(rows, batch)
		if err != nil {
			t.Fatalf("new index: %v", err)
		}
		got, err := idx.TopK(context.Background(), query, 25, Options{})
		if err != nil {
			t.Fatalf("top k: %v", err)
		}
		if len(got) != 25 {
			t.Fatalf("batch %d: got %d matches", batch, len(got))
		}
		for i := 1; i < len(got); i++ {
			if got[i].Score > got[i-1].Score {
				t.Fatalf("batch %d: results not sorted at %d", batch, i)
			}
		}
		if reference == nil {
			reference = got
			continue
		}
		if !reflect.DeepEqual(got, reference) {
			t.Fatalf("batch %d: result differs from reference", batch)
		}
	}
}

func TestIndex_Errors(t *testing.T) {
	if _, err := NewIndex([][]float32{{1, 2}, {1}}, 10); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}

	idx, err := NewIndex([][]float32{{1, 2}}, 10)
	if err != nil {
		t.Fatalf("new index: %v", err)
	}
	if _, err := idx.TopK(context.Background(), []float32{1}, 1, Options{}); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch for query, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := idx.TopK(ctx, []float32{1, 2}, 1, Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestIndex_Empty(t *testing.T) {
	idx, err := NewIndex(nil, 10)
	if err != nil {
		t.Fatalf("new index: %v", err)
	}
	got, err := idx.TopK(context.Background(), []float32{1, 2, 3}, 5, Options{})
	if err != nil {
		t.Fatalf("top k: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no matches, got %d", len(got))
	}
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
