// Package similarity ranks catalog rows by cosine similarity to a query
// vector. Rows are scored in fixed-size batches and only a bounded top-k
// heap is kept, so memory stays proportional to the batch size and k.
package similarity

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/viant/vec/search"
)

// DefaultBatchSize is the number of rows scored between cancellation checks.
const DefaultBatchSize = 1000

var ErrDimensionMismatch = errors.New("similarity: dimension mismatch")

// Match is a scored row.
type Match struct {
	Index int
	Score float64
}

// Index holds row vectors with their magnitudes precomputed.
type Index struct {
	rows      [][]float32
	mags      []float32
	dim       int
	batchSize int
}

// Options tunes a single query.
type Options struct {
	// Exclude drops rows before they are scored.
	Exclude func(row int) bool
}

// NewIndex validates that every row has the same dimension and precomputes
// row magnitudes. The rows slice is retained, not copied.
func NewIndex(rows [][]float32, batchSize int) (*Index, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	idx := &Index{rows: rows, batchSize: batchSize}
	if len(rows) == 0 {
		return idx, nil
	}
	idx.dim = len(rows[0])
	idx.mags = make([]float32, len(rows))
	for i, r := range rows {
		if len(r) != idx.dim {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrDimensionMismatch, i, len(r), idx.dim)
		}
		idx.mags[i] = search.Float32s(r).Magnitude()
	}
	return idx, nil
}

// Len returns the number of rows.
func (x *Index) Len() int { return len(x.rows) }

// Dim returns the row dimension, 0 for an empty index.
func (x *Index) Dim() int { return x.dim }

// BatchSize returns the configured batch size.
func (x *Index) BatchSize() int { return x.batchSize }

// Row returns the vector stored for row i.
func (x *Index) Row(i int) []float32 { return x.rows[i] }

// TopK returns up to k rows ordered by descending similarity to query, ties
// broken by ascending row index. Excluded rows never appear. Rows or queries
// with zero magnitude score 0.
func (x *Index) TopK(ctx context.Context, query []float32, k int, opts Options) ([]Match, error) {
	if k <= 0 || len(x.rows) == 0 {
		return []Match{}, nil
	}
	if len(query) != x.dim {
		return nil, fmt.Errorf("%w: query has %d values, want %d", ErrDimensionMismatch, len(query), x.dim)
	}

	qv := search.Float32s(query)
	qm := qv.Magnitude()
	h := make(matchHeap, 0, k)

	for start := 0; start < len(x.rows); start += x.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+x.batchSize, len(x.rows))
		for i := start; i < end; i++ {
			if opts.Exclude != nil && opts.Exclude(i) {
				continue
			}
			m := Match{Index: i, Score: x.score(qv, qm, i)}
			if len(h) < k {
				heap.Push(&h, m)
				continue
			}
			if better(m, h[0]) {
				h[0] = m
				heap.Fix(&h, 0)
			}
		}
	}

	out := []Match(h)
	sort.Slice(out, func(a, b int) bool { return better(out[a], out[b]) })
	return out, nil
}

func (x *Index) score(q search.Float32s, qm float32, row int) float64 {
	if qm == 0 || x.mags[row] == 0 {
		return 0
	}
	s := 1 - float64(q.CosineDistanceWithMagnitude(x.rows[row], qm, x.mags[row]))
	switch {
	case s > 1:
		return 1
	case s < -1:
		return -1
	}
	return s
}

// better orders matches by score, then by lower index.
func better(a, b Match) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Index < b.Index
}

// matchHeap keeps the worst retained match at the root.
type matchHeap []Match

func (h matchHeap) Len() int           { return len(h) }
func (h matchHeap) Less(i, j int) bool { return better(h[j], h[i]) }
func (h matchHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *matchHeap) Push(x any) { *h = append(*h, x.(Match)) }

func (h *matchHeap) Pop() any {
	old := *h
	n := len(old)
	m := old[n-1]
	*h = old[:n-1]
	return m
}
