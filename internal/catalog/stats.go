package catalog

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ewilliams-labs/songmatch/internal/core/domain"
)

const (
	DefaultHistogramBins = 20
	MaxHistogramBins     = 100
	DefaultTopN          = 10
)

type Overview struct {
	Songs   int `json:"songs"`
	Artists int `json:"artists"`
	Genres  int `json:"genres"`
	YearMin int `json:"year_min,omitempty"`
	YearMax int `json:"year_max,omitempty"`
}

type FeatureSummary struct {
	Feature string  `json:"feature"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"std_dev"`
}

type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

type Histogram struct {
	Feature string `json:"feature"`
	Bins    []Bin  `json:"bins"`
}

// Correlations is a symmetric Pearson matrix indexed like Features.
type Correlations struct {
	Features []string    `json:"features"`
	Matrix   [][]float64 `json:"matrix"`
}

type stats struct {
	overview     Overview
	summaries    []FeatureSummary
	correlations Correlations
}

func (c *Catalog) computed() *stats {
	c.statsOnce.Do(func() {
		c.stats = &stats{
			overview:     c.computeOverview(),
			summaries:    c.computeSummaries(),
			correlations: c.computeCorrelations(),
		}
	})
	return c.stats
}

func (c *Catalog) Overview() Overview { return c.computed().overview }

func (c *Catalog) FeatureStats() []FeatureSummary {
	src := c.computed().summaries
	out := make([]FeatureSummary, len(src))
	copy(out, src)
	return out
}

func (c *Catalog) Correlations() Correlations {
	src := c.computed().correlations
	m := make([][]float64, len(src.Matrix))
	for i, row := range src.Matrix {
		m[i] = append([]float64(nil), row...)
	}
	return Correlations{Features: src.Features, Matrix: m}
}

// Histogram counts feature values in equal-width bins over [0,1]. The last
// bin is closed so a value of exactly 1 is counted.
func (c *Catalog) Histogram(feature string, bins int) (Histogram, error) {
	col, err := c.column(feature)
	if err != nil {
		return Histogram{}, err
	}
	if bins <= 0 {
		bins = DefaultHistogramBins
	}
	if bins > MaxHistogramBins {
		bins = MaxHistogramBins
	}
	h := Histogram{Feature: strings.ToLower(feature), Bins: make([]Bin, bins)}
	width := 1.0 / float64(bins)
	for i := range h.Bins {
		h.Bins[i].Lower = float64(i) * width
		h.Bins[i].Upper = float64(i+1) * width
	}
	for _, v := range col {
		b := int(v / width)
		if b >= bins {
			b = bins - 1
		}
		if b < 0 {
			b = 0
		}
		h.Bins[b].Count++
	}
	return h, nil
}

// TopByFeature returns the n songs with the highest value of feature, ties
// broken by row order.
func (c *Catalog) TopByFeature(feature string, n int) ([]domain.Song, error) {
	col, err := c.column(feature)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		n = DefaultTopN
	}
	rows := make([]int, len(col))
	for i := range rows {
		rows[i] = i
	}
	sort.SliceStable(rows, func(a, b int) bool { return col[rows[a]] > col[rows[b]] })
	if n > len(rows) {
		n = len(rows)
	}
	out := make([]domain.Song, n)
	for i := 0; i < n; i++ {
		out[i] = c.songs[rows[i]]
	}
	return out, nil
}

func (c *Catalog) column(feature string) ([]float64, error) {
	name := strings.ToLower(strings.TrimSpace(feature))
	if !domain.IsFeature(name) {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownFeature, feature)
	}
	col := make([]float64, len(c.songs))
	for i, s := range c.songs {
		col[i], _ = s.Features.Get(name)
	}
	return col, nil
}

func (c *Catalog) computeOverview() Overview {
	artists := make(map[string]struct{})
	genres := make(map[string]struct{})
	o := Overview{Songs: len(c.songs)}
	for _, s := range c.songs {
		if s.Artist != "" {
			artists[s.Artist] = struct{}{}
		}
		if s.Genre != "" {
			genres[s.Genre] = struct{}{}
		}
		if s.Year > 0 {
			if o.YearMin == 0 || s.Year < o.YearMin {
				o.YearMin = s.Year
			}
			if s.Year > o.YearMax {
				o.YearMax = s.Year
			}
		}
	}
	o.Artists = len(artists)
	o.Genres = len(genres)
	return o
}

func (c *Catalog) computeSummaries() []FeatureSummary {
	out := make([]FeatureSummary, domain.FeatureCount)
	n := float64(len(c.songs))
	for i, name := range domain.FeatureNames {
		out[i].Feature = name
		if len(c.songs) == 0 {
			continue
		}
		col, _ := c.column(name)
		lo, hi, sum := col[0], col[0], 0.0
		for _, v := range col {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
			sum += v
		}
		mean := sum / n
		var sq float64
		for _, v := range col {
			sq += (v - mean) * (v - mean)
		}
		out[i].Min, out[i].Max, out[i].Mean = lo, hi, mean
		out[i].StdDev = math.Sqrt(sq / n)
	}
	return out
}

func (c *Catalog) computeCorrelations() Correlations {
	k := domain.FeatureCount
	cols := make([][]float64, k)
	means := make([]float64, k)
	for i, name := range domain.FeatureNames {
		cols[i], _ = c.column(name)
		for _, v := range cols[i] {
			means[i] += v
		}
		if len(c.songs) > 0 {
			means[i] /= float64(len(c.songs))
		}
	}

	m := make([][]float64, k)
	for i := range m {
		m[i] = make([]float64, k)
	}
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			r := pearson(cols[i], cols[j], means[i], means[j])
			if i == j && r != 0 {
				r = 1
			}
			m[i][j], m[j][i] = r, r
		}
	}
	return Correlations{Features: domain.FeatureNames, Matrix: m}
}

// pearson returns 0 when either column has no variance.
func pearson(a, b []float64, ma, mb float64) float64 {
	var cov, va, vb float64
	for i := range a {
		da, db := a[i]-ma, b[i]-mb
		cov += da * db
		va += da * da
		vb += db * db
	}
	if va == 0 || vb == 0 {
		return 0
	}
	return cov / math.Sqrt(va*vb)
}
