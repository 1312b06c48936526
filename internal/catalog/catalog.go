// Package catalog holds an immutable, query-ready snapshot of the song
// dataset: normalized features, a similarity index and a search index.
package catalog

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ewilliams-labs/songmatch/internal/core/domain"
	"github.com/ewilliams-labs/songmatch/internal/fuzzy"
	"github.com/ewilliams-labs/songmatch/internal/similarity"
)

const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 100

	// fuzzyThreshold is the minimum similarity for a fuzzy search hit.
	fuzzyThreshold = 0.6
)

// Options describe where a snapshot came from.
type Options struct {
	Source    string
	Warnings  []domain.LoadWarning
	BatchSize int
}

// Catalog is safe for concurrent use; nothing mutates it after New.
type Catalog struct {
	songs      []domain.Song
	searchText []string
	index      *similarity.Index
	scales     []FeatureScale
	source     string
	warnings   []domain.LoadWarning
	version    string
	loadedAt   time.Time

	statsOnce sync.Once
	stats     *stats
}

// Info summarizes a catalog for display.
type Info struct {
	Songs    int                  `json:"songs"`
	Version  string               `json:"version"`
	Source   string               `json:"source"`
	LoadedAt time.Time            `json:"loaded_at"`
	Warnings []domain.LoadWarning `json:"warnings"`
	Scaling  []FeatureScale       `json:"scaling"`
	Features []string             `json:"features"`
}

// New normalizes a copy of songs and builds the search and similarity indexes.
// Song.Index is reassigned to the row position.
func New(songs []domain.Song, opts Options) (*Catalog, error) {
	rows := make([]domain.Song, len(songs))
	copy(rows, songs)
	for i := range rows {
		rows[i].Index = i
	}
	scales := Normalize(rows)

	vectors := make([][]float32, len(rows))
	text := make([]string, len(rows))
	for i, s := range rows {
		vectors[i] = s.Features.Vector()
		text[i] = s.SearchText()
	}
	idx, err := similarity.NewIndex(vectors, opts.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("catalog: build index: %w", err)
	}

	warnings := opts.Warnings
	if warnings == nil {
		warnings = []domain.LoadWarning{}
	}

	return &Catalog{
		songs:      rows,
		searchText: text,
		index:      idx,
		scales:     scales,
		source:     opts.Source,
		warnings:   warnings,
		version:    fingerprint(rows),
		loadedAt:   time.Now().UTC(),
	}, nil
}

func (c *Catalog) Len() int { return len(c.songs) }

// Version identifies the catalog content; equal content gives equal versions.
func (c *Catalog) Version() string { return c.version }

func (c *Catalog) Warnings() []domain.LoadWarning { return c.warnings }

func (c *Catalog) Info() Info {
	return Info{
		Songs:    len(c.songs),
		Version:  c.version,
		Source:   c.source,
		LoadedAt: c.loadedAt,
		Warnings: c.warnings,
		Scaling:  c.scales,
		Features: domain.FeatureNames,
	}
}

// Song returns the song at row i.
func (c *Catalog) Song(i int) (domain.Song, error) {
	if i < 0 || i >= len(c.songs) {
		return domain.Song{}, fmt.Errorf("%w: index %d", domain.ErrSongNotFound, i)
	}
	return c.songs[i], nil
}

// Search returns songs whose "title artist" text contains query, ignoring
// case, in dataset order. When nothing contains the query it falls back to
// fuzzy title matching ranked by similarity.
func (c *Catalog) Search(query string, limit int) []domain.Song {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []domain.Song{}
	}
	limit = clampLimit(limit)

	out := make([]domain.Song, 0, limit)
	for i, text := range c.searchText {
		if strings.Contains(text, q) {
			out = append(out, c.songs[i])
			if len(out) == limit {
				return out
			}
		}
	}
	if len(out) > 0 {
		return out
	}
	return c.fuzzySearch(q, limit)
}

func (c *Catalog) fuzzySearch(q string, limit int) []domain.Song {
	target := fuzzy.Normalize(q)
	if len([]rune(target)) < 3 {
		return []domain.Song{}
	}

	type hit struct {
		row   int
		score float64
	}
	hits := []hit{}
	for i, s := range c.songs {
		score := max(
			fuzzy.Similarity(target, fuzzy.Normalize(s.Title)),
			fuzzy.Similarity(target, fuzzy.Normalize(s.Title+" "+s.Artist)),
		)
		if score >= fuzzyThreshold {
			hits = append(hits, hit{row: i, score: score})
		}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].score > hits[b].score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]domain.Song, len(hits))
	for i, h := range hits {
		out[i] = c.songs[h.row]
	}
	return out
}

// Lookup returns the first song whose title and artist equal the inputs,
// ignoring case and surrounding space.
func (c *Catalog) Lookup(title, artist string) (domain.Song, error) {
	probe := domain.Song{Title: title, Artist: artist}
	for _, s := range c.songs {
		if s.SameRecording(probe) {
			return s, nil
		}
	}
	return domain.Song{}, fmt.Errorf("%w: %q by %q", domain.ErrSongNotFound, title, artist)
}

// ResolveSeed picks the song a title-based recommendation starts from: the
// first title match by the given artist, or the first title match at all
// when the artist is blank or does not match.
func (c *Catalog) ResolveSeed(title, artist string) (domain.Song, error) {
	title = strings.TrimSpace(title)
	artist = strings.TrimSpace(artist)
	first := -1
	for i, s := range c.songs {
		if !strings.EqualFold(strings.TrimSpace(s.Title), title) {
			continue
		}
		if first == -1 {
			first = i
			if artist == "" {
				break
			}
		}
		if strings.EqualFold(strings.TrimSpace(s.Artist), artist) {
			return s, nil
		}
	}
	if first == -1 {
		return domain.Song{}, fmt.Errorf("%w: %q", domain.ErrSongNotFound, title)
	}
	return c.songs[first], nil
}

// Similar ranks all songs against seed, excluding the seed row and any other
// row of the same recording.
func (c *Catalog) Similar(ctx context.Context, seed domain.Song, n int) ([]domain.Recommendation, error) {
	exclude := func(row int) bool {
		return row == seed.Index || c.songs[row].SameRecording(seed)
	}
	return c.rank(ctx, seed.Features.Vector(), n, exclude)
}

// Nearest ranks all songs against a feature vector.
func (c *Catalog) Nearest(ctx context.Context, target domain.AudioFeatures, n int) ([]domain.Recommendation, error) {
	return c.rank(ctx, target.Vector(), n, nil)
}

func (c *Catalog) rank(ctx context.Context, query []float32, n int, exclude func(int) bool) ([]domain.Recommendation, error) {
	if len(c.songs) == 0 {
		return []domain.Recommendation{}, nil
	}
	matches, err := c.index.TopK(ctx, query, n, similarity.Options{Exclude: exclude})
	if err != nil {
		return nil, fmt.Errorf("catalog: rank: %w", err)
	}
	out := make([]domain.Recommendation, len(matches))
	for i, m := range matches {
		out[i] = domain.Recommendation{Song: c.songs[m.Index], Score: roundScore(m.Score)}
	}
	return out, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		return MaxSearchLimit
	}
	return limit
}

func roundScore(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// fingerprint covers every field a cached response can carry.
func fingerprint(songs []domain.Song) string {
	h := fnv.New64a()
	var buf [8]byte
	writeInt := func(v int64) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		h.Write(buf[:])
	}
	for _, s := range songs {
		for _, text := range []string{s.ID, s.Title, s.Artist, s.Album, s.Genre} {
			h.Write([]byte(text))
			h.Write([]byte{0})
		}
		writeInt(int64(s.Index))
		writeInt(int64(s.Year))
		writeInt(int64(s.Popularity))
		for _, v := range s.Features.Values() {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
			h.Write(buf[:])
		}
	}
	return fmt.Sprintf("%d-%016x", len(songs), h.Sum64())
}
