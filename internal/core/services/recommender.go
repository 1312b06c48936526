// Package services implements the song recommender on top of the catalog
// snapshot and the repository, cache and integration ports.
package services

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ewilliams-labs/songmatch/internal/adapters/csvdata"
	"github.com/ewilliams-labs/songmatch/internal/catalog"
	"github.com/ewilliams-labs/songmatch/internal/core/domain"
	"github.com/ewilliams-labs/songmatch/internal/core/ports"
	"github.com/ewilliams-labs/songmatch/internal/logging"
	"github.com/ewilliams-labs/songmatch/internal/metrics"
	"github.com/ewilliams-labs/songmatch/internal/tracing"
)

const (
	DefaultResults        = 5
	DefaultFeatureResults = 10
	MaxResults            = 100
	MaxPlaylistPool       = 50
	MaxDatasetBytes       = 256 << 20
)

// Options tune the recommender. Zero values take the package defaults.
type Options struct {
	// DefaultSource is imported by LoadCatalog when the repository is empty
	// and by ImportDataset when no location is given.
	DefaultSource   string
	BatchSize       int
	DefaultResults  int
	FeatureResults  int
	MaxResults      int
	MaxPlaylistPool int
	// MaxDatasetBytes caps how much of a dataset an import reads.
	MaxDatasetBytes int64
	// RandomSeed fixes playlist sampling; 0 seeds from the clock.
	RandomSeed int64
}

// Deps are the ports the recommender is wired to. Cache, Intent and
// Spotify may be nil.
type Deps struct {
	Songs     ports.SongRepository
	Playlists ports.PlaylistRepository
	Sources   ports.SourceResolver
	Cache     ports.ResultCache
	Intent    ports.IntentCompiler
	Spotify   ports.SpotifyProvider
}

// Recommender serves every read from an immutable catalog snapshot that
// imports replace atomically.
type Recommender struct {
	deps Deps
	opts Options

	current  atomic.Pointer[catalog.Catalog]
	importMu sync.Mutex

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewRecommender(deps Deps, opts Options) *Recommender {
	if opts.DefaultResults <= 0 {
		opts.DefaultResults = DefaultResults
	}
	if opts.FeatureResults <= 0 {
		opts.FeatureResults = DefaultFeatureResults
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = MaxResults
	}
	if opts.MaxDatasetBytes <= 0 {
		opts.MaxDatasetBytes = MaxDatasetBytes
	}
	if opts.MaxPlaylistPool <= 0 {
		opts.MaxPlaylistPool = MaxPlaylistPool
	}
	seed := uint64(opts.RandomSeed)
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Recommender{
		deps: deps,
		opts: opts,
		rng:  rand.New(rand.NewPCG(seed, seed>>1|1)),
	}
}

// IntentEnabled reports whether free-text recommendations are configured.
func (r *Recommender) IntentEnabled() bool { return r.deps.Intent != nil }

// EnrichmentEnabled reports whether Spotify lookups are configured.
func (r *Recommender) EnrichmentEnabled() bool { return r.deps.Spotify != nil }

// Ready reports whether a catalog has been loaded.
func (r *Recommender) Ready() bool {
	return r.current.Load() != nil
}

func (r *Recommender) catalog() (*catalog.Catalog, error) {
	c := r.current.Load()
	if c == nil {
		return nil, domain.ErrCatalogNotLoaded
	}
	return c, nil
}

// LoadCatalog builds the catalog from the repository, importing the
// default source first when the repository holds no songs.
func (r *Recommender) LoadCatalog(ctx context.Context) error {
	songs, err := r.deps.Songs.ListSongs(ctx)
	if err != nil {
		return fmt.Errorf("service: load songs: %w", err)
	}
	if len(songs) == 0 {
		if r.opts.DefaultSource == "" {
			return fmt.Errorf("service: %w: repository is empty and no dataset source is configured", domain.ErrCatalogNotLoaded)
		}
		_, err := r.ImportDataset(ctx, "")
		return err
	}

	meta, err := r.deps.Songs.CatalogMeta(ctx)
	if err != nil {
		return fmt.Errorf("service: load catalog metadata: %w", err)
	}
	cat, err := catalog.New(songs, catalog.Options{
		Source:    meta.Source,
		Warnings:  meta.Warnings,
		BatchSize: r.opts.BatchSize,
	})
	if err != nil {
		return fmt.Errorf("service: build catalog: %w", err)
	}
	r.activate(cat)
	return nil
}

// ImportDataset parses the dataset at location (the default source when
// empty), stores it and swaps in a new catalog. A failed import leaves
// the current catalog in place.
func (r *Recommender) ImportDataset(ctx context.Context, location string) (catalog.Info, error) {
	if !r.importMu.TryLock() {
		return catalog.Info{}, domain.ErrImportInProgress
	}
	defer r.importMu.Unlock()

	ctx, span := tracing.StartSpan(ctx, "recommender.ImportDataset", attribute.String("dataset.location", location))
	defer span.End()

	if location == "" {
		location = r.opts.DefaultSource
	}
	if r.deps.Sources == nil {
		return catalog.Info{}, fmt.Errorf("service: %w: no dataset resolver", domain.ErrInvalidArgument)
	}
	src, err := r.deps.Sources.Resolve(location)
	if err != nil {
		return catalog.Info{}, fmt.Errorf("service: resolve dataset: %w", err)
	}

	start := time.Now()
	rc, err := src.Open(ctx)
	if err != nil {
		return catalog.Info{}, fmt.Errorf("service: open dataset %s: %w", src.Name(), err)
	}
	defer rc.Close()

	parsed, err := csvdata.Parse(&cappedReader{r: rc, left: r.opts.MaxDatasetBytes})
	if err != nil {
		return catalog.Info{}, fmt.Errorf("service: parse dataset %s: %w", src.Name(), err)
	}
	if len(parsed.Songs) == 0 {
		return catalog.Info{}, fmt.Errorf("service: %w: dataset %s has no usable rows", domain.ErrInvalidArgument, src.Name())
	}
	warnings := parsed.AllWarnings()

	if err := r.deps.Songs.ReplaceSongs(ctx, src.Name(), parsed.Songs, warnings); err != nil {
		return catalog.Info{}, fmt.Errorf("service: store dataset: %w", err)
	}
	cat, err := catalog.New(parsed.Songs, catalog.Options{
		Source:    src.Name(),
		Warnings:  warnings,
		BatchSize: r.opts.BatchSize,
	})
	if err != nil {
		return catalog.Info{}, fmt.Errorf("service: build catalog: %w", err)
	}
	r.activate(cat)

	logging.Info().
		Str("source", src.Name()).
		Int("songs", cat.Len()).
		Int("warnings", len(warnings)).
		Dur("duration", time.Since(start)).
		Msg("dataset imported")
	return cat.Info(), nil
}

func (r *Recommender) activate(cat *catalog.Catalog) {
	r.current.Store(cat)
	metrics.SetCatalog(cat.Len(), len(cat.Warnings()))
}

// CatalogInfo describes the active catalog.
func (r *Recommender) CatalogInfo() (catalog.Info, error) {
	cat, err := r.catalog()
	if err != nil {
		return catalog.Info{}, err
	}
	return cat.Info(), nil
}

// Warnings returns the active catalog's load warnings, or none before load.
func (r *Recommender) Warnings() []domain.LoadWarning {
	if c := r.current.Load(); c != nil {
		return c.Warnings()
	}
	return []domain.LoadWarning{}
}

// clampN applies the default for n <= 0 and caps it at the maximum.
func (r *Recommender) clampN(n, def int) int {
	if n <= 0 {
		return def
	}
	return min(n, r.opts.MaxResults)
}

// cappedReader fails with domain.ErrDatasetTooLarge once more than left
// bytes have been read, so an oversized dataset never loads truncated.
type cappedReader struct {
	r    io.Reader
	left int64
}

func (c *cappedReader) Read(p []byte) (int, error) {
	if int64(len(p)) > c.left+1 {
		p = p[:c.left+1]
	}
	n, err := c.r.Read(p)
	if int64(n) > c.left {
		c.left = 0
		return 0, domain.ErrDatasetTooLarge
	}
	c.left -= int64(n)
	return n, err
}
