// Package csvdata parses song datasets in CSV form.
package csvdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/ewilliams-labs/songmatch/internal/core/domain"
)

// MaxWarnings caps how many load warnings are kept verbatim.
const MaxWarnings = 100

var columnAliases = map[string][]string{
	"title":      {"track_name", "name", "title"},
	"artist":     {"artists", "artist", "artist_name"},
	"id":         {"id", "track_id"},
	"album":      {"album_name", "album"},
	"genre":      {"track_genre", "genre"},
	"year":       {"year"},
	"popularity": {"popularity"},
}

// Result is a parsed dataset.
type Result struct {
	Songs             []domain.Song
	Warnings          []domain.LoadWarning
	WarningsTruncated int
}

// AllWarnings returns the kept warnings plus a summary line when some were dropped.
func (r Result) AllWarnings() []domain.LoadWarning {
	if r.WarningsTruncated == 0 {
		return r.Warnings
	}
	out := append([]domain.LoadWarning(nil), r.Warnings...)
	return append(out, domain.LoadWarning{
		Message: fmt.Sprintf("%d more rows had problems", r.WarningsTruncated),
	})
}

// Parse reads a dataset. A missing required column fails the whole load;
// problems confined to one row skip or repair that row and are reported as
// warnings.
func Parse(r io.Reader) (Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Result{}, fmt.Errorf("csvdata: empty dataset: %w", &domain.MissingColumnsError{Columns: requiredColumns()})
		}
		return Result{}, fmt.Errorf("csvdata: read header: %w", err)
	}
	cols, err := mapColumns(header)
	if err != nil {
		return Result{}, err
	}

	p := &parser{cols: cols, width: len(header)}
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				p.warn(perr.Line, "malformed row: "+perr.Err.Error())
				continue
			}
			return Result{}, fmt.Errorf("csvdata: read row: %w", err)
		}
		line, _ := reader.FieldPos(0)
		p.row(line, rec)
	}

	return Result{Songs: p.songs, Warnings: p.warnings, WarningsTruncated: p.truncated}, nil
}

type columns struct {
	features [domain.FeatureCount]int
	named    map[string]int
}

func requiredColumns() []string {
	return append(append([]string(nil), domain.FeatureNames...), "track_name", "artists")
}

func mapColumns(header []string) (columns, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := pos[name]; !dup {
			pos[name] = i
		}
	}

	cols := columns{named: make(map[string]int)}
	var missing []string
	for i, f := range domain.FeatureNames {
		idx, ok := pos[f]
		if !ok {
			missing = append(missing, f)
			continue
		}
		cols.features[i] = idx
	}
	for key, aliases := range columnAliases {
		for _, a := range aliases {
			if idx, ok := pos[a]; ok {
				cols.named[key] = idx
				break
			}
		}
	}
	if _, ok := cols.named["title"]; !ok {
		missing = append(missing, "track_name")
	}
	if _, ok := cols.named["artist"]; !ok {
		missing = append(missing, "artists")
	}
	if len(missing) > 0 {
		return columns{}, fmt.Errorf("csvdata: %w", &domain.MissingColumnsError{Columns: missing})
	}
	return cols, nil
}

type parser struct {
	cols      columns
	width     int
	songs     []domain.Song
	warnings  []domain.LoadWarning
	truncated int
}

func (p *parser) warn(line int, msg string) {
	if len(p.warnings) >= MaxWarnings {
		p.truncated++
		return
	}
	p.warnings = append(p.warnings, domain.LoadWarning{Line: line, Message: msg})
}

func (p *parser) row(line int, rec []string) {
	if len(rec) != p.width {
		p.warn(line, fmt.Sprintf("expected %d fields, got %d", p.width, len(rec)))
		return
	}

	title := strings.TrimSpace(rec[p.cols.named["title"]])
	if title == "" {
		p.warn(line, "empty track name")
		return
	}

	var vals [domain.FeatureCount]float64
	for i, idx := range p.cols.features {
		v, err := parseFloat(rec[idx])
		if err != nil {
			p.warn(line, fmt.Sprintf("invalid %s %q", domain.FeatureNames[i], rec[idx]))
			return
		}
		vals[i] = v
	}

	s := domain.Song{
		ID:       p.text(rec, "id"),
		Title:    title,
		Artist:   cleanArtists(rec[p.cols.named["artist"]]),
		Album:    p.text(rec, "album"),
		Genre:    p.text(rec, "genre"),
		Features: domain.FeaturesFromValues(vals[:]),
	}
	s.Year = p.integer(line, rec, "year")
	s.Popularity = p.integer(line, rec, "popularity")
	p.songs = append(p.songs, s)
}

func (p *parser) text(rec []string, key string) string {
	idx, ok := p.cols.named[key]
	if !ok {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}

func (p *parser) integer(line int, rec []string, key string) int {
	raw := p.text(rec, key)
	if raw == "" {
		return 0
	}
	v, err := parseFloat(raw)
	if err != nil || v < math.MinInt32 || v > math.MaxInt32 {
		p.warn(line, fmt.Sprintf("invalid %s %q, using 0", key, raw))
		return 0
	}
	return int(v)
}

func parseFloat(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number")
	}
	return v, nil
}

// cleanArtists flattens list-literal artist cells such as "['A', 'B']".
func cleanArtists(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return s
	}
	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return ""
	}
	parts := strings.Split(inner, ",")
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		name := strings.Trim(strings.TrimSpace(part), `'"`)
		if name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}
