package domain

import "strings"

// FeatureNames fixes the order of audio features inside a feature vector.
var FeatureNames = []string{
	"acousticness",
	"danceability",
	"energy",
	"instrumentalness",
	"liveness",
	"loudness",
	"speechiness",
	"tempo",
	"valence",
}

// FeatureCount is the dimension of a song's feature vector.
const FeatureCount = 9

// AudioFeatures holds the content descriptors a song is compared on.
// Inside a loaded catalog every value lies in [0,1].
type AudioFeatures struct {
	Acousticness     float64 `json:"acousticness"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Loudness         float64 `json:"loudness"`
	Speechiness      float64 `json:"speechiness"`
	Tempo            float64 `json:"tempo"`
	Valence          float64 `json:"valence"`
}

// Song represents one row of the catalog.
type Song struct {
	Index      int           `json:"index"`
	ID         string        `json:"id,omitempty"`
	Title      string        `json:"title"`
	Artist     string        `json:"artist"`
	Album      string        `json:"album,omitempty"`
	Genre      string        `json:"genre,omitempty"`
	Year       int           `json:"year,omitempty"`
	Popularity int           `json:"popularity,omitempty"`
	Features   AudioFeatures `json:"features"`
}

// Recommendation is a ranked song with its cosine similarity to the query.
type Recommendation struct {
	Song  Song    `json:"song"`
	Score float64 `json:"score"`
}

// IsFeature reports whether name is one of FeatureNames.
func IsFeature(name string) bool {
	for _, f := range FeatureNames {
		if f == name {
			return true
		}
	}
	return false
}

// Get returns the value of the named feature.
func (f AudioFeatures) Get(name string) (float64, bool) {
	switch strings.ToLower(name) {
	case "acousticness":
		return f.Acousticness, true
	case "danceability":
		return f.Danceability, true
	case "energy":
		return f.Energy, true
	case "instrumentalness":
		return f.Instrumentalness, true
	case "liveness":
		return f.Liveness, true
	case "loudness":
		return f.Loudness, true
	case "speechiness":
		return f.Speechiness, true
	case "tempo":
		return f.Tempo, true
	case "valence":
		return f.Valence, true
	}
	return 0, false
}

// Set assigns the named feature. Unknown names are ignored and reported as false.
func (f *AudioFeatures) Set(name string, v float64) bool {
	switch strings.ToLower(name) {
	case "acousticness":
		f.Acousticness = v
	case "danceability":
		f.Danceability = v
	case "energy":
		f.Energy = v
	case "instrumentalness":
		f.Instrumentalness = v
	case "liveness":
		f.Liveness = v
	case "loudness":
		f.Loudness = v
	case "speechiness":
		f.Speechiness = v
	case "tempo":
		f.Tempo = v
	case "valence":
		f.Valence = v
	default:
		return false
	}
	return true
}

// Values returns the features as float64 in FeatureNames order.
func (f AudioFeatures) Values() []float64 {
	return []float64{
		f.Acousticness,
		f.Danceability,
		f.Energy,
		f.Instrumentalness,
		f.Liveness,
		f.Loudness,
		f.Speechiness,
		f.Tempo,
		f.Valence,
	}
}

// Vector returns the features as float32 in FeatureNames order.
func (f AudioFeatures) Vector() []float32 {
	vals := f.Values()
	out := make([]float32, len(vals))
	for i, v := range vals {
		out[i] = float32(v)
	}
	return out
}

// Map returns the features keyed by name.
func (f AudioFeatures) Map() map[string]float64 {
	out := make(map[string]float64, FeatureCount)
	for i, v := range f.Values() {
		out[FeatureNames[i]] = v
	}
	return out
}

// FeaturesFromValues builds AudioFeatures from a slice in FeatureNames order.
func FeaturesFromValues(vals []float64) AudioFeatures {
	var f AudioFeatures
	for i, name := range FeatureNames {
		if i < len(vals) {
			f.Set(name, vals[i])
		}
	}
	return f
}

// SearchText is the lowercase text a song is matched against in search.
func (s Song) SearchText() string {
	return strings.ToLower(s.Title + " " + s.Artist)
}

// SameRecording reports whether two songs share title and artist, ignoring case.
func (s Song) SameRecording(o Song) bool {
	return strings.EqualFold(strings.TrimSpace(s.Title), strings.TrimSpace(o.Title)) &&
		strings.EqualFold(strings.TrimSpace(s.Artist), strings.TrimSpace(o.Artist))
}
