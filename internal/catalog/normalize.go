package catalog

import "github.com/ewilliams-labs/songmatch/internal/core/domain"

// FeatureScale records how one feature column was brought into [0,1].
type FeatureScale struct {
	Feature string  `json:"feature"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Scaled  bool    `json:"scaled"`
}

// Normalize rewrites the songs' features in place so every value lies in
// [0,1]. Columns already inside that range are left untouched; the rest are
// min-max scaled, and a constant column maps to 0.
func Normalize(songs []domain.Song) []FeatureScale {
	scales := make([]FeatureScale, domain.FeatureCount)
	for i, name := range domain.FeatureNames {
		scales[i].Feature = name
	}
	if len(songs) == 0 {
		return scales
	}

	for i := range scales {
		first, _ := songs[0].Features.Get(scales[i].Feature)
		scales[i].Min, scales[i].Max = first, first
	}
	for _, s := range songs {
		for i, v := range s.Features.Values() {
			if v < scales[i].Min {
				scales[i].Min = v
			}
			if v > scales[i].Max {
				scales[i].Max = v
			}
		}
	}
	for i := range scales {
		scales[i].Scaled = scales[i].Min < 0 || scales[i].Max > 1
	}

	for n := range songs {
		vals := songs[n].Features.Values()
		for i, v := range vals {
			sc := scales[i]
			if sc.Scaled {
				if sc.Max == sc.Min {
					v = 0
				} else {
					v = (v - sc.Min) / (sc.Max - sc.Min)
				}
			}
			vals[i] = clamp01(v)
		}
		songs[n].Features = domain.FeaturesFromValues(vals)
	}
	return scales
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
