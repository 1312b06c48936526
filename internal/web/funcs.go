package web

import (
	"fmt"
	"html/template"

	"github.com/ewilliams-labs/songmatch/internal/core/domain"
)

var funcs = template.FuncMap{
	"f2":       func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"pct":      func(v float64) string { return fmt.Sprintf("%.0f%%", v*100) },
	"inc":      func(i int) int { return i + 1 },
	"features": func() []string { return domain.FeatureNames },
	"feature": func(f domain.AudioFeatures, name string) float64 {
		v, _ := f.Get(name)
		return v
	},
	"lookup": func(m map[string]float64, name string) float64 { return m[name] },
	// barWidth scales count against max to a CSS percentage.
	"barWidth": func(count, max int) int {
		if max <= 0 {
			return 0
		}
		return count * 100 / max
	},
	// heat maps a correlation in [-1,1] to a background colour.
	"heat": func(v float64) template.CSS {
		if v >= 0 {
			return template.CSS(fmt.Sprintf("background: rgba(40,120,220,%.2f)", v))
		}
		return template.CSS(fmt.Sprintf("background: rgba(220,70,40,%.2f)", -v))
	},
}
