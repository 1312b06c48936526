package domain

// VibeConstraint bounds one audio feature on a 0 to 1 scale. A nil bound is
// absent; zero is a real value.
type VibeConstraint struct {
	Target *float64 `json:"target,omitempty"`
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
	Weight string   `json:"weight"`
}

// Float64 returns a pointer to v for building constraints.
func Float64(v float64) *float64 { return &v }

// Value collapses the constraint to a single target value: the target,
// else the midpoint of min and max, else whichever bound is set.
func (c VibeConstraint) Value() (float64, bool) {
	switch {
	case c.Target != nil:
		return *c.Target, true
	case c.Min != nil && c.Max != nil:
		return (*c.Min + *c.Max) / 2, true
	case c.Min != nil:
		return *c.Min, true
	case c.Max != nil:
		return *c.Max, true
	}
	return 0, false
}

type IntentObject struct {
	IntentType string `json:"intent_type"`
	Entities   struct {
		Artists []string `json:"artists"`
		Genres  []string `json:"genres"`
	} `json:"entities"`
	VibeConstraints map[string]VibeConstraint `json:"vibe_constraints"`
	Explanation     string                    `json:"explanation"`
}

// FeatureTargets converts the vibe constraints into feature values, keeping
// only known features with a usable value.
func (i IntentObject) FeatureTargets() map[string]float64 {
	out := make(map[string]float64, len(i.VibeConstraints))
	for name, c := range i.VibeConstraints {
		if !IsFeature(name) {
			continue
		}
		v, ok := c.Value()
		if !ok {
			continue
		}
		out[name] = clamp01(v)
	}
	return out
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
