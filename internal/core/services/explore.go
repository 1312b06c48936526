package services

import (
	"github.com/ewilliams-labs/songmatch/internal/catalog"
	"github.com/ewilliams-labs/songmatch/internal/core/domain"
)

func (r *Recommender) Overview() (catalog.Overview, error) {
	cat, err := r.catalog()
	if err != nil {
		return catalog.Overview{}, err
	}
	return cat.Overview(), nil
}

func (r *Recommender) FeatureStats() ([]catalog.FeatureSummary, error) {
	cat, err := r.catalog()
	if err != nil {
		return nil, err
	}
	return cat.FeatureStats(), nil
}

func (r *Recommender) Correlations() (catalog.Correlations, error) {
	cat, err := r.catalog()
	if err != nil {
		return catalog.Correlations{}, err
	}
	return cat.Correlations(), nil
}

// Histogram bins a feature over [0,1]; bins <= 0 takes the default.
func (r *Recommender) Histogram(feature string, bins int) (catalog.Histogram, error) {
	cat, err := r.catalog()
	if err != nil {
		return catalog.Histogram{}, err
	}
	return cat.Histogram(feature, bins)
}

func (r *Recommender) TopByFeature(feature string, n int) ([]domain.Song, error) {
	cat, err := r.catalog()
	if err != nil {
		return nil, err
	}
	return cat.TopByFeature(feature, r.clampN(n, catalog.DefaultTopN))
}
