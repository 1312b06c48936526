package ports

import (
	"context"

	"github.com/ewilliams-labs/songmatch/internal/core/domain"
)

// IntentCompiler turns a free-text description into feature constraints.
type IntentCompiler interface {
	AnalyzeIntent(ctx context.Context, description string) (domain.IntentObject, error)
}
