package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound              = errors.New("domain: not found")
	ErrSongNotFound          = errors.New("domain: song not found")
	ErrCatalogNotLoaded      = errors.New("domain: catalog not loaded")
	ErrMissingColumns        = errors.New("domain: missing required columns")
	ErrUnknownFeature        = errors.New("domain: unknown feature")
	ErrInvalidArgument       = errors.New("domain: invalid argument")
	ErrIntentUnavailable     = errors.New("domain: intent compiler not configured")
	ErrEnrichmentUnavailable = errors.New("domain: track enrichment not configured")
	ErrImportInProgress      = errors.New("domain: import already in progress")
	ErrDatasetTooLarge       = errors.New("domain: dataset exceeds size limit")
)

// MissingColumnsError lists the required CSV columns a dataset lacks.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingColumns.Error(), strings.Join(e.Columns, ", "))
}

func (e *MissingColumnsError) Is(target error) bool {
	return target == ErrMissingColumns
}

// LoadWarning describes a dataset row that was skipped or repaired during load.
type LoadWarning struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

func (w LoadWarning) String() string {
	if w.Line <= 0 {
		return w.Message
	}
	return fmt.Sprintf("line %d: %s", w.Line, w.Message)
}
