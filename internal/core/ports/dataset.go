package ports

import (
	"context"
	"io"
)

// DatasetSource yields the raw CSV bytes of a song dataset.
type DatasetSource interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	Name() string
}

// ResultCache stores serialized query results keyed by catalog version.
type ResultCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
}

// SourceResolver maps a dataset location such as a path or s3:// URL to a source.
type SourceResolver interface {
	Resolve(location string) (DatasetSource, error)
}
