// Package dataset opens song datasets from the local disk or an S3
// compatible object store.
package dataset

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/ewilliams-labs/songmatch/internal/core/domain"
	"github.com/ewilliams-labs/songmatch/internal/core/ports"
)

// S3Config holds credentials for s3:// sources. Endpoint is optional and
// enables path-style addressing for MinIO or R2.
type S3Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Resolver turns a dataset location into a source.
type Resolver struct {
	S3 S3Config
	// Dir confines local paths to one directory tree. Empty allows any path.
	Dir string
}

// Resolve accepts a filesystem path, a file:// URL or an s3://bucket/key URL.
func (r Resolver) Resolve(location string) (ports.DatasetSource, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, fmt.Errorf("dataset: %w: empty location", domain.ErrInvalidArgument)
	}
	if !strings.Contains(location, "://") {
		return r.local(location)
	}
	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("dataset: %w: parse location: %v", domain.ErrInvalidArgument, err)
	}
	switch u.Scheme {
	case "file":
		return r.local(u.Path)
	case "s3":
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return nil, fmt.Errorf("dataset: %w: s3 location needs bucket and key: %q", domain.ErrInvalidArgument, location)
		}
		return NewS3Source(r.S3, u.Host, key), nil
	default:
		return nil, fmt.Errorf("dataset: %w: unsupported scheme %q", domain.ErrInvalidArgument, u.Scheme)
	}
}

func (r Resolver) local(path string) (ports.DatasetSource, error) {
	if r.Dir == "" {
		return FileSource{Path: path}, nil
	}
	dir, err := filepath.Abs(r.Dir)
	if err != nil {
		return nil, fmt.Errorf("dataset: resolve dataset dir: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: %w: bad path %q", domain.ErrInvalidArgument, path)
	}
	rel, err := filepath.Rel(dir, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("dataset: %w: %q is outside the dataset directory", domain.ErrInvalidArgument, path)
	}
	return FileSource{Path: path}, nil
}

// FileSource reads a dataset from the local filesystem.
type FileSource struct {
	Path string
}

var _ ports.DatasetSource = FileSource{}

func (f FileSource) Name() string { return f.Path }

func (f FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", f.Path, err)
	}
	return file, nil
}
