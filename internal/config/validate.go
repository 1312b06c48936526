package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.RateLimitRequests < 0 {
		errs = append(errs, errors.New("server.rate_limit_requests must not be negative"))
	}
	if c.Dataset.MaxBytes <= 0 {
		errs = append(errs, fmt.Errorf("dataset.max_bytes must be positive, got %d", c.Dataset.MaxBytes))
	}
	if c.Storage.SQLitePath == "" {
		errs = append(errs, errors.New("storage.sqlite_path is required"))
	}
	if c.Recommend.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("recommend.batch_size must be positive, got %d", c.Recommend.BatchSize))
	}
	if c.Recommend.DefaultResults <= 0 || c.Recommend.DefaultResults > c.Recommend.MaxResults {
		errs = append(errs, fmt.Errorf("recommend.default_results must be between 1 and %d", c.Recommend.MaxResults))
	}
	if c.Recommend.FeatureResults <= 0 || c.Recommend.FeatureResults > c.Recommend.MaxResults {
		errs = append(errs, fmt.Errorf("recommend.feature_results must be between 1 and %d", c.Recommend.MaxResults))
	}
	if c.Recommend.MaxPlaylistPool <= 0 {
		errs = append(errs, errors.New("recommend.max_playlist_pool must be positive"))
	}
	switch strings.ToLower(c.Cache.Backend) {
	case "memory", "none", "":
	case "redis":
		if c.Cache.RedisAddr == "" {
			errs = append(errs, errors.New("cache.redis_addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.backend must be memory, redis or none, got %q", c.Cache.Backend))
	}
	if c.Worker.Count <= 0 || c.Worker.QueueSize <= 0 {
		errs = append(errs, errors.New("worker.count and worker.queue_size must be positive"))
	}
	if (c.Spotify.ClientID == "") != (c.Spotify.ClientSecret == "") {
		errs = append(errs, errors.New("spotify.client_id and spotify.client_secret must be set together"))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console", "":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format))
	}
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		errs = append(errs, fmt.Errorf("tracing.sampling_rate must be between 0 and 1, got %v", c.Tracing.SamplingRate))
	}

	return errors.Join(errs...)
}
