package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/songmatch/config.yaml",
}

const ConfigPathEnvVar = "CONFIG_PATH"

// envMappings maps environment variables onto config paths.
var envMappings = map[string]string{
	"songmatch_http_addr":   "server.addr",
	"cors_origins":          "server.cors_origins",
	"rate_limit_requests":   "server.rate_limit_requests",
	"rate_limit_window":     "server.rate_limit_window",
	"shutdown_timeout":      "server.shutdown_timeout",
	"dataset_source":        "dataset.source",
	"dataset_import":        "dataset.import_on_start",
	"dataset_dir":           "dataset.dir",
	"dataset_max_bytes":     "dataset.max_bytes",
	"s3_region":             "dataset.s3_region",
	"s3_endpoint":           "dataset.s3_endpoint",
	"s3_access_key_id":      "dataset.s3_access_key_id",
	"s3_secret_access_key":  "dataset.s3_secret_access_key",
	"sqlite_path":           "storage.sqlite_path",
	"batch_size":            "recommend.batch_size",
	"default_results":       "recommend.default_results",
	"random_seed":           "recommend.random_seed",
	"cache_backend":         "cache.backend",
	"cache_capacity":        "cache.capacity",
	"cache_ttl":             "cache.ttl",
	"redis_addr":            "cache.redis_addr",
	"redis_password":        "cache.redis_password",
	"redis_db":              "cache.redis_db",
	"worker_count":          "worker.count",
	"worker_queue_size":     "worker.queue_size",
	"spotify_client_id":     "spotify.client_id",
	"spotify_client_secret": "spotify.client_secret",
	"spotify_base_url":      "spotify.base_url",
	"spotify_max_retries":   "spotify.max_retries",
	"spotify_retry_backoff": "spotify.retry_backoff",
	"ollama_enabled":        "ollama.enabled",
	"ollama_host":           "ollama.host",
	"ollama_model":          "ollama.model",
	"log_level":             "logging.level",
	"log_format":            "logging.format",
	"log_caller":            "logging.caller",
	"otel_enabled":          "tracing.enabled",
	"otel_endpoint":         "tracing.endpoint",
	"otel_service_name":     "tracing.service_name",
	"otel_sampling_rate":    "tracing.sampling_rate",
	"web_addr":              "web.addr",
	"api_url":               "web.api_url",
	"example_songs":         "web.example_songs",
}

// sliceConfigPaths arrive from the environment as comma-separated strings.
var sliceConfigPaths = []string{
	"server.cors_origins",
	"web.example_songs",
}

// Load layers struct defaults, an optional YAML file and environment
// variables, in increasing priority, then validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		raw, ok := k.Get(path).(string)
		if !ok || raw == "" {
			continue
		}
		var parts []string
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("config: set %s: %w", path, err)
		}
	}
	return nil
}
