package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv(ConfigPathEnvVar, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Recommend.BatchSize != 1000 || cfg.Recommend.DefaultResults != 5 || cfg.Recommend.FeatureResults != 10 {
		t.Fatalf("unexpected recommend defaults: %+v", cfg.Recommend)
	}
	if cfg.Cache.Backend != "memory" || cfg.Cache.TTL != 10*time.Minute {
		t.Fatalf("unexpected cache defaults: %+v", cfg.Cache)
	}
	if cfg.Dataset.Dir != "data" || cfg.Dataset.MaxBytes != 256<<20 {
		t.Fatalf("unexpected dataset defaults: %+v", cfg.Dataset)
	}
	if len(cfg.Web.ExampleSongs) != 5 {
		t.Fatalf("expected 5 example songs, got %v", cfg.Web.ExampleSongs)
	}
	if cfg.Spotify.Enabled() {
		t.Fatalf("spotify should be disabled without credentials")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv(ConfigPathEnvVar, "")
	t.Setenv("SONGMATCH_HTTP_ADDR", ":9999")
	t.Setenv("BATCH_SIZE", "250")
	t.Setenv("CACHE_BACKEND", "none")
	t.Setenv("EXAMPLE_SONGS", "One, Two ,,Three")
	t.Setenv("SPOTIFY_CLIENT_ID", "id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "secret")
	t.Setenv("DATASET_DIR", "/srv/datasets")
	t.Setenv("DATASET_MAX_BYTES", "1024")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9999" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Recommend.BatchSize != 250 {
		t.Fatalf("batch size = %d", cfg.Recommend.BatchSize)
	}
	if cfg.Cache.Backend != "none" {
		t.Fatalf("backend = %q", cfg.Cache.Backend)
	}
	if cfg.Dataset.Dir != "/srv/datasets" || cfg.Dataset.MaxBytes != 1024 {
		t.Fatalf("dataset = %+v", cfg.Dataset)
	}
	if got := strings.Join(cfg.Web.ExampleSongs, "|"); got != "One|Two|Three" {
		t.Fatalf("example songs = %q", got)
	}
	if !cfg.Spotify.Enabled() {
		t.Fatalf("spotify should be enabled")
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "custom.yaml")
	body := "storage:\n  sqlite_path: /tmp/file.db\nrecommend:\n  batch_size: 50\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("BATCH_SIZE", "75")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.SQLitePath != "/tmp/file.db" {
		t.Fatalf("sqlite path = %q", cfg.Storage.SQLitePath)
	}
	if cfg.Recommend.BatchSize != 75 {
		t.Fatalf("env should win over file, got %d", cfg.Recommend.BatchSize)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"zero batch size", func(c *Config) { c.Recommend.BatchSize = 0 }, "batch_size"},
		{"unknown cache backend", func(c *Config) { c.Cache.Backend = "memcached" }, "cache.backend"},
		{"redis without address", func(c *Config) { c.Cache.Backend = "redis"; c.Cache.RedisAddr = "" }, "redis_addr"},
		{"half spotify credentials", func(c *Config) { c.Spotify.ClientID = "x" }, "spotify"},
		{"bad sampling rate", func(c *Config) { c.Tracing.SamplingRate = 2 }, "sampling_rate"},
		{"zero dataset cap", func(c *Config) { c.Dataset.MaxBytes = 0 }, "dataset.max_bytes"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}
