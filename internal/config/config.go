// Package config loads settings for the API, web and CLI binaries.
package config

import "time"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Dataset   DatasetConfig   `koanf:"dataset"`
	Storage   StorageConfig   `koanf:"storage"`
	Recommend RecommendConfig `koanf:"recommend"`
	Cache     CacheConfig     `koanf:"cache"`
	Worker    WorkerConfig    `koanf:"worker"`
	Spotify   SpotifyConfig   `koanf:"spotify"`
	Ollama    OllamaConfig    `koanf:"ollama"`
	Logging   LoggingConfig   `koanf:"logging"`
	Tracing   TracingConfig   `koanf:"tracing"`
	Web       WebConfig       `koanf:"web"`
}

type ServerConfig struct {
	Addr              string        `koanf:"addr"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

// DatasetConfig locates the CSV the catalog is imported from. Source may be
// a path, file:// or s3:// URL. Local imports must stay under Dir.
type DatasetConfig struct {
	Source            string `koanf:"source"`
	Dir               string `koanf:"dir"`
	MaxBytes          int64  `koanf:"max_bytes"`
	ImportOnStart     bool   `koanf:"import_on_start"`
	S3Region          string `koanf:"s3_region"`
	S3Endpoint        string `koanf:"s3_endpoint"`
	S3AccessKeyID     string `koanf:"s3_access_key_id"`
	S3SecretAccessKey string `koanf:"s3_secret_access_key"`
}

type StorageConfig struct {
	SQLitePath string `koanf:"sqlite_path"`
}

type RecommendConfig struct {
	BatchSize       int `koanf:"batch_size"`
	DefaultResults  int `koanf:"default_results"`
	FeatureResults  int `koanf:"feature_results"`
	MaxResults      int `koanf:"max_results"`
	MaxPlaylistPool int `koanf:"max_playlist_pool"`
	// RandomSeed fixes playlist sampling; 0 seeds from the clock.
	RandomSeed int64 `koanf:"random_seed"`
}

type CacheConfig struct {
	// Backend is memory, redis or none.
	Backend       string        `koanf:"backend"`
	Capacity      int           `koanf:"capacity"`
	TTL           time.Duration `koanf:"ttl"`
	RedisAddr     string        `koanf:"redis_addr"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db"`
}

type WorkerConfig struct {
	Count     int `koanf:"count"`
	QueueSize int `koanf:"queue_size"`
}

// SpotifyConfig enables track enrichment when both credentials are set.
type SpotifyConfig struct {
	ClientID     string        `koanf:"client_id"`
	ClientSecret string        `koanf:"client_secret"`
	BaseURL      string        `koanf:"base_url"`
	TokenURL     string        `koanf:"token_url"`
	MaxRetries   int           `koanf:"max_retries"`
	RetryBackoff time.Duration `koanf:"retry_backoff"`
}

func (s SpotifyConfig) Enabled() bool {
	return s.ClientID != "" && s.ClientSecret != ""
}

type OllamaConfig struct {
	Enabled bool          `koanf:"enabled"`
	Host    string        `koanf:"host"`
	Model   string        `koanf:"model"`
	Timeout time.Duration `koanf:"timeout"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

type TracingConfig struct {
	Enabled      bool    `koanf:"enabled"`
	ServiceName  string  `koanf:"service_name"`
	Endpoint     string  `koanf:"endpoint"`
	Insecure     bool    `koanf:"insecure"`
	SamplingRate float64 `koanf:"sampling_rate"`
}

type WebConfig struct {
	Addr         string        `koanf:"addr"`
	APIURL       string        `koanf:"api_url"`
	APITimeout   time.Duration `koanf:"api_timeout"`
	ExampleSongs []string      `koanf:"example_songs"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 15 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 120,
			RateLimitWindow:   time.Minute,
		},
		Dataset: DatasetConfig{
			Source:        "data/songs.csv",
			Dir:           "data",
			MaxBytes:      256 << 20,
			ImportOnStart: true,
			S3Region:      "us-east-1",
		},
		Storage: StorageConfig{
			SQLitePath: "songmatch.db",
		},
		Recommend: RecommendConfig{
			BatchSize:       1000,
			DefaultResults:  5,
			FeatureResults:  10,
			MaxResults:      100,
			MaxPlaylistPool: 50,
		},
		Cache: CacheConfig{
			Backend:   "memory",
			Capacity:  2048,
			TTL:       10 * time.Minute,
			RedisAddr: "localhost:6379",
		},
		Worker: WorkerConfig{
			Count:     1,
			QueueSize: 8,
		},
		Spotify: SpotifyConfig{
			BaseURL:      "https://api.spotify.com/v1",
			TokenURL:     "https://accounts.spotify.com/api/token",
			MaxRetries:   3,
			RetryBackoff: 500 * time.Millisecond,
		},
		Ollama: OllamaConfig{
			Enabled: false,
			Host:    "http://localhost:11434",
			Model:   "deepseek-r1:8b",
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:      false,
			ServiceName:  "songmatch-api",
			Endpoint:     "localhost:4318",
			Insecure:     true,
			SamplingRate: 1.0,
		},
		Web: WebConfig{
			Addr:       ":3000",
			APIURL:     "http://localhost:8080",
			APITimeout: 10 * time.Second,
			ExampleSongs: []string{
				"Shape of You",
				"Billie Jean",
				"Bohemian Rhapsody",
				"Bad Guy",
				"Dance Monkey",
			},
		},
	}
}
