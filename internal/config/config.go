package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// External services
	DocstoreURL    string
	DocstoreAPIKey string
	AdviceAPIURL   string
	AdviceAPIKey   string

	// Session tokens
	SessionSecret string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL time.Duration

	// Offline resource cache + sync queue
	CacheVersion  string
	OfflineDBPath string // empty keeps everything in memory
	AppOrigin     string
	SyncInterval  time.Duration

	// Observability
	OTLPEndpoint string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DocstoreURL:    getEnv("DOCSTORE_URL", "http://localhost:8081"),
		DocstoreAPIKey: getEnv("DOCSTORE_API_KEY", ""),
		AdviceAPIURL:   getEnv("ADVICE_API_URL", "http://localhost:8090"),
		AdviceAPIKey:   getEnv("ADVICE_API_KEY", ""),

		SessionSecret: getEnv("SESSION_SECRET", "smartspendr-dev-secret-change-me"),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxBackoff:     getEnvDuration("MAX_BACKOFF", 5*time.Second),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),

		CacheVersion:  getEnv("CACHE_VERSION", "smartspendr-v1"),
		OfflineDBPath: getEnv("OFFLINE_DB_PATH", ""),
		AppOrigin:     getEnv("APP_ORIGIN", "http://localhost:5173"),
		SyncInterval:  getEnvDuration("SYNC_INTERVAL", 30*time.Second),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
