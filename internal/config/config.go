package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port     string
	Env      string
	LogLevel string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Fixture feed
	FeedURL string

	// Upstream odds/logo provider
	ProviderBaseURL string
	ProviderAPIKey  string
	UpstreamTimeout time.Duration

	// Upstream rate limit (one shared window for the whole service)
	RateLimit         int
	RateLimitWindow   time.Duration
	RateLimitClientID string
	RateLimitFailOpen bool

	// Cache TTLs
	ResultFastTTL    time.Duration
	ResultDurableTTL time.Duration
	ListTTL          time.Duration

	// CORS
	CORSAllowedOrigins []string
}

func Load() (*Config, error) {
	// load .env if present
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", "5000"),
		Env:               getEnv("ENV", "development"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379"),
		FeedURL:           getEnv("FEED_URL", "https://bet.hkjc.com/football/getJSON.aspx"),
		ProviderBaseURL:   getEnv("PROVIDER_BASE_URL", "https://v3.football.api-sports.io"),
		ProviderAPIKey:    getEnv("PROVIDER_API_KEY", ""),
		UpstreamTimeout:   parseDuration(getEnv("UPSTREAM_TIMEOUT", "10s"), 10*time.Second),
		RateLimit:         parseInt(getEnv("RATE_LIMIT", "10"), 10),
		RateLimitWindow:   parseDuration(getEnv("RATE_LIMIT_WINDOW", "60s"), time.Minute),
		RateLimitClientID: getEnv("RATE_LIMIT_CLIENT_ID", "global"),
		RateLimitFailOpen: getEnv("RATE_LIMIT_FAIL_OPEN", "false") == "true",
		ResultFastTTL:     parseDuration(getEnv("RESULT_FAST_TTL", "3300s"), 3300*time.Second),
		ResultDurableTTL:  parseDuration(getEnv("RESULT_DURABLE_TTL", "3600s"), 3600*time.Second),
		ListTTL:           parseDuration(getEnv("LIST_TTL", "300s"), 300*time.Second),
		CORSAllowedOrigins: []string{
			"http://localhost:3000",
			"https://topxhk.ai",
			"https://www.topxhk.ai",
		},
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
