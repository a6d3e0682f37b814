package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config collects everything the process needs from the environment. Secrets
// are injected here and passed down; nothing reads os.Getenv after startup.
type Config struct {
	DatabaseURL string
	HTTPAddr    string

	JWTSecret  string
	TokenTTL   int // seconds
	RefreshTTL int // seconds

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	ArchiveBucket  string

	ProviderBaseURL     string
	ProviderAPIKey      string
	ProviderAPISecret   string
	ProviderTimeout     time.Duration
	SupportedCurrencies []string

	ReconcileInterval time.Duration
}

// Load reads configuration from environment variables, applying development
// defaults where a value is optional. DATABASE_URL and JWT_SECRET are required.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		HTTPAddr:    envOr("HTTP_ADDR", ":8080"),

		JWTSecret:  os.Getenv("JWT_SECRET"),
		TokenTTL:   envInt("TOKEN_TTL_SECONDS", 3600),
		RefreshTTL: envInt("REFRESH_TTL_SECONDS", 7*24*3600),

		RedisAddr:     envOr("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		MinioEndpoint:  envOr("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: envOr("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey: envOr("MINIO_SECRET_KEY", "minioadmin"),
		MinioUseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
		ArchiveBucket:  envOr("ARCHIVE_BUCKET", "invoice-archive"),

		ProviderBaseURL:   envOr("PAYMENT_PROVIDER_URL", "https://api.payment-provider.example/v1"),
		ProviderAPIKey:    os.Getenv("PAYMENT_PROVIDER_KEY"),
		ProviderAPISecret: os.Getenv("PAYMENT_PROVIDER_SECRET"),
		ProviderTimeout:   envDuration("PAYMENT_PROVIDER_TIMEOUT", 10*time.Second),

		ReconcileInterval: envDuration("PAYMENT_RECONCILE_INTERVAL", 5*time.Minute),
	}

	currencies := envOr("SUPPORTED_CURRENCIES", "USD,EUR,INR")
	for _, c := range strings.Split(currencies, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cfg.SupportedCurrencies = append(cfg.SupportedCurrencies, c)
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
