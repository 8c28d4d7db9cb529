package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	RateLimit RateLimitConfig
	Stripe    StripeConfig
	Reconcile ReconcileConfig
}

// RateLimitConfig controls the redis-backed ingest limiter.
type RateLimitConfig struct {
	Enabled        bool
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	TenantRate     float64
	TenantBurst    int
	LockTTLSeconds int
}

// StripeConfig controls the metered-billing sync.
type StripeConfig struct {
	Enabled bool
	APIKey  string
}

// ReconcileConfig controls the summary reconciliation worker.
type ReconcileConfig struct {
	Enabled             bool
	PollIntervalSeconds int
	BatchSize           int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "fixkit"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "fixkit"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 4),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 32),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),

		RateLimit: RateLimitConfig{
			Enabled:        getenvBool("RATE_LIMIT_ENABLED", false),
			RedisAddr:      strings.TrimSpace(getenv("REDIS_ADDR", "")),
			RedisPassword:  strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			RedisDB:        getenvInt("REDIS_DB", 0),
			TenantRate:     getenvFloat("RATE_LIMIT_TENANT_RATE", 50),
			TenantBurst:    getenvInt("RATE_LIMIT_TENANT_BURST", 100),
			LockTTLSeconds: getenvInt("RATE_LIMIT_LOCK_TTL_SECONDS", 5),
		},
		Stripe: StripeConfig{
			Enabled: getenvBool("STRIPE_SYNC_ENABLED", false),
			APIKey:  strings.TrimSpace(getenv("STRIPE_API_KEY", "")),
		},
		Reconcile: ReconcileConfig{
			Enabled:             getenvBool("RECONCILE_ENABLED", true),
			PollIntervalSeconds: getenvInt("RECONCILE_POLL_INTERVAL_SECONDS", 300),
			BatchSize:           getenvInt("RECONCILE_BATCH_SIZE", 100),
		},
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
