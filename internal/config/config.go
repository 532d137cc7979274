package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Credentials
	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration
	ResetTokenExpiry time.Duration

	// Redis (optional; user cache + shared rate limiter state)
	RedisURL     string
	UserCacheTTL time.Duration

	// Feeds
	QueryTimeout   time.Duration
	MaxPageSize    int
	TrendingWindow time.Duration

	// Server
	Port          string
	CORSOrigins   string
	PublicBaseURL string
	RateLimit     int
	AuthRateLimit int

	// Observability
	SentryDSN        string
	AppEnv           string
	LogRetentionDays int
}

func Load() *Config {
	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "social_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTAccessExpiry:  parseDuration(getEnv("JWT_ACCESS_EXPIRY", "15m"), 15*time.Minute),
		JWTRefreshExpiry: parseDuration(getEnv("JWT_REFRESH_EXPIRY", "336h"), 336*time.Hour),
		ResetTokenExpiry: parseDuration(getEnv("RESET_TOKEN_EXPIRY", "1h"), time.Hour),

		RedisURL:     getEnv("REDIS_URL", ""),
		UserCacheTTL: parseDuration(getEnv("USER_CACHE_TTL", "10m"), 10*time.Minute),

		QueryTimeout:   parseDuration(getEnv("QUERY_TIMEOUT", "5s"), 5*time.Second),
		MaxPageSize:    parseInt(getEnv("MAX_PAGE_SIZE", "100"), 100),
		TrendingWindow: parseDuration(getEnv("TRENDING_WINDOW", "72h"), 72*time.Hour),

		Port:          getEnv("PORT", "8080"),
		CORSOrigins:   getEnv("CORS_ORIGINS", "*"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		RateLimit:     parseInt(getEnv("RATE_LIMIT_PER_MINUTE", "120"), 120),
		AuthRateLimit: parseInt(getEnv("AUTH_RATE_LIMIT_PER_MINUTE", "10"), 10),

		SentryDSN:        getEnv("SENTRY_DSN", ""),
		AppEnv:           getEnv("APP_ENV", "development"),
		LogRetentionDays: parseInt(getEnv("LOG_RETENTION_DAYS", "30"), 30),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
