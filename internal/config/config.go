package config

import (
	"os"
	"strconv"
	"time"

	"finance_ledger/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	DatabaseURL string
	JWTSecret   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Listing cache
	CacheTTL time.Duration

	// Recalculation worker
	WorkerCount     int
	JobMaxAttempts  int
	JobRetryBackoff time.Duration

	LogLevel string
	LogJSON  bool
}

// Load reads configuration from the environment. Missing required
// variables are fatal; everything else has a default.
func Load() *Config {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			redisDB = n
		}
	}

	// 30s: bounds listing staleness even if an invalidation is lost
	cacheTTL := 30 * time.Second
	if v := os.Getenv("CACHE_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cacheTTL = time.Duration(n) * time.Second
		}
	}

	workerCount := 2
	if v := os.Getenv("RECALC_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			workerCount = n
		}
	}

	jobMaxAttempts := 5
	if v := os.Getenv("RECALC_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			jobMaxAttempts = n
		}
	}

	jobRetryBackoff := 2 * time.Second
	if v := os.Getenv("RECALC_RETRY_BACKOFF_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			jobRetryBackoff = time.Duration(n) * time.Second
		}
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	return &Config{
		AppPort:         port,
		DatabaseURL:     dbURL,
		JWTSecret:       jwtSecret,
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         redisDB,
		CacheTTL:        cacheTTL,
		WorkerCount:     workerCount,
		JobMaxAttempts:  jobMaxAttempts,
		JobRetryBackoff: jobRetryBackoff,
		LogLevel:        logLevel,
		LogJSON:         os.Getenv("LOG_JSON") == "true",
	}
}
