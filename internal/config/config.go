package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPort             = "8080"
	defaultDatabaseURL      = "quickshare.db"
	defaultDataDir          = "./data"
	defaultBaseURL          = "http://localhost:8080"
	defaultJWTSecret        = "change-me-jwt-secret"
	defaultAccessTTL        = "24h"
	defaultUnlockTTL        = "1h"
	defaultRedisAddr        = "localhost:6379"
	defaultUserMaxBatches   = "10"
	defaultGuestMaxBatches  = "5"
	defaultUserMaxBytes     = "524288000" // 500 MB
	defaultGuestMaxBytes    = "104857600" // 100 MB
	defaultAdminRetention   = "87600h"    // ~10 years
	defaultUserRetention    = "168h"      // 7 days
	defaultGuestRetention   = "24h"
	defaultUploadTTL        = "24h" // orphaned chunked uploads
	defaultSweepInterval    = "1h"
	defaultQueueWorkers     = "2"
	defaultQueueSize        = "64"
	defaultAttemptLimit     = "5"
	defaultAttemptWindow    = "60s"
	defaultShortCodeRetries = "10"
)

type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	DataDir     string
	BaseURL     string

	JWTSecret string
	AccessTTL time.Duration
	UnlockTTL time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	UserMaxBatches  int
	GuestMaxBatches int
	UserMaxBytes    int64
	GuestMaxBytes   int64

	AdminRetention time.Duration
	UserRetention  time.Duration
	GuestRetention time.Duration

	UploadTTL     time.Duration
	SweepInterval time.Duration

	QueueWorkers int
	QueueSize    int

	AttemptLimit     int
	AttemptWindow    time.Duration
	ShortCodeRetries int
}

func Load() (*Config, error) {
	cfg := &Config{}

	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.Port = getEnv("PORT", defaultPort)
	cfg.DatabaseURL = getEnv("DATABASE_URL", defaultDatabaseURL)
	cfg.DataDir = getEnv("DATA_DIR", defaultDataDir)
	cfg.BaseURL = strings.TrimRight(getEnv("BASE_URL", defaultBaseURL), "/")
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))

	cfg.RedisAddr = getEnv("REDIS_ADDR", defaultRedisAddr)
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")

	var err error
	if cfg.RedisDB, err = parseIntEnv("REDIS_DB", "0"); err != nil {
		return nil, err
	}
	if cfg.AccessTTL, err = parseDurationEnv("JWT_ACCESS_TTL", defaultAccessTTL); err != nil {
		return nil, err
	}
	if cfg.UnlockTTL, err = parseDurationEnv("UNLOCK_TTL", defaultUnlockTTL); err != nil {
		return nil, err
	}
	if cfg.UserMaxBatches, err = parseIntEnv("USER_MAX_BATCHES", defaultUserMaxBatches); err != nil {
		return nil, err
	}
	if cfg.GuestMaxBatches, err = parseIntEnv("GUEST_MAX_BATCHES", defaultGuestMaxBatches); err != nil {
		return nil, err
	}
	if cfg.UserMaxBytes, err = parseInt64Env("USER_MAX_BYTES", defaultUserMaxBytes); err != nil {
		return nil, err
	}
	if cfg.GuestMaxBytes, err = parseInt64Env("GUEST_MAX_BYTES", defaultGuestMaxBytes); err != nil {
		return nil, err
	}
	if cfg.AdminRetention, err = parseDurationEnv("ADMIN_RETENTION", defaultAdminRetention); err != nil {
		return nil, err
	}
	if cfg.UserRetention, err = parseDurationEnv("USER_RETENTION", defaultUserRetention); err != nil {
		return nil, err
	}
	if cfg.GuestRetention, err = parseDurationEnv("GUEST_RETENTION", defaultGuestRetention); err != nil {
		return nil, err
	}
	if cfg.UploadTTL, err = parseDurationEnv("UPLOAD_TTL", defaultUploadTTL); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = parseDurationEnv("SWEEP_INTERVAL", defaultSweepInterval); err != nil {
		return nil, err
	}
	if cfg.QueueWorkers, err = parseIntEnv("QUEUE_WORKERS", defaultQueueWorkers); err != nil {
		return nil, err
	}
	if cfg.QueueSize, err = parseIntEnv("QUEUE_SIZE", defaultQueueSize); err != nil {
		return nil, err
	}
	if cfg.AttemptLimit, err = parseIntEnv("ATTEMPT_LIMIT", defaultAttemptLimit); err != nil {
		return nil, err
	}
	if cfg.AttemptWindow, err = parseDurationEnv("ATTEMPT_WINDOW", defaultAttemptWindow); err != nil {
		return nil, err
	}
	if cfg.ShortCodeRetries, err = parseIntEnv("SHORT_CODE_RETRIES", defaultShortCodeRetries); err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.UnlockTTL <= 0 {
		return fmt.Errorf("UNLOCK_TTL must be > 0")
	}
	if cfg.AttemptLimit <= 0 {
		return fmt.Errorf("ATTEMPT_LIMIT must be > 0")
	}
	if cfg.AttemptWindow <= 0 {
		return fmt.Errorf("ATTEMPT_WINDOW must be > 0")
	}
	if cfg.QueueWorkers <= 0 {
		return fmt.Errorf("QUEUE_WORKERS must be > 0")
	}
	if cfg.GuestRetention <= 0 || cfg.UserRetention <= 0 || cfg.AdminRetention <= 0 {
		return fmt.Errorf("retention durations must be > 0")
	}
	if isProdLike(cfg.AppEnv) {
		if trimmed := strings.TrimSpace(cfg.JWTSecret); trimmed == "" || trimmed == defaultJWTSecret {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
	}
	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func parseInt64Env(name, fallback string) (int64, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
