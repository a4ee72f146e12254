package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// generateWorkerID creates a unique worker ID using hostname and PID
func generateWorkerID() string {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "reach"
	}
	return fmt.Sprintf("%s-%d", hostname, os.Getpid())
}

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	// Database
	DatabaseURL string
	RedisURL    string

	// JWT (Supabase-issued access tokens)
	JWTSecret string

	// Social analytics API
	SocialAPIBaseURL   string
	SocialAPIKey       string
	SocialAPIHost      string
	SocialAPITimeout   time.Duration
	SocialAPIRPS       float64
	SocialAPIBurst     int
	SocialCacheTTL     time.Duration
	SocialPreviewLimit float64 // per-user requests per second on the preview endpoint

	// Push delivery
	PushAPIURL      string
	PushAccessToken string

	// Tier recompute job
	WorkerID              string
	TierRecomputeSchedule string
	TierRecomputeWorkers  int

	// CORS
	AllowedOrigins []string

	// Scheduler
	SchedulerEnabled bool
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		// JWT
		JWTSecret: getEnv("SUPABASE_JWT_SECRET", ""),

		// Social analytics API
		SocialAPIBaseURL:   getEnv("SOCIAL_API_BASE_URL", "https://instagram-statistics-api.p.rapidapi.com"),
		SocialAPIKey:       getEnv("SOCIAL_API_KEY", ""),
		SocialAPIHost:      getEnv("SOCIAL_API_HOST", "instagram-statistics-api.p.rapidapi.com"),
		SocialAPITimeout:   time.Duration(getEnvInt("SOCIAL_API_TIMEOUT_SEC", 10)) * time.Second,
		SocialAPIRPS:       getEnvFloat("SOCIAL_API_RPS", 2),
		SocialAPIBurst:     getEnvInt("SOCIAL_API_BURST", 4),
		SocialCacheTTL:     time.Duration(getEnvInt("SOCIAL_CACHE_TTL_MIN", 360)) * time.Minute,
		SocialPreviewLimit: getEnvFloat("SOCIAL_PREVIEW_RPS", 0.5),

		// Push
		PushAPIURL:      getEnv("PUSH_API_URL", "https://exp.host/--/api/v2/push/send"),
		PushAccessToken: getEnv("PUSH_ACCESS_TOKEN", ""),

		// Tier recompute
		WorkerID:              getEnv("WORKER_ID", generateWorkerID()),
		TierRecomputeSchedule: getEnv("TIER_RECOMPUTE_SCHEDULE", "@every 6h"),
		TierRecomputeWorkers:  getEnvInt("TIER_RECOMPUTE_WORKERS", 8),

		// CORS
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		// Scheduler
		SchedulerEnabled: getEnvBool("SCHEDULER_ENABLED", true),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.TierRecomputeWorkers <= 0 {
		cfg.TierRecomputeWorkers = 1
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// PushEnabled reports whether a push access token is configured.
func (c *Config) PushEnabled() bool {
	return c.PushAccessToken != ""
}
