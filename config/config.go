// Package config loads server configuration from the environment, with an
// optional .env file in the working directory.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Port         string
	DatabasePath string // ":memory:" or "mem" for non-persistent runs
	LogLevel     string

	ExportsDir   string
	ExportMaxAge time.Duration

	FXAPIURL    string
	FXAPIKey    string
	FXCacheTTL  time.Duration
	FXRateLimit float64 // outbound requests per second
	USDToIQD    decimal.Decimal

	NotificationTTL time.Duration

	SchedulerEnabled            bool
	RecalcInterval              time.Duration
	RolloverInterval            time.Duration
	ExportCleanupInterval       time.Duration
	NotificationCleanupInterval time.Duration

	CORSOrigins []string
}

// Load reads .env (a missing file is fine) and then the environment.
// Malformed values log a warning and keep the default.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("WARNING: could not load .env file: %v", err)
	}

	return &Config{
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "investors.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		ExportsDir:   getEnv("EXPORTS_DIR", "./exports"),
		ExportMaxAge: getEnvAsDuration("EXPORT_MAX_AGE", 24*time.Hour),

		FXAPIURL:    getEnv("FX_API_URL", "https://api.fastforex.io"),
		FXAPIKey:    getEnv("FX_API_KEY", ""),
		FXCacheTTL:  getEnvAsDuration("FX_CACHE_TTL", time.Hour),
		FXRateLimit: getEnvAsFloat("FX_RATE_LIMIT", 1),
		USDToIQD:    getEnvAsDecimal("USD_TO_IQD", decimal.RequireFromString("1310.32")),

		NotificationTTL: getEnvAsDuration("NOTIFICATION_TTL", 30*24*time.Hour),

		SchedulerEnabled:            getEnvAsBool("SCHEDULER_ENABLED", true),
		RecalcInterval:              getEnvAsDuration("RECALC_INTERVAL", 30*time.Minute),
		RolloverInterval:            getEnvAsDuration("ROLLOVER_INTERVAL", 24*time.Hour),
		ExportCleanupInterval:       getEnvAsDuration("EXPORT_CLEANUP_INTERVAL", 7*24*time.Hour),
		NotificationCleanupInterval: getEnvAsDuration("NOTIFICATION_CLEANUP_INTERVAL", 24*time.Hour),

		CORSOrigins: getEnvAsList("CORS_ORIGINS", []string{"*"}),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("WARNING: invalid duration for %s (%q), using default %s", key, raw, fallback)
		return fallback
	}
	return d
}

func getEnvAsFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f <= 0 {
		log.Printf("WARNING: invalid number for %s (%q), using default %v", key, raw, fallback)
		return fallback
	}
	return f
}

func getEnvAsDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return fallback
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || !d.IsPositive() {
		log.Printf("WARNING: invalid decimal for %s (%q), using default %s", key, raw, fallback)
		return fallback
	}
	return d
}

func getEnvAsBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("WARNING: invalid boolean for %s (%q), using default %t", key, raw, fallback)
		return fallback
	}
	return b
}

func getEnvAsList(key string, fallback []string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
