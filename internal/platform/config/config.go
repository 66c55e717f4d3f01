package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config captures service-level configuration.
type Config struct {
	Addr            string
	DatabaseURL     string
	Redis           RedisConfig
	GeocoderBaseURL string
	AdminToken      string

	// DefaultRadiusMiles is the starting radius for nearby queries before
	// the capped expansion schedule kicks in.
	DefaultRadiusMiles float64

	GeolocationTimeout time.Duration
	GeocodeCacheTTL    time.Duration
	SessionChoiceTTL   time.Duration
}

// RedisConfig configures the optional Redis-backed session store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
// A .env file is loaded first when present (development convenience).
func FromEnv() Config {
	_ = godotenv.Load()

	return Config{
		Addr:            envOr("DIRECTORY_ADDR", ":8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		GeocoderBaseURL: envOr("GEOCODER_BASE_URL", ""),
		AdminToken:      os.Getenv("ADMIN_TOKEN"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envIntOr("REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDurationOr("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		DefaultRadiusMiles: envFloatOr("DEFAULT_RADIUS_MILES", 25),
		GeolocationTimeout: envDurationOr("GEOLOCATION_TIMEOUT", 10*time.Second),
		GeocodeCacheTTL:    envDurationOr("GEOCODE_CACHE_TTL", 15*time.Minute),
		SessionChoiceTTL:   envDurationOr("SESSION_CHOICE_TTL", 30*24*time.Hour),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
