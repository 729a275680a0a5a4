package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseURL      string
	DatabaseMaxConns int

	// Redis
	RedisURL string

	// JWT
	JWTSecret string

	// Analytics
	CompletionThreshold    float64
	FlushIntervalSeconds   int
	SummaryCacheTTLSeconds int
	PopularCacheTTLSeconds int
	RefreshIntervalMinutes int
	WorkerCount            int

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:             getEnvOrDefault("PORT", "8080"),
		Env:              getEnvOrDefault("ENV", "development"),
		DatabaseURL:      mustGetEnv("DATABASE_URL"),
		DatabaseMaxConns: getEnvAsIntOrDefault("DB_MAX_CONNS", 25),
		RedisURL:         mustGetEnv("REDIS_URL"),
		JWTSecret:        mustGetEnv("JWT_SECRET"),

		CompletionThreshold:    getEnvAsFloatOrDefault("COMPLETION_THRESHOLD", 90),
		FlushIntervalSeconds:   getEnvAsIntOrDefault("FLUSH_INTERVAL_SECONDS", 15),
		SummaryCacheTTLSeconds: getEnvAsIntOrDefault("SUMMARY_CACHE_TTL_SECONDS", 300),
		PopularCacheTTLSeconds: getEnvAsIntOrDefault("POPULAR_CACHE_TTL_SECONDS", 600),
		RefreshIntervalMinutes: getEnvAsIntOrDefault("SUMMARY_REFRESH_INTERVAL_MINUTES", 60),
		WorkerCount:            getEnvAsIntOrDefault("WORKER_COUNT", 3),

		FrontendURL: getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsFloatOrDefault(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}
	return f
}
