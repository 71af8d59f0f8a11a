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

	// JWT
	JWTSecret string

	// Canvas
	CanvasBaseURL string

	// Gemini AI
	GeminiAPIKey         string
	GeminiModel          string
	GeminiConcurrentReqs int

	// Cache
	CacheDir        string
	CacheTTLSeconds int
	RedisURL        string // optional; file cache is used when empty

	// Engine
	DispatchConcurrency int

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                 getEnvOrDefault("PORT", "8080"),
		Env:                  getEnvOrDefault("ENV", "development"),
		JWTSecret:            mustGetEnv("JWT_SECRET"),
		CanvasBaseURL:        getEnvOrDefault("CANVAS_BASE_URL", "https://canvas.instructure.com/api/v1"),
		GeminiAPIKey:         mustGetEnv("GEMINI_API_KEY"),
		GeminiModel:          getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiConcurrentReqs: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		CacheDir:             getEnvOrDefault("CACHE_DIR", "./cache"),
		CacheTTLSeconds:      getEnvAsIntOrDefault("CACHE_TTL_SECONDS", 3600),
		RedisURL:             getEnvOrDefault("REDIS_URL", ""),
		DispatchConcurrency:  getEnvAsIntOrDefault("DISPATCH_CONCURRENCY", 4),
		FrontendURL:          getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
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
