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

	// Gemini AI
	GeminiAPIKey         string
	GeminiConcurrentReqs int
	ExtractModel         string
	GenerateModel        string
	FixModel             string

	// Per-stage output caps and temperatures
	MaxOutExtract  int
	MaxOutGenerate int
	MaxOutFix      int
	TempExtract    float64
	TempGenerate   float64
	TempFix        float64

	// Oracle call timeout (seconds)
	RequestTimeoutSec int

	// Cache
	CacheBackend    string // "file" or "redis"
	CacheDir        string
	CacheTTLSeconds int
	RedisURL        string

	// Rate limiting
	RateLimitWindowSeconds int
	RateLimitQuota         int

	// JWT (optional; anonymous callers are rate-limited by client address)
	JWTSecret string

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                 getEnvOrDefault("PORT", "8080"),
		Env:                  getEnvOrDefault("ENV", "development"),
		GeminiAPIKey:         mustGetEnv("GEMINI_API_KEY"),
		GeminiConcurrentReqs: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		ExtractModel:         getEnvOrDefault("EXTRACT_MODEL", "gemini-3-flash-preview"),
		GenerateModel:        getEnvOrDefault("GENERATE_MODEL", "gemini-3-flash-preview"),
		FixModel:             getEnvOrDefault("FIX_MODEL", "gemini-3-flash-preview"),

		MaxOutExtract:  getEnvAsIntOrDefault("MAX_OUT_EXTRACT", 400),
		MaxOutGenerate: getEnvAsIntOrDefault("MAX_OUT_GENERATE", 900),
		MaxOutFix:      getEnvAsIntOrDefault("MAX_OUT_FIX", 400),
		TempExtract:    getEnvAsFloatOrDefault("TEMP_EXTRACT", 0.2),
		TempGenerate:   getEnvAsFloatOrDefault("TEMP_GENERATE", 0.4),
		TempFix:        getEnvAsFloatOrDefault("TEMP_FIX", 0.2),

		RequestTimeoutSec: getEnvAsIntOrDefault("REQUEST_TIMEOUT_SEC", 60),

		CacheBackend:    getEnvOrDefault("CACHE_BACKEND", "file"),
		CacheDir:        getEnvOrDefault("AI_CACHE_DIR", "./cache"),
		CacheTTLSeconds: getEnvAsIntOrDefault("CACHE_TTL", 86400),
		RedisURL:        getEnvOrDefault("REDIS_URL", ""),

		RateLimitWindowSeconds: getEnvAsIntOrDefault("AI_RATE_LIMIT_WINDOW", 30),
		RateLimitQuota:         getEnvAsIntOrDefault("AI_RATE_LIMIT_QUOTA", 3),

		JWTSecret: getEnvOrDefault("JWT_SECRET", ""),

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
