package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Common
	Env      string
	LogLevel string
	// API
	Port        string
	Storage     string
	DatabaseURL string
	// Provider
	Provider        string
	AlphaBaseURL    string
	AlphaAPIKey     string
	AlphaOutputSize string
	Symbols         []string
	// Retry policy
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
	RetryMultiplier  float64
	RetryJitter      float64
	// Rate limit budget against the provider
	RateLimitPerMinute int
	RateLimitBurst     int
	// Run
	MaxParallel      int
	RunTimeout       time.Duration
	QualityMaxReject float64
	QualityAbort     bool
	// Redis (idempotency)
	IdempotencyBackend string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	RedisTTL           time.Duration
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoiDef(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func floatDef(s string, def float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

func boolDef(s string, def bool) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	return out
}

// Load reads environment variables and applies defaults.
func Load() Config {
	return Config{
		Env:                getEnv("ENV", "local"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Port:               getEnv("PORT", "8080"),
		Storage:            getEnv("STORAGE", "pg"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		Provider:           getEnv("PROVIDER", "fake"),
		AlphaBaseURL:       getEnv("ALPHA_VANTAGE_BASE_URL", "https://www.alphavantage.co/query"),
		AlphaAPIKey:        getEnv("ALPHA_VANTAGE_API_KEY", ""),
		AlphaOutputSize:    getEnv("ALPHA_VANTAGE_OUTPUT_SIZE", "compact"),
		Symbols:            splitCSV(getEnv("STOCK_SYMBOLS", "AAPL,MSFT,GOOGL,AMZN,TSLA")),
		RetryMaxAttempts:   atoiDef(getEnv("RETRY_MAX_ATTEMPTS", "3"), 3),
		RetryBaseDelay:     time.Duration(atoiDef(getEnv("RETRY_BASE_DELAY_MS", "500"), 500)) * time.Millisecond,
		RetryMaxDelay:      time.Duration(atoiDef(getEnv("RETRY_MAX_DELAY_MS", "8000"), 8000)) * time.Millisecond,
		RetryMultiplier:    floatDef(getEnv("RETRY_MULTIPLIER", "2.0"), 2.0),
		RetryJitter:        floatDef(getEnv("RETRY_JITTER", "0.2"), 0.2),
		RateLimitPerMinute: atoiDef(getEnv("PROVIDER_CALLS_PER_MINUTE", "5"), 5),
		RateLimitBurst:     atoiDef(getEnv("PROVIDER_BURST", "1"), 1),
		MaxParallel:        atoiDef(getEnv("MAX_PARALLEL_SYMBOLS", "4"), 4),
		RunTimeout:         time.Duration(atoiDef(getEnv("RUN_TIMEOUT_MS", "600000"), 600000)) * time.Millisecond,
		QualityMaxReject:   floatDef(getEnv("QUALITY_MAX_REJECT_FRACTION", "0.5"), 0.5),
		QualityAbort:       boolDef(getEnv("QUALITY_ABORT", "false"), false),
		IdempotencyBackend: getEnv("IDEMPOTENCY_BACKEND", "none"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            atoiDef(getEnv("REDIS_DB", "0"), 0),
		RedisTTL:           time.Duration(atoiDef(getEnv("IDEMPOTENCY_TTL_MS", "86400000"), 86400000)) * time.Millisecond,
	}
}
