package app

import (
	"os"
	"strconv"
	"strings"
)

// Config holds every environment-derived setting the service reads at
// startup, following the teacher's single-struct, single-LoadConfig
// shape (internal/app/config.go).
type Config struct {
	HTTPAddr        string
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
	LogLevel        string
	LogFormat       string

	CacheDir      string
	CacheTTLHours int

	SourceLanguage string

	TranslateBatchSize             int
	TranslateMaxRetries            int
	TranslateConcurrency           int
	TranslateBackoffCapMs          int
	TranslateInterBatchPaceMs      int
	TranslateAbortAfterConsecutive int

	JournalCapacity int

	CORSAllowedOrigins []string // empty = allow all (dev mode)
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:   getEnv("MONGO_DB", "subtrans"),
		MongoCollection: getEnv("MONGO_COLLECTION", "jobs"),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(getEnv("LOG_FORMAT", "text")),

		CacheDir:      getEnv("CACHE_DIR", "data/cache"),
		CacheTTLHours: int(getEnvInt64("CACHE_TTL_HOURS", 24*7)),

		SourceLanguage: getEnv("SOURCE_LANGUAGE", ""),

		TranslateBatchSize:             int(getEnvInt64("TRANSLATE_BATCH_SIZE", 15)),
		TranslateMaxRetries:            int(getEnvInt64("TRANSLATE_MAX_RETRIES", 3)),
		TranslateConcurrency:           int(getEnvInt64("TRANSLATE_CONCURRENCY", 1)),
		TranslateBackoffCapMs:          int(getEnvInt64("TRANSLATE_BACKOFF_CAP_MS", 32000)),
		TranslateInterBatchPaceMs:      int(getEnvInt64("TRANSLATE_INTER_BATCH_PACE_MS", 500)),
		TranslateAbortAfterConsecutive: int(getEnvInt64("TRANSLATE_ABORT_AFTER_CONSECUTIVE", 3)),

		JournalCapacity: int(getEnvInt64("JOURNAL_CAPACITY", 100)),

		CORSAllowedOrigins: parseCSV(getEnv("CORS_ALLOWED_ORIGINS", "")),
	}
}

func parseCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	if parsed < 0 {
		return fallback
	}
	return parsed
}
