package app

import (
	"os"
	"testing"
)

func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	// Clear all env vars that LoadConfig reads so we get pure defaults.
	envVars := []string{
		"HTTP_ADDR", "MONGO_URI", "MONGO_DB", "MONGO_COLLECTION",
		"LOG_LEVEL", "LOG_FORMAT",
		"CACHE_DIR", "CACHE_TTL_HOURS",
		"SOURCE_LANGUAGE",
		"TRANSLATE_BATCH_SIZE", "TRANSLATE_MAX_RETRIES", "TRANSLATE_CONCURRENCY",
		"TRANSLATE_BACKOFF_CAP_MS", "TRANSLATE_INTER_BATCH_PACE_MS",
		"TRANSLATE_ABORT_AFTER_CONSECUTIVE",
		"JOURNAL_CAPACITY",
		"CORS_ALLOWED_ORIGINS",
	}
	for _, k := range envVars {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg := LoadConfig()

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"HTTPAddr", cfg.HTTPAddr, ":8080"},
		{"MongoURI", cfg.MongoURI, "mongodb://localhost:27017"},
		{"MongoDatabase", cfg.MongoDatabase, "subtrans"},
		{"MongoCollection", cfg.MongoCollection, "jobs"},
		{"LogLevel", cfg.LogLevel, "info"},
		{"LogFormat", cfg.LogFormat, "text"},
		{"CacheDir", cfg.CacheDir, "data/cache"},
		{"CacheTTLHours", cfg.CacheTTLHours, 24 * 7},
		{"SourceLanguage", cfg.SourceLanguage, ""},
		{"TranslateBatchSize", cfg.TranslateBatchSize, 15},
		{"TranslateMaxRetries", cfg.TranslateMaxRetries, 3},
		{"TranslateConcurrency", cfg.TranslateConcurrency, 1},
		{"TranslateBackoffCapMs", cfg.TranslateBackoffCapMs, 32000},
		{"TranslateInterBatchPaceMs", cfg.TranslateInterBatchPaceMs, 500},
		{"TranslateAbortAfterConsecutive", cfg.TranslateAbortAfterConsecutive, 3},
		{"JournalCapacity", cfg.JournalCapacity, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v (%T), want %v (%T)", tt.got, tt.got, tt.want, tt.want)
			}
		})
	}

	if len(cfg.CORSAllowedOrigins) != 0 {
		t.Errorf("CORSAllowedOrigins: got %v, want nil/empty", cfg.CORSAllowedOrigins)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	setEnvs(t, map[string]string{
		"HTTP_ADDR":                          ":9090",
		"MONGO_URI":                          "mongodb://remote:27017",
		"MONGO_DB":                           "mydb",
		"MONGO_COLLECTION":                   "myjobs",
		"LOG_LEVEL":                          "DEBUG",
		"LOG_FORMAT":                         "JSON",
		"CACHE_DIR":                          "/var/cache/subtrans",
		"CACHE_TTL_HOURS":                    "48",
		"SOURCE_LANGUAGE":                    "en",
		"TRANSLATE_BATCH_SIZE":               "25",
		"TRANSLATE_MAX_RETRIES":              "5",
		"TRANSLATE_CONCURRENCY":              "4",
		"TRANSLATE_BACKOFF_CAP_MS":           "60000",
		"TRANSLATE_INTER_BATCH_PACE_MS":      "1000",
		"TRANSLATE_ABORT_AFTER_CONSECUTIVE":  "5",
		"JOURNAL_CAPACITY":                   "250",
		"CORS_ALLOWED_ORIGINS":               "http://localhost:3000, https://example.com",
	})

	cfg := LoadConfig()

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"HTTPAddr", cfg.HTTPAddr, ":9090"},
		{"MongoURI", cfg.MongoURI, "mongodb://remote:27017"},
		{"MongoDatabase", cfg.MongoDatabase, "mydb"},
		{"MongoCollection", cfg.MongoCollection, "myjobs"},
		{"LogLevel", cfg.LogLevel, "debug"},
		{"LogFormat", cfg.LogFormat, "json"},
		{"CacheDir", cfg.CacheDir, "/var/cache/subtrans"},
		{"CacheTTLHours", cfg.CacheTTLHours, 48},
		{"SourceLanguage", cfg.SourceLanguage, "en"},
		{"TranslateBatchSize", cfg.TranslateBatchSize, 25},
		{"TranslateMaxRetries", cfg.TranslateMaxRetries, 5},
		{"TranslateConcurrency", cfg.TranslateConcurrency, 4},
		{"TranslateBackoffCapMs", cfg.TranslateBackoffCapMs, 60000},
		{"TranslateInterBatchPaceMs", cfg.TranslateInterBatchPaceMs, 1000},
		{"TranslateAbortAfterConsecutive", cfg.TranslateAbortAfterConsecutive, 5},
		{"JournalCapacity", cfg.JournalCapacity, 250},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v (%T), want %v (%T)", tt.got, tt.got, tt.want, tt.want)
			}
		})
	}

	wantOrigins := []string{"http://localhost:3000", "https://example.com"}
	if len(cfg.CORSAllowedOrigins) != len(wantOrigins) {
		t.Fatalf("CORSAllowedOrigins: got %d entries, want %d", len(cfg.CORSAllowedOrigins), len(wantOrigins))
	}
	for i, got := range cfg.CORSAllowedOrigins {
		if got != wantOrigins[i] {
			t.Errorf("CORSAllowedOrigins[%d]: got %q, want %q", i, got, wantOrigins[i])
		}
	}
}

func TestGetEnvInt64InvalidFallsBack(t *testing.T) {
	tests := []struct {
		name     string
		envVal   string
		fallback int64
		want     int64
	}{
		{"empty string", "", 42, 42},
		{"not a number", "abc", 42, 42},
		{"negative number", "-5", 42, 42},
		{"zero", "0", 42, 0},
		{"valid positive", "100", 42, 100},
		{"whitespace around number", "  50  ", 42, 50},
		{"float", "3.14", 42, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INT_VAR", tt.envVal)
			got := getEnvInt64("TEST_INT_VAR", tt.fallback)
			if got != tt.want {
				t.Errorf("getEnvInt64(%q, %d) = %d, want %d", tt.envVal, tt.fallback, got, tt.want)
			}
		})
	}
}

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty string", "", nil},
		{"whitespace only", "   ", nil},
		{"single value", "http://localhost:3000", []string{"http://localhost:3000"}},
		{"multiple values", "a,b,c", []string{"a", "b", "c"}},
		{"values with spaces", " a , b , c ", []string{"a", "b", "c"}},
		{"trailing comma", "a,b,", []string{"a", "b"}},
		{"empty entries filtered", "a,,b,,c", []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseCSV(tt.input)
			if tt.want == nil {
				if got != nil {
					t.Errorf("parseCSV(%q) = %v, want nil", tt.input, got)
				}
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("parseCSV(%q) returned %d elements, want %d", tt.input, len(got), len(tt.want))
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("parseCSV(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestGetEnvFallback(t *testing.T) {
	t.Setenv("TEST_EXISTING", "hello")

	if got := getEnv("TEST_EXISTING", "default"); got != "hello" {
		t.Errorf("getEnv(existing) = %q, want %q", got, "hello")
	}

	// Unset to test fallback
	t.Setenv("TEST_MISSING_XYZ", "")
	os.Unsetenv("TEST_MISSING_XYZ")
	if got := getEnv("TEST_MISSING_XYZ", "default"); got != "default" {
		t.Errorf("getEnv(missing) = %q, want %q", got, "default")
	}
}

func TestLogLevelCaseInsensitive(t *testing.T) {
	// LoadConfig lowercases LOG_LEVEL, so "DEBUG" -> "debug"
	t.Setenv("LOG_LEVEL", "DEBUG")
	cfg := LoadConfig()
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel: got %q, want %q", cfg.LogLevel, "debug")
	}

	t.Setenv("LOG_LEVEL", "Warn")
	cfg = LoadConfig()
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel: got %q, want %q", cfg.LogLevel, "warn")
	}
}
