package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	Env             string

	LLMProvider   string
	LLMModel      string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAITimeout time.Duration
	PromptVersion string
	MaxDreamChars int
	RatePerSecond float64
	RateBurst     int

	DatabaseURL string
	SQLitePath  string

	ArchiveStore  string
	LocalStoreDir string
	AWSRegion     string
	S3Bucket      string
	S3Prefix      string
	SSEKMSKeyID   string

	DreamOwner  string
	ServerURL   string
	IdleTimeout time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	apiKey := os.Getenv("OPENAI_API_KEY")
	if env == "production" && apiKey == "" {
		log.Printf("OPENAI_API_KEY is not set; interpretation requests will fail with MISSING_API_KEY")
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		Env:             env,

		LLMProvider:   strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
		LLMModel:      getEnv("LLM_MODEL", "gpt-4o-mini"),
		OpenAIAPIKey:  apiKey,
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		OpenAITimeout: time.Duration(getEnvInt("OPENAI_TIMEOUT_SECONDS", 120)) * time.Second,
		PromptVersion: getEnv("PROMPT_VERSION", "v1"),
		MaxDreamChars: getEnvInt("MAX_DREAM_CHARS", 10000),
		RatePerSecond: getEnvFloat("INTERPRET_RATE_PER_SEC", 1),
		RateBurst:     getEnvInt("INTERPRET_BURST", 5),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  getEnv("SQLITE_PATH", "./data/dreams.db"),

		ArchiveStore:  normalizeStoreType(getEnv("ARCHIVE_STORE", "none")),
		LocalStoreDir: getEnv("LOCAL_STORE_DIR", "./data/archive"),
		AWSRegion:     getEnv("AWS_REGION", ""),
		S3Bucket:      getEnv("S3_BUCKET", ""),
		S3Prefix:      getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:   getEnv("SSE_KMS_KEY_ID", ""),

		DreamOwner:  getEnv("DREAM_OWNER", "local"),
		ServerURL:   getEnv("INTERPRET_SERVER_URL", "http://localhost:8080"),
		IdleTimeout: getEnvDuration("INTERPRET_IDLE_TIMEOUT", 0),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config %s invalid int %q, using %d", key, raw, def)
		return def
	}
	return val
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("config %s invalid number %q, using %v", key, raw, def)
		return def
	}
	return val
}

// getEnvDuration accepts Go durations ("90s") or plain seconds ("90").
func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("config %s invalid duration %q, using %s", key, raw, def)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "local":
		return "local"
	default:
		return "none"
	}
}
