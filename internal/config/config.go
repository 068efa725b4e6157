package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	APIPort   string
	DBPath    string
	LogLevel  slog.Level
	LogFormat string

	OpenAIAPIKey   string
	OpenAIBaseURL  string
	OpenAIModel    string
	EmbeddingModel string

	// Qdrant is optional. Note search is disabled when QdrantURL is empty.
	QdrantURL        string
	QdrantCollection string
	QdrantVectorSize int

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// ClientURL is where OAuth callbacks redirect the browser after a connect attempt.
	ClientURL            string
	DefaultUserID        string
	CalendarSyncSchedule string

	VoiceWakeWord        string
	VoiceAlwaysListening bool
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	// Walk up looking for a project-level .env
	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		APIPort:              getEnv("API_PORT", "5000"),
		DBPath:               getEnv("DB_PATH", "./data/assistant.db"),
		LogFormat:            strings.ToLower(getEnv("LOG_FORMAT", "text")),
		OpenAIAPIKey:         getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:        getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:          getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		EmbeddingModel:       getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		QdrantURL:            getEnv("QDRANT_URL", ""),
		QdrantCollection:     getEnv("QDRANT_COLLECTION", "notes"),
		GoogleClientID:       getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:   getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:    getEnv("GOOGLE_REDIRECT_URL", "http://localhost:5000/api/calendar/callback/google"),
		ClientURL:            strings.TrimRight(getEnv("CLIENT_URL", "http://localhost:5173"), "/"),
		DefaultUserID:        getEnv("DEFAULT_USER_ID", "1"),
		CalendarSyncSchedule: getEnv("CALENDAR_SYNC_SCHEDULE", "@every 30m"),
		VoiceWakeWord:        getEnv("VOICE_WAKE_WORD", "hey assistant"),
	}

	level, err := parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	alwaysListening, err := strconv.ParseBool(getEnv("VOICE_ALWAYS_LISTENING", "false"))
	if err != nil {
		return nil, fmt.Errorf("VOICE_ALWAYS_LISTENING must be a boolean: %w", err)
	}
	cfg.VoiceAlwaysListening = alwaysListening

	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}

	// QDRANT_VECTOR_SIZE must match the embedding model output size and is
	// only required when Qdrant is configured.
	if cfg.QdrantURL != "" {
		vectorSizeStr := getEnv("QDRANT_VECTOR_SIZE", "")
		if vectorSizeStr == "" {
			return nil, fmt.Errorf("QDRANT_VECTOR_SIZE is required when QDRANT_URL is set")
		}
		vectorSize, err := strconv.Atoi(vectorSizeStr)
		if err != nil {
			return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be a valid integer: %w", err)
		}
		if vectorSize <= 0 {
			return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be greater than 0")
		}
		cfg.QdrantVectorSize = vectorSize
	}

	if (cfg.GoogleClientID == "") != (cfg.GoogleClientSecret == "") {
		return nil, fmt.Errorf("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set together")
	}

	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// GoogleEnabled reports whether Google OAuth credentials are configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// SearchEnabled reports whether note search via Qdrant is configured.
func (c *Config) SearchEnabled() bool {
	return c.QdrantURL != "" && c.QdrantVectorSize > 0
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL is invalid: %w", err)
	}
	return level, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
