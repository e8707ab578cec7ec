package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Embedding API (Cohere v2)
	CohereAPIKey string
	CohereAPIURL string
	CohereModel  string
	EmbedRPM     int // embed requests per minute budget

	// Generation API (Gemini)
	GeminiAPIKey string
	GeminiModel  string

	// HTTP server
	Port        string
	GinMode     string
	CORSOrigins []string
	MaxFileSize int64

	// Storage
	DataDir string

	// Retrieval
	DefaultTopK int
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		CohereAPIKey: getEnv("COHERE_API_KEY", ""),
		CohereAPIURL: getEnv("COHERE_API_URL", "https://api.cohere.com/v2"),
		CohereModel:  getEnv("COHERE_MODEL", "embed-v4.0"),
		EmbedRPM:     getEnvInt("EMBED_RPM", 100),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),

		Port:        getEnv("PORT", "8000"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "*"), ","),
		MaxFileSize: getEnvInt64("MAX_FILE_SIZE", 104857600), // 100MB

		DataDir: getEnv("DATA_DIR", "data"),

		DefaultTopK: getEnvInt("DEFAULT_TOP_K", 3),
	}

	// Validate required fields
	if cfg.CohereAPIKey == "" {
		return nil, fmt.Errorf("COHERE_API_KEY is required - set it in .env file")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", cfg.DataDir, err)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
