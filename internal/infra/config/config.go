package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application.
type AppConfig struct {
	TelegramToken string
	DatabaseURL   string
	GeminiAPIKey  string
	GeminiModel   string

	// TimezoneName is the configured IANA zone; Location is the loaded
	// zone, falling back to UTC when the name cannot be loaded.
	TimezoneName     string
	Location         *time.Location
	TimezoneFallback bool

	DeliveryPollInterval time.Duration

	LogLevel    string
	Environment string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load does not override variables already set in the environment.
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}

	cfg.GeminiModel = os.Getenv("GEMINI_MODEL")
	if cfg.GeminiModel == "" {
		cfg.GeminiModel = "gemini-1.5-flash"
	}

	cfg.TimezoneName = os.Getenv("TIMEZONE")
	if cfg.TimezoneName == "" {
		cfg.TimezoneName = "UTC"
	}
	loc, err := time.LoadLocation(cfg.TimezoneName)
	if err != nil {
		// The bot keeps working in UTC; main logs the fallback.
		loc = time.UTC
		cfg.TimezoneFallback = true
	}
	cfg.Location = loc

	pollInterval := os.Getenv("DELIVERY_POLL_INTERVAL")
	if pollInterval == "" {
		pollInterval = "60s"
	}
	cfg.DeliveryPollInterval, err = time.ParseDuration(pollInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid DELIVERY_POLL_INTERVAL: %w", err)
	}
	if cfg.DeliveryPollInterval < time.Second {
		return nil, fmt.Errorf("DELIVERY_POLL_INTERVAL must be at least 1s, got %s", cfg.DeliveryPollInterval)
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	return cfg, nil
}
