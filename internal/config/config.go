// Package config loads and validates the triage pipeline's configuration
// from environment variables, using a small getEnvOrDefault-style idiom
// extended with struct-tag validation for numeric bounds.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"triage/internal/models"
)

// Config holds all environment-sourced settings for one triage session.
type Config struct {
	RecipeServiceURL    string        `validate:"required,url"`
	APIToken            string        `validate:"required"`
	BatchWidth          int           `validate:"gt=0"`
	ConnectionPoolSize  int           `validate:"gt=0"`
	SimilarityThreshold float64       `validate:"gt=0,lte=1"`
	SessionFilePath     string        `validate:"required"`
	RequestTimeout      time.Duration `validate:"gt=0"`
	MaxRetries          int           `validate:"gte=0"`

	// OpenAI-backed advisory note parser (optional; see
	// internal/remoteclient.NoteParser). Empty APIKey disables it and
	// the HTTP-backed parser is used instead.
	OpenAIAPIKey string
	OpenAIModel  string
}

var validate = validator.New()

// Load reads configuration from the environment (optionally populated
// from a .env file first) and validates it.
func Load() (*Config, error) {
	// Best-effort .env loading; missing .env is not an error.
	if err := godotenv.Load(); err != nil {
		_ = godotenv.Load("../.env")
	}

	cfg := &Config{
		RecipeServiceURL:    mustEnv("RECIPE_SERVICE_URL"),
		APIToken:            mustEnv("RECIPE_SERVICE_TOKEN"),
		BatchWidth:          envInt("BATCH_WIDTH", 10),
		ConnectionPoolSize:  envInt("CONNECTION_POOL_SIZE", 10),
		SimilarityThreshold: envFloat("SIMILARITY_THRESHOLD", 0.85),
		SessionFilePath:     envStr("SESSION_FILE_PATH", defaultSessionPath()),
		RequestTimeout:      envDuration("REQUEST_TIMEOUT", 10*time.Second),
		MaxRetries:          envInt("MAX_RETRIES", 3),
		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:         envStr("OPENAI_MODEL", "gpt-4o-mini"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct-tag bounds and the cross-field deadlock-avoidance
// rule: batch width must not exceed the connection pool size.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.BatchWidth > c.ConnectionPoolSize {
		return fmt.Errorf("%w: width=%d pool=%d", models.ErrWidthExceedsPool, c.BatchWidth, c.ConnectionPoolSize)
	}
	return nil
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return dir + "/triage/session.json"
}

func mustEnv(key string) string {
	return os.Getenv(key)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
