package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	// Load environment variables from .env files when present.
	_ "github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	LLM           LLMConfig
	Pipeline      PipelineConfig
	Observability ObservabilityConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// LLMConfig configures the language-model extraction capability.
type LLMConfig struct {
	Endpoint       string
	APIKey         string
	Model          string
	Timeout        time.Duration
	RequestsPerMin int
}

// Enabled reports whether the extraction capability is configured at all.
func (c *LLMConfig) Enabled() bool {
	return c.Endpoint != "" && c.APIKey != ""
}

// PipelineConfig configures the expense interpretation pipeline.
type PipelineConfig struct {
	// AllowedSource is the single write source the invariant monitor accepts.
	AllowedSource string
	// DefaultCurrency is used when a message carries no currency marker.
	DefaultCurrency string
	// ClarificationTTL bounds how long a pending clarification stays resolvable.
	ClarificationTTL time.Duration
}

type ObservabilityConfig struct {
	MetricsEnabled bool
	MetricsPort    int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "localhost"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			Database: getEnv("POSTGRES_DB", "khoroch-dev"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		LLM: LLMConfig{
			Endpoint:       getEnv("LLM_ENDPOINT", ""),
			APIKey:         getEnv("LLM_API_KEY", ""),
			Model:          getEnv("LLM_MODEL", ""),
			Timeout:        getEnvAsDuration("LLM_TIMEOUT", 8*time.Second),
			RequestsPerMin: getEnvAsInt("LLM_REQUESTS_PER_MIN", 60),
		},
		Pipeline: PipelineConfig{
			AllowedSource:    getEnv("PIPELINE_ALLOWED_SOURCE", "chat_pipeline"),
			DefaultCurrency:  getEnv("PIPELINE_DEFAULT_CURRENCY", "BDT"),
			ClarificationTTL: getEnvAsDuration("PIPELINE_CLARIFICATION_TTL", 10*time.Minute),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
			MetricsPort:    getEnvAsInt("METRICS_PORT", 9090),
		},
	}

	if cfg.Pipeline.AllowedSource == "" {
		return nil, errors.New("PIPELINE_ALLOWED_SOURCE must not be empty")
	}

	return cfg, nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
