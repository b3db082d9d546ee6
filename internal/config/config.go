// Package config handles application configuration loading and management.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Session store types.
const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

// Config holds all configuration for the application.
type Config struct {
	Server     ServerConfig
	Session    SessionConfig
	Cache      CacheConfig
	Vault      VaultConfig
	Assistant  AssistantConfig
	Generation GenerationConfig
	IAM        IAMConfig
	Log        LogConfig
	CORS       CORSConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host    string
	Port    int
	GinMode string
	// RequestTimeout bounds the upstream calls of a single message exchange.
	RequestTimeout time.Duration
}

// Address returns the server address in host:port format.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SessionConfig holds conversation session configuration.
type SessionConfig struct {
	Type          string
	Timeout       time.Duration
	Capacity      int
	SweepInterval time.Duration
}

// CacheConfig holds redis connection configuration for the redis session store.
type CacheConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// VaultConfig holds vault configuration.
type VaultConfig struct {
	Type          string
	EncryptionKey string
}

// AssistantConfig holds the intent classification service configuration.
type AssistantConfig struct {
	URL          string
	AssistantID  string
	Version      string
	APIKeyRef    string
	MarkerIntent string
	Timeout      time.Duration
}

// GenerationConfig holds the text generation service configuration.
type GenerationConfig struct {
	URL                 string
	ModelID             string
	ProjectID           string
	APIKeyRef           string
	MaxNewTokens        int
	RepetitionPenalty   float64
	ModerationThreshold float64
	Timeout             time.Duration
}

// IAMConfig holds the identity token endpoint configuration.
type IAMConfig struct {
	URL       string
	GrantType string
	Timeout   time.Duration
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string
}

// CORSConfig holds the allowed browser origins of the chat front-end.
type CORSConfig struct {
	AllowOrigins []string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			GinMode:        getEnv("GIN_MODE", "release"),
			RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT_SECONDS", 60*time.Second),
		},
		Session: SessionConfig{
			Type:          getEnv("SESSION_STORE_TYPE", SessionStoreMemory),
			Timeout:       time.Duration(getEnvAsInt("SESSION_TIMEOUT_MINUTES", 30)) * time.Minute,
			Capacity:      getEnvAsInt("SESSION_CAPACITY", 10000),
			SweepInterval: getEnvAsDuration("SESSION_SWEEP_INTERVAL_SECONDS", time.Minute),
		},
		Cache: CacheConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Vault: VaultConfig{
			Type:          getEnv("VAULT_TYPE", "dotenv"),
			EncryptionKey: getEnv("SECRETS_ENCRYPTION_KEY", ""),
		},
		Assistant: AssistantConfig{
			URL:          strings.TrimSuffix(getEnv("ASSISTANT_URL", ""), "/"),
			AssistantID:  getEnv("ASSISTANT_ID", ""),
			Version:      getEnv("ASSISTANT_VERSION", "2023-05-29"),
			APIKeyRef:    getEnv("ASSISTANT_API_KEY_REF", "dotenv://ASSISTANT_API_KEY"),
			MarkerIntent: getEnv("ASSISTANT_GENERATION_MARKER", "action_3200_intent_45093-2"),
			Timeout:      getEnvAsDuration("ASSISTANT_TIMEOUT_SECONDS", 15*time.Second),
		},
		Generation: GenerationConfig{
			URL:                 getEnv("WATSONX_GENERATION_URL", "https://us-south.ml.cloud.ibm.com/ml/v1/text/generation?version=2023-05-29"),
			ModelID:             getEnv("WATSONX_MODEL_ID", "meta-llama/llama-3-1-8b-instruct"),
			ProjectID:           getEnv("WATSONX_PROJECT_ID", ""),
			APIKeyRef:           getEnv("WATSONX_API_KEY_REF", "dotenv://WATSONX_API_KEY"),
			MaxNewTokens:        getEnvAsInt("WATSONX_MAX_NEW_TOKENS", 200),
			RepetitionPenalty:   getEnvAsFloat("WATSONX_REPETITION_PENALTY", 1.2),
			ModerationThreshold: getEnvAsFloat("WATSONX_MODERATION_THRESHOLD", 0.5),
			Timeout:             getEnvAsDuration("WATSONX_TIMEOUT_SECONDS", 45*time.Second),
		},
		IAM: IAMConfig{
			URL:       getEnv("IAM_TOKEN_URL", "https://iam.cloud.ibm.com/identity/token"),
			GrantType: getEnv("IAM_GRANT_TYPE", "urn:ibm:params:oauth:grant-type:apikey"),
			Timeout:   getEnvAsDuration("IAM_TIMEOUT_SECONDS", 15*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		CORS: CORSConfig{
			AllowOrigins: getEnvAsList("CORS_ALLOW_ORIGINS", []string{"http://localhost:3000", "http://localhost:8501"}),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Assistant.URL == "" {
		return fmt.Errorf("ASSISTANT_URL is required")
	}
	if c.Assistant.AssistantID == "" {
		return fmt.Errorf("ASSISTANT_ID is required")
	}
	if c.Generation.ProjectID == "" {
		return fmt.Errorf("WATSONX_PROJECT_ID is required")
	}
	switch c.Session.Type {
	case SessionStoreMemory, SessionStoreRedis:
	default:
		return fmt.Errorf("unsupported session store type: %s", c.Session.Type)
	}
	if c.Session.Timeout <= 0 {
		return fmt.Errorf("session timeout must be positive")
	}
	if c.Session.Capacity <= 0 {
		return fmt.Errorf("session capacity must be positive")
	}
	return nil
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat gets an environment variable as a float with a default value.
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsDuration reads a number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

// getEnvAsList reads a comma separated list.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
