package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

func init() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()
}

type Config struct {
	// LLM backend selection
	LLMProvider      string
	OpenAIAPIKey     string
	OpenRouterAPIKey string
	AnthropicAPIKey  string
	GeminiAPIKey     string
	LLMModel         string
	LLMTemperature   float64
	LLMTimeout       time.Duration

	// Optional with defaults
	DBPath      string
	AMQPURL     string
	AMQPQueue   string
	MetricsAddr string
	TenantsFile string
	Timezone    string
	LogLevel    string
	LogFormat   string
}

func LoadFromEnv() *Config {
	cfg := &Config{
		LLMProvider:      os.Getenv("ENGAGE_LLM_PROVIDER"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenRouterAPIKey: os.Getenv("OPENROUTER_API_KEY"),
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		LLMModel:         os.Getenv("ENGAGE_LLM_MODEL"),
		LLMTemperature:   getEnvAsFloatOrDefault("ENGAGE_LLM_TEMPERATURE", 0.2),
		LLMTimeout:       getEnvAsDurationOrDefault("ENGAGE_LLM_TIMEOUT", 30*time.Second),

		DBPath:      getEnvOrDefault("ENGAGE_DB_PATH", "./engage.db"),
		AMQPURL:     os.Getenv("ENGAGE_AMQP_URL"),
		AMQPQueue:   getEnvOrDefault("ENGAGE_AMQP_QUEUE", "engage.events"),
		MetricsAddr: os.Getenv("ENGAGE_METRICS_ADDR"),
		TenantsFile: os.Getenv("ENGAGE_TENANTS_FILE"),
		Timezone:    os.Getenv("ENGAGE_TIMEZONE"),
		LogLevel:    getEnvOrDefault("ENGAGE_LOG_LEVEL", "info"),
		LogFormat:   getEnvOrDefault("ENGAGE_LOG_FORMAT", "text"),
	}

	return cfg
}

// APIKeyFor returns the configured API key for a provider name
func (c *Config) APIKeyFor(provider string) string {
	switch provider {
	case "openai":
		return c.OpenAIAPIKey
	case "openrouter":
		return c.OpenRouterAPIKey
	case "anthropic":
		return c.AnthropicAPIKey
	case "gemini":
		return c.GeminiAPIKey
	}
	return ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
		// Bare numbers are seconds
		if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
