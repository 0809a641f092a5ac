package provider

import (
	"context"
	"fmt"
	"os"
	"strconv"
)

// Default model names per backend. Overridden by MODEL_NAME.
const (
	defaultOllamaModel = "llama3"
	defaultOpenAIModel = "gpt-4o-mini"
	defaultGeminiModel = "gemini-1.5-flash"

	defaultMaxTokens   = 4096
	defaultTemperature = float32(0.2)
)

// ConfigFromEnv resolves a Config from environment variables:
//
//	MODEL_PROVIDER     — ollama | openai | azure | bedrock | gemini (default: ollama)
//	MODEL_NAME         — model name or deployment ID (backend-specific default)
//	MODEL_BASE_URL     — endpoint override (Azure endpoint, Ollama host, ...)
//	MODEL_API_KEY      — credential (falls back to the backend's native env var)
//	MODEL_MAX_TOKENS   — generation cap (default: 4096)
//	MODEL_TEMPERATURE  — default sampling temperature (default: 0.2)
//	AZURE_DEPLOYMENT, AZURE_OPENAI_API_VERSION, AWS_REGION — backend-specific
func ConfigFromEnv() *Config {
	backend := Backend(getEnvOrDefault("MODEL_PROVIDER", string(BackendOllama)))

	cfg := &Config{
		Backend:         backend,
		Model:           os.Getenv("MODEL_NAME"),
		BaseURL:         os.Getenv("MODEL_BASE_URL"),
		APIKey:          os.Getenv("MODEL_API_KEY"),
		AzureDeployment: os.Getenv("AZURE_DEPLOYMENT"),
		AzureAPIVersion: getEnvOrDefault("AZURE_OPENAI_API_VERSION", "2024-02-01"),
		AWSRegion:       os.Getenv("AWS_REGION"),
		MaxTokens:       getEnvInt("MODEL_MAX_TOKENS", defaultMaxTokens),
		Temperature:     getEnvFloat32("MODEL_TEMPERATURE", defaultTemperature),
	}

	// Per-backend fallbacks for credential and model name.
	switch backend {
	case BackendOllama:
		if cfg.Model == "" {
			cfg.Model = defaultOllamaModel
		}
		if cfg.BaseURL == "" {
			cfg.BaseURL = os.Getenv("OLLAMA_HOST")
		}
	case BackendOpenAI:
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		if cfg.Model == "" {
			cfg.Model = defaultOpenAIModel
		}
	case BackendAzure:
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("AZURE_OPENAI_API_KEY")
		}
		if cfg.BaseURL == "" {
			cfg.BaseURL = os.Getenv("AZURE_OPENAI_ENDPOINT")
		}
		if cfg.Model == "" {
			cfg.Model = cfg.AzureDeployment
		}
	case BackendGemini:
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("GEMINI_API_KEY")
		}
		if cfg.Model == "" {
			cfg.Model = defaultGeminiModel
		}
	}

	return cfg
}

// New constructs a ChatModel for the given config.
func New(ctx context.Context, cfg *Config) (ChatModel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case BackendOllama:
		return newOllama(ctx, cfg)
	case BackendOpenAI:
		return newOpenAI(ctx, cfg)
	case BackendAzure:
		return newAzure(ctx, cfg)
	case BackendBedrock:
		return newBedrock(ctx, cfg)
	case BackendGemini:
		return newGemini(ctx, cfg)
	default:
		return nil, fmt.Errorf("provider: unknown backend %q", cfg.Backend)
	}
}

// NewFromEnv resolves configuration from the environment and constructs the
// backing ChatModel.
func NewFromEnv(ctx context.Context) (ChatModel, error) {
	return New(ctx, ConfigFromEnv())
}

// HealthEndpoint returns a cheap probe URL and auth headers for the model
// backend in cfg, for use in readiness checks. The endpoints list models or
// report a version — they never trigger a generation, so probing costs no
// tokens. Returns an empty URL for backends with nothing to probe.
func HealthEndpoint(cfg *Config) (string, map[string]string) {
	switch cfg.Backend {
	case BackendOllama:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return baseURL + "/api/version", nil

	case BackendOpenAI:
		return "https://api.openai.com/v1/models", map[string]string{"Authorization": "Bearer " + cfg.APIKey}

	case BackendAzure:
		if cfg.BaseURL == "" {
			return "", nil
		}
		return cfg.BaseURL + "/openai/models?api-version=" + cfg.AzureAPIVersion, map[string]string{"api-key": cfg.APIKey}

	case BackendGemini:
		return "https://generativelanguage.googleapis.com/v1beta/models", map[string]string{"x-goog-api-key": cfg.APIKey}

	default:
		// Bedrock reachability depends on signed requests; nothing cheap to probe.
		return "", nil
	}
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat32(key string, fallback float32) float32 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
		}
	}
	return fallback
}
