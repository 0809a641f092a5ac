package provider

import "testing"

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"ollama needs no key", Config{Backend: BackendOllama, Model: "llama3"}, false},
		{"ollama needs model", Config{Backend: BackendOllama}, true},
		{"openai needs key", Config{Backend: BackendOpenAI, Model: "gpt-4o"}, true},
		{"openai ok", Config{Backend: BackendOpenAI, Model: "gpt-4o", APIKey: "k"}, false},
		{"azure needs endpoint", Config{Backend: BackendAzure, Model: "d", APIKey: "k", AzureDeployment: "d"}, true},
		{"azure ok", Config{Backend: BackendAzure, Model: "d", APIKey: "k", AzureDeployment: "d", BaseURL: "https://x"}, false},
		{"bedrock needs region", Config{Backend: BackendBedrock, Model: "m"}, true},
		{"gemini needs key", Config{Backend: BackendGemini, Model: "gemini-1.5-flash"}, true},
		{"unknown backend", Config{Backend: "watsonx", Model: "m"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.cfg.Validate()
			if tc.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv("MODEL_PROVIDER", "")
	t.Setenv("MODEL_NAME", "")
	t.Setenv("MODEL_MAX_TOKENS", "")
	t.Setenv("MODEL_TEMPERATURE", "")

	cfg := ConfigFromEnv()
	if cfg.Backend != BackendOllama {
		t.Errorf("expected default backend ollama, got %q", cfg.Backend)
	}
	if cfg.Model != defaultOllamaModel {
		t.Errorf("expected default model %q, got %q", defaultOllamaModel, cfg.Model)
	}
	if cfg.MaxTokens != defaultMaxTokens {
		t.Errorf("expected default max tokens %d, got %d", defaultMaxTokens, cfg.MaxTokens)
	}
	if cfg.Temperature != defaultTemperature {
		t.Errorf("expected default temperature %v, got %v", defaultTemperature, cfg.Temperature)
	}
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	url, headers := HealthEndpoint(&Config{Backend: BackendOllama, BaseURL: "http://ollama:11434"})
	if url != "http://ollama:11434/api/version" || headers != nil {
		t.Errorf("ollama: unexpected probe %q %v", url, headers)
	}

	url, headers = HealthEndpoint(&Config{Backend: BackendOpenAI, APIKey: "k"})
	if url != "https://api.openai.com/v1/models" {
		t.Errorf("openai: unexpected probe url %q", url)
	}
	if headers["Authorization"] != "Bearer k" {
		t.Errorf("openai: expected bearer header, got %v", headers)
	}

	url, headers = HealthEndpoint(&Config{Backend: BackendGemini, APIKey: "g"})
	if url == "" || headers["x-goog-api-key"] != "g" {
		t.Errorf("gemini: unexpected probe %q %v", url, headers)
	}

	if url, _ = HealthEndpoint(&Config{Backend: BackendBedrock}); url != "" {
		t.Errorf("bedrock: expected no probe url, got %q", url)
	}
}

func TestConfigFromEnv_BackendCredentialFallback(t *testing.T) {
	t.Setenv("MODEL_PROVIDER", "openai")
	t.Setenv("MODEL_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "native-key")

	cfg := ConfigFromEnv()
	if cfg.APIKey != "native-key" {
		t.Errorf("expected OPENAI_API_KEY fallback, got %q", cfg.APIKey)
	}

	t.Setenv("MODEL_API_KEY", "explicit")
	cfg = ConfigFromEnv()
	if cfg.APIKey != "explicit" {
		t.Errorf("expected MODEL_API_KEY to win, got %q", cfg.APIKey)
	}
}
