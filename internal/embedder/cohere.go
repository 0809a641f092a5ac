// Package embedder provides implementations of the rag.Embedder interface for
// converting text into dense vector embeddings. Each implementation talks to a
// different backend (Cohere, Ollama, OpenAI, Azure OpenAI) via plain HTTP — no
// additional SDK dependencies are required.
//
// Retrieval-tuned models embed documents and queries asymmetrically, so every
// implementation exposes the two-sided rag.Embedder contract; symmetric
// backends route both sides through the same projection.
package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Cohere input types selecting the asymmetric projection.
const (
	inputTypeDocument = "search_document"
	inputTypeQuery    = "search_query"
)

// CohereEmbedder implements rag.Embedder using the Cohere v2 embed REST API.
// It is safe for concurrent use. Cohere's retrieval models are natively
// asymmetric: the input_type field selects the document or query projection.
type CohereEmbedder struct {
	// baseURL is the API base (default: "https://api.cohere.com").
	baseURL string
	// apiKey is the Bearer token.
	apiKey string
	// model is the embedding model name (e.g. "embed-multilingual-v3.0").
	model string
	// client is the shared HTTP client with a sensible timeout.
	client *http.Client
}

// CohereConfig holds the settings for constructing a CohereEmbedder.
type CohereConfig struct {
	// BaseURL is the API base URL. Defaults to "https://api.cohere.com".
	BaseURL string
	// APIKey is the authentication key.
	APIKey string
	// Model is the embedding model name (e.g. "embed-multilingual-v3.0").
	Model string
}

// NewCohereEmbedder constructs a CohereEmbedder from the given config.
func NewCohereEmbedder(cfg *CohereConfig) *CohereEmbedder {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.cohere.com"
	}
	return &CohereEmbedder{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// cohereEmbedRequest is the JSON body sent to the v2 embed endpoint.
type cohereEmbedRequest struct {
	Texts          []string `json:"texts"`
	Model          string   `json:"model"`
	InputType      string   `json:"input_type"`
	EmbeddingTypes []string `json:"embedding_types"`
}

// cohereEmbedResponse is the JSON body returned from the v2 embed endpoint.
type cohereEmbedResponse struct {
	Embeddings struct {
		Float [][]float32 `json:"float"`
	} `json:"embeddings"`
	Message string `json:"message,omitempty"`
}

// EmbedDocuments embeds a batch of document chunks using the
// search_document projection. The returned slice is parallel to the input.
func (e *CohereEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return e.embed(ctx, texts, inputTypeDocument)
}

// EmbedQuery embeds a single query using the search_query projection.
func (e *CohereEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embed(ctx, []string{text}, inputTypeQuery)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// embed performs one v2 embed call with the given input type.
func (e *CohereEmbedder) embed(ctx context.Context, texts []string, inputType string) ([][]float32, error) {
	body := cohereEmbedRequest{
		Texts:          texts,
		Model:          e.model,
		InputType:      inputType,
		EmbeddingTypes: []string{"float"},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("cohere embedder: marshal request: %w", err)
	}

	url := e.baseURL + "/v2/embed"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("cohere embedder: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cohere embedder: request failed: %w", err)
	}
	defer resp.Body.Close()

	var result cohereEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("cohere embedder: decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if result.Message != "" {
			msg = result.Message
		}
		return nil, fmt.Errorf("cohere embedder: %s", msg)
	}

	if len(result.Embeddings.Float) != len(texts) {
		return nil, fmt.Errorf("cohere embedder: expected %d embeddings, got %d", len(texts), len(result.Embeddings.Float))
	}

	return result.Embeddings.Float, nil
}
