package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/docqa/docqa-go/internal/docstore"
	"github.com/docqa/docqa-go/internal/embedder"
	"github.com/docqa/docqa-go/internal/moderation"
	"github.com/docqa/docqa-go/internal/provider"
	"github.com/docqa/docqa-go/internal/rag"
	"github.com/docqa/docqa-go/internal/server"
)

// buildEmbedder validates the embedding configuration and constructs the
// embedder selected by EMBEDDING_PROVIDER.
func buildEmbedder(log *slog.Logger) (rag.Embedder, error) {
	if err := embedder.Validate(log); err != nil {
		return nil, err
	}
	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, err
	}
	log.Info("embedder initialised", slog.String("backend", embedder.ResolveBackend()))
	return emb, nil
}

// buildIndex constructs the Qdrant-backed vector index from QDRANT_* env
// vars, sizing the collection for the active embedding backend.
func buildIndex(ctx context.Context, log *slog.Logger) (*rag.QdrantIndex, error) {
	cfg := &rag.QdrantConfig{
		Host:       getEnvOrDefault("QDRANT_HOST", "localhost"),
		Port:       getEnvInt("QDRANT_PORT", 6334),
		Collection: getEnvOrDefault("QDRANT_COLLECTION", "documents"),
		APIKey:     os.Getenv("QDRANT_API_KEY"),
		UseTLS:     os.Getenv("QDRANT_TLS") == "true",
		VectorSize: uint64(embedder.DefaultDimensions(embedder.ResolveBackend())),
	}

	index, err := rag.NewQdrantIndex(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("qdrant: %w", err)
	}
	log.Info("vector index ready",
		slog.String("collection", cfg.Collection),
		slog.Uint64("vector_size", cfg.VectorSize),
	)
	return index, nil
}

// buildGenerator constructs the LLM-backed answer generator from MODEL_* env vars.
func buildGenerator(ctx context.Context, log *slog.Logger) (rag.Generator, error) {
	chatModel, err := provider.NewFromEnv(ctx)
	if err != nil {
		return nil, err
	}
	log.Info("model provider initialised", slog.String("backend", getEnvOrDefault("MODEL_PROVIDER", "ollama")))
	return provider.NewModelGenerator(chatModel)
}

// buildDocStore opens the SQLite document store. DOCQA_DOCS_DB overrides
// the default path (~/.docqa/documents.db).
func buildDocStore(log *slog.Logger) (*docstore.SQLiteStore, error) {
	path := os.Getenv("DOCQA_DOCS_DB")
	if path == "" {
		path = docstore.DefaultDBPath()
	}
	store, err := docstore.Open(path)
	if err != nil {
		return nil, err
	}
	log.Info("document store opened", slog.String("path", path))
	return store, nil
}

// buildPingers assembles the readiness probes for `docqa serve`: the vector
// index and document store probe themselves, the embedder and model backends
// get cheap HTTP reachability probes.
func buildPingers(index *rag.QdrantIndex, docs *docstore.SQLiteStore) []server.Pinger {
	pingers := []server.Pinger{index, docs}

	if url, headers := embedder.HealthEndpoint(); url != "" {
		pingers = append(pingers, server.NewHTTPPinger("embedder", url, headers))
	}
	if url, headers := provider.HealthEndpoint(provider.ConfigFromEnv()); url != "" {
		pingers = append(pingers, server.NewHTTPPinger("model", url, headers))
	}

	return pingers
}

// buildFilter constructs the question moderation filter, extended with any
// comma-separated extra keywords from DOCQA_MODERATION_KEYWORDS.
func buildFilter() *moderation.Filter {
	var extra []string
	if v := os.Getenv("DOCQA_MODERATION_KEYWORDS"); v != "" {
		extra = strings.Split(v, ",")
	}
	return moderation.New(extra...)
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
