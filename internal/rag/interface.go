// Package rag defines the contracts for the retrieval pipeline: embedding,
// vector index storage, similarity search, and grounded answer generation.
// Concrete implementations (Qdrant, Cohere, eino chat models, etc.) satisfy
// these interfaces so the HTTP and CLI layers never depend on a specific
// backend.
package rag

import (
	"context"
	"errors"
)

// Sentinel errors returned by VectorIndex implementations. Callers match
// with errors.Is to distinguish index failures from embedding failures.
var (
	// ErrIndexWrite indicates a chunk batch could not be persisted.
	ErrIndexWrite = errors.New("rag: index write failed")
	// ErrIndexQuery indicates a similarity query could not be executed.
	ErrIndexQuery = errors.New("rag: index query failed")
)

// Match is a single raw hit returned by a VectorIndex query, before any
// score shaping or snippet extraction.
type Match struct {
	// ChunkID is the stable chunk identifier, "<document_id>_<index>".
	ChunkID string

	// Text is the full chunk text as it was indexed.
	Text string

	// DocumentID identifies the source document the chunk belongs to.
	DocumentID string

	// Title is the source document's title.
	Title string

	// Distance is the cosine distance between the query vector and the
	// chunk vector. Zero means identical direction.
	Distance float32
}

// SimilarityResult is a search hit shaped for callers: a bounded snippet
// plus a similarity score normalised to [0, 1].
type SimilarityResult struct {
	// DocumentID identifies the source document.
	DocumentID string `json:"document_id"`

	// Title is the source document's title.
	Title string `json:"title"`

	// ContentSnippet is the beginning of the matched chunk, truncated for
	// display and prompt construction.
	ContentSnippet string `json:"content_snippet"`

	// SimilarityScore is 1 - cosine distance, clamped to [0, 1].
	// 1 means an exact directional match.
	SimilarityScore float64 `json:"similarity_score"`
}

// Answer is the outcome of a grounded question-answering run. Grounded is
// false whenever the answer is the refusal text — either no suitable context
// was found or the model declined to produce output.
type Answer struct {
	// Answer is the generated (or refusal) text.
	Answer string `json:"answer"`

	// Grounded reports whether Answer was produced from retrieved context.
	Grounded bool `json:"grounded"`

	// ContextUsed is the snippet passed to the model, or nil when no
	// context cleared the similarity gate.
	ContextUsed *string `json:"context_used"`

	// SimilarityScore is the top hit's score, or nil when nothing was
	// retrieved.
	SimilarityScore *float64 `json:"similarity_score"`
}

// Embedder converts text into dense vector embeddings. The two methods
// exist because retrieval-tuned models project documents and queries
// differently; implementations for symmetric models may share one code path.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// EmbedDocuments embeds a batch of document chunks for indexing.
	// The returned slice is parallel to the input slice.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery embeds a search query for retrieval.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex persists chunk embeddings and answers similarity queries.
// Implementations must be safe to call from multiple goroutines.
type VectorIndex interface {
	// Upsert replaces the indexed chunks for one document. chunks and
	// vectors must be parallel slices — vectors[i] embeds chunks[i].
	// Any previously indexed chunks for documentID are removed first, so
	// re-ingesting a document never leaves stale entries behind.
	Upsert(ctx context.Context, documentID, title string, chunks []string, vectors [][]float32) error

	// Query returns the topK nearest chunks for the given query vector,
	// closest first. An empty index yields an empty result, not an error.
	Query(ctx context.Context, vector []float32, topK int) ([]Match, error)

	// Close releases any resources held by the index.
	Close() error
}

// Generator produces a completion for a fully-rendered prompt. The answer
// pipeline builds the grounding prompt itself; implementations only run the
// model. Implementations must be safe to call from multiple goroutines.
type Generator interface {
	// Generate returns the model output for prompt at the given sampling
	// temperature.
	Generate(ctx context.Context, prompt string, temperature float32) (string, error)
}

// Searcher is the high-level retrieval interface consumed by the answerer
// and the HTTP search handler. *Retriever is the production implementation.
type Searcher interface {
	// Search returns the topK most similar chunks for the query.
	Search(ctx context.Context, query string, topK int) ([]SimilarityResult, error)
}
