package rag

import (
	"context"
	"fmt"
)

// Snippet shaping applied to every search hit.
const (
	// snippetRunes is the maximum snippet length before truncation.
	snippetRunes = 150
	// snippetMarker is appended to truncated snippets.
	snippetMarker = "..."
)

// Retriever implements Searcher by combining an Embedder and a VectorIndex.
// It embeds the query in query mode at search time, delegates the nearest
// neighbour lookup to the index, and shapes the raw matches into scored,
// snippet-sized results.
type Retriever struct {
	// embedder converts query text to a dense vector.
	embedder Embedder

	// index performs the vector similarity search.
	index VectorIndex

	// defaultTopK is the number of results to return when the caller passes 0.
	defaultTopK int
}

// NewRetriever constructs a Retriever from the given Embedder and VectorIndex.
// defaultTopK sets the fallback result count when Search is called with topK=0.
func NewRetriever(embedder Embedder, index VectorIndex, defaultTopK int) (*Retriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if index == nil {
		return nil, fmt.Errorf("rag: index must not be nil")
	}
	if defaultTopK <= 0 {
		defaultTopK = 3
	}
	return &Retriever{
		embedder:    embedder,
		index:       index,
		defaultTopK: defaultTopK,
	}, nil
}

// Search embeds the query and returns the top-k most similar chunks, best
// first. Scores are 1 - cosine distance clamped to [0, 1], so a score of 1
// means an exact directional match and 0 means no meaningful similarity.
// An empty index yields an empty result slice, not an error.
func (r *Retriever) Search(ctx context.Context, query string, topK int) ([]SimilarityResult, error) {
	if topK <= 0 {
		topK = r.defaultTopK
	}

	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("rag: embedding query failed: %w", err)
	}

	matches, err := r.index.Query(ctx, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("rag: vector search failed: %w", err)
	}

	results := make([]SimilarityResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, SimilarityResult{
			DocumentID:      m.DocumentID,
			Title:           m.Title,
			ContentSnippet:  snippet(m.Text),
			SimilarityScore: clampScore(1 - float64(m.Distance)),
		})
	}

	return results, nil
}

// snippet returns the first snippetRunes runes of text with the truncation
// marker appended. The marker is unconditional — short chunks get it too, so
// a snippet always reads as an excerpt rather than the full chunk.
func snippet(text string) string {
	runes := []rune(text)
	if len(runes) > snippetRunes {
		runes = runes[:snippetRunes]
	}
	return string(runes) + snippetMarker
}

// clampScore bounds a similarity score to [0, 1]. Cosine distance can
// mathematically reach 2, and float noise can push the conversion slightly
// past either end.
func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
