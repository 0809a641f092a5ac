// Package ingestion turns stored documents into indexed vectors.
//
// The pipeline is the single write path into the vector index: split the
// document into overlapping chunks, embed every chunk in document mode, and
// upsert the batch under the document's id. Re-running the pipeline for a
// document replaces its previous vectors.
package ingestion

import (
	"context"
	"fmt"

	"github.com/docqa/docqa-go/internal/chunker"
	"github.com/docqa/docqa-go/internal/docstore"
	"github.com/docqa/docqa-go/internal/rag"
)

// Pipeline chunks, embeds, and indexes documents.
type Pipeline struct {
	chunker  *chunker.Chunker
	embedder rag.Embedder
	index    rag.VectorIndex
}

// NewPipeline constructs a Pipeline. When c is nil the default chunker
// (500 runes, 50 overlap) is used.
func NewPipeline(c *chunker.Chunker, embedder rag.Embedder, index rag.VectorIndex) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder is required")
	}
	if index == nil {
		return nil, fmt.Errorf("ingestion: vector index is required")
	}
	if c == nil {
		var err error
		c, err = chunker.New(chunker.DefaultChunkSize, chunker.DefaultChunkOverlap)
		if err != nil {
			return nil, fmt.Errorf("ingestion: default chunker: %w", err)
		}
	}
	return &Pipeline{chunker: c, embedder: embedder, index: index}, nil
}

// Index chunks and embeds doc, then writes the vectors to the index under
// doc.ID, replacing any previous vectors for that document. It returns the
// number of chunks indexed. A document whose content yields no chunks is a
// no-op and returns zero without touching the index.
//
// progress, when non-nil, receives human-readable stage updates — the CLI
// uses it to print ingest progress.
func (p *Pipeline) Index(ctx context.Context, doc *docstore.Document, progress func(string)) (int, error) {
	report := func(msg string) {
		if progress != nil {
			progress(msg)
		}
	}

	chunks := p.chunker.Split(doc.Content)
	if len(chunks) == 0 {
		report("document is empty, nothing to index")
		return 0, nil
	}
	report(fmt.Sprintf("split %q into %d chunks", doc.Title, len(chunks)))

	vectors, err := p.embedder.EmbedDocuments(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("ingestion: embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("ingestion: embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}
	report(fmt.Sprintf("embedded %d chunks", len(chunks)))

	if err := p.index.Upsert(ctx, doc.ID, doc.Title, chunks, vectors); err != nil {
		return 0, fmt.Errorf("ingestion: index chunks: %w", err)
	}
	report(fmt.Sprintf("indexed %d chunks for document %s", len(chunks), doc.ID))

	return len(chunks), nil
}
