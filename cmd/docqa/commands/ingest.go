package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/docqa/docqa-go/internal/docstore"
	"github.com/docqa/docqa-go/internal/ingestion"
	"github.com/docqa/docqa-go/internal/logging"
)

// NewIngestCmd constructs the `docqa ingest` command, which uploads a
// plain-text file and indexes it into the vector database in one step.
func NewIngestCmd() *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Upload a document and index it into the vector database",
		Long: `Upload a plain-text file into the document store, split it into
overlapping chunks, embed each chunk, and write the vectors to Qdrant.

Re-ingesting a file creates a new document; to refresh an existing
document, re-run the embeddings step via the HTTP API.

Examples:
  docqa ingest handbook.txt
  docqa ingest notes.md --title "Meeting notes"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			path := args[0]
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("ingest: read %s: %w", path, err)
			}
			if len(content) == 0 {
				return fmt.Errorf("ingest: %s is empty", path)
			}
			if title == "" {
				title = filepath.Base(path)
			}

			docs, err := buildDocStore(log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer func() { _ = docs.Close() }()

			emb, err := buildEmbedder(log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			index, err := buildIndex(ctx, log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer func() { _ = index.Close() }()

			pipeline, err := ingestion.NewPipeline(nil, emb, index)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			id, err := docs.Save(ctx, title, string(content))
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			doc := &docstore.Document{ID: id, Title: title, Content: string(content)}
			n, err := pipeline.Index(ctx, doc, func(msg string) {
				fmt.Println(msg)
			})
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			fmt.Printf("ingested %q as document %s (%d chunks)\n", title, id, n)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Document title (default: file name)")

	return cmd
}
