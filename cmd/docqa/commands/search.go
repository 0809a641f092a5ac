package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docqa/docqa-go/internal/logging"
	"github.com/docqa/docqa-go/internal/rag"
)

// NewSearchCmd constructs the `docqa search` command, which runs a
// similarity search against the indexed documents and prints the results.
func NewSearchCmd() *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a similarity search over indexed documents",
		Long: `Embed the query and return the closest indexed chunks as snippets
with their similarity scores (1.0 = identical, 0.0 = unrelated).

Examples:
  docqa search "vacation policy"
  docqa search "incident response runbook" --top-k 5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			emb, err := buildEmbedder(log)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			index, err := buildIndex(ctx, log)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			defer func() { _ = index.Close() }()

			retriever, err := rag.NewRetriever(emb, index, topK)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			results, err := retriever.Search(ctx, args[0], topK)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			if len(results) == 0 {
				fmt.Println("no matches found")
				return nil
			}
			for i, r := range results {
				fmt.Printf("%d. [%.2f] %s (%s)\n   %s\n", i+1, r.SimilarityScore, r.Title, r.DocumentID, r.ContentSnippet)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 3, "Maximum number of results to return")

	return cmd
}
