package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docqa/docqa-go/internal/logging"
	"github.com/docqa/docqa-go/internal/moderation"
	"github.com/docqa/docqa-go/internal/rag"
)

// NewAskCmd constructs the `docqa ask` command, which answers a question
// grounded strictly in the indexed documents.
func NewAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question answered strictly from your documents",
		Long: `Retrieve the most relevant indexed chunk and use it as the sole
context for the language model. When no chunk is similar enough, the
question is refused rather than answered from the model's general
knowledge.

Examples:
  docqa ask "How many vacation days do employees get?"
  MODEL_PROVIDER=openai docqa ask "What is the on-call rotation?"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			question := args[0]

			if buildFilter().IsInappropriate(question) {
				fmt.Println(moderation.RefusalAnswer)
				return nil
			}

			emb, err := buildEmbedder(log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			index, err := buildIndex(ctx, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer func() { _ = index.Close() }()

			generator, err := buildGenerator(ctx, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			retriever, err := rag.NewRetriever(emb, index, 0)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			answerer, err := rag.NewGroundedAnswerer(retriever, generator)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			answer, err := answerer.AnswerQuestion(ctx, question)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			fmt.Println(answer.Answer)
			if answer.Grounded && answer.SimilarityScore != nil {
				fmt.Printf("\n(grounded, similarity %.2f)\n", *answer.SimilarityScore)
			}
			return nil
		},
	}

	return cmd
}
