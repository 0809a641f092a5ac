package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/docqa/docqa-go/internal/chunker"
	"github.com/docqa/docqa-go/internal/ingestion"
	"github.com/docqa/docqa-go/internal/logging"
	"github.com/docqa/docqa-go/internal/rag"
	"github.com/docqa/docqa-go/internal/server"
	"github.com/docqa/docqa-go/internal/tracing"
)

// NewServeCmd constructs the `docqa serve` command, which starts the HTTP
// server exposing the document QA API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the docqa HTTP server",
		Long: `Start the docqa HTTP server on localhost.

The server exposes a REST API for uploading documents, indexing them into
the vector database, running similarity searches, and asking grounded
questions.

Examples:
  docqa serve
  docqa serve --port 9090
  EMBEDDING_PROVIDER=ollama docqa serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting",
				slog.String("model_provider", os.Getenv("MODEL_PROVIDER")),
				slog.String("embedding_provider", os.Getenv("EMBEDDING_PROVIDER")),
			)

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			docs, err := buildDocStore(log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer func() { _ = docs.Close() }()

			emb, err := buildEmbedder(log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			index, err := buildIndex(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer func() { _ = index.Close() }()

			generator, err := buildGenerator(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			chk, err := chunker.New(chunker.DefaultChunkSize, chunker.DefaultChunkOverlap)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			pipeline, err := ingestion.NewPipeline(chk, emb, index)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			retriever, err := rag.NewRetriever(emb, index, 0)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			answerer, err := rag.NewGroundedAnswerer(retriever, generator)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			srv, err := server.New(&server.Deps{
				Docs:      docs,
				Pipeline:  pipeline,
				Retriever: retriever,
				Answerer:  answerer,
				Filter:    buildFilter(),
			}, &server.Config{
				Host:    host,
				Port:    port,
				Logger:  log,
				Pingers: buildPingers(index, docs),
				APIKey:  os.Getenv("DOCQA_API_KEY"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
