package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/docqa/docqa-go/internal/docstore"
	"github.com/docqa/docqa-go/internal/rag"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// MetricsRegistry receives all Prometheus metric registrations. If nil, a
	// fresh registry is created. Tests inject their own to stay hermetic.
	MetricsRegistry *prometheus.Registry
}

// ingester is the interface handleEmbeddings uses to index a document.
// *ingestion.Pipeline satisfies it; tests inject a fake.
type ingester interface {
	Index(ctx context.Context, doc *docstore.Document, progress func(string)) (int, error)
}

// asker is the interface handleAsk uses to produce a grounded answer.
// *rag.GroundedAnswerer satisfies it; tests inject a fake.
type asker interface {
	AnswerQuestion(ctx context.Context, question string) (*rag.Answer, error)
}

// moderator is the interface handleAsk uses to screen incoming questions.
// *moderation.Filter satisfies it; tests inject a fake.
type moderator interface {
	IsInappropriate(text string) bool
}

// Deps bundles the collaborators the HTTP handlers operate on.
type Deps struct {
	// Docs is the document store backing uploads and lookups.
	Docs docstore.Store
	// Pipeline indexes documents into the vector index.
	Pipeline ingester
	// Retriever answers similarity searches.
	Retriever rag.Searcher
	// Answerer produces grounded answers.
	Answerer asker
	// Filter screens questions before they reach the model. May be nil.
	Filter moderator
}

// Server is the HTTP server that exposes the document QA API.
type Server struct {
	// deps holds the handler collaborators.
	deps *Deps
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds all Prometheus instruments owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// uploadRequest is the JSON body for POST /api/documents.
type uploadRequest struct {
	// Title is the human-readable document title.
	Title string `json:"title"`
	// Content is the raw document text.
	Content string `json:"content"`
}

// uploadResponse is the JSON response for POST /api/documents.
type uploadResponse struct {
	Message    string `json:"message"`
	DocumentID string `json:"document_id"`
}

// embedRequest is the JSON body for POST /api/embeddings.
type embedRequest struct {
	// DocumentID identifies a previously uploaded document.
	DocumentID string `json:"document_id"`
}

// embedResponse is the JSON response for POST /api/embeddings.
type embedResponse struct {
	Message    string `json:"message"`
	DocumentID string `json:"document_id"`
	Chunks     int    `json:"chunks"`
}

// searchRequest is the JSON body for POST /api/search.
type searchRequest struct {
	// Query is the free-text similarity query.
	Query string `json:"query"`
	// TopK caps the number of results. Zero means the server default.
	TopK int `json:"top_k,omitempty"`
}

// searchResponse is the JSON response for POST /api/search.
type searchResponse struct {
	Results []rag.SimilarityResult `json:"results"`
}

// askRequest is the JSON body for POST /api/ask.
type askRequest struct {
	// Question is the natural-language question to answer.
	Question string `json:"question"`
}

// askResponse is the JSON response for POST /api/ask. The question is echoed
// back so clients can correlate responses without tracking requests.
type askResponse struct {
	Question        string   `json:"question"`
	Answer          string   `json:"answer"`
	Grounded        bool     `json:"grounded"`
	ContextUsed     *string  `json:"context_used"`
	SimilarityScore *float64 `json:"similarity_score"`
}

// errorResponse is the JSON body for all error statuses.
type errorResponse struct {
	Error string `json:"error"`
}
