package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/docqa/docqa-go/internal/docstore"
	"github.com/docqa/docqa-go/internal/logging"
	"github.com/docqa/docqa-go/internal/moderation"
	"github.com/docqa/docqa-go/internal/rag"
)

// handleUpload handles POST /api/documents. The document is persisted but
// not embedded — indexing is a separate, explicit step.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		s.writeError(w, r, http.StatusBadRequest, "title is required")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		s.writeError(w, r, http.StatusBadRequest, "content is required")
		return
	}

	id, err := s.deps.Docs.Save(r.Context(), req.Title, req.Content)
	if err != nil {
		logging.FromContext(r.Context()).Error("document save failed", slog.Any("error", err))
		s.writeError(w, r, http.StatusInternalServerError, "failed to store document")
		return
	}

	s.writeJSON(w, r, http.StatusCreated, uploadResponse{
		Message:    "document uploaded",
		DocumentID: id,
	})
}

// handleEmbeddings handles POST /api/embeddings. It chunks and embeds a
// previously uploaded document and writes the vectors to the index,
// replacing any vectors from an earlier run.
func (s *Server) handleEmbeddings(w http.ResponseWriter, r *http.Request) {
	var req embedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.DocumentID) == "" {
		s.writeError(w, r, http.StatusBadRequest, "document_id is required")
		return
	}

	log := logging.FromContext(r.Context())

	doc, err := s.deps.Docs.Get(r.Context(), req.DocumentID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			s.writeError(w, r, http.StatusNotFound, "document not found")
			return
		}
		log.Error("document lookup failed", slog.Any("error", err))
		s.writeError(w, r, http.StatusInternalServerError, "failed to load document")
		return
	}

	n, err := s.deps.Pipeline.Index(r.Context(), doc, nil)
	if err != nil {
		log.Error("indexing failed",
			slog.String("document_id", doc.ID),
			slog.Any("error", err),
		)
		s.writeError(w, r, http.StatusBadGateway, "failed to index document")
		return
	}
	s.metrics.ingestChunksTotal.Add(float64(n))

	s.writeJSON(w, r, http.StatusOK, embedResponse{
		Message:    "document indexed",
		DocumentID: doc.ID,
		Chunks:     n,
	})
}

// handleSearch handles POST /api/search: embed the query, return the nearest
// chunks as snippets with similarity scores.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.writeError(w, r, http.StatusBadRequest, "query is required")
		return
	}
	if req.TopK < 0 {
		s.writeError(w, r, http.StatusBadRequest, "top_k must not be negative")
		return
	}

	results, err := s.deps.Retriever.Search(r.Context(), req.Query, req.TopK)
	if err != nil {
		logging.FromContext(r.Context()).Error("search failed", slog.Any("error", err))
		s.writeError(w, r, http.StatusBadGateway, "search failed")
		return
	}
	if results == nil {
		results = []rag.SimilarityResult{}
	}

	s.writeJSON(w, r, http.StatusOK, searchResponse{Results: results})
}

// handleAsk handles POST /api/ask: moderate the question, then produce a
// grounded answer or a refusal.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		s.writeError(w, r, http.StatusBadRequest, "question is required")
		return
	}

	start := time.Now()

	if s.deps.Filter != nil && s.deps.Filter.IsInappropriate(req.Question) {
		s.metrics.askRequestsTotal.WithLabelValues("blocked").Inc()
		s.writeJSON(w, r, http.StatusOK, askResponse{
			Question: req.Question,
			Answer:   moderation.RefusalAnswer,
			Grounded: false,
		})
		return
	}

	answer, err := s.deps.Answerer.AnswerQuestion(r.Context(), req.Question)
	if err != nil {
		s.metrics.askRequestsTotal.WithLabelValues("error").Inc()
		logging.FromContext(r.Context()).Error("answer failed", slog.Any("error", err))
		s.writeError(w, r, http.StatusBadGateway, "failed to answer question")
		return
	}

	outcome := "refused"
	if answer.Grounded {
		outcome = "grounded"
	}
	s.metrics.askRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.askDurationSeconds.Observe(time.Since(start).Seconds())

	s.writeJSON(w, r, http.StatusOK, askResponse{
		Question:        req.Question,
		Answer:          answer.Answer,
		Grounded:        answer.Grounded,
		ContextUsed:     answer.ContextUsed,
		SimilarityScore: answer.SimilarityScore,
	})
}
