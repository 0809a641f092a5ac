package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/docqa/docqa-go/internal/docstore"
	"github.com/docqa/docqa-go/internal/moderation"
	"github.com/docqa/docqa-go/internal/rag"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

// fakeStore is an in-memory docstore.Store.
type fakeStore struct {
	saveErr error
	docs    map[string]*docstore.Document
	nextID  string
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: map[string]*docstore.Document{}, nextID: "doc-1"}
}

func (f *fakeStore) Save(_ context.Context, title, content string) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	id := f.nextID
	f.docs[id] = &docstore.Document{ID: id, Title: title, Content: content}
	return id, nil
}

func (f *fakeStore) Get(_ context.Context, id string) (*docstore.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return doc, nil
}

func (f *fakeStore) List(context.Context) ([]docstore.Document, error) { return nil, nil }
func (f *fakeStore) Close() error                                      { return nil }

// fakePipeline records Index calls.
type fakePipeline struct {
	chunks int
	err    error
	gotDoc *docstore.Document
}

func (f *fakePipeline) Index(_ context.Context, doc *docstore.Document, _ func(string)) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.gotDoc = doc
	return f.chunks, nil
}

// fakeRetriever returns canned search results.
type fakeRetriever struct {
	results  []rag.SimilarityResult
	err      error
	gotQuery string
	gotTopK  int
}

func (f *fakeRetriever) Search(_ context.Context, query string, topK int) ([]rag.SimilarityResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.gotQuery = query
	f.gotTopK = topK
	return f.results, nil
}

// fakeAnswerer returns a canned answer.
type fakeAnswerer struct {
	answer *rag.Answer
	err    error
	called bool
}

func (f *fakeAnswerer) AnswerQuestion(context.Context, string) (*rag.Answer, error) {
	f.called = true
	if f.err != nil {
		return nil, f.err
	}
	return f.answer, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// newTestServer builds a Server over the given deps with a fresh metrics
// registry. Missing deps are filled with benign fakes.
func newTestServer(t *testing.T, deps *Deps) *Server {
	t.Helper()
	if deps.Docs == nil {
		deps.Docs = newFakeStore()
	}
	if deps.Pipeline == nil {
		deps.Pipeline = &fakePipeline{}
	}
	if deps.Retriever == nil {
		deps.Retriever = &fakeRetriever{}
	}
	if deps.Answerer == nil {
		deps.Answerer = &fakeAnswerer{answer: &rag.Answer{}}
	}
	s, err := New(deps, &Config{MetricsRegistry: prometheus.NewRegistry()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.stopRL)
	return s
}

// doJSON posts body to path and returns the recorder.
func doJSON(t *testing.T, s *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

// ---------------------------------------------------------------------------
// POST /api/documents
// ---------------------------------------------------------------------------

func TestUpload_Created(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	s := newTestServer(t, &Deps{Docs: store})

	w := doJSON(t, s, "/api/documents", uploadRequest{Title: "Handbook", Content: "some text"})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := decodeBody[uploadResponse](t, w)
	if resp.DocumentID == "" {
		t.Error("expected a document_id in the response")
	}
	if _, ok := store.docs[resp.DocumentID]; !ok {
		t.Error("expected document persisted in the store")
	}
}

func TestUpload_Validation(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &Deps{})

	cases := []struct {
		name string
		req  uploadRequest
	}{
		{"missing title", uploadRequest{Content: "text"}},
		{"missing content", uploadRequest{Title: "t"}},
		{"blank title", uploadRequest{Title: "   ", Content: "text"}},
	}
	for _, tc := range cases {
		w := doJSON(t, s, "/api/documents", tc.req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", tc.name, w.Code)
		}
	}
}

func TestUpload_InvalidJSON(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &Deps{})

	req := httptest.NewRequest(http.MethodPost, "/api/documents", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed JSON, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// POST /api/embeddings
// ---------------------------------------------------------------------------

func TestEmbeddings_IndexesDocument(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.docs["doc-7"] = &docstore.Document{ID: "doc-7", Title: "t", Content: "c"}
	pipeline := &fakePipeline{chunks: 4}
	s := newTestServer(t, &Deps{Docs: store, Pipeline: pipeline})

	w := doJSON(t, s, "/api/embeddings", embedRequest{DocumentID: "doc-7"})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decodeBody[embedResponse](t, w)
	if resp.Chunks != 4 {
		t.Errorf("expected 4 chunks reported, got %d", resp.Chunks)
	}
	if pipeline.gotDoc == nil || pipeline.gotDoc.ID != "doc-7" {
		t.Error("expected pipeline invoked with the stored document")
	}
}

func TestEmbeddings_UnknownDocument(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &Deps{})

	w := doJSON(t, s, "/api/embeddings", embedRequest{DocumentID: "nope"})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestEmbeddings_MissingID(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &Deps{})

	w := doJSON(t, s, "/api/embeddings", embedRequest{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestEmbeddings_UpstreamFailure(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.docs["doc-1"] = &docstore.Document{ID: "doc-1", Title: "t", Content: "c"}
	s := newTestServer(t, &Deps{Docs: store, Pipeline: &fakePipeline{err: rag.ErrIndexWrite}})

	w := doJSON(t, s, "/api/embeddings", embedRequest{DocumentID: "doc-1"})
	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", w.Code)
	}
	// Failure details stay in the logs, not the response body.
	resp := decodeBody[errorResponse](t, w)
	if resp.Error == "" || bytes.Contains([]byte(resp.Error), []byte("index write")) {
		t.Errorf("expected an opaque error message, got %q", resp.Error)
	}
}

// ---------------------------------------------------------------------------
// POST /api/search
// ---------------------------------------------------------------------------

func TestSearch_ReturnsResults(t *testing.T) {
	t.Parallel()

	retriever := &fakeRetriever{results: []rag.SimilarityResult{
		{DocumentID: "doc-1", Title: "Handbook", ContentSnippet: "snippet...", SimilarityScore: 0.91},
	}}
	s := newTestServer(t, &Deps{Retriever: retriever})

	w := doJSON(t, s, "/api/search", searchRequest{Query: "vacation policy", TopK: 5})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decodeBody[searchResponse](t, w)
	if len(resp.Results) != 1 || resp.Results[0].DocumentID != "doc-1" {
		t.Errorf("unexpected results: %+v", resp.Results)
	}
	if retriever.gotQuery != "vacation policy" || retriever.gotTopK != 5 {
		t.Errorf("expected query/top_k forwarded, got %q/%d", retriever.gotQuery, retriever.gotTopK)
	}
}

func TestSearch_EmptyIndexReturnsEmptyArray(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &Deps{Retriever: &fakeRetriever{results: nil}})

	w := doJSON(t, s, "/api/search", searchRequest{Query: "anything"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	// The JSON body must contain [], not null.
	if !bytes.Contains(w.Body.Bytes(), []byte(`"results":[]`)) {
		t.Errorf("expected empty results array, got %s", w.Body.String())
	}
}

func TestSearch_Validation(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &Deps{})

	if w := doJSON(t, s, "/api/search", searchRequest{Query: "  "}); w.Code != http.StatusBadRequest {
		t.Errorf("blank query: expected 400, got %d", w.Code)
	}
	if w := doJSON(t, s, "/api/search", searchRequest{Query: "q", TopK: -1}); w.Code != http.StatusBadRequest {
		t.Errorf("negative top_k: expected 400, got %d", w.Code)
	}
}

func TestSearch_UpstreamFailure(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &Deps{Retriever: &fakeRetriever{err: rag.ErrIndexQuery}})

	w := doJSON(t, s, "/api/search", searchRequest{Query: "q"})
	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// POST /api/ask
// ---------------------------------------------------------------------------

func TestAsk_GroundedAnswer(t *testing.T) {
	t.Parallel()

	ctx := "the relevant snippet"
	score := 0.87
	answerer := &fakeAnswerer{answer: &rag.Answer{
		Answer:          "Employees get 25 days.",
		Grounded:        true,
		ContextUsed:     &ctx,
		SimilarityScore: &score,
	}}
	s := newTestServer(t, &Deps{Answerer: answerer})

	w := doJSON(t, s, "/api/ask", askRequest{Question: "How many vacation days?"})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decodeBody[askResponse](t, w)
	if resp.Question != "How many vacation days?" {
		t.Errorf("expected question echoed back, got %q", resp.Question)
	}
	if !resp.Grounded {
		t.Error("expected grounded answer")
	}
	if resp.ContextUsed == nil || *resp.ContextUsed != ctx {
		t.Error("expected context_used carried through")
	}
	if resp.SimilarityScore == nil || *resp.SimilarityScore != score {
		t.Error("expected similarity_score carried through")
	}
}

func TestAsk_UngroundedHasNullContext(t *testing.T) {
	t.Parallel()

	answerer := &fakeAnswerer{answer: &rag.Answer{
		Answer:   rag.RefusalAnswer,
		Grounded: false,
	}}
	s := newTestServer(t, &Deps{Answerer: answerer})

	w := doJSON(t, s, "/api/ask", askRequest{Question: "Who won the 1962 world cup?"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte(`"context_used":null`)) {
		t.Errorf("expected null context_used, got %s", w.Body.String())
	}
}

func TestAsk_ModerationBlocks(t *testing.T) {
	t.Parallel()

	answerer := &fakeAnswerer{answer: &rag.Answer{Answer: "should not appear", Grounded: true}}
	s := newTestServer(t, &Deps{Answerer: answerer, Filter: moderation.New()})

	w := doJSON(t, s, "/api/ask", askRequest{Question: "why is everyone an idiot"})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := decodeBody[askResponse](t, w)
	if resp.Question != "why is everyone an idiot" {
		t.Errorf("expected question echoed back on blocked path, got %q", resp.Question)
	}
	if resp.Answer != moderation.RefusalAnswer {
		t.Errorf("expected moderation refusal, got %q", resp.Answer)
	}
	if resp.Grounded {
		t.Error("blocked answers must not be grounded")
	}
	if answerer.called {
		t.Error("answerer must not run for blocked questions")
	}
}

func TestAsk_Validation(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &Deps{})

	if w := doJSON(t, s, "/api/ask", askRequest{Question: "   "}); w.Code != http.StatusBadRequest {
		t.Errorf("blank question: expected 400, got %d", w.Code)
	}
}

func TestAsk_UpstreamFailure(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &Deps{Answerer: &fakeAnswerer{err: errors.New("model down")}})

	w := doJSON(t, s, "/api/ask", askRequest{Question: "q"})
	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", w.Code)
	}
	resp := decodeBody[errorResponse](t, w)
	if bytes.Contains([]byte(resp.Error), []byte("model down")) {
		t.Errorf("upstream detail leaked into response: %q", resp.Error)
	}
}

// ---------------------------------------------------------------------------
// Auth integration
// ---------------------------------------------------------------------------

func TestProtectedRoutes_RequireAuthWhenConfigured(t *testing.T) {
	t.Parallel()

	s, err := New(&Deps{
		Docs:      newFakeStore(),
		Pipeline:  &fakePipeline{},
		Retriever: &fakeRetriever{},
		Answerer:  &fakeAnswerer{answer: &rag.Answer{}},
	}, &Config{APIKey: "secret", MetricsRegistry: prometheus.NewRegistry()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.stopRL)

	// Protected route without a token is rejected.
	req := httptest.NewRequest(http.MethodPost, "/api/search", bytes.NewBufferString(`{"query":"q"}`))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}

	// Health stays open.
	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for /api/health without token, got %d", w.Code)
	}
}
