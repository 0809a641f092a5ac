package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestHTTPPinger_Healthy verifies a 200 response counts as reachable and the
// configured headers are sent.
func TestHTTPPinger_Healthy(t *testing.T) {
	t.Parallel()

	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	p := NewHTTPPinger("model", srv.URL, map[string]string{"Authorization": "Bearer k"})

	if err := p.Ping(t.Context()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if p.Name() != "model" {
		t.Errorf("unexpected pinger name %q", p.Name())
	}
	if gotAuth != "Bearer k" {
		t.Errorf("expected auth header forwarded, got %q", gotAuth)
	}
}

// TestHTTPPinger_AuthErrorStillReachable verifies a 401 proves reachability —
// the probe asserts the backend is up, not that credentials are valid.
func TestHTTPPinger_AuthErrorStillReachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	p := NewHTTPPinger("embedder", srv.URL, nil)

	if err := p.Ping(t.Context()); err != nil {
		t.Errorf("expected 401 to count as reachable, got %v", err)
	}
}

// TestHTTPPinger_ServerError verifies a 5xx response fails the probe.
func TestHTTPPinger_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	p := NewHTTPPinger("embedder", srv.URL, nil)

	if err := p.Ping(t.Context()); err == nil {
		t.Error("expected error for 502 response")
	}
}

// TestHTTPPinger_Unreachable verifies a connection failure fails the probe.
func TestHTTPPinger_Unreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	p := NewHTTPPinger("model", srv.URL, nil)

	if err := p.Ping(t.Context()); err == nil {
		t.Error("expected error for closed server")
	}
}
