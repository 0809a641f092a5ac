package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Test_Metrics_EndpointReturns200(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	newServerMetrics(reg)

	srv := httptest.NewServer(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	t.Cleanup(srv.Close)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL+"/metrics", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("want 200, got %d", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("want text/plain content-type, got %q", ct)
	}
}

func Test_Metrics_AskCounterIncremented(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	m := newServerMetrics(reg)

	m.askRequestsTotal.WithLabelValues("grounded").Inc()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	found := false
	for _, mf := range mfs {
		if mf.GetName() != "docqa_ask_requests_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if lp.GetName() == "outcome" && lp.GetValue() == "grounded" {
					if metric.GetCounter().GetValue() != 1 {
						t.Errorf("want counter=1, got %v", metric.GetCounter().GetValue())
					}
					found = true
				}
			}
		}
	}
	if !found {
		t.Error("docqa_ask_requests_total{outcome=\"grounded\"} not found in gathered metrics")
	}
}

func Test_Metrics_AskOutcomeRecordedByHandler(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &Deps{})

	// A valid ask request with the default fake answerer is an ungrounded
	// refusal, so the "refused" outcome must increment.
	w := doJSON(t, s, "/api/ask", askRequest{Question: "anything"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	reg := s.cfg.MetricsRegistry
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	var got float64
	for _, mf := range mfs {
		if mf.GetName() != "docqa_ask_requests_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if lp.GetName() == "outcome" && lp.GetValue() == "refused" {
					got = metric.GetCounter().GetValue()
				}
			}
		}
	}
	if got != 1 {
		t.Errorf("want refused counter=1, got %v", got)
	}
}

func Test_Metrics_HTTPRequestsInstrumented(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &Deps{})

	w := doJSON(t, s, "/api/search", searchRequest{Query: "q"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	mfs, err := s.cfg.MetricsRegistry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	found := false
	for _, mf := range mfs {
		if mf.GetName() == "docqa_http_requests_total" {
			found = len(mf.GetMetric()) > 0
		}
	}
	if !found {
		t.Error("expected docqa_http_requests_total to record the request")
	}
}
