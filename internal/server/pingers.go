package server

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// HTTPPinger probes a dependency by issuing a GET against a cheap endpoint
// (a version or model-listing route). It satisfies the Pinger interface and
// is used by GET /api/ready for the embedder and model backends, whose SDKs
// expose no dedicated health RPC. A generate/embed round-trip would work too
// but costs tokens on hosted backends, so reachability is probed instead:
// any completed response below 500 counts as healthy — a 401/403 still
// proves the service is up.
type HTTPPinger struct {
	// name identifies the backend in readiness responses (e.g. "embedder").
	name string
	// url is the endpoint to probe.
	url string
	// headers carries auth headers required to avoid 5xx on some backends.
	headers map[string]string
	// client is the HTTP client; its timeout is a backstop under probeTimeout.
	client *http.Client
}

// NewHTTPPinger constructs an HTTPPinger for the given dependency name and
// probe URL. headers may be nil.
func NewHTTPPinger(name, url string, headers map[string]string) *HTTPPinger {
	return &HTTPPinger{
		name:    name,
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: probeTimeout},
	}
}

// Name returns the dependency label used in readiness responses.
func (p *HTTPPinger) Name() string { return p.name }

// Ping issues the probe request. Returns nil when the endpoint responds with
// any status below 500, a descriptive error otherwise.
func (p *HTTPPinger) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("create probe request: %w", err)
	}
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("probe failed after %s: %w", time.Since(start).Round(time.Millisecond), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("probe returned HTTP %d", resp.StatusCode)
	}
	return nil
}
