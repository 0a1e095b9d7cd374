// Package connectivity tracks network reachability and quality.
package connectivity

import (
	"context"
	"net/http"
	"time"

	"github.com/evelynmak/stillpoint/core/internal/errors"
)

// Prober measures round-trip time to a known endpoint.
type Prober interface {
	// Probe returns the round-trip time of one lightweight request.
	// Cancellation and timeout arrive through ctx.
	Probe(ctx context.Context) (time.Duration, error)
}

// HTTPProber probes with a HEAD request against a generate-204 style
// endpoint. The response body is irrelevant; only latency matters.
type HTTPProber struct {
	client *http.Client
	url    string
}

// NewHTTPProber creates a prober for the given endpoint.
func NewHTTPProber(url string) *HTTPProber {
	return &HTTPProber{
		client: &http.Client{},
		url:    url,
	}
}

// Probe implements Prober.
func (p *HTTPProber) Probe(ctx context.Context) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return 0, errors.Wrap(errors.ErrProbeFailed, "failed to build probe request", err)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return 0, errors.Wrap(errors.ErrProbeTimeout, "probe timed out", err)
		}
		return 0, errors.Wrap(errors.ErrProbeFailed, "probe request failed", err)
	}
	resp.Body.Close()

	return time.Since(start), nil
}
