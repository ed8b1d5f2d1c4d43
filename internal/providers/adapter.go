// Package providers implements the Provider Adapter component: it builds
// per-family HTTP requests, opens the streaming or one-shot response, and
// classifies transport errors for retry. Dispatch across the closed
// six-family set is a plain enum switch rather than six dynamically
// registered implementations, per the design notes in spec.md section 9.
package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/CriticalRange/arula-cli-sub001/pkg/models"
)

const userAgent = "arula-cli/1.0"

// Adapter builds requests for, and opens streams against, any of the six
// provider families described in spec.md section 4.C.
type Adapter struct {
	client *http.Client
	http1  *http.Client
	base   *BaseProvider
}

// NewAdapter constructs an Adapter with sane request timeouts. A second,
// HTTP/1.1-only client is kept for Z.AI requests (Z.AI's error 1210 comes
// from stream_options, which zaiStream never sends; see zai.go).
func NewAdapter() *Adapter {
	transport := &http.Transport{ForceAttemptHTTP2: true}
	http1Transport := &http.Transport{TLSNextProto: map[string]func(string, interface{}) http.RoundTripper{}}
	return &Adapter{
		client: &http.Client{Transport: transport, Timeout: 60 * time.Second},
		http1:  &http.Client{Transport: http1Transport, Timeout: 60 * time.Second},
		base:   NewBaseProvider("provider-adapter", 3, time.Second),
	}
}

// StreamRequest bundles everything a family-specific builder needs.
type StreamRequest struct {
	Profile    models.ProviderProfile
	Transcript []models.ChatMessage
	Tools      []models.ToolSchema
}

// OpenStream opens a streaming completion for the given profile and
// returns the unified StreamEvent channel. The channel is closed after a
// FinishEvent or ErrorEvent; at most one ErrorEvent is ever sent, and no
// event follows it.
func (a *Adapter) OpenStream(ctx context.Context, req StreamRequest) (<-chan models.StreamEvent, error) {
	family := req.Profile.Family
	if family == models.FamilyCustom {
		family = models.ProviderFamily(DetectFamily(NormalizeEndpoint(req.Profile.Endpoint)))
	}

	switch family {
	case models.FamilyOpenAI, models.FamilyOpenRouter, models.FamilyCustom:
		return a.openAIStream(ctx, req, family)
	case models.FamilyZai:
		return a.zaiStream(ctx, req)
	case models.FamilyAnthropic:
		return a.anthropicStream(ctx, req)
	case models.FamilyOllama:
		return a.ollamaStream(ctx, req)
	default:
		return nil, fmt.Errorf("unknown provider family %q", family)
	}
}

// OpenStreamWithRetry behaves like OpenStream but retries a failed open
// through BaseProvider.Retry (3 attempts in all) when ShouldRetry deems
// the error transient. The wait between attempts is exponential with 10%
// jitter, starting at 1s and doubling up to a 30s cap; it is not a flat
// 1s * attempt schedule. onRetry, if non-nil, is invoked once per
// retry with the attempt number — the orchestrator uses it to bump a
// Prometheus counter.
func (a *Adapter) OpenStreamWithRetry(ctx context.Context, req StreamRequest, onRetry func(attempt int)) (<-chan models.StreamEvent, error) {
	var events <-chan models.StreamEvent
	err := a.base.Retry(ctx, ShouldRetry, func(attempt int, _ error) {
		if onRetry != nil {
			onRetry(attempt)
		}
	}, func() error {
		var openErr error
		events, openErr = a.OpenStream(ctx, req)
		return openErr
	})
	return events, err
}

// ShouldRetry reports whether an error from OpenStream (or a read from
// its body) is a transport error worth retrying with backoff. 4xx
// protocol errors and provider-semantic errors are never retried.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	var httpErr *HTTPStatusError
	if errors.As(err, &httpErr) {
		return httpErr.Status == http.StatusBadGateway ||
			httpErr.Status == http.StatusServiceUnavailable ||
			httpErr.Status == http.StatusGatewayTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"connection reset", "connection refused", "connection aborted",
		"no such host", "broken pipe", "unexpected eof", "dns",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return errors.Is(err, io.ErrUnexpectedEOF)
}

// HTTPStatusError wraps a non-2xx HTTP response, truncating the body so
// callers can surface a short user-visible message per spec.md section 7.
type HTTPStatusError struct {
	Status int
	Body   string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.Status, e.Body)
}

// readTruncatedBody reads up to 200 bytes of an error response body, for
// the Protocol-error user message spec.md section 7 requires.
func readTruncatedBody(r io.Reader) string {
	buf := make([]byte, 200)
	n, _ := io.ReadFull(r, buf)
	body := string(buf[:n])
	if strings.Contains(body, "<html") || strings.Contains(body, "<!DOCTYPE") {
		return "received an HTML error page; check the configured endpoint URL"
	}
	return body
}

func newHTTPRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}
