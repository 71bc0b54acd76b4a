package httpclient

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/pacer/internal/runner"
	"github.com/torosent/pacer/internal/tracing"
)

const (
	maxErrorBodyBytes = 1024
	maxBodyReadSize   = 1024 * 1024
	userAgent         = "pacer"
)

// Sender issues requests with a shared client and reports each one as a
// status code and error.
type Sender struct {
	client    *http.Client
	tracer    trace.Tracer
	propagate bool
}

var _ runner.Sender = (*Sender)(nil)

// NewSender returns a Sender using client. A nil provider disables spans.
func NewSender(client *http.Client, provider *tracing.Provider) *Sender {
	if client == nil {
		client = NewClient(0)
	}
	return &Sender{
		client:    client,
		tracer:    provider.Tracer(),
		propagate: provider.ShouldPropagate(),
	}
}

// Send performs one request. A response with status >= 400 returns the
// status together with a *runner.HTTPError; a transport failure returns a
// zero status.
func (s *Sender) Send(ctx context.Context, method, target string) (status int, err error) {
	ctx, span := tracing.StartRequestSpan(ctx, s.tracer, method, target)
	defer func() { tracing.EndSpan(span, status, err) }()

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", userAgent)
	if s.propagate {
		tracing.InjectHTTPHeaders(ctx, req.Header)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	// Body read errors are non-fatal; the status code is the outcome.
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyReadSize))
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		snippet := body
		if len(snippet) > maxErrorBodyBytes {
			snippet = snippet[:maxErrorBodyBytes]
		}
		return resp.StatusCode, &runner.HTTPError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}
	return resp.StatusCode, nil
}

// NewClient returns a client tuned for many concurrent requests to one
// host. A zero timeout disables the per-request deadline.
func NewClient(timeout time.Duration) *http.Client {
	if timeout < 0 {
		timeout = 0
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          256,
		MaxIdleConnsPerHost:   256,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
