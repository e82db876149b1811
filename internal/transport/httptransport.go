// Package transport executes dispatch requests over net/http.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tinywideclouds/go-fcm-dispatch/pkg/dispatch"
)

// HTTPClient is the subset of *http.Client we use.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPTransport implements dispatch.Transport.
type HTTPTransport struct {
	client HTTPClient
}

// New wraps client. A nil client uses a fresh *http.Client; timeouts are expected on the context.
func New(client HTTPClient) *HTTPTransport {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPTransport{client: client}
}

// NewTraced wraps base (http.DefaultTransport when nil) with OpenTelemetry client spans.
// Spans go to the global tracer provider unless opts say otherwise.
func NewTraced(base http.RoundTripper, opts ...otelhttp.Option) *HTTPTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	opts = append([]otelhttp.Option{
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "fcm " + r.Method + " " + r.URL.Path
		}),
	}, opts...)
	return New(&http.Client{Transport: otelhttp.NewTransport(base, opts...)})
}

// Execute sends the request and reads the whole response body.
// Context deadline errors are reported as dispatch.ErrTimeout, everything else as dispatch.ErrTransport.
func (t *HTTPTransport) Execute(ctx context.Context, r *dispatch.Request) (*dispatch.Response, error) {
	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, bytes.NewReader(r.Body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", dispatch.ErrTransport, err)
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(ctx, fmt.Errorf("read body: %w", err))
	}

	return &dispatch.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", dispatch.ErrTimeout, err)
	}
	var te interface{ Timeout() bool }
	if errors.As(err, &te) && te.Timeout() {
		return fmt.Errorf("%w: %w", dispatch.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", dispatch.ErrTransport, err)
}
