// Package fcm implements single and batched delivery to the FCM HTTP v1 API.
package fcm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tinywideclouds/go-fcm-dispatch/internal/metrics"
	"github.com/tinywideclouds/go-fcm-dispatch/pkg/dispatch"
	"github.com/tinywideclouds/go-fcm-dispatch/pkg/message"
)

const (
	// DefaultEndpoint is the public FCM API host.
	DefaultEndpoint = "https://fcm.googleapis.com"
	// DefaultTimeout bounds one HTTP round trip.
	DefaultTimeout = 10 * time.Second
	// MaxBatchSize is the largest number of sub-requests FCM accepts in one batch.
	MaxBatchSize = 500

	modeSingle = "single"
	modeBatch  = "batch"
)

// Config holds the per-project settings of a Dispatcher.
type Config struct {
	ProjectID string
	// Endpoint is scheme and host without a trailing slash. Defaults to DefaultEndpoint.
	Endpoint string
	// Timeout applies to the HTTP round trip only. Defaults to DefaultTimeout.
	Timeout time.Duration
}

// Dispatcher implements dispatch.Dispatcher. It holds no mutable state and is safe for
// concurrent use; each call does at most one token acquisition and one round trip, and never retries.
type Dispatcher struct {
	cfg       Config
	tokens    dispatch.TokenProvider
	transport dispatch.Transport
	decoder   BlockDecoder
	logger    *slog.Logger
}

// Option customises a Dispatcher.
type Option func(*Dispatcher)

// WithDecoder replaces the default LineDecoder used for batch responses.
func WithDecoder(dec BlockDecoder) Option {
	return func(d *Dispatcher) { d.decoder = dec }
}

// NewDispatcher validates cfg and wires the collaborators.
func NewDispatcher(cfg Config, tokens dispatch.TokenProvider, transport dispatch.Transport, logger *slog.Logger, opts ...Option) (*Dispatcher, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("%w: project id is required", dispatch.ErrConfig)
	}
	if tokens == nil || transport == nil {
		return nil, fmt.Errorf("%w: token provider and transport are required", dispatch.ErrConfig)
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	cfg.Endpoint = strings.TrimSuffix(cfg.Endpoint, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	d := &Dispatcher{
		cfg:       cfg,
		tokens:    tokens,
		transport: transport,
		decoder:   LineDecoder{},
		logger:    logger.With("component", "FCMDispatcher", "project_id", cfg.ProjectID),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Send posts one message. validateOnly asks FCM to validate without delivering.
func (d *Dispatcher) Send(ctx context.Context, msg *message.Message, validateOnly bool) (*dispatch.ResponseError, error) {
	body, err := json.Marshal(dispatch.SendRequest{ValidateOnly: validateOnly, Message: msg})
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}

	token, err := d.token(ctx, modeSingle)
	if err != nil {
		return nil, err
	}

	resp, err := d.roundTrip(ctx, modeSingle, &dispatch.Request{
		Method: http.MethodPost,
		URL:    fmt.Sprintf("%s/v1/projects/%s/messages:send", d.cfg.Endpoint, d.cfg.ProjectID),
		Header: http.Header{
			"Authorization": {"Bearer " + token},
			"Content-Type":  {"application/json"},
		},
		Body: body,
	})
	if err != nil {
		return nil, err
	}

	outcome := Classify(resp.Body)
	observeOutcome(outcome)
	metrics.ObserveCall(modeSingle, "ok")
	if outcome != nil {
		d.logger.Debug("FCM rejected message", "status", resp.StatusCode, "kind", outcome.Kind.String())
	}
	return outcome, nil
}

// SendBatch delivers msgs in one multipart exchange and returns one outcome per message in
// input order. Zero messages return an empty successful result without any I/O; a single
// message goes through Send with validateOnly=false.
func (d *Dispatcher) SendBatch(ctx context.Context, msgs []*message.Message) (*dispatch.BatchResult, error) {
	switch len(msgs) {
	case 0:
		return dispatch.NewBatchResult(nil), nil
	case 1:
		outcome, err := d.Send(ctx, msgs[0], false)
		if err != nil {
			return nil, err
		}
		return dispatch.NewBatchResult([]*dispatch.ResponseError{outcome}), nil
	}

	body, err := EncodeBatch(d.cfg.ProjectID, msgs)
	if err != nil {
		return nil, err
	}

	token, err := d.token(ctx, modeBatch)
	if err != nil {
		return nil, err
	}

	resp, err := d.roundTrip(ctx, modeBatch, &dispatch.Request{
		Method: http.MethodPost,
		URL:    d.cfg.Endpoint + "/batch",
		Header: http.Header{
			"Authorization": {"Bearer " + token},
			"Content-Type":  {BatchContentType},
		},
		Body: body,
	})
	if err != nil {
		return nil, err
	}

	raws, err := d.decoder.Decode(resp.Header.Get("Content-Type"), resp.Body)
	if err != nil {
		return nil, d.decodeFailure(fmt.Errorf("%w: %w", dispatch.ErrDecode, err), resp)
	}
	if len(raws) != len(msgs) {
		return nil, d.decodeFailure(fmt.Errorf("%w: sent %d messages, decoded %d responses (http %d)",
			dispatch.ErrDecode, len(msgs), len(raws), resp.StatusCode), resp)
	}

	outcomes := make([]*dispatch.ResponseError, len(msgs))
	for _, raw := range raws {
		if raw.Index < 0 || raw.Index >= len(msgs) {
			return nil, d.decodeFailure(fmt.Errorf("%w: response index %d out of range", dispatch.ErrDecode, raw.Index), resp)
		}
		outcomes[raw.Index] = Classify(raw.Body)
		observeOutcome(outcomes[raw.Index])
	}

	result := dispatch.NewBatchResult(outcomes)
	metrics.ObserveCall(modeBatch, "ok")
	d.logger.Debug("FCM batch dispatched", "size", len(msgs), "failures", result.FailureCount())
	return result, nil
}

func (d *Dispatcher) token(ctx context.Context, mode string) (string, error) {
	token, err := d.tokens.Token(ctx, dispatch.MessagingScope)
	if err != nil {
		metrics.ObserveCall(mode, "auth")
		d.logger.Warn("Could not obtain FCM credential", "mode", mode, "err", err)
		if !errors.Is(err, dispatch.ErrAuth) {
			err = fmt.Errorf("%w: %w", dispatch.ErrAuth, err)
		}
		return "", err
	}
	return token, nil
}

func (d *Dispatcher) roundTrip(ctx context.Context, mode string, req *dispatch.Request) (*dispatch.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := d.transport.Execute(ctx, req)
	metrics.ObserveRoundTrip(mode, time.Since(start))
	if err == nil {
		return resp, nil
	}

	switch {
	case errors.Is(err, dispatch.ErrTimeout):
	case errors.Is(err, context.DeadlineExceeded):
		err = fmt.Errorf("%w: %w", dispatch.ErrTimeout, err)
	case errors.Is(err, dispatch.ErrTransport):
	default:
		err = fmt.Errorf("%w: %w", dispatch.ErrTransport, err)
	}

	result := "transport"
	if errors.Is(err, dispatch.ErrTimeout) {
		result = "timeout"
	}
	metrics.ObserveCall(mode, result)
	d.logger.Warn("FCM round trip failed", "mode", mode, "timeout", d.cfg.Timeout, "err", err)
	return nil, err
}

func (d *Dispatcher) decodeFailure(err error, resp *dispatch.Response) error {
	metrics.ObserveCall(modeBatch, "decode")
	d.logger.Warn("Could not decode FCM batch response", "status", resp.StatusCode, "err", err)
	return err
}

func observeOutcome(outcome *dispatch.ResponseError) {
	if outcome == nil {
		metrics.ObserveItem("SUCCESS")
		return
	}
	metrics.ObserveItem(outcome.Kind.String())
}
