// Package auth provides dispatch.TokenProvider implementations backed by golang.org/x/oauth2.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/tinywideclouds/go-fcm-dispatch/pkg/dispatch"
)

// SourceFactory builds a token source for one scope.
type SourceFactory func(ctx context.Context, scope string) (oauth2.TokenSource, error)

// Provider hands out bearer tokens, keeping one reusable oauth2.TokenSource per scope.
// The token sources do the caching and refresh; Provider itself is safe for concurrent use.
type Provider struct {
	factory SourceFactory
	logger  *slog.Logger

	mu      sync.Mutex
	sources map[string]oauth2.TokenSource
}

// New creates a Provider from an arbitrary source factory.
func New(factory SourceFactory, logger *slog.Logger) *Provider {
	return &Provider{
		factory: factory,
		logger:  logger.With("component", "TokenProvider"),
		sources: make(map[string]oauth2.TokenSource),
	}
}

// NewServiceAccountFile reads a service account JSON key and signs JWTs with it.
func NewServiceAccountFile(path string, logger *slog.Logger) (*Provider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	return NewServiceAccountJSON(data, logger)
}

// NewServiceAccountJSON is NewServiceAccountFile for key material already in memory.
func NewServiceAccountJSON(data []byte, logger *slog.Logger) (*Provider, error) {
	// Parse once up front so a bad key fails at startup, not on the first send.
	if _, err := google.JWTConfigFromJSON(data, dispatch.MessagingScope); err != nil {
		return nil, fmt.Errorf("invalid service account key: %w", err)
	}
	return New(func(ctx context.Context, scope string) (oauth2.TokenSource, error) {
		cfg, err := google.JWTConfigFromJSON(data, scope)
		if err != nil {
			return nil, err
		}
		return cfg.TokenSource(ctx), nil
	}, logger), nil
}

// NewDefault uses Application Default Credentials (GOOGLE_APPLICATION_CREDENTIALS,
// gcloud user credentials, or the metadata server).
func NewDefault(logger *slog.Logger) *Provider {
	return New(func(ctx context.Context, scope string) (oauth2.TokenSource, error) {
		creds, err := google.FindDefaultCredentials(ctx, scope)
		if err != nil {
			return nil, err
		}
		return creds.TokenSource, nil
	}, logger)
}

// NewStatic always returns the given access token, whatever the scope.
func NewStatic(accessToken string, logger *slog.Logger) *Provider {
	return New(func(_ context.Context, _ string) (oauth2.TokenSource, error) {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}), nil
	}, logger)
}

// Token implements dispatch.TokenProvider.
func (p *Provider) Token(ctx context.Context, scope string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", dispatch.ErrAuth, err)
	}

	src, err := p.source(scope)
	if err != nil {
		p.logger.Error("Failed to build token source", "scope", scope, "err", err)
		return "", fmt.Errorf("%w: %w", dispatch.ErrAuth, err)
	}

	tok, err := src.Token()
	if err != nil {
		p.logger.Warn("Token acquisition failed", "scope", scope, "err", err)
		return "", fmt.Errorf("%w: %w", dispatch.ErrAuth, err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", dispatch.ErrAuth)
	}
	return tok.AccessToken, nil
}

func (p *Provider) source(scope string) (oauth2.TokenSource, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if src, ok := p.sources[scope]; ok {
		return src, nil
	}
	// Sources outlive any single call, so they must not capture a request context.
	src, err := p.factory(context.Background(), scope)
	if err != nil {
		return nil, err
	}
	src = oauth2.ReuseTokenSource(nil, src)
	p.sources[scope] = src
	return src, nil
}
