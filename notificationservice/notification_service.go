// Package notificationservice runs the FCM push pipeline next to the device registration API.
package notificationservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/tinywideclouds/go-microservice-base/pkg/microservice"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"

	"github.com/tinywideclouds/go-fcm-dispatch/internal/api"
	"github.com/tinywideclouds/go-fcm-dispatch/internal/metrics"
	"github.com/tinywideclouds/go-fcm-dispatch/internal/pipeline"
	"github.com/tinywideclouds/go-fcm-dispatch/notificationservice/config"
	"github.com/tinywideclouds/go-fcm-dispatch/pkg/dispatch"
)

// Wrapper is the running service: the push pipeline consuming PushRequests and the HTTP
// server carrying the token API and /metrics.
type Wrapper struct {
	*microservice.BaseServer
	pushes *messagepipeline.StreamingService[pipeline.PushRequest]
	logger *slog.Logger
}

// New wires dispatcher and tokenStore into the pipeline and mounts the HTTP routes.
// authMiddleware guards the token API; it must put the caller's user ID in the request context.
func New(
	cfg *config.Config,
	consumer messagepipeline.MessageConsumer,
	dispatcher dispatch.Dispatcher,
	tokenStore dispatch.TokenStore,
	authMiddleware func(http.Handler) http.Handler,
	logger *slog.Logger,
) (*Wrapper, error) {
	svcLogger := logger.With("component", "NotificationService")

	processor := pipeline.NewProcessor(dispatcher, tokenStore, pipeline.ProcessorConfig{
		BatchSize:    cfg.FCM.BatchSize,
		ValidateOnly: cfg.FCM.ValidateOnly,
	}, logger.With("component", "PushProcessor"))

	pushes, err := messagepipeline.NewStreamingService(
		messagepipeline.StreamingServiceConfig{NumWorkers: cfg.NumPipelineWorkers},
		consumer,
		pipeline.PushRequestTransformer,
		processor,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create push pipeline: %w", err)
	}

	server := microservice.NewBaseServer(logger, cfg.ListenAddr)
	cors := middleware.NewCorsMiddleware(cfg.CorsConfig, logger)
	registerRoutes(server.Mux(), api.NewTokenAPI(tokenStore, logger), cors, authMiddleware)

	svcLogger.Info("Push pipeline configured",
		"workers", cfg.NumPipelineWorkers,
		"batch_size", cfg.FCM.BatchSize,
		"validate_only", cfg.FCM.ValidateOnly)

	return &Wrapper{BaseServer: server, pushes: pushes, logger: svcLogger}, nil
}

type routeMux interface {
	Handle(pattern string, handler http.Handler)
}

func registerRoutes(mux routeMux, tokens *api.TokenAPI, cors, auth func(http.Handler) http.Handler) {
	protected := func(h http.HandlerFunc) http.Handler { return cors(auth(h)) }

	mux.Handle("POST /api/v1/register/fcm", protected(tokens.RegisterFCM))
	mux.Handle("POST /api/v1/unregister/fcm", protected(tokens.UnregisterFCM))
	// Preflight: the CORS middleware answers it.
	mux.Handle("OPTIONS /api/v1/", cors(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})))
	mux.Handle("GET /metrics", metrics.Handler())
}

// Start runs the pipeline, marks the service ready and then blocks serving HTTP.
func (w *Wrapper) Start(ctx context.Context) error {
	if err := w.pushes.Start(ctx); err != nil {
		return fmt.Errorf("failed to start push pipeline: %w", err)
	}
	w.SetReady(true)
	w.logger.Info("Push pipeline running, service ready")
	return w.BaseServer.Start()
}

// Shutdown drains the pipeline before the HTTP server so in-flight pushes can still be acked.
func (w *Wrapper) Shutdown(ctx context.Context) error {
	w.SetReady(false)
	pipelineErr := w.pushes.Stop(ctx)
	if pipelineErr != nil {
		w.logger.Error("Push pipeline shutdown failed", "err", pipelineErr)
	}
	serverErr := w.BaseServer.Shutdown(ctx)
	if serverErr != nil {
		w.logger.Error("HTTP server shutdown failed", "err", serverErr)
	}
	w.logger.Info("Service stopped")
	return errors.Join(pipelineErr, serverErr)
}
