package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	urn "github.com/tinywideclouds/go-platform/pkg/net/v1"

	"github.com/tinywideclouds/go-fcm-dispatch/pkg/dispatch"
	"github.com/tinywideclouds/go-fcm-dispatch/pkg/message"
)

// ErrRetryableItems is returned when FCM reported a transient failure for at least one device.
// The error makes the StreamingService Nack the message so Pub/Sub redelivers it.
var ErrRetryableItems = errors.New("transient delivery failures")

// ProcessorConfig tunes the fan-out.
type ProcessorConfig struct {
	// BatchSize is the number of devices per SendBatch call.
	BatchSize int
	// ValidateOnly switches to a dry run: each message is validated by FCM with a single
	// send and nothing is delivered. Batch sub-requests cannot carry the flag.
	ValidateOnly bool
}

// NewProcessor fans a push request out to every registered device of the recipient.
//
// Tokens are sent in chunks of BatchSize through SendBatch. Stale tokens are removed from the
// store. Terminal dispatch errors and retryable item outcomes are returned as errors; permanent
// item rejections are logged and dropped.
func NewProcessor(
	dispatcher dispatch.Dispatcher,
	tokenStore dispatch.TokenStore,
	cfg ProcessorConfig,
	logger *slog.Logger,
) messagepipeline.StreamProcessor[PushRequest] {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	deliver := dispatcher.SendBatch
	if cfg.ValidateOnly {
		deliver = validateEach(dispatcher)
	}

	return func(ctx context.Context, original messagepipeline.Message, request *PushRequest) error {
		procLogger := logger.With(
			"run_id", uuid.NewString(),
			"recipient_id", request.RecipientID.String(),
			"pubsub_msg_id", original.ID,
		)

		tokens, err := tokenStore.Fetch(ctx, request.RecipientID)
		if err != nil {
			procLogger.Error("Failed to fetch device tokens", "err", err)
			return err
		}
		if len(tokens) == 0 {
			procLogger.Info("No devices registered for user; dropping notification.")
			return nil
		}

		var (
			stale     []string
			retryable int
			rejected  int
		)
		// Stale tokens found before a terminal failure are still cleaned up.
		defer func() { cleanupStale(ctx, tokenStore, request.RecipientID, stale, procLogger) }()

		for start := 0; start < len(tokens); start += batchSize {
			chunk := tokens[start:min(start+batchSize, len(tokens))]
			msgs := make([]*message.Message, len(chunk))
			for i, tok := range chunk {
				msgs[i] = request.Message.WithTarget(message.TokenTarget(tok))
			}

			result, err := deliver(ctx, msgs)
			if err != nil {
				procLogger.Error("FCM dispatch failed", "offset", start, "size", len(chunk), "err", err)
				return fmt.Errorf("dispatch batch at offset %d: %w", start, err)
			}

			for i, outcome := range result.Outcomes {
				switch {
				case outcome == nil:
				case outcome.StaleToken():
					stale = append(stale, chunk[i])
				case outcome.Retryable():
					retryable++
				default:
					rejected++
					procLogger.Warn("FCM rejected delivery", "kind", outcome.Kind.String(), "detail", outcome.Message)
				}
			}
		}

		procLogger.Info("FCM dispatched",
			"devices", len(tokens),
			"stale", len(stale),
			"retryable", retryable,
			"rejected", rejected,
			"validate_only", cfg.ValidateOnly,
		)
		if retryable > 0 {
			return fmt.Errorf("%d of %d deliveries: %w", retryable, len(tokens), ErrRetryableItems)
		}
		return nil
	}
}

func cleanupStale(ctx context.Context, store dispatch.TokenStore, user urn.URN, tokens []string, logger *slog.Logger) {
	if len(tokens) == 0 {
		return
	}
	logger.Info("Cleaning up stale FCM tokens", "count", len(tokens))
	for _, t := range tokens {
		if err := store.UnregisterFCM(ctx, user, t); err != nil {
			logger.Warn("Failed to delete FCM token", "err", err)
		}
	}
}

func validateEach(dispatcher dispatch.Dispatcher) func(context.Context, []*message.Message) (*dispatch.BatchResult, error) {
	return func(ctx context.Context, msgs []*message.Message) (*dispatch.BatchResult, error) {
		outcomes := make([]*dispatch.ResponseError, len(msgs))
		for i, m := range msgs {
			outcome, err := dispatcher.Send(ctx, m, true)
			if err != nil {
				return nil, err
			}
			outcomes[i] = outcome
		}
		return dispatch.NewBatchResult(outcomes), nil
	}
}
