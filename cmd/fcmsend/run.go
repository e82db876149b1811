package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/tinywideclouds/go-fcm-dispatch/internal/auth"
	"github.com/tinywideclouds/go-fcm-dispatch/internal/platform/fcm"
	"github.com/tinywideclouds/go-fcm-dispatch/internal/transport"
	"github.com/tinywideclouds/go-fcm-dispatch/pkg/dispatch"
	"github.com/tinywideclouds/go-fcm-dispatch/pkg/message"
)

const (
	exitOK          = 0
	exitTerminal    = 1
	exitItemsFailed = 2
)

type options struct {
	ProjectID       string
	CredentialsFile string
	AccessToken     string
	Endpoint        string
	Timeout         time.Duration
	ValidateOnly    bool
	MessageFile     string
	Tokens          []string
	Topic           string
	Condition       string
}

func defaultOptions() options {
	return options{
		Endpoint: fcm.DefaultEndpoint,
		Timeout:  fcm.DefaultTimeout,
	}
}

// applyEnv fills options whose flag was not set on the command line.
func applyEnv(opts *options, changed map[string]bool) {
	fromEnv := func(flag, env string, dst *string) {
		if changed[flag] {
			return
		}
		if val := os.Getenv(env); val != "" {
			*dst = val
		}
	}
	fromEnv("project", "PROJECT_ID", &opts.ProjectID)
	fromEnv("credentials", "GOOGLE_APPLICATION_CREDENTIALS", &opts.CredentialsFile)
	fromEnv("access-token", "FCM_ACCESS_TOKEN", &opts.AccessToken)
	fromEnv("endpoint", "FCM_ENDPOINT", &opts.Endpoint)
}

func (o options) targets() ([]message.Target, error) {
	var targets []message.Target
	for _, t := range o.Tokens {
		targets = append(targets, message.TokenTarget(t))
	}
	if o.Topic != "" {
		targets = append(targets, message.TopicTarget(o.Topic))
	}
	if o.Condition != "" {
		targets = append(targets, message.ConditionTarget(o.Condition))
	}
	switch {
	case len(targets) == 0:
		return nil, errors.New("at least one --token, --topic or --condition is required")
	case o.ValidateOnly && len(targets) > 1:
		return nil, errors.New("--validate-only needs exactly one target; batch requests cannot be validated")
	}
	return targets, nil
}

// run sends the message and prints one line per target. It returns exitItemsFailed when
// FCM rejected at least one message and exitTerminal together with an error when the call failed.
func run(ctx context.Context, opts options, out io.Writer, logger *slog.Logger) (int, error) {
	if opts.ProjectID == "" {
		return exitTerminal, errors.New("--project is required")
	}
	targets, err := opts.targets()
	if err != nil {
		return exitTerminal, err
	}

	raw, err := os.ReadFile(opts.MessageFile)
	if err != nil {
		return exitTerminal, fmt.Errorf("read message: %w", err)
	}
	var template message.Message
	if err := json.Unmarshal(raw, &template); err != nil {
		return exitTerminal, fmt.Errorf("parse message: %w", err)
	}
	if template.HasTarget() {
		return exitTerminal, errors.New("message file must not set token, topic or condition; use flags")
	}

	tokens, err := tokenProvider(opts, logger)
	if err != nil {
		return exitTerminal, err
	}
	dispatcher, err := fcm.NewDispatcher(fcm.Config{
		ProjectID: opts.ProjectID,
		Endpoint:  opts.Endpoint,
		Timeout:   opts.Timeout,
	}, tokens, transport.New(nil), logger)
	if err != nil {
		return exitTerminal, err
	}

	msgs := make([]*message.Message, len(targets))
	for i, t := range targets {
		msgs[i] = template.WithTarget(t)
	}

	var result *dispatch.BatchResult
	if len(msgs) == 1 {
		outcome, err := dispatcher.Send(ctx, msgs[0], opts.ValidateOnly)
		if err != nil {
			return exitTerminal, err
		}
		result = dispatch.NewBatchResult([]*dispatch.ResponseError{outcome})
	} else {
		result, err = dispatcher.SendBatch(ctx, msgs)
		if err != nil {
			return exitTerminal, err
		}
	}

	for i, outcome := range result.Outcomes {
		verdict := "OK"
		if outcome != nil {
			verdict = outcome.Kind.String()
			if outcome.Message != "" {
				verdict += " " + outcome.Message
			}
		}
		fmt.Fprintf(out, "%s\t%s\n", targets[i], verdict)
	}

	if !result.AllSucceeded {
		return exitItemsFailed, nil
	}
	return exitOK, nil
}

func tokenProvider(opts options, logger *slog.Logger) (dispatch.TokenProvider, error) {
	switch {
	case opts.AccessToken != "":
		return auth.NewStatic(opts.AccessToken, logger), nil
	case opts.CredentialsFile != "":
		return auth.NewServiceAccountFile(opts.CredentialsFile, logger)
	default:
		return auth.NewDefault(logger), nil
	}
}
