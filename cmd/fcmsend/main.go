package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"
)

var exampleUsage = strings.TrimSpace(`
  fcmsend --project my-app --credentials sa.json --message hello.json --token dA1b... --token eF2c...
  fcmsend --project my-app --message hello.json --topic news --validate-only
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// exitError carries a process exit code out of RunE.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func newRootCommand() *cobra.Command {
	opts := defaultOptions()
	var verbose bool

	root := &cobra.Command{
		Use:           "fcmsend",
		Short:         "Send a Firebase Cloud Messaging message to one or many targets",
		Long:          "Send an FCM HTTP v1 message read from a JSON file. Several --token flags are sent as one batch.",
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })
			applyEnv(&opts, changed)

			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			code, err := run(ctx, opts, cmd.OutOrStdout(), logger)
			if err != nil || code != 0 {
				if err == nil {
					err = errors.New("one or more messages were rejected")
				}
				return &exitError{code: code, err: err}
			}
			return nil
		},
	}

	f := root.Flags()
	f.StringVar(&opts.ProjectID, "project", "", "Firebase project ID (env PROJECT_ID)")
	f.StringVar(&opts.CredentialsFile, "credentials", "", "service account key file (env GOOGLE_APPLICATION_CREDENTIALS)")
	f.StringVar(&opts.AccessToken, "access-token", "", "pre-issued OAuth2 access token (env FCM_ACCESS_TOKEN)")
	f.StringVar(&opts.Endpoint, "endpoint", opts.Endpoint, "FCM API base URL (env FCM_ENDPOINT)")
	f.DurationVar(&opts.Timeout, "timeout", opts.Timeout, "HTTP round-trip timeout")
	f.BoolVar(&opts.ValidateOnly, "validate-only", false, "validate without delivering (single target only)")
	f.StringVarP(&opts.MessageFile, "message", "m", "", "JSON file holding the message, without a target")
	f.StringArrayVarP(&opts.Tokens, "token", "t", nil, "device registration token, repeatable")
	f.StringVar(&opts.Topic, "topic", "", "topic name")
	f.StringVar(&opts.Condition, "condition", "", "topic condition expression")
	f.BoolVarP(&verbose, "verbose", "v", false, "debug logging on stderr")
	_ = root.MarkFlagRequired("message")

	return root
}

func main() {
	_ = godotenv.Load()

	root := newRootCommand()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		os.Exit(1)
	}
}
