package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeMessage(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "message.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// newFakeFCM answers single sends with a name and batch sends with one pretty-printed
// part per sub-request, rejecting any sub-request that mentions "dead-token".
func newFakeFCM(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if strings.HasSuffix(r.URL.Path, "messages:send") {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"name": "projects/demo/messages/1"}`)
			return
		}

		_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		reader := multipart.NewReader(r.Body, params["boundary"])

		var out bytes.Buffer
		for i := 0; ; i++ {
			part, err := reader.NextPart()
			if err != nil {
				break
			}
			raw, _ := io.ReadAll(part)
			body := "{\n  \"name\": \"projects/demo/messages/ok\"\n}"
			if strings.Contains(string(raw), "dead-token") {
				body = "{\n  \"error\": {\n    \"code\": 404,\n    \"status\": \"NOT_FOUND\",\n    \"details\": [\n      {\n        \"@type\": \"type.googleapis.com/google.firebase.fcm.v1.FcmError\",\n        \"errorCode\": \"UNREGISTERED\"\n      }\n    ]\n  }\n}"
			}
			fmt.Fprintf(&out, "--resp\r\nContent-Type: application/http\r\nContent-ID: response-%d\r\n\r\n", i)
			fmt.Fprintf(&out, "HTTP/1.1 200 OK\r\nContent-Type: application/json\r\n\r\n%s\r\n", body)
		}
		fmt.Fprint(&out, "--resp--\r\n")
		w.Header().Set("Content-Type", "multipart/mixed; boundary=resp")
		_, _ = w.Write(out.Bytes())
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	srv := newFakeFCM(t)
	msgFile := writeMessage(t, `{"notification": {"title": "hi", "body": "there"}}`)

	base := func() options {
		opts := defaultOptions()
		opts.ProjectID = "demo"
		opts.AccessToken = "test-token"
		opts.Endpoint = srv.URL
		opts.MessageFile = msgFile
		return opts
	}

	t.Run("Happy Path - Single token", func(t *testing.T) {
		opts := base()
		opts.Tokens = []string{"tok-1"}
		var out bytes.Buffer

		code, err := run(ctx, opts, &out, newTestLogger())
		require.NoError(t, err)
		assert.Equal(t, exitOK, code)
		assert.Equal(t, "token:tok-1\tOK\n", out.String())
	})

	t.Run("Happy Path - Batch reports each target", func(t *testing.T) {
		opts := base()
		opts.Tokens = []string{"tok-1", "dead-token", "tok-3"}
		var out bytes.Buffer

		code, err := run(ctx, opts, &out, newTestLogger())
		require.NoError(t, err)
		assert.Equal(t, exitItemsFailed, code)
		assert.Equal(t, "token:tok-1\tOK\ntoken:dead-token\tUNREGISTERED\ntoken:tok-3\tOK\n", out.String())
	})

	t.Run("Failure - Rejected single send is an item failure", func(t *testing.T) {
		opts := base()
		opts.AccessToken = "wrong"
		opts.Tokens = []string{"tok-1"}
		var out bytes.Buffer

		code, err := run(ctx, opts, &out, newTestLogger())
		require.NoError(t, err)
		assert.Equal(t, exitItemsFailed, code)
		assert.True(t, strings.HasPrefix(out.String(), "token:tok-1\tOTHER"))
	})

	t.Run("Failure - Rejected batch is terminal", func(t *testing.T) {
		opts := base()
		opts.AccessToken = "wrong"
		opts.Tokens = []string{"tok-1", "tok-2"}

		code, err := run(ctx, opts, io.Discard, newTestLogger())
		require.Error(t, err)
		assert.Equal(t, exitTerminal, code)
	})

	t.Run("Failure - No target", func(t *testing.T) {
		code, err := run(ctx, base(), io.Discard, newTestLogger())
		require.Error(t, err)
		assert.Equal(t, exitTerminal, code)
	})

	t.Run("Failure - Validate-only with several targets", func(t *testing.T) {
		opts := base()
		opts.ValidateOnly = true
		opts.Tokens = []string{"a", "b"}

		_, err := run(ctx, opts, io.Discard, newTestLogger())
		assert.ErrorContains(t, err, "exactly one target")
	})

	t.Run("Failure - Message file carries a target", func(t *testing.T) {
		opts := base()
		opts.MessageFile = writeMessage(t, `{"token": "embedded"}`)
		opts.Tokens = []string{"a"}

		_, err := run(ctx, opts, io.Discard, newTestLogger())
		assert.ErrorContains(t, err, "must not set")
	})

	t.Run("Failure - Missing project", func(t *testing.T) {
		opts := base()
		opts.ProjectID = ""
		opts.Tokens = []string{"a"}

		_, err := run(ctx, opts, io.Discard, newTestLogger())
		assert.ErrorContains(t, err, "--project")
	})
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PROJECT_ID", "from-env")
	t.Setenv("FCM_ENDPOINT", "http://env.example")

	opts := defaultOptions()
	opts.Endpoint = "http://flag.example"
	applyEnv(&opts, map[string]bool{"endpoint": true})

	assert.Equal(t, "from-env", opts.ProjectID)
	assert.Equal(t, "http://flag.example", opts.Endpoint)
}
