package fcm_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinywideclouds/go-fcm-dispatch/internal/platform/fcm"
	"github.com/tinywideclouds/go-fcm-dispatch/pkg/dispatch"
)

func fcmError(code string) string {
	return fmt.Sprintf(`{
  "error": {
    "code": 400,
    "message": "rejected",
    "status": "INVALID_ARGUMENT",
    "details": [
      {
        "@type": "type.googleapis.com/google.firebase.fcm.v1.FcmError",
        "errorCode": %q
      }
    ]
  }
}`, code)
}

func TestClassify(t *testing.T) {
	t.Run("Happy Path - Success envelope", func(t *testing.T) {
		assert.Nil(t, fcm.Classify([]byte(`{"name": "projects/p/messages/0:123"}`)))
	})

	t.Run("Any object without an error member is success", func(t *testing.T) {
		assert.Nil(t, fcm.Classify([]byte(`{}`)))
	})

	t.Run("Known codes map to their kind", func(t *testing.T) {
		cases := map[string]dispatch.ErrorKind{
			"UNSPECIFIED_ERROR":      dispatch.KindUnspecifiedError,
			"INVALID_ARGUMENT":       dispatch.KindInvalidArgument,
			"UNREGISTERED":           dispatch.KindUnregistered,
			"SENDER_ID_MISMATCH":     dispatch.KindSenderIDMismatch,
			"QUOTA_EXCEEDED":         dispatch.KindQuotaExceeded,
			"UNAVAILABLE":            dispatch.KindUnavailable,
			"INTERNAL":               dispatch.KindInternal,
			"THIRD_PARTY_AUTH_ERROR": dispatch.KindThirdPartyAuthError,
		}
		for code, kind := range cases {
			got := fcm.Classify([]byte(fcmError(code)))
			require.NotNil(t, got, code)
			assert.Equal(t, kind, got.Kind, code)
			assert.Empty(t, got.Message, code)
		}
	})

	t.Run("Unknown code is surfaced verbatim", func(t *testing.T) {
		got := fcm.Classify([]byte(fcmError("NOT_A_REAL_CODE")))
		require.NotNil(t, got)
		assert.Equal(t, dispatch.KindOther, got.Kind)
		assert.Equal(t, "NOT_A_REAL_CODE", got.Message)
	})

	t.Run("Zero or several details", func(t *testing.T) {
		noDetails := `{"error": {"code": 500, "message": "boom", "details": []}}`
		got := fcm.Classify([]byte(noDetails))
		require.NotNil(t, got)
		assert.Equal(t, dispatch.KindOther, got.Kind)
		assert.Contains(t, got.Message, "unexpected detail count")
		assert.Contains(t, got.Message, "boom")

		twoDetails := `{"error": {"details": [{"@type": "a"}, {"@type": "b"}]}}`
		got = fcm.Classify([]byte(twoDetails))
		require.NotNil(t, got)
		assert.Contains(t, got.Message, "unexpected detail count")
	})

	t.Run("Foreign detail type", func(t *testing.T) {
		body := `{"error": {"details": [{"@type": "type.googleapis.com/google.rpc.BadRequest", "errorCode": "UNREGISTERED"}]}}`
		got := fcm.Classify([]byte(body))
		require.NotNil(t, got)
		assert.Equal(t, dispatch.KindOther, got.Kind)
		assert.Contains(t, got.Message, "unknown error shape")
		assert.Contains(t, got.Message, "google.rpc.BadRequest")
	})

	t.Run("Detail without errorCode", func(t *testing.T) {
		body := `{"error": {"details": [{"@type": "type.googleapis.com/google.firebase.fcm.v1.FcmError"}]}}`
		got := fcm.Classify([]byte(body))
		require.NotNil(t, got)
		assert.Contains(t, got.Message, "unknown error shape")
	})

	t.Run("Not JSON", func(t *testing.T) {
		got := fcm.Classify([]byte("<html>bad gateway</html>"))
		require.NotNil(t, got)
		assert.Equal(t, dispatch.KindOther, got.Kind)
		assert.Equal(t, "<html>bad gateway</html>", got.Message)

		got = fcm.Classify([]byte(`["not", "an", "object"]`))
		require.NotNil(t, got)
		assert.Equal(t, dispatch.KindOther, got.Kind)

		got = fcm.Classify([]byte("null"))
		require.NotNil(t, got)
		assert.Equal(t, dispatch.KindOther, got.Kind)
	})
}
