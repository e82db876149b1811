package dispatch

import (
	"fmt"

	"github.com/tinywideclouds/go-fcm-dispatch/pkg/message"
)

// ErrorKind enumerates the FCM v1 error codes.
// See https://firebase.google.com/docs/reference/fcm/rest/v1/ErrorCode
type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindUnspecifiedError
	KindInvalidArgument
	KindUnregistered
	KindSenderIDMismatch
	KindQuotaExceeded
	KindUnavailable
	KindInternal
	KindThirdPartyAuthError
)

var kindCodes = map[ErrorKind]string{
	KindUnspecifiedError:    "UNSPECIFIED_ERROR",
	KindInvalidArgument:     "INVALID_ARGUMENT",
	KindUnregistered:        "UNREGISTERED",
	KindSenderIDMismatch:    "SENDER_ID_MISMATCH",
	KindQuotaExceeded:       "QUOTA_EXCEEDED",
	KindUnavailable:         "UNAVAILABLE",
	KindInternal:            "INTERNAL",
	KindThirdPartyAuthError: "THIRD_PARTY_AUTH_ERROR",
}

var codeKinds = func() map[string]ErrorKind {
	m := make(map[string]ErrorKind, len(kindCodes))
	for k, code := range kindCodes {
		m[code] = k
	}
	return m
}()

// ParseErrorKind maps an FCM errorCode string to its kind. Unknown codes report false.
func ParseErrorKind(code string) (ErrorKind, bool) {
	k, ok := codeKinds[code]
	return k, ok
}

func (k ErrorKind) String() string {
	if code, ok := kindCodes[k]; ok {
		return code
	}
	return "OTHER"
}

// ResponseError is the server's verdict on one submission. A nil *ResponseError means success.
type ResponseError struct {
	Kind ErrorKind
	// Message is set for KindOther and holds whatever could not be mapped.
	Message string
}

// Other builds a KindOther outcome.
func Other(msg string) *ResponseError {
	return &ResponseError{Kind: KindOther, Message: msg}
}

func (e *ResponseError) Error() string {
	if e.Kind == KindOther {
		return fmt.Sprintf("fcm: %s", e.Message)
	}
	return fmt.Sprintf("fcm: %s", e.Kind)
}

// Retryable reports whether resending the same message later may succeed.
func (e *ResponseError) Retryable() bool {
	if e == nil {
		return false
	}
	switch e.Kind {
	case KindUnavailable, KindInternal, KindQuotaExceeded:
		return true
	default:
		return false
	}
}

// StaleToken reports whether the addressed registration token should be discarded.
func (e *ResponseError) StaleToken() bool {
	if e == nil {
		return false
	}
	return e.Kind == KindUnregistered || e.Kind == KindSenderIDMismatch
}

// SendRequest is the JSON envelope posted to messages:send.
type SendRequest struct {
	ValidateOnly bool             `json:"validate_only"`
	Message      *message.Message `json:"message"`
}

// RawOutcome is the unparsed response for one submission and its position in the caller's input.
type RawOutcome struct {
	Index int
	Body  []byte
}

// BatchResult aggregates the outcomes of a batch call.
// Outcomes[i] belongs to the i-th input message; AllSucceeded is true iff every entry is nil.
type BatchResult struct {
	AllSucceeded bool
	Outcomes     []*ResponseError
}

// NewBatchResult computes AllSucceeded from outcomes.
func NewBatchResult(outcomes []*ResponseError) *BatchResult {
	all := true
	for _, o := range outcomes {
		if o != nil {
			all = false
			break
		}
	}
	if outcomes == nil {
		outcomes = []*ResponseError{}
	}
	return &BatchResult{AllSucceeded: all, Outcomes: outcomes}
}

// FailureCount returns the number of failed items.
func (r *BatchResult) FailureCount() int {
	n := 0
	for _, o := range r.Outcomes {
		if o != nil {
			n++
		}
	}
	return n
}
