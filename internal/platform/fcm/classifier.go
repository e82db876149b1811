package fcm

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/tinywideclouds/go-fcm-dispatch/pkg/dispatch"
)

// fcmErrorType is the @type of the detail record that carries an FCM errorCode.
const fcmErrorType = "type.googleapis.com/google.firebase.fcm.v1.FcmError"

type errorEnvelope struct {
	Error *errorBody `json:"error"`
}

type errorBody struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Status  string            `json:"status"`
	Details []json.RawMessage `json:"details"`
}

type errorDetail struct {
	Type      string  `json:"@type"`
	ErrorCode *string `json:"errorCode"`
}

// Classify turns one raw response body into an item outcome. A nil result means the message
// was accepted.
//
// The order of checks matters: a body is first tried as a success envelope (any JSON object
// without an "error" member, normally {"name": "projects/.../messages/..."}), then as an error
// envelope, and anything else is surfaced verbatim as KindOther.
func Classify(body []byte) *dispatch.ResponseError {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil || obj == nil {
		return dispatch.Other(bodyText(body))
	}
	if _, isError := obj["error"]; !isError {
		return nil
	}

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Error == nil {
		return dispatch.Other(bodyText(body))
	}
	if len(env.Error.Details) != 1 {
		return dispatch.Other("unexpected detail count: " + bodyText(body))
	}

	raw := env.Error.Details[0]
	var detail errorDetail
	if err := json.Unmarshal(raw, &detail); err != nil || detail.Type != fcmErrorType || detail.ErrorCode == nil {
		return dispatch.Other("unknown error shape: " + compact(raw))
	}

	code := *detail.ErrorCode
	if kind, ok := dispatch.ParseErrorKind(code); ok {
		return &dispatch.ResponseError{Kind: kind}
	}
	return dispatch.Other(code)
}

func bodyText(body []byte) string {
	return strings.ToValidUTF8(string(body), "�")
}

func compact(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return bodyText(raw)
	}
	return buf.String()
}
