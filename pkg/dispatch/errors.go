package dispatch

import "errors"

// Terminal errors. A call failing with one of these produced no result at all;
// check with errors.Is.
var (
	// ErrAuth is returned when no credential could be obtained. No request was sent.
	ErrAuth = errors.New("fcm: authentication failed")

	// ErrTransport is returned when the request could not be completed and no response was received.
	ErrTransport = errors.New("fcm: transport failed")

	// ErrTimeout is returned when the round trip exceeded the configured timeout.
	ErrTimeout = errors.New("fcm: timeout")

	// ErrDecode is returned when a response was received but its overall shape could not be
	// understood, e.g. a batch response with the wrong number of parts.
	ErrDecode = errors.New("fcm: could not decode response")

	// ErrConfig is returned for invalid client configuration.
	ErrConfig = errors.New("fcm: invalid configuration")
)
