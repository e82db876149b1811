// Package dispatch defines the contracts and result types of the FCM dispatch layer.
package dispatch

import (
	"context"
	"net/http"

	"github.com/tinywideclouds/go-fcm-dispatch/pkg/message"
	urn "github.com/tinywideclouds/go-platform/pkg/net/v1"
)

// MessagingScope is the OAuth2 scope required to send FCM messages.
const MessagingScope = "https://www.googleapis.com/auth/firebase.messaging"

// TokenProvider issues short-lived bearer credentials for a permission scope.
// Implementations own any credential caching and must be safe for concurrent use.
type TokenProvider interface {
	Token(ctx context.Context, scope string) (string, error)
}

// Request is one physical HTTP exchange handed to a Transport.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is the status and full body of an HTTP exchange.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport executes HTTP requests. It returns an error only when no response was received;
// non-2xx responses are returned as values. Deadlines come from ctx.
type Transport interface {
	Execute(ctx context.Context, req *Request) (*Response, error)
}

// Dispatcher sends messages to FCM.
//
// Send returns a nil *ResponseError when the server accepted the message. An error return is
// terminal (auth, transport, timeout, decode); server-side rejections are reported through the
// *ResponseError value instead.
type Dispatcher interface {
	Send(ctx context.Context, msg *message.Message, validateOnly bool) (*ResponseError, error)
	SendBatch(ctx context.Context, msgs []*message.Message) (*BatchResult, error)
}

// TokenStore manages the FCM registration tokens of a user.
type TokenStore interface {
	// RegisterFCM adds a device token for the user. Registering twice is a no-op.
	RegisterFCM(ctx context.Context, user urn.URN, token string) error
	// UnregisterFCM removes a device token. Removing an unknown token is not an error.
	UnregisterFCM(ctx context.Context, user urn.URN, token string) error
	// Fetch returns all registered tokens for the user.
	Fetch(ctx context.Context, user urn.URN) ([]string, error)
}
