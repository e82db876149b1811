// Package message contains the Firebase Cloud Messaging HTTP v1 message model.
//
// The dispatch core treats a Message as opaque: it only serialises it. Exactly one of
// Token, Topic or Condition must be set; that is the caller's responsibility.
package message

// Message is one FCM v1 message submission.
type Message struct {
	// Name is the server-assigned identifier. Output only; leave empty when sending.
	Name         string            `json:"name,omitempty"`
	Data         map[string]string `json:"data,omitempty"`
	Notification *Notification     `json:"notification,omitempty"`
	Android      *AndroidConfig    `json:"android,omitempty"`
	Webpush      *WebpushConfig    `json:"webpush,omitempty"`
	APNS         *APNSConfig       `json:"apns,omitempty"`
	FCMOptions   *FCMOptions       `json:"fcm_options,omitempty"`

	Token     string `json:"token,omitempty"`
	Topic     string `json:"topic,omitempty"`
	Condition string `json:"condition,omitempty"`
}

// Notification is the platform independent notification shown to the user.
type Notification struct {
	Title string `json:"title,omitempty"`
	Body  string `json:"body,omitempty"`
	Image string `json:"image,omitempty"`
}

// FCMOptions are platform independent options.
type FCMOptions struct {
	AnalyticsLabel string `json:"analytics_label,omitempty"`
}

// HasTarget reports whether any addressing field is set.
func (m *Message) HasTarget() bool {
	return m.Token != "" || m.Topic != "" || m.Condition != ""
}

// WithTarget returns a shallow copy of the message addressed to t.
// Nested configs are shared with the receiver, which is fine for fan-out of a read-only template.
func (m *Message) WithTarget(t Target) *Message {
	cp := *m
	cp.Token, cp.Topic, cp.Condition = "", "", ""
	t.apply(&cp)
	return &cp
}
