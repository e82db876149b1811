package message

// WebpushConfig holds Webpush protocol options.
type WebpushConfig struct {
	Headers map[string]Value `json:"headers,omitempty"`
	Data    map[string]Value `json:"data,omitempty"`
	// Notification is a Web Notification options object; any field the browser understands is allowed.
	Notification map[string]Value  `json:"notification,omitempty"`
	FCMOptions   WebpushFCMOptions `json:"fcm_options"`
}

type WebpushFCMOptions struct {
	Link           string `json:"link,omitempty"`
	AnalyticsLabel string `json:"analytics_label,omitempty"`
}
