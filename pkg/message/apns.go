package message

// APNSConfig holds Apple Push Notification Service specific options.
// Headers and Payload are forwarded verbatim to APNs.
type APNSConfig struct {
	Headers    map[string]Value `json:"headers,omitempty"`
	Payload    map[string]Value `json:"payload,omitempty"`
	FCMOptions *APNSFCMOptions  `json:"fcm_options,omitempty"`
}

type APNSFCMOptions struct {
	AnalyticsLabel string `json:"analytics_label,omitempty"`
	Image          string `json:"image,omitempty"`
}

// APS is a typed helper for the "aps" dictionary of an APNs payload.
type APS struct {
	APS *APSDictionary `json:"aps,omitempty"`
}

type APSDictionary struct {
	// MutableContent is 0 or 1.
	MutableContent int    `json:"mutable-content,omitempty"`
	Alert          *Alert `json:"alert,omitempty"`
	Badge          *int   `json:"badge,omitempty"`
	Sound          string `json:"sound,omitempty"`
}

type Alert struct {
	Title    string `json:"title,omitempty"`
	Subtitle string `json:"subtitle,omitempty"`
	Body     string `json:"body,omitempty"`
}

// Payload renders the helper into the generic APNSConfig.Payload form.
func (a APS) Payload() (map[string]Value, error) {
	return ValuesFrom(a)
}
