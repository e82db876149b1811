package message

// AndroidConfig holds Android specific options.
type AndroidConfig struct {
	CollapseKey           string               `json:"collapse_key,omitempty"`
	Priority              AndroidPriority      `json:"priority,omitempty"`
	TTL                   string               `json:"ttl,omitempty"` // duration in seconds, e.g. "3.5s"
	RestrictedPackageName string               `json:"restricted_package_name,omitempty"`
	Data                  map[string]string    `json:"data,omitempty"`
	Notification          *AndroidNotification `json:"notification,omitempty"`
	FCMOptions            *AndroidFCMOptions   `json:"fcm_options,omitempty"`
	DirectBootOK          *bool                `json:"direct_boot_ok,omitempty"`
}

type AndroidPriority string

const (
	AndroidPriorityNormal AndroidPriority = "NORMAL"
	AndroidPriorityHigh   AndroidPriority = "HIGH"
)

// AndroidNotification is the notification sent to Android devices.
type AndroidNotification struct {
	Title                 string               `json:"title,omitempty"`
	Body                  string               `json:"body,omitempty"`
	Icon                  string               `json:"icon,omitempty"`
	Color                 string               `json:"color,omitempty"`
	Sound                 string               `json:"sound,omitempty"`
	Tag                   string               `json:"tag,omitempty"`
	ClickAction           string               `json:"click_action,omitempty"`
	BodyLocKey            string               `json:"body_loc_key,omitempty"`
	BodyLocArgs           []string             `json:"body_loc_args,omitempty"`
	TitleLocKey           string               `json:"title_loc_key,omitempty"`
	TitleLocArgs          []string             `json:"title_loc_args,omitempty"`
	ChannelID             string               `json:"channel_id,omitempty"`
	Ticker                string               `json:"ticker,omitempty"`
	Sticky                *bool                `json:"sticky,omitempty"`
	EventTime             string               `json:"event_time,omitempty"`
	LocalOnly             *bool                `json:"local_only,omitempty"`
	NotificationPriority  NotificationPriority `json:"notification_priority,omitempty"`
	DefaultSound          *bool                `json:"default_sound,omitempty"`
	DefaultVibrateTimings *bool                `json:"default_vibrate_timings,omitempty"`
	DefaultLightSettings  *bool                `json:"default_light_settings,omitempty"`
	VibrateTimings        []string             `json:"vibrate_timings,omitempty"`
	Visibility            Visibility           `json:"visibility,omitempty"`
	NotificationCount     *int32               `json:"notification_count,omitempty"`
	LightSettings         *LightSettings       `json:"light_settings,omitempty"`
	Image                 string               `json:"image,omitempty"`
}

type NotificationPriority string

const (
	PriorityUnspecified NotificationPriority = "PRIORITY_UNSPECIFIED"
	PriorityMin         NotificationPriority = "PRIORITY_MIN"
	PriorityLow         NotificationPriority = "PRIORITY_LOW"
	PriorityDefault     NotificationPriority = "PRIORITY_DEFAULT"
	PriorityHigh        NotificationPriority = "PRIORITY_HIGH"
	PriorityMax         NotificationPriority = "PRIORITY_MAX"
)

type Visibility string

const (
	VisibilityUnspecified Visibility = "VISIBILITY_UNSPECIFIED"
	VisibilityPrivate     Visibility = "PRIVATE"
	VisibilityPublic      Visibility = "PUBLIC"
	VisibilitySecret      Visibility = "SECRET"
)

// LightSettings controls the notification LED.
type LightSettings struct {
	Color            *Color `json:"color,omitempty"`
	LightOnDuration  string `json:"light_on_duration,omitempty"`
	LightOffDuration string `json:"light_off_duration,omitempty"`
}

// Color is an RGBA color with components in [0, 1].
type Color struct {
	Red   float32 `json:"red"`
	Green float32 `json:"green"`
	Blue  float32 `json:"blue"`
	Alpha float32 `json:"alpha"`
}

type AndroidFCMOptions struct {
	AnalyticsLabel string `json:"analytics_label,omitempty"`
}
