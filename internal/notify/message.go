package notify

import (
	"time"

	"github.com/buuuuds/Smart-Agri-Leafy-Shield/internal/alert"
)

// Data payload type discriminator used by the mobile client for routing.
const MessageTypeSensorAlert = "sensor_alert"

// MessageDefaults holds the named fallbacks applied when an alert lacks
// optional fields.
type MessageDefaults struct {
	// Title is used when the alert has no title.
	Title string

	// Body is used when the alert has no message.
	Body string

	// ChannelID is the Android notification channel for all alerts.
	ChannelID string

	// ClickAction is the client-side action attached to the data payload.
	ClickAction string
}

// DefaultMessageDefaults returns the stock fallbacks for sensor alerts.
func DefaultMessageDefaults() MessageDefaults {
	return MessageDefaults{
		Title:       "🌱 Agri-Leafy Alert",
		Body:        "Check your plant system",
		ChannelID:   "agri_leafy_alerts",
		ClickAction: "FLUTTER_NOTIFICATION_CLICK",
	}
}

// Message is the platform-agnostic notification payload for one multicast
// send. Delivery hints apply uniformly to every recipient in the batch.
type Message struct {
	Title string
	Body  string

	// Data is the structured payload delivered alongside the notification.
	Data map[string]string

	Android AndroidHints
	APNS    APNSHints
}

// AndroidHints carries Android-specific delivery hints.
type AndroidHints struct {
	// Priority is the FCM delivery priority class ("high" wakes the device).
	Priority string

	ChannelID             string
	Sound                 string
	NotificationPriority  string
	DefaultVibrateTimings bool
}

// APNSHints carries APNs-specific delivery hints.
type APNSHints struct {
	Sound string
	Badge int
}

// BuildMessage constructs the multicast payload for an alert, applying the
// configured fallbacks for missing title, body, priority, and timestamp.
func BuildMessage(a *alert.Alert, alertID string, defaults MessageDefaults, now time.Time) *Message {
	title := a.Title
	if title == "" {
		title = defaults.Title
	}

	body := a.Message
	if body == "" {
		body = defaults.Body
	}

	timestamp := a.Timestamp
	if timestamp == "" {
		timestamp = now.UTC().Format(time.RFC3339)
	}

	return &Message{
		Title: title,
		Body:  body,
		Data: map[string]string{
			"alertId":      alertID,
			"priority":     alert.NormalizePriority(a.Priority),
			"timestamp":    timestamp,
			"type":         MessageTypeSensorAlert,
			"click_action": defaults.ClickAction,
		},
		Android: AndroidHints{
			Priority:              "high",
			ChannelID:             defaults.ChannelID,
			Sound:                 "default",
			NotificationPriority:  "max",
			DefaultVibrateTimings: true,
		},
		APNS: APNSHints{
			Sound: "default",
			Badge: 1,
		},
	}
}
