package notify_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/buuuuds/Smart-Agri-Leafy-Shield/internal/alert"
	"github.com/buuuuds/Smart-Agri-Leafy-Shield/internal/notify"
)

func TestBuildMessage_UsesAlertFields(t *testing.T) {
	a := &alert.Alert{
		Title:     "High Moisture",
		Message:   "Soil moisture above threshold",
		Priority:  "high",
		Timestamp: "2026-08-28T10:00:00Z",
	}

	msg := notify.BuildMessage(a, "alert-1", notify.DefaultMessageDefaults(), time.Now())

	assert.Equal(t, "High Moisture", msg.Title)
	assert.Equal(t, "Soil moisture above threshold", msg.Body)
	assert.Equal(t, "alert-1", msg.Data["alertId"])
	assert.Equal(t, "high", msg.Data["priority"])
	assert.Equal(t, "2026-08-28T10:00:00Z", msg.Data["timestamp"])
	assert.Equal(t, notify.MessageTypeSensorAlert, msg.Data["type"])
	assert.Equal(t, "FLUTTER_NOTIFICATION_CLICK", msg.Data["click_action"])
}

func TestBuildMessage_AppliesDefaults(t *testing.T) {
	now := time.Date(2026, 8, 28, 15, 4, 5, 0, time.UTC)

	msg := notify.BuildMessage(&alert.Alert{}, "alert-2", notify.DefaultMessageDefaults(), now)

	assert.Equal(t, "🌱 Agri-Leafy Alert", msg.Title)
	assert.Equal(t, "Check your plant system", msg.Body)
	assert.Equal(t, "medium", msg.Data["priority"])
	assert.Equal(t, "2026-08-28T15:04:05Z", msg.Data["timestamp"])
}

func TestBuildMessage_DeliveryHints(t *testing.T) {
	msg := notify.BuildMessage(&alert.Alert{}, "alert-3", notify.DefaultMessageDefaults(), time.Now())

	assert.Equal(t, "high", msg.Android.Priority)
	assert.Equal(t, "agri_leafy_alerts", msg.Android.ChannelID)
	assert.Equal(t, "default", msg.Android.Sound)
	assert.Equal(t, "max", msg.Android.NotificationPriority)
	assert.True(t, msg.Android.DefaultVibrateTimings)
	assert.Equal(t, "default", msg.APNS.Sound)
	assert.Equal(t, 1, msg.APNS.Badge)
}

func TestBuildMessage_CustomDefaults(t *testing.T) {
	defaults := notify.MessageDefaults{
		Title:       "Greenhouse Alert",
		Body:        "Inspect the greenhouse",
		ChannelID:   "greenhouse",
		ClickAction: "OPEN_APP",
	}

	msg := notify.BuildMessage(&alert.Alert{}, "alert-4", defaults, time.Now())

	assert.Equal(t, "Greenhouse Alert", msg.Title)
	assert.Equal(t, "Inspect the greenhouse", msg.Body)
	assert.Equal(t, "greenhouse", msg.Android.ChannelID)
	assert.Equal(t, "OPEN_APP", msg.Data["click_action"])
}
