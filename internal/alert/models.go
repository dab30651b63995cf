// Package alert provides alert record persistence and lifecycle bookkeeping.
package alert

import (
	"errors"
	"time"
)

// Repository errors.
var (
	ErrAlertNotFound = errors.New("alert not found")
)

// Priority levels carried on an alert. Free-form strings from the ingestion
// side are normalized via NormalizePriority before use.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// DefaultRetentionWindow is how long alert records are kept before the
// retention sweep deletes them.
const DefaultRetentionWindow = 7 * 24 * time.Hour

// Alert represents a sensor-triggered alert record for one device.
type Alert struct {
	DeviceID string
	AlertID  string

	Title    string
	Message  string
	Priority string

	// Timestamp is the ingestion-assigned ISO-8601 timestamp, kept as the
	// raw string. Records with an unparseable timestamp are retained by the
	// sweeper, so parsing is deferred to read time.
	Timestamp string

	// Delivery bookkeeping, written once by the outcome handler.
	Sent           bool
	SentAt         *time.Time
	RecipientCount int

	// DispatchClaimed guards against duplicate sends on event replay.
	DispatchClaimed bool
}

// NormalizePriority maps an arbitrary priority string onto a known level,
// defaulting to medium.
func NormalizePriority(p string) string {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p
	default:
		return PriorityMedium
	}
}

// ParsedTimestamp parses the alert's ISO-8601 timestamp.
// Returns ok=false when the timestamp is missing or unparseable.
func (a *Alert) ParsedTimestamp() (time.Time, bool) {
	if a.Timestamp == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, a.Timestamp)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// OlderThan reports whether the alert's timestamp is older than the given
// cutoff. Alerts without a parseable timestamp are never considered old.
func (a *Alert) OlderThan(cutoff time.Time) bool {
	t, ok := a.ParsedTimestamp()
	if !ok {
		return false
	}
	return t.Before(cutoff)
}

// DeliveryOutcome is the terminal bookkeeping written onto an alert after a
// dispatch attempt completes.
type DeliveryOutcome struct {
	SentAt         time.Time
	RecipientCount int
}
