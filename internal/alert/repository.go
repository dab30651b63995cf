package alert

import "context"

// Repository defines the interface for alert persistence.
type Repository interface {
	// Get retrieves an alert by device ID and alert ID.
	Get(ctx context.Context, deviceID, alertID string) (*Alert, error)

	// Create creates a new alert record.
	Create(ctx context.Context, a *Alert) error

	// ListByDevice retrieves all alerts for a device.
	ListByDevice(ctx context.Context, deviceID string) ([]*Alert, error)

	// ListDevices enumerates every device ID that has at least one alert.
	ListDevices(ctx context.Context) ([]string, error)

	// ClaimDispatch atomically marks the alert as claimed for dispatch.
	// Returns true if this call won the claim, false if the alert was
	// already claimed (or does not exist). Replayed creation events lose
	// the claim and must skip dispatch.
	ClaimDispatch(ctx context.Context, deviceID, alertID string) (bool, error)

	// ReleaseDispatch clears the dispatch claim so a later trigger replay
	// can reprocess the alert. Used when the whole-batch send fails after
	// the claim was taken.
	ReleaseDispatch(ctx context.Context, deviceID, alertID string) error

	// MarkSent writes the delivery outcome onto the alert. The write is an
	// overwrite of the bookkeeping fields, safe to repeat with the same
	// outcome.
	MarkSent(ctx context.Context, deviceID, alertID string, outcome DeliveryOutcome) error

	// Delete removes an alert. Deleting an absent alert is a no-op.
	Delete(ctx context.Context, deviceID, alertID string) error
}
