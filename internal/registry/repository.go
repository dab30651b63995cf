package registry

import "context"

// Repository defines the interface for token registry persistence.
type Repository interface {
	// ListByDevice retrieves every registered token for a device, active or
	// not, in one snapshot. A device with no registrations yields an empty
	// slice, not an error.
	ListByDevice(ctx context.Context, deviceID string) ([]*RegisteredToken, error)

	// Register creates or replaces a token registration for a device,
	// keyed by TokenKey(token).
	Register(ctx context.Context, deviceID string, token *RegisteredToken) error

	// Remove deletes the registration for the given token value. Removing
	// an absent registration is a no-op.
	Remove(ctx context.Context, deviceID, token string) error
}
