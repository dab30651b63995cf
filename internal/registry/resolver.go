package registry

import (
	"context"

	"github.com/rs/zerolog"
)

// Resolver resolves the set of active push tokens for a device.
type Resolver struct {
	repo   Repository
	logger zerolog.Logger
}

// NewResolver creates a new recipient resolver.
func NewResolver(repo Repository, logger zerolog.Logger) *Resolver {
	return &Resolver{repo: repo, logger: logger}
}

// Resolve reads the device's token registrations in one snapshot and returns
// the active token values. A device with no registrations, or no active
// ones, resolves to an empty set: the caller skips dispatch entirely rather
// than treating it as an error.
func (r *Resolver) Resolve(ctx context.Context, deviceID string) ([]string, error) {
	registrations, err := r.repo.ListByDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	tokens := make([]string, 0, len(registrations))
	for _, reg := range registrations {
		if reg.Active {
			tokens = append(tokens, reg.Token)
		}
	}

	if len(tokens) == 0 {
		r.logger.Debug().
			Str("device_id", deviceID).
			Int("registered", len(registrations)).
			Msg("no active tokens for device")
	}

	return tokens, nil
}
