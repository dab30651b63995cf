package alert

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use the PostgreSQL implementation.
type InMemoryRepository struct {
	mu     sync.RWMutex
	alerts map[string]map[string]*Alert // device ID -> alert ID -> alert
}

// NewInMemoryRepository creates a new in-memory alert repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		alerts: make(map[string]map[string]*Alert),
	}
}

// Get retrieves an alert by device ID and alert ID.
func (r *InMemoryRepository) Get(_ context.Context, deviceID, alertID string) (*Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.alerts[deviceID][alertID]
	if !ok {
		return nil, ErrAlertNotFound
	}

	return copyAlert(a), nil
}

// Create creates a new alert record.
func (r *InMemoryRepository) Create(_ context.Context, a *Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.alerts[a.DeviceID] == nil {
		r.alerts[a.DeviceID] = make(map[string]*Alert)
	}
	r.alerts[a.DeviceID][a.AlertID] = copyAlert(a)
	return nil
}

// ListByDevice retrieves all alerts for a device.
func (r *InMemoryRepository) ListByDevice(_ context.Context, deviceID string) ([]*Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]*Alert, 0, len(r.alerts[deviceID]))
	for _, a := range r.alerts[deviceID] {
		items = append(items, copyAlert(a))
	}

	sort.Slice(items, func(i, j int) bool { return items[i].AlertID < items[j].AlertID })
	return items, nil
}

// ListDevices enumerates every device ID that has at least one alert.
func (r *InMemoryRepository) ListDevices(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]string, 0, len(r.alerts))
	for id, alerts := range r.alerts {
		if len(alerts) > 0 {
			devices = append(devices, id)
		}
	}

	sort.Strings(devices)
	return devices, nil
}

// ClaimDispatch atomically marks the alert as claimed for dispatch.
func (r *InMemoryRepository) ClaimDispatch(_ context.Context, deviceID, alertID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.alerts[deviceID][alertID]
	if !ok {
		return false, nil
	}
	if a.DispatchClaimed {
		return false, nil
	}

	a.DispatchClaimed = true
	return true, nil
}

// ReleaseDispatch clears the dispatch claim.
func (r *InMemoryRepository) ReleaseDispatch(_ context.Context, deviceID, alertID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.alerts[deviceID][alertID]; ok {
		a.DispatchClaimed = false
	}
	return nil
}

// MarkSent writes the delivery outcome onto the alert.
func (r *InMemoryRepository) MarkSent(_ context.Context, deviceID, alertID string, outcome DeliveryOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.alerts[deviceID][alertID]
	if !ok {
		return ErrAlertNotFound
	}

	sentAt := outcome.SentAt
	a.Sent = true
	a.SentAt = &sentAt
	a.RecipientCount = outcome.RecipientCount
	return nil
}

// Delete removes an alert. Deleting an absent alert is a no-op.
func (r *InMemoryRepository) Delete(_ context.Context, deviceID, alertID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.alerts[deviceID], alertID)
	return nil
}

// copyAlert returns a copy of the alert to prevent external mutation.
func copyAlert(a *Alert) *Alert {
	c := *a
	if a.SentAt != nil {
		sentAt := *a.SentAt
		c.SentAt = &sentAt
	}
	return &c
}
