package resilience

import (
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// GatewayHealth is the health status of one outbound gateway, derived from
// its circuit breaker plus the last observed success and failure.
type GatewayHealth struct {
	// Name is the gateway identifier.
	Name string

	// CircuitState is the current circuit breaker state.
	CircuitState gobreaker.State

	// Counts contains circuit breaker statistics.
	Counts gobreaker.Counts

	// LastSuccessAt is the timestamp of the last successful request.
	LastSuccessAt *time.Time

	// LastFailureAt is the timestamp of the last failed request.
	LastFailureAt *time.Time

	// LastError is the most recent error message, if any.
	LastError string
}

// IsHealthy returns true if the gateway is considered healthy.
func (h *GatewayHealth) IsHealthy() bool {
	return h.CircuitState == gobreaker.StateClosed
}

// HealthTracker tracks the health of registered gateway clients.
// Safe for concurrent use.
type HealthTracker struct {
	mu       sync.RWMutex
	gateways map[string]*trackedGateway
}

type trackedGateway struct {
	client        *Client
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
}

// NewHealthTracker creates a new gateway health tracker.
func NewHealthTracker() *HealthTracker {
	return &HealthTracker{
		gateways: make(map[string]*trackedGateway),
	}
}

// Register adds a gateway client to the tracker.
func (t *HealthTracker) Register(name string, client *Client) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gateways[name] = &trackedGateway{client: client}
}

// RecordSuccess records a successful request for a gateway.
func (t *HealthTracker) RecordSuccess(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if g, ok := t.gateways[name]; ok {
		now := time.Now()
		g.lastSuccessAt = &now
	}
}

// RecordFailure records a failed request for a gateway.
func (t *HealthTracker) RecordFailure(name string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if g, ok := t.gateways[name]; ok {
		now := time.Now()
		g.lastFailureAt = &now
		if err != nil {
			g.lastError = err.Error()
		}
	}
}

// Health returns the health status of a specific gateway, or nil if the
// name is unknown.
func (t *HealthTracker) Health(name string) *GatewayHealth {
	t.mu.RLock()
	defer t.mu.RUnlock()

	g, ok := t.gateways[name]
	if !ok {
		return nil
	}

	return &GatewayHealth{
		Name:          name,
		CircuitState:  g.client.CircuitBreakerState(),
		Counts:        g.client.CircuitBreakerCounts(),
		LastSuccessAt: g.lastSuccessAt,
		LastFailureAt: g.lastFailureAt,
		LastError:     g.lastError,
	}
}

// AllHealth returns the health status of every registered gateway.
func (t *HealthTracker) AllHealth() []*GatewayHealth {
	t.mu.RLock()
	defer t.mu.RUnlock()

	health := make([]*GatewayHealth, 0, len(t.gateways))
	for name := range t.gateways {
		g := t.gateways[name]
		health = append(health, &GatewayHealth{
			Name:          name,
			CircuitState:  g.client.CircuitBreakerState(),
			Counts:        g.client.CircuitBreakerCounts(),
			LastSuccessAt: g.lastSuccessAt,
			LastFailureAt: g.lastFailureAt,
			LastError:     g.lastError,
		})
	}

	return health
}
