package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/buuuuds/Smart-Agri-Leafy-Shield/internal/alert"
)

// Dispatcher builds notification payloads from alert records and delivers
// them to a recipient set via the push gateway.
type Dispatcher struct {
	gateway  Gateway
	defaults MessageDefaults
	logger   zerolog.Logger
	now      func() time.Time
}

// DispatcherConfig holds configuration for creating a Dispatcher.
type DispatcherConfig struct {
	Gateway Gateway

	// Defaults are the payload fallbacks. Zero value means
	// DefaultMessageDefaults.
	Defaults MessageDefaults

	Logger zerolog.Logger

	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// NewDispatcher creates a new notification dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	defaults := cfg.Defaults
	if defaults == (MessageDefaults{}) {
		defaults = DefaultMessageDefaults()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Dispatcher{
		gateway:  cfg.Gateway,
		defaults: defaults,
		logger:   cfg.Logger,
		now:      now,
	}
}

// Dispatch sends one multicast notification for the alert to the given
// recipient tokens. An empty recipient set short-circuits with a zero
// report and no gateway call. A whole-batch gateway failure is returned to
// the caller without retry; no state is mutated here.
func (d *Dispatcher) Dispatch(ctx context.Context, deviceID, alertID string, a *alert.Alert, tokens []string) (*DeliveryReport, error) {
	if len(tokens) == 0 {
		return &DeliveryReport{}, nil
	}

	msg := BuildMessage(a, alertID, d.defaults, d.now())

	d.logger.Info().
		Str("device_id", deviceID).
		Str("alert_id", alertID).
		Str("priority", msg.Data["priority"]).
		Int("recipients", len(tokens)).
		Msg("dispatching alert notification")

	report, err := d.gateway.SendMulticast(ctx, msg, tokens)
	if err != nil {
		return nil, fmt.Errorf("multicast send: %w", err)
	}

	d.logger.Info().
		Str("device_id", deviceID).
		Str("alert_id", alertID).
		Int("success", report.SuccessCount).
		Int("failed", report.FailureCount).
		Msg("multicast send completed")

	return report, nil
}
