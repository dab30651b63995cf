package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/buuuuds/Smart-Agri-Leafy-Shield/internal/alert"
	"github.com/buuuuds/Smart-Agri-Leafy-Shield/internal/registry"
)

// Finalizer applies the delivery outcome of a dispatch attempt: it prunes
// failed tokens from the registry and writes delivery bookkeeping onto the
// alert record.
type Finalizer struct {
	alerts alert.Repository
	tokens registry.Repository
	logger zerolog.Logger
	now    func() time.Time
}

// FinalizerConfig holds configuration for creating a Finalizer.
type FinalizerConfig struct {
	Alerts alert.Repository
	Tokens registry.Repository
	Logger zerolog.Logger

	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// NewFinalizer creates a new delivery outcome handler.
func NewFinalizer(cfg FinalizerConfig) *Finalizer {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Finalizer{
		alerts: cfg.Alerts,
		tokens: cfg.Tokens,
		logger: cfg.Logger,
		now:    now,
	}
}

// Finalize removes every failed token from the registry and writes
// sent/sentAt/recipientCount onto the alert. The bookkeeping write happens
// unconditionally, even for a zero-success report, and overwrites rather
// than accumulates, so repeating it with the same report is idempotent.
//
// Pruning is a prune-on-bounce policy: a single reported failure removes
// the registration until the client re-registers. Removal of an absent
// registration is a no-op, so concurrent finalizations do not conflict.
func (f *Finalizer) Finalize(ctx context.Context, deviceID, alertID string, report *DeliveryReport) error {
	failed := report.FailedTokens()
	for _, token := range failed {
		if err := f.tokens.Remove(ctx, deviceID, token); err != nil {
			return fmt.Errorf("remove failed token: %w", err)
		}
	}

	if len(failed) > 0 {
		f.logger.Info().
			Str("device_id", deviceID).
			Str("alert_id", alertID).
			Int("pruned", len(failed)).
			Msg("removed failed tokens from registry")
	}

	outcome := alert.DeliveryOutcome{
		SentAt:         f.now(),
		RecipientCount: report.SuccessCount,
	}
	if err := f.alerts.MarkSent(ctx, deviceID, alertID, outcome); err != nil {
		return fmt.Errorf("mark alert sent: %w", err)
	}

	return nil
}
