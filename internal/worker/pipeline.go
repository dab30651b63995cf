// Package worker provides the alert dispatch pipeline and the retention
// sweep for the notifier service.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"

	"github.com/buuuuds/Smart-Agri-Leafy-Shield/internal/alert"
	"github.com/buuuuds/Smart-Agri-Leafy-Shield/internal/notify"
	"github.com/buuuuds/Smart-Agri-Leafy-Shield/internal/registry"
	"github.com/buuuuds/Smart-Agri-Leafy-Shield/internal/telemetry"
)

// AlertCreatedEvent is the trigger payload delivered once per newly created
// alert record: the owning device, the alert id, and a full snapshot of the
// record at creation time.
type AlertCreatedEvent struct {
	DeviceID string      `json:"device_id"`
	AlertID  string      `json:"alert_id"`
	Alert    AlertRecord `json:"alert"`
}

// AlertRecord is the alert snapshot carried on a creation event.
type AlertRecord struct {
	Title     string `json:"title"`
	Message   string `json:"message"`
	Priority  string `json:"priority"`
	Timestamp string `json:"timestamp"`
}

// Pipeline orchestrates the dispatch of one alert: claim, resolve
// recipients, dispatch, finalize. Every invocation is independent; failures
// are logged and swallowed so the trigger source never escalates a logical
// no-op into a platform retry storm.
type Pipeline struct {
	alerts     alert.Repository
	resolver   *registry.Resolver
	dispatcher *notify.Dispatcher
	finalizer  *notify.Finalizer
	logger     zerolog.Logger

	metrics *PipelineMetrics

	notificationsSent metric.Int64Counter
	tokensPruned      metric.Int64Counter
	alertsProcessed   metric.Int64Counter
}

// PipelineConfig holds configuration for creating a Pipeline.
type PipelineConfig struct {
	Alerts     alert.Repository
	Resolver   *registry.Resolver
	Dispatcher *notify.Dispatcher
	Finalizer  *notify.Finalizer
	Logger     zerolog.Logger
}

// PipelineMetrics tracks dispatch pipeline statistics.
type PipelineMetrics struct {
	mu sync.RWMutex

	Processed        int64
	Skipped          int64
	Delivered        int64
	PrunedTokens     int64
	DispatchFailures int64
	LastProcessedAt  time.Time
}

// NewPipeline creates a new dispatch pipeline.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	meter := telemetry.Meter("notifier")

	notificationsSent, err := meter.Int64Counter("notifier.notifications_sent",
		metric.WithDescription("Recipients successfully delivered to"))
	if err != nil {
		return nil, err
	}

	tokensPruned, err := meter.Int64Counter("notifier.tokens_pruned",
		metric.WithDescription("Registrations removed after delivery failure"))
	if err != nil {
		return nil, err
	}

	alertsProcessed, err := meter.Int64Counter("notifier.alerts_processed",
		metric.WithDescription("Alert creation events processed"))
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		alerts:            cfg.Alerts,
		resolver:          cfg.Resolver,
		dispatcher:        cfg.Dispatcher,
		finalizer:         cfg.Finalizer,
		logger:            cfg.Logger,
		metrics:           &PipelineMetrics{},
		notificationsSent: notificationsSent,
		tokensPruned:      tokensPruned,
		alertsProcessed:   alertsProcessed,
	}, nil
}

// HandleAlertCreated runs the full dispatch pipeline for one alert creation
// event. It never returns an error: the trigger source delivers at least
// once, and every failure mode here is either benign (already claimed, no
// recipients) or unrecoverable by redelivery (whole-batch send failure,
// which releases the claim for later reprocessing).
func (p *Pipeline) HandleAlertCreated(ctx context.Context, evt AlertCreatedEvent) {
	logger := p.logger.With().
		Str("device_id", evt.DeviceID).
		Str("alert_id", evt.AlertID).
		Logger()

	logger.Info().
		Str("title", evt.Alert.Title).
		Str("priority", evt.Alert.Priority).
		Msg("alert created")

	p.alertsProcessed.Add(ctx, 1)

	claimed, err := p.alerts.ClaimDispatch(ctx, evt.DeviceID, evt.AlertID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to claim dispatch")
		p.recordSkip()
		return
	}
	if !claimed {
		logger.Debug().Msg("dispatch already claimed, skipping replayed event")
		p.recordSkip()
		return
	}

	// Resolution failures degrade to an empty recipient set: the alert is
	// still finalized with recipientCount 0.
	tokens, err := p.resolver.Resolve(ctx, evt.DeviceID)
	if err != nil {
		logger.Warn().Err(err).Msg("recipient resolution failed, treating as zero recipients")
		tokens = nil
	}

	a := &alert.Alert{
		DeviceID:  evt.DeviceID,
		AlertID:   evt.AlertID,
		Title:     evt.Alert.Title,
		Message:   evt.Alert.Message,
		Priority:  evt.Alert.Priority,
		Timestamp: evt.Alert.Timestamp,
	}

	report, err := p.dispatcher.Dispatch(ctx, evt.DeviceID, evt.AlertID, a, tokens)
	if err != nil {
		logger.Error().Err(err).Msg("multicast send failed, aborting pipeline for this alert")
		p.recordDispatchFailure()

		// Release the claim so the alert stays eligible for reprocessing.
		if releaseErr := p.alerts.ReleaseDispatch(ctx, evt.DeviceID, evt.AlertID); releaseErr != nil {
			logger.Error().Err(releaseErr).Msg("failed to release dispatch claim")
		}
		return
	}

	if err := p.finalizer.Finalize(ctx, evt.DeviceID, evt.AlertID, report); err != nil {
		logger.Error().Err(err).Msg("failed to finalize delivery outcome")
		return
	}

	p.notificationsSent.Add(ctx, int64(report.SuccessCount))
	p.tokensPruned.Add(ctx, int64(report.FailureCount))
	p.recordDelivery(report)

	logger.Info().
		Int("recipients", report.SuccessCount).
		Int("pruned", report.FailureCount).
		Msg("alert dispatch completed")
}

func (p *Pipeline) recordSkip() {
	p.metrics.mu.Lock()
	defer p.metrics.mu.Unlock()
	p.metrics.Processed++
	p.metrics.Skipped++
	p.metrics.LastProcessedAt = time.Now()
}

func (p *Pipeline) recordDispatchFailure() {
	p.metrics.mu.Lock()
	defer p.metrics.mu.Unlock()
	p.metrics.Processed++
	p.metrics.DispatchFailures++
	p.metrics.LastProcessedAt = time.Now()
}

func (p *Pipeline) recordDelivery(report *notify.DeliveryReport) {
	p.metrics.mu.Lock()
	defer p.metrics.mu.Unlock()
	p.metrics.Processed++
	p.metrics.Delivered += int64(report.SuccessCount)
	p.metrics.PrunedTokens += int64(report.FailureCount)
	p.metrics.LastProcessedAt = time.Now()
}

// GetMetrics returns a copy of the current pipeline metrics.
func (p *Pipeline) GetMetrics() PipelineMetrics {
	p.metrics.mu.RLock()
	defer p.metrics.mu.RUnlock()

	return PipelineMetrics{
		Processed:        p.metrics.Processed,
		Skipped:          p.metrics.Skipped,
		Delivered:        p.metrics.Delivered,
		PrunedTokens:     p.metrics.PrunedTokens,
		DispatchFailures: p.metrics.DispatchFailures,
		LastProcessedAt:  p.metrics.LastProcessedAt,
	}
}
