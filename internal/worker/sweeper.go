package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"

	"github.com/buuuuds/Smart-Agri-Leafy-Shield/internal/alert"
	"github.com/buuuuds/Smart-Agri-Leafy-Shield/internal/telemetry"
)

// Sweeper deletes alert records older than the retention window. It scans
// every device's alert collection on each run; a failure on one device is
// logged and the sweep continues with the rest.
type Sweeper struct {
	alerts alert.Repository
	window time.Duration
	logger zerolog.Logger
	now    func() time.Time

	metrics *SweeperMetrics

	alertsDeleted metric.Int64Counter
}

// SweeperConfig holds configuration for creating a Sweeper.
type SweeperConfig struct {
	Alerts alert.Repository

	// Window is the retention window. Default: alert.DefaultRetentionWindow.
	Window time.Duration

	Logger zerolog.Logger

	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// SweeperMetrics tracks retention sweep statistics.
type SweeperMetrics struct {
	mu sync.RWMutex

	TotalRuns       int64
	TotalDeleted    int64
	LastRunAt       time.Time
	LastDuration    time.Duration
	LastDeleted     int
	LastDeviceCount int
	DeviceFailures  int64
}

// SweepResult contains the result of one retention sweep.
type SweepResult struct {
	RunID         string
	StartTime     time.Time
	Duration      time.Duration
	Devices       int
	Deleted       int
	FailedDevices int
}

// NewSweeper creates a new retention sweeper.
func NewSweeper(cfg SweeperConfig) (*Sweeper, error) {
	window := cfg.Window
	if window == 0 {
		window = alert.DefaultRetentionWindow
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	alertsDeleted, err := telemetry.Meter("notifier").Int64Counter("notifier.alerts_deleted",
		metric.WithDescription("Alert records deleted by the retention sweep"))
	if err != nil {
		return nil, err
	}

	return &Sweeper{
		alerts:        cfg.Alerts,
		window:        window,
		logger:        cfg.Logger,
		now:           now,
		metrics:       &SweeperMetrics{},
		alertsDeleted: alertsDeleted,
	}, nil
}

// Run executes one retention sweep over every known device. Alerts whose
// timestamp is older than the retention window are deleted; alerts without
// a parseable timestamp are retained regardless of age.
func (s *Sweeper) Run(ctx context.Context) *SweepResult {
	startTime := s.now()
	result := &SweepResult{
		RunID:     uuid.NewString(),
		StartTime: startTime,
	}
	cutoff := startTime.Add(-s.window)

	logger := s.logger.With().Str("run_id", result.RunID).Logger()
	logger.Info().Time("cutoff", cutoff).Msg("starting retention sweep")

	devices, err := s.alerts.ListDevices(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to enumerate devices, aborting sweep")
		result.Duration = s.now().Sub(startTime)
		s.updateMetrics(result)
		return result
	}
	result.Devices = len(devices)

	for _, deviceID := range devices {
		deleted, err := s.sweepDevice(ctx, deviceID, cutoff)
		if err != nil {
			logger.Warn().Err(err).Str("device_id", deviceID).Msg("sweep failed for device, continuing")
			result.FailedDevices++
			continue
		}
		result.Deleted += deleted
	}

	result.Duration = s.now().Sub(startTime)
	s.alertsDeleted.Add(ctx, int64(result.Deleted))
	s.updateMetrics(result)

	logger.Info().
		Int("devices", result.Devices).
		Int("deleted", result.Deleted).
		Int("failed_devices", result.FailedDevices).
		Dur("duration", result.Duration).
		Msg("retention sweep completed")

	return result
}

// sweepDevice deletes one device's expired alerts and returns the count.
func (s *Sweeper) sweepDevice(ctx context.Context, deviceID string, cutoff time.Time) (int, error) {
	alerts, err := s.alerts.ListByDevice(ctx, deviceID)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, a := range alerts {
		if !a.OlderThan(cutoff) {
			continue
		}

		if err := s.alerts.Delete(ctx, deviceID, a.AlertID); err != nil {
			// Deletes are independent and idempotent; keep going.
			s.logger.Warn().Err(err).
				Str("device_id", deviceID).
				Str("alert_id", a.AlertID).
				Msg("failed to delete expired alert")
			continue
		}
		deleted++
	}

	return deleted, nil
}

func (s *Sweeper) updateMetrics(result *SweepResult) {
	s.metrics.mu.Lock()
	defer s.metrics.mu.Unlock()

	s.metrics.TotalRuns++
	s.metrics.TotalDeleted += int64(result.Deleted)
	s.metrics.LastRunAt = result.StartTime
	s.metrics.LastDuration = result.Duration
	s.metrics.LastDeleted = result.Deleted
	s.metrics.LastDeviceCount = result.Devices
	s.metrics.DeviceFailures += int64(result.FailedDevices)
}

// GetMetrics returns a copy of the current sweeper metrics.
func (s *Sweeper) GetMetrics() SweeperMetrics {
	s.metrics.mu.RLock()
	defer s.metrics.mu.RUnlock()

	return SweeperMetrics{
		TotalRuns:       s.metrics.TotalRuns,
		TotalDeleted:    s.metrics.TotalDeleted,
		LastRunAt:       s.metrics.LastRunAt,
		LastDuration:    s.metrics.LastDuration,
		LastDeleted:     s.metrics.LastDeleted,
		LastDeviceCount: s.metrics.LastDeviceCount,
		DeviceFailures:  s.metrics.DeviceFailures,
	}
}
