package worker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buuuuds/Smart-Agri-Leafy-Shield/internal/alert"
	"github.com/buuuuds/Smart-Agri-Leafy-Shield/internal/worker"
)

func newSweeper(t *testing.T, alerts alert.Repository, now time.Time) *worker.Sweeper {
	t.Helper()

	sweeper, err := worker.NewSweeper(worker.SweeperConfig{
		Alerts: alerts,
		Logger: zerolog.Nop(),
		Now:    func() time.Time { return now },
	})
	require.NoError(t, err)
	return sweeper
}

func seedAlert(t *testing.T, repo alert.Repository, deviceID, alertID, timestamp string) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), &alert.Alert{
		DeviceID:  deviceID,
		AlertID:   alertID,
		Title:     "Low Moisture",
		Timestamp: timestamp,
	}))
}

func TestSweeper_DeletesExpiredRetainsRecent(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 29, 3, 0, 0, 0, time.UTC)

	repo := alert.NewInMemoryRepository()
	seedAlert(t, repo, "d1", "old", now.Add(-8*24*time.Hour).Format(time.RFC3339))
	seedAlert(t, repo, "d1", "recent", now.Add(-6*24*time.Hour).Format(time.RFC3339))

	sweeper := newSweeper(t, repo, now)
	result := sweeper.Run(ctx)

	assert.Equal(t, 1, result.Devices)
	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, 0, result.FailedDevices)

	_, err := repo.Get(ctx, "d1", "old")
	assert.ErrorIs(t, err, alert.ErrAlertNotFound)

	_, err = repo.Get(ctx, "d1", "recent")
	assert.NoError(t, err)
}

func TestSweeper_RetainsUnparseableTimestamps(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 29, 3, 0, 0, 0, time.UTC)

	repo := alert.NewInMemoryRepository()
	seedAlert(t, repo, "d1", "garbled", "not-a-timestamp")
	seedAlert(t, repo, "d1", "empty", "")

	sweeper := newSweeper(t, repo, now)
	result := sweeper.Run(ctx)

	assert.Equal(t, 0, result.Deleted, "records without a parseable timestamp are never deleted")

	_, err := repo.Get(ctx, "d1", "garbled")
	assert.NoError(t, err)
	_, err = repo.Get(ctx, "d1", "empty")
	assert.NoError(t, err)
}

func TestSweeper_BoundaryIsExclusive(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 29, 3, 0, 0, 0, time.UTC)

	repo := alert.NewInMemoryRepository()
	// Exactly at the cutoff is not older than the cutoff.
	seedAlert(t, repo, "d1", "at-cutoff", now.Add(-7*24*time.Hour).Format(time.RFC3339))

	sweeper := newSweeper(t, repo, now)
	result := sweeper.Run(ctx)

	assert.Equal(t, 0, result.Deleted)
}

func TestSweeper_SweepsEveryDevice(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 29, 3, 0, 0, 0, time.UTC)
	expired := now.Add(-10 * 24 * time.Hour).Format(time.RFC3339)

	repo := alert.NewInMemoryRepository()
	seedAlert(t, repo, "d1", "a1", expired)
	seedAlert(t, repo, "d2", "a2", expired)
	seedAlert(t, repo, "d3", "a3", now.Format(time.RFC3339))

	sweeper := newSweeper(t, repo, now)
	result := sweeper.Run(ctx)

	assert.Equal(t, 3, result.Devices)
	assert.Equal(t, 2, result.Deleted)
}

// faultyDeviceRepo fails ListByDevice for one device to exercise the sweep's
// continue-on-failure behavior.
type faultyDeviceRepo struct {
	alert.Repository
	faultyDevice string
}

func (r *faultyDeviceRepo) ListByDevice(ctx context.Context, deviceID string) ([]*alert.Alert, error) {
	if deviceID == r.faultyDevice {
		return nil, errors.New("backend unavailable")
	}
	return r.Repository.ListByDevice(ctx, deviceID)
}

func TestSweeper_DeviceFailureDoesNotAbortSweep(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 29, 3, 0, 0, 0, time.UTC)
	expired := now.Add(-10 * 24 * time.Hour).Format(time.RFC3339)

	mem := alert.NewInMemoryRepository()
	seedAlert(t, mem, "d-bad", "a1", expired)
	seedAlert(t, mem, "d-good", "a2", expired)

	repo := &faultyDeviceRepo{Repository: mem, faultyDevice: "d-bad"}

	sweeper := newSweeper(t, repo, now)
	result := sweeper.Run(ctx)

	assert.Equal(t, 1, result.FailedDevices)
	assert.Equal(t, 1, result.Deleted, "healthy devices are still swept")

	_, err := mem.Get(ctx, "d-bad", "a1")
	assert.NoError(t, err, "the failed device's alerts are untouched")
}

func TestSweeper_CustomWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 29, 3, 0, 0, 0, time.UTC)

	repo := alert.NewInMemoryRepository()
	seedAlert(t, repo, "d1", "a1", now.Add(-2*24*time.Hour).Format(time.RFC3339))

	sweeper, err := worker.NewSweeper(worker.SweeperConfig{
		Alerts: repo,
		Window: 24 * time.Hour,
		Logger: zerolog.Nop(),
		Now:    func() time.Time { return now },
	})
	require.NoError(t, err)

	result := sweeper.Run(ctx)
	assert.Equal(t, 1, result.Deleted)
}

func TestSweeper_Metrics(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 29, 3, 0, 0, 0, time.UTC)

	repo := alert.NewInMemoryRepository()
	seedAlert(t, repo, "d1", "a1", now.Add(-10*24*time.Hour).Format(time.RFC3339))

	sweeper := newSweeper(t, repo, now)
	sweeper.Run(ctx)
	sweeper.Run(ctx)

	metrics := sweeper.GetMetrics()
	assert.Equal(t, int64(2), metrics.TotalRuns)
	assert.Equal(t, int64(1), metrics.TotalDeleted)
	assert.Equal(t, 0, metrics.LastDeleted, "second run finds nothing to delete")
}
