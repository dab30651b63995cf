package alert_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buuuuds/Smart-Agri-Leafy-Shield/internal/alert"
)

func TestInMemoryRepository_GetAndCreate(t *testing.T) {
	repo := alert.NewInMemoryRepository()
	ctx := context.Background()

	_, err := repo.Get(ctx, "d1", "a1")
	assert.ErrorIs(t, err, alert.ErrAlertNotFound)

	require.NoError(t, repo.Create(ctx, &alert.Alert{
		DeviceID: "d1",
		AlertID:  "a1",
		Title:    "High Moisture",
		Priority: "high",
	}))

	got, err := repo.Get(ctx, "d1", "a1")
	require.NoError(t, err)
	assert.Equal(t, "High Moisture", got.Title)
	assert.False(t, got.Sent)
}

func TestInMemoryRepository_ClaimDispatch(t *testing.T) {
	repo := alert.NewInMemoryRepository()
	ctx := context.Background()

	// Claiming an unknown alert never wins.
	claimed, err := repo.ClaimDispatch(ctx, "d1", "missing")
	require.NoError(t, err)
	assert.False(t, claimed)

	require.NoError(t, repo.Create(ctx, &alert.Alert{DeviceID: "d1", AlertID: "a1"}))

	claimed, err = repo.ClaimDispatch(ctx, "d1", "a1")
	require.NoError(t, err)
	assert.True(t, claimed, "first claim should win")

	claimed, err = repo.ClaimDispatch(ctx, "d1", "a1")
	require.NoError(t, err)
	assert.False(t, claimed, "replayed claim should lose")
}

func TestInMemoryRepository_ReleaseDispatch(t *testing.T) {
	repo := alert.NewInMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &alert.Alert{DeviceID: "d1", AlertID: "a1"}))

	claimed, err := repo.ClaimDispatch(ctx, "d1", "a1")
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, repo.ReleaseDispatch(ctx, "d1", "a1"))

	claimed, err = repo.ClaimDispatch(ctx, "d1", "a1")
	require.NoError(t, err)
	assert.True(t, claimed, "claim should be available again after release")
}

func TestInMemoryRepository_MarkSentOverwrites(t *testing.T) {
	repo := alert.NewInMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &alert.Alert{DeviceID: "d1", AlertID: "a1"}))

	sentAt := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	outcome := alert.DeliveryOutcome{SentAt: sentAt, RecipientCount: 3}

	require.NoError(t, repo.MarkSent(ctx, "d1", "a1", outcome))
	require.NoError(t, repo.MarkSent(ctx, "d1", "a1", outcome))

	got, err := repo.Get(ctx, "d1", "a1")
	require.NoError(t, err)
	assert.True(t, got.Sent)
	assert.Equal(t, 3, got.RecipientCount, "repeated writes must overwrite, not accumulate")
	require.NotNil(t, got.SentAt)
	assert.Equal(t, sentAt, *got.SentAt)
}

func TestInMemoryRepository_ListDevices(t *testing.T) {
	repo := alert.NewInMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &alert.Alert{DeviceID: "d2", AlertID: "a1"}))
	require.NoError(t, repo.Create(ctx, &alert.Alert{DeviceID: "d1", AlertID: "a1"}))
	require.NoError(t, repo.Create(ctx, &alert.Alert{DeviceID: "d1", AlertID: "a2"}))

	devices, err := repo.ListDevices(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"d1", "d2"}, devices)
}

func TestInMemoryRepository_DeleteIsIdempotent(t *testing.T) {
	repo := alert.NewInMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &alert.Alert{DeviceID: "d1", AlertID: "a1"}))

	require.NoError(t, repo.Delete(ctx, "d1", "a1"))
	require.NoError(t, repo.Delete(ctx, "d1", "a1"))

	_, err := repo.Get(ctx, "d1", "a1")
	assert.ErrorIs(t, err, alert.ErrAlertNotFound)
}
