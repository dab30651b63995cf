package notify_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buuuuds/Smart-Agri-Leafy-Shield/internal/alert"
	"github.com/buuuuds/Smart-Agri-Leafy-Shield/internal/notify"
)

// fakeGateway scripts multicast outcomes for tests.
type fakeGateway struct {
	calls    int
	gotMsg   *notify.Message
	gotToken []string

	report *notify.DeliveryReport
	err    error
}

func (f *fakeGateway) SendMulticast(_ context.Context, msg *notify.Message, tokens []string) (*notify.DeliveryReport, error) {
	f.calls++
	f.gotMsg = msg
	f.gotToken = tokens
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

func reportFor(outcomes ...notify.TokenOutcome) *notify.DeliveryReport {
	report := &notify.DeliveryReport{
		AttemptedCount: len(outcomes),
		Outcomes:       outcomes,
	}
	for _, o := range outcomes {
		if o.Success {
			report.SuccessCount++
		} else {
			report.FailureCount++
		}
	}
	return report
}

func TestDispatcher_EmptyRecipientsShortCircuits(t *testing.T) {
	gw := &fakeGateway{}
	d := notify.NewDispatcher(notify.DispatcherConfig{Gateway: gw, Logger: zerolog.Nop()})

	report, err := d.Dispatch(context.Background(), "d1", "a1", &alert.Alert{}, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, gw.calls, "gateway must not be called for an empty recipient set")
	assert.Equal(t, 0, report.AttemptedCount)
	assert.Equal(t, 0, report.SuccessCount)
}

func TestDispatcher_SingleMulticastCall(t *testing.T) {
	gw := &fakeGateway{report: reportFor(
		notify.TokenOutcome{Token: "tA", Success: true},
		notify.TokenOutcome{Token: "tB", Success: true},
	)}
	d := notify.NewDispatcher(notify.DispatcherConfig{Gateway: gw, Logger: zerolog.Nop()})

	a := &alert.Alert{Title: "High Moisture", Priority: "high"}
	report, err := d.Dispatch(context.Background(), "d1", "a1", a, []string{"tA", "tB"})
	require.NoError(t, err)

	assert.Equal(t, 1, gw.calls, "exactly one multicast call per dispatch")
	assert.Equal(t, []string{"tA", "tB"}, gw.gotToken)
	assert.Equal(t, "High Moisture", gw.gotMsg.Title)
	assert.Equal(t, 2, report.SuccessCount)
}

func TestDispatcher_GatewayFailureSurfaces(t *testing.T) {
	gw := &fakeGateway{err: errors.New("gateway rejected batch")}
	d := notify.NewDispatcher(notify.DispatcherConfig{Gateway: gw, Logger: zerolog.Nop()})

	_, err := d.Dispatch(context.Background(), "d1", "a1", &alert.Alert{}, []string{"tA"})
	require.Error(t, err)

	assert.Equal(t, 1, gw.calls, "no retry on whole-batch failure")
}
