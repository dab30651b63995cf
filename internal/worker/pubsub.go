package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// PubSubHandler consumes alert creation events from a Pub/Sub subscription
// and feeds them to the dispatch pipeline.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	pipeline         *Pipeline
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Pipeline         *Pipeline
	Logger           zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// Configure receive settings.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 10
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		pipeline:         cfg.Pipeline,
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing alert creation events.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting alert event handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	startTime := time.Now()

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received alert event")

	var evt AlertCreatedEvent
	if err := json.Unmarshal(msg.Data, &evt); err != nil {
		// Redelivery cannot fix a malformed payload.
		logger.Error().Err(err).Msg("failed to parse alert event, dropping")
		msg.Ack()
		return
	}

	if evt.DeviceID == "" || evt.AlertID == "" {
		logger.Error().Msg("alert event missing device or alert id, dropping")
		msg.Ack()
		return
	}

	// The pipeline handles all its own failures; acking unconditionally
	// keeps logical no-ops from looking like infrastructure failures to
	// the platform.
	h.pipeline.HandleAlertCreated(ctx, evt)

	logger.Info().
		Str("device_id", evt.DeviceID).
		Str("alert_id", evt.AlertID).
		Dur("duration", time.Since(startTime)).
		Msg("alert event processed")

	msg.Ack()
}
