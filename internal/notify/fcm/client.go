// Package fcm provides a Firebase Cloud Messaging HTTP v1 client implementing
// the multicast push gateway.
package fcm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/buuuuds/Smart-Agri-Leafy-Shield/internal/notify"
	"github.com/buuuuds/Smart-Agri-Leafy-Shield/internal/provider/resilience"
)

const (
	// DefaultBaseURL is the base URL for the FCM v1 API.
	DefaultBaseURL = "https://fcm.googleapis.com"

	// ProviderName identifies this provider.
	ProviderName = "fcm"
)

// FCM error codes that mark a token as permanently undeliverable.
const (
	ErrorCodeUnregistered     = "UNREGISTERED"
	ErrorCodeInvalidArgument  = "INVALID_ARGUMENT"
	ErrorCodeSenderIDMismatch = "SENDER_ID_MISMATCH"
)

// BearerSource supplies OAuth bearer tokens for the v1 API.
type BearerSource interface {
	Token(ctx context.Context) (string, error)
}

// ClientConfig holds configuration for the FCM client.
type ClientConfig struct {
	// ProjectID is the Firebase project the messages are sent under.
	ProjectID string

	// TokenSource supplies OAuth bearer tokens for the v1 API.
	TokenSource BearerSource

	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use (must implement HTTPDoer).
	// If nil, a default resilient client will be created.
	HTTPClient HTTPDoer

	// Timeout for individual send requests (default: 10s).
	Timeout time.Duration
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is an FCM v1 API client. It implements notify.Gateway by issuing
// one v1 send per token under a single batch authorization, aggregating the
// per-token outcomes into a delivery report.
type Client struct {
	projectID   string
	baseURL     string
	tokenSource BearerSource
	httpClient  HTTPDoer
}

// NewClient creates a new FCM client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:            ProviderName,
			Timeout:         timeout,
			MaxRetries:      3,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		})
	}

	return &Client{
		projectID:   cfg.ProjectID,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		tokenSource: cfg.TokenSource,
		httpClient:  httpClient,
	}
}

// Wire types for the FCM v1 send endpoint.

type sendRequest struct {
	Message wireMessage `json:"message"`
}

type wireMessage struct {
	Token        string            `json:"token"`
	Notification wireNotification  `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
	Android      *wireAndroid      `json:"android,omitempty"`
	APNS         *wireAPNS         `json:"apns,omitempty"`
}

type wireNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type wireAndroid struct {
	Priority     string                   `json:"priority,omitempty"`
	Notification *wireAndroidNotification `json:"notification,omitempty"`
}

type wireAndroidNotification struct {
	ChannelID             string `json:"channel_id,omitempty"`
	Sound                 string `json:"sound,omitempty"`
	NotificationPriority  string `json:"notification_priority,omitempty"`
	DefaultVibrateTimings bool   `json:"default_vibrate_timings,omitempty"`
}

type wireAPNS struct {
	Payload wireAPNSPayload `json:"payload"`
}

type wireAPNSPayload struct {
	APS wireAPS `json:"aps"`
}

type wireAPS struct {
	Sound string `json:"sound,omitempty"`
	Badge int    `json:"badge,omitempty"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
		Details []struct {
			Type      string `json:"@type"`
			ErrorCode string `json:"errorCode"`
		} `json:"details"`
	} `json:"error"`
}

// SendMulticast delivers the message to every token and reports per-token
// outcomes. A batch-level failure (credentials, transport) is returned as an
// error with no report; per-token rejections are captured in the report.
func (c *Client) SendMulticast(ctx context.Context, msg *notify.Message, tokens []string) (*notify.DeliveryReport, error) {
	bearer, err := c.tokenSource.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("obtain access token: %w", err)
	}

	report := &notify.DeliveryReport{
		AttemptedCount: len(tokens),
		Outcomes:       make([]notify.TokenOutcome, 0, len(tokens)),
	}

	for _, token := range tokens {
		outcome, err := c.send(ctx, bearer, msg, token)
		if err != nil {
			return nil, err
		}

		if outcome.Success {
			report.SuccessCount++
		} else {
			report.FailureCount++
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	return report, nil
}

// send delivers the message to a single token. A non-2xx response carrying
// an FCM error code yields a failed outcome; auth rejection or a transport
// failure aborts the whole batch.
func (c *Client) send(ctx context.Context, bearer string, msg *notify.Message, token string) (notify.TokenOutcome, error) {
	body, err := json.Marshal(sendRequest{Message: c.toWireMessage(msg, token)})
	if err != nil {
		return notify.TokenOutcome{}, fmt.Errorf("encode message: %w", err)
	}

	url := fmt.Sprintf("%s/v1/projects/%s/messages:send", c.baseURL, c.projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return notify.TokenOutcome{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return notify.TokenOutcome{}, fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return notify.TokenOutcome{Token: token, Success: true}, nil
	}

	// Credential problems fail the batch, not the token.
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return notify.TokenOutcome{}, fmt.Errorf("fcm rejected credentials with status %d", resp.StatusCode)
	}

	return notify.TokenOutcome{
		Token:     token,
		Success:   false,
		ErrorCode: decodeErrorCode(resp),
	}, nil
}

// decodeErrorCode extracts the FCM error code from an error response body,
// falling back to the RPC status string.
func decodeErrorCode(resp *http.Response) string {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return resp.Status
	}

	var errResp errorResponse
	if err := json.Unmarshal(data, &errResp); err != nil {
		return resp.Status
	}

	for _, d := range errResp.Error.Details {
		if d.ErrorCode != "" {
			return d.ErrorCode
		}
	}
	if errResp.Error.Status != "" {
		return errResp.Error.Status
	}
	return resp.Status
}

func (c *Client) toWireMessage(msg *notify.Message, token string) wireMessage {
	return wireMessage{
		Token: token,
		Notification: wireNotification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
		Android: &wireAndroid{
			Priority: msg.Android.Priority,
			Notification: &wireAndroidNotification{
				ChannelID:             msg.Android.ChannelID,
				Sound:                 msg.Android.Sound,
				NotificationPriority:  msg.Android.NotificationPriority,
				DefaultVibrateTimings: msg.Android.DefaultVibrateTimings,
			},
		},
		APNS: &wireAPNS{
			Payload: wireAPNSPayload{
				APS: wireAPS{
					Sound: msg.APNS.Sound,
					Badge: msg.APNS.Badge,
				},
			},
		},
	}
}
