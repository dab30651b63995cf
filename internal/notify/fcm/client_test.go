package fcm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buuuuds/Smart-Agri-Leafy-Shield/internal/notify"
	"github.com/buuuuds/Smart-Agri-Leafy-Shield/internal/notify/fcm"
)

// staticBearer satisfies fcm.BearerSource with a fixed token.
type staticBearer string

func (s staticBearer) Token(context.Context) (string, error) {
	return string(s), nil
}

func testMessage() *notify.Message {
	return &notify.Message{
		Title: "High Moisture",
		Body:  "Soil moisture above threshold",
		Data:  map[string]string{"alertId": "a1", "type": "sensor_alert"},
		Android: notify.AndroidHints{
			Priority:  "high",
			ChannelID: "agri_leafy_alerts",
		},
		APNS: notify.APNSHints{Sound: "default", Badge: 1},
	}
}

func TestClient_SendMulticast_AllSucceed(t *testing.T) {
	var requests []map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "/v1/projects/test-project/messages:send", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		requests = append(requests, body)

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"name":"projects/test-project/messages/1"}`))
	}))
	defer server.Close()

	client := fcm.NewClient(fcm.ClientConfig{
		ProjectID:   "test-project",
		TokenSource: staticBearer("test-token"),
		BaseURL:     server.URL,
		HTTPClient:  server.Client(),
	})

	report, err := client.SendMulticast(context.Background(), testMessage(), []string{"tA", "tB"})
	require.NoError(t, err)

	assert.Equal(t, 2, report.AttemptedCount)
	assert.Equal(t, 2, report.SuccessCount)
	assert.Equal(t, 0, report.FailureCount)
	require.Len(t, requests, 2)

	msg := requests[0]["message"].(map[string]interface{})
	assert.Equal(t, "tA", msg["token"])
	notification := msg["notification"].(map[string]interface{})
	assert.Equal(t, "High Moisture", notification["title"])
}

func TestClient_SendMulticast_ReportsUnregisteredToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Message struct {
				Token string `json:"token"`
			} `json:"message"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		if body.Message.Token == "tStale" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{
				"error": {
					"code": 404,
					"status": "NOT_FOUND",
					"message": "Requested entity was not found.",
					"details": [{"@type": "type.googleapis.com/google.firebase.fcm.v1.FcmError", "errorCode": "UNREGISTERED"}]
				}
			}`))
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"name":"projects/test-project/messages/1"}`))
	}))
	defer server.Close()

	client := fcm.NewClient(fcm.ClientConfig{
		ProjectID:   "test-project",
		TokenSource: staticBearer("test-token"),
		BaseURL:     server.URL,
		HTTPClient:  server.Client(),
	})

	report, err := client.SendMulticast(context.Background(), testMessage(), []string{"tFresh", "tStale"})
	require.NoError(t, err)

	assert.Equal(t, 1, report.SuccessCount)
	assert.Equal(t, 1, report.FailureCount)
	require.Len(t, report.Outcomes, 2)
	assert.True(t, report.Outcomes[0].Success)
	assert.False(t, report.Outcomes[1].Success)
	assert.Equal(t, fcm.ErrorCodeUnregistered, report.Outcomes[1].ErrorCode)
	assert.Equal(t, []string{"tStale"}, report.FailedTokens())
}

func TestClient_SendMulticast_AuthRejectionFailsBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":401,"status":"UNAUTHENTICATED"}}`))
	}))
	defer server.Close()

	client := fcm.NewClient(fcm.ClientConfig{
		ProjectID:   "test-project",
		TokenSource: staticBearer("expired-token"),
		BaseURL:     server.URL,
		HTTPClient:  server.Client(),
	})

	_, err := client.SendMulticast(context.Background(), testMessage(), []string{"tA", "tB"})
	require.Error(t, err, "credential rejection fails the whole batch")
}

func TestClient_SendMulticast_FallsBackToStatusString(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"status":"INVALID_ARGUMENT","message":"bad token"}}`))
	}))
	defer server.Close()

	client := fcm.NewClient(fcm.ClientConfig{
		ProjectID:   "test-project",
		TokenSource: staticBearer("test-token"),
		BaseURL:     server.URL,
		HTTPClient:  server.Client(),
	})

	report, err := client.SendMulticast(context.Background(), testMessage(), []string{"tBroken"})
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, fcm.ErrorCodeInvalidArgument, report.Outcomes[0].ErrorCode)
}
