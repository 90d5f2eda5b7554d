package notification_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/tigerroll/setwave/pkg/batch/core/config"
	notification "github.com/tigerroll/setwave/pkg/batch/listener/notification"
)

func webhookConfig(url string) *config.Config {
	cfg := config.NewConfig()
	cfg.Setwave.Notification.Kind = "webhook"
	cfg.Setwave.Notification.WebhookURL = url
	cfg.Setwave.Notification.TimeoutSeconds = 5
	return cfg
}

func TestLogNotifierDeliver(t *testing.T) {
	n := notification.NewLogNotifier()
	err := n.Deliver(context.Background(), `run "nightly-purge" finished: no errors`, "Query:\nq\n\nTemplate:\nt\n\nErrors (0):\nnone")
	assert.NoError(t, err)
}

func TestWebhookNotifierDeliversReport(t *testing.T) {
	type capturedPayload struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
		SentAt  string `json:"sent_at"`
	}

	var method, contentType string
	var payload capturedPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		contentType = r.Header.Get("Content-Type")
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &payload))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n, err := notification.NewWebhookNotifier(webhookConfig(server.URL))
	require.NoError(t, err)

	err = n.Deliver(context.Background(), `run "nightly-purge" finished: 2 error(s)`, "report body")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, `run "nightly-purge" finished: 2 error(s)`, payload.Subject)
	assert.Equal(t, "report body", payload.Body)
	assert.NotEmpty(t, payload.SentAt)
}

func TestWebhookNotifierRejectsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("nope"))
	}))
	defer server.Close()

	n, err := notification.NewWebhookNotifier(webhookConfig(server.URL))
	require.NoError(t, err)

	err = n.Deliver(context.Background(), "subject", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "nope")
}

func TestWebhookNotifierRetriesFailedDelivery(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n, err := notification.NewWebhookNotifier(webhookConfig(server.URL))
	require.NoError(t, err)

	err = n.Deliver(context.Background(), "subject", "body")
	assert.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestWebhookNotifierHonorsCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n, err := notification.NewWebhookNotifier(webhookConfig(server.URL))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = n.Deliver(ctx, "subject", "body")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewWebhookNotifierRequiresURL(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Setwave.Notification.Kind = "webhook"

	_, err := notification.NewWebhookNotifier(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook URL")
}

func TestNewNotifierSelectsByKind(t *testing.T) {
	logCfg := config.NewConfig()
	logCfg.Setwave.Notification.Kind = "log"
	n, err := notification.NewNotifier(logCfg)
	require.NoError(t, err)
	assert.IsType(t, &notification.LogNotifier{}, n)

	defaultCfg := config.NewConfig()
	defaultCfg.Setwave.Notification.Kind = ""
	n, err = notification.NewNotifier(defaultCfg)
	require.NoError(t, err)
	assert.IsType(t, &notification.LogNotifier{}, n)

	n, err = notification.NewNotifier(webhookConfig("http://reports.example.com/hook"))
	require.NoError(t, err)
	assert.IsType(t, &notification.WebhookNotifier{}, n)

	badCfg := config.NewConfig()
	badCfg.Setwave.Notification.Kind = "carrier-pigeon"
	_, err = notification.NewNotifier(badCfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}
