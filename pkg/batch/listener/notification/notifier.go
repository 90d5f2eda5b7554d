// Package notification delivers completion reports to the channel selected by
// configuration. The log notifier writes the report to the application log;
// the webhook notifier posts it as JSON to an HTTP endpoint.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	config "github.com/tigerroll/setwave/pkg/batch/core/config"
	"github.com/tigerroll/setwave/pkg/batch/core/ports"
	"github.com/tigerroll/setwave/pkg/batch/support/util/exception"
	"github.com/tigerroll/setwave/pkg/batch/support/util/logger"
)

const moduleName = "notification"

const (
	notifierKindLog     = "log"
	notifierKindWebhook = "webhook"

	defaultDeliveryTimeout = 10 * time.Second

	// webhookRetryLimit is the number of additional delivery attempts after a
	// failed one.
	webhookRetryLimit = 1
	webhookRetryDelay = 200 * time.Millisecond
)

// LogNotifier is a Notifier implementation that writes the report to the
// application log instead of an external channel.
type LogNotifier struct{}

// NewLogNotifier creates a new instance of LogNotifier.
func NewLogNotifier() *LogNotifier {
	logger.Infof("Notification: Initializing log notifier.")
	return &LogNotifier{}
}

// Deliver writes the report to the log. It never fails.
func (n *LogNotifier) Deliver(ctx context.Context, subject, body string) error {
	logger.Infof("Notification: %s", subject)
	logger.Infof("Notification body:\n%s", body)
	return nil
}

var _ ports.Notifier = (*LogNotifier)(nil)

// webhookPayload is the JSON document one delivery posts.
type webhookPayload struct {
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	SentAt  time.Time `json:"sent_at"`
}

// WebhookNotifier posts completion reports to an HTTP endpoint. A failed post
// is retried a bounded number of times with linear backoff; the per-attempt
// deadline comes from the notification configuration.
type WebhookNotifier struct {
	url        string
	timeout    time.Duration
	retryLimit int
	client     *http.Client
}

// NewWebhookNotifier creates a webhook notifier for the configured URL.
func NewWebhookNotifier(cfg *config.Config) (*WebhookNotifier, error) {
	url := strings.TrimSpace(cfg.Setwave.Notification.WebhookURL)
	if url == "" {
		return nil, exception.NewBatchErrorf(moduleName, "webhook notification requires a webhook URL")
	}

	timeout := time.Duration(cfg.Setwave.Notification.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultDeliveryTimeout
	}

	logger.Debugf("Notification: Initializing webhook notifier (URL: '%s', Timeout: %s).", url, timeout)
	return &WebhookNotifier{
		url:        url,
		timeout:    timeout,
		retryLimit: webhookRetryLimit,
		client:     &http.Client{},
	}, nil
}

// Deliver posts the report as JSON. It returns the last delivery error after
// the retry budget is spent.
func (n *WebhookNotifier) Deliver(ctx context.Context, subject, body string) error {
	payload, err := json.Marshal(webhookPayload{
		Subject: subject,
		Body:    body,
		SentAt:  time.Now().UTC(),
	})
	if err != nil {
		return exception.NewBatchError(moduleName, "failed to encode webhook payload", err, false, false)
	}

	attempts := n.retryLimit + 1
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		lastErr = n.post(ctx, payload)
		if lastErr == nil {
			return nil
		}
		if attempt < attempts-1 {
			// Linear backoff between delivery attempts.
			delay := time.Duration(attempt+1) * webhookRetryDelay
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				if !timer.Stop() {
					<-timer.C
				}
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	return lastErr
}

// post performs one delivery attempt under the per-attempt deadline.
func (n *WebhookNotifier) post(ctx context.Context, payload []byte) error {
	postCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(postCtx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return exception.NewBatchError(moduleName, "failed to build webhook request", err, false, false)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return exception.NewBatchError(moduleName, "webhook request failed", err, false, true)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return exception.NewBatchError(moduleName, "failed to read webhook response", err, false, false)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return exception.NewBatchErrorf(moduleName, "webhook returned %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}
	return nil
}

var _ ports.Notifier = (*WebhookNotifier)(nil)

// NewNotifier selects the notifier implementation by the configured kind. An
// empty kind selects the log notifier.
func NewNotifier(cfg *config.Config) (ports.Notifier, error) {
	kind := strings.ToLower(strings.TrimSpace(cfg.Setwave.Notification.Kind))
	switch kind {
	case "", notifierKindLog:
		return NewLogNotifier(), nil
	case notifierKindWebhook:
		n, err := NewWebhookNotifier(cfg)
		if err != nil {
			return nil, err
		}
		return n, nil
	default:
		return nil, exception.NewBatchErrorf(moduleName, "unknown notification kind: %q", cfg.Setwave.Notification.Kind)
	}
}
