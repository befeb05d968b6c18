package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// WebhookNotifier forwards fatal job errors to an external webhook. It is
// fire-and-forget: a failed notification is logged and dropped. With an
// empty URL it is a no-op. It implements interfaces.AlertNotifier.
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
}

// NewWebhookNotifier creates a notifier posting to url; pass an empty
// string to disable notifications.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type errorNotification struct {
	Job       string    `json:"job"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// NotifyError posts the error to the configured webhook.
func (n *WebhookNotifier) NotifyError(ctx context.Context, jobName string, jobErr error) {
	if n.url == "" {
		return
	}

	payload, err := json.Marshal(errorNotification{
		Job:       jobName,
		Error:     jobErr.Error(),
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		log.WithError(err).Error("failed to marshal error notification")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		log.WithError(err).Error("failed to build error notification request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Error("failed to deliver error notification")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.WithField("status", resp.StatusCode).Error("error notification rejected by webhook")
	}
}
