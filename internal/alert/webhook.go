package alert

import (
	"context"
	"net/http"
	"time"
)

// WebhookPayload is the JSON body posted to generic webhooks
type WebhookPayload struct {
	Severity string            `json:"severity"`
	JobID    string            `json:"jobId"`
	Title    string            `json:"title"`
	Message  string            `json:"message"`
	Fields   map[string]string `json:"fields,omitempty"`
	Time     time.Time         `json:"time"`
}

// Webhook posts alerts as JSON to an HTTP endpoint
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook creates a webhook notifier. hc may be nil.
func NewWebhook(url string, hc *http.Client) *Webhook {
	if hc == nil {
		hc = &http.Client{Timeout: postTimeout}
	}
	return &Webhook{url: url, client: hc}
}

// Notify posts the alert
func (w *Webhook) Notify(ctx context.Context, a Alert) error {
	return postJSON(ctx, w.client, w.url, "webhook", WebhookPayload{
		Severity: string(a.Severity),
		JobID:    a.JobID,
		Title:    a.Title,
		Message:  a.Message,
		Fields:   a.Fields,
		Time:     a.Time.UTC(),
	})
}

// Name returns "webhook"
func (w *Webhook) Name() string {
	return "webhook"
}
