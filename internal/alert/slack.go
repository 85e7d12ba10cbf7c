package alert

import (
	"context"
	"fmt"
	"net/http"
	"sort"
)

// Slack posts alerts to an incoming-webhook URL using Block Kit
type Slack struct {
	webhookURL string
	client     *http.Client
}

// NewSlack creates a Slack notifier. hc may be nil.
func NewSlack(webhookURL string, hc *http.Client) *Slack {
	if hc == nil {
		hc = &http.Client{Timeout: postTimeout}
	}
	return &Slack{webhookURL: webhookURL, client: hc}
}

var slackEmoji = map[Severity]string{
	SeverityInfo:     ":clapper:",
	SeverityWarning:  ":no_entry_sign:",
	SeverityCritical: ":rotating_light:",
}

// Notify posts the alert
func (s *Slack) Notify(ctx context.Context, a Alert) error {
	keys := make([]string, 0, len(a.Fields))
	for k := range a.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]map[string]any, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*%s:* %s", k, a.Fields[k]),
		})
	}

	blocks := []map[string]any{{
		"type": "section",
		"text": map[string]string{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*%s*\n%s", a.Title, a.Message),
		},
	}}
	if len(fields) > 0 {
		blocks = append(blocks, map[string]any{"type": "context", "elements": fields})
	}

	payload := map[string]any{
		"text":   fmt.Sprintf("%s %s", slackEmoji[a.Severity], a.Title),
		"blocks": blocks,
	}
	return postJSON(ctx, s.client, s.webhookURL, "slack webhook", payload)
}

// Name returns "slack"
func (s *Slack) Name() string {
	return "slack"
}
