package alert

import (
	"fmt"
	"io"
	"net/http"
)

// Destination names accepted in Config.Targets
const (
	TargetTerminal = "terminal"
	TargetSlack    = "slack"
	TargetWebhook  = "webhook"
)

// Config selects alert destinations
type Config struct {
	Targets      []string
	SlackWebhook string
	WebhookURL   string

	// Writer receives terminal alerts; nil means stderr
	Writer io.Writer

	// HTTPClient is used for Slack and webhook posts; nil uses a default
	HTTPClient *http.Client
}

// FromConfig builds a notifier for the configured targets. It returns nil
// when no targets are configured.
func FromConfig(cfg Config) (Notifier, error) {
	var notifiers []Notifier

	for _, target := range cfg.Targets {
		switch target {
		case TargetTerminal:
			notifiers = append(notifiers, NewTerminal(cfg.Writer))
		case TargetSlack:
			if cfg.SlackWebhook == "" {
				return nil, fmt.Errorf("slack alerts require a webhook URL")
			}
			notifiers = append(notifiers, NewSlack(cfg.SlackWebhook, cfg.HTTPClient))
		case TargetWebhook:
			if cfg.WebhookURL == "" {
				return nil, fmt.Errorf("webhook alerts require a URL")
			}
			notifiers = append(notifiers, NewWebhook(cfg.WebhookURL, cfg.HTTPClient))
		default:
			return nil, fmt.Errorf("unknown alert target: %s", target)
		}
	}

	switch len(notifiers) {
	case 0:
		return nil, nil
	case 1:
		return notifiers[0], nil
	}
	return NewMulti(notifiers...), nil
}
