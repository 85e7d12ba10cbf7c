package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// ValidationError contains details about what failed validation.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config.%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// validateConfig checks all config values for validity.
// Returns nil if valid, or joined errors for all validation failures.
func validateConfig(cfg *Config) error {
	var errs []error

	if err := checkURL("api.url", cfg.API.URL, "http", "https"); err != nil {
		errs = append(errs, err)
	}
	if err := checkDuration("api.timeout", cfg.API.Timeout); err != nil {
		errs = append(errs, err)
	}

	switch cfg.Push.Transport {
	case TransportWebSocket:
		if err := checkURL("push.url", cfg.Push.URL, "http", "https", "ws", "wss"); err != nil {
			errs = append(errs, err)
		}
	case TransportRedis:
		if err := checkURL("push.redis_url", cfg.Push.RedisURL, "redis", "rediss"); err != nil {
			errs = append(errs, err)
		}
		if cfg.Push.RedisChannel == "" {
			errs = append(errs, &ValidationError{
				Field:   "push.redis_channel",
				Value:   cfg.Push.RedisChannel,
				Message: "must not be empty",
			})
		}
	case TransportNone:
	default:
		errs = append(errs, &ValidationError{
			Field:   "push.transport",
			Value:   cfg.Push.Transport,
			Message: "must be one of: websocket, redis, none",
		})
	}

	if cfg.Push.MaxAttempts < 1 {
		errs = append(errs, &ValidationError{
			Field:   "push.max_attempts",
			Value:   cfg.Push.MaxAttempts,
			Message: "must be at least 1",
		})
	}
	initErr := checkDuration("push.initial_backoff", cfg.Push.InitialBackoff)
	if initErr != nil {
		errs = append(errs, initErr)
	}
	maxErr := checkDuration("push.max_backoff", cfg.Push.MaxBackoff)
	if maxErr != nil {
		errs = append(errs, maxErr)
	}
	if initErr == nil && maxErr == nil && cfg.MaxBackoff() < cfg.InitialBackoff() {
		errs = append(errs, &ValidationError{
			Field:   "push.max_backoff",
			Value:   cfg.Push.MaxBackoff,
			Message: "must not be less than push.initial_backoff",
		})
	}

	if cfg.Dashboard.PageSize < 1 || cfg.Dashboard.PageSize > MaxPageSize {
		errs = append(errs, &ValidationError{
			Field:   "dashboard.page_size",
			Value:   cfg.Dashboard.PageSize,
			Message: fmt.Sprintf("must be between 1 and %d", MaxPageSize),
		})
	}
	if err := checkDuration("dashboard.poll_interval", cfg.Dashboard.PollInterval); err != nil {
		errs = append(errs, err)
	}
	if cfg.Dashboard.Listen == "" {
		errs = append(errs, &ValidationError{
			Field:   "dashboard.listen",
			Value:   cfg.Dashboard.Listen,
			Message: "must not be empty",
		})
	}

	// LogLevel must be one of: debug, info, warn, error (case-sensitive)
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		errs = append(errs, &ValidationError{
			Field:   "log_level",
			Value:   cfg.LogLevel,
			Message: "must be one of: debug, info, warn, error",
		})
	}
	if cfg.LogFormat != "console" && cfg.LogFormat != "json" {
		errs = append(errs, &ValidationError{
			Field:   "log_format",
			Value:   cfg.LogFormat,
			Message: "must be one of: console, json",
		})
	}

	if cfg.Tracing.Enabled {
		switch cfg.Tracing.Exporter {
		case "stdout", "otlp":
		default:
			errs = append(errs, &ValidationError{
				Field:   "tracing.exporter",
				Value:   cfg.Tracing.Exporter,
				Message: "must be one of: stdout, otlp",
			})
		}
	}

	for _, target := range cfg.Alerts.Targets {
		switch target {
		case "terminal":
		case "slack":
			if err := checkURL("alerts.slack_webhook", cfg.Alerts.SlackWebhook, "https", "http"); err != nil {
				errs = append(errs, err)
			}
		case "webhook":
			if err := checkURL("alerts.webhook_url", cfg.Alerts.WebhookURL, "https", "http"); err != nil {
				errs = append(errs, err)
			}
		default:
			errs = append(errs, &ValidationError{
				Field:   "alerts.targets",
				Value:   target,
				Message: "must be one of: terminal, slack, webhook",
			})
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func checkDuration(field, v string) error {
	d, err := time.ParseDuration(v)
	if err != nil {
		return &ValidationError{
			Field:   field,
			Value:   v,
			Message: fmt.Sprintf("invalid duration: %v", err),
		}
	}
	if d <= 0 {
		return &ValidationError{Field: field, Value: v, Message: "must be positive"}
	}
	return nil
}

func checkURL(field, v string, schemes ...string) error {
	u, err := url.Parse(v)
	if err != nil || u.Host == "" {
		return &ValidationError{Field: field, Value: v, Message: "must be an absolute URL"}
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return &ValidationError{
		Field:   field,
		Value:   v,
		Message: fmt.Sprintf("scheme must be one of %v", schemes),
	}
}
