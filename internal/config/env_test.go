package config

import (
	"strings"
	"testing"
)

func TestEnvOverrides_Strings(t *testing.T) {
	cfg := DefaultConfig()
	t.Setenv("REELDECK_API_URL", "http://jobs.internal:9000")
	t.Setenv("REELDECK_WS_URL", "https://push.internal")
	t.Setenv("REELDECK_PUSH_TRANSPORT", "redis")
	t.Setenv("REELDECK_REDIS_URL", "redis://cache:6379/2")
	t.Setenv("REELDECK_LOG_LEVEL", "debug")
	t.Setenv("REELDECK_LOG_FORMAT", "json")

	if err := applyEnvOverrides(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.API.URL != "http://jobs.internal:9000" {
		t.Errorf("expected API.URL override, got %q", cfg.API.URL)
	}
	if cfg.Push.URL != "https://push.internal" {
		t.Errorf("expected Push.URL override, got %q", cfg.Push.URL)
	}
	if cfg.Push.Transport != TransportRedis {
		t.Errorf("expected redis transport, got %q", cfg.Push.Transport)
	}
	if cfg.Push.RedisURL != "redis://cache:6379/2" {
		t.Errorf("expected RedisURL override, got %q", cfg.Push.RedisURL)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected LogLevel to be 'debug', got '%s'", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("expected LogFormat to be 'json', got '%s'", cfg.LogFormat)
	}
}

func TestEnvOverrides_Parsed(t *testing.T) {
	cfg := DefaultConfig()
	t.Setenv("REELDECK_PAGE_SIZE", "25")
	t.Setenv("REELDECK_TRACING", "true")

	if err := applyEnvOverrides(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Dashboard.PageSize != 25 {
		t.Errorf("expected PageSize 25, got %d", cfg.Dashboard.PageSize)
	}
	if !cfg.Tracing.Enabled {
		t.Error("expected tracing enabled")
	}
}

func TestEnvOverrides_BadValuesReported(t *testing.T) {
	cfg := DefaultConfig()
	t.Setenv("REELDECK_PAGE_SIZE", "lots")
	t.Setenv("REELDECK_TRACING", "maybe")

	err := applyEnvOverrides(cfg)
	if err == nil {
		t.Fatal("expected error for unparsable values")
	}
	for _, name := range []string{"REELDECK_PAGE_SIZE", "REELDECK_TRACING"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error should name %s, got: %v", name, err)
		}
	}
	if cfg.Dashboard.PageSize != DefaultPageSize {
		t.Errorf("bad value should leave PageSize unchanged, got %d", cfg.Dashboard.PageSize)
	}
}

func TestEnvOverrides_EmptyNoChange(t *testing.T) {
	cfg := DefaultConfig()
	t.Setenv("REELDECK_API_URL", "")
	t.Setenv("REELDECK_LOG_LEVEL", "")

	if err := applyEnvOverrides(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.API.URL != DefaultAPIURL {
		t.Errorf("expected API.URL to remain default, got %q", cfg.API.URL)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("expected LogLevel to remain default, got %q", cfg.LogLevel)
	}
}

func TestEnvOverrides_AlertTargets(t *testing.T) {
	cfg := DefaultConfig()
	t.Setenv("REELDECK_ALERTS", " terminal, slack ,")
	t.Setenv("REELDECK_SLACK_WEBHOOK", "https://hooks.slack.com/services/T/B/X")

	if err := applyEnvOverrides(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(cfg.Alerts.Targets, "|") != "terminal|slack" {
		t.Errorf("expected targets terminal|slack, got %v", cfg.Alerts.Targets)
	}
	if cfg.Alerts.SlackWebhook != "https://hooks.slack.com/services/T/B/X" {
		t.Errorf("expected slack webhook override, got %q", cfg.Alerts.SlackWebhook)
	}
	if err := validateConfig(cfg); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}
