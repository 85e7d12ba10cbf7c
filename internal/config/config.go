package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// PushTransport selects where push notifications come from.
type PushTransport string

const (
	// TransportWebSocket connects to the service's Socket.IO endpoint.
	TransportWebSocket PushTransport = "websocket"

	// TransportRedis reads the service's Redis pub/sub channel directly.
	TransportRedis PushTransport = "redis"

	// TransportNone disables push; the dashboard polls.
	TransportNone PushTransport = "none"
)

// Config holds all configuration for reeldeck.
// It is immutable after creation via LoadConfig().
type Config struct {
	// API is the job service's REST endpoint
	API APIConfig `yaml:"api"`

	// Push configures live notifications
	Push PushConfig `yaml:"push"`

	// Dashboard configures the live views
	Dashboard DashboardConfig `yaml:"dashboard"`

	// LogLevel controls log verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogFormat is "console" or "json"
	LogFormat string `yaml:"log_format"`

	// Tracing configures OpenTelemetry export for outbound requests
	Tracing TracingConfig `yaml:"tracing"`

	// Alerts configures where finished-job alerts are sent
	Alerts AlertsConfig `yaml:"alerts"`
}

// APIConfig locates the job service.
type APIConfig struct {
	// URL is the service base URL, e.g. http://localhost:8080
	URL string `yaml:"url"`

	// Timeout bounds each request, as a Go duration string
	Timeout string `yaml:"timeout"`
}

// PushConfig controls the push channel and its reconnect policy.
type PushConfig struct {
	// URL is the Socket.IO server base URL
	URL string `yaml:"url"`

	// Transport is websocket (default), redis or none
	Transport PushTransport `yaml:"transport"`

	// RedisURL and RedisChannel are used by the redis transport
	RedisURL     string `yaml:"redis_url"`
	RedisChannel string `yaml:"redis_channel"`

	// MaxAttempts is how many consecutive failed connects are tolerated
	// before giving up and falling back to polling
	MaxAttempts int `yaml:"max_attempts"`

	// InitialBackoff and MaxBackoff bound the reconnect delay
	InitialBackoff string `yaml:"initial_backoff"`
	MaxBackoff     string `yaml:"max_backoff"`
}

// DashboardConfig controls the list views and the local mirror.
type DashboardConfig struct {
	// PageSize is the number of jobs per page
	PageSize int `yaml:"page_size"`

	// PollInterval is how often to refetch while push is unavailable
	PollInterval string `yaml:"poll_interval"`

	// Listen is the address `reeldeck serve` binds to
	Listen string `yaml:"listen"`
}

// TracingConfig controls OpenTelemetry tracing.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`

	// Exporter is "stdout" or "otlp"
	Exporter string `yaml:"exporter"`

	// Endpoint is the OTLP/HTTP collector host:port; empty uses the
	// exporter's default
	Endpoint string `yaml:"endpoint"`

	ServiceName string `yaml:"service_name"`
}

// AlertsConfig selects alert destinations. No targets disables alerts.
type AlertsConfig struct {
	// Targets lists destinations: terminal, slack, webhook
	Targets []string `yaml:"targets"`

	SlackWebhook string `yaml:"slack_webhook"`
	WebhookURL   string `yaml:"webhook_url"`
}

// APITimeout returns the request timeout. The config must be validated.
func (c *Config) APITimeout() time.Duration {
	return mustDuration(c.API.Timeout)
}

// PollInterval returns the dashboard poll interval.
func (c *Config) PollInterval() time.Duration {
	return mustDuration(c.Dashboard.PollInterval)
}

// InitialBackoff returns the first reconnect delay.
func (c *Config) InitialBackoff() time.Duration {
	return mustDuration(c.Push.InitialBackoff)
}

// MaxBackoff returns the reconnect delay ceiling.
func (c *Config) MaxBackoff() time.Duration {
	return mustDuration(c.Push.MaxBackoff)
}

func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// FileName is the per-directory config file name
const FileName = ".reeldeck.yaml"

// LoadConfig loads configuration. It applies defaults, then file values,
// then environment overrides, then validates.
//
// When path is empty, .reeldeck.yaml in dir is used if present, else
// ~/.reeldeck/config.yaml if present; a missing file is not an error.
// An explicit path must exist.
func LoadConfig(dir, path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	} else {
		for _, candidate := range searchPaths(dir) {
			err := loadFile(cfg, candidate)
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, err
			}
			break
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func searchPaths(dir string) []string {
	paths := []string{filepath.Join(dir, FileName)}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".reeldeck", "config.yaml"))
	}
	return paths
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}
