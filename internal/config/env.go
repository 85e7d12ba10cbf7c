package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// envOverrides maps environment variables to config field setters.
var envOverrides = []struct {
	envVar string
	apply  func(*Config, string) error
}{
	{
		envVar: "REELDECK_API_URL",
		apply: func(c *Config, v string) error {
			c.API.URL = v
			return nil
		},
	},
	{
		envVar: "REELDECK_WS_URL",
		apply: func(c *Config, v string) error {
			c.Push.URL = v
			return nil
		},
	},
	{
		envVar: "REELDECK_PUSH_TRANSPORT",
		apply: func(c *Config, v string) error {
			c.Push.Transport = PushTransport(v)
			return nil
		},
	},
	{
		envVar: "REELDECK_REDIS_URL",
		apply: func(c *Config, v string) error {
			c.Push.RedisURL = v
			return nil
		},
	},
	{
		envVar: "REELDECK_LOG_LEVEL",
		apply: func(c *Config, v string) error {
			c.LogLevel = v
			return nil
		},
	},
	{
		envVar: "REELDECK_LOG_FORMAT",
		apply: func(c *Config, v string) error {
			c.LogFormat = v
			return nil
		},
	},
	{
		envVar: "REELDECK_PAGE_SIZE",
		apply: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			c.Dashboard.PageSize = n
			return nil
		},
	},
	{
		envVar: "REELDECK_ALERTS",
		apply: func(c *Config, v string) error {
			c.Alerts.Targets = splitList(v)
			return nil
		},
	},
	{
		envVar: "REELDECK_SLACK_WEBHOOK",
		apply: func(c *Config, v string) error {
			c.Alerts.SlackWebhook = v
			return nil
		},
	},
	{
		envVar: "REELDECK_TRACING",
		apply: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return err
			}
			c.Tracing.Enabled = b
			return nil
		},
	},
}

// applyEnvOverrides modifies config in place with environment variable values.
// Values that fail to parse are reported together and leave their field unchanged.
func applyEnvOverrides(cfg *Config) error {
	var errs []error
	for _, override := range envOverrides {
		if val := os.Getenv(override.envVar); val != "" {
			if err := override.apply(cfg, val); err != nil {
				errs = append(errs, fmt.Errorf("%s=%q: %w", override.envVar, val, err))
			}
		}
	}
	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
