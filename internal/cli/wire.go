package cli

import (
	"fmt"
	"io"

	"github.com/RevCBH/reeldeck/internal/alert"
	"github.com/RevCBH/reeldeck/internal/client"
	"github.com/RevCBH/reeldeck/internal/config"
	"github.com/RevCBH/reeldeck/internal/coordinator"
	"github.com/RevCBH/reeldeck/internal/events"
	"github.com/RevCBH/reeldeck/internal/logging"
	"github.com/RevCBH/reeldeck/internal/push"
	"github.com/RevCBH/reeldeck/internal/store"
)

// Runtime holds the wired live-sync components
type Runtime struct {
	Client      *client.Client
	Store       *store.Store
	Source      push.Source // nil when push is disabled
	Coordinator *coordinator.Coordinator
}

// wireRuntime assembles client, store, push source and coordinator from
// the loaded config. The caller must Close the result.
func (a *App) wireRuntime() (*Runtime, error) {
	if a.cfg == nil {
		return nil, fmt.Errorf("config not loaded")
	}

	c := a.newClient()
	st := store.New(a.log)

	src, err := newSource(a.cfg, a.log)
	if err != nil {
		return nil, err
	}

	coord := coordinator.New(c, src, st, coordinator.Config{
		PageSize:     a.cfg.Dashboard.PageSize,
		PollInterval: a.cfg.PollInterval(),
		Logger:       a.log,
	})

	return &Runtime{
		Client:      c,
		Store:       st,
		Source:      src,
		Coordinator: coord,
	}, nil
}

// Close releases the push source
func (r *Runtime) Close() error {
	return r.Coordinator.Close()
}

// newSource builds the configured push source, or nil for transport none.
func newSource(cfg *config.Config, log *logging.Logger) (push.Source, error) {
	retry := push.RetryConfig{
		MaxAttempts:     cfg.Push.MaxAttempts,
		InitialBackoff:  cfg.InitialBackoff(),
		MaxBackoff:      cfg.MaxBackoff(),
		BackoffMultiply: push.DefaultRetryConfig.BackoffMultiply,
	}

	switch cfg.Push.Transport {
	case config.TransportNone:
		return nil, nil
	case config.TransportRedis:
		relay, err := push.NewRedisRelay(push.RedisConfig{
			URL:     cfg.Push.RedisURL,
			Channel: cfg.Push.RedisChannel,
			Retry:   retry,
			Logger:  log,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create redis relay: %w", err)
		}
		return relay, nil
	default:
		ch, err := push.NewChannel(push.ChannelConfig{
			URL:    cfg.Push.URL,
			Retry:  retry,
			Logger: log,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create push channel: %w", err)
		}
		return ch, nil
	}
}

// newAlerts builds the configured alert dispatcher. Terminal alerts go to
// out. When jobID is set only that job alerts. With no targets configured
// the handler does nothing.
func (a *App) newAlerts(out io.Writer, jobID string) (events.Handler, func(), error) {
	n, err := alert.FromConfig(alert.Config{
		Targets:      a.cfg.Alerts.Targets,
		SlackWebhook: a.cfg.Alerts.SlackWebhook,
		WebhookURL:   a.cfg.Alerts.WebhookURL,
		Writer:       out,
	})
	if err != nil {
		return nil, nil, err
	}
	if n == nil {
		return func(events.Notification) {}, func() {}, nil
	}

	cfg := alert.DispatcherConfig{Logger: a.log}
	if jobID != "" {
		cfg.Filter = func(n events.Notification) bool { return n.JobID == jobID }
	}
	d := alert.NewDispatcher(n, cfg)
	return d.Handler(), func() { _ = d.Close() }, nil
}
