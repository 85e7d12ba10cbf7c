package push

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/RevCBH/reeldeck/internal/events"
	"github.com/RevCBH/reeldeck/internal/logging"
)

// DefaultRedisChannel is the pub/sub channel the job service publishes to
const DefaultRedisChannel = "job_events"

// RedisConfig configures a Redis relay
type RedisConfig struct {
	// URL is a redis:// or rediss:// connection URL
	URL string

	// Channel is the pub/sub channel name (default: job_events)
	Channel string

	// Retry bounds reconnection. Zero fields take DefaultRetryConfig values.
	Retry RetryConfig

	// BufferSize is the notification channel capacity (default: 256)
	BufferSize int

	Logger *logging.Logger
}

// RedisRelay is a Source that reads the service's events from Redis
// pub/sub. Every job event is published to the channel, so subscriptions
// are applied locally: job events are forwarded only for subscribed jobs,
// and queue updates are always forwarded.
type RedisRelay struct {
	*base

	cfg RedisConfig
	rdb *goredis.Client
	now func() time.Time
}

var _ Source = (*RedisRelay)(nil)

// NewRedisRelay creates a relay. It does not connect until Start is called.
func NewRedisRelay(cfg RedisConfig) (*RedisRelay, error) {
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	// One dial per attempt; RetryConfig paces reconnects.
	opts.MaxRetries = -1
	opts.DialerRetries = 1
	opts.DialerRetryTimeout = time.Millisecond
	if cfg.Channel == "" {
		cfg.Channel = DefaultRedisChannel
	}
	cfg.Retry = cfg.Retry.withDefaults()

	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}

	return &RedisRelay{
		base: newBase(log.With("component", "push", "transport", "redis", "channel", cfg.Channel), cfg.BufferSize),
		cfg:  cfg,
		rdb:  goredis.NewClient(opts),
		now:  time.Now,
	}, nil
}

// Start begins subscribing in the background
func (r *RedisRelay) Start(ctx context.Context) error {
	runCtx, err := r.begin(ctx)
	if err != nil {
		return err
	}
	r.setState(StateConnecting, nil)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.finish()
		r.run(runCtx)
	}()
	return nil
}

// Close unsubscribes and releases the Redis client.
// It is safe to call Close multiple times.
func (r *RedisRelay) Close() error {
	r.shutdown()
	if err := r.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
		return err
	}
	return nil
}

// Subscribe starts forwarding job events for jobID
func (r *RedisRelay) Subscribe(jobID string) {
	if jobID != "" {
		r.addSub(jobID)
	}
}

// Unsubscribe stops forwarding job events for jobID
func (r *RedisRelay) Unsubscribe(jobID string) {
	if jobID != "" {
		r.removeSub(jobID)
	}
}

func (r *RedisRelay) run(ctx context.Context) {
	first := true
	for {
		var sub *goredis.PubSub
		res := RetryWithBackoff(ctx, r.cfg.Retry, func(ctx context.Context) error {
			var err error
			sub, err = r.subscribe(ctx)
			return err
		}, func(attempt int, delay time.Duration, err error) {
			r.log.Warn("redis subscribe failed", "attempt", attempt, "retry_in", delay, "error", err)
			if first {
				r.setState(StateConnecting, nil)
			} else {
				r.setState(StateReconnecting, nil)
			}
		})

		if !res.Success {
			if ctx.Err() != nil {
				r.setState(StateDisconnected, nil)
				return
			}
			r.log.Error("redis relay unavailable", "attempts", res.Attempts, "error", res.LastErr)
			r.setState(StateDisconnected, &ChannelError{Attempts: res.Attempts, Err: res.LastErr})
			return
		}

		r.setState(StateConnected, nil)
		r.log.Info("redis relay subscribed")

		err := r.forward(ctx, sub)
		_ = sub.Close()

		if ctx.Err() != nil {
			r.setState(StateDisconnected, nil)
			return
		}
		r.log.Warn("redis relay lost", "error", err)
		first = false
		r.setState(StateReconnecting, nil)
	}
}

func (r *RedisRelay) subscribe(ctx context.Context) (*goredis.PubSub, error) {
	if err := r.rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	sub := r.rdb.Subscribe(ctx, r.cfg.Channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}
	return sub, nil
}

// forward relays messages until the subscription ends. ReceiveMessage is
// used instead of Channel so a dropped connection surfaces as an error
// and the relay's own backoff governs reconnection.
func (r *RedisRelay) forward(ctx context.Context, sub *goredis.PubSub) error {
	for {
		msg, err := sub.ReceiveMessage(ctx)
		if err != nil {
			return err
		}

		n, err := events.ParseFrame([]byte(msg.Payload), r.now())
		if err != nil {
			r.log.Debug("dropping undecodable relay frame", "error", err)
			continue
		}
		if !r.wanted(n) {
			continue
		}
		if !r.deliver(ctx, n) {
			return ctx.Err()
		}
	}
}

func (r *RedisRelay) wanted(n events.Notification) bool {
	switch {
	case n.Type == events.QueueUpdated:
		return true
	case n.Type.IsJobEvent():
		return r.isSubscribed(n.JobID)
	}
	return false
}
