package config

const (
	DefaultAPIURL         = "http://localhost:8080"
	DefaultAPITimeout     = "30s"
	DefaultPushURL        = "http://localhost:8085"
	DefaultRedisURL       = "redis://localhost:6379/0"
	DefaultRedisChannel   = "job_events"
	DefaultMaxAttempts    = 10
	DefaultInitialBackoff = "1s"
	DefaultMaxBackoff     = "5s"
	DefaultPageSize       = 10
	DefaultPollInterval   = "15s"
	DefaultListen         = "127.0.0.1:8090"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "console"
	DefaultExporter       = "stdout"
	DefaultServiceName    = "reeldeck"
)

// MaxPageSize is the largest page the service will return
const MaxPageSize = 100

// DefaultConfig returns a Config with all default values applied.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			URL:     DefaultAPIURL,
			Timeout: DefaultAPITimeout,
		},
		Push: PushConfig{
			URL:            DefaultPushURL,
			Transport:      TransportWebSocket,
			RedisURL:       DefaultRedisURL,
			RedisChannel:   DefaultRedisChannel,
			MaxAttempts:    DefaultMaxAttempts,
			InitialBackoff: DefaultInitialBackoff,
			MaxBackoff:     DefaultMaxBackoff,
		},
		Dashboard: DashboardConfig{
			PageSize:     DefaultPageSize,
			PollInterval: DefaultPollInterval,
			Listen:       DefaultListen,
		},
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
		Tracing: TracingConfig{
			Exporter:    DefaultExporter,
			ServiceName: DefaultServiceName,
		},
	}
}
