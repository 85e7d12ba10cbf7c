package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/RevCBH/reeldeck/internal/events"
	"github.com/RevCBH/reeldeck/internal/logging"
)

// ChannelConfig configures a WebSocket push channel
type ChannelConfig struct {
	// URL of the push service (http, https, ws or wss). Empty selects DefaultURL.
	URL string

	// Retry bounds reconnection. Zero fields take DefaultRetryConfig values.
	Retry RetryConfig

	// BufferSize is the notification channel capacity (default: 256)
	BufferSize int

	// WriteTimeout bounds a single frame write (default: 5s)
	WriteTimeout time.Duration

	// HandshakeTimeout bounds dial plus namespace connect (default: 10s)
	HandshakeTimeout time.Duration

	// Header is sent with the upgrade request
	Header http.Header

	Logger *logging.Logger
}

// Channel is a Source backed by the service's Socket.IO WebSocket endpoint.
type Channel struct {
	*base

	cfg    ChannelConfig
	wsURL  string
	dialer *websocket.Dialer
	now    func() time.Time

	connMu  sync.RWMutex
	conn    *websocket.Conn
	writeMu sync.Mutex
}

var _ Source = (*Channel)(nil)

// NewChannel creates a channel. It does not connect until Start is called.
func NewChannel(cfg ChannelConfig) (*Channel, error) {
	wsURL, err := SocketURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	cfg.Retry = cfg.Retry.withDefaults()
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}

	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}

	return &Channel{
		base:  newBase(log.With("component", "push", "url", wsURL), cfg.BufferSize),
		cfg:   cfg,
		wsURL: wsURL,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		now: time.Now,
	}, nil
}

// URL returns the resolved WebSocket endpoint
func (c *Channel) URL() string {
	return c.wsURL
}

// Start begins connecting in the background
func (c *Channel) Start(ctx context.Context) error {
	runCtx, err := c.begin(ctx)
	if err != nil {
		return err
	}
	c.setState(StateConnecting, nil)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.finish()
		c.run(runCtx)
	}()
	return nil
}

// Close disconnects and waits for the read loop to exit.
// It is safe to call Close multiple times.
func (c *Channel) Close() error {
	c.cancelRun()

	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()
	if conn != nil {
		c.writeMu.Lock()
		_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
		_ = conn.WriteMessage(websocket.TextMessage, []byte{eioMessage, sioDisconnect})
		c.writeMu.Unlock()
		_ = conn.Close()
	}

	c.shutdown()
	return nil
}

// Subscribe asks the server to deliver events for jobID.
func (c *Channel) Subscribe(jobID string) {
	if jobID == "" || !c.addSub(jobID) {
		return
	}
	c.sendControl(events.SubscribeJob, jobID)
}

// Unsubscribe stops delivery of events for jobID.
func (c *Channel) Unsubscribe(jobID string) {
	if jobID == "" || !c.removeSub(jobID) {
		return
	}
	c.sendControl(events.UnsubscribeJob, jobID)
}

// sendControl writes a control event if connected. Failures are logged
// only; the desired set is replayed on the next connection.
func (c *Channel) sendControl(t events.Type, jobID string) {
	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()
	if conn == nil {
		c.log.Debug("deferring control message until connected", "type", t, "job", jobID)
		return
	}
	if err := c.writeEvent(conn, t, jobID); err != nil {
		c.log.Debug("control message failed", "type", t, "job", jobID, "error", err)
	}
}

func (c *Channel) writeEvent(conn *websocket.Conn, t events.Type, jobID string) error {
	frame, err := encodeEvent(string(t), events.ControlPayload(jobID))
	if err != nil {
		return err
	}
	return c.write(conn, frame)
}

func (c *Channel) write(conn *websocket.Conn, frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, frame)
}

// run connects, reads until the connection drops, and reconnects until
// the retry budget is spent or ctx ends.
func (c *Channel) run(ctx context.Context) {
	first := true
	for {
		var conn *websocket.Conn
		var hs handshake
		res := RetryWithBackoff(ctx, c.cfg.Retry, func(ctx context.Context) error {
			var err error
			conn, hs, err = c.connect(ctx)
			return err
		}, func(attempt int, delay time.Duration, err error) {
			c.log.Warn("push connect failed", "attempt", attempt, "retry_in", delay, "error", err)
			if first {
				c.setState(StateConnecting, nil)
			} else {
				c.setState(StateReconnecting, nil)
			}
		})

		if !res.Success {
			if ctx.Err() != nil {
				c.setState(StateDisconnected, nil)
				return
			}
			chErr := &ChannelError{Attempts: res.Attempts, Err: res.LastErr}
			c.log.Error("push channel unavailable", "attempts", res.Attempts, "error", res.LastErr)
			c.setState(StateDisconnected, chErr)
			return
		}

		c.connMu.Lock()
		c.conn = conn
		c.connMu.Unlock()

		c.setState(StateConnected, nil)
		c.log.Info("push channel connected", "sid", hs.SID)
		c.replaySubscriptions(conn)

		err := c.readLoop(ctx, conn, hs)

		c.connMu.Lock()
		c.conn = nil
		c.connMu.Unlock()
		_ = conn.Close()

		if ctx.Err() != nil {
			c.setState(StateDisconnected, nil)
			return
		}
		c.log.Warn("push channel lost", "error", err)
		first = false
		c.setState(StateReconnecting, nil)
	}
}

// connect dials and completes the Engine.IO and Socket.IO handshakes.
func (c *Channel) connect(ctx context.Context) (*websocket.Conn, handshake, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
	defer cancel()

	conn, _, err := c.dialer.DialContext(ctx, c.wsURL, c.cfg.Header)
	if err != nil {
		return nil, handshake{}, fmt.Errorf("dial: %w", err)
	}

	// Abort a stalled handshake when ctx ends.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	hs, err := c.handshake(conn)
	if err != nil {
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil, handshake{}, ctx.Err()
		}
		return nil, handshake{}, err
	}
	return conn, hs, nil
}

func (c *Channel) handshake(conn *websocket.Conn) (handshake, error) {
	deadline := time.Now().Add(c.cfg.HandshakeTimeout)
	if err := conn.SetReadDeadline(deadline); err != nil {
		return handshake{}, err
	}

	var hs handshake
	opened := false
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return handshake{}, fmt.Errorf("handshake: %w", err)
		}
		p, err := parsePacket(msg)
		if err != nil {
			return handshake{}, fmt.Errorf("handshake: %w", err)
		}

		switch p.kind {
		case packetOpen:
			if err := json.Unmarshal(p.data, &hs); err != nil {
				return handshake{}, fmt.Errorf("handshake: open payload: %w", err)
			}
			opened = true
			if err := c.write(conn, connectFrame); err != nil {
				return handshake{}, fmt.Errorf("handshake: namespace connect: %w", err)
			}
		case packetPing:
			if err := c.write(conn, pongFrame); err != nil {
				return handshake{}, err
			}
		case packetConnect:
			if !opened {
				return handshake{}, errors.New("handshake: connect before open")
			}
			return hs, nil
		case packetConnectError:
			return handshake{}, fmt.Errorf("handshake: namespace rejected: %s", string(p.data))
		case packetClose, packetDisconnect:
			return handshake{}, errors.New("handshake: server closed connection")
		}
	}
}

func (c *Channel) replaySubscriptions(conn *websocket.Conn) {
	for _, id := range c.subscriptions() {
		if err := c.writeEvent(conn, events.SubscribeJob, id); err != nil {
			c.log.Debug("subscription replay failed", "job", id, "error", err)
			return
		}
	}
}

// readLoop answers pings and forwards events until the connection fails.
func (c *Channel) readLoop(ctx context.Context, conn *websocket.Conn, hs handshake) error {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	timeout := hs.readTimeout()
	for {
		if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		p, err := parsePacket(msg)
		if err != nil {
			c.log.Debug("dropping malformed frame", "error", err)
			continue
		}

		switch p.kind {
		case packetPing:
			if err := c.write(conn, pongFrame); err != nil {
				return err
			}
		case packetClose:
			return errors.New("server closed transport")
		case packetDisconnect:
			return errors.New("server disconnected namespace")
		case packetEvent:
			n, err := events.Decode(p.event, p.data, c.now())
			if err != nil {
				c.log.Debug("dropping undecodable event", "event", p.event, "error", err)
				continue
			}
			if n.Type == events.Connected || n.Type == events.Subscribed {
				continue
			}
			if !c.deliver(ctx, n) {
				return ctx.Err()
			}
		}
	}
}
