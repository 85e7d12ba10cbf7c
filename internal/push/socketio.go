package push

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Engine.IO v4 packet types
const (
	eioOpen    = '0'
	eioClose   = '1'
	eioPing    = '2'
	eioPong    = '3'
	eioMessage = '4'
)

// Socket.IO packet types, carried inside an Engine.IO message
const (
	sioConnect      = '0'
	sioDisconnect   = '1'
	sioEvent        = '2'
	sioConnectError = '4'
)

// DefaultURL is where the job service's push endpoint listens in local development
const DefaultURL = "http://localhost:8085"

// packetKind classifies an inbound frame
type packetKind int

const (
	packetUnknown packetKind = iota
	packetOpen
	packetClose
	packetPing
	packetPong
	packetConnect
	packetDisconnect
	packetConnectError
	packetEvent
)

// packet is one decoded inbound frame
type packet struct {
	kind  packetKind
	event string
	data  json.RawMessage
}

// handshake is the Engine.IO open payload
type handshake struct {
	SID          string `json:"sid"`
	PingInterval int    `json:"pingInterval"`
	PingTimeout  int    `json:"pingTimeout"`
}

// readTimeout is how long to wait for any frame before assuming the
// server is gone: one ping interval plus the ping timeout.
func (h handshake) readTimeout() time.Duration {
	interval := time.Duration(h.PingInterval) * time.Millisecond
	timeout := time.Duration(h.PingTimeout) * time.Millisecond
	if interval <= 0 {
		interval = 25 * time.Second
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return interval + timeout
}

var errMalformedPacket = errors.New("malformed packet")

func parsePacket(msg []byte) (packet, error) {
	if len(msg) == 0 {
		return packet{}, errMalformedPacket
	}

	switch msg[0] {
	case eioOpen:
		return packet{kind: packetOpen, data: json.RawMessage(msg[1:])}, nil
	case eioClose:
		return packet{kind: packetClose}, nil
	case eioPing:
		return packet{kind: packetPing}, nil
	case eioPong:
		return packet{kind: packetPong}, nil
	case eioMessage:
	default:
		return packet{kind: packetUnknown}, nil
	}

	if len(msg) < 2 {
		return packet{}, errMalformedPacket
	}
	body := skipNamespace(msg[2:])

	switch msg[1] {
	case sioConnect:
		return packet{kind: packetConnect, data: json.RawMessage(body)}, nil
	case sioDisconnect:
		return packet{kind: packetDisconnect}, nil
	case sioConnectError:
		return packet{kind: packetConnectError, data: json.RawMessage(body)}, nil
	case sioEvent:
	default:
		return packet{kind: packetUnknown}, nil
	}

	// Strip an optional ack id.
	i := 0
	for i < len(body) && body[i] >= '0' && body[i] <= '9' {
		i++
	}
	body = body[i:]

	var args []json.RawMessage
	if err := json.Unmarshal(body, &args); err != nil {
		return packet{}, fmt.Errorf("%w: %v", errMalformedPacket, err)
	}
	if len(args) == 0 {
		return packet{}, errMalformedPacket
	}
	var name string
	if err := json.Unmarshal(args[0], &name); err != nil {
		return packet{}, fmt.Errorf("%w: event name: %v", errMalformedPacket, err)
	}

	p := packet{kind: packetEvent, event: name}
	if len(args) > 1 {
		p.data = args[1]
	}
	return p, nil
}

// skipNamespace drops a leading "/nsp," if present
func skipNamespace(b []byte) []byte {
	if len(b) == 0 || b[0] != '/' {
		return b
	}
	for i, c := range b {
		if c == ',' {
			return b[i+1:]
		}
	}
	return b[len(b):]
}

// encodeEvent builds a Socket.IO event frame: 42["name",payload]
func encodeEvent(name string, payload any) ([]byte, error) {
	args := []any{name}
	if payload != nil {
		args = append(args, payload)
	}
	b, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	return append([]byte{eioMessage, sioEvent}, b...), nil
}

var (
	pongFrame    = []byte{eioPong}
	connectFrame = []byte{eioMessage, sioConnect}
)

// SocketURL converts a configured push URL into the Socket.IO WebSocket
// endpoint. http and https map to ws and wss; an empty path selects
// /socket.io/.
func SocketURL(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		raw = DefaultURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse push url: %w", err)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("parse push url: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("parse push url: missing host in %q", raw)
	}

	if u.Path == "" || u.Path == "/" {
		u.Path = "/socket.io/"
	}
	q := u.Query()
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()
	return u.String(), nil
}
