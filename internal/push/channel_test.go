package push

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RevCBH/reeldeck/internal/events"
	"github.com/RevCBH/reeldeck/internal/jobs"
)

// fakeSocketServer speaks just enough Engine.IO/Socket.IO to drive a Channel.
type fakeSocketServer struct {
	t   *testing.T
	srv *httptest.Server

	conns  chan *websocket.Conn
	frames chan string

	mu      sync.Mutex
	current *websocket.Conn
}

func newFakeSocketServer(t *testing.T) *fakeSocketServer {
	t.Helper()
	f := &fakeSocketServer{
		t:      t,
		conns:  make(chan *websocket.Conn, 8),
		frames: make(chan string, 64),
	}
	upgrader := websocket.Upgrader{}

	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("EIO") != "4" || r.URL.Query().Get("transport") != "websocket" {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, []byte(`0{"sid":"eio-1","pingInterval":25000,"pingTimeout":20000}`)); err != nil {
			return
		}
		_, msg, err := conn.ReadMessage()
		if err != nil || string(msg) != "40" {
			conn.Close()
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, []byte(`40{"sid":"sio-1"}`)); err != nil {
			return
		}

		f.mu.Lock()
		f.current = conn
		f.mu.Unlock()
		f.conns <- conn

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			f.frames <- string(msg)
		}
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeSocketServer) send(frame string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotNil(f.t, f.current)
	require.NoError(f.t, f.current.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func (f *fakeSocketServer) dropConnection() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current != nil {
		f.current.Close()
		f.current = nil
	}
}

func (f *fakeSocketServer) waitConn(t *testing.T) {
	t.Helper()
	select {
	case <-f.conns:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for connection")
	}
}

func (f *fakeSocketServer) nextFrame(t *testing.T) string {
	t.Helper()
	select {
	case fr := <-f.frames:
		return fr
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return ""
	}
}

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialBackoff: 5 * time.Millisecond, MaxBackoff: 10 * time.Millisecond, BackoffMultiply: 2}
}

func newTestChannel(t *testing.T, url string) *Channel {
	t.Helper()
	ch, err := NewChannel(ChannelConfig{URL: url, Retry: fastRetry()})
	require.NoError(t, err)
	t.Cleanup(func() { ch.Close() })
	return ch
}

func nextNotification(t *testing.T, ch Source) events.Notification {
	t.Helper()
	select {
	case n, ok := <-ch.Notifications():
		require.True(t, ok, "notification channel closed")
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
		return events.Notification{}
	}
}

func TestChannel_ReceivesEvents(t *testing.T) {
	srv := newFakeSocketServer(t)
	ch := newTestChannel(t, srv.srv.URL)

	require.NoError(t, ch.Start(context.Background()))
	srv.waitConn(t)
	require.Eventually(t, ch.Connected, 2*time.Second, 5*time.Millisecond)

	srv.send(`42["connected",{"data":"Connected to WebSocket server"}]`)
	srv.send(`42["job_status_update",{"jobId":"A","status":"rendering","progress":60,"timestamp":"2024-06-01T10:00:00"}]`)
	srv.send(`42["queue_updated",{"queued":3,"processing":1}]`)

	n := nextNotification(t, ch)
	assert.Equal(t, events.JobStatusUpdate, n.Type)
	assert.Equal(t, "A", n.JobID)
	assert.Equal(t, jobs.StatusRendering, n.Status)
	assert.Equal(t, 60.0, n.Progress)

	n = nextNotification(t, ch)
	assert.Equal(t, events.QueueUpdated, n.Type)
	require.NotNil(t, n.Queue)
	assert.Equal(t, 3, n.Queue.Queued)
}

func TestChannel_AnswersPing(t *testing.T) {
	srv := newFakeSocketServer(t)
	ch := newTestChannel(t, srv.srv.URL)

	require.NoError(t, ch.Start(context.Background()))
	srv.waitConn(t)

	srv.send("2")
	assert.Equal(t, "3", srv.nextFrame(t))
}

func TestChannel_SubscriptionsReplayedOnConnect(t *testing.T) {
	srv := newFakeSocketServer(t)
	ch := newTestChannel(t, srv.srv.URL)

	ch.Subscribe("42")
	ch.Subscribe("42")
	require.NoError(t, ch.Start(context.Background()))
	srv.waitConn(t)

	assert.Equal(t, `42["subscribe_job",{"jobId":"42"}]`, srv.nextFrame(t))

	ch.Unsubscribe("42")
	assert.Equal(t, `42["unsubscribe_job",{"jobId":"42"}]`, srv.nextFrame(t))

	// unsubscribing again sends nothing
	ch.Unsubscribe("42")
	ch.Subscribe("7")
	assert.Equal(t, `42["subscribe_job",{"jobId":"7"}]`, srv.nextFrame(t))
}

func TestChannel_ReconnectsAndReplays(t *testing.T) {
	srv := newFakeSocketServer(t)
	ch := newTestChannel(t, srv.srv.URL)

	ch.Subscribe("42")
	require.NoError(t, ch.Start(context.Background()))
	srv.waitConn(t)
	assert.Equal(t, `42["subscribe_job",{"jobId":"42"}]`, srv.nextFrame(t))

	srv.dropConnection()
	srv.waitConn(t)
	assert.Equal(t, `42["subscribe_job",{"jobId":"42"}]`, srv.nextFrame(t))
	require.Eventually(t, ch.Connected, 2*time.Second, 5*time.Millisecond)
}

func TestChannel_GivesUpAfterMaxAttempts(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	ch := newTestChannel(t, url)
	require.NoError(t, ch.Start(context.Background()))

	// the notification channel closes once the channel stops for good
	select {
	case _, ok := <-ch.Notifications():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel did not give up")
	}

	assert.Equal(t, StateDisconnected, ch.State())
	var chErr *ChannelError
	require.ErrorAs(t, ch.Err(), &chErr)
	assert.Equal(t, 3, chErr.Attempts)
	assert.True(t, strings.Contains(chErr.Error(), "3 attempts"))
}

func TestChannel_StateChanges(t *testing.T) {
	srv := newFakeSocketServer(t)
	ch := newTestChannel(t, srv.srv.URL)

	require.NoError(t, ch.Start(context.Background()))
	srv.waitConn(t)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-ch.StateChanges():
			if s == StateConnected {
				return
			}
		case <-deadline:
			t.Fatal("never observed connected state")
		}
	}
}

func TestChannel_CloseWithoutStart(t *testing.T) {
	ch, err := NewChannel(ChannelConfig{})
	require.NoError(t, err)

	require.NoError(t, ch.Close())
	require.NoError(t, ch.Close())

	_, ok := <-ch.Notifications()
	assert.False(t, ok)
	assert.Equal(t, StateDisconnected, ch.State())
	assert.Error(t, ch.Start(context.Background()))
}

func TestChannel_StartTwice(t *testing.T) {
	srv := newFakeSocketServer(t)
	ch := newTestChannel(t, srv.srv.URL)

	require.NoError(t, ch.Start(context.Background()))
	assert.Error(t, ch.Start(context.Background()))
}

func TestChannel_CloseStopsReadLoop(t *testing.T) {
	srv := newFakeSocketServer(t)
	ch := newTestChannel(t, srv.srv.URL)

	require.NoError(t, ch.Start(context.Background()))
	srv.waitConn(t)

	require.NoError(t, ch.Close())
	assert.Equal(t, StateDisconnected, ch.State())
	assert.Nil(t, ch.Err())

	_, ok := <-ch.Notifications()
	assert.False(t, ok)
}
