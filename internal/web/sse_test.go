package web

import (
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within 1s")
}

func TestHub_NewHub(t *testing.T) {
	hub := NewHub()

	if hub.clients == nil {
		t.Error("clients map not initialized")
	}
	if hub.Count() != 0 {
		t.Errorf("new hub should have no clients, got %d", hub.Count())
	}
}

func TestHub_ClientRegistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	c1 := NewClient(4)
	c2 := NewClient(4)
	hub.Register(c1)
	hub.Register(c2)
	waitFor(t, func() bool { return hub.Count() == 2 })

	hub.Unregister(c1)
	waitFor(t, func() bool { return hub.Count() == 1 })

	if _, ok := <-c1.events; ok {
		t.Error("unregistered client's channel should be closed")
	}
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	c1 := NewClient(4)
	c2 := NewClient(4)
	hub.Register(c1)
	hub.Register(c2)
	waitFor(t, func() bool { return hub.Count() == 2 })

	hub.Broadcast(&Event{Type: EventState, Data: "x"})

	for _, c := range []*Client{c1, c2} {
		select {
		case e := <-c.events:
			if e.Type != EventState {
				t.Errorf("client %s got %q, want %q", c.ID(), e.Type, EventState)
			}
		case <-time.After(time.Second):
			t.Fatalf("client %s did not receive broadcast", c.ID())
		}
	}
}

func TestHub_SlowClientDropsEvents(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	slow := NewClient(1)
	hub.Register(slow)
	waitFor(t, func() bool { return hub.Count() == 1 })

	for i := 0; i < 5; i++ {
		hub.Broadcast(&Event{Type: EventNotification, Data: i})
	}
	waitFor(t, func() bool { return len(hub.broadcast) == 0 })
	time.Sleep(10 * time.Millisecond)

	if n := len(slow.events); n != 1 {
		t.Errorf("slow client should hold exactly its buffer, got %d", n)
	}
}

func TestHub_StopClosesClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	c := NewClient(4)
	hub.Register(c)
	waitFor(t, func() bool { return hub.Count() == 1 })

	hub.Stop()
	hub.Stop()

	select {
	case _, ok := <-c.events:
		if ok {
			t.Error("expected closed channel after Stop")
		}
	case <-time.After(time.Second):
		t.Fatal("client channel not closed after Stop")
	}

	// calls after Stop must not block
	time.Sleep(10 * time.Millisecond)
	hub.Register(NewClient(1))
	hub.Broadcast(&Event{Type: EventState})
	hub.Unregister(c)
}

func TestNewClient_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id := NewClient(0).ID()
		if seen[id] {
			t.Fatalf("duplicate client id %s", id)
		}
		seen[id] = true
	}
}
