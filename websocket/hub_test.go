package websocket

import (
	"encoding/json"
	"testing"
	"time"
)

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ConnectedClients() != want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", want, hub.ConnectedClients())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := NewClient(hub, nil)
	hub.Register <- client
	waitForClients(t, hub, 1)

	hub.Unregister <- client
	waitForClients(t, hub, 0)

	// The send channel is closed on unregister.
	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("expected send channel closed, got a message")
		}
	case <-time.After(time.Second):
		t.Error("expected send channel closed")
	}
}

func TestHubBroadcastEvent(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := NewClient(hub, nil)
	hub.Register <- client
	waitForClients(t, hub, 1)

	hub.BroadcastEvent(EventVoteChanged, map[string]any{"id": "r1", "votes": 3})

	select {
	case msg := <-client.send:
		var event Event
		if err := json.Unmarshal(msg, &event); err != nil {
			t.Fatalf("unmarshalling broadcast: %v", err)
		}
		if event.Type != EventVoteChanged {
			t.Errorf("expected %s event, got %s", EventVoteChanged, event.Type)
		}
		if event.Timestamp.IsZero() {
			t.Error("expected timestamp set")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected a broadcast message")
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	slow := NewClient(hub, nil)
	slow.send = make(chan []byte) // unbuffered, nobody reading
	hub.Register <- slow
	waitForClients(t, hub, 1)

	hub.BroadcastEvent(EventReportCreated, map[string]string{"id": "r1"})
	waitForClients(t, hub, 0)
}
