package ws

import (
	"encoding/json"
	"testing"

	"chatrelay/internal/relay"
)

func TestClient_Deliver(t *testing.T) {
	c := &Client{id: "c1", send: make(chan []byte, 2)}

	msg := relay.Message{UserID: "u1", Message: "hi", Username: "alice", Language: "en"}
	if err := c.Deliver(msg); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}

	b := <-c.send
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		t.Fatalf("Unmarshal envelope: %v", err)
	}
	if env.Event != evtMessage {
		t.Errorf("Event = %q, want message", env.Event)
	}
	var got relay.Message
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatalf("Unmarshal data: %v", err)
	}
	if got != msg {
		t.Errorf("delivered = %+v, want %+v", got, msg)
	}
}

func TestClient_Deliver_BufferFull(t *testing.T) {
	c := &Client{id: "c1", send: make(chan []byte)}

	err := c.Deliver(relay.Message{UserID: "u1", Message: "hi"})
	if err == nil {
		t.Fatal("Deliver() with full buffer should fail, not block")
	}
}

func TestClient_SendError(t *testing.T) {
	c := &Client{id: "c1", send: make(chan []byte, 1)}
	c.sendError("failed to send message")

	b := <-c.send
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		t.Fatalf("Unmarshal envelope: %v", err)
	}
	if env.Event != evtError {
		t.Errorf("Event = %q, want error", env.Event)
	}
	var s string
	if err := json.Unmarshal(env.Data, &s); err != nil || s != "failed to send message" {
		t.Errorf("data = %q, %v", s, err)
	}
}
