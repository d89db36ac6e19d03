package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/BruksfildServices01/service-marketplace/internal/events"
)

func TestHandleBroadcastsToConversation(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, 7, 100)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients(7) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	payload, _ := json.Marshal(events.MessageSentEvent{ConversationID: 7, MessageID: 1, Body: "oi"})
	err = hub.Handle(context.Background(), events.Envelope{Type: events.MessageSent, Payload: payload})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	// evento de outra conversa não chega
	other, _ := json.Marshal(events.MessageSentEvent{ConversationID: 8})
	_ = hub.Handle(context.Background(), events.Envelope{Type: events.MessageSent, Payload: other})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var got wsEvent
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Type != events.MessageSent || !strings.Contains(string(got.Data), `"body":"oi"`) {
		t.Fatalf("unexpected event %s %s", got.Type, got.Data)
	}
}

func TestBroadcastWithoutClientsIsNoop(t *testing.T) {
	hub := NewHub(nil)
	hub.Broadcast(1, events.ConversationStatusChanged, json.RawMessage(`{}`))
	if hub.Clients(1) != 0 {
		t.Fatal("no room should be created")
	}
}
