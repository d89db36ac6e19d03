// Package realtime empurra eventos de conversa para clientes websocket.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/BruksfildServices01/service-marketplace/internal/events"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

type wsEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type client struct {
	userID uint
	send   chan []byte
}

// Hub agrupa as conexões por conversa.
type Hub struct {
	mu    sync.RWMutex
	rooms map[uint]map[*client]struct{}
	log   *zap.Logger

	upgrader websocket.Upgrader
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		rooms: map[uint]map[*client]struct{}{},
		log:   log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *Hub) register(conversationID uint, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[conversationID]
	if !ok {
		room = map[*client]struct{}{}
		h.rooms[conversationID] = room
	}
	room[c] = struct{}{}
}

func (h *Hub) unregister(conversationID uint, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[conversationID]
	if !ok {
		return
	}
	if _, ok := room[c]; ok {
		delete(room, c)
		close(c.send)
	}
	if len(room) == 0 {
		delete(h.rooms, conversationID)
	}
}

// Clients devolve quantas conexões a conversa tem.
func (h *Hub) Clients(conversationID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[conversationID])
}

// Broadcast nunca bloqueia: cliente com buffer cheio perde o evento.
func (h *Hub) Broadcast(conversationID uint, eventType string, data json.RawMessage) {
	payload, err := json.Marshal(wsEvent{Type: eventType, Data: data})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[conversationID] {
		select {
		case c.send <- payload:
		default:
			h.log.Warn("realtime client too slow, event dropped",
				zap.Uint("conversation_id", conversationID),
				zap.Uint("user_id", c.userID),
			)
		}
	}
}

// Types lista os eventos que o hub assina no outbox.
func (h *Hub) Types() []string {
	return []string{events.MessageSent, events.ConversationStatusChanged}
}

func (h *Hub) Handle(_ context.Context, env events.Envelope) error {
	var ref struct {
		ConversationID uint `json:"conversation_id"`
	}
	if err := env.Decode(&ref); err != nil {
		return err
	}
	if ref.ConversationID == 0 {
		return nil
	}
	h.Broadcast(ref.ConversationID, env.Type, env.Payload)
	return nil
}

// ======================================================
// CONNECTION
// ======================================================

// Serve faz o upgrade e bloqueia até o cliente desconectar. A permissão
// de participar da conversa é checada antes, pelo handler.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, conversationID, userID uint) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{userID: userID, send: make(chan []byte, sendBuffer)}
	h.register(conversationID, c)

	done := make(chan struct{})
	go h.writePump(conn, c, done)

	// protocolo só de servidor -> cliente; leitura serve para detectar queda
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.unregister(conversationID, c)
	<-done
	return nil
}

func (h *Hub) writePump(conn *websocket.Conn, c *client, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
		close(done)
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
