// Package ws pushes accepted alerts to connected subscribers. The pipeline
// only publishes into the hub; it has no dependency on subscriber count or
// presence.
package ws

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/alertd/alertd/internal/alert"
)

// Event is the wire envelope pushed to subscribers.
type Event struct {
	Event string      `json:"event"`
	Data  alert.Alert `json:"data"`
}

// Hub maintains the set of active clients and broadcasts events to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	log        *zap.Logger
	upgrader   websocket.Upgrader
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The HTTP surface is CORS-open; the socket follows suit.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Run owns the client set until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			h.log.Info("subscriber connected", zap.String("remote", c.conn.RemoteAddr().String()))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.log.Info("subscriber disconnected", zap.String("remote", c.conn.RemoteAddr().String()))
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow consumer: drop it rather than stall the hub.
					delete(h.clients, c)
					close(c.send)
				}
			}
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
			}
			return
		}
	}
}

// Publish broadcasts a newAlert event. It never blocks the caller: if the
// hub is saturated the event is dropped and the alert stays persisted.
func (h *Hub) Publish(a alert.Alert) {
	msg, err := json.Marshal(Event{Event: "newAlert", Data: a})
	if err != nil {
		h.log.Error("marshal alert event", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn("broadcast buffer full, event dropped", zap.String("id", a.ID))
	}
}

// ServeWS upgrades an HTTP request to a subscription.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &Client{hub: h, conn: conn, send: make(chan []byte, 32)}
	h.register <- c
	go c.writePump()
	go c.readPump()
}
