package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"hazard-service/metrics"

	"github.com/apex/log"
)

// Event types pushed to live map clients.
const (
	EventReportCreated = "report_created"
	EventReportUpdated = "report_updated"
	EventVoteChanged   = "vote_changed"
)

// Event is the envelope broadcast to every connected client.
type Event struct {
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Hub manages WebSocket connections and broadcasting
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Outbound messages to all clients
	broadcast chan []byte

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	mutex sync.RWMutex

	connectedClients int
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mutex.Lock()
			h.clients[client] = true
			h.connectedClients = len(h.clients)
			h.mutex.Unlock()
			metrics.WebsocketClients.Set(float64(h.connectedClients))
			log.Infof("Websocket client connected. Total clients: %d", h.connectedClients)

		case client := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.connectedClients = len(h.clients)
			}
			h.mutex.Unlock()
			metrics.WebsocketClients.Set(float64(h.connectedClients))
			log.Infof("Websocket client disconnected. Total clients: %d", h.connectedClients)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow client; drop it rather than block the hub.
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.connectedClients = len(h.clients)
			h.mutex.Unlock()
			metrics.WebsocketClients.Set(float64(h.connectedClients))
		}
	}
}

// BroadcastEvent pushes one event to all connected clients.
func (h *Hub) BroadcastEvent(eventType string, data any) {
	event := Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}

	message, err := json.Marshal(event)
	if err != nil {
		log.Errorf("Failed to marshal broadcast event: %v", err)
		return
	}

	h.broadcast <- message
	log.Debugf("Broadcasted %s to %d clients", eventType, h.ConnectedClients())
}

// ConnectedClients returns the current client count.
func (h *Hub) ConnectedClients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.connectedClients
}
