package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/xelth-com/eckpunchgo/internal/ledger"
	"github.com/xelth-com/eckpunchgo/internal/models"
	"go.uber.org/zap"
)

// Event types pushed to dashboards
const (
	EventPunch = "PUNCH"
	EventReset = "RESET"
)

// Event is the message broadcast to every connected dashboard
type Event struct {
	Type  string        `json:"type"`
	Punch *models.Punch `json:"punch,omitempty"`
}

// Hub maintains the set of active dashboard clients and broadcasts ledger
// changes to them
type Hub struct {
	// Registered clients map: ClientID -> Client
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}

	// Mutex for thread-safe access to clients map
	mu  sync.RWMutex
	log *zap.Logger
}

// NewHub creates a new Hub instance
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
		log:        log.Named("ws"),
	}
}

// Run starts the hub's main loop; it returns when ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		h.mu.Lock()
		for id, c := range h.clients {
			close(c.send)
			delete(h.clients, id)
		}
		h.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			h.log.Info("Dashboard connected", zap.String("client_id", client.ID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.send)
				h.log.Info("Dashboard disconnected", zap.String("client_id", client.ID))
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for id, client := range h.clients {
				select {
				case client.send <- msg:
				default:
					// Buffer full: drop the slow client
					delete(h.clients, id)
					close(client.send)
					h.log.Warn("Dropping slow dashboard", zap.String("client_id", id))
				}
			}
			h.mu.Unlock()
		}
	}
}

// ClientCount returns the number of connected dashboards
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues an event for every client. It never blocks the caller.
func (h *Hub) Broadcast(ev Event) bool {
	msg, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("Error marshaling event", zap.Error(err))
		return false
	}
	select {
	case h.broadcast <- msg:
		return true
	default:
		h.log.Warn("Broadcast queue full, event dropped", zap.String("type", ev.Type))
		return false
	}
}

// PublishChange forwards a ledger change to dashboards
func (h *Hub) PublishChange(c ledger.Change) {
	if c.Reset {
		h.Broadcast(Event{Type: EventReset})
		return
	}
	if c.Punch != nil {
		h.Broadcast(Event{Type: EventPunch, Punch: c.Punch})
	}
}

func (h *Hub) enqueue(ch chan *Client, c *Client) bool {
	select {
	case ch <- c:
		return true
	case <-h.done:
		return false
	}
}
