package hub

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	"github.com/aNThiCu/AirsoftChronograph/internal/model"
	"github.com/aNThiCu/AirsoftChronograph/internal/render"
)

// Client represents a dashboard viewer connection
type Client struct {
	ID   string
	Send chan []byte
}

// Hub keeps the dashboard viewers up to date with the latest rendered view
type Hub struct {
	// Dashboard viewers
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client

	// Latest snapshot not yet rendered; a newer one replaces it
	snapshots chan model.Snapshot

	// Last encoded view, replayed to viewers on register
	last []byte

	viewport render.Viewport
	log      *slog.Logger

	// Shutdown
	done     chan struct{}
	stopOnce sync.Once

	mu sync.RWMutex
}

// NewHub creates a new Hub rendering charts into viewport
func NewHub(viewport render.Viewport, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		snapshots:  make(chan model.Snapshot, 1),
		viewport:   viewport,
		log:        log,
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			// Close all client channels
			h.mu.Lock()
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.log.Info("hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			if h.last != nil {
				select {
				case client.Send <- h.last:
				default:
					h.log.Warn("viewer send buffer full, skipping replay", "client", client.ID)
				}
			}
			h.mu.Unlock()
			h.log.Info("viewer registered", "client", client.ID, "viewers", h.GetClientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()
			h.log.Info("viewer unregistered", "client", client.ID, "viewers", h.GetClientCount())

		case snap := <-h.snapshots:
			msg := model.Message{
				Type: model.MessageTypeView,
				Data: render.NewView(snap, h.viewport),
			}
			data, err := json.Marshal(msg)
			if err != nil {
				h.log.Error("error encoding view", "error", err)
				continue
			}

			h.mu.Lock()
			h.last = data
			for client := range h.clients {
				select {
				case client.Send <- data:
				default:
					close(client.Send)
					delete(h.clients, client)
					h.log.Warn("viewer send buffer full, disconnecting", "client", client.ID)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Register adds a viewer to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

// Unregister removes a viewer from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Render hands a session snapshot to the hub without blocking. A snapshot
// still waiting to be rendered is replaced, so viewers always end on the
// latest state.
func (h *Hub) Render(snap model.Snapshot) {
	for {
		select {
		case h.snapshots <- snap:
			return
		default:
		}
		select {
		case <-h.snapshots:
		default:
		}
	}
}

// GetClientCount returns the number of connected viewers
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop gracefully stops the hub
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}
