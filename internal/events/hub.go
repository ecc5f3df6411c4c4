package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

type Client struct {
	ID   string
	Send chan []byte
}

// Hub fans messages out to connected websocket clients. Clients that cannot
// keep up are dropped instead of blocking the hub.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	register chan *Client
	unreg    chan *Client
	sendAll  chan []byte

	log     *slog.Logger
	stop    chan struct{}
	stopped chan struct{}

	nextID atomic.Uint64
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		clients:  make(map[string]*Client),
		register: make(chan *Client),
		unreg:    make(chan *Client),
		sendAll:  make(chan []byte, 256),
		log:      log.With("cmp", "ws.hub"),
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

func (h *Hub) Run() {
	defer close(h.stopped)

	for {
		select {
		case c := <-h.register:
			if c.ID == "" {
				c.ID = fmt.Sprintf("c%d", h.nextID.Add(1))
			}
			h.mu.Lock()
			h.clients[c.ID] = c
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client_registered", "id", c.ID, "total", total)

		case c := <-h.unreg:
			h.remove(c.ID)

		case msg := <-h.sendAll:
			var slow []string
			h.mu.RLock()
			for id, c := range h.clients {
				select {
				case c.Send <- msg:
				default:
					slow = append(slow, id)
				}
			}
			h.mu.RUnlock()
			for _, id := range slow {
				h.remove(id)
				h.log.Warn("client_dropped_slow", "id", id)
			}

		case <-h.stop:
			h.mu.Lock()
			for id, c := range h.clients {
				close(c.Send)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(c.Send)
	}
}

func (h *Hub) Stop() {
	close(h.stop)
	<-h.stopped
}

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.stopped:
		close(c.Send)
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unreg <- c:
	case <-h.stopped:
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Broadcast(b []byte) error {
	select {
	case h.sendAll <- b:
		return nil
	case <-h.stopped:
		return fmt.Errorf("hub stopped")
	default:
		return fmt.Errorf("hub queue full")
	}
}

func (h *Hub) Notify(_ context.Context, e Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return h.Broadcast(b)
}
