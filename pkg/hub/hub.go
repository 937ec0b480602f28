package hub

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-agecam/internal/log"
)

// sendBuffer is the per-client queue length. A viewer that falls this many
// messages behind is dropped.
const sendBuffer = 16

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Name for logging
	name   string
	logger *slog.Logger

	// Registered clients
	clients map[Sender]bool

	// Last broadcast message, replayed to clients on connect
	last    Message
	hasLast bool

	// Inbound messages to broadcast
	broadcast chan Message

	// Register requests from clients
	register chan Sender

	// Unregister requests from clients
	unregister chan Sender

	// Mutex for client state (read-only access from outside)
	mu sync.RWMutex

	running  atomic.Bool
	done     chan struct{}
	stopOnce sync.Once
	dropped  atomic.Uint64
}

// Sender is anything the hub can queue messages for. The hub closes the
// channel when it drops or unregisters the sender.
type Sender interface {
	Queue() chan Message
}

// New creates a new Hub
func New(name string) *Hub {
	return &Hub{
		name:       name,
		logger:     log.With("hub", name),
		clients:    make(map[Sender]bool),
		broadcast:  make(chan Message, 64),
		register:   make(chan Sender),
		unregister: make(chan Sender),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop and returns after Stop.
// This should be called in a goroutine
func (h *Hub) Run() {
	h.running.Store(true)
	defer h.running.Store(false)

	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for c := range h.clients {
				close(c.Queue())
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			if h.hasLast {
				// Fresh queue, cannot block.
				c.Queue() <- h.last
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client connected", "clients", count)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.Queue())
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client disconnected", "clients", count)

		case message := <-h.broadcast:
			h.mu.Lock()
			h.last, h.hasLast = message, true
			for c := range h.clients {
				select {
				case c.Queue() <- message:
					// Message queued successfully
				default:
					// Client's buffer is full - they're too slow
					close(c.Queue())
					delete(h.clients, c)
					h.logger.Warn("dropped slow client")
				}
			}
			h.mu.Unlock()
		}
	}
}

// Stop ends Run and disconnects every client. Safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Register adds a sender. It reports false when the hub has stopped.
func (h *Hub) Register(s Sender) bool {
	select {
	case h.register <- s:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a sender and closes its queue.
func (h *Hub) Unregister(s Sender) {
	select {
	case h.unregister <- s:
	case <-h.done:
	}
}

// Broadcast sends a message to all connected clients. It never blocks;
// when the hub is backed up the message is dropped.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.dropped.Add(1)
		h.logger.Debug("broadcast channel full, dropping message")
	}
}

// BroadcastJSON encodes and broadcasts a JSON message
func (h *Hub) BroadcastJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(NewJSONMessage(data))
	return nil
}

// BroadcastBinary broadcasts binary data (e.g., camera frames)
func (h *Hub) BroadcastBinary(data []byte) {
	h.Broadcast(NewBinaryMessage(data))
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many broadcasts were discarded because the hub was
// backed up.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// IsRunning returns whether the hub is running
func (h *Hub) IsRunning() bool {
	return h.running.Load()
}

// Name returns the hub name.
func (h *Hub) Name() string { return h.name }
