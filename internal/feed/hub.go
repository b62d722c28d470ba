// Package feed broadcasts settlement receipts to WebSocket subscribers.
package feed

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ticket-settlement-lab/internal/domain"
	"ticket-settlement-lab/internal/observability"
)

// HubConfig configures hub behavior.
type HubConfig struct {
	// SendBuffer is the per-subscriber outgoing message buffer. A subscriber
	// whose buffer is full misses the message rather than stalling the feed.
	SendBuffer int
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
}

// DefaultHubConfig returns default hub configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		SendBuffer:   64,
		WriteTimeout: 10 * time.Second,
		PingInterval: 30 * time.Second,
	}
}

// Hub fans settlement receipts out to connected WebSocket clients. It
// satisfies the record sink interface of the settlement services, so every
// emitted receipt reaches subscribers without extra plumbing.
type Hub struct {
	config   HubConfig
	upgrader websocket.Upgrader
	logger   *log.Logger

	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

type subscriber struct {
	send chan []byte
}

// NewHub creates a hub with the given config. A nil config uses defaults.
func NewHub(config *HubConfig, logger *log.Logger) *Hub {
	cfg := DefaultHubConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.Default()
	}

	return &Hub{
		config: cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
		subs:   make(map[*subscriber]struct{}),
	}
}

// Publish broadcasts a receipt to all subscribers. Slow subscribers miss the
// message; the settlement path never blocks on the feed.
func (h *Hub) Publish(r *domain.Receipt) {
	if r == nil {
		return
	}

	data, err := json.Marshal(r)
	if err != nil {
		h.logger.Printf("feed: marshal receipt %s: %v", r.ID, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		select {
		case sub.send <- data:
		default:
			observability.DefaultMetrics.FeedDropped.Inc()
		}
	}
}

// SubscriberCount returns the number of connected subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// ServeHTTP upgrades the request and streams receipts until the client
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("feed: upgrade: %v", err)
		return
	}

	sub := &subscriber{send: make(chan []byte, h.config.SendBuffer)}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	observability.DefaultMetrics.FeedSubscribers.Set(float64(len(h.subs)))
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.subs, sub)
		observability.DefaultMetrics.FeedSubscribers.Set(float64(len(h.subs)))
		h.mu.Unlock()
		conn.Close()
	}()

	// Drain incoming frames so close and pong handling works.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case data := <-sub.send:
			conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
