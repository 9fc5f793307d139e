// Package hub fans out live events to the clients watching a game.
package hub

import (
	"encoding/json"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// EventCommentCreated is sent when a comment is added to the watched game.
const EventCommentCreated = "comment.created"

// clientBuffer is how many undelivered events a client may lag behind before events are dropped.
const clientBuffer = 16

// Event is one message pushed to clients.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Client receives encoded events. The hub closes it on Unsubscribe.
type Client chan []byte

// NewClient returns a buffered Client.
func NewClient() Client {
	return make(Client, clientBuffer)
}

// Hub tracks the clients subscribed to each game.
type Hub struct {
	games  map[uint]map[Client]bool
	closed bool
	mu     sync.RWMutex
}

var (
	subscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "comment_stream_subscribers",
		Help: "Number of clients connected to a comment stream.",
	})
	dropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "comment_stream_dropped_total",
		Help: "Events not delivered because a client buffer was full.",
	})
	registerOnce sync.Once
)

// New creates an empty Hub.
func New() *Hub {
	registerOnce.Do(func() {
		prometheus.MustRegister(subscribers, dropped)
	})

	return &Hub{
		games: make(map[uint]map[Client]bool),
	}
}

// Subscribe adds client to the game's audience. After Close the client is closed at once.
func (h *Hub) Subscribe(gameID uint, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(client)
		return
	}

	if _, ok := h.games[gameID]; !ok {
		h.games[gameID] = make(map[Client]bool)
	}

	h.games[gameID][client] = true

	subscribers.Inc()
}

// Unsubscribe removes client from the game's audience and closes it.
func (h *Hub) Unsubscribe(gameID uint, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.games[gameID]
	if !ok || !clients[client] {
		return
	}

	delete(clients, client)
	close(client)
	subscribers.Dec()

	if len(clients) == 0 {
		delete(h.games, gameID)
	}
}

// Close disconnects every client so open streams can finish.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true

	for gameID, clients := range h.games {
		for client := range clients {
			close(client)
			subscribers.Dec()
		}

		delete(h.games, gameID)
	}
}

// Subscribers returns how many clients watch gameID.
func (h *Hub) Subscribers(gameID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.games[gameID])
}

// Publish sends event to every client of gameID without blocking.
func (h *Hub) Publish(gameID uint, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.games[gameID]
	if !ok {
		return
	}

	msg, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("type", event.Type).Msg("encode hub event")
		return
	}

	for client := range clients {
		select {
		case client <- msg:
		default:
			dropped.Inc()
			log.Debug().Uint("game_id", gameID).Msg("client buffer full, event dropped")
		}
	}
}
