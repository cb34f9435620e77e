// Package notify fans data-change notifications out to live subscribers,
// the websocket change feed being the main one.
package notify

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"retailsync/internal/platform/models"
)

type Source string

const (
	SourceWebhook Source = "webhook"
	SourceSync    Source = "sync"
)

// Change says that a collection was rewritten.
type Change struct {
	Source     Source            `json:"source"`
	Collection models.Collection `json:"collection,omitempty"`
	Event      string            `json:"event,omitempty"`
	Count      int               `json:"count"`
	At         time.Time         `json:"at"`
}

// Publisher is what producers depend on.
type Publisher interface {
	Publish(change Change)
}

const subscriberBuffer = 32

// Hub delivers each Change to every current subscriber. A subscriber whose
// buffer is full misses the change; publishers never block.
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan Change
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Change)}
}

// Subscribe returns a receive channel and a cancel func that closes it.
func (h *Hub) Subscribe() (<-chan Change, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan Change, subscriberBuffer)
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Publish(change Change) {
	if change.At.IsZero() {
		change.At = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.subs {
		select {
		case ch <- change:
		default:
			log.Warn().Int("subscriber", id).Str("collection", string(change.Collection)).Msg("change feed subscriber is behind, dropping notification")
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Discard is a Publisher that drops everything.
type Discard struct{}

func (Discard) Publish(Change) {}
