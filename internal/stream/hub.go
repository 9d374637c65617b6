package stream

import (
	"sync"

	"github.com/solscope/phoenixscope/internal/model"
)

const subscriberBuffer = 64

// Hub fans persisted fills out to live subscribers. Publishing never
// blocks the ingestion loop: a subscriber whose buffer is full misses
// the message and a persistently stalled one is dropped.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan model.FillMessage]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan model.FillMessage]struct{})}
}

// Subscribe registers a new listener and returns its channel.
func (h *Hub) Subscribe() chan model.FillMessage {
	ch := make(chan model.FillMessage, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener and closes its channel.
func (h *Hub) Unsubscribe(ch chan model.FillMessage) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
	h.mu.Unlock()
}

// Publish delivers a fill to every subscriber that can keep up.
func (h *Hub) Publish(msg model.FillMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- msg:
		default:
			// Subscriber buffer full; skip this message for them.
		}
	}
}

// Len reports the current subscriber count.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
