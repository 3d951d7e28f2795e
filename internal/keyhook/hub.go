// Package keyhook turns a global keyboard hook into an ordered, timestamped key-event feed.
package keyhook

import (
	"errors"
	"sync"

	"voxkey/internal/domain"
)

// ErrUnsupportedKey is returned for hotkeys the OS hook cannot register, such as a
// bare modifier key.
var ErrUnsupportedKey = errors.New("key cannot be registered as a global hotkey")

// Hub fans key events out to subscribers in publish order.
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(domain.KeyEvent)
	order  []int
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]func(domain.KeyEvent))}
}

// Subscribe registers fn and returns a function that removes it again.
func (h *Hub) Subscribe(fn func(domain.KeyEvent)) (unsubscribe func()) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	h.order = append(h.order, id)
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			for i, existing := range h.order {
				if existing == id {
					h.order = append(h.order[:i], h.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish delivers ev to every subscriber. Callers must publish from a single
// goroutine to keep the stream ordered.
func (h *Hub) Publish(ev domain.KeyEvent) {
	h.mu.RLock()
	targets := make([]func(domain.KeyEvent), 0, len(h.order))
	for _, id := range h.order {
		targets = append(targets, h.subs[id])
	}
	h.mu.RUnlock()

	for _, fn := range targets {
		fn(ev)
	}
}

// Len returns the number of active subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
