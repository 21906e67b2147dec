package notifier

import "sync"

// subscriberBuffer is the channel depth per subscriber. A slow consumer
// loses events rather than stalling the pipeline.
const subscriberBuffer = 64

// Hub is an in-memory Notifier that fans events out to per-shop
// subscribers. The SSE progress endpoint subscribes here.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[int]chan Event
	nextID      int
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]map[int]chan Event)}
}

// Subscribe registers a listener for the given shop. The returned cancel
// function removes the subscription and closes the channel.
func (h *Hub) Subscribe(shop string) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subscribers[shop] == nil {
		h.subscribers[shop] = make(map[int]chan Event)
	}
	id := h.nextID
	h.nextID++

	ch := make(chan Event, subscriberBuffer)
	h.subscribers[shop][id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if subs, ok := h.subscribers[shop]; ok {
			if c, ok := subs[id]; ok {
				delete(subs, id)
				close(c)
			}
			if len(subs) == 0 {
				delete(h.subscribers, shop)
			}
		}
	}
	return ch, cancel
}

// Send delivers the event to every subscriber of the shop, dropping it for
// subscribers whose buffer is full.
func (h *Hub) Send(shop string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subscribers[shop] {
		select {
		case ch <- event:
		default:
		}
	}
}
