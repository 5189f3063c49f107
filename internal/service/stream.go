package service

import (
	"sync"
)

// StreamHub fans activity events out to websocket subscribers. Slow
// subscribers are dropped rather than allowed to block publishers.
type StreamHub struct {
	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

func NewStreamHub() *StreamHub {
	return &StreamHub{
		subs: make(map[chan []byte]struct{}),
	}
}

func (h *StreamHub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 64)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

func (h *StreamHub) Publish(payload []byte) {
	if h == nil {
		return
	}
	h.mu.Lock()
	for ch := range h.subs {
		select {
		case ch <- payload:
		default:
			delete(h.subs, ch)
			close(ch)
		}
	}
	h.mu.Unlock()
}

func (h *StreamHub) SubscriberCount() int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
