package api

import (
	"log/slog"
	"sync"
)

// Broadcaster fans StreamEvents out to any number of /stream subscribers.
// Grounded on the teacher's websocket Hub, narrowed to plain channels since
// SSE subscribers never write back.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[chan StreamEvent]struct{}
	logger *slog.Logger
}

// NewBroadcaster builds an empty Broadcaster.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		subs:   make(map[chan StreamEvent]struct{}),
		logger: logger.With("component", "stream-broadcaster"),
	}
}

// Subscribe registers a new subscriber and returns its event channel.
func (b *Broadcaster) Subscribe() chan StreamEvent {
	ch := make(chan StreamEvent, 64)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes sub's channel.
func (b *Broadcaster) Unsubscribe(sub chan StreamEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(sub)
	}
}

// Publish fans evt out to every current subscriber. A subscriber that
// can't keep up is dropped rather than blocking the publisher.
func (b *Broadcaster) Publish(evt StreamEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- evt:
		default:
			b.logger.Warn("stream subscriber too slow, dropping")
			delete(b.subs, ch)
			close(ch)
		}
	}
}
