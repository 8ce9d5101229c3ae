package realtime

import (
	"sync"

	"github.com/existflow/dashcraft/internal/logger"
)

// DefaultBuffer is how many events a subscriber may fall behind before
// events are dropped
const DefaultBuffer = 64

// Hub fans published events out to matching subscriptions
type Hub struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	buffer int
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{}), buffer: DefaultBuffer}
}

// Subscription receives the events of one channel
type Subscription struct {
	hub     *Hub
	channel Channel
	events  chan Event
	once    sync.Once
}

// Subscribe registers a subscription for ch
func (h *Hub) Subscribe(ch Channel) *Subscription {
	s := &Subscription{hub: h, channel: ch, events: make(chan Event, h.buffer)}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	logger.Debug("Realtime subscription opened", logger.F("channel", ch.Key()))
	return s
}

// Publish delivers e to every matching subscription without blocking and
// returns how many received it
func (h *Hub) Publish(e Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for s := range h.subs {
		if !s.channel.Matches(e) {
			continue
		}
		select {
		case s.events <- e:
			delivered++
		default:
			logger.Warn("Realtime subscriber is slow, dropping event",
				logger.F("channel", s.channel.Key()), logger.F("event", string(e.Type)))
		}
	}
	return delivered
}

// Len returns the number of open subscriptions
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Channel returns the channel the subscription listens on
func (s *Subscription) Channel() Channel { return s.channel }

// Events returns the event stream. It is closed by Close.
func (s *Subscription) Events() <-chan Event { return s.events }

// Close removes the subscription from the hub
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		close(s.events)
		s.hub.mu.Unlock()
		logger.Debug("Realtime subscription closed", logger.F("channel", s.channel.Key()))
	})
}
