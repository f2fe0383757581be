// Package realtime holds the clients for the live match-event channel.
// Every transport exposes the same Channel surface: per-match
// subscribe/unsubscribe control plus handler registration for inbound
// match_event notifications.
package realtime

import (
	"encoding/json"
	"sort"
	"sync"

	"livescore-client/logger"
	"livescore-client/models"
)

// EventHandler receives decoded match events. Handlers are invoked one at a
// time from the transport's read loop.
type EventHandler func(event models.MatchEvent)

// Channel is the consumed real-time contract.
type Channel interface {
	SubscribeMatch(matchID string) error
	UnsubscribeMatch(matchID string) error
	OnMatchEvent(handler EventHandler) *Subscription
}

// Publisher pushes events onto a transport. The relay fans out through it.
type Publisher interface {
	PublishMatchEvent(event models.MatchEvent) error
}

// Subscription is the handle returned by OnMatchEvent.
type Subscription struct {
	once   sync.Once
	mu     sync.Mutex
	active bool
	remove func()
}

// Unsubscribe detaches the handler. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.mu.Lock()
		s.active = false
		s.mu.Unlock()
		s.remove()
	})
}

// Active reports whether the handler is still attached.
func (s *Subscription) Active() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// handlerSet is the handler registry shared by all transports.
type handlerSet struct {
	mu       sync.RWMutex
	next     uint64
	handlers map[uint64]EventHandler
}

func newHandlerSet() *handlerSet {
	return &handlerSet{handlers: make(map[uint64]EventHandler)}
}

func (h *handlerSet) add(fn EventHandler) *Subscription {
	h.mu.Lock()
	id := h.next
	h.next++
	h.handlers[id] = fn
	h.mu.Unlock()

	return NewSubscription(func() {
		h.mu.Lock()
		delete(h.handlers, id)
		h.mu.Unlock()
	})
}

func (h *handlerSet) len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.handlers)
}

// dispatch calls handlers in registration order.
func (h *handlerSet) dispatch(event models.MatchEvent) {
	h.mu.RLock()
	ids := make([]uint64, 0, len(h.handlers))
	for id := range h.handlers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]EventHandler, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, h.handlers[id])
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(event)
	}
}

// decodeAndDispatch parses a raw MatchEvent payload.
func (h *handlerSet) decodeAndDispatch(source string, payload []byte) {
	var event models.MatchEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		logger.Errorf("[%s] Error unmarshaling match event: %v", source, err)
		return
	}
	h.dispatch(event)
}

// sortedMatches snapshots a subscription set.
func sortedMatches(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// NewSubscription returns an active handle whose Unsubscribe runs remove once.
func NewSubscription(remove func()) *Subscription {
	return &Subscription{active: true, remove: remove}
}
