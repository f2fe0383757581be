package realtime

import (
	"sync"

	"livescore-client/models"
)

// Loopback is an in-process Channel. Publish delivers only to subscribed
// matches, like a relay room; Deliver bypasses the room check to model
// events that were already in flight when a match was unsubscribed.
type Loopback struct {
	handlers *handlerSet

	mu      sync.Mutex
	matches map[string]bool
	log     []string
}

func NewLoopback() *Loopback {
	return &Loopback{handlers: newHandlerSet(), matches: make(map[string]bool)}
}

func (l *Loopback) SubscribeMatch(matchID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.matches[matchID] = true
	l.log = append(l.log, FrameSubscribe+":"+matchID)
	return nil
}

func (l *Loopback) UnsubscribeMatch(matchID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.matches, matchID)
	l.log = append(l.log, FrameUnsubscribe+":"+matchID)
	return nil
}

func (l *Loopback) OnMatchEvent(handler EventHandler) *Subscription {
	return l.handlers.add(handler)
}

// PublishMatchEvent delivers event when its match is subscribed.
func (l *Loopback) PublishMatchEvent(event models.MatchEvent) error {
	l.mu.Lock()
	ok := l.matches[event.MatchID]
	l.mu.Unlock()
	if ok {
		l.handlers.dispatch(event)
	}
	return nil
}

// Deliver hands event to every handler regardless of subscriptions.
func (l *Loopback) Deliver(event models.MatchEvent) {
	l.handlers.dispatch(event)
}

// Matches lists subscribed matches.
func (l *Loopback) Matches() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return sortedMatches(l.matches)
}

// HandlerCount returns the number of attached handlers.
func (l *Loopback) HandlerCount() int {
	return l.handlers.len()
}

// ControlLog returns the subscribe/unsubscribe calls in order.
func (l *Loopback) ControlLog() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.log...)
}
