package models

// EventType 比赛事件类型
type EventType string

const (
	EventTypeGoal         EventType = "goal"
	EventTypeCard         EventType = "card"
	EventTypeRedCard      EventType = "red_card"
	EventTypeSubstitution EventType = "substitution"
	EventTypeMatchStatus  EventType = "match_status"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventTypeGoal, EventTypeCard, EventTypeRedCard, EventTypeSubstitution, EventTypeMatchStatus:
		return true
	}
	return false
}

// Match status codes carried by match_status events.
const (
	StatusFirstHalfStart  = "first_half_start"
	StatusHalfTime        = "half_time"
	StatusSecondHalfStart = "second_half_start"
	StatusFullTime        = "full_time"
	StatusLive            = "live"
)

// Score 比分信息
type Score struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// EventData is the type-specific payload of a MatchEvent. Every field is optional.
type EventData struct {
	Player    *string `json:"player,omitempty"`
	Team      *string `json:"team,omitempty"`
	Minute    *int    `json:"minute,omitempty"`
	CardType  *string `json:"cardType,omitempty"`
	PlayerOut *string `json:"playerOut,omitempty"`
	PlayerIn  *string `json:"playerIn,omitempty"`
	Score     *Score  `json:"score,omitempty"`
	Status    *string `json:"status,omitempty"`
}

// MatchEvent is a single notification about an in-progress match.
// Once received it is never mutated.
type MatchEvent struct {
	EventType EventType `json:"eventType"`
	MatchID   string    `json:"matchId"`
	Timestamp string    `json:"timestamp"`
	EventID   string    `json:"eventId,omitempty"`
	Data      EventData `json:"data"`
}

// DedupKey identifies an event for duplicate detection.
// Absent player or minute only equals another absent value.
type DedupKey struct {
	Timestamp string
	EventType EventType
	Player    string
	HasPlayer bool
	Minute    int
	HasMinute bool
}

// Key builds the dedup key of e.
func (e MatchEvent) Key() DedupKey {
	k := DedupKey{Timestamp: e.Timestamp, EventType: e.EventType}
	if e.Data.Player != nil {
		k.Player, k.HasPlayer = *e.Data.Player, true
	}
	if e.Data.Minute != nil {
		k.Minute, k.HasMinute = *e.Data.Minute, true
	}
	return k
}

// SameAs reports whether e and other describe the same notification.
// Only the dedup key decides; EventID is carried but never compared.
func (e MatchEvent) SameAs(other MatchEvent) bool {
	return e.Key() == other.Key()
}

// String returns the value of p or "" when p is nil.
func String(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
