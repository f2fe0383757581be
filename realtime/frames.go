package realtime

import "encoding/json"

// Frame types exchanged over the websocket channel.
const (
	FrameSubscribe   = "subscribe_match"
	FrameUnsubscribe = "unsubscribe_match"
	FrameMatchEvent  = "match_event"
	FrameAck         = "ack"
	FrameError       = "error"
)

// Frame is the websocket envelope in both directions.
type Frame struct {
	Type    string          `json:"type"`
	MatchID string          `json:"matchId,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// MatchTopic is the MQTT topic carrying events for one match.
func MatchTopic(matchID string) string {
	return "matches/" + matchID + "/events"
}

// RoutingKey is the AMQP routing key carrying events for one match.
func RoutingKey(matchID string) string {
	return "match." + matchID
}
