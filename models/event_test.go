package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupKeyAbsentFields(t *testing.T) {
	a := MatchEvent{EventType: EventTypeMatchStatus, Timestamp: "t1", Data: EventData{Status: StringPtr(StatusHalfTime)}}
	b := MatchEvent{EventType: EventTypeMatchStatus, Timestamp: "t1", Data: EventData{Status: StringPtr(StatusFullTime)}}
	assert.True(t, a.SameAs(b), "status is not part of the key")

	c := b
	c.Data.Minute = IntPtr(0)
	assert.False(t, a.SameAs(c), "absent minute differs from minute 0")
}

func TestDedupIgnoresEventID(t *testing.T) {
	a := MatchEvent{EventType: EventTypeGoal, Timestamp: "t1", EventID: "x", Data: EventData{Player: StringPtr("Lapadula"), Minute: IntPtr(12)}}

	twin := a
	twin.EventID = "y"
	assert.True(t, a.SameAs(twin), "equal keys are the same notification whatever the id")

	twin.EventID = ""
	assert.True(t, a.SameAs(twin))

	reused := a
	reused.Timestamp = "t2"
	assert.False(t, a.SameAs(reused), "a reused id with a different key is a new notification")
}

func TestMatchEventJSON(t *testing.T) {
	raw := `{"eventType":"goal","matchId":"2","timestamp":"2024-06-01T20:00:00Z","data":{"player":"Paolo Guerrero","minute":23,"score":{"home":1,"away":0}}}`

	var ev MatchEvent
	require.NoError(t, json.Unmarshal([]byte(raw), &ev))
	assert.Equal(t, EventTypeGoal, ev.EventType)
	assert.Equal(t, "Paolo Guerrero", String(ev.Data.Player))
	require.NotNil(t, ev.Data.Minute)
	assert.Equal(t, 23, *ev.Data.Minute)
	assert.Equal(t, &Score{Home: 1, Away: 0}, ev.Data.Score)
	assert.Nil(t, ev.Data.Status)
}

func TestEventTypeValid(t *testing.T) {
	assert.True(t, EventTypeRedCard.Valid())
	assert.False(t, EventType("corner").Valid())
}
