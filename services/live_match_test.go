package services

import (
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livescore-client/logger"
	"livescore-client/models"
	"livescore-client/realtime"
	"livescore-client/storage"
)

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard, io.Discard)
	os.Exit(m.Run())
}

func newLiveFixture(t *testing.T) (*LiveMatchService, *realtime.Loopback, *storage.Service) {
	t.Helper()
	ch := realtime.NewLoopback()
	store := storage.NewService(storage.NewMemoryStore(), nil)
	return NewLiveMatchService(ch, store, nil, NewMetrics(nil)), ch, store
}

func goal(matchID, ts, player string, minute, home, away int) models.MatchEvent {
	return models.MatchEvent{
		EventType: models.EventTypeGoal,
		MatchID:   matchID,
		Timestamp: ts,
		Data: models.EventData{
			Player: models.StringPtr(player),
			Minute: models.IntPtr(minute),
			Score:  &models.Score{Home: home, Away: away},
		},
	}
}

func status(matchID, ts, code string) models.MatchEvent {
	return models.MatchEvent{
		EventType: models.EventTypeMatchStatus,
		MatchID:   matchID,
		Timestamp: ts,
		Data:      models.EventData{Status: models.StringPtr(code)},
	}
}

func TestHistoryBoundedNewestFirst(t *testing.T) {
	svc, ch, _ := newLiveFixture(t)
	require.NoError(t, svc.SelectMatch("2"))

	for i := 0; i < 75; i++ {
		ev := models.MatchEvent{
			EventType: models.EventTypeCard,
			MatchID:   "2",
			Timestamp: fmt.Sprintf("ts-%03d", i),
			Data:      models.EventData{Minute: models.IntPtr(i + 1)},
		}
		require.NoError(t, ch.PublishMatchEvent(ev))
	}

	events := svc.Events()
	require.Len(t, events, MaxHistory)
	assert.Equal(t, "ts-074", events[0].Timestamp)
	assert.Equal(t, "ts-025", events[MaxHistory-1].Timestamp)
	for i := 1; i < len(events); i++ {
		assert.Greater(t, events[i-1].Timestamp, events[i].Timestamp)
	}
	assert.Equal(t, 75, svc.State().Minute)
}

func TestDuplicateEventIgnored(t *testing.T) {
	svc, _, _ := newLiveFixture(t)
	require.NoError(t, svc.SelectMatch("2"))

	ev := goal("2", "2024-06-01T20:23:00Z", "Paolo Guerrero", 23, 1, 0)
	assert.Equal(t, IngestAccepted, svc.Ingest(ev))

	again := ev
	again.Data.Score = &models.Score{Home: 5, Away: 5}
	assert.Equal(t, IngestDuplicate, svc.Ingest(again))

	assert.Len(t, svc.Events(), 1)
	assert.Equal(t, models.Score{Home: 1, Away: 0}, svc.State().Score)
}

func TestDuplicateIgnoresEventID(t *testing.T) {
	svc, _, _ := newLiveFixture(t)
	require.NoError(t, svc.SelectMatch("2"))

	a := goal("2", "t1", "Paolo Guerrero", 23, 1, 0)
	a.EventID = "id-a"
	b := goal("2", "t1", "Paolo Guerrero", 23, 1, 0)
	b.EventID = "id-b"

	assert.Equal(t, IngestAccepted, svc.Ingest(a))
	assert.Equal(t, IngestDuplicate, svc.Ingest(b), "same tuple, different id")
	assert.Len(t, svc.Events(), 1)

	c := goal("2", "t2", "Gianluca Lapadula", 40, 2, 0)
	c.EventID = "id-a"
	assert.Equal(t, IngestAccepted, svc.Ingest(c), "reused id, different tuple")
	assert.Len(t, svc.Events(), 2)
	assert.Equal(t, models.Score{Home: 2, Away: 0}, svc.State().Score)
}

func TestForeignMatchDropped(t *testing.T) {
	svc, ch, _ := newLiveFixture(t)
	require.NoError(t, svc.SelectMatch("2"))
	svc.Ingest(goal("2", "t1", "Paolo Guerrero", 10, 1, 0))

	ch.Deliver(goal("1", "t2", "Lionel Messi", 12, 0, 1))
	assert.Equal(t, IngestForeignMatch, svc.Ingest(goal("3", "t3", "Neymar Jr", 14, 0, 1)))

	assert.Len(t, svc.Events(), 1)
	assert.Equal(t, models.Score{Home: 1, Away: 0}, svc.State().Score)
}

func TestIngestWithoutSelection(t *testing.T) {
	svc, _, store := newLiveFixture(t)
	assert.Equal(t, IngestNoMatch, svc.Ingest(goal("2", "t1", "x", 1, 1, 0)))
	assert.Empty(t, store.Keys())
}

func TestSelectMatchKeepsOneSubscription(t *testing.T) {
	svc, ch, _ := newLiveFixture(t)

	require.NoError(t, svc.SelectMatch("1"))
	require.NoError(t, svc.SelectMatch("2"))

	assert.Equal(t, 1, ch.HandlerCount())
	assert.Equal(t, []string{"2"}, ch.Matches())
	assert.Equal(t, []string{
		"subscribe_match:1",
		"unsubscribe_match:1",
		"subscribe_match:2",
	}, ch.ControlLog())

	// A late event for the previous match still reaching the handler is dropped.
	ch.Deliver(goal("1", "late", "Lionel Messi", 80, 0, 1))
	assert.Empty(t, svc.Events())

	require.NoError(t, svc.SelectMatch("2"))
	assert.Equal(t, 1, ch.HandlerCount())
	assert.Equal(t, []string{"2"}, ch.Matches())
}

func TestGoalScoresFollowPayload(t *testing.T) {
	svc, ch, _ := newLiveFixture(t)
	require.NoError(t, svc.SelectMatch("2"))

	require.NoError(t, ch.PublishMatchEvent(goal("2", "t1", "Paolo Guerrero", 23, 1, 0)))
	require.NoError(t, ch.PublishMatchEvent(goal("2", "t2", "Lionel Messi", 61, 1, 1)))

	st := svc.State()
	assert.Equal(t, models.Score{Home: 1, Away: 1}, st.Score)
	assert.Equal(t, 61, st.Minute)
	assert.Equal(t, 2, svc.CountByType(models.EventTypeGoal))
	assert.Equal(t, 0, svc.CountByType(models.EventTypeCard))
}

func TestGoalWithoutScoreKeepsScore(t *testing.T) {
	svc, _, _ := newLiveFixture(t)
	require.NoError(t, svc.SelectMatch("2"))

	svc.Ingest(goal("2", "t1", "Paolo Guerrero", 23, 1, 0))
	noScore := goal("2", "t2", "Lionel Messi", 30, 0, 0)
	noScore.Data.Score = nil
	svc.Ingest(noScore)

	assert.Equal(t, models.Score{Home: 1, Away: 0}, svc.State().Score)
}

func TestMinuteZeroDoesNotRewindClock(t *testing.T) {
	svc, _, _ := newLiveFixture(t)
	require.NoError(t, svc.SelectMatch("2"))

	svc.Ingest(goal("2", "t1", "Paolo Guerrero", 23, 1, 0))
	svc.Ingest(status("2", "t2", models.StatusHalfTime))
	sub := models.MatchEvent{EventType: models.EventTypeSubstitution, MatchID: "2", Timestamp: "t3", Data: models.EventData{Minute: models.IntPtr(0)}}
	svc.Ingest(sub)

	assert.Equal(t, 23, svc.State().Minute)
}

func TestStatusLabels(t *testing.T) {
	svc, _, _ := newLiveFixture(t)
	require.NoError(t, svc.SelectMatch("2"))
	assert.Equal(t, DefaultPhaseLabel, svc.State().PhaseLabel)

	svc.Ingest(status("2", "t1", models.StatusHalfTime))
	assert.Equal(t, "MEDIO TIEMPO", svc.State().PhaseLabel)

	svc.Ingest(status("2", "t2", "penalties"))
	assert.Equal(t, DefaultPhaseLabel, svc.State().PhaseLabel)

	svc.Ingest(status("2", "t3", models.StatusFullTime))
	assert.Equal(t, "FINAL", svc.State().PhaseLabel)

	assert.Equal(t, "PRIMER TIEMPO", PhaseLabel(models.StatusFirstHalfStart))
	assert.Equal(t, "SEGUNDO TIEMPO", PhaseLabel(models.StatusSecondHalfStart))
	assert.Equal(t, "EN VIVO", PhaseLabel(""))
}

func TestPersistenceSurvivesReload(t *testing.T) {
	svc, _, store := newLiveFixture(t)
	require.NoError(t, svc.SelectMatch("2"))
	svc.Ingest(goal("2", "t1", "Paolo Guerrero", 23, 1, 0))
	svc.Ingest(status("2", "t2", models.StatusHalfTime))
	svc.Teardown()

	reloaded := NewLiveMatchService(realtime.NewLoopback(), store, nil, nil)
	require.NoError(t, reloaded.SelectMatch("2"))

	st := reloaded.State()
	assert.Equal(t, models.Score{Home: 1, Away: 0}, st.Score)
	assert.Equal(t, 23, st.Minute)
	assert.Equal(t, "MEDIO TIEMPO", st.PhaseLabel)
	assert.Len(t, reloaded.Events(), 2)

	// Persisted history still dedups after reload.
	assert.Equal(t, IngestDuplicate, reloaded.Ingest(goal("2", "t1", "Paolo Guerrero", 23, 1, 0)))
}

func TestHistoryIsPerMatch(t *testing.T) {
	svc, _, _ := newLiveFixture(t)
	require.NoError(t, svc.SelectMatch("2"))
	svc.Ingest(goal("2", "t1", "Paolo Guerrero", 23, 1, 0))

	require.NoError(t, svc.SelectMatch("3"))
	assert.Empty(t, svc.Events())
	assert.Equal(t, models.Score{}, svc.State().Score)

	require.NoError(t, svc.SelectMatch("2"))
	assert.Len(t, svc.Events(), 1)
}

func TestClearThenReload(t *testing.T) {
	svc, _, store := newLiveFixture(t)
	require.NoError(t, svc.SelectMatch("2"))
	svc.Ingest(goal("2", "t1", "Paolo Guerrero", 23, 1, 0))

	assert.False(t, svc.Clear(func(string) bool { return false }))
	assert.Len(t, svc.Events(), 1)
	assert.False(t, svc.Clear(nil))

	var prompt string
	assert.True(t, svc.Clear(func(p string) bool { prompt = p; return true }))
	assert.Equal(t, "¿Limpiar eventos del partido Perú vs Argentina?", prompt)
	assert.Empty(t, svc.Events())

	_, ok := store.GetItem(EventsKey("2"))
	assert.False(t, ok)
	_, ok = store.GetItem(ScoreKey("2"))
	assert.False(t, ok)

	reloaded := NewLiveMatchService(realtime.NewLoopback(), store, nil, nil)
	require.NoError(t, reloaded.SelectMatch("2"))
	assert.Empty(t, reloaded.Events())
	assert.Equal(t, models.Score{}, reloaded.State().Score)
}

func TestClearWithoutSelection(t *testing.T) {
	svc, _, _ := newLiveFixture(t)
	called := false
	assert.False(t, svc.Clear(func(string) bool { called = true; return true }))
	assert.False(t, called)
}

func TestMalformedPersistedDataFailsSoft(t *testing.T) {
	svc, _, store := newLiveFixture(t)
	store.SetItem(EventsKey("2"), "[{broken")
	store.SetItem(ScoreKey("2"), "nope")

	require.NoError(t, svc.SelectMatch("2"))
	assert.Empty(t, svc.Events())
	assert.Equal(t, models.Score{}, svc.State().Score)

	assert.Equal(t, IngestAccepted, svc.Ingest(goal("2", "t1", "Paolo Guerrero", 23, 1, 0)))
	var persisted []models.MatchEvent
	require.True(t, store.GetObject(EventsKey("2"), &persisted))
	assert.Len(t, persisted, 1)
}

func TestTeardownIdempotent(t *testing.T) {
	svc, ch, _ := newLiveFixture(t)
	require.NoError(t, svc.SelectMatch("2"))

	svc.Teardown()
	svc.Teardown()

	assert.Equal(t, 0, ch.HandlerCount())
	assert.Empty(t, ch.Matches())
	assert.Equal(t, "", svc.SelectedMatchID())
	assert.Equal(t, IngestNoMatch, svc.Ingest(goal("2", "t1", "x", 1, 1, 0)))
	assert.Equal(t, []string{"subscribe_match:2", "unsubscribe_match:2"}, ch.ControlLog())
}

func TestOnUpdateReceivesSnapshots(t *testing.T) {
	svc, _, _ := newLiveFixture(t)
	var snaps []LiveSnapshot
	svc.OnUpdate(func(s LiveSnapshot) { snaps = append(snaps, s) })

	require.NoError(t, svc.SelectMatch("2"))
	svc.Ingest(goal("2", "t1", "Paolo Guerrero", 23, 1, 0))
	svc.Ingest(goal("2", "t1", "Paolo Guerrero", 23, 1, 0))

	require.Len(t, snaps, 2)
	require.NotNil(t, snaps[0].Match)
	assert.Equal(t, "MetLife Stadium", snaps[0].Match.Stadium)
	assert.Len(t, snaps[1].Events, 1)
}

func TestUnknownMatchHasNoCatalogEntry(t *testing.T) {
	svc, _, _ := newLiveFixture(t)
	require.NoError(t, svc.SelectMatch("42"))
	assert.Nil(t, svc.Snapshot().Match)

	var prompt string
	svc.Clear(func(p string) bool { prompt = p; return false })
	assert.Equal(t, "¿Limpiar eventos del partido 42?", prompt)
}

func TestIngestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	svc := NewLiveMatchService(realtime.NewLoopback(), storage.NewService(storage.NewMemoryStore(), nil), nil, metrics)
	require.NoError(t, svc.SelectMatch("2"))

	svc.Ingest(goal("2", "t1", "a", 1, 1, 0))
	svc.Ingest(goal("2", "t1", "a", 1, 1, 0))
	svc.Ingest(goal("9", "t1", "a", 1, 1, 0))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EventsIngested.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EventsIngested.WithLabelValues("duplicate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EventsIngested.WithLabelValues("foreign_match")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HistoryLength))
}

func TestEventDescriptions(t *testing.T) {
	assert.Equal(t, "¡GOL de Paolo Guerrero!", EventDescription(goal("2", "t", "Paolo Guerrero", 1, 1, 0)))
	assert.Equal(t, "¡GOL de Jugador!", EventDescription(models.MatchEvent{EventType: models.EventTypeGoal}))
	assert.Equal(t, "Tarjeta amarilla para Jugador", EventDescription(models.MatchEvent{EventType: models.EventTypeCard}))
	assert.Equal(t, "Tarjeta roja para Messi", EventDescription(models.MatchEvent{
		EventType: models.EventTypeRedCard, Data: models.EventData{Player: models.StringPtr("Messi")},
	}))
	assert.Equal(t, "Sale: A | Entra: B", EventDescription(models.MatchEvent{
		EventType: models.EventTypeSubstitution,
		Data:      models.EventData{PlayerOut: models.StringPtr("A"), PlayerIn: models.StringPtr("B")},
	}))
	assert.Equal(t, "☕ Medio tiempo", EventDescription(status("2", "t", models.StatusHalfTime)))
	assert.Equal(t, "penalties", StatusDescription("penalties"))
	assert.Equal(t, "corner", EventDescription(models.MatchEvent{EventType: "corner"}))

	assert.Equal(t, "🟥", EventIcon(models.EventTypeRedCard))
	assert.Equal(t, "📋", EventIcon("corner"))
	assert.Equal(t, "event-sub", EventClass(models.EventTypeSubstitution))
	assert.Equal(t, "event-default", EventClass("corner"))
}
