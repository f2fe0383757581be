package main

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livescore-client/logger"
	"livescore-client/models"
	"livescore-client/realtime"
	"livescore-client/services"
	"livescore-client/storage"
)

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard, io.Discard)
	os.Exit(m.Run())
}

func TestServeMetricsExposesIngest(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := services.NewMetrics(reg)

	live := services.NewLiveMatchService(realtime.NewLoopback(), storage.NewService(storage.NewMemoryStore(), nil), nil, metrics)
	require.NoError(t, live.SelectMatch("2"))
	defer live.Teardown()
	live.Ingest(models.MatchEvent{EventType: models.EventTypeGoal, MatchID: "2", Timestamp: "t1"})

	addr, stop, err := serveMetrics("127.0.0.1:0", reg)
	require.NoError(t, err)
	defer stop()

	resp, err := http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	assert.Contains(t, string(body), `livescore_live_match_events_total{result="accepted"} 1`)
	assert.Contains(t, string(body), `livescore_live_match_history_length 1`)
}

func TestReplayFileSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replay.jsonl")
	lines := `{"eventType":"goal","matchId":"2","timestamp":"t1","data":{"minute":3}}
{broken

{"eventType":"match_status","matchId":"2","timestamp":"t2","data":{"status":"half_time"}}
`
	require.NoError(t, os.WriteFile(path, []byte(lines), 0o644))

	lb := realtime.NewLoopback()
	require.NoError(t, lb.SubscribeMatch("2"))
	var got []models.MatchEvent
	lb.OnMatchEvent(func(ev models.MatchEvent) { got = append(got, ev) })

	n, err := replayFile(path, lb)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, got, 2)
	assert.Equal(t, models.EventTypeMatchStatus, got[1].EventType)
}
