package services

import (
	"fmt"
	"sync"

	"livescore-client/catalog"
	"livescore-client/logger"
	"livescore-client/models"
	"livescore-client/realtime"
	"livescore-client/storage"
)

const (
	// MaxHistory bounds the retained events per match
	MaxHistory = 50

	// StoragePrefix namespaces the per-match storage keys
	StoragePrefix = "match_"

	// DefaultPhaseLabel is shown until a known status arrives
	DefaultPhaseLabel = "EN VIVO"
)

var phaseLabels = map[string]string{
	models.StatusFirstHalfStart:  "PRIMER TIEMPO",
	models.StatusHalfTime:        "MEDIO TIEMPO",
	models.StatusSecondHalfStart: "SEGUNDO TIEMPO",
	models.StatusFullTime:        "FINAL",
	models.StatusLive:            "EN VIVO",
}

// PhaseLabel maps a match_status code to its scoreboard label.
func PhaseLabel(status string) string {
	if label, ok := phaseLabels[status]; ok {
		return label
	}
	return DefaultPhaseLabel
}

// EventsKey is the storage key holding a match's event history.
func EventsKey(matchID string) string {
	return StoragePrefix + matchID + "_events"
}

// ScoreKey is the storage key holding a match's score.
func ScoreKey(matchID string) string {
	return StoragePrefix + matchID + "_score"
}

// IngestResult is the outcome of LiveMatchService.Ingest.
type IngestResult int

const (
	IngestAccepted IngestResult = iota
	IngestDuplicate
	IngestForeignMatch
	IngestNoMatch
)

func (r IngestResult) String() string {
	switch r {
	case IngestAccepted:
		return "accepted"
	case IngestDuplicate:
		return "duplicate"
	case IngestForeignMatch:
		return "foreign_match"
	case IngestNoMatch:
		return "no_match"
	}
	return "unknown"
}

// Confirmer asks the user to approve a destructive action.
type Confirmer func(prompt string) bool

// LiveSnapshot is a copy of the viewer state.
type LiveSnapshot struct {
	Match  *models.Match
	State  models.MatchState
	Events []models.MatchEvent
}

// LiveMatchService ingests live events for the selected match and keeps the
// derived scoreboard. History is newest-first, deduplicated, bounded to
// MaxHistory and mirrored to storage on every accepted event.
type LiveMatchService struct {
	channel realtime.Channel
	storage *storage.Service
	catalog *catalog.Catalog
	metrics *Metrics

	// selectMu serializes SelectMatch and Teardown
	selectMu sync.Mutex

	mu       sync.Mutex
	selected string
	current  *models.Match
	events   []models.MatchEvent
	score    models.Score
	minute   int
	phase    string
	sub      *realtime.Subscription
	onUpdate func(LiveSnapshot)
}

// NewLiveMatchService 创建直播比赛服务
func NewLiveMatchService(channel realtime.Channel, store *storage.Service, cat *catalog.Catalog, metrics *Metrics) *LiveMatchService {
	if cat == nil {
		cat = catalog.Default()
	}
	return &LiveMatchService{
		channel: channel,
		storage: store,
		catalog: cat,
		metrics: metrics,
		phase:   DefaultPhaseLabel,
	}
}

// OnUpdate registers fn to receive a snapshot after every accepted event,
// match switch or clear. fn runs without the service lock held.
func (s *LiveMatchService) OnUpdate(fn func(LiveSnapshot)) {
	s.mu.Lock()
	s.onUpdate = fn
	s.mu.Unlock()
}

// SelectMatch switches the active match. The previous handler is released
// and the previous match unsubscribed before the new subscription opens.
// A subscribe failure is returned but the match stays selected with its
// persisted history loaded.
func (s *LiveMatchService) SelectMatch(matchID string) error {
	s.selectMu.Lock()
	defer s.selectMu.Unlock()

	s.mu.Lock()
	prevSub, prev := s.sub, s.selected
	s.sub = nil
	s.mu.Unlock()

	if prevSub != nil {
		prevSub.Unsubscribe()
		logger.Println("[LiveMatch] 🔌 Previous subscription released")
	}
	if prev != "" && prev != matchID {
		if err := s.channel.UnsubscribeMatch(prev); err != nil {
			logger.Errorf("[LiveMatch] Failed to unsubscribe match %s: %v", prev, err)
		}
	}

	s.mu.Lock()
	s.selected = matchID
	s.current = nil
	if m, ok := s.catalog.Find(matchID); ok {
		s.current = &m
	}
	s.loadLocked(matchID)
	snap, notify := s.snapshotLocked(), s.onUpdate
	s.mu.Unlock()

	err := s.channel.SubscribeMatch(matchID)
	if err != nil {
		logger.Errorf("[LiveMatch] Failed to subscribe match %s: %v", matchID, err)
	}

	sub := s.channel.OnMatchEvent(s.handleEvent)
	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()

	if snap.Match != nil {
		logger.Printf("[LiveMatch] ⚽ Match loaded: %s", snap.Match.Title())
	} else {
		logger.Printf("[LiveMatch] ⚽ Match loaded: %s (not in catalog)", matchID)
	}
	if notify != nil {
		notify(snap)
	}
	return err
}

func (s *LiveMatchService) handleEvent(event models.MatchEvent) {
	if result := s.Ingest(event); result != IngestAccepted {
		logger.Printf("[LiveMatch] Event %s/%s ignored: %s", event.MatchID, event.EventType, result)
	}
}

// Ingest applies one event to the active match.
func (s *LiveMatchService) Ingest(event models.MatchEvent) IngestResult {
	s.mu.Lock()

	if s.selected == "" {
		s.mu.Unlock()
		s.metrics.observeIngest(IngestNoMatch, 0)
		return IngestNoMatch
	}
	if event.MatchID != s.selected {
		n := len(s.events)
		s.mu.Unlock()
		s.metrics.observeIngest(IngestForeignMatch, n)
		return IngestForeignMatch
	}
	for _, e := range s.events {
		if e.SameAs(event) {
			n := len(s.events)
			s.mu.Unlock()
			logger.Println("[LiveMatch] ⚠️ Duplicate event detected, ignoring")
			s.metrics.observeIngest(IngestDuplicate, n)
			return IngestDuplicate
		}
	}

	events := make([]models.MatchEvent, 0, min(len(s.events)+1, MaxHistory))
	events = append(events, event)
	events = append(events, s.events...)
	if len(events) > MaxHistory {
		events = events[:MaxHistory]
	}
	s.events = events

	if m := event.Data.Minute; m != nil && *m != 0 {
		s.minute = *m
	}
	if event.EventType == models.EventTypeGoal && event.Data.Score != nil {
		s.score = *event.Data.Score
	}
	if event.EventType == models.EventTypeMatchStatus {
		s.phase = PhaseLabel(models.String(event.Data.Status))
	}

	s.saveLocked()
	snap, notify := s.snapshotLocked(), s.onUpdate
	s.mu.Unlock()

	s.metrics.observeIngest(IngestAccepted, len(snap.Events))
	if notify != nil {
		notify(snap)
	}
	return IngestAccepted
}

// Clear wipes the active match history and score after confirm approves.
// It reports whether anything was cleared.
func (s *LiveMatchService) Clear(confirm Confirmer) bool {
	s.mu.Lock()
	if s.selected == "" {
		s.mu.Unlock()
		return false
	}
	title := s.selected
	if s.current != nil {
		title = s.current.Title()
	}
	s.mu.Unlock()

	if confirm == nil || !confirm(fmt.Sprintf("¿Limpiar eventos del partido %s?", title)) {
		return false
	}

	s.mu.Lock()
	matchID := s.selected
	s.events = nil
	s.score = models.Score{}
	s.minute = 0
	s.phase = DefaultPhaseLabel
	s.storage.RemoveItem(EventsKey(matchID))
	s.storage.RemoveItem(ScoreKey(matchID))
	snap, notify := s.snapshotLocked(), s.onUpdate
	s.mu.Unlock()

	logger.Printf("[LiveMatch] 🧹 Events cleared for match %s", matchID)
	if notify != nil {
		notify(snap)
	}
	return true
}

// Teardown releases the handler and unsubscribes the active match. Safe to
// call repeatedly.
func (s *LiveMatchService) Teardown() {
	s.selectMu.Lock()
	defer s.selectMu.Unlock()

	s.mu.Lock()
	sub, matchID := s.sub, s.selected
	s.sub = nil
	s.selected = ""
	s.current = nil
	s.events = nil
	s.score = models.Score{}
	s.minute = 0
	s.phase = DefaultPhaseLabel
	s.mu.Unlock()

	sub.Unsubscribe()
	if matchID != "" {
		if err := s.channel.UnsubscribeMatch(matchID); err != nil {
			logger.Errorf("[LiveMatch] Failed to unsubscribe match %s: %v", matchID, err)
		}
		logger.Printf("[LiveMatch] Torn down match %s", matchID)
	}
}

// SelectedMatchID returns the active match, or "" when unselected.
func (s *LiveMatchService) SelectedMatchID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// State returns the current scoreboard.
func (s *LiveMatchService) State() models.MatchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Events returns a copy of the history, newest first.
func (s *LiveMatchService) Events() []models.MatchEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.MatchEvent(nil), s.events...)
}

// Snapshot returns match, state and events together.
func (s *LiveMatchService) Snapshot() LiveSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// CountByType counts history entries of eventType.
func (s *LiveMatchService) CountByType(eventType models.EventType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e.EventType == eventType {
			n++
		}
	}
	return n
}

func (s *LiveMatchService) stateLocked() models.MatchState {
	return models.MatchState{
		MatchID:    s.selected,
		Score:      s.score,
		Minute:     s.minute,
		PhaseLabel: s.phase,
	}
}

func (s *LiveMatchService) snapshotLocked() LiveSnapshot {
	snap := LiveSnapshot{
		State:  s.stateLocked(),
		Events: append([]models.MatchEvent(nil), s.events...),
	}
	if s.current != nil {
		m := *s.current
		snap.Match = &m
	}
	return snap
}

// loadLocked restores persisted history and score. Minute and phase are
// re-derived from the restored history.
func (s *LiveMatchService) loadLocked(matchID string) {
	var events []models.MatchEvent
	if !s.storage.GetObject(EventsKey(matchID), &events) {
		events = nil
	}
	if len(events) > MaxHistory {
		events = events[:MaxHistory]
	}

	var score models.Score
	if !s.storage.GetObject(ScoreKey(matchID), &score) {
		score = models.Score{}
	}

	s.events = events
	s.score = score
	s.minute = 0
	s.phase = DefaultPhaseLabel

	minuteFound, phaseFound := false, false
	for _, e := range events {
		if !minuteFound && e.Data.Minute != nil && *e.Data.Minute != 0 {
			s.minute, minuteFound = *e.Data.Minute, true
		}
		if !phaseFound && e.EventType == models.EventTypeMatchStatus {
			s.phase, phaseFound = PhaseLabel(models.String(e.Data.Status)), true
		}
		if minuteFound && phaseFound {
			break
		}
	}

	if len(events) > 0 {
		logger.Printf("[LiveMatch] 📂 %d events loaded for match %s", len(events), matchID)
	}
}

// saveLocked mirrors history and score. The two writes are independent.
func (s *LiveMatchService) saveLocked() {
	s.storage.SetObject(EventsKey(s.selected), s.events)
	s.storage.SetObject(ScoreKey(s.selected), s.score)
}
