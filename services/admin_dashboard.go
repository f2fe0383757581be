package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/itbasis/go-clock"

	"livescore-client/logger"
	"livescore-client/models"
	"livescore-client/pkg/common"
	"livescore-client/storage"
)

const (
	// SentEventsKey holds the persisted audit trail
	SentEventsKey = "admin_sent_events"

	// MaxSentEvents bounds the audit trail
	MaxSentEvents = 20

	// isoMillis matches the timestamps the relay and viewer exchange
	isoMillis = "2006-01-02T15:04:05.000Z07:00"
)

// Admin event endpoints, relative to the events API URL.
const (
	EndpointGoal         = "goal"
	EndpointCard         = "card"
	EndpointSubstitution = "substitution"
	EndpointMatchStatus  = "match-status"
)

// EventForm is the operator input for one submission. Only the fields the
// chosen event type needs are read.
type EventForm struct {
	MatchID   string
	Team      string
	Player    string
	Minute    int
	CardType  string
	PlayerOut string
	PlayerIn  string
	Status    string
	Score     models.Score
}

// DefaultEventForm targets Perú vs Argentina.
func DefaultEventForm() EventForm {
	return EventForm{MatchID: "2", Team: "Peru"}
}

// WithMatch retargets the form and resets the team to the match's home team.
func (f EventForm) WithMatch(matchID string) EventForm {
	if m, ok := FindMatchOption(matchID); ok {
		f.MatchID = m.ID
		f.Team = m.HomeTeam
	}
	return f
}

type goalPayload struct {
	MatchID  string       `json:"matchId"`
	Team     string       `json:"team"`
	Player   string       `json:"player"`
	Minute   int          `json:"minute"`
	Score    models.Score `json:"score"`
	TeamID   int          `json:"team_id"`
	PlayerID int          `json:"player_id"`
}

type cardPayload struct {
	MatchID  string `json:"matchId"`
	Team     string `json:"team"`
	Player   string `json:"player"`
	Minute   int    `json:"minute"`
	CardType string `json:"cardType,omitempty"`
	TeamID   int    `json:"team_id"`
	PlayerID int    `json:"player_id"`
}

type substitutionPayload struct {
	MatchID     string `json:"matchId"`
	Team        string `json:"team"`
	PlayerOut   string `json:"playerOut"`
	PlayerIn    string `json:"playerIn"`
	Minute      int    `json:"minute"`
	TeamID      int    `json:"team_id"`
	PlayerOutID int    `json:"player_out_id"`
	PlayerInID  int    `json:"player_in_id"`
}

type statusPayload struct {
	MatchID string `json:"matchId"`
	Status  string `json:"status,omitempty"`
}

// AdminService 管理员事件发送服务. Submissions are POSTed to the events API
// and recorded, newest first, in a bounded audit trail.
type AdminService struct {
	api     *apiClient
	storage *storage.Service
	clock   clock.Clock
	metrics *Metrics

	mu           sync.Mutex
	sent         []models.SentEvent
	lastResponse json.RawMessage
	lastError    string
}

// NewAdminService creates the dispatcher and loads the stored audit trail.
// token, when non-nil, supplies a bearer token for each request.
func NewAdminService(eventsURL string, httpClient *http.Client, store *storage.Service, clk clock.Clock, metrics *Metrics, token func() string) *AdminService {
	if clk == nil {
		clk = clock.New()
	}
	s := &AdminService{
		api:     newAPIClient(eventsURL, httpClient, token),
		storage: store,
		clock:   clk,
		metrics: metrics,
	}
	s.loadSentEvents()
	return s
}

func (s *AdminService) SendGoal(ctx context.Context, form EventForm) (json.RawMessage, error) {
	return s.sendEvent(ctx, EndpointGoal, form.MatchID, goalPayload{
		MatchID:  form.MatchID,
		Team:     form.Team,
		Player:   form.Player,
		Minute:   form.Minute,
		Score:    form.Score,
		TeamID:   TeamID(form.Team),
		PlayerID: PlayerID(form.Player),
	})
}

func (s *AdminService) SendCard(ctx context.Context, form EventForm) (json.RawMessage, error) {
	return s.sendEvent(ctx, EndpointCard, form.MatchID, cardPayload{
		MatchID:  form.MatchID,
		Team:     form.Team,
		Player:   form.Player,
		Minute:   form.Minute,
		CardType: form.CardType,
		TeamID:   TeamID(form.Team),
		PlayerID: PlayerID(form.Player),
	})
}

func (s *AdminService) SendSubstitution(ctx context.Context, form EventForm) (json.RawMessage, error) {
	return s.sendEvent(ctx, EndpointSubstitution, form.MatchID, substitutionPayload{
		MatchID:     form.MatchID,
		Team:        form.Team,
		PlayerOut:   form.PlayerOut,
		PlayerIn:    form.PlayerIn,
		Minute:      form.Minute,
		TeamID:      TeamID(form.Team),
		PlayerOutID: PlayerID(form.PlayerOut),
		PlayerInID:  PlayerID(form.PlayerIn),
	})
}

func (s *AdminService) SendMatchStatus(ctx context.Context, form EventForm) (json.RawMessage, error) {
	return s.sendEvent(ctx, EndpointMatchStatus, form.MatchID, statusPayload{
		MatchID: form.MatchID,
		Status:  form.Status,
	})
}

// Send dispatches form to the sender named by endpoint.
func (s *AdminService) Send(ctx context.Context, endpoint string, form EventForm) (json.RawMessage, error) {
	switch endpoint {
	case EndpointGoal:
		return s.SendGoal(ctx, form)
	case EndpointCard:
		return s.SendCard(ctx, form)
	case EndpointSubstitution:
		return s.SendSubstitution(ctx, form)
	case EndpointMatchStatus:
		return s.SendMatchStatus(ctx, form)
	}
	return nil, fmt.Errorf("%w: unknown event type %q", common.ErrInvalidInput, endpoint)
}

func (s *AdminService) sendEvent(ctx context.Context, endpoint, matchID string, payload interface{}) (json.RawMessage, error) {
	if matchID == "" {
		err := fmt.Errorf("%w: match id is required", common.ErrInvalidInput)
		s.fail(endpoint, err)
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		s.fail(endpoint, err)
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	raw, err := s.api.post(ctx, "/"+endpoint, json.RawMessage(body), nil)
	if err != nil {
		logger.Errorf("[Admin] ❌ Error sending %s event: %v", endpoint, err)
		s.fail(endpoint, err)
		return nil, err
	}

	response := normalizeResponse(raw)
	logger.Printf("[Admin] ✅ Event sent: %s (match %s)", endpoint, matchID)

	s.mu.Lock()
	s.lastResponse = response
	s.lastError = ""
	entry := models.SentEvent{
		Type:      endpoint,
		Payload:   body,
		Response:  response,
		Timestamp: s.clock.Now().UTC().Format(isoMillis),
	}
	sent := make([]models.SentEvent, 0, MaxSentEvents)
	sent = append(sent, entry)
	sent = append(sent, s.sent...)
	if len(sent) > MaxSentEvents {
		sent = sent[:MaxSentEvents]
	}
	s.sent = sent
	s.storage.SetObject(SentEventsKey, s.sent)
	s.mu.Unlock()

	s.metrics.observeSubmission(endpoint, nil)
	return response, nil
}

func (s *AdminService) fail(endpoint string, err error) {
	s.mu.Lock()
	s.lastError = err.Error()
	s.mu.Unlock()
	s.metrics.observeSubmission(endpoint, err)
}

// normalizeResponse keeps JSON responses as-is and wraps anything else as a
// JSON string.
func normalizeResponse(raw []byte) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	if json.Valid(raw) {
		return json.RawMessage(raw)
	}
	quoted, _ := json.Marshal(string(raw))
	return quoted
}

// History returns the audit trail, newest first.
func (s *AdminService) History() []models.SentEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.SentEvent(nil), s.sent...)
}

// ClearHistory wipes the audit trail after confirm approves.
func (s *AdminService) ClearHistory(confirm Confirmer) bool {
	if confirm == nil || !confirm("¿Seguro que quieres limpiar el historial?") {
		return false
	}
	s.mu.Lock()
	s.sent = nil
	s.storage.RemoveItem(SentEventsKey)
	s.mu.Unlock()
	return true
}

// LastResponse returns the body of the last successful submission.
func (s *AdminService) LastResponse() json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastResponse
}

// LastError returns the message of the last failed submission, or "" after a
// success.
func (s *AdminService) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

func (s *AdminService) loadSentEvents() {
	var sent []models.SentEvent
	if !s.storage.GetObject(SentEventsKey, &sent) {
		return
	}
	if len(sent) > MaxSentEvents {
		sent = sent[:MaxSentEvents]
	}
	s.sent = sent
}
