package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/itbasis/go-clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"livescore-client/config"
	"livescore-client/logger"
	"livescore-client/models"
	"livescore-client/realtime"
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// eventRequest is the body the admin dashboard posts.
type eventRequest struct {
	MatchID   string        `json:"matchId"`
	Team      string        `json:"team"`
	Player    string        `json:"player"`
	Minute    *int          `json:"minute"`
	CardType  string        `json:"cardType"`
	PlayerOut string        `json:"playerOut"`
	PlayerIn  string        `json:"playerIn"`
	Status    string        `json:"status"`
	Score     *models.Score `json:"score"`
}

type eventResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Event   *models.MatchEvent `json:"event,omitempty"`
}

type publisherTarget struct {
	name      string
	publisher realtime.Publisher
}

type Server struct {
	config     *config.Config
	wsHub      *Hub
	clock      clock.Clock
	metrics    *Metrics
	gatherer   prometheus.Gatherer
	httpServer *http.Server
	upgrader   websocket.Upgrader

	mu         sync.RWMutex
	publishers []publisherTarget
}

// NewServer creates the relay. A nil gatherer serves the default registry.
func NewServer(cfg *config.Config, hub *Hub, clk clock.Clock, metrics *Metrics, gatherer prometheus.Gatherer) *Server {
	if clk == nil {
		clk = clock.New()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		config:   cfg,
		wsHub:    hub,
		clock:    clk,
		metrics:  metrics,
		gatherer: gatherer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
	}
}

// AddPublisher fans accepted events out to p in addition to the hub.
func (s *Server) AddPublisher(name string, p realtime.Publisher) {
	s.mu.Lock()
	s.publishers = append(s.publishers, publisherTarget{name: name, publisher: p})
	s.mu.Unlock()
}

// Handler builds the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	// API路由. Registered on the root router so a wrong method is a 405.
	router.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	for path, eventType := range map[string]models.EventType{
		"/api/events/goal":         models.EventTypeGoal,
		"/api/events/card":         models.EventTypeCard,
		"/api/events/substitution": models.EventTypeSubstitution,
		"/api/events/match-status": models.EventTypeMatchStatus,
	} {
		router.Handle(path, s.adminOnly(s.handleEvent(eventType))).Methods(http.MethodPost)
	}
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, eventResponse{Message: "method not allowed"})
	})

	// WebSocket路由
	router.HandleFunc("/ws", s.handleWebSocket)
	router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	c := cors.New(cors.Options{
		AllowedOrigins:   s.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	return c.Handler(router)
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         ":" + s.config.Port,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Printf("[Relay] 🚀 Listening on :%s", s.config.Port)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			logger.Errorf("[Relay] Server shutdown error: %v", err)
		}
	}
	s.wsHub.Stop()
}

// handleHealth 健康检查
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"time":    s.clock.Now().Unix(),
		"clients": s.wsHub.ClientCount(),
	})
}

// handleEvent 接收管理员事件并广播
func (s *Server) handleEvent(eventType models.EventType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req eventRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, eventResponse{Message: "invalid JSON body"})
			return
		}
		if req.MatchID == "" {
			writeJSON(w, http.StatusBadRequest, eventResponse{Message: "matchId is required"})
			return
		}
		if eventType == models.EventTypeMatchStatus && req.Status == "" {
			writeJSON(w, http.StatusBadRequest, eventResponse{Message: "status is required"})
			return
		}

		event := s.buildEvent(eventType, req)
		s.publish(event)

		logger.Printf("[Relay] 📣 %s for match %s (%s)", event.EventType, event.MatchID, event.EventID)
		writeJSON(w, http.StatusOK, eventResponse{
			Success: true,
			Message: "Evento " + string(event.EventType) + " enviado",
			Event:   &event,
		})
	}
}

func (s *Server) buildEvent(eventType models.EventType, req eventRequest) models.MatchEvent {
	if eventType == models.EventTypeCard && req.CardType == "red" {
		eventType = models.EventTypeRedCard
	}

	var data models.EventData
	switch eventType {
	case models.EventTypeGoal:
		data = models.EventData{Team: optional(req.Team), Player: optional(req.Player), Minute: req.Minute, Score: req.Score}
	case models.EventTypeCard, models.EventTypeRedCard:
		data = models.EventData{Team: optional(req.Team), Player: optional(req.Player), Minute: req.Minute, CardType: optional(req.CardType)}
	case models.EventTypeSubstitution:
		data = models.EventData{Team: optional(req.Team), PlayerOut: optional(req.PlayerOut), PlayerIn: optional(req.PlayerIn), Minute: req.Minute}
	case models.EventTypeMatchStatus:
		data = models.EventData{Status: optional(req.Status), Minute: req.Minute}
	}

	return models.MatchEvent{
		EventType: eventType,
		MatchID:   req.MatchID,
		Timestamp: s.clock.Now().UTC().Format(timestampLayout),
		EventID:   uuid.NewString(),
		Data:      data,
	}
}

// publish sends event to the hub and every publisher. Publisher failures
// are logged; they never fail the request.
func (s *Server) publish(event models.MatchEvent) {
	s.metrics.eventReceived(event.EventType)
	s.wsHub.Broadcast(event)

	s.mu.RLock()
	targets := append([]publisherTarget(nil), s.publishers...)
	s.mu.RUnlock()

	for _, t := range targets {
		if err := t.publisher.PublishMatchEvent(event); err != nil {
			logger.Errorf("[Relay] Publish to %s failed: %v", t.name, err)
			s.metrics.publishFailed(t.name)
		}
	}
}

// handleWebSocket WebSocket连接处理
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Errorf("[Relay] WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		hub:     s.wsHub,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		matches: make(map[string]bool),
	}

	if !s.wsHub.Register(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("[Relay] Failed to write response: %v", err)
	}
}
