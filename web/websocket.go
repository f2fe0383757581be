package web

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"livescore-client/logger"
	"livescore-client/models"
	"livescore-client/realtime"
)

const (
	sendBuffer = 256
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
)

// Client WebSocket客户端
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// 订阅的比赛, guarded by hub.mu
	matches map[string]bool
}

// Hub WebSocket Hub. Clients join one room per subscribed match and only
// receive match_event frames for those rooms.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan models.MatchEvent
	unregister chan *Client
	stop       chan struct{}
	stopOnce   sync.Once
	stopped    bool // guarded by mu
	mu         sync.RWMutex
	metrics    *Metrics
}

// NewHub 创建新的Hub
func NewHub(metrics *Metrics) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan models.MatchEvent, 256),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
		metrics:    metrics,
	}
}

// Run 运行Hub until Stop is called
func (h *Hub) Run() {
	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			h.stopped = true
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.metrics.setClients(0)
			return

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.metrics.setClients(n)
			logger.Printf("[Hub] Client unregistered. Total clients: %d", n)

		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

// Register adds c before its pumps start, so the first frames it sends are
// answered. It returns false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return false
	}
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()

	h.metrics.setClients(n)
	logger.Printf("[Hub] Client registered. Total clients: %d", n)
	return true
}

// Stop ends Run and closes every client. Safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

func (h *Hub) deliver(event models.MatchEvent) {
	data, err := marshalEventFrame(event)
	if err != nil {
		logger.Errorf("[Hub] Failed to marshal event: %v", err)
		return
	}

	var slow []*Client
	h.mu.RLock()
	for client := range h.clients {
		if !client.matches[event.MatchID] {
			continue
		}
		select {
		case client.send <- data:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	if len(slow) == 0 {
		return
	}
	h.mu.Lock()
	for _, client := range slow {
		if _, ok := h.clients[client]; ok {
			delete(h.clients, client)
			close(client.send)
			logger.Errorf("[Hub] Dropping slow client")
		}
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.metrics.setClients(n)
}

// Broadcast queues event for the clients in its match room.
func (h *Hub) Broadcast(event models.MatchEvent) {
	select {
	case h.broadcast <- event:
	case <-h.stop:
	}
}

// PublishMatchEvent lets the hub sit alongside the broker publishers.
func (h *Hub) PublishMatchEvent(event models.MatchEvent) error {
	h.Broadcast(event)
	return nil
}

// SubscriberCount returns how many clients are in a match room.
func (h *Hub) SubscriberCount(matchID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for client := range h.clients {
		if client.matches[matchID] {
			n++
		}
	}
	return n
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) join(c *Client, matchID string) {
	h.mu.Lock()
	c.matches[matchID] = true
	h.mu.Unlock()
}

func (h *Hub) leave(c *Client, matchID string) {
	h.mu.Lock()
	delete(c.matches, matchID)
	h.mu.Unlock()
}

func marshalEventFrame(event models.MatchEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return json.Marshal(realtime.Frame{Type: realtime.FrameMatchEvent, MatchID: event.MatchID, Data: data})
}

// readPump 读取客户端消息
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.stop:
		}
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPingHandler(func(appData string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return c.conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Errorf("[Hub] WebSocket error: %v", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.handleMessage(message)
	}
}

// writePump 向客户端写入消息
func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// handleMessage 处理客户端发送的消息
func (c *Client) handleMessage(message []byte) {
	var frame realtime.Frame
	if err := json.Unmarshal(message, &frame); err != nil {
		logger.Errorf("[Hub] Failed to unmarshal client message: %v", err)
		c.reply(realtime.Frame{Type: realtime.FrameError, Message: "invalid frame"})
		return
	}

	switch frame.Type {
	case realtime.FrameSubscribe:
		if frame.MatchID == "" {
			c.reply(realtime.Frame{Type: realtime.FrameError, Message: "matchId is required"})
			return
		}
		c.hub.join(c, frame.MatchID)
		logger.Printf("[Hub] ⚽ Client joined match %s", frame.MatchID)
		c.reply(realtime.Frame{Type: realtime.FrameAck, MatchID: frame.MatchID, Message: "subscribed"})

	case realtime.FrameUnsubscribe:
		c.hub.leave(c, frame.MatchID)
		logger.Printf("[Hub] Client left match %s", frame.MatchID)
		c.reply(realtime.Frame{Type: realtime.FrameAck, MatchID: frame.MatchID, Message: "unsubscribed"})

	default:
		c.reply(realtime.Frame{Type: realtime.FrameError, Message: "unknown frame type " + frame.Type})
	}
}

// reply queues a control frame. It is dropped when the client is gone or
// its buffer is full.
func (c *Client) reply(frame realtime.Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}

	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.clients[c] {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
