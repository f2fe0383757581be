package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"livescore-client/logger"
	"livescore-client/models"
	"livescore-client/pkg/common"
)

const (
	// DefaultWSURL is the default relay endpoint
	DefaultWSURL = "ws://localhost:4000/ws"

	// PingInterval is the interval for sending ping messages
	PingInterval = 30 * time.Second

	// ReconnectDelay is the delay before each reconnect attempt
	ReconnectDelay = 1 * time.Second

	// ReconnectAttempts bounds automatic reconnection
	ReconnectAttempts = 5

	writeTimeout = 10 * time.Second
)

// ErrClientClosed is returned by Connect after Disconnect.
var ErrClientClosed = errors.New("client closed")

// WSClient is a websocket Channel.
type WSClient struct {
	url      string
	apiToken string
	dialer   *websocket.Dialer

	mu            sync.RWMutex
	conn          *websocket.Conn
	isConnected   bool
	autoReconnect bool
	closed        bool
	matches       map[string]bool

	// gorilla allows one concurrent writer
	writeMu sync.Mutex

	handlers *handlerSet
	stopChan chan struct{}
	wg       sync.WaitGroup

	reconnectDelay    time.Duration
	reconnectAttempts int
}

// NewWSClient creates a client for url. apiToken is sent as a bearer token
// when non-empty.
func NewWSClient(url, apiToken string) *WSClient {
	if url == "" {
		url = DefaultWSURL
	}
	return &WSClient{
		url:               url,
		apiToken:          apiToken,
		dialer:            websocket.DefaultDialer,
		autoReconnect:     true,
		matches:           make(map[string]bool),
		handlers:          newHandlerSet(),
		stopChan:          make(chan struct{}),
		reconnectDelay:    ReconnectDelay,
		reconnectAttempts: ReconnectAttempts,
	}
}

// Connect establishes the websocket connection
func (c *WSClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}
	if c.isConnected {
		return common.ErrAlreadyConnected
	}
	return c.dialLocked(ctx)
}

// dialLocked must be called with mu held.
func (c *WSClient) dialLocked(ctx context.Context) error {
	header := http.Header{}
	if c.apiToken != "" {
		header.Set("Authorization", "Bearer "+c.apiToken)
	}

	conn, _, err := c.dialer.DialContext(ctx, c.url, header)
	if err != nil {
		return common.NewAppError(common.CodeTransport, "failed to connect", err)
	}

	c.conn = conn
	c.isConnected = true

	connDone := make(chan struct{})
	c.wg.Add(2)
	go c.readMessages(conn, connDone)
	go c.pingHandler(conn, connDone)

	logger.Printf("[WS] ✅ Connected to %s", c.url)
	return nil
}

// Disconnect closes the connection and stops reconnection. The client cannot
// be reused afterwards.
func (c *WSClient) Disconnect() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.autoReconnect = false
	close(c.stopChan)
	conn := c.conn
	c.isConnected = false
	c.mu.Unlock()

	var err error
	if conn != nil {
		c.writeMu.Lock()
		werr := conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		if werr != nil {
			logger.Errorf("[WS] Error sending close message: %v", werr)
		}
		err = conn.Close()
	}

	c.wg.Wait()
	logger.Println("[WS] 🔌 Disconnected")
	return err
}

// IsConnected returns whether the client is connected
func (c *WSClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isConnected
}

// SetAutoReconnect sets whether to automatically reconnect on disconnect
func (c *WSClient) SetAutoReconnect(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoReconnect = enabled
}

// SubscribeMatch sends subscribe_match. The match is remembered and
// re-subscribed after a reconnect even when the send fails.
func (c *WSClient) SubscribeMatch(matchID string) error {
	c.mu.Lock()
	c.matches[matchID] = true
	c.mu.Unlock()

	if err := c.send(Frame{Type: FrameSubscribe, MatchID: matchID}); err != nil {
		return fmt.Errorf("subscribe %s: %w", matchID, err)
	}
	logger.Printf("[WS] ⚽ Subscribed to match %s", matchID)
	return nil
}

// UnsubscribeMatch sends unsubscribe_match.
func (c *WSClient) UnsubscribeMatch(matchID string) error {
	c.mu.Lock()
	delete(c.matches, matchID)
	c.mu.Unlock()

	if err := c.send(Frame{Type: FrameUnsubscribe, MatchID: matchID}); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", matchID, err)
	}
	logger.Printf("[WS] 🔌 Unsubscribed from match %s", matchID)
	return nil
}

// Matches lists the matches the client is subscribed to.
func (c *WSClient) Matches() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedMatches(c.matches)
}

// OnMatchEvent registers a handler for match_event frames
func (c *WSClient) OnMatchEvent(handler EventHandler) *Subscription {
	return c.handlers.add(handler)
}

func (c *WSClient) send(frame Frame) error {
	c.mu.RLock()
	conn, ok := c.conn, c.isConnected
	c.mu.RUnlock()

	if !ok {
		return common.ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(frame); err != nil {
		return common.NewAppError(common.CodeTransport, "failed to write frame", err)
	}
	return nil
}

// readMessages reads frames until the connection fails
func (c *WSClient) readMessages(conn *websocket.Conn, connDone chan struct{}) {
	defer c.wg.Done()
	defer func() {
		close(connDone)

		c.mu.Lock()
		if c.conn == conn {
			c.isConnected = false
		}
		reconnect := c.autoReconnect && !c.closed
		c.mu.Unlock()

		if reconnect {
			c.wg.Add(1)
			go c.reconnect()
		}
	}()

	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Errorf("[WS] ❌ WebSocket error: %v", err)
			}
			return
		}
		c.dispatchFrame(frame)
	}
}

func (c *WSClient) dispatchFrame(frame Frame) {
	switch frame.Type {
	case FrameMatchEvent:
		var event models.MatchEvent
		if err := json.Unmarshal(frame.Data, &event); err != nil {
			logger.Errorf("[WS] Error unmarshaling match event: %v", err)
			return
		}
		c.handlers.dispatch(event)
	case FrameError:
		logger.Errorf("[WS] Server error: %s", frame.Message)
	case FrameAck:
	default:
		logger.Printf("[WS] Ignoring frame type %q", frame.Type)
	}
}

// pingHandler sends periodic ping messages
func (c *WSClient) pingHandler(conn *websocket.Conn, connDone chan struct{}) {
	defer c.wg.Done()

	ticker := time.NewTicker(PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-connDone:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				logger.Errorf("[WS] Error sending ping: %v", err)
			}
		}
	}
}

// reconnect retries the dial and restores match subscriptions
func (c *WSClient) reconnect() {
	defer c.wg.Done()

	for attempt := 1; attempt <= c.reconnectAttempts; attempt++ {
		select {
		case <-c.stopChan:
			return
		case <-time.After(c.reconnectDelay):
		}

		logger.Printf("[WS] 🔄 Reconnect attempt %d/%d", attempt, c.reconnectAttempts)

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := c.dialLocked(ctx)
		cancel()
		matches := sortedMatches(c.matches)
		c.mu.Unlock()

		if err != nil {
			logger.Errorf("[WS] Reconnection failed: %v", err)
			continue
		}

		for _, id := range matches {
			if err := c.send(Frame{Type: FrameSubscribe, MatchID: id}); err != nil {
				logger.Errorf("[WS] Failed to restore subscription %s: %v", id, err)
			}
		}
		logger.Printf("[WS] 🔄 Reconnected after %d attempts", attempt)
		return
	}

	logger.Errorf("[WS] ❌ Giving up after %d reconnect attempts", c.reconnectAttempts)
}
