package realtime

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"livescore-client/logger"
	"livescore-client/models"
	"livescore-client/pkg/common"
)

// DefaultExchange is the topic exchange carrying match events.
const DefaultExchange = "match_events"

// ReconnectConfig 重连配置
type ReconnectConfig struct {
	MaxRetries    int           // 最大重试次数 (0 = 无限重试)
	InitialDelay  time.Duration // 初始延迟
	MaxDelay      time.Duration // 最大延迟
	BackoffFactor float64       // 退避因子
}

// DefaultReconnectConfig 默认重连配置
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		MaxRetries:    0,
		InitialDelay:  1 * time.Second,
		MaxDelay:      60 * time.Second,
		BackoffFactor: 2.0,
	}
}

// next returns the delay after cur, capped at MaxDelay.
func (c ReconnectConfig) next(cur time.Duration) time.Duration {
	d := time.Duration(float64(cur) * c.BackoffFactor)
	if d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}

// AMQPClient is a Channel over an AMQP topic exchange. Subscribing to a
// match binds the client's private queue to the match routing key. A lost
// connection is re-established with backoff and the bindings restored.
type AMQPClient struct {
	url       string
	exchange  string
	handlers  *handlerSet
	reconnect ReconnectConfig

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	done    chan struct{}
	matches map[string]bool
	closed  bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewAMQPClient creates a client for url and exchange.
func NewAMQPClient(url, exchange string) *AMQPClient {
	if exchange == "" {
		exchange = DefaultExchange
	}
	return &AMQPClient{
		url:       url,
		exchange:  exchange,
		handlers:  newHandlerSet(),
		reconnect: DefaultReconnectConfig(),
		matches:   make(map[string]bool),
		stop:      make(chan struct{}),
	}
}

// SetReconnectConfig replaces the reconnect policy. Call before Connect.
func (c *AMQPClient) SetReconnectConfig(cfg ReconnectConfig) {
	c.mu.Lock()
	c.reconnect = cfg
	c.mu.Unlock()
}

// Connect dials the broker, declares the exchange and a private queue and
// starts consuming.
func (c *AMQPClient) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}
	if c.conn != nil {
		return common.ErrAlreadyConnected
	}
	return c.connectLocked()
}

// connectLocked must be called with mu held.
func (c *AMQPClient) connectLocked() error {
	conn, err := amqp.DialConfig(c.url, amqp.Config{
		Heartbeat: 60 * time.Second,
		Locale:    "en_US",
	})
	if err != nil {
		return common.NewAppError(common.CodeTransport, "failed to connect to AMQP", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create channel: %w", err)
	}

	if err := channel.ExchangeDeclare(
		c.exchange, // name
		"topic",    // kind
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,
	); err != nil {
		conn.Close()
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	queue, err := channel.QueueDeclare(
		"",    // name (empty for auto-generated)
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	for id := range c.matches {
		if err := channel.QueueBind(queue.Name, RoutingKey(id), c.exchange, false, nil); err != nil {
			conn.Close()
			return fmt.Errorf("failed to restore binding %s: %w", RoutingKey(id), err)
		}
	}

	deliveries, err := channel.Consume(
		queue.Name,
		"",    // consumer
		true,  // auto-ack
		true,  // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.conn = conn
	c.channel = channel
	c.queue = queue.Name
	c.done = make(chan struct{})

	closeCh := conn.NotifyClose(make(chan *amqp.Error, 1))
	c.wg.Add(2)
	go c.consume(deliveries, c.done)
	go c.monitorConnection(closeCh)

	logger.Printf("[AMQP] Connected, exchange=%s queue=%s", c.exchange, c.queue)
	return nil
}

// monitorConnection 监控连接状态并自动重连
func (c *AMQPClient) monitorConnection(closeCh <-chan *amqp.Error) {
	defer c.wg.Done()

	closeErr, ok := <-closeCh
	if !ok || closeErr == nil {
		logger.Println("[AMQP] Connection closed normally")
		return
	}
	logger.Errorf("[AMQP] ⚠️  Connection lost: %v", closeErr)

	c.mu.Lock()
	c.conn, c.channel = nil, nil
	cfg := c.reconnect
	c.mu.Unlock()

	delay := cfg.InitialDelay
	for attempt := 1; cfg.MaxRetries == 0 || attempt <= cfg.MaxRetries; attempt++ {
		logger.Printf("[AMQP] 🔄 Reconnecting in %v (attempt %d)...", delay, attempt)
		select {
		case <-c.stop:
			return
		case <-time.After(delay):
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		err := c.connectLocked()
		c.mu.Unlock()

		if err == nil {
			logger.Println("[AMQP] ✅ Reconnected successfully")
			return
		}
		logger.Errorf("[AMQP] ❌ Reconnect failed: %v", err)
		delay = cfg.next(delay)
	}
	logger.Errorf("[AMQP] ❌ Max retries (%d) reached, giving up", cfg.MaxRetries)
}

// Close stops consuming and closes the connection.
func (c *AMQPClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.stop)
	conn := c.conn
	c.conn, c.channel = nil, nil
	c.mu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close()
	}
	c.wg.Wait()
	return err
}

// SubscribeMatch binds the queue to the match routing key. The match is
// recorded first, so a binding requested while reconnecting is restored
// with the others.
func (c *AMQPClient) SubscribeMatch(matchID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.matches[matchID] = true
	if c.channel == nil {
		return common.ErrNotConnected
	}
	if err := c.channel.QueueBind(c.queue, RoutingKey(matchID), c.exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind %s: %w", RoutingKey(matchID), err)
	}
	logger.Printf("[AMQP] Bound %s", RoutingKey(matchID))
	return nil
}

// UnsubscribeMatch removes the match binding.
func (c *AMQPClient) UnsubscribeMatch(matchID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.matches, matchID)
	if c.channel == nil {
		return common.ErrNotConnected
	}
	if err := c.channel.QueueUnbind(c.queue, RoutingKey(matchID), c.exchange, nil); err != nil {
		return fmt.Errorf("failed to unbind %s: %w", RoutingKey(matchID), err)
	}
	logger.Printf("[AMQP] Unbound %s", RoutingKey(matchID))
	return nil
}

// Matches lists the bound matches.
func (c *AMQPClient) Matches() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sortedMatches(c.matches)
}

// OnMatchEvent registers a handler for match events
func (c *AMQPClient) OnMatchEvent(handler EventHandler) *Subscription {
	return c.handlers.add(handler)
}

// PublishMatchEvent publishes event with its match routing key.
func (c *AMQPClient) PublishMatchEvent(event models.MatchEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel == nil {
		return common.ErrNotConnected
	}
	return c.channel.Publish(c.exchange, RoutingKey(event.MatchID), false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   time.Now(),
		Body:        data,
	})
}

func (c *AMQPClient) consume(deliveries <-chan amqp.Delivery, done chan struct{}) {
	defer c.wg.Done()
	defer close(done)
	for d := range deliveries {
		c.handlers.decodeAndDispatch("AMQP", d.Body)
	}
	logger.Println("[AMQP] Delivery channel closed")
}
