package realtime

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"livescore-client/logger"
	"livescore-client/models"
	"livescore-client/pkg/common"
)

const (
	// DefaultMQTTBroker is the default MQTT broker address
	DefaultMQTTBroker = "tcp://localhost:1883"

	// MQTT Quality of Service levels
	QoSAtMostOnce  = 0
	QoSAtLeastOnce = 1
	QoSExactlyOnce = 2
)

// MQTTClient is a Channel over MQTT. Each match has its own topic.
type MQTTClient struct {
	username string
	password string
	broker   string
	client   mqtt.Client
	handlers *handlerSet

	mu      sync.Mutex
	matches map[string]bool
}

// NewMQTTClient creates a new MQTT client
func NewMQTTClient(broker, username, password string) *MQTTClient {
	if broker == "" {
		broker = DefaultMQTTBroker
	}
	return &MQTTClient{
		username: username,
		password: password,
		broker:   broker,
		handlers: newHandlerSet(),
		matches:  make(map[string]bool),
	}
}

// Connect establishes connection to MQTT broker
func (c *MQTTClient) Connect() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.broker)
	if c.username != "" {
		opts.SetUsername(c.username)
		opts.SetPassword(c.password)
	}
	opts.SetClientID(fmt.Sprintf("livescore_go_%d", time.Now().UnixNano()))

	if strings.HasPrefix(c.broker, "ssl://") || strings.HasPrefix(c.broker, "tls://") {
		opts.SetTLSConfig(&tls.Config{})
	}

	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)

	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(true)
	// handlers must not interleave
	opts.SetOrderMatters(true)

	c.client = mqtt.NewClient(opts)

	token := c.client.Connect()
	if token.Wait() && token.Error() != nil {
		return common.NewAppError(common.CodeTransport, "failed to connect", token.Error())
	}
	return nil
}

// Disconnect closes the connection to MQTT broker
func (c *MQTTClient) Disconnect() error {
	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(250)
	}
	return nil
}

// IsConnected returns whether the client is connected
func (c *MQTTClient) IsConnected() bool {
	return c.client != nil && c.client.IsConnected()
}

// SubscribeMatch subscribes to the match topic
func (c *MQTTClient) SubscribeMatch(matchID string) error {
	c.mu.Lock()
	c.matches[matchID] = true
	c.mu.Unlock()
	return c.subscribe(matchID)
}

func (c *MQTTClient) subscribe(matchID string) error {
	if !c.IsConnected() {
		return common.ErrNotConnected
	}

	topic := MatchTopic(matchID)
	token := c.client.Subscribe(topic, QoSAtLeastOnce, c.onMessage)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, token.Error())
	}

	logger.Printf("[MQTT] Subscribed to topic: %s", topic)
	return nil
}

// UnsubscribeMatch unsubscribes from the match topic
func (c *MQTTClient) UnsubscribeMatch(matchID string) error {
	c.mu.Lock()
	delete(c.matches, matchID)
	c.mu.Unlock()

	if !c.IsConnected() {
		return common.ErrNotConnected
	}

	topic := MatchTopic(matchID)
	token := c.client.Unsubscribe(topic)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to unsubscribe from %s: %w", topic, token.Error())
	}

	logger.Printf("[MQTT] Unsubscribed from topic: %s", topic)
	return nil
}

// OnMatchEvent registers a handler for match events
func (c *MQTTClient) OnMatchEvent(handler EventHandler) *Subscription {
	return c.handlers.add(handler)
}

// PublishMatchEvent publishes event on its match topic
func (c *MQTTClient) PublishMatchEvent(event models.MatchEvent) error {
	if !c.IsConnected() {
		return common.ErrNotConnected
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	token := c.client.Publish(MatchTopic(event.MatchID), QoSAtLeastOnce, false, data)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish: %w", token.Error())
	}
	return nil
}

// onConnect restores topic subscriptions; the session is clean on every connect.
func (c *MQTTClient) onConnect(client mqtt.Client) {
	logger.Println("[MQTT] Connected to broker")

	c.mu.Lock()
	matches := sortedMatches(c.matches)
	c.mu.Unlock()

	for _, id := range matches {
		if err := c.subscribe(id); err != nil {
			logger.Errorf("[MQTT] Failed to restore subscription %s: %v", id, err)
		}
	}
}

func (c *MQTTClient) onConnectionLost(client mqtt.Client, err error) {
	logger.Errorf("[MQTT] Connection lost: %v", err)
}

func (c *MQTTClient) onMessage(client mqtt.Client, msg mqtt.Message) {
	c.handlers.decodeAndDispatch("MQTT", msg.Payload())
}
