package realtime

import (
	"context"
	"fmt"

	"livescore-client/pkg/common"
)

// Transports accepted by Dial.
const (
	TransportWebSocket = "ws"
	TransportMQTT      = "mqtt"
	TransportAMQP      = "amqp"
	TransportLoopback  = "loopback"
)

// DialOptions selects and configures a transport.
type DialOptions struct {
	Transport string

	SocketURL string
	Token     string

	MQTTBroker string
	MQTTUser   string
	MQTTPass   string

	AMQPURL  string
	Exchange string
}

// Dial connects the selected transport and returns it with its close func.
func Dial(ctx context.Context, opts DialOptions) (Channel, func() error, error) {
	switch opts.Transport {
	case "", TransportWebSocket:
		c := NewWSClient(opts.SocketURL, opts.Token)
		if err := c.Connect(ctx); err != nil {
			return nil, nil, err
		}
		return c, c.Disconnect, nil

	case TransportMQTT:
		c := NewMQTTClient(opts.MQTTBroker, opts.MQTTUser, opts.MQTTPass)
		if err := c.Connect(); err != nil {
			return nil, nil, err
		}
		return c, c.Disconnect, nil

	case TransportAMQP:
		c := NewAMQPClient(opts.AMQPURL, opts.Exchange)
		if err := c.Connect(); err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil

	case TransportLoopback:
		return NewLoopback(), func() error { return nil }, nil
	}

	return nil, nil, fmt.Errorf("%w: unknown transport %q", common.ErrInvalidInput, opts.Transport)
}
