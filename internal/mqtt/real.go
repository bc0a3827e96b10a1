package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"smart_switch/internal/logger"
)

const (
	connectTimeout = 10 * time.Second
	tokenTimeout   = 5 * time.Second
	retryInterval  = 5 * time.Second
	disconnectWait = 1000 // ms
)

type Options struct {
	Broker   string
	ClientID string
	Username string
	Password string

	// StatusTopic, when set, receives a retained "offline" will.
	StatusTopic string
}

// RealConn talks to an actual broker through paho.
type RealConn struct {
	client paho.Client
	subs   *subscriptions
}

// Dial connects to the broker. Subscriptions made through the returned
// connection are restored after a reconnect.
func Dial(o Options, log *logger.Logger) (*RealConn, error) {
	if log == nil {
		log = logger.Nop()
	}
	rc := &RealConn{}
	subs := newSubscriptions()

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(retryInterval).
		SetCleanSession(true).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warnw("mqtt_connection_lost", "err", err)
		}).
		SetOnConnectHandler(func(c paho.Client) {
			log.Infow("mqtt_connected", "broker", o.Broker)
			for filter, s := range subs.snapshot() {
				c.Subscribe(filter, s.qos, wrap(s.handler))
			}
		})
	if o.StatusTopic != "" {
		opts.SetWill(o.StatusTopic, statusOffline, 1, true)
	}
	if o.Username != "" {
		opts.SetUsername(o.Username)
		opts.SetPassword(o.Password)
	}

	rc.client = paho.NewClient(opts)
	rc.subs = subs

	token := rc.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connect to %s: timeout", o.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return rc, nil
}

func wrap(h Handler) paho.MessageHandler {
	return func(_ paho.Client, m paho.Message) {
		h(m.Topic(), m.Payload())
	}
}

func (c *RealConn) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(tokenTimeout) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (c *RealConn) Subscribe(filter string, qos byte, h Handler) error {
	c.subs.add(filter, qos, h)
	token := c.client.Subscribe(filter, qos, wrap(h))
	if !token.WaitTimeout(tokenTimeout) {
		return fmt.Errorf("subscribe %s: timeout", filter)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", filter, err)
	}
	return nil
}

func (c *RealConn) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

func (c *RealConn) Close() error {
	c.client.Disconnect(disconnectWait)
	return nil
}
