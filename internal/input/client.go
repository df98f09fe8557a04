package input

import (
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// Client wraps the Paho MQTT client for gesture and control input.
type Client struct {
	client paho.Client
	log    zerolog.Logger
	mu     sync.Mutex
}

// NewClient creates a new MQTT client but does not connect.
// onStatus, if non-nil, is invoked with true on every successful
// connection and false whenever the connection is lost.
func NewClient(broker, clientID string, log zerolog.Logger, onStatus func(bool)) *Client {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second)

	opts.SetOnConnectHandler(func(paho.Client) {
		log.Info().Str("broker", broker).Msg("mqtt connected")
		if onStatus != nil {
			onStatus(true)
		}
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.Warn().Err(err).Msg("mqtt connection lost")
		if onStatus != nil {
			onStatus(false)
		}
	})

	return &Client{
		client: paho.NewClient(opts),
		log:    log,
	}
}

// Connect attempts to connect to the broker.
// Returns an error if connection fails, but does not block indefinitely.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	token := c.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return &ConnectTimeoutError{}
	}
	return token.Error()
}

// Subscribe subscribes to a topic with the given handler.
func (c *Client) Subscribe(topic string, handler paho.MessageHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	token := c.client.Subscribe(topic, 1, handler)
	if !token.WaitTimeout(10 * time.Second) {
		return &SubscribeTimeoutError{Topic: topic}
	}
	return token.Error()
}

// Disconnect cleanly disconnects from the broker.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.client.Disconnect(1000)
}

// IsConnected returns true if the client is connected.
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// ConnectTimeoutError indicates connection timed out.
type ConnectTimeoutError struct{}

func (e *ConnectTimeoutError) Error() string {
	return "mqtt connect timeout"
}

// SubscribeTimeoutError indicates subscription timed out.
type SubscribeTimeoutError struct {
	Topic string
}

func (e *SubscribeTimeoutError) Error() string {
	return "mqtt subscribe timeout: " + e.Topic
}
