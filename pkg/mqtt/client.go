package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	applogger "BinPulse/pkg/logger"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// ClientOption configures Client.
type ClientOption func(*ClientConfig)

// ClientConfig holds MQTT connection settings.
type ClientConfig struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
	PublishWait    time.Duration
	Logger         *applogger.Logger
}

// Client publishes to an MQTT broker and reconnects on its own.
type Client struct {
	client paho.Client
	cfg    ClientConfig
	log    *applogger.Logger
}

// NewClient connects to the broker.
func NewClient(opts ...ClientOption) (*Client, error) {
	cfg := ClientConfig{
		Broker:         "tcp://localhost:1883",
		ClientID:       "binpulse",
		KeepAlive:      60 * time.Second,
		ConnectTimeout: 10 * time.Second,
		PublishWait:    5 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = applogger.Nop()
	}
	l := cfg.Logger

	po := paho.NewClientOptions()
	po.AddBroker(cfg.Broker)
	po.SetClientID(cfg.ClientID)
	po.SetUsername(cfg.Username)
	po.SetPassword(cfg.Password)
	po.SetAutoReconnect(true)
	po.SetKeepAlive(cfg.KeepAlive)
	po.SetPingTimeout(10 * time.Second)
	po.SetConnectTimeout(cfg.ConnectTimeout)
	po.SetOnConnectHandler(func(paho.Client) {
		l.Info("mqtt connected", applogger.String("broker", cfg.Broker))
	})
	po.SetConnectionLostHandler(func(_ paho.Client, err error) {
		l.Warn("mqtt connection lost", applogger.Error(err))
	})

	client := paho.NewClient(po)
	token := client.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout) {
		return nil, fmt.Errorf("mqtt connect: timeout after %s", cfg.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}

	return &Client{client: client, cfg: cfg, log: l}, nil
}

// Publish sends payload to topic. Non byte payloads are JSON encoded.
func (c *Client) Publish(ctx context.Context, topic string, qos byte, retained bool, payload interface{}) error {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		data = b
	}

	token := c.client.Publish(topic, qos, retained, data)
	wait := c.cfg.PublishWait
	if dl, ok := ctx.Deadline(); ok {
		if until := time.Until(dl); until < wait {
			wait = until
		}
	}
	if !token.WaitTimeout(wait) {
		return fmt.Errorf("mqtt publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", topic, err)
	}
	return nil
}

// IsConnected reports whether the client currently holds a connection.
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// Close disconnects, allowing 250ms for in-flight work.
func (c *Client) Close() {
	c.client.Disconnect(250)
	c.log.Info("mqtt disconnected")
}

// FormatTopic replaces {key} placeholders in pattern.
func FormatTopic(pattern string, values map[string]string) string {
	for k, v := range values {
		pattern = strings.ReplaceAll(pattern, "{"+k+"}", v)
	}
	return pattern
}

// WithBroker sets the broker URL, e.g. tcp://host:1883.
func WithBroker(broker string) ClientOption {
	return func(c *ClientConfig) {
		c.Broker = broker
	}
}

// WithClientID sets the MQTT client id.
func WithClientID(id string) ClientOption {
	return func(c *ClientConfig) {
		c.ClientID = id
	}
}

// WithCredentials sets username and password.
func WithCredentials(user, password string) ClientOption {
	return func(c *ClientConfig) {
		c.Username = user
		c.Password = password
	}
}

// WithPublishWait bounds how long Publish waits for the broker ack.
func WithPublishWait(d time.Duration) ClientOption {
	return func(c *ClientConfig) {
		if d > 0 {
			c.PublishWait = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *applogger.Logger) ClientOption {
	return func(c *ClientConfig) {
		c.Logger = l
	}
}
