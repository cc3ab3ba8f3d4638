package mqtt

import (
	"errors"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// ErrConnectTimeout is returned when the broker does not acknowledge the connection in time
var ErrConnectTimeout = errors.New("timed out connecting to MQTT broker")

// Client owns the broker connection shared by Subscriber and Publisher
type Client struct {
	client mqtt.Client
	config ClientConfig
}

// ClientConfig holds MQTT client configuration
type ClientConfig struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	ConnectTimeout time.Duration // 0 means 10s
}

// NewClient connects to the broker, failing after ConnectTimeout
func NewClient(config ClientConfig) (*Client, error) {
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = 10 * time.Second
	}

	client := mqtt.NewClient(clientOptions(config))

	token := client.Connect()
	if !token.WaitTimeout(config.ConnectTimeout) {
		return nil, fmt.Errorf("%w %s after %v", ErrConnectTimeout, config.Broker, config.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	log.Printf("MQTT Client %s: Connected to broker %s", config.ClientID, config.Broker)

	return &Client{
		client: client,
		config: config,
	}, nil
}

// clientOptions builds paho options. The session is kept across reconnects so the
// broker holds QoS 1 frames while the service is briefly away.
func clientOptions(config ClientConfig) *mqtt.ClientOptions {
	id := config.ClientID

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(id)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	opts.SetCleanSession(false)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetConnectTimeout(config.ConnectTimeout)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetDefaultPublishHandler(func(_ mqtt.Client, msg mqtt.Message) {
		log.Printf("MQTT Client %s: Unrouted message on %s", id, msg.Topic())
	})
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		log.Printf("MQTT Client %s: Connection established", id)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("MQTT Client %s: Connection lost: %v", id, err)
	})
	opts.SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) {
		log.Printf("MQTT Client %s: Reconnecting...", id)
	})
	return opts
}

// GetNativeClient returns the underlying paho client for Subscriber and Publisher
func (c *Client) GetNativeClient() mqtt.Client {
	return c.client
}

// IsConnected reports whether the broker link is currently up
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// Close disconnects, giving in-flight messages 250ms to drain
func (c *Client) Close() {
	c.client.Disconnect(250)
	log.Printf("MQTT Client %s: Disconnected", c.config.ClientID)
}
