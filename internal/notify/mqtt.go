// Package notify forwards alert effects to external systems.
package notify

import (
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// DefaultTopic is the topic prefix used when none is configured.
const DefaultTopic = "firewatch"

// PublishTimeout bounds how long a publish waits for the broker.
const PublishTimeout = 5 * time.Second

// ErrPublishTimeout is returned when the broker does not acknowledge a
// publish within PublishTimeout.
var ErrPublishTimeout = errors.New("mqtt publish timed out")

// Publisher sends a payload to a topic.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// MQTTOptions configures the broker connection.
type MQTTOptions struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

// MQTTClient is a Publisher backed by a paho client.
type MQTTClient struct {
	client  mqtt.Client
	timeout time.Duration
}

// ConnectMQTT connects to the broker. The client reconnects on its own
// after the initial connection succeeds.
func ConnectMQTT(opts MQTTOptions) (*MQTTClient, error) {
	if opts.Broker == "" {
		return nil, errors.New("mqtt broker not configured")
	}
	clientID := opts.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("firewatch-%d", time.Now().UnixNano())
	}

	co := mqtt.NewClientOptions()
	co.AddBroker(opts.Broker)
	co.SetClientID(clientID)
	if opts.Username != "" {
		co.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		co.SetPassword(opts.Password)
	}
	co.SetAutoReconnect(true)
	co.SetCleanSession(true)
	co.SetConnectTimeout(10 * time.Second)

	client := mqtt.NewClient(co)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", opts.Broker, token.Error())
	}
	return NewMQTTClient(client), nil
}

// NewMQTTClient wraps an already configured paho client.
func NewMQTTClient(client mqtt.Client) *MQTTClient {
	return &MQTTClient{client: client, timeout: PublishTimeout}
}

func (c *MQTTClient) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(c.timeout) {
		return fmt.Errorf("%w: %s", ErrPublishTimeout, topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}
	return nil
}

// Close disconnects, allowing 250ms for in-flight work.
func (c *MQTTClient) Close() {
	c.client.Disconnect(250)
}
