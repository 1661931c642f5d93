package mqtt

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
)

type Config struct {
	BrokerURL string `yaml:"brokerUrl"`
	ClientID  string `yaml:"clientId"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	Topic     string `yaml:"topic"`
	UseTLS    bool   `yaml:"useTls"`
}

const DefaultTopic string = "lightmonitoring/led/commands"

// PublishTimeout bounds how long Publish waits for the broker to acknowledge a message.
const PublishTimeout time.Duration = 5 * time.Second

var ErrPublishTimeout = errors.New("timed out waiting for mqtt broker")

// Publisher pushes messages to the sensor node over an MQTT broker.
type Publisher interface {
	Publish(ctx context.Context, payload any) error
	Close()
}

type publisher struct {
	client  paho.Client
	topic   string
	timeout time.Duration
}

func NewPublisher(ctx context.Context, cfg Config) (Publisher, error) {
	log := logging.GetFromContext(ctx)

	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "iot-light-monitoring"
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(10 * time.Second).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	if cfg.UseTLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Error().Err(err).Msg("mqtt connection lost")
	}
	opts.OnConnect = func(_ paho.Client) {
		log.Info().Str("topic", cfg.Topic).Msg("mqtt connected")
	}

	client := paho.NewClient(opts)
	if token := client.Connect(); token.WaitTimeout(10*time.Second) && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to mqtt broker: %w", token.Error())
	}

	return &publisher{client: client, topic: cfg.Topic, timeout: PublishTimeout}, nil
}

func (p *publisher) Publish(ctx context.Context, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	timeout := p.timeout
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		timeout = time.Until(deadline)
	}

	token := p.client.Publish(p.topic, 1, true, b)
	if !token.WaitTimeout(timeout) {
		return ErrPublishTimeout
	}

	return token.Error()
}

func (p *publisher) Close() {
	if p.client.IsConnected() {
		p.client.Disconnect(500)
	}
}

type noopPublisher struct{}

// NewNoopPublisher returns a publisher for deployments where the node only polls for its LED status.
func NewNoopPublisher() Publisher {
	return &noopPublisher{}
}

func (noopPublisher) Publish(context.Context, any) error { return nil }
func (noopPublisher) Close()                             {}
