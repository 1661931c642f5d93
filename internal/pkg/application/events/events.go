package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"golang.org/x/sys/unix"
	yaml "gopkg.in/yaml.v2"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
)

const eventSource string = "github.com/diwise/iot-light-monitoring"

// Message is anything that can be announced to subscribers of the real-time feed.
type Message interface {
	EventType() string
	EventID() string
	EventTime() time.Time
}

type EventSender interface {
	Send(ctx context.Context, message Message) error
}

type eventSender struct {
	client      cloudevents.Client
	subscribers map[string][]SubscriberConfig
}

func New(cfg *Config) (EventSender, error) {
	c, err := cloudevents.NewClientHTTP()
	if err != nil {
		return nil, err
	}

	e := &eventSender{
		client:      c,
		subscribers: make(map[string][]SubscriberConfig),
	}

	if cfg != nil {
		for _, s := range cfg.Notifications {
			e.subscribers[s.Type] = append(e.subscribers[s.Type], s.Subscribers...)
		}
	}

	return e, nil
}

func (e *eventSender) Send(ctx context.Context, message Message) error {
	subscribers, ok := e.subscribers[message.EventType()]
	if !ok || len(subscribers) == 0 {
		return nil
	}

	var err error

	event := cloudevents.NewEvent()
	event.SetID(message.EventID())
	event.SetTime(message.EventTime())
	event.SetSource(eventSource)
	event.SetType(message.EventType())

	err = event.SetData(cloudevents.ApplicationJSON, message)
	if err != nil {
		return err
	}

	logger := logging.GetFromContext(ctx)

	for _, s := range subscribers {
		ctxWithTarget := cloudevents.ContextWithTarget(ctx, s.Endpoint)

		result := e.client.Send(ctxWithTarget, event)
		if cloudevents.IsUndelivered(result) || errors.Is(result, unix.ECONNREFUSED) {
			logger.Error().Err(result).Msgf("failed to send event to %s", s.Endpoint)
			err = fmt.Errorf("%w", result)
		}
	}

	return err
}

type multiSender struct {
	senders []EventSender
}

// Multi fans a message out to all senders and returns the first error encountered.
func Multi(senders ...EventSender) EventSender {
	return &multiSender{senders: senders}
}

func (m *multiSender) Send(ctx context.Context, message Message) error {
	var first error
	for _, s := range m.senders {
		if err := s.Send(ctx, message); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type SubscriberConfig struct {
	Endpoint string `yaml:"endpoint"`
}

type Notification struct {
	ID          string             `yaml:"id"`
	Name        string             `yaml:"name"`
	Type        string             `yaml:"type"`
	Subscribers []SubscriberConfig `yaml:"subscribers"`
}

type Config struct {
	Notifications []Notification `yaml:"notifications"`
}

func LoadConfiguration(data io.Reader) (*Config, error) {
	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}

	cfg := Config{}
	if err := yaml.Unmarshal(buf, &cfg); err == nil {
		return &cfg, nil
	} else {
		return nil, err
	}
}
