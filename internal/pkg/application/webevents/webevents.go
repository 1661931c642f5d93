package webevents

import (
	"context"
	"encoding/json"
	"net/http"

	gosse "github.com/alexandrevicenzi/go-sse"

	"github.com/diwise/iot-light-monitoring/internal/pkg/application/events"
)

// WebEvents streams events to dashboards connected with server sent events.
type WebEvents interface {
	events.EventSender
	Handler() http.Handler
	Shutdown()
}

type webEvents struct {
	s *gosse.Server
}

func New() WebEvents {
	return &webEvents{
		s: gosse.NewServer(&gosse.Options{}),
	}
}

func (we *webEvents) Handler() http.Handler {
	return we.s
}

func (we *webEvents) Shutdown() {
	we.s.Shutdown()
}

// Send broadcasts the message to every connected client, using the event type as sse event name.
func (we *webEvents) Send(_ context.Context, message events.Message) error {
	b, err := json.Marshal(message)
	if err != nil {
		return err
	}

	we.s.SendMessage("", gosse.NewMessage(message.EventID(), string(b), message.EventType()))

	return nil
}
