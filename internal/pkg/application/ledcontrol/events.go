package ledcontrol

import (
	"time"

	"github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/repositories/database/ledcontrols"
)

type LedControlChanged struct {
	Control   ledcontrols.LedControl `json:"control"`
	Timestamp time.Time              `json:"timestamp"`
}

func (l LedControlChanged) EventType() string    { return "ledControlChanged" }
func (l LedControlChanged) EventID() string      { return l.Control.ID }
func (l LedControlChanged) EventTime() time.Time { return l.Timestamp }
