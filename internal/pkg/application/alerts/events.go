package alerts

import (
	"time"

	"github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/repositories/database/alerts"
)

type AlertCreated struct {
	Alert     alerts.Alert `json:"alert"`
	Timestamp time.Time    `json:"timestamp"`
}

func (a AlertCreated) EventType() string    { return "alertCreated" }
func (a AlertCreated) EventID() string      { return a.Alert.ID }
func (a AlertCreated) EventTime() time.Time { return a.Timestamp }
