package sensors

import (
	"time"

	"github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/repositories/database/readings"
)

type SensorReadingCreated struct {
	Reading   readings.SensorReading `json:"reading"`
	Timestamp time.Time              `json:"timestamp"`
}

func (s SensorReadingCreated) EventType() string    { return "sensorReadingCreated" }
func (s SensorReadingCreated) EventID() string      { return s.Reading.ID }
func (s SensorReadingCreated) EventTime() time.Time { return s.Timestamp }
