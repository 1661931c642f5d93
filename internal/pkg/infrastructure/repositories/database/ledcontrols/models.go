package ledcontrols

import (
	"time"

	"github.com/diwise/iot-light-monitoring/pkg/types"
)

// LedControl is one entry in the append only log of LED chamber settings.
// The current state of the chamber is the most recent entry.
type LedControl struct {
	ID               string            `gorm:"primaryKey" json:"id"`
	Timestamp        time.Time         `gorm:"index;not null" json:"timestamp"`
	LedStatus        bool              `gorm:"not null" json:"led_status"`
	BrightnessLevel  *int              `json:"brightness_level"`
	ColorTemperature *int              `json:"color_temperature"`
	ControlMode      types.ControlMode `gorm:"not null" json:"control_mode"`
	DataSource       *types.DataSource `json:"data_source"`
	DurationMinutes  *int              `json:"duration_minutes"`
	CreatedAt        time.Time         `json:"created_at"`
}

func (LedControl) TableName() string {
	return "led_chamber_controls"
}
