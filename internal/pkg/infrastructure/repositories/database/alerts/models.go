package alerts

import (
	"time"

	"github.com/diwise/iot-light-monitoring/pkg/types"
)

type Alert struct {
	ID         string         `gorm:"primaryKey" json:"id"`
	Timestamp  time.Time      `gorm:"index;not null" json:"timestamp"`
	AlertType  string         `gorm:"index;not null" json:"alert_type"`
	Severity   types.Severity `gorm:"not null" json:"severity"`
	Message    string         `gorm:"not null" json:"message"`
	IsResolved bool           `gorm:"index;not null" json:"is_resolved"`
	ResolvedAt *time.Time     `json:"resolved_at"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (Alert) TableName() string {
	return "alerts"
}
