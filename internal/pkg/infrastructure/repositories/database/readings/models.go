package readings

import "time"

type SensorReading struct {
	ID                  string    `gorm:"primaryKey" json:"id"`
	Timestamp           time.Time `gorm:"index;not null" json:"timestamp"`
	LightIntensity      float64   `gorm:"not null" json:"light_intensity"`
	ExpectedIntensity   *float64  `json:"expected_intensity"`
	DeviationPercentage *float64  `json:"deviation_percentage"`
	GPSLatitude         *float64  `gorm:"column:gps_latitude" json:"gps_latitude"`
	GPSLongitude        *float64  `gorm:"column:gps_longitude" json:"gps_longitude"`
	SunAngle            *float64  `json:"sun_angle"`
	WeatherCondition    *string   `json:"weather_condition"`
	Temperature         *float64  `json:"temperature"`
	CloudCover          *float64  `json:"cloud_cover"`
	Humidity            *float64  `json:"humidity"`
	WindSpeed           *float64  `json:"wind_speed"`
	CreatedAt           time.Time `json:"created_at"`
}

func (SensorReading) TableName() string {
	return "sensor_readings"
}

// Statistics summarises the light intensity of the readings within a time range.
type Statistics struct {
	Count   int64
	Average float64
}
