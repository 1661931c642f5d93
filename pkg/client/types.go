package client

type Reading struct {
	LightIntensity    float64  `json:"light_intensity"`
	ExpectedIntensity *float64 `json:"expected_intensity,omitempty"`
	GPSLatitude       *float64 `json:"gps_latitude,omitempty"`
	GPSLongitude      *float64 `json:"gps_longitude,omitempty"`
	SunAngle          *float64 `json:"sun_angle,omitempty"`
	WeatherCondition  *string  `json:"weather_condition,omitempty"`
	Temperature       *float64 `json:"temperature,omitempty"`
	CloudCover        *float64 `json:"cloud_cover,omitempty"`
	Humidity          *float64 `json:"humidity,omitempty"`
	WindSpeed         *float64 `json:"wind_speed,omitempty"`
}

type LEDStatus struct {
	On               bool
	Brightness       int
	ColorTemperature int
	ControlMode      string
	DataSource       string
}

// ledStatusDTO accepts both a stored control entry and the default state,
// which names the brightness field differently.
type ledStatusDTO struct {
	LedStatus        bool    `json:"led_status"`
	BrightnessLevel  *int    `json:"brightness_level"`
	Brightness       *int    `json:"brightness"`
	ColorTemperature *int    `json:"color_temperature"`
	ControlMode      string  `json:"control_mode"`
	DataSource       *string `json:"data_source"`
}

func (dto ledStatusDTO) toLEDStatus() LEDStatus {
	s := LEDStatus{
		On:          dto.LedStatus,
		ControlMode: dto.ControlMode,
	}

	if dto.BrightnessLevel != nil {
		s.Brightness = *dto.BrightnessLevel
	} else if dto.Brightness != nil {
		s.Brightness = *dto.Brightness
	}

	if dto.ColorTemperature != nil {
		s.ColorTemperature = *dto.ColorTemperature
	}

	if dto.DataSource != nil {
		s.DataSource = *dto.DataSource
	}

	if s.ControlMode == "" {
		s.ControlMode = "manual"
	}

	return s
}
