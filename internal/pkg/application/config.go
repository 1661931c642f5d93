package application

import (
	"io"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/diwise/iot-light-monitoring/internal/pkg/application/events"
	"github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/mqtt"
)

type WatchdogConfig struct {
	Schedule          string        `yaml:"schedule"`
	LivenessThreshold time.Duration `yaml:"livenessThreshold"`
}

type AMQPConfig struct {
	Exchange string `yaml:"exchange"`
}

type Config struct {
	Watchdog      WatchdogConfig        `yaml:"watchdog"`
	MQTT          mqtt.Config           `yaml:"mqtt"`
	AMQP          AMQPConfig            `yaml:"amqp"`
	Notifications []events.Notification `yaml:"notifications"`
}

func (c *Config) EventsConfig() *events.Config {
	return &events.Config{Notifications: c.Notifications}
}

func LoadConfiguration(data io.Reader) (*Config, error) {
	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}

	cfg := Config{}
	err = yaml.Unmarshal(buf, &cfg)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
