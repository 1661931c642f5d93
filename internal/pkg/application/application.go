package application

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/diwise/iot-light-monitoring/internal/pkg/application/alerts"
	"github.com/diwise/iot-light-monitoring/internal/pkg/application/cctv"
	"github.com/diwise/iot-light-monitoring/internal/pkg/application/events"
	"github.com/diwise/iot-light-monitoring/internal/pkg/application/export"
	"github.com/diwise/iot-light-monitoring/internal/pkg/application/ledcontrol"
	"github.com/diwise/iot-light-monitoring/internal/pkg/application/sensors"
	"github.com/diwise/iot-light-monitoring/internal/pkg/application/watchdog"
	"github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/mqtt"
	"github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/repositories/database"
	alertrepo "github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/repositories/database/alerts"
	"github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/repositories/database/footage"
	"github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/repositories/database/ledcontrols"
	"github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/repositories/database/readings"
)

type App interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error

	Sensors() sensors.SensorService
	LedControl() ledcontrol.LedControlService
	Footage() cctv.FootageService
	Alerts() alerts.AlertService
	Exporter() export.Exporter
}

type app struct {
	sensors  sensors.SensorService
	leds     ledcontrol.LedControlService
	footage  cctv.FootageService
	alerts   alerts.AlertService
	exporter export.Exporter
	watchdog watchdog.Watchdog
}

type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces the wall clock in every time window computation.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func New(db *gorm.DB, cfg *Config, publisher mqtt.Publisher, sender events.EventSender, opts ...Option) (App, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	o := &options{
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(o)
	}

	connect := database.Shared(db)

	readingRepo, err := readings.NewReadingRepository(connect)
	if err != nil {
		return nil, fmt.Errorf("failed to create sensor reading repository: %w", err)
	}

	ledRepo, err := ledcontrols.NewLedControlRepository(connect)
	if err != nil {
		return nil, fmt.Errorf("failed to create led control repository: %w", err)
	}

	footageRepo, err := footage.NewFootageRepository(connect)
	if err != nil {
		return nil, fmt.Errorf("failed to create cctv footage repository: %w", err)
	}

	alertRepo, err := alertrepo.NewAlertRepository(connect)
	if err != nil {
		return nil, fmt.Errorf("failed to create alert repository: %w", err)
	}

	alertSvc := alerts.New(alertRepo, sender, alerts.WithClock(o.now), alerts.WithLivenessThreshold(cfg.Watchdog.LivenessThreshold))
	sensorSvc := sensors.New(readingRepo, alertSvc, sender, sensors.WithClock(o.now))

	return &app{
		sensors:  sensorSvc,
		leds:     ledcontrol.New(ledRepo, publisher, sender, ledcontrol.WithClock(o.now)),
		footage:  cctv.New(footageRepo, cctv.WithClock(o.now)),
		alerts:   alertSvc,
		exporter: export.New(readingRepo, ledRepo, footageRepo, alertRepo, export.WithClock(o.now)),
		watchdog: watchdog.New(sensorSvc, alertSvc, cfg.Watchdog.Schedule),
	}, nil
}

func (a *app) Start(ctx context.Context) error {
	return a.watchdog.Start(ctx)
}

func (a *app) Stop(ctx context.Context) error {
	return a.watchdog.Stop(ctx)
}

func (a *app) Sensors() sensors.SensorService {
	return a.sensors
}

func (a *app) LedControl() ledcontrol.LedControlService {
	return a.leds
}

func (a *app) Footage() cctv.FootageService {
	return a.footage
}

func (a *app) Alerts() alerts.AlertService {
	return a.alerts
}

func (a *app) Exporter() export.Exporter {
	return a.exporter
}
