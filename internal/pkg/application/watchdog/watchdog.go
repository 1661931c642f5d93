package watchdog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/repositories/database/alerts"
	"github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/repositories/database/readings"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
)

const DefaultSchedule string = "@every 1m"

type Watchdog interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Check(ctx context.Context) *alerts.Alert
}

type LatestReader interface {
	Latest(ctx context.Context) (readings.SensorReading, error)
}

type StatusChecker interface {
	CheckSystemStatus(ctx context.Context, lastReading time.Time) *alerts.Alert
}

type watchdogImpl struct {
	schedule  string
	scheduler *cron.Cron
	readings  LatestReader
	checker   StatusChecker
}

func New(r LatestReader, c StatusChecker, schedule string) Watchdog {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	scheduler := cron.New()
	if strings.Count(schedule, " ") == 5 {
		scheduler = cron.New(cron.WithSeconds())
	}

	return &watchdogImpl{
		schedule:  schedule,
		scheduler: scheduler,
		readings:  r,
		checker:   c,
	}
}

func (w *watchdogImpl) Start(ctx context.Context) error {
	logger := logging.GetFromContext(ctx)

	_, err := w.scheduler.AddFunc(w.schedule, func() {
		w.Check(ctx)
	})
	if err != nil {
		return err
	}

	logger.Info().Msgf("starting liveness watchdog with schedule '%s'", w.schedule)
	w.scheduler.Start()

	return nil
}

func (w *watchdogImpl) Stop(ctx context.Context) error {
	select {
	case <-w.scheduler.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Check raises a liveness alert if the most recent reading is too old. Nothing is
// checked until the first reading has arrived.
func (w *watchdogImpl) Check(ctx context.Context) *alerts.Alert {
	logger := logging.GetFromContext(ctx)

	latest, err := w.readings.Latest(ctx)
	if err != nil {
		if !errors.Is(err, readings.ErrReadingNotFound) {
			logger.Error().Err(err).Msg("could not fetch latest sensor reading")
		}
		return nil
	}

	a := w.checker.CheckSystemStatus(ctx, latest.Timestamp)
	if a != nil {
		logger.Warn().Str("alertID", a.ID).Msgf("no sensor data since %s", latest.Timestamp.Format(time.RFC3339))
	}

	return a
}
