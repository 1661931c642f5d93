package alerts

import (
	"context"
	"errors"
	"time"

	"github.com/diwise/iot-light-monitoring/internal/pkg/application/events"
	"github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/metrics"
	"github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/repositories/database"
	"github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/repositories/database/alerts"
	"github.com/diwise/iot-light-monitoring/pkg/types"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
)

const (
	DedupWindow       time.Duration = 5 * time.Minute
	LivenessThreshold time.Duration = 2 * time.Minute

	ConnectionLostMessage string = "Raspberry Pi connection lost - no sensor data received for 2+ minutes"
)

var ErrAlertNotFound = alerts.ErrAlertNotFound

type AlertService interface {
	GenerateAlert(ctx context.Context, alertType string, severity types.Severity, message string) *alerts.Alert
	CheckSensorDeviation(ctx context.Context, actual float64, expected *float64) *alerts.Alert
	CheckSystemStatus(ctx context.Context, lastReading time.Time) *alerts.Alert

	Query(ctx context.Context, conditions ...database.ConditionFunc) ([]alerts.Alert, error)
	Resolve(ctx context.Context, alertID string) (alerts.Alert, error)
}

type Option func(*alertSvc)

func WithClock(now func() time.Time) Option {
	return func(a *alertSvc) {
		a.now = now
	}
}

func WithLivenessThreshold(d time.Duration) Option {
	return func(a *alertSvc) {
		if d > 0 {
			a.liveness = d
		}
	}
}

type alertSvc struct {
	repo     alerts.AlertRepository
	sender   events.EventSender
	now      func() time.Time
	liveness time.Duration
}

func New(repo alerts.AlertRepository, sender events.EventSender, opts ...Option) AlertService {
	svc := &alertSvc{
		repo:     repo,
		sender:   sender,
		now:      func() time.Time { return time.Now().UTC() },
		liveness: LivenessThreshold,
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc
}

// shouldSuppress reports whether an open alert of the same type is younger than the dedup window.
func shouldSuppress(existing *alerts.Alert, now time.Time) bool {
	if existing == nil {
		return false
	}
	return now.Sub(existing.Timestamp) < DedupWindow
}

// GenerateAlert stores a new open alert unless one of the same type was raised within the
// dedup window, in which case that alert is returned unchanged. Storage failures are logged
// and reported as nil.
func (svc *alertSvc) GenerateAlert(ctx context.Context, alertType string, severity types.Severity, message string) *alerts.Alert {
	logger := logging.GetFromContext(ctx)
	now := svc.now()

	var existing *alerts.Alert

	latest, err := svc.repo.LatestOpenByType(ctx, alertType)
	if err == nil {
		existing = &latest
	} else if !errors.Is(err, alerts.ErrAlertNotFound) {
		logger.Error().Err(err).Msgf("failed to look up open %s alerts", alertType)
	}

	if shouldSuppress(existing, now) {
		logger.Debug().Msgf("suppressing %s alert, open alert %s is %s old", alertType, existing.ID, now.Sub(existing.Timestamp))
		metrics.AlertsSuppressed.WithLabelValues(alertType).Inc()
		return existing
	}

	created, err := svc.repo.Add(ctx, alerts.Alert{
		Timestamp:  now,
		AlertType:  alertType,
		Severity:   severity,
		Message:    message,
		IsResolved: false,
	})
	if err != nil {
		logger.Error().Err(err).Msgf("failed to store %s alert", alertType)
		return nil
	}

	metrics.AlertsCreated.WithLabelValues(alertType, string(severity)).Inc()

	if svc.sender != nil {
		err = svc.sender.Send(ctx, AlertCreated{Alert: created, Timestamp: now})
		if err != nil {
			logger.Warn().Err(err).Msg("failed to announce new alert")
		}
	}

	return &created
}

func (svc *alertSvc) CheckSensorDeviation(ctx context.Context, actual float64, expected *float64) *alerts.Alert {
	if expected == nil || *expected == 0 {
		return nil
	}

	d, ok := SeverityFor(actual, expected)
	if !ok {
		return nil
	}

	return svc.GenerateAlert(ctx, types.AlertTypeSensorDeviation, d.Severity, d.Message())
}

func (svc *alertSvc) CheckSystemStatus(ctx context.Context, lastReading time.Time) *alerts.Alert {
	if svc.now().Sub(lastReading) <= svc.liveness {
		return nil
	}

	return svc.GenerateAlert(ctx, types.AlertTypeSystemStatus, types.SeverityHigh, ConnectionLostMessage)
}

func (svc *alertSvc) Query(ctx context.Context, conditions ...database.ConditionFunc) ([]alerts.Alert, error) {
	return svc.repo.Query(ctx, conditions...)
}

func (svc *alertSvc) Resolve(ctx context.Context, alertID string) (alerts.Alert, error) {
	err := svc.repo.Resolve(ctx, alertID, svc.now())
	if err != nil {
		return alerts.Alert{}, err
	}

	return svc.repo.GetByID(ctx, alertID)
}
