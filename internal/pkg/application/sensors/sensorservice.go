package sensors

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/diwise/iot-light-monitoring/internal/pkg/application/alerts"
	"github.com/diwise/iot-light-monitoring/internal/pkg/application/events"
	"github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/metrics"
	"github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/repositories/database"
	"github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/repositories/database/readings"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
)

var (
	ErrMissingLightIntensity = fmt.Errorf("missing or invalid light_intensity")
	ErrNoReadings            = readings.ErrReadingNotFound
)

// Reading is what a sensor node posts. Only LightIntensity is required.
type Reading struct {
	LightIntensity    *float64 `json:"light_intensity"`
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

type Summary struct {
	Latest       *readings.SensorReading `json:"latest"`
	TodayAverage float64                 `json:"today_average"`
	TodayCount   int64                   `json:"today_count"`
	Connected    bool                    `json:"connected"`
}

type SensorService interface {
	Ingest(ctx context.Context, r Reading) (readings.SensorReading, error)
	Latest(ctx context.Context) (readings.SensorReading, error)
	Query(ctx context.Context, conditions ...database.ConditionFunc) ([]readings.SensorReading, error)
	Summary(ctx context.Context) (Summary, error)
}

type Option func(*sensorSvc)

func WithClock(now func() time.Time) Option {
	return func(s *sensorSvc) {
		s.now = now
	}
}

type sensorSvc struct {
	repo   readings.ReadingRepository
	alerts alerts.AlertService
	sender events.EventSender
	now    func() time.Time
}

func New(repo readings.ReadingRepository, a alerts.AlertService, sender events.EventSender, opts ...Option) SensorService {
	svc := &sensorSvc{
		repo:   repo,
		alerts: a,
		sender: sender,
		now:    func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc
}

// Ingest stores a reading and, when an expected intensity is known, runs the deviation
// check. The check never affects the outcome of the ingestion.
func (svc *sensorSvc) Ingest(ctx context.Context, r Reading) (readings.SensorReading, error) {
	if r.LightIntensity == nil || math.IsNaN(*r.LightIntensity) || math.IsInf(*r.LightIntensity, 0) {
		return readings.SensorReading{}, ErrMissingLightIntensity
	}

	logger := logging.GetFromContext(ctx)

	actual := *r.LightIntensity

	var expected *float64
	if r.ExpectedIntensity != nil && *r.ExpectedIntensity != 0 {
		expected = r.ExpectedIntensity
	}

	reading := readings.SensorReading{
		Timestamp:         svc.now(),
		LightIntensity:    actual,
		ExpectedIntensity: expected,
		GPSLatitude:       r.GPSLatitude,
		GPSLongitude:      r.GPSLongitude,
		SunAngle:          r.SunAngle,
		WeatherCondition:  r.WeatherCondition,
		Temperature:       r.Temperature,
		CloudCover:        r.CloudCover,
		Humidity:          r.Humidity,
		WindSpeed:         r.WindSpeed,
	}

	if expected != nil {
		deviation := alerts.DeviationPercentage(actual, *expected)
		reading.DeviationPercentage = &deviation
	}

	stored, err := svc.repo.Add(ctx, reading)
	if err != nil {
		return readings.SensorReading{}, fmt.Errorf("failed to store sensor reading: %w", err)
	}

	metrics.ReadingsIngested.Inc()

	if expected != nil && svc.alerts != nil {
		svc.alerts.CheckSensorDeviation(ctx, actual, expected)
	}

	if svc.sender != nil {
		err = svc.sender.Send(ctx, SensorReadingCreated{Reading: stored, Timestamp: stored.Timestamp})
		if err != nil {
			logger.Warn().Err(err).Msg("failed to announce sensor reading")
		}
	}

	return stored, nil
}

func (svc *sensorSvc) Latest(ctx context.Context) (readings.SensorReading, error) {
	return svc.repo.Latest(ctx)
}

func (svc *sensorSvc) Query(ctx context.Context, conditions ...database.ConditionFunc) ([]readings.SensorReading, error) {
	return svc.repo.Query(ctx, conditions...)
}

func (svc *sensorSvc) Summary(ctx context.Context) (Summary, error) {
	now := svc.now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	summary := Summary{}

	latest, err := svc.repo.Latest(ctx)
	if err != nil && !errors.Is(err, readings.ErrReadingNotFound) {
		return Summary{}, err
	}
	if err == nil {
		summary.Latest = &latest
		summary.Connected = now.Sub(latest.Timestamp) <= alerts.LivenessThreshold
	}

	stats, err := svc.repo.Statistics(ctx, midnight, midnight.Add(24*time.Hour))
	if err != nil {
		return Summary{}, err
	}

	summary.TodayCount = stats.Count
	summary.TodayAverage = math.Round(stats.Average*100) / 100

	return summary, nil
}
