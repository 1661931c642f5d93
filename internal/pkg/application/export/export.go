package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/samber/lo"

	"github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/repositories/database/alerts"
	"github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/repositories/database/footage"
	"github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/repositories/database/ledcontrols"
	"github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/repositories/database/readings"
	"github.com/diwise/iot-light-monitoring/pkg/types"
)

const (
	SensorData   string = "sensor-data"
	GPSData      string = "gps-data"
	LedHistory   string = "led-history"
	CctvMetadata string = "cctv-metadata"
	Alerts       string = "alerts"
)

const notAvailable string = "N/A"

var ErrUnknownDataset = fmt.Errorf("unknown dataset")

type dataset struct {
	prefix string
	header []string
	rows   func(ctx context.Context) ([][]string, error)
}

type Exporter interface {
	// Export writes the named dataset as CSV, newest rows first, and returns the file name to offer the client.
	Export(ctx context.Context, name string, w io.Writer) (string, error)
	FileName(name string) (string, error)
}

type Option func(*exporter)

func WithClock(now func() time.Time) Option {
	return func(e *exporter) {
		e.now = now
	}
}

type exporter struct {
	datasets map[string]dataset
	now      func() time.Time
}

func New(r readings.ReadingRepository, l ledcontrols.LedControlRepository, f footage.FootageRepository, a alerts.AlertRepository, opts ...Option) Exporter {
	e := &exporter{
		now: func() time.Time { return time.Now().UTC() },
	}

	e.datasets = map[string]dataset{
		SensorData: {
			prefix: "sensor_data",
			header: []string{"ID", "Timestamp", "Light Intensity (lux)", "Expected Intensity (lux)", "Deviation (%)", "GPS Latitude", "GPS Longitude", "Weather Condition", "Temperature (°C)", "Cloud Cover (%)"},
			rows: func(ctx context.Context) ([][]string, error) {
				result, err := r.Query(ctx)
				return lo.Map(result, func(s readings.SensorReading, _ int) []string {
					return []string{
						s.ID, timestamp(s.Timestamp), number(s.LightIntensity),
						orNA(s.ExpectedIntensity), orNA(s.DeviationPercentage), orNA(s.GPSLatitude), orNA(s.GPSLongitude),
						textOrNA(s.WeatherCondition), orNA(s.Temperature), orNA(s.CloudCover),
					}
				}), err
			},
		},
		GPSData: {
			prefix: "gps_data",
			header: []string{"Timestamp", "GPS Latitude", "GPS Longitude", "Sun Angle (degrees)", "Expected Light Intensity (lux)", "Actual Light Intensity (lux)", "Deviation (%)", "Weather Condition", "Temperature (°C)", "Cloud Cover (%)", "Humidity (%)", "Wind Speed (m/s)"},
			rows: func(ctx context.Context) ([][]string, error) {
				result, err := r.Query(ctx)
				return lo.Map(result, func(s readings.SensorReading, _ int) []string {
					return []string{
						timestamp(s.Timestamp), orNA(s.GPSLatitude), orNA(s.GPSLongitude), orNA(s.SunAngle),
						orNA(s.ExpectedIntensity), number(s.LightIntensity), orNA(s.DeviationPercentage),
						textOrNA(s.WeatherCondition), orNA(s.Temperature), orNA(s.CloudCover), orNA(s.Humidity), orNA(s.WindSpeed),
					}
				}), err
			},
		},
		LedHistory: {
			prefix: "led_history",
			header: []string{"ID", "Timestamp", "LED Status", "Brightness Level (%)", "Color Temperature (K)", "Control Mode", "Data Source"},
			rows: func(ctx context.Context) ([][]string, error) {
				result, err := l.Query(ctx)
				return lo.Map(result, func(c ledcontrols.LedControl, _ int) []string {
					mode := string(c.ControlMode)
					if mode == "" {
						mode = string(types.ControlModeManual)
					}
					source := notAvailable
					if c.DataSource != nil && *c.DataSource != "" {
						source = string(*c.DataSource)
					}
					return []string{
						c.ID, timestamp(c.Timestamp), lo.Ternary(c.LedStatus, "ON", "OFF"),
						integer(c.BrightnessLevel), integer(c.ColorTemperature), mode, source,
					}
				}), err
			},
		},
		CctvMetadata: {
			prefix: "cctv_metadata",
			header: []string{"ID", "Timestamp", "Duration (seconds)", "File Size (MB)", "File Path", "Notes"},
			rows: func(ctx context.Context) ([][]string, error) {
				result, err := f.Query(ctx)
				return lo.Map(result, func(c footage.CctvFootage, _ int) []string {
					size := ""
					if c.FileSizeMB != nil {
						size = number(*c.FileSizeMB)
					}
					return []string{
						c.ID, timestamp(c.Timestamp), integer(c.DurationSeconds), size, c.VideoURL, lo.FromPtr(c.Notes),
					}
				}), err
			},
		},
		Alerts: {
			prefix: "alerts",
			header: []string{"ID", "Timestamp", "Alert Type", "Severity", "Message", "Is Resolved"},
			rows: func(ctx context.Context) ([][]string, error) {
				result, err := a.Query(ctx)
				return lo.Map(result, func(x alerts.Alert, _ int) []string {
					return []string{
						x.ID, timestamp(x.Timestamp), x.AlertType, string(x.Severity), x.Message, lo.Ternary(x.IsResolved, "Yes", "No"),
					}
				}), err
			},
		},
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *exporter) FileName(name string) (string, error) {
	ds, ok := e.datasets[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownDataset, name)
	}

	return fmt.Sprintf("%s_%s.csv", ds.prefix, e.now().UTC().Format("2006-01-02T15:04:05.000Z07:00")), nil
}

func (e *exporter) Export(ctx context.Context, name string, w io.Writer) (string, error) {
	filename, err := e.FileName(name)
	if err != nil {
		return "", err
	}

	ds := e.datasets[name]

	rows, err := ds.rows(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", name, err)
	}

	writer := csv.NewWriter(w)

	err = writer.Write(ds.header)
	if err != nil {
		return "", err
	}

	err = writer.WriteAll(rows)
	if err != nil {
		return "", err
	}

	return filename, nil
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func integer(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// orNA prints absent and zero values as N/A, the way the dashboard has always presented them.
func orNA(v *float64) string {
	if v == nil || *v == 0 {
		return notAvailable
	}
	return number(*v)
}

func textOrNA(s *string) string {
	if s == nil || *s == "" {
		return notAvailable
	}
	return *s
}
