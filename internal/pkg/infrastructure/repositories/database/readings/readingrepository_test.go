package readings

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/repositories/database"
	"github.com/matryer/is"
)

func TestAddAndLatest(t *testing.T) {
	is, ctx, r := testSetupReadingRepository(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	_, err := r.Add(ctx, SensorReading{LightIntensity: 10, Timestamp: now.Add(-time.Minute)})
	is.NoErr(err)
	expected := 40.0
	added, err := r.Add(ctx, SensorReading{LightIntensity: 20, ExpectedIntensity: &expected, Timestamp: now})
	is.NoErr(err)
	is.True(added.ID != "")

	latest, err := r.Latest(ctx)
	is.NoErr(err)
	is.Equal(latest.ID, added.ID)
	is.Equal(*latest.ExpectedIntensity, 40.0)
	is.True(latest.GPSLatitude == nil)
}

func TestLatestWithoutReadings(t *testing.T) {
	is, ctx, r := testSetupReadingRepository(t)

	_, err := r.Latest(ctx)
	is.True(errors.Is(err, ErrReadingNotFound))
}

func TestQueryTimeRange(t *testing.T) {
	is, ctx, r := testSetupReadingRepository(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		_, err := r.Add(ctx, SensorReading{LightIntensity: float64(i), Timestamp: now.Add(time.Duration(i) * time.Hour)})
		is.NoErr(err)
	}

	readings, err := r.Query(ctx, WithTimeRange(now.Add(time.Hour), now.Add(3*time.Hour)))
	is.NoErr(err)
	is.Equal(len(readings), 3)
	is.Equal(readings[0].LightIntensity, 3.0)

	readings, err = r.Query(ctx, WithAscendingOrder(), WithLimit(2))
	is.NoErr(err)
	is.Equal(len(readings), 2)
	is.Equal(readings[0].LightIntensity, 0.0)
}

func TestStatistics(t *testing.T) {
	is, ctx, r := testSetupReadingRepository(t)
	midnight := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	_, err := r.Add(ctx, SensorReading{LightIntensity: 100, Timestamp: midnight.Add(-time.Hour)})
	is.NoErr(err)
	_, err = r.Add(ctx, SensorReading{LightIntensity: 10, Timestamp: midnight.Add(time.Hour)})
	is.NoErr(err)
	_, err = r.Add(ctx, SensorReading{LightIntensity: 20, Timestamp: midnight.Add(2 * time.Hour)})
	is.NoErr(err)

	stats, err := r.Statistics(ctx, midnight, midnight.Add(24*time.Hour))
	is.NoErr(err)
	is.Equal(stats.Count, int64(2))
	is.Equal(stats.Average, 15.0)

	stats, err = r.Statistics(ctx, midnight.Add(48*time.Hour), midnight.Add(72*time.Hour))
	is.NoErr(err)
	is.Equal(stats.Count, int64(0))
	is.Equal(stats.Average, 0.0)
}

func testSetupReadingRepository(t *testing.T) (*is.I, context.Context, ReadingRepository) {
	is := is.New(t)
	ctx := context.Background()

	r, err := NewReadingRepository(NewSQLiteConnector(ctx))
	is.NoErr(err)

	return is, ctx, r
}
