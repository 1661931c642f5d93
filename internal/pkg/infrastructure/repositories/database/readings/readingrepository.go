package readings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	. "github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/repositories/database"
)

var ErrReadingNotFound = fmt.Errorf("sensor reading not found")

type ReadingRepository interface {
	Add(ctx context.Context, reading SensorReading) (SensorReading, error)
	Latest(ctx context.Context) (SensorReading, error)
	Query(ctx context.Context, conditions ...ConditionFunc) ([]SensorReading, error)
	Statistics(ctx context.Context, from, to time.Time) (Statistics, error)
}

type readingRepository struct {
	db *gorm.DB
}

func NewReadingRepository(connect ConnectorFunc) (ReadingRepository, error) {
	impl, err := connect()
	if err != nil {
		return nil, err
	}

	err = impl.AutoMigrate(&SensorReading{})
	if err != nil {
		return nil, err
	}

	return &readingRepository{
		db: impl,
	}, nil
}

func (r *readingRepository) Add(ctx context.Context, reading SensorReading) (SensorReading, error) {
	if reading.ID == "" {
		reading.ID = uuid.NewString()
	}
	if reading.Timestamp.IsZero() {
		reading.Timestamp = time.Now().UTC()
	}

	err := r.db.WithContext(ctx).Create(&reading).Error
	if err != nil {
		return SensorReading{}, err
	}

	return reading, nil
}

func (r *readingRepository) Latest(ctx context.Context) (SensorReading, error) {
	reading := SensorReading{}

	err := r.db.WithContext(ctx).
		Order("timestamp desc").
		First(&reading).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SensorReading{}, ErrReadingNotFound
		}
		return SensorReading{}, err
	}

	return reading, nil
}

func (r *readingRepository) Query(ctx context.Context, conditions ...ConditionFunc) ([]SensorReading, error) {
	readings := []SensorReading{}

	query := NewCondition(conditions...).Apply(r.db.WithContext(ctx).Model(&SensorReading{}))

	err := query.Find(&readings).Error
	if err != nil {
		return []SensorReading{}, err
	}

	return readings, nil
}

func (r *readingRepository) Statistics(ctx context.Context, from, to time.Time) (Statistics, error) {
	var result struct {
		Count   int64
		Average *float64
	}

	err := r.db.WithContext(ctx).
		Model(&SensorReading{}).
		Select("count(*) as count, avg(light_intensity) as average").
		Where("timestamp >= ? AND timestamp < ?", from.UTC(), to.UTC()).
		Scan(&result).
		Error
	if err != nil {
		return Statistics{}, err
	}

	stats := Statistics{Count: result.Count}
	if result.Average != nil {
		stats.Average = *result.Average
	}

	return stats, nil
}
