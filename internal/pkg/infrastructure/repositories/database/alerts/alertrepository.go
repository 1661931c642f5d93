package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	. "github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/repositories/database"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
)

var ErrAlertNotFound = fmt.Errorf("alert not found")

type AlertRepository interface {
	Add(ctx context.Context, alert Alert) (Alert, error)
	GetByID(ctx context.Context, alertID string) (Alert, error)
	LatestOpenByType(ctx context.Context, alertType string) (Alert, error)
	Query(ctx context.Context, conditions ...ConditionFunc) ([]Alert, error)
	Resolve(ctx context.Context, alertID string, at time.Time) error
}

type alertRepository struct {
	db *gorm.DB
}

func NewAlertRepository(connect ConnectorFunc) (AlertRepository, error) {
	impl, err := connect()
	if err != nil {
		return nil, err
	}

	err = impl.AutoMigrate(&Alert{})
	if err != nil {
		return nil, err
	}

	return &alertRepository{
		db: impl,
	}, nil
}

func (d *alertRepository) Add(ctx context.Context, alert Alert) (Alert, error) {
	logger := logging.GetFromContext(ctx)

	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now().UTC()
	}

	logger.Debug().Msgf("add new alert, type: %s, severity: %s", alert.AlertType, alert.Severity)

	result := d.db.WithContext(ctx).Create(&alert)
	if result.Error != nil {
		return Alert{}, result.Error
	}

	return alert, nil
}

func (d *alertRepository) GetByID(ctx context.Context, alertID string) (Alert, error) {
	alert := Alert{}

	err := d.db.WithContext(ctx).
		Where(&Alert{ID: alertID}).
		First(&alert).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Alert{}, ErrAlertNotFound
		}
		return Alert{}, err
	}

	return alert, nil
}

// LatestOpenByType returns the most recent unresolved alert of the given type,
// or ErrAlertNotFound if there is none.
func (d *alertRepository) LatestOpenByType(ctx context.Context, alertType string) (Alert, error) {
	alerts, err := d.Query(ctx, WithAlertType(alertType), WithOnlyOpen(), WithLimit(1))
	if err != nil {
		return Alert{}, err
	}

	if len(alerts) == 0 {
		return Alert{}, ErrAlertNotFound
	}

	return alerts[0], nil
}

func (d *alertRepository) Query(ctx context.Context, conditions ...ConditionFunc) ([]Alert, error) {
	alerts := []Alert{}

	query := NewCondition(conditions...).Apply(d.db.WithContext(ctx).Model(&Alert{}))

	err := query.Find(&alerts).Error
	if err != nil {
		return []Alert{}, err
	}

	return alerts, nil
}

func (d *alertRepository) Resolve(ctx context.Context, alertID string, at time.Time) error {
	a, err := d.GetByID(ctx, alertID)
	if err != nil {
		return err
	}

	if a.IsResolved {
		return nil
	}

	resolvedAt := at.UTC()

	return d.db.WithContext(ctx).
		Model(&a).
		Updates(map[string]any{"is_resolved": true, "resolved_at": &resolvedAt}).
		Error
}
