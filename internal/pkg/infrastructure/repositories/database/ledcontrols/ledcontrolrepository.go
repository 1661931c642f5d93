package ledcontrols

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	. "github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/repositories/database"
)

var ErrNoControlRows = fmt.Errorf("no led control rows found")

// LedControlRepository only ever appends rows. There is intentionally no update operation.
type LedControlRepository interface {
	Append(ctx context.Context, control LedControl) (LedControl, error)
	Latest(ctx context.Context) (LedControl, error)
	Query(ctx context.Context, conditions ...ConditionFunc) ([]LedControl, error)
}

type ledControlRepository struct {
	db *gorm.DB
}

func NewLedControlRepository(connect ConnectorFunc) (LedControlRepository, error) {
	impl, err := connect()
	if err != nil {
		return nil, err
	}

	err = impl.AutoMigrate(&LedControl{})
	if err != nil {
		return nil, err
	}

	return &ledControlRepository{
		db: impl,
	}, nil
}

func (r *ledControlRepository) Append(ctx context.Context, control LedControl) (LedControl, error) {
	if control.ID == "" {
		control.ID = uuid.NewString()
	}
	if control.Timestamp.IsZero() {
		control.Timestamp = time.Now().UTC()
	}

	err := r.db.WithContext(ctx).Create(&control).Error
	if err != nil {
		return LedControl{}, err
	}

	return control, nil
}

func (r *ledControlRepository) Latest(ctx context.Context) (LedControl, error) {
	control := LedControl{}

	err := r.db.WithContext(ctx).
		Order("timestamp desc").
		First(&control).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LedControl{}, ErrNoControlRows
		}
		return LedControl{}, err
	}

	return control, nil
}

func (r *ledControlRepository) Query(ctx context.Context, conditions ...ConditionFunc) ([]LedControl, error) {
	controls := []LedControl{}

	err := NewCondition(conditions...).
		Apply(r.db.WithContext(ctx).Model(&LedControl{})).
		Find(&controls).
		Error
	if err != nil {
		return []LedControl{}, err
	}

	return controls, nil
}
