package footage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	. "github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/repositories/database"
)

type FootageRepository interface {
	Add(ctx context.Context, footage CctvFootage) (CctvFootage, error)
	Query(ctx context.Context, conditions ...ConditionFunc) ([]CctvFootage, error)
}

type footageRepository struct {
	db *gorm.DB
}

func NewFootageRepository(connect ConnectorFunc) (FootageRepository, error) {
	impl, err := connect()
	if err != nil {
		return nil, err
	}

	err = impl.AutoMigrate(&CctvFootage{})
	if err != nil {
		return nil, err
	}

	return &footageRepository{
		db: impl,
	}, nil
}

func (r *footageRepository) Add(ctx context.Context, footage CctvFootage) (CctvFootage, error) {
	if footage.ID == "" {
		footage.ID = uuid.NewString()
	}
	if footage.Timestamp.IsZero() {
		footage.Timestamp = time.Now().UTC()
	}

	err := r.db.WithContext(ctx).Create(&footage).Error
	if err != nil {
		return CctvFootage{}, err
	}

	return footage, nil
}

func (r *footageRepository) Query(ctx context.Context, conditions ...ConditionFunc) ([]CctvFootage, error) {
	result := []CctvFootage{}

	err := NewCondition(conditions...).
		Apply(r.db.WithContext(ctx).Model(&CctvFootage{})).
		Find(&result).
		Error
	if err != nil {
		return []CctvFootage{}, err
	}

	return result, nil
}
