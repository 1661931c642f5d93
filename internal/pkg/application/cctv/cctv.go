package cctv

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/repositories/database"
	"github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/repositories/database/footage"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
)

var (
	ErrMissingUploadFields = fmt.Errorf("missing required fields: file_url, file_name")
	ErrMissingVideoURL     = fmt.Errorf("missing required field: video_url")
)

// Upload is the metadata a recording device posts after storing a clip.
type Upload struct {
	FileURL  string   `json:"file_url" validate:"required"`
	FileName string   `json:"file_name" validate:"required"`
	FileSize *float64 `json:"file_size,omitempty" validate:"omitempty,gte=0"`
	Duration *float64 `json:"duration,omitempty" validate:"omitempty,gte=0"`
	Notes    *string  `json:"notes,omitempty"`
}

// Registration is the metadata entered manually for a clip hosted elsewhere.
type Registration struct {
	VideoURL        string   `json:"video_url" validate:"required"`
	ThumbnailURL    *string  `json:"thumbnail_url,omitempty"`
	DurationSeconds *int     `json:"duration_seconds,omitempty" validate:"omitempty,gte=0"`
	FileSizeMB      *float64 `json:"file_size_mb,omitempty" validate:"omitempty,gte=0"`
	Notes           *string  `json:"notes,omitempty"`
}

type FootageService interface {
	Upload(ctx context.Context, u Upload) (footage.CctvFootage, error)
	Register(ctx context.Context, r Registration) (footage.CctvFootage, error)
	List(ctx context.Context, conditions ...database.ConditionFunc) ([]footage.CctvFootage, error)
}

type Option func(*footageSvc)

func WithClock(now func() time.Time) Option {
	return func(s *footageSvc) {
		s.now = now
	}
}

type footageSvc struct {
	repo     footage.FootageRepository
	validate *validator.Validate
	now      func() time.Time
}

func New(repo footage.FootageRepository, opts ...Option) FootageService {
	svc := &footageSvc{
		repo:     repo,
		validate: validator.New(),
		now:      func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc
}

func (svc *footageSvc) Upload(ctx context.Context, u Upload) (footage.CctvFootage, error) {
	if err := svc.validate.Struct(u); err != nil {
		return footage.CctvFootage{}, fmt.Errorf("%w (%s)", ErrMissingUploadFields, err.Error())
	}

	f := footage.CctvFootage{
		Timestamp:  svc.now(),
		VideoURL:   u.FileURL,
		FileName:   &u.FileName,
		FileSizeMB: nonZero(u.FileSize),
		Notes:      nonEmpty(u.Notes),
	}

	if d := nonZero(u.Duration); d != nil {
		seconds := int(math.Round(*d))
		f.DurationSeconds = &seconds
	}

	return svc.add(ctx, f)
}

func (svc *footageSvc) Register(ctx context.Context, r Registration) (footage.CctvFootage, error) {
	if err := svc.validate.Struct(r); err != nil {
		return footage.CctvFootage{}, fmt.Errorf("%w (%s)", ErrMissingVideoURL, err.Error())
	}

	return svc.add(ctx, footage.CctvFootage{
		Timestamp:       svc.now(),
		VideoURL:        r.VideoURL,
		ThumbnailURL:    nonEmpty(r.ThumbnailURL),
		DurationSeconds: r.DurationSeconds,
		FileSizeMB:      r.FileSizeMB,
		Notes:           nonEmpty(r.Notes),
	})
}

func (svc *footageSvc) add(ctx context.Context, f footage.CctvFootage) (footage.CctvFootage, error) {
	stored, err := svc.repo.Add(ctx, f)
	if err != nil {
		return footage.CctvFootage{}, err
	}

	logger := logging.GetFromContext(ctx)
	logger.Info().Str("video_url", stored.VideoURL).Msg("cctv footage registered")

	return stored, nil
}

func (svc *footageSvc) List(ctx context.Context, conditions ...database.ConditionFunc) ([]footage.CctvFootage, error) {
	return svc.repo.Query(ctx, conditions...)
}

func nonZero(v *float64) *float64 {
	if v == nil || *v == 0 {
		return nil
	}
	return v
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
