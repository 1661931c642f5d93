package ledcontrol

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/diwise/iot-light-monitoring/internal/pkg/application/events"
	"github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/metrics"
	"github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/mqtt"
	"github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/repositories/database"
	"github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/repositories/database/ledcontrols"
	"github.com/diwise/iot-light-monitoring/pkg/types"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
)

var ErrInvalidCommand = fmt.Errorf("invalid led control command")

// Command is a request to change the LED chamber. A command carrying nothing but
// led_status is a power toggle, anything else is a settings update.
type Command struct {
	LedStatus        *bool             `json:"led_status" validate:"required"`
	BrightnessLevel  *int              `json:"brightness_level,omitempty" validate:"omitempty,min=0,max=100"`
	ColorTemperature *int              `json:"color_temperature,omitempty" validate:"omitempty,min=2700,max=6500"`
	ControlMode      types.ControlMode `json:"control_mode,omitempty" validate:"omitempty,oneof=manual auto"`
	DataSource       *types.DataSource `json:"data_source,omitempty" validate:"omitempty,oneof=sensor_only sensor_gps gps_only"`
	DurationMinutes  *int              `json:"duration_minutes,omitempty" validate:"omitempty,min=1"`
}

func (c Command) isPowerToggle() bool {
	return c.BrightnessLevel == nil && c.ColorTemperature == nil && c.ControlMode == "" && c.DataSource == nil && c.DurationMinutes == nil
}

// State is reported to a node that asks for its settings before any control entry exists.
type State struct {
	LedStatus        bool              `json:"led_status"`
	Brightness       int               `json:"brightness"`
	ColorTemperature int               `json:"color_temperature"`
	ControlMode      types.ControlMode `json:"control_mode"`
	DataSource       *types.DataSource `json:"data_source"`
}

func DefaultState() State {
	return State{
		LedStatus:        false,
		Brightness:       0,
		ColorTemperature: 5000,
		ControlMode:      types.ControlModeManual,
		DataSource:       nil,
	}
}

type LedControlService interface {
	// Status returns the most recent control entry, or the default state when the log is empty.
	Status(ctx context.Context) (any, error)
	Apply(ctx context.Context, cmd Command) (ledcontrols.LedControl, error)
	History(ctx context.Context, conditions ...database.ConditionFunc) ([]ledcontrols.LedControl, error)
}

type Option func(*ledSvc)

func WithClock(now func() time.Time) Option {
	return func(s *ledSvc) {
		s.now = now
	}
}

type ledSvc struct {
	repo      ledcontrols.LedControlRepository
	publisher mqtt.Publisher
	sender    events.EventSender
	validate  *validator.Validate
	now       func() time.Time
}

func New(repo ledcontrols.LedControlRepository, publisher mqtt.Publisher, sender events.EventSender, opts ...Option) LedControlService {
	if publisher == nil {
		publisher = mqtt.NewNoopPublisher()
	}

	svc := &ledSvc{
		repo:      repo,
		publisher: publisher,
		sender:    sender,
		validate:  validator.New(),
		now:       func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc
}

func (svc *ledSvc) Status(ctx context.Context) (any, error) {
	latest, err := svc.repo.Latest(ctx)
	if err != nil {
		if errors.Is(err, ledcontrols.ErrNoControlRows) {
			return DefaultState(), nil
		}
		return nil, err
	}

	return latest, nil
}

// Apply appends a new entry to the control log. Existing entries are never changed.
func (svc *ledSvc) Apply(ctx context.Context, cmd Command) (ledcontrols.LedControl, error) {
	if err := svc.validate.Struct(cmd); err != nil {
		return ledcontrols.LedControl{}, fmt.Errorf("%w: %s", ErrInvalidCommand, err.Error())
	}

	logger := logging.GetFromContext(ctx)

	entry := ledcontrols.LedControl{
		Timestamp:   svc.now(),
		LedStatus:   *cmd.LedStatus,
		ControlMode: types.ControlModeManual,
	}

	if !cmd.isPowerToggle() {
		entry.BrightnessLevel = cmd.BrightnessLevel
		entry.ColorTemperature = cmd.ColorTemperature
		entry.DurationMinutes = cmd.DurationMinutes

		if cmd.ControlMode != "" {
			entry.ControlMode = cmd.ControlMode
		}
		if entry.ControlMode == types.ControlModeAuto {
			entry.DataSource = cmd.DataSource
		}
	}

	stored, err := svc.repo.Append(ctx, entry)
	if err != nil {
		return ledcontrols.LedControl{}, err
	}

	metrics.LedControls.WithLabelValues(string(stored.ControlMode)).Inc()

	err = svc.publisher.Publish(ctx, stored)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to push led control to sensor node")
	}

	if svc.sender != nil {
		err = svc.sender.Send(ctx, LedControlChanged{Control: stored, Timestamp: stored.Timestamp})
		if err != nil {
			logger.Warn().Err(err).Msg("failed to announce led control change")
		}
	}

	return stored, nil
}

func (svc *ledSvc) History(ctx context.Context, conditions ...database.ConditionFunc) ([]ledcontrols.LedControl, error) {
	return svc.repo.Query(ctx, conditions...)
}
