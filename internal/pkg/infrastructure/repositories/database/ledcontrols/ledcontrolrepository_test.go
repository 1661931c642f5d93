package ledcontrols

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/repositories/database"
	"github.com/diwise/iot-light-monitoring/pkg/types"
	"github.com/matryer/is"
)

func TestLatestIsMostRecentlyAppended(t *testing.T) {
	is, ctx, r := testSetupLedControlRepository(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	brightness := 80
	_, err := r.Append(ctx, LedControl{LedStatus: true, BrightnessLevel: &brightness, ControlMode: types.ControlModeManual, Timestamp: now.Add(-time.Minute)})
	is.NoErr(err)
	_, err = r.Append(ctx, LedControl{LedStatus: false, ControlMode: types.ControlModeManual, Timestamp: now})
	is.NoErr(err)

	latest, err := r.Latest(ctx)
	is.NoErr(err)
	is.True(!latest.LedStatus)
	is.True(latest.BrightnessLevel == nil)

	history, err := r.Query(ctx)
	is.NoErr(err)
	is.Equal(len(history), 2)
	is.Equal(*history[1].BrightnessLevel, 80)
}

func TestLatestWithoutRows(t *testing.T) {
	is, ctx, r := testSetupLedControlRepository(t)

	_, err := r.Latest(ctx)
	is.True(errors.Is(err, ErrNoControlRows))
}

func testSetupLedControlRepository(t *testing.T) (*is.I, context.Context, LedControlRepository) {
	is := is.New(t)
	ctx := context.Background()

	r, err := NewLedControlRepository(NewSQLiteConnector(ctx))
	is.NoErr(err)

	return is, ctx, r
}
