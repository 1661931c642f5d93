package alerts

import (
	"fmt"
	"math"

	"github.com/diwise/iot-light-monitoring/pkg/types"
)

// Deviation is the outcome of comparing a measured intensity with the expected one.
type Deviation struct {
	Severity types.Severity
	Percent  float64
}

func (d Deviation) Message() string {
	percent := roundToTenth(d.Percent)

	switch d.Severity {
	case types.SeverityCritical:
		return fmt.Sprintf("Critical sensor deviation detected: %.1f%% difference from expected value", percent)
	case types.SeverityHigh:
		return fmt.Sprintf("High sensor deviation: %.1f%% difference from expected value", percent)
	default:
		return fmt.Sprintf("Moderate sensor deviation: %.1f%% difference from expected value", percent)
	}
}

// roundToTenth rounds halves up so that 81.25 is shown as 81.3. Percent is never negative.
func roundToTenth(percent float64) float64 {
	return math.Floor(percent*10+0.5) / 10
}

// DeviationPercentage is the signed relative difference that is stored on a reading.
func DeviationPercentage(actual, expected float64) float64 {
	return (actual - expected) / expected * 100
}

// SeverityFor maps the absolute deviation to a tier. The second return value is false
// when expected is missing or zero, or when the deviation is below every threshold.
func SeverityFor(actual float64, expected *float64) (Deviation, bool) {
	if expected == nil || *expected == 0 {
		return Deviation{}, false
	}

	percent := math.Abs(DeviationPercentage(actual, *expected))

	switch {
	case percent > 50:
		return Deviation{Severity: types.SeverityCritical, Percent: percent}, true
	case percent > 30:
		return Deviation{Severity: types.SeverityHigh, Percent: percent}, true
	case percent > 15:
		return Deviation{Severity: types.SeverityMedium, Percent: percent}, true
	}

	return Deviation{}, false
}
